package coordinator_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/foodie-storefront/internal/cart"
	"github.com/jcmexdev/foodie-storefront/internal/coordinator"
	"github.com/jcmexdev/foodie-storefront/internal/coordinator/sagalog"
)

type recordingStep struct {
	name    string
	execErr error
	compErr error
	trail   *[]string
}

func (s *recordingStep) Name() string { return s.name }

func (s *recordingStep) Execute(context.Context) error {
	*s.trail = append(*s.trail, "exec:"+s.name)
	return s.execErr
}

func (s *recordingStep) Compensate(context.Context) error {
	*s.trail = append(*s.trail, "comp:"+s.name)
	return s.compErr
}

func statuses(entries []sagalog.SagaLog) []sagalog.Status {
	out := make([]sagalog.Status, len(entries))
	for i, e := range entries {
		out[i] = e.Status
	}
	return out
}

func TestOrchestrator_Success(t *testing.T) {
	var trail []string
	repo := sagalog.NewMemoryRepository()
	steps := []coordinator.Step{
		&recordingStep{name: "a", trail: &trail},
		&recordingStep{name: "b", trail: &trail},
	}

	err := coordinator.NewOrchestrator("saga-1", map[string]string{"orderId": "FD1"}, steps, repo).Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"exec:a", "exec:b"}, trail)

	history, err := repo.History(context.Background(), "saga-1")
	require.NoError(t, err)
	assert.Equal(t, []sagalog.Status{
		sagalog.StatusStarted, sagalog.StatusStepDone, sagalog.StatusStepDone, sagalog.StatusCompleted,
	}, statuses(history))
	assert.JSONEq(t, `{"orderId":"FD1"}`, history[0].Payload)
}

func TestOrchestrator_RollsBackInReverse(t *testing.T) {
	var trail []string
	repo := sagalog.NewMemoryRepository()
	boom := errors.New("boom")
	steps := []coordinator.Step{
		&recordingStep{name: "a", trail: &trail},
		&recordingStep{name: "b", trail: &trail, compErr: errors.New("stuck")},
		&recordingStep{name: "c", trail: &trail, execErr: boom},
	}

	err := coordinator.NewOrchestrator("saga-2", nil, steps, repo).Start(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"exec:a", "exec:b", "exec:c", "comp:b", "comp:a"}, trail)

	history, _ := repo.History(context.Background(), "saga-2")
	last := history[len(history)-1]
	assert.Equal(t, sagalog.StatusFailed, last.Status)
	assert.Equal(t, "c", last.CurrentStep)
	assert.Contains(t, last.ErrorMessages, "compensation of b failed")
}

func TestOrchestrator_NilLog(t *testing.T) {
	var trail []string
	err := coordinator.NewOrchestrator("saga-3", nil, []coordinator.Step{&recordingStep{name: "a", trail: &trail}}, nil).Start(context.Background())
	assert.NoError(t, err)
}

type fakeCharger struct {
	err      error
	charged  map[string]decimal.Decimal
	refunded []string
}

func (f *fakeCharger) Charge(_ context.Context, orderID string, amount decimal.Decimal, _ string) error {
	if f.err != nil {
		return f.err
	}
	if f.charged == nil {
		f.charged = map[string]decimal.Decimal{}
	}
	f.charged[orderID] = amount
	return nil
}

func (f *fakeCharger) Refund(_ context.Context, orderID string) error {
	f.refunded = append(f.refunded, orderID)
	return nil
}

type fakeBasket struct {
	items map[string]int
}

func (b *fakeBasket) Deduct(_ context.Context, lines []cart.Item) {
	for _, l := range lines {
		b.items[l.ID] -= l.Quantity
		if b.items[l.ID] <= 0 {
			delete(b.items, l.ID)
		}
	}
}

func (b *fakeBasket) Restore(_ context.Context, lines []cart.Item) {
	for _, l := range lines {
		b.items[l.ID] += l.Quantity
	}
}

func TestSettlementSteps_ClearIsCompensated(t *testing.T) {
	basket := &fakeBasket{items: map[string]int{"3": 2, "7": 1}}
	lines := []cart.Item{{ID: "3", Quantity: 2, Price: decimal.RequireFromString("14.99")}}
	charger := &fakeCharger{}
	failing := &recordingStep{name: "after", trail: &[]string{}, execErr: errors.New("late failure")}

	steps := []coordinator.Step{
		coordinator.NewPaymentStep(charger, "FD1", decimal.RequireFromString("41.3564"), "cod"),
		coordinator.NewClearCartStep(basket, lines),
		failing,
	}
	err := coordinator.NewOrchestrator("saga-4", nil, steps, nil).Start(context.Background())

	require.Error(t, err)
	assert.Equal(t, map[string]int{"3": 2, "7": 1}, basket.items)
	assert.Equal(t, []string{"FD1"}, charger.refunded)
}

func TestClearCartStep_LeavesUnpaidLines(t *testing.T) {
	basket := &fakeBasket{items: map[string]int{"3": 3, "7": 1}}
	step := coordinator.NewClearCartStep(basket, []cart.Item{{ID: "3", Quantity: 2}})

	require.NoError(t, step.Execute(context.Background()))
	assert.Equal(t, map[string]int{"3": 1, "7": 1}, basket.items)
}

func TestClearCartStep_CompensateWithoutExecuteIsNoop(t *testing.T) {
	basket := &fakeBasket{items: map[string]int{"7": 1}}
	step := coordinator.NewClearCartStep(basket, []cart.Item{{ID: "3", Quantity: 2}})

	require.NoError(t, step.Compensate(context.Background()))
	assert.Equal(t, map[string]int{"7": 1}, basket.items)
}

func TestPaymentStep_WrapsChargeError(t *testing.T) {
	declined := errors.New("declined")
	step := coordinator.NewPaymentStep(&fakeCharger{err: declined}, "FD9", decimal.NewFromInt(1), "card")

	err := step.Execute(context.Background())
	assert.ErrorIs(t, err, declined)
	assert.Contains(t, err.Error(), "FD9")
}
