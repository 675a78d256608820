// Package sagalog defines the audit trail written while a checkout settles.
//
// Every state transition of a settlement saga is appended as one entry,
// carrying the OpenTelemetry trace and span IDs active at the time, so a
// failed checkout can be followed from the log straight to its trace.
package sagalog

import "time"

// Status represents the lifecycle state of a saga execution.
type Status string

const (
	StatusStarted      Status = "STARTED"
	StatusStepDone     Status = "STEP_DONE"
	StatusCompleted    Status = "COMPLETED"
	StatusCompensating Status = "COMPENSATING"
	StatusFailed       Status = "FAILED"
)

// SagaLog is a point-in-time snapshot of a saga execution.
type SagaLog struct {
	SagaID      string
	Status      Status
	CurrentStep string

	// Payload is the JSON input that started the saga; only set on STARTED.
	Payload string

	// ErrorMessages is a JSON array of failure details, "[]" when none.
	ErrorMessages string

	TraceID   string
	SpanID    string
	UpdatedAt time.Time
}
