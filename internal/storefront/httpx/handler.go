package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jcmexdev/foodie-storefront/internal/assistant"
	"github.com/jcmexdev/foodie-storefront/internal/catalog"
	"github.com/jcmexdev/foodie-storefront/internal/checkout"
	"github.com/jcmexdev/foodie-storefront/internal/pkg/metrics"
	"github.com/jcmexdev/foodie-storefront/internal/pkg/reqctx"
	"github.com/jcmexdev/foodie-storefront/internal/session"
)

// Handler serves the storefront API: catalog, per-session cart and
// checkout, and the assistant relay.
type Handler struct {
	catalog  *catalog.Catalog
	sessions *session.Manager
	relay    *assistant.Relay
	metrics  *metrics.ServerMetrics
}

func NewHandler(cat *catalog.Catalog, sessions *session.Manager, relay *assistant.Relay, m *metrics.ServerMetrics) *Handler {
	return &Handler{catalog: cat, sessions: sessions, relay: relay, metrics: m}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ListRestaurants(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, h.catalog.Restaurants(catalog.Query{
		Search:  q.Get("q"),
		Cuisine: q.Get("cuisine"),
		SortBy:  q.Get("sort"),
	}))
}

func (h *Handler) GetRestaurant(w http.ResponseWriter, r *http.Request) {
	rest, err := h.catalog.Restaurant(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "restaurant_not_found", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rest)
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, mapCart(h.sessions.Cart(r.Context(), reqctx.SessionID(r.Context()))))
}

// AddCartItem adds one unit of a menu item; repeated adds raise its quantity.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if req.RestaurantID == "" || req.ItemID == "" {
		writeError(w, http.StatusUnprocessableEntity, "invalid_request", "restaurantId and itemId are required")
		return
	}

	cand, err := h.catalog.Candidate(req.RestaurantID, req.ItemID)
	if err != nil {
		code := "item_not_found"
		if errors.Is(err, catalog.ErrRestaurantNotFound) {
			code = "restaurant_not_found"
		}
		writeError(w, http.StatusNotFound, code, err.Error())
		return
	}

	ctx := r.Context()
	store := h.sessions.Cart(ctx, reqctx.SessionID(ctx))
	store.AddItem(ctx, cand)
	writeJSON(w, http.StatusOK, mapCart(store))
}

// UpdateCartItem sets an item's quantity. Zero or below removes it.
func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req UpdateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if req.Quantity == nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid_request", "quantity is required")
		return
	}

	ctx := r.Context()
	store := h.sessions.Cart(ctx, reqctx.SessionID(ctx))
	store.UpdateQuantity(ctx, chi.URLParam(r, "itemId"), *req.Quantity)
	writeJSON(w, http.StatusOK, mapCart(store))
}

func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	store := h.sessions.Cart(ctx, reqctx.SessionID(ctx))
	store.RemoveItem(ctx, chi.URLParam(r, "itemId"))
	writeJSON(w, http.StatusOK, mapCart(store))
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	store := h.sessions.Cart(ctx, reqctx.SessionID(ctx))
	store.Clear(ctx)
	writeJSON(w, http.StatusOK, mapCart(store))
}

// StartCheckout enters the checkout flow, or resumes the live one. An empty
// cart renders the empty state and never creates a machine.
func (h *Handler) StartCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	m, err := h.sessions.StartCheckout(ctx, reqctx.SessionID(ctx))
	if errors.Is(err, checkout.ErrEmptyCart) {
		writeJSON(w, http.StatusOK, EmptyCheckoutResponse{Stage: "empty"})
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "checkout_unavailable", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, m.View())
}

func (h *Handler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	m, err := h.sessions.Checkout(reqctx.SessionID(ctx))
	if err != nil {
		writeJSON(w, http.StatusOK, EmptyCheckoutResponse{Stage: "empty"})
		return
	}
	writeJSON(w, http.StatusOK, m.View())
}

func (h *Handler) SetAddress(w http.ResponseWriter, r *http.Request) {
	m, ok := h.liveCheckout(w, r)
	if !ok {
		return
	}
	var addr checkout.Address
	if err := json.NewDecoder(r.Body).Decode(&addr); err != nil {
		writeDecodeError(w, err)
		return
	}
	if err := m.SetAddress(addr); err != nil {
		writeCheckoutError(w, m, err)
		return
	}
	writeJSON(w, http.StatusOK, m.View())
}

func (h *Handler) SetPayment(w http.ResponseWriter, r *http.Request) {
	m, ok := h.liveCheckout(w, r)
	if !ok {
		return
	}
	var req PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDecodeError(w, err)
		return
	}
	switch req.Mode {
	case checkout.PaymentCOD, checkout.PaymentCard, checkout.PaymentWallet:
	default:
		writeError(w, http.StatusUnprocessableEntity, "invalid_payment", "mode must be cod, card or wallet")
		return
	}
	if err := m.SetPayment(checkout.PaymentSelection{Mode: req.Mode, Card: req.Card}); err != nil {
		writeCheckoutError(w, m, err)
		return
	}
	writeJSON(w, http.StatusOK, m.View())
}

// AdvanceCheckout moves forward one stage. Leaving the payment stage runs
// the settlement and only answers once it has finished.
func (h *Handler) AdvanceCheckout(w http.ResponseWriter, r *http.Request) {
	m, ok := h.liveCheckout(w, r)
	if !ok {
		return
	}
	from := m.Stage()
	stage, err := m.Advance(r.Context())
	if from == checkout.StagePayment && !errors.Is(err, checkout.ErrSettlementInProgress) {
		h.recordSettlement(r, stage, err)
	}
	if err != nil {
		writeCheckoutError(w, m, err)
		return
	}
	writeJSON(w, http.StatusOK, m.View())
}

func (h *Handler) BackCheckout(w http.ResponseWriter, r *http.Request) {
	m, ok := h.liveCheckout(w, r)
	if !ok {
		return
	}
	if _, err := m.Back(); err != nil {
		writeCheckoutError(w, m, err)
		return
	}
	writeJSON(w, http.StatusOK, m.View())
}

func (h *Handler) liveCheckout(w http.ResponseWriter, r *http.Request) (*checkout.Machine, bool) {
	m, err := h.sessions.Checkout(reqctx.SessionID(r.Context()))
	if err != nil {
		writeError(w, http.StatusNotFound, "no_checkout", err.Error())
		return nil, false
	}
	return m, true
}

func (h *Handler) recordSettlement(r *http.Request, stage checkout.Stage, err error) {
	outcome := "confirmed"
	switch {
	case errors.Is(err, checkout.ErrSettlementFailed):
		outcome = "failed"
	case err != nil:
		outcome = "refused"
	case stage != checkout.StageConfirmation:
		return
	}
	if h.metrics != nil {
		h.metrics.Checkouts.WithLabelValues(outcome).Inc()
	}
	slog.InfoContext(r.Context(), "settlement attempt", "session_id", reqctx.SessionID(r.Context()), "outcome", outcome)
}

func writeCheckoutError(w http.ResponseWriter, m *checkout.Machine, err error) {
	status, code := http.StatusInternalServerError, "checkout_error"
	switch {
	case errors.Is(err, checkout.ErrEmptyCart):
		status, code = http.StatusUnprocessableEntity, "empty_cart"
	case errors.Is(err, checkout.ErrInvalidAddress):
		status, code = http.StatusUnprocessableEntity, "invalid_address"
	case errors.Is(err, checkout.ErrInvalidPayment):
		status, code = http.StatusUnprocessableEntity, "invalid_payment"
	case errors.Is(err, checkout.ErrSettlementInProgress):
		status, code = http.StatusConflict, "settlement_in_progress"
	case errors.Is(err, checkout.ErrCheckoutClosed):
		status, code = http.StatusConflict, "checkout_closed"
	case errors.Is(err, checkout.ErrSettlementFailed):
		status, code = http.StatusPaymentRequired, "settlement_failed"
	}
	writeJSON(w, status, CheckoutErrorResponse{
		ErrorResponse: ErrorResponse{Error: code, Message: err.Error()},
		Checkout:      m.View(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDecodeError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "body_too_large", err.Error())
		return
	}
	writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: msg,
	})
}
