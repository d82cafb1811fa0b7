package httpx

import (
	"context"
	"fmt"
	kafkax "github.com/ariefcatur/clinic-orders/internal/kafka"
	"github.com/ariefcatur/clinic-orders/internal/orders"
	"github.com/ariefcatur/clinic-orders/internal/redisx"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"net/http"
	"time"
)

func (a *API) createAdministration(w http.ResponseWriter, r *http.Request) {
	var req orders.AdministrationRequest
	if !decode(w, r, &req) {
		return
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		writeDomainError(w, a.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	// Fast-path idempotency via Redis; the database stays the source of truth.
	idemKey := fmt.Sprintf(redisx.KeyIdemAdministration, req.SubmissionID)
	if prev, ok, err := redisx.GetJSON[orders.AdministrationResult](ctx, a.Redis, idemKey); err == nil && ok {
		prev.Idempotent = true
		prev.Remaining = nil
		writeJSON(w, http.StatusOK, prev)
		return
	}

	res, err := a.Administrations.Commit(ctx, callerID(r), req)
	if err != nil {
		writeDomainError(w, a.Log, err)
		return
	}
	if res.Idempotent {
		writeJSON(w, http.StatusOK, res)
		return
	}

	if err := redisx.SetJSON(ctx, a.Redis, idemKey, res, redisx.TTLIdempotency); err != nil {
		a.Log.Warn().Err(err).Str("key", idemKey).Msg("idempotency cache write")
	}
	a.invalidateCatalog(ctx)

	ev := kafkax.NewEvent(orders.EventAdministrationCommitted, a.Service,
		middleware.GetReqID(r.Context()), res.OrderID,
		orders.AdministrationCommittedPayload{
			OrderID:     res.OrderID,
			PatientName: req.PatientName,
			NurseID:     callerID(r),
			Total:       res.Total,
			Remaining:   res.Remaining,
		})
	a.Committed.PublishEvent(res.OrderID, ev)

	a.Log.Info().Str("order_id", res.OrderID).Int64("total", res.Total).
		Int("items", len(req.Items)).Msg("administration committed")
	writeJSON(w, http.StatusCreated, res)
}

func (a *API) getReceipt(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	if orderID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	key := fmt.Sprintf(redisx.KeyReceipt, orderID)
	if rc, ok, err := redisx.GetJSON[orders.Administration](ctx, a.Redis, key); err == nil && ok {
		writeJSON(w, http.StatusOK, rc)
		return
	}

	rc, err := a.Administrations.Receipt(ctx, orderID)
	if err != nil {
		writeDomainError(w, a.Log, err)
		return
	}
	// receipts never change once written
	_ = redisx.SetJSON(ctx, a.Redis, key, rc, redisx.TTLReceipt)
	writeJSON(w, http.StatusOK, rc)
}
