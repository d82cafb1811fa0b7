package httpx

import (
	"context"
	"errors"
	"github.com/ariefcatur/clinic-orders/internal/auth"
	kafkax "github.com/ariefcatur/clinic-orders/internal/kafka"
	"github.com/ariefcatur/clinic-orders/internal/orders"
	"github.com/ariefcatur/clinic-orders/internal/session"
	"github.com/go-chi/chi/v5/middleware"
	"net/http"
	"strings"
	"time"
)

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var req orders.LoginRequest
	if !decode(w, r, &req) {
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u, err := a.Users.FindByEmail(ctx, req.Email)
	if errors.Is(err, orders.ErrNotFound) {
		writeError(w, http.StatusUnauthorized, "invalid_credentials", auth.ErrInvalidCredentials.Error())
		return
	}
	if err != nil {
		writeDomainError(w, a.Log, err)
		return
	}
	if err := auth.CheckPassword(u.PasswordHash, req.Password); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid_credentials", err.Error())
		return
	}

	token, _, err := a.Issuer.Issue(u.ID, u.Name, session.Role(u.Role))
	if err != nil {
		writeDomainError(w, a.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, orders.LoginResponse{Token: token, Role: u.Role, User: u})
}

// restockRequest also accepts the single-item body {medicine_id, quantity}.
type restockRequest struct {
	orders.RestockRequest
	orders.RestockItem
}

func (a *API) restock(w http.ResponseWriter, r *http.Request) {
	var body restockRequest
	if !decode(w, r, &body) {
		return
	}
	req := body.RestockRequest
	if len(req.Items) == 0 && body.MedicineID != "" {
		req.Items = []orders.RestockItem{body.RestockItem}
	}
	if err := req.Validate(); err != nil {
		writeDomainError(w, a.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	levels, err := a.Stock.Restock(ctx, callerID(r), req.Items)
	if err != nil {
		writeDomainError(w, a.Log, err)
		return
	}
	a.invalidateCatalog(ctx)

	ev := kafkax.NewEvent(orders.EventStockRestocked, a.Service, middleware.GetReqID(r.Context()), "",
		orders.StockRestockedPayload{DeliveredBy: callerID(r), Levels: levels})
	a.Restocked.PublishEvent(ev.EventID, ev)

	writeJSON(w, http.StatusOK, map[string]any{"levels": levels})
}

func (a *API) summary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	s, err := a.Reports.Summary(ctx)
	if err != nil {
		writeDomainError(w, a.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}
