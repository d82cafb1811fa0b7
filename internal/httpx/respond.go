package httpx

import (
	"encoding/json"
	"errors"
	"github.com/ariefcatur/clinic-orders/internal/orders"
	"github.com/rs/zerolog"
	"net/http"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, orders.ErrorResponse{Error: code, Message: message})
}

// writeDomainError maps repository errors to status codes. Anything it does
// not recognise is logged and reported as 500 without internals.
func writeDomainError(w http.ResponseWriter, log zerolog.Logger, err error) {
	var (
		ie *orders.InputError
		sc *orders.StockConflictError
	)
	switch {
	case errors.As(err, &ie):
		writeJSON(w, http.StatusBadRequest, orders.ErrorResponse{
			Error: "validation_failed", Message: ie.Error(), Problems: ie.Problems,
		})
	case errors.As(err, &sc):
		writeJSON(w, http.StatusConflict, orders.ErrorResponse{
			Error: "stock_conflict", Message: sc.Error(), Details: sc.Details,
		})
	case errors.Is(err, orders.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	default:
		log.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal", "internal server error")
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json")
		return false
	}
	return true
}
