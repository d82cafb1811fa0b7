package httpx

import (
	"context"
	"github.com/ariefcatur/clinic-orders/internal/orders"
	"github.com/ariefcatur/clinic-orders/internal/redisx"
	"github.com/go-chi/chi/v5"
	"net/http"
	"time"
)

// cached serves key from Redis, falling back to load and filling the cache.
// Redis errors only cost a cache miss.
func cached[T any](ctx context.Context, a *API, key string, load func(context.Context) (T, error)) (T, error) {
	if v, ok, err := redisx.GetJSON[T](ctx, a.Redis, key); err == nil && ok {
		return v, nil
	} else if err != nil {
		a.Log.Warn().Err(err).Str("key", key).Msg("cache read")
	}
	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	ttl := a.CatalogTTL
	if ttl <= 0 {
		ttl = redisx.TTLCatalog
	}
	if err := redisx.SetJSON(ctx, a.Redis, key, v, ttl); err != nil {
		a.Log.Warn().Err(err).Str("key", key).Msg("cache write")
	}
	return v, nil
}

func (a *API) invalidateCatalog(ctx context.Context) {
	if err := redisx.InvalidateCatalog(ctx, a.Redis); err != nil {
		a.Log.Warn().Err(err).Msg("catalog cache invalidation")
	}
}

func (a *API) listMedicines(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ms, err := cached(ctx, a, redisx.KeyCatalogMedicines, a.Catalog.ListMedicines)
	if err != nil {
		writeDomainError(w, a.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, ms)
}

func (a *API) getMedicine(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	m, err := a.Catalog.GetMedicine(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, a.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (a *API) listForDelivery(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ms, err := a.Catalog.ListMedicinesForDelivery(ctx)
	if err != nil {
		writeDomainError(w, a.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, ms)
}

func (a *API) createMedicine(w http.ResponseWriter, r *http.Request) {
	var in orders.MedicineInput
	if !decode(w, r, &in) {
		return
	}
	in.Normalize()
	if err := in.Validate(); err != nil {
		writeDomainError(w, a.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	m, err := a.Catalog.CreateMedicine(ctx, in)
	if err != nil {
		writeDomainError(w, a.Log, err)
		return
	}
	a.invalidateCatalog(ctx)
	writeJSON(w, http.StatusCreated, m)
}

func (a *API) updateMedicine(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var in orders.MedicineInput
	if !decode(w, r, &in) {
		return
	}
	in.Normalize()
	if err := in.Validate(); err != nil {
		writeDomainError(w, a.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	m, err := a.Catalog.UpdateMedicine(ctx, id, in)
	if err != nil {
		writeDomainError(w, a.Log, err)
		return
	}
	a.invalidateCatalog(ctx)
	writeJSON(w, http.StatusOK, m)
}

func (a *API) deleteMedicine(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := a.Catalog.DeleteMedicine(ctx, chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, a.Log, err)
		return
	}
	a.invalidateCatalog(ctx)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) listServices(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ss, err := cached(ctx, a, redisx.KeyCatalogServices, a.Catalog.ListServices)
	if err != nil {
		writeDomainError(w, a.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, ss)
}

func (a *API) createService(w http.ResponseWriter, r *http.Request) {
	var in orders.ServiceInput
	if !decode(w, r, &in) {
		return
	}
	in.Normalize()
	if err := in.Validate(); err != nil {
		writeDomainError(w, a.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	s, err := a.Catalog.CreateService(ctx, in)
	if err != nil {
		writeDomainError(w, a.Log, err)
		return
	}
	a.invalidateCatalog(ctx)
	writeJSON(w, http.StatusCreated, s)
}

func (a *API) deleteService(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := a.Catalog.DeleteService(ctx, chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, a.Log, err)
		return
	}
	a.invalidateCatalog(ctx)
	w.WriteHeader(http.StatusNoContent)
}
