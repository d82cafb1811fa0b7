package httpx

import (
	"context"
	"github.com/ariefcatur/clinic-orders/internal/auth"
	"github.com/ariefcatur/clinic-orders/internal/logging"
	"github.com/ariefcatur/clinic-orders/internal/orders"
	"github.com/ariefcatur/clinic-orders/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"net/http"
	"time"
)

type CatalogStore interface {
	ListMedicines(ctx context.Context) ([]orders.Medicine, error)
	ListMedicinesForDelivery(ctx context.Context) ([]orders.Medicine, error)
	GetMedicine(ctx context.Context, id string) (orders.Medicine, error)
	CreateMedicine(ctx context.Context, in orders.MedicineInput) (orders.Medicine, error)
	UpdateMedicine(ctx context.Context, id string, in orders.MedicineInput) (orders.Medicine, error)
	DeleteMedicine(ctx context.Context, id string) error
	ListServices(ctx context.Context) ([]orders.Service, error)
	CreateService(ctx context.Context, in orders.ServiceInput) (orders.Service, error)
	DeleteService(ctx context.Context, id string) error
}

type AdministrationStore interface {
	Commit(ctx context.Context, nurseID string, req orders.AdministrationRequest) (orders.AdministrationResult, error)
	Receipt(ctx context.Context, orderID string) (orders.Administration, error)
}

type StockStore interface {
	Restock(ctx context.Context, deliveredBy string, items []orders.RestockItem) ([]orders.StockLevel, error)
}

type ReportStore interface {
	Summary(ctx context.Context) (orders.Summary, error)
}

type UserStore interface {
	FindByEmail(ctx context.Context, email string) (orders.User, error)
}

type EventPublisher interface {
	PublishEvent(key string, env orders.Envelope) bool
}

// API holds every dependency of the HTTP handlers.
type API struct {
	Catalog         CatalogStore
	Administrations AdministrationStore
	Stock           StockStore
	Reports         ReportStore
	Users           UserStore
	Issuer          *auth.Issuer
	Redis           redis.Cmdable
	Committed       EventPublisher
	Restocked       EventPublisher
	Service         string
	CatalogTTL      time.Duration
	Log             zerolog.Logger
}

func NewRouter(log zerolog.Logger) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, logging.Requests(log), middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

func (a *API) Register(r chi.Router) {
	r.Post("/auth/login", a.login)
	r.Get("/administrations/public/orders/{id}", a.getReceipt)

	r.Group(func(r chi.Router) {
		r.Use(a.Issuer.Authenticate, auth.RequireRole(session.RoleNurse))
		r.Get("/medicines", a.listMedicines)
		r.Post("/medicines", a.createMedicine)
		r.Get("/medicines/{id}", a.getMedicine)
		r.Put("/medicines/{id}", a.updateMedicine)
		r.Delete("/medicines/{id}", a.deleteMedicine)
		r.Get("/services", a.listServices)
		r.Post("/services", a.createService)
		r.Delete("/services/{id}", a.deleteService)
		r.Post("/administrations/bulk", a.createAdministration)
	})

	r.Group(func(r chi.Router) {
		r.Use(a.Issuer.Authenticate, auth.RequireRole(session.RoleDelivery))
		r.Get("/medicines/for-delivery", a.listForDelivery)
		r.Post("/medicines/delivery", a.restock)
	})

	r.Group(func(r chi.Router) {
		r.Use(a.Issuer.Authenticate, auth.RequireRole(session.RoleManager))
		r.Get("/reports/summary", a.summary)
	})
}

func callerID(r *http.Request) string {
	if c, ok := auth.ClaimsFrom(r.Context()); ok {
		return c.Subject
	}
	return ""
}
