package catalog

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Medicine is one purchasable medicine as listed by the backend.
// UnitPrice is in the smallest currency unit.
type Medicine struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	UnitPrice         int64  `json:"unit_price"`
	Stock             int    `json:"stock"`
	LowStockThreshold *int   `json:"low_stock_threshold,omitempty"`
}

type ServiceVariant struct {
	Label string `json:"label"`
	Count int    `json:"count"`
	Price int64  `json:"price"`
}

type Service struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Variants []ServiceVariant `json:"variants"`
}

// Variant looks a variant up by label.
func (s Service) Variant(label string) (ServiceVariant, bool) {
	for _, v := range s.Variants {
		if v.Label == label {
			return v, true
		}
	}
	return ServiceVariant{}, false
}

// Source supplies the current catalog. Implementations talk to the backend.
type Source interface {
	ListMedicines(ctx context.Context) ([]Medicine, error)
	ListServices(ctx context.Context) ([]Service, error)
}

// Snapshot is an immutable view of the catalog at one point in time.
// It is never mutated after construction; refreshes build a new one.
type Snapshot struct {
	medicines   []Medicine
	services    []Service
	medicineIdx map[string]int
	serviceIdx  map[string]int
}

func NewSnapshot(meds []Medicine, svcs []Service) *Snapshot {
	s := &Snapshot{
		medicines:   append([]Medicine(nil), meds...),
		services:    append([]Service(nil), svcs...),
		medicineIdx: make(map[string]int, len(meds)),
		serviceIdx:  make(map[string]int, len(svcs)),
	}
	for i, m := range s.medicines {
		s.medicineIdx[m.ID] = i
	}
	for i, sv := range s.services {
		s.serviceIdx[sv.ID] = i
	}
	return s
}

// Fetch loads medicines and services concurrently and builds a Snapshot.
func Fetch(ctx context.Context, src Source) (*Snapshot, error) {
	var (
		meds []Medicine
		svcs []Service
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		meds, err = src.ListMedicines(gctx)
		if err != nil {
			return fmt.Errorf("list medicines: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		svcs, err = src.ListServices(gctx)
		if err != nil {
			return fmt.Errorf("list services: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return NewSnapshot(meds, svcs), nil
}

func (s *Snapshot) Medicine(id string) (Medicine, bool) {
	i, ok := s.medicineIdx[id]
	if !ok {
		return Medicine{}, false
	}
	return s.medicines[i], true
}

func (s *Snapshot) Service(id string) (Service, bool) {
	i, ok := s.serviceIdx[id]
	if !ok {
		return Service{}, false
	}
	return s.services[i], true
}

// Medicines returns a copy of the medicine list in backend order.
func (s *Snapshot) Medicines() []Medicine {
	return append([]Medicine(nil), s.medicines...)
}

func (s *Snapshot) Services() []Service {
	return append([]Service(nil), s.services...)
}
