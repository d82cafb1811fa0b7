package orders

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrStockConflict = errors.New("stock conflict")
)

// InputError lists every problem found in a request body.
type InputError struct{ Problems []string }

func (e *InputError) Error() string { return strings.Join(e.Problems, "; ") }

func (e *InputError) Is(target error) bool { return target == ErrInvalidInput }

func problems(list []string) error {
	if len(list) == 0 {
		return nil
	}
	return &InputError{Problems: list}
}

// StockConflictError means the administration could not be committed as
// submitted. Nothing was written.
type StockConflictError struct {
	Reason  string                `json:"reason"`
	Details []StockRejectedDetail `json:"details,omitempty"`
}

type StockRejectedDetail struct {
	MedicineID string `json:"item_id"`
	Name       string `json:"name,omitempty"`
	Required   int    `json:"required"`
	Available  int    `json:"available"`
}

func (e *StockConflictError) Error() string {
	if len(e.Details) == 0 {
		return e.Reason
	}
	return fmt.Sprintf("%s (%d medicine(s) short)", e.Reason, len(e.Details))
}

func (e *StockConflictError) Is(target error) bool { return target == ErrStockConflict }

type AdministrationItem struct {
	Kind     ItemKind `json:"type"`
	ItemID   string   `json:"item_id"`
	Variant  string   `json:"variant,omitempty"`
	Quantity int      `json:"quantity"`
	// Price is what the client displayed. The server reprices every line.
	Price int64 `json:"price,omitempty"`
}

type AdministrationRequest struct {
	SubmissionID string               `json:"submission_id"`
	PatientName  string               `json:"patient_name"`
	Items        []AdministrationItem `json:"items"`
}

type AdministrationResult struct {
	OrderID    string       `json:"order_id"`
	Total      int64        `json:"total"`
	Idempotent bool         `json:"idempotent"`
	Remaining  []StockLevel `json:"remaining,omitempty"`
}

func (r *AdministrationRequest) Normalize() {
	r.SubmissionID = strings.TrimSpace(r.SubmissionID)
	r.PatientName = strings.Join(strings.Fields(r.PatientName), " ")
}

func (r AdministrationRequest) Validate() error {
	var p []string
	if r.SubmissionID == "" {
		p = append(p, "submission_id is required")
	}
	if r.PatientName == "" {
		p = append(p, "patient_name is required")
	}
	if len(r.Items) == 0 {
		p = append(p, "at least one item is required")
	}
	meds := map[string]bool{}
	svcs := map[string]bool{}
	for i, it := range r.Items {
		switch it.Kind {
		case KindMedicine:
			if meds[it.ItemID] {
				p = append(p, fmt.Sprintf("items[%d]: medicine %s listed twice", i, it.ItemID))
			}
			meds[it.ItemID] = true
		case KindService:
			if it.Variant == "" {
				p = append(p, fmt.Sprintf("items[%d]: variant is required for a service", i))
			}
			if svcs[it.ItemID] {
				p = append(p, fmt.Sprintf("items[%d]: service %s listed twice", i, it.ItemID))
			}
			if it.Quantity > 1 {
				p = append(p, fmt.Sprintf("items[%d]: service quantity must be 1", i))
			}
			svcs[it.ItemID] = true
		default:
			p = append(p, fmt.Sprintf("items[%d]: unknown type %q", i, it.Kind))
		}
		if it.ItemID == "" {
			p = append(p, fmt.Sprintf("items[%d]: item_id is required", i))
		}
		if it.Quantity < 1 {
			p = append(p, fmt.Sprintf("items[%d]: quantity must be at least 1", i))
		}
	}
	return problems(p)
}

type MedicineInput struct {
	Name              string `json:"name"`
	Price             int64  `json:"price"`
	Stock             *int   `json:"stock,omitempty"`
	LowStockThreshold *int   `json:"low_stock_threshold,omitempty"`
}

func (m *MedicineInput) Normalize() { m.Name = strings.TrimSpace(m.Name) }

func (m MedicineInput) Validate() error {
	var p []string
	if m.Name == "" {
		p = append(p, "name is required")
	}
	if m.Price < 0 {
		p = append(p, "price must not be negative")
	}
	if m.Stock != nil && *m.Stock < 0 {
		p = append(p, "stock must not be negative")
	}
	if m.LowStockThreshold != nil && *m.LowStockThreshold < 0 {
		p = append(p, "low_stock_threshold must not be negative")
	}
	return problems(p)
}

type ServiceInput struct {
	Name     string    `json:"name"`
	Variants []Variant `json:"variants"`
}

func (s *ServiceInput) Normalize() {
	s.Name = strings.TrimSpace(s.Name)
	for i := range s.Variants {
		s.Variants[i].Label = strings.TrimSpace(s.Variants[i].Label)
	}
}

func (s ServiceInput) Validate() error {
	var p []string
	if s.Name == "" {
		p = append(p, "name is required")
	}
	if len(s.Variants) == 0 {
		p = append(p, "at least one variant is required")
	}
	seen := map[string]bool{}
	for i, v := range s.Variants {
		if v.Label == "" {
			p = append(p, fmt.Sprintf("variants[%d]: label is required", i))
		} else if seen[v.Label] {
			p = append(p, fmt.Sprintf("variants[%d]: duplicate label %q", i, v.Label))
		}
		seen[v.Label] = true
		if v.Count < 1 {
			p = append(p, fmt.Sprintf("variants[%d]: count must be at least 1", i))
		}
		if v.Price < 0 {
			p = append(p, fmt.Sprintf("variants[%d]: price must not be negative", i))
		}
	}
	return problems(p)
}

type RestockItem struct {
	MedicineID string `json:"medicine_id"`
	Quantity   int    `json:"quantity"`
}

type RestockRequest struct {
	Items []RestockItem `json:"items"`
}

func (r RestockRequest) Validate() error {
	var p []string
	if len(r.Items) == 0 {
		p = append(p, "at least one item is required")
	}
	for i, it := range r.Items {
		if it.MedicineID == "" {
			p = append(p, fmt.Sprintf("items[%d]: medicine_id is required", i))
		}
		if it.Quantity < 1 {
			p = append(p, fmt.Sprintf("items[%d]: quantity must be at least 1", i))
		}
	}
	return problems(p)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
	Role  string `json:"role"`
	User  User   `json:"user"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error    string                `json:"error"`
	Message  string                `json:"message"`
	Problems []string              `json:"problems,omitempty"`
	Details  []StockRejectedDetail `json:"details,omitempty"`
}
