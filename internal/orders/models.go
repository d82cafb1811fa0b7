package orders

import "time"

type Medicine struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Price             int64     `json:"price"`
	Stock             int       `json:"stock"`
	LowStockThreshold *int      `json:"low_stock_threshold,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type Variant struct {
	Label string `json:"label"`
	Count int    `json:"count"`
	Price int64  `json:"price"`
}

type Service struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Variants  []Variant `json:"variants"`
	CreatedAt time.Time `json:"created_at"`
}

func (s Service) Variant(label string) (Variant, bool) {
	for _, v := range s.Variants {
		if v.Label == label {
			return v, true
		}
	}
	return Variant{}, false
}

type ItemKind string

const (
	KindMedicine ItemKind = "medicine"
	KindService  ItemKind = "service"
)

// Administration is one committed bulk order for a patient.
type Administration struct {
	ID           string               `json:"order_id"`
	SubmissionID string               `json:"submission_id"`
	PatientName  string               `json:"patient_name"`
	NurseID      string               `json:"nurse_id,omitempty"`
	Items        []AdministrationLine `json:"items"`
	Total        int64                `json:"total"`
	CreatedAt    time.Time            `json:"date"`
}

// AdministrationLine keeps the name and price as they were at commit time.
type AdministrationLine struct {
	Kind     ItemKind `json:"type"`
	ItemID   string   `json:"item_id"`
	Name     string   `json:"name"`
	Variant  string   `json:"variant,omitempty"`
	Quantity int      `json:"quantity"`
	Price    int64    `json:"price"`
}

func (l AdministrationLine) Subtotal() int64 { return l.Price * int64(l.Quantity) }

type StockLevel struct {
	MedicineID        string `json:"medicine_id"`
	Name              string `json:"name"`
	Stock             int    `json:"stock"`
	LowStockThreshold *int   `json:"low_stock_threshold,omitempty"`
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type SummaryCards struct {
	TotalQty int    `json:"totalQty"`
	TotalSum int64  `json:"totalSum"`
	MostUsed string `json:"mostUsed"`
	Types    int    `json:"types"`
}

type SummaryRow struct {
	Name string `json:"name"`
	Qty  int    `json:"qty"`
	Sum  int64  `json:"sum"`
}

type Summary struct {
	Cards SummaryCards `json:"cards"`
	Table []SummaryRow `json:"table"`
}
