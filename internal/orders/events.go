package orders

import (
	"encoding/json"
	"time"
)

const (
	EventAdministrationCommitted = "AdministrationCommitted"
	EventStockRestocked          = "StockRestocked"
	EventStockLow                = "StockLow"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

type AdministrationCommittedPayload struct {
	OrderID     string       `json:"order_id"`
	PatientName string       `json:"patient_name"`
	NurseID     string       `json:"nurse_id,omitempty"`
	Total       int64        `json:"total"`
	Remaining   []StockLevel `json:"remaining"`
}

type StockRestockedPayload struct {
	DeliveredBy string       `json:"delivered_by,omitempty"`
	Levels      []StockLevel `json:"levels"`
}

type StockLowPayload struct {
	MedicineID string      `json:"medicine_id"`
	Name       string      `json:"name"`
	Stock      int         `json:"stock"`
	Threshold  int         `json:"threshold"`
	Status     StockStatus `json:"status"`
}
