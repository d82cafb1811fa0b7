package redisx

import "time"

const (
	// Idempotency administration: idem:administration:{submission_id} -> AdministrationResult JSON
	KeyIdemAdministration = "idem:administration:%s"

	// Catalog cache, dropped on every catalog or stock change
	KeyCatalogMedicines = "catalog:medicines"
	KeyCatalogServices  = "catalog:services"

	// Public receipt cache: receipt:{order_id} -> Administration JSON
	KeyReceipt = "receipt:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Set of medicine ids at or below their low-stock threshold
	KeyStockLow = "stock:low"

	// Last seen stock status per medicine: hash stock:status {medicine_id: OK|LOW|EMPTY}
	KeyStockStatus = "stock:status"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLCatalog     = 30 * time.Second
	TTLReceipt     = 10 * time.Minute
	TTLDedup       = 48 * time.Hour
)
