package orders

// DefaultLowStockThreshold applies to medicines without their own threshold.
const DefaultLowStockThreshold = 5

type StockStatus string

const (
	StockOK    StockStatus = "OK"
	StockLow   StockStatus = "LOW"
	StockEmpty StockStatus = "EMPTY"
)

func StockStatusOf(stock int, threshold *int) StockStatus {
	limit := DefaultLowStockThreshold
	if threshold != nil {
		limit = *threshold
	}
	switch {
	case stock <= 0:
		return StockEmpty
	case stock <= limit:
		return StockLow
	}
	return StockOK
}

// NeedsRestock reports whether moving from one status to the other should
// raise a low-stock alert.
func NeedsRestock(from, to StockStatus) bool {
	return from == StockOK && to != StockOK ||
		from == StockLow && to == StockEmpty
}
