package orders

import (
	"fmt"
	"strings"
)

// priceLines resolves requested items against current catalog rows and checks
// medicine stock. It returns all shortages at once so the nurse sees every
// line that needs fixing.
func priceLines(items []AdministrationItem, meds map[string]Medicine, svcs map[string]Service) ([]AdministrationLine, int64, error) {
	lines := make([]AdministrationLine, 0, len(items))
	var (
		total    int64
		missing  []string
		shortage []StockRejectedDetail
	)
	for _, it := range items {
		switch it.Kind {
		case KindMedicine:
			m, ok := meds[it.ItemID]
			if !ok {
				missing = append(missing, "medicine "+it.ItemID)
				continue
			}
			if m.Stock < it.Quantity {
				shortage = append(shortage, StockRejectedDetail{
					MedicineID: m.ID, Name: m.Name, Required: it.Quantity, Available: m.Stock,
				})
				continue
			}
			lines = append(lines, AdministrationLine{
				Kind: KindMedicine, ItemID: m.ID, Name: m.Name, Quantity: it.Quantity, Price: m.Price,
			})
		case KindService:
			s, ok := svcs[it.ItemID]
			if !ok {
				missing = append(missing, "service "+it.ItemID)
				continue
			}
			v, ok := s.Variant(it.Variant)
			if !ok {
				missing = append(missing, fmt.Sprintf("service %s variant %q", it.ItemID, it.Variant))
				continue
			}
			lines = append(lines, AdministrationLine{
				Kind:     KindService,
				ItemID:   s.ID,
				Name:     fmt.Sprintf("%s (%s)", s.Name, v.Label),
				Variant:  v.Label,
				Quantity: it.Quantity,
				Price:    v.Price,
			})
		}
	}
	if len(missing) > 0 {
		return nil, 0, &StockConflictError{Reason: fmt.Sprintf("no longer available: %s", strings.Join(missing, ", "))}
	}
	if len(shortage) > 0 {
		return nil, 0, &StockConflictError{Reason: "insufficient stock", Details: shortage}
	}
	for _, l := range lines {
		total += l.Subtotal()
	}
	return lines, total, nil
}

// summarize fills the report cards from per-medicine rows.
func summarize(rows []SummaryRow) Summary {
	sum := Summary{Table: rows, Cards: SummaryCards{MostUsed: "-"}}
	if sum.Table == nil {
		sum.Table = []SummaryRow{}
	}
	best := -1
	for i, r := range rows {
		sum.Cards.TotalQty += r.Qty
		sum.Cards.TotalSum += r.Sum
		if best < 0 || r.Qty > rows[best].Qty {
			best = i
		}
	}
	if best >= 0 {
		sum.Cards.MostUsed = rows[best].Name
	}
	sum.Cards.Types = len(rows)
	return sum
}
