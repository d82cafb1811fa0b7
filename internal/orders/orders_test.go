package orders

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(v int) *int { return &v }

func TestAdministrationRequest_Validate(t *testing.T) {
	ok := AdministrationRequest{
		SubmissionID: "sub-1",
		PatientName:  "Aliyeva Nodira",
		Items: []AdministrationItem{
			{Kind: KindMedicine, ItemID: "m1", Quantity: 2},
			{Kind: KindService, ItemID: "s1", Variant: "single", Quantity: 1},
		},
	}
	require.NoError(t, ok.Validate())

	tests := []struct {
		name   string
		mutate func(*AdministrationRequest)
		want   string
	}{
		{"no submission id", func(r *AdministrationRequest) { r.SubmissionID = "" }, "submission_id is required"},
		{"no patient", func(r *AdministrationRequest) { r.PatientName = "" }, "patient_name is required"},
		{"no items", func(r *AdministrationRequest) { r.Items = nil }, "at least one item is required"},
		{"zero quantity", func(r *AdministrationRequest) { r.Items[0].Quantity = 0 }, "items[0]: quantity must be at least 1"},
		{"service without variant", func(r *AdministrationRequest) { r.Items[1].Variant = "" }, "items[1]: variant is required for a service"},
		{"unknown kind", func(r *AdministrationRequest) { r.Items[0].Kind = "device" }, `items[0]: unknown type "device"`},
		{"service quantity above one", func(r *AdministrationRequest) { r.Items[1].Quantity = 3 }, "items[1]: service quantity must be 1"},
		{"duplicate medicine", func(r *AdministrationRequest) {
			r.Items = append(r.Items, AdministrationItem{Kind: KindMedicine, ItemID: "m1", Quantity: 1})
		}, "items[2]: medicine m1 listed twice"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := ok
			req.Items = append([]AdministrationItem(nil), ok.Items...)
			tc.mutate(&req)

			err := req.Validate()
			require.ErrorIs(t, err, ErrInvalidInput)
			var ie *InputError
			require.True(t, errors.As(err, &ie))
			assert.Contains(t, ie.Problems, tc.want)
		})
	}
}

func TestAdministrationRequest_Normalize(t *testing.T) {
	r := AdministrationRequest{SubmissionID: " s ", PatientName: "  Aliyeva   Nodira "}
	r.Normalize()
	assert.Equal(t, "s", r.SubmissionID)
	assert.Equal(t, "Aliyeva Nodira", r.PatientName)
}

func TestCatalogInputs_Validate(t *testing.T) {
	assert.NoError(t, MedicineInput{Name: "Analgin", Price: 1000, Stock: intp(3)}.Validate())
	assert.ErrorIs(t, MedicineInput{Name: "", Price: -1}.Validate(), ErrInvalidInput)
	assert.ErrorIs(t, MedicineInput{Name: "x", Stock: intp(-1)}.Validate(), ErrInvalidInput)

	assert.NoError(t, ServiceInput{Name: "Ukol", Variants: []Variant{{Label: "single", Count: 1, Price: 5000}}}.Validate())
	assert.ErrorIs(t, ServiceInput{Name: "Ukol"}.Validate(), ErrInvalidInput)
	assert.ErrorIs(t, ServiceInput{Name: "Ukol", Variants: []Variant{
		{Label: "single", Count: 1}, {Label: "single", Count: 3},
	}}.Validate(), ErrInvalidInput)

	assert.NoError(t, RestockRequest{Items: []RestockItem{{MedicineID: "m1", Quantity: 10}}}.Validate())
	assert.ErrorIs(t, RestockRequest{Items: []RestockItem{{MedicineID: "m1", Quantity: 0}}}.Validate(), ErrInvalidInput)
	assert.ErrorIs(t, RestockRequest{}.Validate(), ErrInvalidInput)
}

func pricingCatalog() (map[string]Medicine, map[string]Service) {
	meds := map[string]Medicine{
		"m1": {ID: "m1", Name: "Analgin", Price: 1000, Stock: 5},
		"m3": {ID: "m3", Name: "Ceftriaxone", Price: 12000, Stock: 1},
	}
	svcs := map[string]Service{
		"s1": {ID: "s1", Name: "Ukol", Variants: []Variant{{Label: "single", Count: 1, Price: 5000}}},
	}
	return meds, svcs
}

func TestPriceLines_UsesServerPrices(t *testing.T) {
	meds, svcs := pricingCatalog()
	lines, total, err := priceLines([]AdministrationItem{
		{Kind: KindMedicine, ItemID: "m1", Quantity: 2, Price: 1},
		{Kind: KindService, ItemID: "s1", Variant: "single", Quantity: 1, Price: 1},
	}, meds, svcs)
	require.NoError(t, err)

	assert.Equal(t, int64(7000), total)
	require.Len(t, lines, 2)
	assert.Equal(t, int64(1000), lines[0].Price)
	assert.Equal(t, "Ukol (single)", lines[1].Name)
}

func TestPriceLines_ReportsEveryShortage(t *testing.T) {
	meds, svcs := pricingCatalog()
	_, _, err := priceLines([]AdministrationItem{
		{Kind: KindMedicine, ItemID: "m1", Quantity: 6},
		{Kind: KindMedicine, ItemID: "m3", Quantity: 2},
	}, meds, svcs)

	var sc *StockConflictError
	require.ErrorAs(t, err, &sc)
	assert.ErrorIs(t, err, ErrStockConflict)
	assert.Equal(t, []StockRejectedDetail{
		{MedicineID: "m1", Name: "Analgin", Required: 6, Available: 5},
		{MedicineID: "m3", Name: "Ceftriaxone", Required: 2, Available: 1},
	}, sc.Details)
}

func TestPriceLines_UnknownItemsConflict(t *testing.T) {
	meds, svcs := pricingCatalog()
	_, _, err := priceLines([]AdministrationItem{
		{Kind: KindMedicine, ItemID: "gone", Quantity: 1},
		{Kind: KindService, ItemID: "s1", Variant: "3-pack", Quantity: 1},
	}, meds, svcs)

	var sc *StockConflictError
	require.ErrorAs(t, err, &sc)
	assert.Contains(t, sc.Reason, "medicine gone")
	assert.Contains(t, sc.Reason, `variant "3-pack"`)
	assert.Empty(t, sc.Details)
}

func TestSummarize(t *testing.T) {
	s := summarize([]SummaryRow{
		{Name: "Analgin", Qty: 7, Sum: 7000},
		{Name: "Ceftriaxone", Qty: 2, Sum: 24000},
	})
	assert.Equal(t, SummaryCards{TotalQty: 9, TotalSum: 31000, MostUsed: "Analgin", Types: 2}, s.Cards)

	empty := summarize(nil)
	assert.Equal(t, "-", empty.Cards.MostUsed)
	assert.NotNil(t, empty.Table)
}

func TestStockStatus(t *testing.T) {
	assert.Equal(t, StockEmpty, StockStatusOf(0, nil))
	assert.Equal(t, StockLow, StockStatusOf(5, nil))
	assert.Equal(t, StockOK, StockStatusOf(6, nil))
	assert.Equal(t, StockOK, StockStatusOf(3, intp(2)))

	assert.True(t, NeedsRestock(StockOK, StockLow))
	assert.True(t, NeedsRestock(StockOK, StockEmpty))
	assert.True(t, NeedsRestock(StockLow, StockEmpty))
	assert.False(t, NeedsRestock(StockLow, StockLow))
	assert.False(t, NeedsRestock(StockEmpty, StockOK))
}
