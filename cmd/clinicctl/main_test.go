package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/clinic-orders/internal/orders"
	"github.com/ariefcatur/clinic-orders/internal/session"
)

func TestParseMedicines(t *testing.T) {
	picks, err := parseMedicines([]string{"m1=2", " m2 = 1", "m1=3"})
	require.NoError(t, err)
	assert.Equal(t, []medicinePick{{ID: "m1", Quantity: "3"}, {ID: "m2", Quantity: "1"}}, picks)

	for _, bad := range []string{"m1", "=2", "m1="} {
		_, err := parseMedicines([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestParseRestock(t *testing.T) {
	items, err := parseRestock([]string{"m1=5", "m2=1", "m1=5"})
	require.NoError(t, err)
	assert.Equal(t, []orders.RestockItem{{MedicineID: "m1", Quantity: 10}, {MedicineID: "m2", Quantity: 1}}, items)

	_, err = parseRestock([]string{"m1=0"})
	assert.Error(t, err)
	_, err = parseRestock([]string{"m1=x"})
	assert.Error(t, err)
}

type fakeAPI struct {
	bulk    orders.AdministrationRequest
	restock orders.RestockRequest
	srv     *httptest.Server
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{}
	mux := http.NewServeMux()
	reply := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}
	mux.HandleFunc("GET /medicines", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, []orders.Medicine{{ID: "m1", Name: "Analgin", Price: 1000, Stock: 3}})
	})
	mux.HandleFunc("GET /services", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, []orders.Service{{ID: "s1", Name: "Ukol", Variants: []orders.Variant{{Label: "single", Count: 1, Price: 5000}}}})
	})
	mux.HandleFunc("POST /administrations/bulk", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&f.bulk)
		if f.bulk.Items[0].Quantity > 2 {
			reply(w, http.StatusConflict, orders.ErrorResponse{
				Error: "stock_conflict", Message: "insufficient stock",
				Details: []orders.StockRejectedDetail{{MedicineID: "m1", Required: 3, Available: 2}},
			})
			return
		}
		reply(w, http.StatusCreated, orders.AdministrationResult{OrderID: "o-1", Total: 7000})
	})
	mux.HandleFunc("GET /medicines/for-delivery", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, []orders.Medicine{{ID: "m2", Name: "Paracetamol", Stock: 0}, {ID: "m1", Name: "Analgin", Stock: 3}})
	})
	mux.HandleFunc("POST /medicines/delivery", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&f.restock)
		reply(w, http.StatusOK, map[string]any{"levels": []orders.StockLevel{{MedicineID: "m1", Name: "Analgin", Stock: 13}}})
	})
	mux.HandleFunc("POST /services", func(w http.ResponseWriter, r *http.Request) {
		var in orders.ServiceInput
		_ = json.NewDecoder(r.Body).Decode(&in)
		reply(w, http.StatusCreated, orders.Service{ID: "s-new", Name: in.Name, Variants: in.Variants})
	})
	mux.HandleFunc("DELETE /medicines/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "m1" {
			reply(w, http.StatusNotFound, orders.ErrorResponse{Error: "not_found", Message: "medicine not found"})
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func saveSession(t *testing.T, role session.Role) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.json")
	s := &session.Session{Token: "tok", Role: role, User: session.User{ID: "u1", Name: "Dilnoza"}, ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, s.Save(path))
	return path
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestAdminister_SubmitsAndPrintsReceipt(t *testing.T) {
	api := newFakeAPI(t)
	path := saveSession(t, session.RoleNurse)

	out, _, err := run(t, "administer", "--api", api.srv.URL, "--session", path,
		"--patient", "aliyeva  nodira", "--medicine", "m1=2", "--service", "s1=single")
	require.NoError(t, err)

	assert.Equal(t, "Aliyeva Nodira", api.bulk.PatientName)
	require.Len(t, api.bulk.Items, 2)
	assert.Equal(t, 2, api.bulk.Items[0].Quantity)
	assert.Contains(t, out, "order o-1")
	assert.Contains(t, out, "7000")
}

func TestAdminister_ClampsToStockAndReportsConflict(t *testing.T) {
	api := newFakeAPI(t)
	path := saveSession(t, session.RoleNurse)

	_, stderr, err := run(t, "administer", "--api", api.srv.URL, "--session", path,
		"--patient", "P", "--medicine", "m1=9")
	require.Error(t, err)
	assert.Contains(t, stderr, "limited to 3")
	assert.Contains(t, err.Error(), "insufficient stock")
	assert.Contains(t, err.Error(), "need 3, 2 left")
}

func TestAdminister_InvalidQuantityFailsBeforeSubmit(t *testing.T) {
	api := newFakeAPI(t)
	path := saveSession(t, session.RoleNurse)

	_, _, err := run(t, "administer", "--api", api.srv.URL, "--session", path,
		"--patient", "P", "--medicine", "m1=abc")
	require.Error(t, err)
	assert.Empty(t, api.bulk.SubmissionID)
}

func TestAdminister_RequiresNurse(t *testing.T) {
	api := newFakeAPI(t)
	path := saveSession(t, session.RoleDelivery)

	_, _, err := run(t, "administer", "--api", api.srv.URL, "--session", path,
		"--patient", "P", "--medicine", "m1=1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not allowed")
}

func TestWhoami_NoSession(t *testing.T) {
	_, _, err := run(t, "whoami", "--session", filepath.Join(t.TempDir(), "none.json"))
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestToReceiptLines_AddsVariant(t *testing.T) {
	lines := toReceiptLines([]orders.AdministrationLine{
		{Name: "Ukol", Variant: "course", Quantity: 1, Price: 40000},
		{Name: "Analgin", Quantity: 2, Price: 1000},
	})
	assert.Equal(t, "Ukol (course)", lines[0].Name)
	assert.Equal(t, "Analgin", lines[1].Name)
}

func TestStockAndRestock(t *testing.T) {
	api := newFakeAPI(t)
	path := saveSession(t, session.RoleDelivery)

	out, _, err := run(t, "stock", "--api", api.srv.URL, "--session", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Paracetamol")
	assert.Contains(t, out, string(orders.StockEmpty))

	out, _, err = run(t, "restock", "m1=4", "m1=6", "--api", api.srv.URL, "--session", path)
	require.NoError(t, err)
	assert.Equal(t, []orders.RestockItem{{MedicineID: "m1", Quantity: 10}}, api.restock.Items)
	assert.Contains(t, out, "13")
}

func TestParseVariants(t *testing.T) {
	vs, err := parseVariants([]string{"single:1:5000", "course:10:40000"})
	require.NoError(t, err)
	assert.Equal(t, []orders.Variant{{Label: "single", Count: 1, Price: 5000}, {Label: "course", Count: 10, Price: 40000}}, vs)

	for _, bad := range []string{"single:1", "single:x:1", "single:1:x"} {
		_, err := parseVariants([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestServiceAddAndMedicineDelete(t *testing.T) {
	api := newFakeAPI(t)
	path := saveSession(t, session.RoleNurse)

	out, _, err := run(t, "service", "add", "--name", "Ukol", "--variant", "single:1:5000",
		"--api", api.srv.URL, "--session", path)
	require.NoError(t, err)
	assert.Contains(t, out, "with 1 variants")

	_, _, err = run(t, "medicine", "delete", "m1", "--api", api.srv.URL, "--session", path)
	require.NoError(t, err)
	_, _, err = run(t, "medicine", "delete", "zz", "--api", api.srv.URL, "--session", path)
	assert.ErrorContains(t, err, "404")
}
