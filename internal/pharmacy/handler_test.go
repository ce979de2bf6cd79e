package pharmacy

import (
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medconnect/medconnect/internal/platform/httpx"
	"github.com/medconnect/medconnect/internal/shared"
	"github.com/medconnect/medconnect/internal/view"
)

func newTestRouter(t *testing.T) (http.Handler, *stubStore) {
	t.Helper()
	engine, err := view.NewEngine()
	require.NoError(t, err)

	store := &stubStore{data: SampleData()}
	svc, _, _ := newTestService(t, store)
	shell := NewShell(ShellConfig{Source: svc, Today: fixedToday})
	handler := NewHandler(nil, shell, svc, engine)

	r := chi.NewRouter()
	handler.MountRoutes(r)
	return r, store
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestDashboardRendersActiveTab(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/pharmacy?tab=purchases&q=global", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, "Pharmacy Inventory Management")
	assert.Contains(t, body, "Total Medicines")
	assert.Contains(t, body, "Purchase History")
	assert.Contains(t, body, "Global Health Supplies")
	assert.Contains(t, body, "$249.50")
	assert.NotContains(t, body, "MediTech Suppliers")
	assert.Contains(t, body, `class="tab active" href="/pharmacy?tab=purchases&q=global"`)
	assert.Contains(t, body, `value="global"`)
}

func TestDashboardDefaultsToMedicines(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/pharmacy", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Medicines Inventory")
	assert.Contains(t, body, `<span class="badge badge-warning">Expiring Soon</span>`)
}

func TestDashboardEmptySearchShowsPlaceholder(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/pharmacy?tab=sales&q=nothing-matches", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<td colspan="5">No sales found</td>`)
}

func TestDashboardUnknownTabRedirectsWithFlash(t *testing.T) {
	router, _ := newTestRouter(t)
	sess := &shared.Session{ID: "test"}

	req := httptest.NewRequest(http.MethodGet, "/pharmacy?tab=patients&q=para", nil)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	rec := serve(router, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/pharmacy?q=para&tab=medicines", rec.Header().Get("Location"))
	flash := sess.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "warning", flash.Kind)
	assert.Contains(t, flash.Message, `"patients"`)

	req = httptest.NewRequest(http.MethodGet, "/pharmacy?tab=medicines&q=para", nil)
	sess.AddFlash(*flash)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	rec = serve(router, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `class="flash flash-warning"`)
	assert.Nil(t, sess.PopFlash())
}

func TestDashboardRejectsLongSearch(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := serve(router, httptest.NewRequest(http.MethodGet, "/pharmacy?q="+strings.Repeat("x", MaxSearchLength+1), nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportCSV(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/pharmacy/suppliers/export.csv?q=medi", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="pharmacy-suppliers.csv"`, rec.Header().Get("Content-Disposition"))

	records, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"ID", "Name", "Contact Number", "Email"}, records[0])
	assert.Equal(t, "MediPharma Distributors", records[1][1])
	assert.Equal(t, "MediTech Suppliers", records[2][1])
}

func TestExportCSVUnknownTab(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := serve(router, httptest.NewRequest(http.MethodGet, "/pharmacy/patients/export.csv", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPICounts(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/api/pharmacy/counts", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"counts":{"medicines":5,"suppliers":4,"purchases":5,"sales":5}}`, rec.Body.String())
}

func TestAPIList(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/api/pharmacy/sales?q=para", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Kind    string `json:"kind"`
		Query   string `json:"query"`
		State   string `json:"state"`
		Records []struct {
			ID           int64   `json:"sale_id"`
			MedicineName *string `json:"medicine_name"`
			TotalAmount  string  `json:"total_amount"`
		} `json:"records"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "sales", resp.Kind)
	assert.Equal(t, "para", resp.Query)
	assert.Equal(t, "populated", resp.State)
	require.Len(t, resp.Records, 2)
	assert.Equal(t, int64(1), resp.Records[0].ID)
	require.NotNil(t, resp.Records[0].MedicineName)
	assert.Equal(t, "Paracetamol", *resp.Records[0].MedicineName)
	assert.Equal(t, "59.9", resp.Records[0].TotalAmount)
}

func TestAPIListEmptyFailure(t *testing.T) {
	router, store := newTestRouter(t)
	store.fail = map[string]error{"suppliers": assert.AnError}

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/api/pharmacy/suppliers", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"kind":"suppliers","query":"","state":"empty","records":[]}`, rec.Body.String())
}

func TestAPIListErrors(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/api/pharmacy/patients", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, httpx.ProblemContentType, rec.Header().Get("Content-Type"))

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/api/pharmacy/sales?q="+strings.Repeat("x", MaxSearchLength+1), nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPIDetail(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/api/pharmacy/medicines/2", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var medicine Medicine
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &medicine))
	assert.Equal(t, "Amoxicillin", medicine.Name)
	assert.Equal(t, "12.5", medicine.Price.String())

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/api/pharmacy/suppliers/3", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"PharmaPlus Inc."`)

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/api/pharmacy/medicines/99", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/api/pharmacy/suppliers/abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/api/pharmacy/suppliers/0", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDashboardURL(t *testing.T) {
	assert.Equal(t, "/pharmacy?tab=sales", DashboardURL(ShellState{ActiveTab: KindSales}))
	assert.Equal(t, "/pharmacy?q=a+b&tab=suppliers", DashboardURL(ShellState{ActiveTab: KindSuppliers, Search: "a b"}))
}
