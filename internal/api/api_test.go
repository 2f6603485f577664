package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nilelink/ledger/internal/auth"
	"github.com/nilelink/ledger/internal/events"
	"github.com/nilelink/ledger/internal/middleware"
	"github.com/nilelink/ledger/internal/models"
	"github.com/nilelink/ledger/internal/service"
	"github.com/nilelink/ledger/internal/storage/sqlite"
)

type testServer struct {
	e   *echo.Echo
	mgr *auth.JWTManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	publisher := events.LogPublisher{}
	settlements := service.NewSettlementService(store, publisher, 50, "treasury")
	dividends := service.NewDividendService(store, publisher)
	credit := service.NewCreditService(store, publisher)

	handler := NewHandler(settlements, dividends, credit, store, nil)
	mgr := auth.NewJWTManager("test-secret", time.Hour)

	e := echo.New()
	handler.Register(e, middleware.RequireCapability(mgr))

	return &testServer{e: e, mgr: mgr}
}

func (s *testServer) request(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestCreateAndPayOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.request(t, http.MethodPost, "/v1/orders",
		`{"id":"o1","restaurantId":"r1","customerId":"c1","amountUsd6":100000000,"paymentMethod":"card"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = srv.request(t, http.MethodPost, "/v1/orders/o1/pay", `{"paidAmountUsd6":100000000}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(500000), body["feeUsd6"])
	assert.Equal(t, float64(99500000), body["netUsd6"])

	rec = srv.request(t, http.MethodGet, "/v1/orders/o1", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(models.OrderSettled), decodeBody(t, rec)["status"])
}

func TestErrorStatusMapping(t *testing.T) {
	srv := newTestServer(t)

	// Unknown order: 404.
	rec := srv.request(t, http.MethodGet, "/v1/orders/missing", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, models.CodeOrderNotFound, decodeBody(t, rec)["code"])

	// Invalid amount: 400.
	rec = srv.request(t, http.MethodPost, "/v1/orders",
		`{"id":"o1","restaurantId":"r1","customerId":"c1","amountUsd6":-5,"paymentMethod":"card"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Pay twice: 409.
	rec = srv.request(t, http.MethodPost, "/v1/orders",
		`{"id":"o2","restaurantId":"r1","customerId":"c1","amountUsd6":1000000,"paymentMethod":"card"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = srv.request(t, http.MethodPost, "/v1/orders/o2/pay", `{"paidAmountUsd6":1000000}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = srv.request(t, http.MethodPost, "/v1/orders/o2/pay", `{"paidAmountUsd6":1000000}`, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, models.CodeAlreadyPaid, decodeBody(t, rec)["code"])
}

func TestGovernanceRouteRequiresToken(t *testing.T) {
	srv := newTestServer(t)

	body := `{"restaurantId":"r1","supplierId":"s1","limitUsd6":5000000000,"termsHash":"terms-v1"}`

	rec := srv.request(t, http.MethodPost, "/v1/credit/lines", body, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// A valid token without the governance role passes the middleware but
	// fails the engine's capability check.
	plain, err := srv.mgr.Generate("rando", nil)
	require.NoError(t, err)
	rec = srv.request(t, http.MethodPost, "/v1/credit/lines", body, plain)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	governance, err := srv.mgr.Generate("ops", []string{auth.RoleGovernance})
	require.NoError(t, err)
	rec = srv.request(t, http.MethodPost, "/v1/credit/lines", body, governance)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestValuationRouteCapability(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.request(t, http.MethodPost, "/v1/investors/deposit",
		`{"investorId":"i1","restaurantId":"r1","amountUsd6":1000000000,"ownershipBps":10000}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	token, err := srv.mgr.Generate("analyst", []string{auth.RoleValuation})
	require.NoError(t, err)
	rec = srv.request(t, http.MethodPost, "/v1/restaurants/r1/valuation",
		`{"totalValuationUsd6":1050000000}`, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(50000000), decodeBody(t, rec)["netProfitUsd6"])

	rec = srv.request(t, http.MethodGet, "/v1/investors/i1/accrued/r1", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(50000000), decodeBody(t, rec)["accruedUsd6"])
}

func TestClaimWithoutPoolFundsIs402(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.request(t, http.MethodPost, "/v1/investors/deposit",
		`{"investorId":"i1","restaurantId":"r1","amountUsd6":1000000000,"ownershipBps":10000}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	token, err := srv.mgr.Generate("analyst", []string{auth.RoleValuation})
	require.NoError(t, err)
	rec = srv.request(t, http.MethodPost, "/v1/restaurants/r1/valuation",
		`{"totalValuationUsd6":1050000000}`, token)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.request(t, http.MethodPost, "/v1/investors/claim",
		`{"investorId":"i1","restaurantId":"r1"}`, "")
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Equal(t, models.CodeInsufficientPoolBalance, decodeBody(t, rec)["code"])

	rec = srv.request(t, http.MethodPost, "/v1/restaurants/r1/pool", `{"amountUsd6":50000000}`, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.request(t, http.MethodPost, "/v1/investors/claim",
		`{"investorId":"i1","restaurantId":"r1"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(50000000), decodeBody(t, rec)["amountUsd6"])
}

func TestBatchEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.request(t, http.MethodPost, "/v1/orders/batch", `{"orders":[]}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.request(t, http.MethodPost, "/v1/orders/batch", `{"orders":[
		{"id":"o1","restaurantId":"r1","customerId":"c1","amountUsd6":10000000,"paymentMethod":"card","paidAmountUsd6":10000000},
		{"id":"o2","restaurantId":"r1","customerId":"c2","amountUsd6":20000000,"paymentMethod":"qr","paidAmountUsd6":19000000}
	]}`, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Results []service.BatchResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Results, 2)
	assert.True(t, body.Results[0].Settled)
	assert.False(t, body.Results[1].Settled)
	assert.Equal(t, models.CodeAmountMismatch, body.Results[1].Code)
}

func TestStatsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.request(t, http.MethodPost, "/v1/orders",
		`{"id":"o1","restaurantId":"r1","customerId":"c1","amountUsd6":100000000,"paymentMethod":"card"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = srv.request(t, http.MethodPost, "/v1/orders/o1/pay", `{"paidAmountUsd6":100000000}`, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.request(t, http.MethodGet, "/v1/stats", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(1), body["totalOrders"])
	assert.Equal(t, float64(1), body["settledOrders"])
	assert.Equal(t, float64(100000000), body["settledVolumeUsd6"])
	assert.Equal(t, float64(500000), body["protocolFeesUsd6"])
}
