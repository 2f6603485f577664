// Package api binds the ledger engines to HTTP with echo.
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"

	"github.com/nilelink/ledger/internal/middleware"
	"github.com/nilelink/ledger/internal/models"
	"github.com/nilelink/ledger/internal/service"
	"github.com/nilelink/ledger/internal/storage"
)

// Handler holds the engines behind the HTTP API.
type Handler struct {
	settlements *service.SettlementService
	dividends   *service.DividendService
	credit      *service.CreditService
	store       storage.Store

	// rdb backs the transport-level Idempotent-Key replay guard. Nil
	// disables the guard; the store's idempotency keys remain the
	// durable protection either way.
	rdb *redis.Client
}

// NewHandler creates the API handler. rdb may be nil.
func NewHandler(settlements *service.SettlementService, dividends *service.DividendService, credit *service.CreditService, store storage.Store, rdb *redis.Client) *Handler {
	return &Handler{
		settlements: settlements,
		dividends:   dividends,
		credit:      credit,
		store:       store,
		rdb:         rdb,
	}
}

// Register wires the routes. capability guards the governance-only routes
// with the JWT capability middleware.
func (h *Handler) Register(e *echo.Echo, capability echo.MiddlewareFunc) {
	v1 := e.Group("/v1")

	v1.POST("/orders", h.CreateOrder)
	v1.POST("/orders/batch", h.BatchCreateAndPay)
	v1.POST("/orders/:id/pay", h.PayOrder)
	v1.GET("/orders/:id", h.GetOrder)

	v1.POST("/investors/deposit", h.Deposit)
	v1.POST("/restaurants/:id/valuation", h.UpdateValuation, capability)
	v1.POST("/restaurants/:id/pool", h.FundPool)
	v1.GET("/investors/:id/accrued/:restaurantId", h.Accrued)
	v1.POST("/investors/claim", h.Claim)

	v1.POST("/credit/lines", h.SetCreditLine, capability)
	v1.POST("/credit/use", h.UseCredit)
	v1.POST("/credit/repay", h.Repay)
	v1.GET("/invoices/:id", h.GetInvoice)

	v1.GET("/stats", h.Stats)
}

// errorJSON maps a domain error to its HTTP status and a stable body.
func errorJSON(c echo.Context, err error) error {
	var domainErr *models.Error
	if !errors.As(err, &domainErr) {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}

	status := http.StatusInternalServerError
	switch domainErr.Kind {
	case models.KindValidation:
		status = http.StatusBadRequest
	case models.KindNotFound:
		status = http.StatusNotFound
	case models.KindConflict:
		status = http.StatusConflict
	case models.KindAuthorization:
		status = http.StatusForbidden
	case models.KindInsufficientFunds:
		status = http.StatusPaymentRequired
	}
	return c.JSON(status, map[string]string{
		"error": domainErr.Message,
		"code":  domainErr.Code,
		"kind":  domainErr.Kind.String(),
	})
}

// freshIdempotentKey checks the Idempotent-Key header against redis. A
// replayed key is rejected; a missing key or disabled guard passes.
func (h *Handler) freshIdempotentKey(c echo.Context) (bool, error) {
	if h.rdb == nil {
		return true, nil
	}
	key := c.Request().Header.Get("Idempotent-Key")
	if key == "" {
		return true, nil
	}
	return h.rdb.SetNX(c.Request().Context(), "idem:"+key, 1, 24*time.Hour).Result()
}

// guardIdempotentKey wraps freshIdempotentKey into a ready-made response,
// returning true when the request should proceed.
func (h *Handler) guardIdempotentKey(c echo.Context) (bool, error) {
	fresh, err := h.freshIdempotentKey(c)
	if err != nil {
		return false, c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "idempotency check unavailable"})
	}
	if !fresh {
		return false, c.JSON(http.StatusConflict, map[string]string{
			"error": "idempotent key already used",
			"code":  "DuplicateRequest",
		})
	}
	return true, nil
}

type createOrderRequest struct {
	ID            string `json:"id"`
	RestaurantID  string `json:"restaurantId"`
	CustomerID    string `json:"customerId"`
	AmountUsd6    int64  `json:"amountUsd6"`
	PaymentMethod string `json:"paymentMethod"`
}

// CreateOrder handles POST /v1/orders.
func (h *Handler) CreateOrder(c echo.Context) error {
	var req createOrderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request payload"})
	}
	if ok, resp := h.guardIdempotentKey(c); !ok {
		return resp
	}

	order := &models.Order{
		ID:            req.ID,
		RestaurantID:  req.RestaurantID,
		CustomerID:    req.CustomerID,
		AmountUsd6:    req.AmountUsd6,
		PaymentMethod: req.PaymentMethod,
	}
	if err := h.settlements.CreateOrder(c.Request().Context(), order); err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusCreated, order)
}

type payOrderRequest struct {
	PaidAmountUsd6 int64 `json:"paidAmountUsd6"`
}

// PayOrder handles POST /v1/orders/:id/pay.
func (h *Handler) PayOrder(c echo.Context) error {
	var req payOrderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request payload"})
	}
	if ok, resp := h.guardIdempotentKey(c); !ok {
		return resp
	}

	rec, err := h.settlements.Pay(c.Request().Context(), c.Param("id"), req.PaidAmountUsd6)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, rec)
}

type batchRequest struct {
	Orders []service.BatchOrder `json:"orders"`
}

// BatchCreateAndPay handles POST /v1/orders/batch. Items are processed
// independently; the response carries a per-item outcome.
func (h *Handler) BatchCreateAndPay(c echo.Context) error {
	var req batchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request payload"})
	}
	if len(req.Orders) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "orders must not be empty"})
	}
	if ok, resp := h.guardIdempotentKey(c); !ok {
		return resp
	}

	results := h.settlements.BatchCreateAndPay(c.Request().Context(), req.Orders)
	return c.JSON(http.StatusOK, map[string]any{"results": results})
}

// GetOrder handles GET /v1/orders/:id.
func (h *Handler) GetOrder(c echo.Context) error {
	order, err := h.settlements.GetOrder(c.Request().Context(), c.Param("id"))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, order)
}

type depositRequest struct {
	InvestorID   string `json:"investorId"`
	RestaurantID string `json:"restaurantId"`
	AmountUsd6   int64  `json:"amountUsd6"`
	OwnershipBps int64  `json:"ownershipBps"`
}

// Deposit handles POST /v1/investors/deposit.
func (h *Handler) Deposit(c echo.Context) error {
	var req depositRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request payload"})
	}

	err := h.dividends.Deposit(c.Request().Context(), req.InvestorID, req.RestaurantID, req.AmountUsd6, req.OwnershipBps)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]string{"status": "deposited"})
}

type valuationRequest struct {
	TotalValuationUsd6 int64 `json:"totalValuationUsd6"`
}

// UpdateValuation handles POST /v1/restaurants/:id/valuation. The route is
// guarded by the capability middleware; the engine checks the valuation
// role itself.
func (h *Handler) UpdateValuation(c echo.Context) error {
	var req valuationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request payload"})
	}

	netProfit, err := h.dividends.UpdateValuation(c.Request().Context(), middleware.CallerFrom(c), c.Param("id"), req.TotalValuationUsd6)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, map[string]int64{"netProfitUsd6": netProfit})
}

type fundPoolRequest struct {
	AmountUsd6 int64 `json:"amountUsd6"`
}

// FundPool handles POST /v1/restaurants/:id/pool.
func (h *Handler) FundPool(c echo.Context) error {
	var req fundPoolRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request payload"})
	}

	if err := h.dividends.FundPool(c.Request().Context(), c.Param("id"), req.AmountUsd6); err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "funded"})
}

// Accrued handles GET /v1/investors/:id/accrued/:restaurantId.
func (h *Handler) Accrued(c echo.Context) error {
	accrued, err := h.dividends.Accrued(c.Request().Context(), c.Param("id"), c.Param("restaurantId"))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, map[string]int64{"accruedUsd6": accrued})
}

type claimRequest struct {
	InvestorID   string `json:"investorId"`
	RestaurantID string `json:"restaurantId"`
}

// Claim handles POST /v1/investors/claim.
func (h *Handler) Claim(c echo.Context) error {
	var req claimRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request payload"})
	}

	claim, err := h.dividends.Claim(c.Request().Context(), req.InvestorID, req.RestaurantID)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, claim)
}

type setCreditLineRequest struct {
	RestaurantID string `json:"restaurantId"`
	SupplierID   string `json:"supplierId"`
	LimitUsd6    int64  `json:"limitUsd6"`
	TermsHash    string `json:"termsHash"`
}

// SetCreditLine handles POST /v1/credit/lines (governance only).
func (h *Handler) SetCreditLine(c echo.Context) error {
	var req setCreditLineRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request payload"})
	}

	err := h.credit.SetCreditLine(c.Request().Context(), middleware.CallerFrom(c), req.RestaurantID, req.SupplierID, req.LimitUsd6, req.TermsHash)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "set"})
}

type useCreditRequest struct {
	RestaurantID string `json:"restaurantId"`
	SupplierID   string `json:"supplierId"`
	InvoiceID    string `json:"invoiceId"`
	AmountUsd6   int64  `json:"amountUsd6"`
	DueDate      int64  `json:"dueDate"`
	TermsHash    string `json:"termsHash"`
}

// UseCredit handles POST /v1/credit/use.
func (h *Handler) UseCredit(c echo.Context) error {
	var req useCreditRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request payload"})
	}

	invoice, err := h.credit.UseCredit(c.Request().Context(), req.RestaurantID, req.SupplierID, req.InvoiceID, req.AmountUsd6, req.DueDate, req.TermsHash)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusCreated, invoice)
}

type repayRequest struct {
	InvoiceID  string `json:"invoiceId"`
	AmountUsd6 int64  `json:"amountUsd6"`
	Proof      string `json:"proof"`
}

// Repay handles POST /v1/credit/repay.
func (h *Handler) Repay(c echo.Context) error {
	var req repayRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request payload"})
	}

	if err := h.credit.Repay(c.Request().Context(), req.InvoiceID, req.AmountUsd6, req.Proof); err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "paid"})
}

// GetInvoice handles GET /v1/invoices/:id.
func (h *Handler) GetInvoice(c echo.Context) error {
	invoice, err := h.credit.GetInvoice(c.Request().Context(), c.Param("id"))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, invoice)
}

// Stats handles GET /v1/stats.
func (h *Handler) Stats(c echo.Context) error {
	stats, err := h.store.Stats(c.Request().Context())
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}
