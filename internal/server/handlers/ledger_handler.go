package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/cafeledger/internal/domain/models"
	"github.com/mamadbah2/cafeledger/internal/service/ledger"
)

// LedgerHandler exposes ledger registrations and listings over HTTP.
type LedgerHandler struct {
	svc    *ledger.Service
	logger *zap.Logger
}

// NewLedgerHandler constructs the HTTP handler adapter.
func NewLedgerHandler(svc *ledger.Service, logger *zap.Logger) *LedgerHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerHandler{svc: svc, logger: logger}
}

type purchaseRequest struct {
	Supplier     string `json:"supplier"`
	QuantityKg   Amount `json:"quantity_kg"`
	PricePerKg   Amount `json:"price_per_kg"`
	QualityGrade string `json:"quality_grade"`
	RecordedBy   string `json:"recorded_by"`
}

func (r purchaseRequest) input() (ledger.PurchaseInput, error) {
	var p parser
	in := ledger.PurchaseInput{
		Supplier:     r.Supplier,
		QuantityKg:   p.amount(models.FieldQuantityKg, r.QuantityKg),
		PricePerKg:   p.amount(models.FieldPricePerKg, r.PricePerKg),
		QualityGrade: r.QualityGrade,
		RecordedBy:   r.RecordedBy,
	}
	return in, p.err
}

type purchaseWithAdvanceRequest struct {
	purchaseRequest
	AdvanceRefs []string `json:"advance_refs"`
}

type processingRequest struct {
	SourcePurchaseRef string `json:"source_purchase_ref"`
	ProcessType       string `json:"process_type"`
	KgInput           Amount `json:"kg_input"`
	KgOutput          Amount `json:"kg_resultantes"`
}

type expenseRequest struct {
	Category    string `json:"category"`
	Amount      Amount `json:"amount"`
	Description string `json:"description"`
}

type saleRequest struct {
	Client     string `json:"client"`
	QuantityKg Amount `json:"quantity_kg"`
	PricePerKg Amount `json:"price_per_kg"`
	CostBasis  Amount `json:"cost_basis"`
}

type advanceRequest struct {
	Supplier string `json:"supplier"`
	Amount   Amount `json:"amount"`
}

type orderRequest struct {
	Client   string `json:"client"`
	Channel  string `json:"channel"`
	Item     string `json:"item"`
	Quantity Amount `json:"quantity"`
}

type orderStatusRequest struct {
	Status string `json:"status"`
}

// RegisterPurchase handles POST /api/purchases.
func (h *LedgerHandler) RegisterPurchase(c *gin.Context) {
	var req purchaseRequest
	if !h.bind(c, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		h.respond(c, nil, err)
		return
	}
	result, err := h.svc.RegisterPurchase(c.Request.Context(), in)
	h.respond(c, result, err)
}

// RegisterPurchaseWithAdvance handles POST /api/purchases/with-advance.
func (h *LedgerHandler) RegisterPurchaseWithAdvance(c *gin.Context) {
	var req purchaseWithAdvanceRequest
	if !h.bind(c, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		h.respond(c, nil, err)
		return
	}
	result, err := h.svc.RegisterPurchaseWithAdvance(c.Request.Context(), in, req.AdvanceRefs)
	h.respond(c, result, err)
}

// RegisterProcessing handles POST /api/processing.
func (h *LedgerHandler) RegisterProcessing(c *gin.Context) {
	var req processingRequest
	if !h.bind(c, &req) {
		return
	}
	var p parser
	in := ledger.ProcessingInput{
		SourcePurchaseRef: req.SourcePurchaseRef,
		ProcessType:       req.ProcessType,
		KgInput:           p.amount(models.FieldKgInput, req.KgInput),
		KgOutput:          p.amount(models.FieldKgOutput, req.KgOutput),
	}
	if p.err != nil {
		h.respond(c, nil, p.err)
		return
	}
	result, err := h.svc.RegisterProcessing(c.Request.Context(), in)
	h.respond(c, result, err)
}

// RegisterExpense handles POST /api/expenses.
func (h *LedgerHandler) RegisterExpense(c *gin.Context) {
	var req expenseRequest
	if !h.bind(c, &req) {
		return
	}
	var p parser
	in := ledger.ExpenseInput{
		Category:    req.Category,
		Amount:      p.amount(models.FieldAmount, req.Amount),
		Description: req.Description,
	}
	if p.err != nil {
		h.respond(c, nil, p.err)
		return
	}
	expense, err := h.svc.RegisterExpense(c.Request.Context(), in)
	h.respond(c, expense, err)
}

// RegisterSale handles POST /api/sales.
func (h *LedgerHandler) RegisterSale(c *gin.Context) {
	var req saleRequest
	if !h.bind(c, &req) {
		return
	}
	var p parser
	in := ledger.SaleInput{
		Client:     req.Client,
		QuantityKg: p.amount(models.FieldQuantityKg, req.QuantityKg),
		PricePerKg: p.amount(models.FieldPricePerKg, req.PricePerKg),
		CostBasis:  p.amount(models.FieldCostBasis, req.CostBasis),
	}
	if p.err != nil {
		h.respond(c, nil, p.err)
		return
	}
	sale, err := h.svc.RegisterSale(c.Request.Context(), in)
	h.respond(c, sale, err)
}

// RegisterAdvance handles POST /api/advances.
func (h *LedgerHandler) RegisterAdvance(c *gin.Context) {
	var req advanceRequest
	if !h.bind(c, &req) {
		return
	}
	var p parser
	in := ledger.AdvanceInput{Supplier: req.Supplier, Amount: p.amount(models.FieldAmountGiven, req.Amount)}
	if p.err != nil {
		h.respond(c, nil, p.err)
		return
	}
	advance, err := h.svc.RegisterAdvance(c.Request.Context(), in)
	h.respond(c, advance, err)
}

// RegisterOrder handles POST /api/orders.
func (h *LedgerHandler) RegisterOrder(c *gin.Context) {
	var req orderRequest
	if !h.bind(c, &req) {
		return
	}
	var p parser
	in := ledger.OrderInput{
		Client:   req.Client,
		Channel:  req.Channel,
		Item:     req.Item,
		Quantity: p.amount(models.FieldQuantity, req.Quantity),
	}
	if p.err != nil {
		h.respond(c, nil, p.err)
		return
	}
	order, err := h.svc.RegisterOrder(c.Request.Context(), in)
	h.respond(c, order, err)
}

// UpdateOrderStatus handles PATCH /api/orders/:id/status.
func (h *LedgerHandler) UpdateOrderStatus(c *gin.Context) {
	var req orderStatusRequest
	if !h.bind(c, &req) {
		return
	}
	order, err := h.svc.UpdateOrderStatus(c.Request.Context(), c.Param("id"), models.OrderStatus(req.Status))
	h.respond(c, order, err)
}

// AvailablePurchases handles GET /api/purchases/available.
func (h *LedgerHandler) AvailablePurchases(c *gin.Context) {
	purchases, err := h.svc.AvailablePurchases(c.Request.Context())
	h.list(c, purchases, err)
}

// OutstandingAdvances handles GET /api/advances/outstanding?supplier=.
func (h *LedgerHandler) OutstandingAdvances(c *gin.Context) {
	advances, err := h.svc.OutstandingAdvances(c.Request.Context(), c.Query("supplier"))
	h.list(c, advances, err)
}

// OpenOrders handles GET /api/orders/open.
func (h *LedgerHandler) OpenOrders(c *gin.Context) {
	orders, err := h.svc.OpenOrders(c.Request.Context())
	h.list(c, orders, err)
}

// ListCollection handles GET /api/collections/:name.
func (h *LedgerHandler) ListCollection(c *gin.Context) {
	records, err := h.svc.List(c.Request.Context(), c.Param("name"))
	h.list(c, records, err)
}

func (h *LedgerHandler) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.logger.Warn("invalid request body", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusBadRequest, ledger.Outcome{ErrorKind: ledger.KindValidation, Message: "invalid request body"})
		return false
	}
	return true
}

func (h *LedgerHandler) respond(c *gin.Context, record interface{}, err error) {
	outcome := ledger.NewOutcome(record, err)
	status := http.StatusCreated
	if c.Request.Method == http.MethodPatch {
		status = http.StatusOK
	}
	if err != nil {
		status = StatusFor(outcome.ErrorKind)
		if status >= http.StatusInternalServerError {
			h.logger.Error("ledger request failed", zap.String("path", c.FullPath()), zap.Error(err))
		}
	}
	c.JSON(status, outcome)
}

func (h *LedgerHandler) list(c *gin.Context, items interface{}, err error) {
	if err != nil {
		kind := ledger.KindOf(err)
		status := StatusFor(kind)
		if status >= http.StatusInternalServerError {
			h.logger.Error("ledger listing failed", zap.String("path", c.FullPath()), zap.Error(err))
		}
		c.JSON(status, ledger.Outcome{ErrorKind: kind, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// StatusFor maps an error kind onto an HTTP status code.
func StatusFor(kind ledger.ErrorKind) int {
	switch kind {
	case ledger.KindValidation:
		return http.StatusBadRequest
	case ledger.KindNotFound:
		return http.StatusNotFound
	case ledger.KindInsufficientStock:
		return http.StatusConflict
	case ledger.KindStorage:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
