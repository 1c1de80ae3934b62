package handler

import (
	financeapp "github.com/distribuidora/backend/internal/application/finance"
	"github.com/gin-gonic/gin"
)

// PaymentHandler records payments against orders and purchases
type PaymentHandler struct {
	BaseHandler
	paymentService *financeapp.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService *financeapp.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// Record stores a payment. Exactly one of order_id and purchase_id is set.
// @ID           recordPayment
// @Summary      Record a payment
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        request body financeapp.RecordPaymentRequest true "Payment"
// @Success      201 {object} dto.Response{data=financeapp.PaymentResponse}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Security     BearerAuth
// @Router       /payments [post]
func (h *PaymentHandler) Record(c *gin.Context) {
	var req financeapp.RecordPaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	payment, err := h.paymentService.Record(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, payment)
}

// RecordForOrder stores a customer payment for the :id order
// @ID           recordOrderPayment
// @Summary      Record a customer payment for an order
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        request body financeapp.RecordPaymentRequest true "Payment"
// @Success      201 {object} dto.Response{data=financeapp.PaymentResponse}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Security     BearerAuth
// @Router       /orders/{id}/payments [post]
func (h *PaymentHandler) RecordForOrder(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req financeapp.RecordPaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	payment, err := h.paymentService.RecordOrderPayment(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, payment)
}

// RecordForPurchase stores a supplier payment for the :id purchase
// @ID           recordPurchasePayment
// @Summary      Record a supplier payment for a purchase
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        id path string true "Purchase ID" format(uuid)
// @Param        request body financeapp.RecordPaymentRequest true "Payment"
// @Success      201 {object} dto.Response{data=financeapp.PaymentResponse}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Security     BearerAuth
// @Router       /purchases/{id}/payments [post]
func (h *PaymentHandler) RecordForPurchase(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req financeapp.RecordPaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	payment, err := h.paymentService.RecordPurchasePayment(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, payment)
}

// List returns payments in the caller's row scope
// @ID           listPayments
// @Summary      List payments
// @Tags         payments
// @Produce      json
// @Param        filter query financeapp.PaymentListFilter false "Filters"
// @Param        order_id query string false "Order ID" format(uuid)
// @Param        purchase_id query string false "Purchase ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]financeapp.PaymentResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Security     BearerAuth
// @Router       /payments [get]
func (h *PaymentHandler) List(c *gin.Context) {
	var filter financeapp.PaymentListFilter
	if !h.bindQuery(c, &filter) ||
		!h.queryUUID(c, "order_id", &filter.OrderID) ||
		!h.queryUUID(c, "purchase_id", &filter.PurchaseID) {
		return
	}
	page, err := h.paymentService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	paginated(c, page)
}

// GetByID returns one payment
// @ID           getPaymentById
// @Summary      Get a payment
// @Tags         payments
// @Produce      json
// @Param        id path string true "Payment ID" format(uuid)
// @Success      200 {object} dto.Response{data=financeapp.PaymentResponse}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Security     BearerAuth
// @Router       /payments/{id} [get]
func (h *PaymentHandler) GetByID(c *gin.Context) {
	byID(&h.BaseHandler, c, h.paymentService.GetByID)
}

// OrderBalance returns total, paid and outstanding amounts of an order
// @ID           getOrderBalance
// @Summary      Order balance
// @Tags         payments
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} dto.Response{data=financeapp.BalanceResponse}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Security     BearerAuth
// @Router       /orders/{id}/balance [get]
func (h *PaymentHandler) OrderBalance(c *gin.Context) {
	byID(&h.BaseHandler, c, h.paymentService.OrderBalance)
}

// PurchaseBalance returns total, paid and outstanding amounts of a purchase
// @ID           getPurchaseBalance
// @Summary      Purchase balance
// @Tags         payments
// @Produce      json
// @Param        id path string true "Purchase ID" format(uuid)
// @Success      200 {object} dto.Response{data=financeapp.BalanceResponse}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Security     BearerAuth
// @Router       /purchases/{id}/balance [get]
func (h *PaymentHandler) PurchaseBalance(c *gin.Context) {
	byID(&h.BaseHandler, c, h.paymentService.PurchaseBalance)
}
