package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"restaurant-platform/internal/entity"
	"restaurant-platform/internal/order"
)

// OrderHandler exposes the staff-facing order operations.
type OrderHandler struct {
	orderService *order.Service
}

func NewOrderHandler(orderService *order.Service) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// CreateOrder creates a new order --> POST /orders
func (h *OrderHandler) CreateOrder(c echo.Context) error {
	o := entity.Order{}
	if err := c.Bind(&o); err != nil {
		return failJSON(c, http.StatusBadRequest, "Invalid request payload")
	}
	idempotentKey := c.Request().Header.Get("Idempotent-Key")

	created, err := h.orderService.CreateOrder(c.Request().Context(), &o, idempotentKey)
	if err != nil {
		return failError(c, err)
	}

	return c.JSON(http.StatusCreated, created)
}

// GetOrder retrieves an order by ID --> GET /orders/:id
func (h *OrderHandler) GetOrder(c echo.Context) error {
	o, err := h.orderService.GetOrder(c.Request().Context(), c.Param("id"))
	if err != nil {
		return failError(c, err)
	}
	return c.JSON(http.StatusOK, o)
}

// TransitionOrder advances order status --> PATCH /orders/:id/status
func (h *OrderHandler) TransitionOrder(c echo.Context) error {
	req := struct {
		Status string `json:"status"`
	}{}
	if err := c.Bind(&req); err != nil {
		return failJSON(c, http.StatusBadRequest, "Invalid request payload")
	}

	status, err := entity.ParseOrderStatus(req.Status)
	if err != nil {
		return failError(c, err)
	}

	o, err := h.orderService.TransitionOrder(c.Request().Context(), c.Param("id"), status)
	if err != nil {
		return failError(c, err)
	}
	return c.JSON(http.StatusOK, o)
}

// CancelOrder soft-cancels an order --> DELETE /orders/:id
func (h *OrderHandler) CancelOrder(c echo.Context) error {
	req := struct {
		Reason string `json:"reason"`
	}{}
	if err := c.Bind(&req); err != nil {
		return failJSON(c, http.StatusBadRequest, "Invalid request payload")
	}

	o, err := h.orderService.CancelOrder(c.Request().Context(), c.Param("id"), req.Reason)
	if err != nil {
		return failError(c, err)
	}
	return c.JSON(http.StatusOK, o)
}

// ApplyDiscount applies a discount --> POST /orders/:id/discount
func (h *OrderHandler) ApplyDiscount(c echo.Context) error {
	d := order.Discount{}
	if err := c.Bind(&d); err != nil {
		return failJSON(c, http.StatusBadRequest, "Invalid request payload")
	}

	o, err := h.orderService.ApplyOrderDiscount(c.Request().Context(), c.Param("id"), d)
	if err != nil {
		return failError(c, err)
	}
	return c.JSON(http.StatusOK, o)
}

// RefundOrder records a refund --> POST /orders/:id/refund
func (h *OrderHandler) RefundOrder(c echo.Context) error {
	req := struct {
		Amount float64 `json:"amount"`
	}{}
	if err := c.Bind(&req); err != nil {
		return failJSON(c, http.StatusBadRequest, "Invalid request payload")
	}

	o, err := h.orderService.RefundOrder(c.Request().Context(), c.Param("id"), decimal.NewFromFloat(req.Amount))
	if err != nil {
		return failError(c, err)
	}
	return c.JSON(http.StatusOK, o)
}
