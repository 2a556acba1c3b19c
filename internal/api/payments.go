package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"restaurant-platform/internal/payment"
)

// PaymentHandler exposes the gateway callback verification endpoints.
type PaymentHandler struct {
	verifier *payment.Verifier
}

func NewPaymentHandler(verifier *payment.Verifier) *PaymentHandler {
	return &PaymentHandler{verifier: verifier}
}

type verifyPaymentRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature"`
	OrderID           string `json:"order_id"`
	RestaurantID      string `json:"restaurant_id"`
}

type verifySubscriptionRequest struct {
	RazorpayOrderID   string  `json:"razorpay_order_id"`
	RazorpayPaymentID string  `json:"razorpay_payment_id"`
	RazorpaySignature string  `json:"razorpay_signature"`
	BillingID         string  `json:"billingId"`
	RestaurantID      string  `json:"restaurantId"`
	Amount            float64 `json:"amount"`
}

// VerifyPayment authenticates an order-payment callback --> POST /payments/verify
func (h *PaymentHandler) VerifyPayment(c echo.Context) error {
	req := verifyPaymentRequest{}
	if err := c.Bind(&req); err != nil {
		return failJSON(c, http.StatusBadRequest, "Invalid request payload")
	}
	if req.RazorpayOrderID == "" || req.RazorpayPaymentID == "" || req.RazorpaySignature == "" || req.OrderID == "" {
		return failJSON(c, http.StatusBadRequest, "Missing required fields")
	}

	result, err := h.verifier.VerifyOrderPayment(c.Request().Context(), payment.VerifyRequest{
		GatewayOrderID:   req.RazorpayOrderID,
		GatewayPaymentID: req.RazorpayPaymentID,
		GatewaySignature: req.RazorpaySignature,
		OrderID:          req.OrderID,
		RestaurantID:     req.RestaurantID,
	}, requestMeta(c))
	if err != nil {
		return failError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":    true,
		"verified":   true,
		"payment_id": result.PaymentID,
	})
}

// VerifySubscriptionPayment authenticates a subscription invoice callback
// --> POST /billing/verify-payment
func (h *PaymentHandler) VerifySubscriptionPayment(c echo.Context) error {
	req := verifySubscriptionRequest{}
	if err := c.Bind(&req); err != nil {
		return failJSON(c, http.StatusBadRequest, "Invalid request payload")
	}
	if req.RazorpayOrderID == "" || req.RazorpayPaymentID == "" || req.RazorpaySignature == "" || req.BillingID == "" {
		return failJSON(c, http.StatusBadRequest, "Missing required fields")
	}

	result, err := h.verifier.VerifySubscriptionPayment(c.Request().Context(), payment.SubscriptionVerifyRequest{
		VerifyRequest: payment.VerifyRequest{
			GatewayOrderID:   req.RazorpayOrderID,
			GatewayPaymentID: req.RazorpayPaymentID,
			GatewaySignature: req.RazorpaySignature,
			RestaurantID:     req.RestaurantID,
		},
		SubscriptionID: req.BillingID,
		Amount:         decimal.NewFromFloat(req.Amount),
	}, requestMeta(c))
	if err != nil {
		return failError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":                  true,
		"message":                  "Subscription payment verified",
		"payment_id":               result.PaymentID,
		"subscription_extended_to": result.SubscriptionExtendedTo,
	})
}

func requestMeta(c echo.Context) payment.RequestMeta {
	return payment.RequestMeta{
		IP:        c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	}
}
