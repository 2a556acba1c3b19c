package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"restaurant-platform/internal/billing"
	"restaurant-platform/internal/entity"
)

// SubscriptionReader is the read surface needed by the billing handler.
type SubscriptionReader interface {
	GetSubscriptionByID(ctx context.Context, id string) (*entity.Subscription, error)
}

// AuditReader lists audit entries for superadmin review.
type AuditReader interface {
	ListRecentAuditEntries(ctx context.Context, limit int) ([]*entity.AuditEntry, error)
}

// BillingHandler exposes subscription status and the expiry sweep hook.
type BillingHandler struct {
	billingService *billing.Service
	subs           SubscriptionReader
	audit          AuditReader
	gracePeriod    time.Duration
}

func NewBillingHandler(billingService *billing.Service, subs SubscriptionReader, audit AuditReader, graceDays int) *BillingHandler {
	return &BillingHandler{
		billingService: billingService,
		subs:           subs,
		audit:          audit,
		gracePeriod:    time.Duration(graceDays) * 24 * time.Hour,
	}
}

// GetSubscription returns a subscription with countdown --> GET /billing/:id
func (h *BillingHandler) GetSubscription(c echo.Context) error {
	sub, err := h.subs.GetSubscriptionByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return failError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"subscription":  sub,
		"daysRemaining": billing.DaysRemaining(sub, time.Now(), h.gracePeriod),
	})
}

// EvaluateExpiry runs the time-driven transitions --> POST /billing/evaluate
// Invoked by an external scheduler.
func (h *BillingHandler) EvaluateExpiry(c echo.Context) error {
	if err := h.billingService.EvaluateExpiry(c.Request().Context(), time.Now()); err != nil {
		return failError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true})
}

// ListAudit returns recent audit entries --> GET /audit
func (h *BillingHandler) ListAudit(c echo.Context) error {
	entries, err := h.audit.ListRecentAuditEntries(c.Request().Context(), 100)
	if err != nil {
		return failError(c, err)
	}
	return c.JSON(http.StatusOK, entries)
}
