package api

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// StaffClaims carries the tenant scope of a staff token.
type StaffClaims struct {
	Name         string `json:"name"`
	RestaurantID string `json:"restaurant_id"`
	Role         string `json:"role"`
	jwt.RegisteredClaims
}

// NewServer wires middleware and routes. Payment verification endpoints
// stay public: the gateway callback carries no staff token and is
// authenticated by its signature instead.
func NewServer(orderHandler *OrderHandler, paymentHandler *PaymentHandler, billingHandler *BillingHandler, jwtSecret string) *echo.Echo {
	e := echo.New()

	limiterConfig := middleware.RateLimiterConfig{
		Skipper: middleware.DefaultSkipper,
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(20),
				Burst:     40,
				ExpiresIn: 3 * time.Minute,
			}),
		IdentifierExtractor: func(context echo.Context) (string, error) {
			return context.RealIP(), nil
		},
		ErrorHandler: func(context echo.Context, err error) error {
			return context.JSON(429, map[string]string{"error": "rate limit exceeded"})
		},
		DenyHandler: func(context echo.Context, identifier string, err error) error {
			return context.JSON(429, map[string]string{"error": "rate limit exceeded"})
		},
	}

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.RateLimiterWithConfig(limiterConfig))
	e.Use(allowAllOrigins)

	e.POST("/payments/verify", paymentHandler.VerifyPayment)
	e.POST("/billing/verify-payment", paymentHandler.VerifySubscriptionPayment)
	e.POST("/billing/evaluate", billingHandler.EvaluateExpiry)

	staff := e.Group("")
	if jwtSecret != "" {
		staff.Use(echojwt.WithConfig(echojwt.Config{
			NewClaimsFunc: func(c echo.Context) jwt.Claims {
				return new(StaffClaims)
			},
			SigningKey: []byte(jwtSecret),
		}))
	}
	staff.POST("/orders", orderHandler.CreateOrder)
	staff.GET("/orders/:id", orderHandler.GetOrder)
	staff.PATCH("/orders/:id/status", orderHandler.TransitionOrder)
	staff.POST("/orders/:id/discount", orderHandler.ApplyDiscount)
	staff.POST("/orders/:id/refund", orderHandler.RefundOrder)
	staff.DELETE("/orders/:id", orderHandler.CancelOrder)
	staff.GET("/billing/:id", billingHandler.GetSubscription)
	staff.GET("/audit", billingHandler.ListAudit)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]interface{}{
			"status":  "ok",
			"service": "restaurant-platform",
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	return e
}

// allowAllOrigins opens the API to all origins and answers preflight
// OPTIONS with an empty 200 body.
func allowAllOrigins(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		h := c.Response().Header()
		h.Set(echo.HeaderAccessControlAllowOrigin, "*")
		h.Set(echo.HeaderAccessControlAllowHeaders, "authorization, content-type, idempotent-key")
		h.Set(echo.HeaderAccessControlAllowMethods, "GET, POST, PATCH, DELETE, OPTIONS")
		if c.Request().Method == http.MethodOptions {
			return c.NoContent(http.StatusOK)
		}
		return next(c)
	}
}
