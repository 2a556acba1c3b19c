package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"restaurant-platform/internal/apperr"
	"restaurant-platform/internal/entity"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// CredentialStore resolves per-tenant gateway signing secrets.
type CredentialStore interface {
	GetActiveCredential(ctx context.Context, restaurantID string) (*entity.GatewayCredential, error)
}

// PaymentStore persists gateway payment rows.
type PaymentStore interface {
	GetPaymentByGatewayID(ctx context.Context, gatewayPaymentID string) (*entity.Payment, error)
	CreatePayment(ctx context.Context, p *entity.Payment) (*entity.Payment, error)
	MarkPaymentVerified(ctx context.Context, id string, verifiedAt time.Time) error
}

// AuditStore appends audit entries. Writes are best-effort; the verifier
// never lets an audit failure mask the verification outcome.
type AuditStore interface {
	InsertAuditEntry(ctx context.Context, e *entity.AuditEntry) error
}

// OrderPayer marks an order paid once its payment has been verified.
type OrderPayer interface {
	MarkOrderPaid(ctx context.Context, orderID string) (*entity.Order, error)
}

// SubscriptionProcessor extends a tenant subscription after a verified
// payment.
type SubscriptionProcessor interface {
	ProcessVerifiedPayment(ctx context.Context, subscriptionID string, amount decimal.Decimal, gatewayPaymentID string) (*entity.Subscription, error)
}

// VerifyRequest carries a gateway callback. Nothing in it is trusted until
// the signature is recomputed server-side.
type VerifyRequest struct {
	GatewayOrderID   string
	GatewayPaymentID string
	GatewaySignature string
	OrderID          string
	RestaurantID     string
}

// SubscriptionVerifyRequest is the subscription billing variant.
type SubscriptionVerifyRequest struct {
	VerifyRequest
	SubscriptionID string
	Amount         decimal.Decimal
}

// RequestMeta is recorded in the audit trail on verification failures.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// VerifyResult is returned on a successful verification.
type VerifyResult struct {
	PaymentID              string
	SubscriptionExtendedTo time.Time
}

// Verifier authenticates gateway callbacks before any financial state is
// mutated. This is the one place a client cannot forge payment success.
type Verifier struct {
	credentials   CredentialStore
	payments      PaymentStore
	audit         AuditStore
	orders        OrderPayer
	subscriptions SubscriptionProcessor
	rdb           *redis.Client
	defaultSecret string
	gatewayURL    string
}

// NewVerifier creates a new instance of Verifier. rdb may be nil; the
// duplicate-callback fast path is then skipped. gatewayURL may be empty;
// the receipt fetch is then skipped.
func NewVerifier(credentials CredentialStore, payments PaymentStore, audit AuditStore,
	orders OrderPayer, subscriptions SubscriptionProcessor, rdb *redis.Client,
	defaultSecret, gatewayURL string) *Verifier {
	return &Verifier{
		credentials:   credentials,
		payments:      payments,
		audit:         audit,
		orders:        orders,
		subscriptions: subscriptions,
		rdb:           rdb,
		defaultSecret: defaultSecret,
		gatewayURL:    gatewayURL,
	}
}

// Signature recomputes the gateway signature:
// hex(HMAC-SHA256(secret, gateway_order_id + "|" + gateway_payment_id)).
func Signature(secret, gatewayOrderID, gatewayPaymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyOrderPayment authenticates a callback and, on a match, marks the
// payment row verified and the order paid.
func (v *Verifier) VerifyOrderPayment(ctx context.Context, req VerifyRequest, meta RequestMeta) (*VerifyResult, error) {
	if err := v.verifySignature(ctx, req, meta); err != nil {
		return nil, err
	}

	p, err := v.recordVerifiedPayment(ctx, req)
	if err != nil {
		return nil, err
	}

	if _, err := v.orders.MarkOrderPaid(ctx, req.OrderID); err != nil {
		logger.Error().Err(err).Msgf("Error marking order %s paid", req.OrderID)
		return nil, err
	}

	v.writeAudit(ctx, entity.AuditPaymentVerified, req, meta, "")
	v.fetchReceipt(ctx, req.GatewayPaymentID)

	return &VerifyResult{PaymentID: p.ID}, nil
}

// VerifySubscriptionPayment authenticates a callback for a subscription
// invoice and extends the billing period on success.
func (v *Verifier) VerifySubscriptionPayment(ctx context.Context, req SubscriptionVerifyRequest, meta RequestMeta) (*VerifyResult, error) {
	if err := v.verifySignature(ctx, req.VerifyRequest, meta); err != nil {
		return nil, err
	}

	p, err := v.recordVerifiedPayment(ctx, req.VerifyRequest)
	if err != nil {
		return nil, err
	}

	sub, err := v.subscriptions.ProcessVerifiedPayment(ctx, req.SubscriptionID, req.Amount, req.GatewayPaymentID)
	if err != nil {
		logger.Error().Err(err).Msgf("Error extending subscription %s", req.SubscriptionID)
		return nil, err
	}

	v.writeAudit(ctx, entity.AuditPaymentVerified, req.VerifyRequest, meta, "")
	v.fetchReceipt(ctx, req.GatewayPaymentID)

	return &VerifyResult{PaymentID: p.ID, SubscriptionExtendedTo: sub.CurrentPeriodEnd}, nil
}

func (v *Verifier) verifySignature(ctx context.Context, req VerifyRequest, meta RequestMeta) error {
	secret, err := v.resolveSecret(ctx, req.RestaurantID)
	if err != nil {
		return err
	}

	expected := Signature(secret, req.GatewayOrderID, req.GatewayPaymentID)
	if !hmac.Equal([]byte(expected), []byte(req.GatewaySignature)) {
		logger.Warn().Msgf("Signature mismatch for payment %s on order %s from %s",
			req.GatewayPaymentID, req.OrderID, meta.IP)
		v.writeAudit(ctx, entity.AuditPaymentVerificationFailed, req, meta, "signature mismatch")
		return fmt.Errorf("%w: signature mismatch for payment %s", apperr.ErrVerificationFailed, req.GatewayPaymentID)
	}
	return nil
}

// resolveSecret prefers an active per-tenant credential and falls back to
// the platform-wide secret. Which secret was expected is never surfaced.
func (v *Verifier) resolveSecret(ctx context.Context, restaurantID string) (string, error) {
	if restaurantID != "" && v.credentials != nil {
		cred, err := v.credentials.GetActiveCredential(ctx, restaurantID)
		if err == nil && cred.KeySecret != "" {
			return cred.KeySecret, nil
		}
		if err != nil && !errors.Is(err, apperr.ErrCredentialNotFound) {
			return "", err
		}
	}
	if v.defaultSecret == "" {
		return "", fmt.Errorf("%w: no signing secret configured", apperr.ErrConfiguration)
	}
	return v.defaultSecret, nil
}

// recordVerifiedPayment upserts the payment row and flips it to verified.
// A duplicate callback for an already-verified payment short-circuits to
// the existing row, so gateway retries never double-apply.
func (v *Verifier) recordVerifiedPayment(ctx context.Context, req VerifyRequest) (*entity.Payment, error) {
	if v.alreadyProcessed(ctx, req.GatewayPaymentID) {
		if p, err := v.payments.GetPaymentByGatewayID(ctx, req.GatewayPaymentID); err == nil {
			return p, nil
		}
	}

	now := time.Now()
	p, err := v.payments.GetPaymentByGatewayID(ctx, req.GatewayPaymentID)
	if errors.Is(err, apperr.ErrPaymentNotFound) {
		p, err = v.payments.CreatePayment(ctx, &entity.Payment{
			OrderID:          req.OrderID,
			RestaurantID:     req.RestaurantID,
			GatewayOrderID:   req.GatewayOrderID,
			GatewayPaymentID: req.GatewayPaymentID,
			CreatedAt:        now,
		})
	}
	if err != nil {
		logger.Error().Err(err).Msgf("Error loading payment %s", req.GatewayPaymentID)
		return nil, err
	}

	if !p.Verified {
		if err := v.payments.MarkPaymentVerified(ctx, p.ID, now); err != nil {
			logger.Error().Err(err).Msgf("Error marking payment %s verified", p.ID)
			return nil, err
		}
		p.Verified = true
		p.VerifiedAt = &now
	}

	v.markProcessed(ctx, req.GatewayPaymentID)
	return p, nil
}

func (v *Verifier) alreadyProcessed(ctx context.Context, gatewayPaymentID string) bool {
	if v.rdb == nil {
		return false
	}
	key := fmt.Sprintf("payment-callback:%s", gatewayPaymentID)
	val, err := v.rdb.Get(ctx, key).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		logger.Error().Err(err).Msgf("Error checking callback dedup key for payment %s", gatewayPaymentID)
		return false
	}
	return val != ""
}

func (v *Verifier) markProcessed(ctx context.Context, gatewayPaymentID string) {
	if v.rdb == nil {
		return
	}
	key := fmt.Sprintf("payment-callback:%s", gatewayPaymentID)
	if err := v.rdb.Set(ctx, key, "verified", 24*time.Hour).Err(); err != nil {
		logger.Error().Err(err).Msgf("Error setting callback dedup key for payment %s", gatewayPaymentID)
	}
}

// writeAudit is best-effort. A failed audit insert is logged and dropped;
// it must never block the verification response.
func (v *Verifier) writeAudit(ctx context.Context, action string, req VerifyRequest, meta RequestMeta, detail string) {
	if v.audit == nil {
		return
	}
	entry := &entity.AuditEntry{
		Action:       action,
		OrderID:      req.OrderID,
		PaymentID:    req.GatewayPaymentID,
		RestaurantID: req.RestaurantID,
		RequestIP:    meta.IP,
		UserAgent:    meta.UserAgent,
		Detail:       detail,
		CreatedAt:    time.Now(),
	}
	if err := v.audit.InsertAuditEntry(ctx, entry); err != nil {
		logger.Error().Err(err).Msgf("Error writing audit entry %s for payment %s", action, req.GatewayPaymentID)
	}
}

// fetchReceipt pulls payment details from the gateway for receipt
// generation. Strictly best-effort: the payment state is already
// committed, so failures here are logged and ignored.
func (v *Verifier) fetchReceipt(ctx context.Context, gatewayPaymentID string) {
	if v.gatewayURL == "" {
		return
	}
	url := fmt.Sprintf("%s/v1/payments/%s", v.gatewayURL, gatewayPaymentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		logger.Error().Err(err).Msgf("Error building receipt request for payment %s", gatewayPaymentID)
		return
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		logger.Warn().Err(err).Msgf("Receipt fetch failed for payment %s", gatewayPaymentID)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.Warn().Msgf("Receipt fetch for payment %s returned %d", gatewayPaymentID, resp.StatusCode)
		return
	}
	var details map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&details); err != nil {
		logger.Warn().Err(err).Msgf("Error decoding receipt for payment %s", gatewayPaymentID)
		return
	}
	logger.Info().Msgf("Fetched receipt details for payment %s", gatewayPaymentID)
}
