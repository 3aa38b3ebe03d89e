package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"hotspot-billing/internal/domain"
	"hotspot-billing/internal/domain/model"
	"hotspot-billing/internal/domain/ports/adapter"
	"hotspot-billing/internal/domain/ports/repository"
	"hotspot-billing/internal/infra/logging"
	"hotspot-billing/internal/infra/metrics"
)

// Compile-time check
var _ ActivationUseCase = (*activationUC)(nil)

// Confirmation channels.
const (
	ChannelWebhook   = "webhook"
	ChannelPoll      = "poll"
	ChannelReconcile = "reconcile"
)

const maxCodeAttempts = 5

// ActivationUseCase is the payment-to-access pipeline.
type ActivationUseCase interface {
	// Purchase creates a PENDING order and asks the provider to collect the plan price.
	Purchase(ctx context.Context, req PurchaseRequest) (*PurchaseResult, error)
	// Confirm re-verifies a payment with its provider and activates access exactly once.
	// Replays for a PAID order return the stored result without side effects.
	Confirm(ctx context.Context, req ConfirmRequest) (*model.ActivationResult, error)
	// AcceptWebhook authenticates and parses a provider notification. It never fails; the
	// returned result is one of accepted, unknown_provider, unauthenticated, unparsed.
	AcceptWebhook(ctx context.Context, provider string, headers http.Header, body []byte) (*ConfirmRequest, string)
	// Abandon fails an order that is still PENDING. It reports whether this call failed it.
	Abandon(ctx context.Context, o *model.Order, reason string) (bool, error)
	// Redeem validates a voucher code entered on the captive portal and consumes it.
	Redeem(ctx context.Context, req RedeemRequest) (*RedeemResult, error)
}

type PurchaseRequest struct {
	PlanID      string
	Provider    string
	Customer    model.Customer
	MACAddress  string
	IPAddress   string
	RedirectURL string
}

type PurchaseResult struct {
	Reference    string            `json:"reference"`
	Status       model.OrderStatus `json:"status"`
	Provider     string            `json:"provider"`
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	PaymentLink  string            `json:"payment_link,omitempty"`
	ProviderTxID string            `json:"transaction_id,omitempty"`
	Message      string            `json:"message,omitempty"`
}

type ConfirmRequest struct {
	Reference    string
	ProviderTxID string // claimed by the caller; verified before use
	Channel      string
}

type RedeemRequest struct {
	Code   string
	Client model.ClientInfo
}

type RedeemResult struct {
	Valid         bool                        `json:"valid"`
	Reason        model.DenialReason          `json:"reason,omitempty"`
	Message       string                      `json:"message,omitempty"`
	RetryAfter    time.Duration               `json:"-"`
	Username      string                      `json:"username,omitempty"`
	Password      string                      `json:"password,omitempty"`
	ExpiresAt     *time.Time                  `json:"expires_at,omitempty"`
	Authorization *model.AuthorizationOutcome `json:"auto_login,omitempty"`
}

type ActivationOptions struct {
	PublicBaseURL   string
	CodeLength      int
	DefaultCurrency string
}

type activationUC struct {
	orders     repository.OrderRepository
	logs       repository.PaymentLogRepository
	plans      repository.PlanRepository
	vouchers   repository.VoucherRepository
	tm         repository.TransactionManager
	gateways   adapter.GatewayRegistry
	radius     RadiusUseCase
	security   SecurityUseCase
	authorizer AuthorizerUseCase
	events     adapter.EventPublisher
	opts       ActivationOptions
	gate       orderGate
	log        *zerolog.Logger
	now        func() time.Time
}

func NewActivationUseCase(
	orders repository.OrderRepository,
	logs repository.PaymentLogRepository,
	plans repository.PlanRepository,
	vouchers repository.VoucherRepository,
	tm repository.TransactionManager,
	gateways adapter.GatewayRegistry,
	radius RadiusUseCase,
	security SecurityUseCase,
	authorizer AuthorizerUseCase,
	events adapter.EventPublisher,
	opts ActivationOptions,
	logger *zerolog.Logger,
) *activationUC {
	if opts.CodeLength <= 0 {
		opts.CodeLength = DefaultCodeLength
	}
	opts.PublicBaseURL = strings.TrimRight(opts.PublicBaseURL, "/")
	l := logger.With().Str("component", "ActivationPipeline").Logger()
	return &activationUC{
		orders:     orders,
		logs:       logs,
		plans:      plans,
		vouchers:   vouchers,
		tm:         tm,
		gateways:   gateways,
		radius:     radius,
		security:   security,
		authorizer: authorizer,
		events:     events,
		opts:       opts,
		log:        &l,
		now:        time.Now,
	}
}

func (u *activationUC) loadPlan(ctx context.Context, id string) (*model.Plan, error) {
	p, err := u.plans.FindByID(ctx, nil, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrPlanNotFound, id)
	}
	return p, err
}

func (u *activationUC) appendLog(ctx context.Context, tx repository.Tx, o *model.Order, st model.PaymentLogStatus, providerTxID, msg string) error {
	return u.logs.Append(ctx, tx, &model.PaymentLog{
		OrderID:      o.ID,
		Reference:    o.Reference,
		Provider:     o.Provider,
		Status:       st,
		ProviderTxID: providerTxID,
		Amount:       o.Amount,
		Currency:     o.Currency,
		Message:      msg,
	})
}

// bestEffortLog appends a payment-log entry outside any transaction and only logs failures.
func (u *activationUC) bestEffortLog(ctx context.Context, o *model.Order, st model.PaymentLogStatus, providerTxID, msg string) {
	if err := u.appendLog(ctx, nil, o, st, providerTxID, msg); err != nil {
		u.log.Error().Err(err).Str("reference", o.Reference).Str("log_status", string(st)).Msg("failed to append payment log")
	}
}

func (u *activationUC) publish(ctx context.Context, typ string, o *model.Order) {
	if u.events == nil {
		return
	}
	err := u.events.PublishOrderEvent(ctx, adapter.OrderEvent{
		Type:      typ,
		Reference: o.Reference,
		OrderID:   o.ID,
		PlanID:    o.PlanID,
		Provider:  o.Provider,
		Amount:    o.Amount,
		Currency:  o.Currency,
		At:        u.now(),
	})
	if err != nil {
		u.log.Warn().Err(err).Str("reference", o.Reference).Str("event", typ).Msg("order event not published")
	}
}

// ---- Purchase ----

func (u *activationUC) createOrder(ctx context.Context, o *model.Order) error {
	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		code, err := generateVoucherCode(u.opts.CodeLength)
		if err != nil {
			return fmt.Errorf("generate voucher code: %w", err)
		}
		if _, err := u.vouchers.FindByCode(ctx, nil, code); err == nil {
			continue
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		o.VoucherCode = code
		err = u.orders.Create(ctx, nil, o)
		if errors.Is(err, domain.ErrCodeCollision) {
			u.log.Debug().Int("attempt", attempt).Msg("voucher code collision; regenerating")
			continue
		}
		return err
	}
	return fmt.Errorf("%w: exhausted %d attempts", domain.ErrCodeCollision, maxCodeAttempts)
}

func (u *activationUC) Purchase(ctx context.Context, req PurchaseRequest) (*PurchaseResult, error) {
	defer logging.TraceDuration(u.log, "Purchase")()
	if strings.TrimSpace(req.PlanID) == "" || strings.TrimSpace(req.Provider) == "" {
		return nil, fmt.Errorf("%w: plan and provider are required", domain.ErrInvalidInput)
	}
	plan, err := u.loadPlan(ctx, req.PlanID)
	if err != nil {
		return nil, err
	}
	if !plan.Active {
		return nil, fmt.Errorf("%w: %s is not offered", domain.ErrPlanNotFound, plan.ID)
	}
	gw, err := u.gateways.Gateway(req.Provider)
	if err != nil {
		return nil, err
	}

	currency := plan.Currency
	if currency == "" {
		currency = u.opts.DefaultCurrency
	}
	mac := ""
	if req.MACAddress != "" {
		if mac, err = model.NormalizeMAC(req.MACAddress); err != nil {
			u.log.Warn().Str("mac", req.MACAddress).Msg("ignoring malformed hardware address")
			mac = ""
		}
	}

	o := &model.Order{
		Reference:     ulid.Make().String(),
		PlanID:        plan.ID,
		Amount:        plan.Price,
		Currency:      strings.ToUpper(currency),
		Provider:      gw.Code(),
		Status:        model.OrderStatusPending,
		CustomerPhone: req.Customer.Phone,
		CustomerEmail: req.Customer.Email,
		CustomerName:  req.Customer.Name,
		MACAddress:    mac,
		IPAddress:     req.IPAddress,
		RedirectURL:   req.RedirectURL,
	}
	if err := u.createOrder(ctx, o); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	log := u.log.With().Str("reference", o.Reference).Str("provider", o.Provider).Logger()
	u.bestEffortLog(ctx, o, model.PaymentLogInitiated, "", "order created")

	handle, err := gw.CreateCharge(ctx, adapter.ChargeRequest{
		Reference:   o.Reference,
		Amount:      o.Amount,
		Currency:    o.Currency,
		Customer:    req.Customer,
		RedirectURL: u.opts.PublicBaseURL + "/api/v1/orders/" + o.Reference + "/status",
		Description: plan.Name,
		Metadata: map[string]string{
			"plan_id":  plan.ID,
			"order_id": strconv.FormatInt(o.ID, 10),
		},
	})
	if err != nil {
		log.Error().Err(err).Msg("charge creation failed")
		if _, ferr := u.orders.MarkFailedIfPending(ctx, nil, o.ID, ""); ferr != nil {
			log.Error().Err(ferr).Msg("failed to fail order after charge error")
		}
		u.bestEffortLog(ctx, o, model.PaymentLogFailed, "", "charge creation failed")
		metrics.IncPayment("failed")
		if errors.Is(err, domain.ErrInvalidInput) || errors.Is(err, domain.ErrProviderUnavailable) {
			return nil, fmt.Errorf("create charge: %w", err)
		}
		return nil, fmt.Errorf("create charge: %w", domain.ErrProviderUnavailable)
	}

	if handle.ProviderTxID != "" {
		if err := u.orders.SetProviderTxID(ctx, nil, o.ID, handle.ProviderTxID); err != nil {
			return nil, fmt.Errorf("store provider transaction: %w", err)
		}
		o.ProviderTxID = handle.ProviderTxID
	}
	u.bestEffortLog(ctx, o, model.PaymentLogPending, handle.ProviderTxID, handle.Message)
	metrics.IncPayment("pending")
	log.Info().Str("plan_id", plan.ID).Int64("amount", o.Amount).Str("currency", o.Currency).Msg("purchase initiated")

	return &PurchaseResult{
		Reference:    o.Reference,
		Status:       o.Status,
		Provider:     o.Provider,
		Amount:       o.Amount,
		Currency:     o.Currency,
		PaymentLink:  handle.PaymentLink,
		ProviderTxID: handle.ProviderTxID,
		Message:      handle.Message,
	}, nil
}

// ---- Confirm ----

// verify runs the server-to-server lookup. A nil transaction with a nil error means the
// provider cannot be asked yet (no transaction id known and no reference lookup available)
// or has no transaction for the order.
func (u *activationUC) verify(ctx context.Context, gw adapter.PaymentGateway, o *model.Order, claimed string) (*adapter.VerifiedTransaction, error) {
	id := o.ProviderTxID
	if claimed = strings.TrimSpace(claimed); claimed != "" {
		if id != "" && claimed != id {
			u.log.Warn().
				Str("reference", o.Reference).
				Str("expected_tx", id).
				Str("observed_tx", claimed).
				Msg("claimed transaction id does not belong to order")
			return nil, domain.ErrVerificationMismatch
		}
		id = claimed
	}

	start := time.Now()
	var (
		vt  *adapter.VerifiedTransaction
		err error
	)
	switch {
	case id != "":
		vt, err = gw.Verify(ctx, id)
	default:
		rv, ok := gw.(adapter.ReferenceVerifier)
		if !ok {
			return nil, nil
		}
		vt, err = rv.VerifyByReference(ctx, o.Reference)
	}
	metrics.ObserveVerify(gw.Code(), err == nil, time.Since(start))
	return vt, err
}

// matches reports whether a verified success is for exactly this order.
func matches(o *model.Order, vt *adapter.VerifiedTransaction) bool {
	return vt.Reference == o.Reference &&
		strings.EqualFold(vt.Currency, o.Currency) &&
		vt.Amount == o.Amount
}

func (u *activationUC) Confirm(ctx context.Context, req ConfirmRequest) (*model.ActivationResult, error) {
	defer logging.TraceDuration(u.log, "Confirm")()
	channel := req.Channel
	if channel == "" {
		channel = ChannelPoll
	}
	ctx = logging.WithOrderRef(ctx, req.Reference)
	log := logging.With(ctx, u.log).With().Str("channel", channel).Logger()

	o, err := u.orders.FindByReference(ctx, nil, req.Reference)
	if errors.Is(err, domain.ErrNotFound) {
		metrics.IncConfirmation(channel, "not_found")
		return nil, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, req.Reference)
	}
	if err != nil {
		metrics.IncConfirmation(channel, "error")
		return nil, err
	}

	switch o.Status {
	case model.OrderStatusPaid:
		metrics.IncConfirmation(channel, "already_paid")
		return o.Result(), nil
	case model.OrderStatusFailed:
		metrics.IncConfirmation(channel, "failed")
		return o.Result(), nil
	}

	gw, err := u.gateways.Gateway(o.Provider)
	if err != nil {
		metrics.IncConfirmation(channel, "error")
		return nil, err
	}
	vt, err := u.verify(ctx, gw, o, req.ProviderTxID)
	switch {
	case errors.Is(err, domain.ErrVerificationMismatch):
		metrics.IncConfirmation(channel, "mismatch")
		return nil, err
	case err != nil:
		log.Warn().Err(err).Msg("provider verification failed")
		metrics.IncConfirmation(channel, "provider_error")
		if errors.Is(err, domain.ErrProviderUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	case vt == nil:
		metrics.IncConfirmation(channel, "pending")
		return o.Result(), nil
	}

	switch vt.Status {
	case adapter.TxStatusSuccess:
		if !matches(o, vt) {
			log.Warn().
				Str("expected_reference", o.Reference).Str("observed_reference", vt.Reference).
				Str("expected_currency", o.Currency).Str("observed_currency", vt.Currency).
				Int64("expected_amount", o.Amount).Int64("observed_amount", vt.Amount).
				Str("provider_tx", vt.ProviderTxID).
				Msg("verified transaction does not match order")
			metrics.IncConfirmation(channel, "mismatch")
			return nil, domain.ErrVerificationMismatch
		}
		return u.activate(ctx, o, vt, channel)

	case adapter.TxStatusFailed:
		if vt.Reference != "" && vt.Reference != o.Reference {
			log.Warn().Str("expected_reference", o.Reference).Str("observed_reference", vt.Reference).
				Msg("failed transaction reports a different reference")
			metrics.IncConfirmation(channel, "mismatch")
			return nil, domain.ErrVerificationMismatch
		}
		if _, err := u.fail(ctx, o, vt.ProviderTxID, "provider reported "+vt.Raw); err != nil {
			metrics.IncConfirmation(channel, "error")
			return nil, err
		}
		metrics.IncConfirmation(channel, "failed")
		return u.reload(ctx, o), nil

	default:
		metrics.IncConfirmation(channel, "pending")
		return o.Result(), nil
	}
}

// activate performs the PAID transition. The conditional update runs first inside the
// transaction, so only its winner writes RADIUS attributes; a RADIUS failure rolls the
// transition back and leaves the order PENDING. The order gate is held until the
// authorization outcome is stored, so a local loser returns the winner's full payload.
func (u *activationUC) activate(ctx context.Context, o *model.Order, vt *adapter.VerifiedTransaction, channel string) (*model.ActivationResult, error) {
	log := logging.With(ctx, u.log)
	leave, err := u.gate.enter(ctx, o.ID)
	if err != nil {
		metrics.IncConfirmation(channel, "error")
		return nil, fmt.Errorf("activate order: %w", err)
	}
	defer leave()

	plan, err := u.loadPlan(ctx, o.PlanID)
	if err != nil {
		metrics.IncConfirmation(channel, "error")
		return nil, err
	}

	now := u.now()
	start := now.Truncate(time.Second)
	expiresAt := start.Add(plan.Duration())
	params := model.ParamsForPlan(o.VoucherCode, plan)
	params.Start = start

	won := false
	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		ok, err := u.orders.MarkPaidIfPending(ctx, tx, o.ID, vt.ProviderTxID, now, expiresAt)
		if err != nil || !ok {
			return err
		}
		if _, err := u.radius.Activate(ctx, tx, params); err != nil {
			return err
		}
		if err := u.appendLog(ctx, tx, o, model.PaymentLogSuccess, vt.ProviderTxID, "verified via "+channel); err != nil {
			return err
		}
		won = true
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("activation failed; order left pending")
		metrics.IncConfirmation(channel, "error")
		return nil, fmt.Errorf("activate order: %w", err)
	}
	if !won {
		metrics.IncConfirmation(channel, "already_paid")
		return u.reload(ctx, o), nil
	}

	o.Status = model.OrderStatusPaid
	o.ProviderTxID = vt.ProviderTxID
	o.PaidAt = &now
	o.AccessExpiresAt = &expiresAt
	metrics.IncConfirmation(channel, "paid")
	metrics.IncPayment("paid")
	metrics.AddPaymentRevenue(o.Currency, o.Amount)
	log.Info().Str("provider_tx", vt.ProviderTxID).Time("expires_at", expiresAt).Msg("order paid and activated")
	u.publish(ctx, "order.paid", o)

	u.autoAuthorize(context.WithoutCancel(ctx), o, plan)
	return u.reload(ctx, o), nil
}

// autoAuthorize binds the purchasing device. Its outcome is only annotated on the order.
func (u *activationUC) autoAuthorize(ctx context.Context, o *model.Order, plan *model.Plan) {
	log := logging.With(ctx, u.log)
	var out model.AuthorizationOutcome
	if o.MACAddress == "" {
		out = model.AuthorizationOutcome{Status: model.AuthorizationSkipped, Message: "no device address captured"}
	} else {
		id := o.ID
		out = u.authorizer.Authorize(ctx, AuthorizeRequest{
			MACAddress:      o.MACAddress,
			IPAddress:       o.IPAddress,
			DurationMinutes: plan.DurationMinutes,
			Comment:         "order " + o.Reference,
			OrderID:         &id,
		})
	}

	switch out.Status {
	case model.AuthorizationSuccess:
		err := u.security.MarkUsed(ctx, nil, o.VoucherCode, model.OrderSourceOf(o),
			model.ClientInfo{IP: o.IPAddress, MAC: out.MACAddress},
			map[string]any{"channel": "auto_login", "binding_id": out.BindingID})
		if err != nil && !errors.Is(err, domain.ErrAlreadyUsed) {
			log.Error().Err(err).Msg("failed to mark auto-login voucher used")
		}
	case model.AuthorizationFailed:
		log.Warn().Err(domain.ErrAuthorizerDegraded).Str("detail", out.Message).Msg("voucher works, auto-connect unavailable")
	}

	if err := u.orders.UpdateAuthorization(ctx, nil, o.ID, out.Status, out.Message); err != nil {
		log.Error().Err(err).Msg("failed to record authorization outcome")
		return
	}
	o.AuthStatus = out.Status
	o.AuthMessage = out.Message
}

// fail performs the FAILED transition. It reports whether this call won it.
func (u *activationUC) fail(ctx context.Context, o *model.Order, providerTxID, msg string) (bool, error) {
	ok, err := u.orders.MarkFailedIfPending(ctx, nil, o.ID, providerTxID)
	if err != nil {
		return false, fmt.Errorf("fail order: %w", err)
	}
	if !ok {
		return false, nil
	}
	u.bestEffortLog(ctx, o, model.PaymentLogFailed, providerTxID, msg)
	metrics.IncPayment("failed")
	o.Status = model.OrderStatusFailed
	u.log.Info().Str("reference", o.Reference).Str("reason", msg).Msg("order failed")
	u.publish(ctx, "order.failed", o)
	return true, nil
}

// reload returns the stored view of the order, falling back to the local copy.
func (u *activationUC) reload(ctx context.Context, o *model.Order) *model.ActivationResult {
	fresh, err := u.orders.FindByID(ctx, nil, o.ID)
	if err != nil {
		u.log.Warn().Err(err).Str("reference", o.Reference).Msg("reload failed; returning local state")
		return o.Result()
	}
	return fresh.Result()
}

func (u *activationUC) Abandon(ctx context.Context, o *model.Order, reason string) (bool, error) {
	if o == nil || o.Status != model.OrderStatusPending {
		return false, nil
	}
	if reason == "" {
		reason = "abandoned"
	}
	return u.fail(ctx, o, "", reason)
}

// ---- Webhooks ----

func (u *activationUC) AcceptWebhook(ctx context.Context, provider string, headers http.Header, body []byte) (*ConfirmRequest, string) {
	result := func(r string) string {
		metrics.IncWebhook(provider, r)
		return r
	}
	gw, err := u.gateways.Gateway(provider)
	if err != nil {
		u.log.Warn().Str("provider", provider).Msg("webhook for unknown provider")
		return nil, result("unknown_provider")
	}
	if !gw.AuthenticateWebhook(headers) {
		u.log.Warn().Str("provider", gw.Code()).Msg("webhook failed authentication")
		return nil, result("unauthenticated")
	}
	ev := gw.ParseWebhook(body, headers)
	if ev == nil || ev.Reference == "" {
		u.log.Info().Str("provider", gw.Code()).Msg("webhook payload not recognized")
		return nil, result("unparsed")
	}
	u.log.Debug().Str("reference", ev.Reference).Str("claimed_status", ev.ClaimedStatus).Msg("webhook accepted")
	return &ConfirmRequest{Reference: ev.Reference, ProviderTxID: ev.ProviderTxID, Channel: ChannelWebhook}, result("accepted")
}

// ---- Redeem ----

func denied(v *model.ValidationResult) *RedeemResult {
	return &RedeemResult{Reason: v.Reason, Message: v.Message, RetryAfter: v.RetryAfter}
}

func (u *activationUC) Redeem(ctx context.Context, req RedeemRequest) (*RedeemResult, error) {
	defer logging.TraceDuration(u.log, "Redeem")()
	code := strings.TrimSpace(req.Code)
	v, err := u.security.CheckAndValidate(ctx, code, req.Client)
	if err != nil {
		return nil, err
	}
	if !v.Valid {
		return denied(v), nil
	}

	src := *v.Source
	meta := map[string]any{"channel": "redeem"}
	var (
		expiresAt *time.Time
		minutes   int
	)
	switch src.Kind {
	case model.SourceVoucher:
		var plan *model.Plan
		if plan, err = u.loadPlan(ctx, v.Voucher.PlanID); err != nil {
			return nil, err
		}
		err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
			if !v.Voucher.Provisioned {
				a, err := u.radius.Activate(ctx, tx, model.ParamsForPlan(code, plan))
				if err != nil {
					return err
				}
				expiresAt = &a.ExpiresAt
				if err := u.vouchers.SetProvisioned(ctx, tx, v.Voucher.ID); err != nil {
					return err
				}
			}
			return u.security.MarkUsed(ctx, tx, code, src, req.Client, meta)
		})
		if err == nil && expiresAt == nil {
			if st, serr := u.radius.GetStatus(ctx, code); serr == nil {
				expiresAt = st.ExpiresAt
			} else {
				u.log.Warn().Err(serr).Msg("could not read provisioned expiration")
			}
		}
		minutes = plan.DurationMinutes
	case model.SourceOrder:
		err = u.security.MarkUsed(ctx, nil, code, src, req.Client, meta)
		expiresAt = v.Order.AccessExpiresAt
	default:
		return nil, fmt.Errorf("%w: unknown voucher source %q", domain.ErrInvalidInput, src.Kind)
	}
	if errors.Is(err, domain.ErrAlreadyUsed) {
		return &RedeemResult{Reason: model.DenialAlreadyUsed, Message: "this voucher has already been used"}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redeem: %w", err)
	}
	if expiresAt != nil {
		minutes = int(math.Ceil(expiresAt.Sub(u.now()).Minutes()))
	}

	res := &RedeemResult{Valid: true, Username: code, Password: code, ExpiresAt: expiresAt}
	if req.Client.MAC != "" && minutes > 0 {
		out := u.authorizer.Authorize(context.WithoutCancel(ctx), AuthorizeRequest{
			MACAddress:      req.Client.MAC,
			IPAddress:       req.Client.IP,
			DurationMinutes: minutes,
			Comment:         "voucher " + logging.Redact(code, false),
		})
		res.Authorization = &out
	}
	return res, nil
}
