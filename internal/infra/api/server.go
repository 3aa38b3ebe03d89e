package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"hotspot-billing/internal/domain"
	"hotspot-billing/internal/domain/model"
	"hotspot-billing/internal/infra/logging"
	"hotspot-billing/internal/infra/worker"
	"hotspot-billing/internal/usecase"
)

const (
	maxBodyBytes   = 1 << 20
	webhookTimeout = 60 * time.Second
)

// PlanCatalog is the read side of plans used by the portal.
type PlanCatalog interface {
	ListActive(ctx context.Context) ([]*model.Plan, error)
	Get(ctx context.Context, id string) (*model.Plan, error)
}

// TaskSubmitter queues background work. *worker.Pool satisfies it.
type TaskSubmitter interface {
	Submit(task worker.Task) error
}

// Server exposes the purchase, confirmation, redemption and operator endpoints.
type Server struct {
	activation usecase.ActivationUseCase
	radius     usecase.RadiusUseCase
	authorizer usecase.AuthorizerUseCase
	plans      PlanCatalog
	tasks      TaskSubmitter
	auth       *AuthManager
	proxies    *ProxyTrust
	log        *zerolog.Logger
}

func NewServer(
	activation usecase.ActivationUseCase,
	radius usecase.RadiusUseCase,
	authorizer usecase.AuthorizerUseCase,
	plans PlanCatalog,
	tasks TaskSubmitter,
	auth *AuthManager,
	proxies *ProxyTrust,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "HTTPServer").Logger()
	return &Server{
		activation: activation,
		radius:     radius,
		authorizer: authorizer,
		plans:      plans,
		tasks:      tasks,
		auth:       auth,
		proxies:    proxies,
		log:        &l,
	}
}

// Handler builds the router with the standard middleware chain.
func (s *Server) Handler(requestTimeout time.Duration) http.Handler {
	r := chi.NewRouter()
	s.Register(r)
	return Chain(r, TraceID(s.proxies), RequestLog(s.log), Recover(s.log), Timeout(requestTimeout))
}

// Register attaches every route to r.
func (s *Server) Register(r chi.Router) {
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/plans", s.handleListPlans)
		r.Post("/purchases", s.handlePurchase)
		r.Post("/webhooks/{provider}", s.handleWebhook)
		r.Get("/orders/{reference}/status", s.handleOrderStatus)
		r.Post("/vouchers/redeem", s.handleRedeem)

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.auth.RequireAdmin)
			r.Get("/vouchers/{code}/status", s.handleVoucherStatus)
			r.Get("/vouchers/{code}/usage", s.handleVoucherUsage)
			r.Post("/vouchers/{code}/deactivate", s.handleDeactivate)
			r.Post("/vouchers/{code}/reactivate", s.handleReactivate)
			r.Post("/vouchers/{code}/disconnect", s.handleDisconnect)
			r.Delete("/vouchers/{code}", s.handleDeleteVoucher)
			r.Delete("/bindings/{mac}", s.handleUnbind)
		})
	})
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, body := errorStatus(err)
	l := logging.With(r.Context(), s.log)
	if status >= http.StatusInternalServerError {
		l.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	} else {
		l.Info().Err(err).Str("path", r.URL.Path).Str("code", body.Code).Msg("request rejected")
	}
	writeJSON(w, status, body)
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return domain.ErrInvalidInput
	}
	return nil
}

// ---- Portal ----

type planView struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
	SpeedDownKbps   *int   `json:"speed_down_kbps,omitempty"`
	SpeedUpKbps     *int   `json:"speed_up_kbps,omitempty"`
	DataLimitMB     *int64 `json:"data_limit_mb,omitempty"`
	Price           int64  `json:"price"`
	Currency        string `json:"currency"`
}

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.plans.ListActive(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]planView, 0, len(plans))
	for _, p := range plans {
		out = append(out, planView{
			ID:              p.ID,
			Name:            p.Name,
			DurationMinutes: p.DurationMinutes,
			SpeedDownKbps:   p.SpeedDownKbps,
			SpeedUpKbps:     p.SpeedUpKbps,
			DataLimitMB:     p.DataLimitMB,
			Price:           p.Price,
			Currency:        p.Currency,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type purchaseRequest struct {
	PlanID      string `json:"plan_id"`
	Provider    string `json:"provider"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	MAC         string `json:"mac"`
	IP          string `json:"ip"`
	RedirectURL string `json:"redirect_url"`
}

func (s *Server) handlePurchase(w http.ResponseWriter, r *http.Request) {
	var body purchaseRequest
	if err := decode(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	ip := strings.TrimSpace(body.IP)
	if ip == "" {
		ip = s.proxies.ClientIP(r)
	}
	res, err := s.activation.Purchase(r.Context(), usecase.PurchaseRequest{
		PlanID:      body.PlanID,
		Provider:    body.Provider,
		Customer:    model.Customer{Phone: body.Phone, Email: body.Email, Name: body.Name},
		MACAddress:  body.MAC,
		IPAddress:   ip,
		RedirectURL: body.RedirectURL,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// handleWebhook always acknowledges with the same body so a sender learns nothing about
// authentication or parsing. Accepted notifications are confirmed on the worker pool.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		logging.With(r.Context(), s.log).Warn().Err(err).Str("provider", provider).Msg("webhook body read failed")
	} else if req, result := s.activation.AcceptWebhook(r.Context(), provider, r.Header, body); req != nil {
		s.enqueueConfirm(r.Context(), *req)
	} else {
		logging.With(r.Context(), s.log).Debug().Str("provider", provider).Str("result", result).Msg("webhook dropped")
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) enqueueConfirm(reqCtx context.Context, req usecase.ConfirmRequest) {
	traceID := logging.TraceID(reqCtx)
	err := s.tasks.Submit(func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(logging.WithTraceID(ctx, traceID), webhookTimeout)
		defer cancel()
		_, err := s.activation.Confirm(ctx, req)
		if errors.Is(err, domain.ErrOrderNotFound) {
			return nil
		}
		return err
	})
	if err != nil {
		// left for provider redelivery or the reconciler
		logging.With(reqCtx, s.log).Warn().Err(err).Str("reference", req.Reference).Msg("webhook confirmation not queued")
	}
}

func (s *Server) handleOrderStatus(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "reference")
	res, err := s.activation.Confirm(r.Context(), usecase.ConfirmRequest{
		Reference:    ref,
		ProviderTxID: strings.TrimSpace(r.URL.Query().Get("transaction_id")),
		Channel:      usecase.ChannelPoll,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type redeemRequest struct {
	Code string `json:"code"`
	MAC  string `json:"mac"`
}

type redeemResponse struct {
	*usecase.RedeemResult
	Code string `json:"code,omitempty"`
}

func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	var body redeemRequest
	if err := decode(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	// the gate keys on the connection, never on anything the caller wrote
	res, err := s.activation.Redeem(r.Context(), usecase.RedeemRequest{
		Code:   body.Code,
		Client: model.ClientInfo{IP: s.proxies.ClientIP(r), MAC: body.MAC, UserAgent: r.UserAgent()},
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !res.Valid {
		setRetryAfter(w, res.RetryAfter)
		writeJSON(w, denialStatus(res.Reason), redeemResponse{RedeemResult: res, Code: string(res.Reason)})
		return
	}
	writeJSON(w, http.StatusOK, redeemResponse{RedeemResult: res})
}

// ---- Operator ----

func (s *Server) handleVoucherStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.radius.GetStatus(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleVoucherUsage(w http.ResponseWriter, r *http.Request) {
	st, err := s.radius.GetUsageStats(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if err := s.radius.Deactivate(r.Context(), code); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"username": code, "status": "deactivated"})
}

type reactivateRequest struct {
	PlanID string `json:"plan_id"`
}

// handleReactivate lifts a rejection. With a plan_id the credential also gets a fresh window.
func (s *Server) handleReactivate(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	var body reactivateRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		s.fail(w, r, domain.ErrInvalidInput)
		return
	}
	var params *model.ActivationParams
	if body.PlanID != "" {
		plan, err := s.plans.Get(r.Context(), body.PlanID)
		if errors.Is(err, domain.ErrNotFound) {
			err = domain.ErrPlanNotFound
		}
		if err != nil {
			s.fail(w, r, err)
			return
		}
		p := model.ParamsForPlan(code, plan)
		params = &p
	}
	a, err := s.radius.Reactivate(r.Context(), code, params)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"username": code, "status": "reactivated", "activation": a})
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if err := s.radius.DisconnectSession(r.Context(), code); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"username": code, "status": "disconnect_requested"})
}

func (s *Server) handleDeleteVoucher(w http.ResponseWriter, r *http.Request) {
	if err := s.radius.DeleteVoucher(r.Context(), chi.URLParam(r, "code")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUnbind(w http.ResponseWriter, r *http.Request) {
	mac := chi.URLParam(r, "mac")
	if _, err := model.NormalizeMAC(mac); err != nil {
		s.fail(w, r, domain.ErrInvalidInput)
		return
	}
	out := s.authorizer.Remove(r.Context(), mac)
	status := http.StatusOK
	switch out.Status {
	case model.AuthorizationFailed:
		status = http.StatusBadGateway
	case model.AuthorizationSkipped:
		status = http.StatusConflict
	}
	writeJSON(w, status, out)
}
