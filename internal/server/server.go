// Package server exposes the credit simulator over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iwvelando/credit-simulator/internal/metrics"
	"github.com/iwvelando/credit-simulator/internal/simulation"
	"github.com/iwvelando/credit-simulator/internal/storage"
	"github.com/iwvelando/credit-simulator/pkg/comparison"
	"github.com/iwvelando/credit-simulator/pkg/constants"
	"github.com/iwvelando/credit-simulator/pkg/credit"
	"github.com/iwvelando/credit-simulator/pkg/currency"
	"github.com/iwvelando/credit-simulator/pkg/loans"
	"github.com/iwvelando/credit-simulator/pkg/mathutil"
	"github.com/iwvelando/credit-simulator/pkg/progress"
)

// Options configures the HTTP handler. Simulator is required.
type Options struct {
	Simulator      *simulation.Simulator
	Sessions       *comparison.Sessions
	Metrics        *metrics.Metrics
	Logger         *zap.Logger
	MaxRequestSize int64
	SessionCookie  string
	Version        string
	// UVAIncomeLimit is the threshold used by /api/uva when the request
	// does not carry one.
	UVAIncomeLimit float64
}

type handler struct {
	simulator      *simulation.Simulator
	sessions       *comparison.Sessions
	metrics        *metrics.Metrics
	logger         *zap.Logger
	maxRequestSize int64
	sessionCookie  string
	version        string
	uvaIncomeLimit float64
}

// NewHandler constructs the HTTP handler that serves the simulation API.
func NewHandler(opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.MaxRequestSize <= 0 {
		opts.MaxRequestSize = constants.DefaultMaxRequestSizeBytes
	}
	if opts.Sessions == nil {
		opts.Sessions = comparison.NewSessions(nil, 0)
	}
	if strings.TrimSpace(opts.SessionCookie) == "" {
		opts.SessionCookie = constants.DefaultSessionCookie
	}
	if opts.UVAIncomeLimit <= 0 {
		opts.UVAIncomeLimit = simulation.DefaultUVAIncomeLimit
	}
	version := strings.TrimSpace(opts.Version)
	if version == "" {
		version = "dev"
	}

	h := &handler{
		simulator:      opts.Simulator,
		sessions:       opts.Sessions,
		metrics:        opts.Metrics,
		logger:         opts.Logger,
		maxRequestSize: opts.MaxRequestSize,
		sessionCookie:  opts.SessionCookie,
		version:        version,
		uvaIncomeLimit: opts.UVAIncomeLimit,
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(h.observe)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		h.writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: http.StatusText(http.StatusMethodNotAllowed)})
	})

	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics.Handler())
	}

	r.Route("/api", func(api chi.Router) {
		api.Use(h.limitBody)

		api.Post("/simulate", h.handleSimulate)
		api.Get("/simulations/{code}", h.handleGetSimulation)
		api.Post("/amortization", h.handleAmortization)
		api.Post("/uva", h.handleUVA)
		api.Post("/convert", h.handleConvert)
		api.Post("/progress", h.handleProgress)
		api.Get("/version", h.handleVersion)

		api.Route("/comparison", func(cr chi.Router) {
			cr.Get("/", h.handleListComparison)
			cr.Post("/", h.handleAddComparison)
			cr.Delete("/", h.handleClearComparison)
			cr.Delete("/{id}", h.handleRemoveComparison)
		})
	})

	return r
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *handler) handleSimulate(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleSimulate"

	var profile credit.FormData
	if !h.decode(w, r, &profile, op) {
		return
	}
	if h.simulator == nil {
		h.respondError(w, http.StatusInternalServerError, "simulator is not configured", op)
		return
	}

	start := time.Now()
	analysis, err := h.simulator.Run(r.Context(), profile)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err.Error(), op)
		return
	}

	h.logger.Info("simulation served",
		zap.String("op", op),
		zap.String("code", analysis.ReferenceCode),
		zap.Int("offers", len(analysis.Offers)),
		zap.Duration("duration", time.Since(start)),
	)
	h.writeJSON(w, http.StatusOK, analysis)
}

func (h *handler) handleGetSimulation(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleGetSimulation"

	if h.simulator == nil {
		h.respondError(w, http.StatusInternalServerError, "simulator is not configured", op)
		return
	}
	code := chi.URLParam(r, "code")
	record, err := h.simulator.Lookup(r.Context(), code)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			h.respondError(w, http.StatusNotFound, fmt.Sprintf("simulation %s not found", code), op)
			return
		}
		h.respondError(w, http.StatusInternalServerError, err.Error(), op)
		return
	}
	h.writeJSON(w, http.StatusOK, record)
}

type amortizationRequest struct {
	Principal float64 `json:"principal"`
	Rate      float64 `json:"rate"` // monthly, as a fraction
	Term      int     `json:"term"`
}

type amortizationResponse struct {
	Installment   float64     `json:"installment"`
	TotalPaid     float64     `json:"totalPaid"`
	TotalInterest float64     `json:"totalInterest"`
	Rows          []loans.Row `json:"rows"`
}

func (h *handler) handleAmortization(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleAmortization"

	var req amortizationRequest
	if !h.decode(w, r, &req, op) {
		return
	}

	if req.Term > constants.MaxScheduleMonths {
		h.respondError(w, http.StatusBadRequest,
			fmt.Sprintf("term %d exceeds the %d month schedule limit", req.Term, constants.MaxScheduleMonths), op)
		return
	}

	rows := loans.Schedule(req.Principal, req.Rate, req.Term)
	paid, interest := loans.Totals(rows)
	if !loans.ScheduleFinite(rows) || !mathutil.IsFinite(paid) {
		h.respondError(w, http.StatusBadRequest, "principal and rate produce amounts too large to represent", op)
		return
	}
	h.writeJSON(w, http.StatusOK, amortizationResponse{
		Installment:   loans.FixedInstallment(req.Principal, req.Rate, req.Term),
		TotalPaid:     paid,
		TotalInterest: interest,
		Rows:          rows,
	})
}

type uvaRequest struct {
	InitialPayment  float64  `json:"initialPayment"`
	AnnualInflation float64  `json:"annualInflation"`
	Term            int      `json:"term"`
	Income          float64  `json:"income"`
	Limit           *float64 `json:"limit,omitempty"`
}

type uvaResponse struct {
	Projection []loans.UVAProjection `json:"projection"`
	Summary    loans.UVASummary      `json:"summary"`
}

func (h *handler) handleUVA(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleUVA"

	var req uvaRequest
	if !h.decode(w, r, &req, op) {
		return
	}
	if req.Term > constants.MaxProjectionMonths {
		h.respondError(w, http.StatusBadRequest,
			fmt.Sprintf("term %d exceeds the %d month projection limit", req.Term, constants.MaxProjectionMonths), op)
		return
	}

	if !loans.ValidInflation(req.AnnualInflation) {
		h.respondError(w, http.StatusBadRequest,
			fmt.Sprintf("annual inflation must be between %.0f%% and %.0f%%",
				constants.MinAnnualInflation, constants.MaxAnnualInflation), op)
		return
	}

	limit := h.uvaIncomeLimit
	if req.Limit != nil {
		limit = *req.Limit
	}
	rows := loans.ProjectUVA(req.InitialPayment, req.AnnualInflation, req.Term, req.Income)
	if !loans.ProjectionFinite(rows) {
		h.respondError(w, http.StatusBadRequest, "projected payments are too large to represent", op)
		return
	}
	h.writeJSON(w, http.StatusOK, uvaResponse{
		Projection: rows,
		Summary:    loans.SummarizeUVA(rows, limit),
	})
}

type convertRequest struct {
	Amount float64  `json:"amount"`
	From   string   `json:"from"`
	To     string   `json:"to"`
	Rate   *float64 `json:"rate,omitempty"`
}

func (h *handler) handleConvert(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleConvert"

	var req convertRequest
	if !h.decode(w, r, &req, op) {
		return
	}

	from, err := currency.ParseCode(req.From)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error(), op)
		return
	}
	to, err := currency.ParseCode(req.To)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error(), op)
		return
	}

	conversion, err := currency.ConvertPayment(req.Amount, from, to, req.Rate)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error(), op)
		return
	}
	h.writeJSON(w, http.StatusOK, conversion)
}

func (h *handler) handleProgress(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleProgress"

	var input progress.Input
	if !h.decode(w, r, &input, op) {
		return
	}
	h.writeJSON(w, http.StatusOK, progress.Derive(input))
}

type comparisonResponse struct {
	Items []comparison.Item `json:"items"`
	Added *bool             `json:"added,omitempty"`
}

func (h *handler) handleListComparison(w http.ResponseWriter, r *http.Request) {
	items := []comparison.Item{}
	if basket, ok := h.existingBasket(r); ok {
		items = basket.Items()
	}
	h.writeJSON(w, http.StatusOK, comparisonResponse{Items: items})
}

func (h *handler) handleAddComparison(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleAddComparison"

	var result credit.Result
	if !h.decode(w, r, &result, op) {
		return
	}
	if strings.TrimSpace(result.ID) == "" {
		h.respondError(w, http.StatusBadRequest, "result id is required", op)
		return
	}

	basket := h.basket(w, r)
	added := basket.Add(result)
	h.writeJSON(w, http.StatusOK, comparisonResponse{Items: basket.Items(), Added: &added})
}

// handleClearComparison forgets the session's basket entirely.
func (h *handler) handleClearComparison(w http.ResponseWriter, r *http.Request) {
	if session, ok := h.session(r); ok {
		h.sessions.Drop(session)
	}
	h.writeJSON(w, http.StatusOK, comparisonResponse{Items: []comparison.Item{}})
}

// handleRemoveComparison removes one result. Removing an absent result
// leaves the basket unchanged.
func (h *handler) handleRemoveComparison(w http.ResponseWriter, r *http.Request) {
	items := []comparison.Item{}
	if basket, ok := h.existingBasket(r); ok {
		basket.Remove(chi.URLParam(r, "id"))
		items = basket.Items()
	}
	h.writeJSON(w, http.StatusOK, comparisonResponse{Items: items})
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

// session returns the request's session id when it carries a well-formed one.
func (h *handler) session(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(h.sessionCookie)
	if err != nil {
		return "", false
	}
	if _, err := uuid.Parse(cookie.Value); err != nil {
		return "", false
	}
	return cookie.Value, true
}

// existingBasket returns the session's basket without creating one.
func (h *handler) existingBasket(r *http.Request) (*comparison.Basket, bool) {
	session, ok := h.session(r)
	if !ok {
		return nil, false
	}
	return h.sessions.Lookup(session)
}

// basket returns the comparison basket of the request's session, issuing a
// new session cookie when the request has none. Only writes call it.
func (h *handler) basket(w http.ResponseWriter, r *http.Request) *comparison.Basket {
	if session, ok := h.session(r); ok {
		return h.sessions.Basket(session)
	}

	session := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     h.sessionCookie,
		Value:    session,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return h.sessions.Basket(session)
}

func (h *handler) decode(w http.ResponseWriter, r *http.Request, dst any, op string) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxBytesErr):
			h.respondError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request exceeds limit of %d bytes", h.maxRequestSize), op)
		case errors.Is(err, io.EOF):
			h.respondError(w, http.StatusBadRequest, "request body is empty", op)
		default:
			h.respondError(w, http.StatusBadRequest, fmt.Sprintf("failed to decode request: %v", err), op)
		}
		return false
	}
	return true
}

func (h *handler) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxRequestSize)
		next.ServeHTTP(w, r)
	})
}

// observe records request metrics labelled by route pattern.
func (h *handler) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		h.metrics.ObserveRequest(route, r.Method, status)
	})
}

func (h *handler) respondError(w http.ResponseWriter, status int, msg string, op string) {
	fields := []zap.Field{
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("error", msg),
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", fields...)
	} else {
		h.logger.Warn("request rejected", fields...)
	}

	h.writeJSON(w, status, errorResponse{Error: msg})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.String("op", "server.writeJSON"), zap.Error(err))
	}
}
