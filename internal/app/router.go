package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"

	"github.com/nordeim/ledgersg/internal/accounting/periods"
	"github.com/nordeim/ledgersg/internal/accounting/reports"
	"github.com/nordeim/ledgersg/internal/accounting/shared"
	"github.com/nordeim/ledgersg/internal/observability"
	"github.com/nordeim/ledgersg/internal/platform/httpx"
	lockkeys "github.com/nordeim/ledgersg/internal/shared"
	"github.com/nordeim/ledgersg/jobs"
)

// TrialBalanceReader produces trial balances for the ops endpoints.
type TrialBalanceReader interface {
	TrialBalance(ctx context.Context, tenantID uuid.UUID, asOf *time.Time) (reports.TrialBalance, error)
}

// StatusReader loads the cached integrity result.
type StatusReader interface {
	Get(ctx context.Context, key string, dst any) error
}

// IntegrityEnqueuer schedules an integrity run.
type IntegrityEnqueuer interface {
	EnqueueGLIntegrity(ctx context.Context, payload jobs.GLIntegrityPayload) (*asynq.TaskInfo, error)
}

// RouterParams groups dependencies for building the ops router.
type RouterParams struct {
	Logger     *slog.Logger
	Config     *Config
	Metrics    *observability.Metrics
	Health     func(ctx context.Context) error
	Reports    TrialBalanceReader
	Status     StatusReader
	Enqueuer   IntegrityEnqueuer
	JobHandler *jobs.Handler
}

// NewRouter constructs the ops chi.Router.
func NewRouter(params RouterParams) http.Handler {
	if params.Logger == nil {
		params.Logger = slog.Default()
	}
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}
	if params.Config == nil || !params.Config.IsProduction() {
		r.Use(chimw.Logger)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if params.Health != nil {
			if err := params.Health(r.Context()); err != nil {
				params.Logger.Warn("health check failed", slog.Any("error", err))
				httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	h := &opsHandler{params: params}
	r.Route("/tenants/{tenantID}", func(r chi.Router) {
		if params.Reports != nil {
			r.Get("/trial-balance", h.trialBalance)
		}
		if params.Status != nil {
			r.Get("/integrity", h.integrityStatus)
		}
		if params.Enqueuer != nil {
			r.Post("/integrity", h.enqueueIntegrity)
		}
	})

	return r
}

type opsHandler struct {
	params RouterParams
}

type trialBalanceRow struct {
	Code    string          `json:"code"`
	Name    string          `json:"name"`
	Type    string          `json:"type"`
	Active  bool            `json:"active"`
	Debit   decimal.Decimal `json:"debit"`
	Credit  decimal.Decimal `json:"credit"`
	Balance decimal.Decimal `json:"balance"`
}

type trialBalanceResponse struct {
	TenantID    uuid.UUID         `json:"tenant_id"`
	AsOf        *time.Time        `json:"as_of,omitempty"`
	Rows        []trialBalanceRow `json:"rows"`
	TotalDebit  decimal.Decimal   `json:"total_debit"`
	TotalCredit decimal.Decimal   `json:"total_credit"`
	Balanced    bool              `json:"balanced"`
}

func (h *opsHandler) trialBalance(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	asOf, err := asOfParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	tb, err := h.params.Reports.TrialBalance(r.Context(), tenantID, asOf)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	resp := trialBalanceResponse{
		TenantID:    tb.TenantID,
		AsOf:        tb.AsOf,
		Rows:        make([]trialBalanceRow, 0, len(tb.Rows)),
		TotalDebit:  tb.TotalDebit,
		TotalCredit: tb.TotalCredit,
		Balanced:    tb.Balanced(),
	}
	for _, row := range tb.Rows {
		resp.Rows = append(resp.Rows, trialBalanceRow{
			Code:    row.Code,
			Name:    row.Name,
			Type:    row.Type.String(),
			Active:  row.IsActive,
			Debit:   row.Debit,
			Credit:  row.Credit,
			Balance: row.Balance(),
		})
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *opsHandler) integrityStatus(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var result reports.Integrity
	if err := h.params.Status.Get(r.Context(), lockkeys.IntegrityStatusKey(tenantID), &result); err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *opsHandler) enqueueIntegrity(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	asOf, err := asOfParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	info, err := h.params.Enqueuer.EnqueueGLIntegrity(r.Context(), jobs.GLIntegrityPayload{TenantID: &tenantID, AsOf: asOf})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]string{"task_id": info.ID, "queue": info.Queue})
}

func (h *opsHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.params.Logger.Error("ops request failed",
		slog.String("path", r.URL.Path),
		slog.String("request_id", chimw.GetReqID(r.Context())),
		slog.Any("error", err),
	)
	httpx.RespondError(w, err)
}

func tenantParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "tenantID"))
	if err != nil {
		return uuid.Nil, shared.Validationf("tenant id %q is not a uuid", chi.URLParam(r, "tenantID"))
	}
	return id, nil
}

func asOfParam(r *http.Request) (*time.Time, error) {
	raw := r.URL.Query().Get("as_of")
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, shared.Validationf("as_of must be YYYY-MM-DD")
	}
	t = periods.Day(t)
	return &t, nil
}
