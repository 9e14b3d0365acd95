package impl

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"stride/internal/domain/entity"
	domainerrors "stride/internal/domain/errors"
	"stride/internal/domain/service"
	"stride/internal/infra/gateway"
	"stride/internal/usecase"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

const dateLayout = "2006-01-02"

// syncService implements the SyncUsecase interface against the remote
// ingestion endpoints.
type syncService struct {
	client   *gateway.Client
	bus      service.InvalidationBus
	validate *validator.Validate
	logger   *slog.Logger
}

// SyncParams holds dependencies for syncService, injected by Fx.
type SyncParams struct {
	fx.In

	Client *gateway.Client
	Bus    service.InvalidationBus
	Logger *slog.Logger
}

// NewSyncService is the constructor for syncService.
func NewSyncService(params SyncParams) usecase.SyncUsecase {
	return &syncService{
		client:   params.Client,
		bus:      params.Bus,
		validate: validator.New(),
		logger:   params.Logger,
	}
}

// Run triggers a remote sync job and returns the immediate
// acknowledgement. Once the trigger settles, successfully or not, every
// sync-dependent cache key is marked stale.
func (srv *syncService) Run(ctx context.Context, input usecase.RunSyncInput) (*usecase.RunSyncOutput, error) {
	if err := srv.validateRun(input); err != nil {
		return nil, err
	}

	// The stale marking covers both outcomes: a success means new data is
	// coming, a failure may still have mutated remote sync state.
	defer srv.bus.MarkStale(service.SyncDependentKeys()...)

	body := map[string]any{}
	if len(input.Endpoints) != 0 {
		body["endpoints"] = input.Endpoints
	}
	if input.FullBackfill {
		body["full_backfill"] = true
	}
	if input.StartDate != "" {
		body["start_date"] = input.StartDate
	}
	if input.EndDate != "" {
		body["end_date"] = input.EndDate
	}

	var out usecase.RunSyncOutput
	if err := srv.client.Post(ctx, "/ingest/run", body, &out); err != nil {
		srv.logger.Error("Failed to trigger sync", "error", err)

		if gateway.IsStatus(err, http.StatusConflict) {
			return nil, domainerrors.ErrSyncAlreadyRunning.WrapMessage("trigger rejected")
		}

		return nil, errors.Wrap(err, "trigger sync run")
	}

	srv.logger.Info("Sync triggered", "started", out.Started, "endpoints", out.Endpoints)

	return &out, nil
}

// Status fetches the current remote job snapshot.
func (srv *syncService) Status(ctx context.Context) (*entity.SyncStatus, error) {
	var status entity.SyncStatus
	if err := srv.client.Get(ctx, "/ingest/status", nil, &status); err != nil {
		return nil, errors.Wrap(err, "fetch sync status")
	}

	return &status, nil
}

// History reads one page of past sync records.
func (srv *syncService) History(ctx context.Context, params usecase.HistoryParams) (*usecase.HistoryOutput, error) {
	if err := srv.validate.Struct(params); err != nil {
		return nil, domainerrors.ErrValidationFailed.WithDetails(err.Error())
	}

	query := url.Values{}
	if params.Page > 0 {
		query.Set("page", strconv.Itoa(params.Page))
	}
	if params.PerPage > 0 {
		query.Set("per_page", strconv.Itoa(params.PerPage))
	}

	var out usecase.HistoryOutput
	if err := srv.client.Get(ctx, "/ingest/history", query, &out); err != nil {
		return nil, errors.Wrap(err, "fetch sync history")
	}

	return &out, nil
}

// Connection fetches the coarse wearable-provider connection state.
func (srv *syncService) Connection(ctx context.Context) (*entity.ConnectionStatus, error) {
	var status entity.ConnectionStatus
	if err := srv.client.Get(ctx, "/auth/garmin/status", nil, &status); err != nil {
		return nil, errors.Wrap(err, "fetch connection status")
	}

	return &status, nil
}

// validateRun applies the struct rules plus the date-range ordering
// check, so malformed trigger requests fail fast client-side.
func (srv *syncService) validateRun(input usecase.RunSyncInput) error {
	if err := srv.validate.Struct(input); err != nil {
		return domainerrors.ErrValidationFailed.WithDetails(err.Error())
	}

	if input.StartDate != "" && input.EndDate != "" {
		start, _ := time.Parse(dateLayout, input.StartDate)
		end, _ := time.Parse(dateLayout, input.EndDate)
		if start.After(end) {
			return domainerrors.ErrValidationFailed.WithDetails("start_date must not be after end_date")
		}
	}

	return nil
}
