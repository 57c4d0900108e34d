package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/lyzr/chainquery/common/cache"
	"github.com/lyzr/chainquery/common/config"
	"github.com/lyzr/chainquery/common/federation"
	"github.com/lyzr/chainquery/common/logger"
	"github.com/lyzr/chainquery/common/models"
	"github.com/lyzr/chainquery/common/plan"
	"github.com/lyzr/chainquery/common/store"
	"github.com/lyzr/chainquery/common/telemetry"
	"github.com/lyzr/chainquery/common/validation"
)

const mediaCacheKey = "media"

// QueryService runs the four read queries against the chain store
type QueryService struct {
	store      store.Store
	registry   *federation.Registry
	builder    *federation.Builder
	aggregator *federation.Aggregator
	validator  *validation.QueryValidator
	cache      cache.Cache
	telemetry  *telemetry.Telemetry
	log        *logger.Logger
	timeout    time.Duration
	mediaTTL   time.Duration
}

// QueryServiceOpts contains options for creating a QueryService
type QueryServiceOpts struct {
	Store     store.Store
	Resolver  federation.Resolver // defaults to the configured prefix
	Cache     cache.Cache         // optional, media only
	Telemetry *telemetry.Telemetry
	Logger    *logger.Logger
	Query     config.QueryConfig
	MediaTTL  time.Duration
}

// NewQueryService creates a new query service with options pattern
func NewQueryService(opts *QueryServiceOpts) *QueryService {
	resolver := opts.Resolver
	if resolver == nil {
		resolver = federation.PrefixResolver{Prefix: opts.Query.CollectionPrefix}
	}

	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}

	return &QueryService{
		store:      opts.Store,
		registry:   federation.NewRegistry(opts.Store),
		builder:    federation.NewBuilder(resolver),
		aggregator: federation.NewAggregator(opts.Store, resolver, opts.Query.RootReadConcurrency),
		validator:  validation.NewQueryValidator(opts.Query.DefaultPageSize, opts.Query.MaxPageSize),
		cache:      opts.Cache,
		telemetry:  opts.Telemetry,
		log:        log,
		timeout:    opts.Query.Timeout,
		mediaTTL:   opts.MediaTTL,
	}
}

// Validator exposes the request parameter rules used by this service
func (s *QueryService) Validator() *validation.QueryValidator {
	return s.validator
}

// ListChains returns one page of the chain directory with the invested
// capital of each chain and the page total
func (s *QueryService) ListChains(ctx context.Context, page federation.Page) *Result {
	defer s.telemetry.RecordDuration("list_chains", time.Now())
	log := s.log.WithContext(ctx).WithQuery("list_chains")

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	chains, count, err := s.registry.ListChains(ctx, page)
	if err != nil {
		return s.fail(log, err)
	}

	total, err := s.aggregator.Compute(ctx, chains)
	if err != nil {
		return s.fail(log, err)
	}

	log.Debug("chains listed", "page", page.Number, "size", page.Size, "returned", len(chains), "count", count)

	return ok("Success", map[string]any{
		"chains":          chains,
		"count":           count,
		"totalInvestment": total,
	})
}

// GetMedia returns the singleton media document, through the cache when
// one is configured
func (s *QueryService) GetMedia(ctx context.Context) *Result {
	defer s.telemetry.RecordDuration("get_media", time.Now())
	log := s.log.WithContext(ctx).WithQuery("get_media")

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if media, hit := s.cachedMedia(ctx, log); hit {
		return ok("Media record fetched successfully", map[string]any{"media": media})
	}

	media, err := s.store.FindMedia(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return s.fail(log, federation.NewError(federation.KindNotFound, "Media record not found", err))
	}
	if err != nil {
		return s.fail(log, federation.NewError(federation.KindStore, "failed to read media record", err))
	}

	s.storeMedia(ctx, log, media)

	return ok("Media record fetched successfully", map[string]any{"media": media})
}

// TopNodes returns the largest nodes by totalMembers across every chain
func (s *QueryService) TopNodes(ctx context.Context) *Result {
	defer s.telemetry.RecordDuration("top_nodes", time.Now())
	log := s.log.WithContext(ctx).WithQuery("top_nodes")

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	names, err := s.registry.ListChainNames(ctx)
	if err != nil {
		return s.fail(log, err)
	}
	if len(names) == 0 {
		return s.fail(log, federation.NewError(federation.KindNoChainsFound, "Chain not found", nil))
	}

	p, err := s.builder.Build(names)
	if err != nil {
		return s.fail(log, err)
	}
	federation.ApplyTopN(p)

	rows, err := s.execute(ctx, log, p)
	if err != nil {
		return s.fail(log, err)
	}

	return ok("Top nodes across all chains fetched successfully!", map[string]any{
		"paginatedNodes": rows,
	})
}

// SearchNodes finds nodes across every chain whose user name contains
// searchField (ignoring case) or whose nodeId equals it
func (s *QueryService) SearchNodes(ctx context.Context, searchField string, page federation.Page) *Result {
	defer s.telemetry.RecordDuration("search_nodes", time.Now())
	log := s.log.WithContext(ctx).WithQuery("search_nodes")

	// Rejected before any store call
	term, err := s.validator.SearchTerm(searchField)
	if err != nil {
		return s.fail(log, err)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	names, err := s.registry.ListChainNames(ctx)
	if err != nil {
		return s.fail(log, err)
	}
	if len(names) == 0 {
		return s.fail(log, federation.NewError(federation.KindNoChainsFound, "Chains not found", nil))
	}

	p, err := s.builder.Build(names, federation.WithUserJoin())
	if err != nil {
		return s.fail(log, err)
	}
	federation.ApplySearch(p, term, page)

	rows, err := s.execute(ctx, log, p)
	if err != nil {
		return s.fail(log, err)
	}
	if len(rows) == 0 {
		return s.fail(log, federation.NewError(federation.KindNotFound, "Nodes not found", nil))
	}

	return ok("Nodes fetched successfully", map[string]any{"nodes": rows})
}

func (s *QueryService) execute(ctx context.Context, log *logger.Logger, p *plan.Plan) ([]models.Row, error) {
	log.Debug("executing plan", "plan", p.String())

	rows, err := s.store.Execute(ctx, p)
	if err != nil {
		return nil, federation.NewError(federation.KindStore, "failed to query chain nodes", err)
	}
	return rows, nil
}

func (s *QueryService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// fail classifies err into a Result. Empty results are logged at info,
// caller mistakes at warn, and only internal failures at error.
func (s *QueryService) fail(log *logger.Logger, err error) *Result {
	// A timeout keeps the kind of the step that hit it
	if errors.Is(err, context.DeadlineExceeded) {
		err = federation.NewError(federation.KindOf(err), "query timed out", err)
	}

	kind := federation.KindOf(err)
	message := federation.PublicMessage(err)

	switch kind {
	case federation.KindNoChainsFound, federation.KindNotFound:
		log.Info("no results", "kind", kind, "message", message)
		return notFound(message)

	case federation.KindMissingSearchField:
		log.Warn("rejected request", "kind", kind, "message", message)
		return &Result{Status: StatusBadRequest, Message: message}
	}

	log.Error("query failed", "kind", kind, "error", err)
	return &Result{
		Status:  StatusInternalError,
		Message: internalErrorMessage,
		Error:   &ErrorBody{Kind: kind, Message: message},
	}
}

func (s *QueryService) cachedMedia(ctx context.Context, log *logger.Logger) (models.Media, bool) {
	if s.cache == nil {
		return nil, false
	}

	raw, found, err := s.cache.Get(ctx, mediaCacheKey)
	if err != nil {
		log.Warn("media cache read failed", "error", err)
		return nil, false
	}
	if !found {
		return nil, false
	}

	var media models.Media
	if err := json.Unmarshal(raw, &media); err != nil {
		log.Warn("discarding corrupt media cache entry", "error", err)
		return nil, false
	}
	return media, true
}

func (s *QueryService) storeMedia(ctx context.Context, log *logger.Logger, media models.Media) {
	if s.cache == nil {
		return
	}

	raw, err := json.Marshal(media)
	if err != nil {
		log.Warn("media not cacheable", "error", err)
		return
	}
	if err := s.cache.Set(ctx, mediaCacheKey, raw, s.mediaTTL); err != nil {
		log.Warn("media cache write failed", "error", err)
	}
}
