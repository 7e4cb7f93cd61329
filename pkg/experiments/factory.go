package experiments

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"edgelab-hq/tessera/pkg/config"
	"edgelab-hq/tessera/pkg/exposure"
	"edgelab-hq/tessera/pkg/exposure/recorder"
	"edgelab-hq/tessera/pkg/exposure/storage"
	"edgelab-hq/tessera/pkg/telemetry/metrics"
)

// Roles whose members count as employees for experiment targeting.
var employeeRoles = []string{"employee", "contractor"}

// Extractor map keys recognized by the factory.
const (
	FieldAppName     = "app_name"
	FieldBuildNumber = "build_number"
)

// eventFieldCookieCreated is the event-field key lifted into the
// context's CookieCreatedTimestamp.
const eventFieldCookieCreated = "cookie_created_timestamp"

// Context build outcomes recorded in metrics.
const (
	buildFull    = "full"
	buildMinimal = "minimal"
	buildFailed  = "failed"
)

// RequestFieldExtractor resolves client application metadata from an
// identity source. Hosts whose transport carries app name and build
// number (mobile headers, user agent) inject one; the factory reads the
// FieldAppName and FieldBuildNumber keys.
type RequestFieldExtractor func(src IdentitySource) (map[string]string, error)

// FactoryOptions carries the optional wiring for a ClientFactory.
type FactoryOptions struct {
	// Extractor resolves app name and build number per request. Nil
	// leaves those context fields absent.
	Extractor RequestFieldExtractor

	// Logger receives factory and client logs. Default: slog.Default()
	Logger *slog.Logger

	// Metrics receives context-build and decision metrics. Optional.
	Metrics *metrics.Collector
}

// ClientFactory builds a decision client per request. It owns the
// process-wide pieces: the config cache, the exposure sink, and the
// request-field extractor. Construct one at startup, call ClientFor in
// the request path, Close at shutdown.
type ClientFactory struct {
	cache   *ConfigCache
	sink    exposure.Sink
	extract RequestFieldExtractor
	logger  *slog.Logger
	base    *slog.Logger
	metrics *metrics.Collector
}

// NewClientFactory creates a factory over an existing cache and sink.
// The factory takes ownership of both: Close closes them.
func NewClientFactory(cache *ConfigCache, sink exposure.Sink, opts FactoryOptions) *ClientFactory {
	base := opts.Logger
	if base == nil {
		base = slog.Default()
	}
	return &ClientFactory{
		cache:   cache,
		sink:    sink,
		extract: opts.Extractor,
		logger:  base.With("component", "experiments.factory"),
		base:    base,
		metrics: opts.Metrics,
	}
}

// FromConfig builds a factory from application configuration: the cache
// from the experiments section, the sink from the exposure section.
// Retention scheduling is not started here; hosts and the CLI drive the
// pruner explicitly.
func FromConfig(cfg *config.Config, opts FactoryOptions) (*ClientFactory, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	sink, err := sinkFromConfig(&cfg.Exposure, logger, opts.Metrics)
	if err != nil {
		return nil, NewClientError("failed to build exposure sink", err)
	}

	cache, err := New(cfg.Experiments.Path, Options{
		Timeout:      cfg.Experiments.Timeout,
		Backoff:      cfg.Experiments.Backoff,
		PollInterval: cfg.Experiments.PollInterval,
		Debounce:     cfg.Experiments.Debounce,
		Logger:       logger,
		Metrics:      opts.Metrics,
	})
	if err != nil {
		sink.Close()
		return nil, NewClientError("failed to build config cache", err)
	}

	return NewClientFactory(cache, sink, opts), nil
}

// sinkFromConfig picks the exposure sink named in configuration.
func sinkFromConfig(cfg *config.ExposureConfig, logger *slog.Logger, collector *metrics.Collector) (exposure.Sink, error) {
	switch cfg.Sink {
	case config.SinkDebug, "":
		return exposure.NewDebugSink(logger), nil

	case config.SinkStore:
		store, err := storeFromConfig(&cfg.Store, logger)
		if err != nil {
			return nil, err
		}
		return recorder.NewStoreSink(store, &recorder.Config{
			Buffer:       cfg.Buffer,
			WriteTimeout: cfg.WriteTimeout,
			Logger:       logger,
			Metrics:      collector,
		}), nil

	default:
		return nil, fmt.Errorf("unknown exposure sink %q", cfg.Sink)
	}
}

// storeFromConfig picks the storage backend named in configuration.
func storeFromConfig(cfg *config.StoreConfig, logger *slog.Logger) (exposure.Storage, error) {
	switch cfg.Backend {
	case config.StoreBackendMemory, "":
		return storage.NewMemory(), nil

	case config.StoreBackendSQLite:
		return storage.NewSQLite(&storage.SQLiteConfig{
			Path:               cfg.SQLite.Path,
			BusyTimeout:        cfg.SQLite.BusyTimeout,
			WAL:                cfg.SQLite.WAL,
			CheckpointInterval: cfg.SQLite.CheckpointInterval,
			Logger:             logger,
		})

	default:
		return nil, fmt.Errorf("unknown exposure store backend %q", cfg.Backend)
	}
}

// ClientFor assembles the evaluation context for one request and returns
// a client bound to it.
//
// The only fatal case is an unresolvable user ID: without it the request
// cannot be identified at all. Any other assembly failure degrades to
// the minimal (user ID only) context with a warning, so targeting rules
// that needed the missing fields simply stop matching instead of the
// request failing.
func (f *ClientFactory) ClientFor(ctx context.Context, src IdentitySource) (*Client, error) {
	// Warm-up read, so rule-set unavailability surfaces in logs at
	// request start rather than only at first decision.
	if _, ok := f.cache.Current(); !ok {
		f.logger.Warn("experiment config not loaded, decisions will return no assignment")
	}

	userID, err := src.UserID()
	if err != nil {
		f.recordBuild(buildFailed)
		return nil, NewContextError("user_id", err)
	}
	if userID == "" {
		f.recordBuild(buildFailed)
		return nil, NewContextError("user_id", errIdentityAbsent)
	}

	evalCtx, err := f.buildContext(src, userID)
	if err != nil {
		f.logger.Warn("evaluation context assembly failed",
			"error", err,
		)
		f.logger.Warn("falling back to minimal evaluation context",
			"user_id", userID,
		)
		f.recordBuild(buildMinimal)
		evalCtx = NewMinimalContext(userID)
	} else {
		f.recordBuild(buildFull)
	}

	return NewClient(evalCtx, f.cache, f.sink, ClientOptions{
		Logger:  f.base,
		Metrics: f.metrics,
		Span:    trace.SpanContextFromContext(ctx),
	}), nil
}

// Cache returns the factory's config cache, for hosts that surface its
// Stats in health endpoints.
func (f *ClientFactory) Cache() *ConfigCache {
	return f.cache
}

// Close stops the config cache and closes the sink, flushing buffered
// exposure events best-effort.
func (f *ClientFactory) Close() error {
	err := f.cache.Close()
	if serr := f.sink.Close(); err == nil {
		err = serr
	}
	return err
}

// buildContext resolves every identity field into a full evaluation
// context. An error from any step aborts the whole build: the caller
// falls back to the minimal context, never a partially filled one.
func (f *ClientFactory) buildContext(src IdentitySource, userID string) (EvaluationContext, error) {
	evalCtx := EvaluationContext{
		UserID:       userID,
		Completeness: ContextFull,
	}

	loid, err := src.LOID()
	if err != nil {
		return EvaluationContext{}, NewContextError("loid", err)
	}
	setString(&evalCtx.LOID, loid)

	country, err := src.CountryCode()
	if err != nil {
		return EvaluationContext{}, NewContextError("country_code", err)
	}
	setString(&evalCtx.CountryCode, country)

	device, err := src.DeviceID()
	if err != nil {
		return EvaluationContext{}, NewContextError("device_id", err)
	}
	setString(&evalCtx.DeviceID, device)

	url, err := src.RequestURL()
	if err != nil {
		return EvaluationContext{}, NewContextError("request_url", err)
	}
	setString(&evalCtx.RequestURL, url)

	token, err := src.AuthenticationToken()
	if err != nil {
		return EvaluationContext{}, NewContextError("authentication_token", err)
	}
	setString(&evalCtx.AuthenticationToken, token)

	loggedIn, err := src.LoggedIn()
	if err != nil {
		return EvaluationContext{}, NewContextError("logged_in", err)
	}
	evalCtx.LoggedIn = &loggedIn

	isEmployee, err := f.deriveEmployee(src, loggedIn)
	if err != nil {
		return EvaluationContext{}, NewContextError("user_is_employee", err)
	}
	evalCtx.UserIsEmployee = &isEmployee

	if f.extract != nil {
		fields, err := f.extract(src)
		if err != nil {
			return EvaluationContext{}, NewContextError("request_fields", err)
		}
		setString(&evalCtx.AppName, fields[FieldAppName])
		setString(&evalCtx.BuildNumber, fields[FieldBuildNumber])
	}

	eventFields, err := src.EventFields()
	if err != nil {
		return EvaluationContext{}, NewContextError("event_fields", err)
	}
	if len(eventFields) > 0 {
		evalCtx.EventFields = eventFields
		if ts, ok := asTimestamp(eventFields[eventFieldCookieCreated]); ok {
			evalCtx.CookieCreatedTimestamp = &ts
		}
	}

	return evalCtx, nil
}

// deriveEmployee reports whether the user holds any privileged role.
// Logged-out requests are never employees and skip the role lookups.
func (f *ClientFactory) deriveEmployee(src IdentitySource, loggedIn bool) (bool, error) {
	if !loggedIn {
		return false, nil
	}
	for _, role := range employeeRoles {
		ok, err := src.HasRole(role)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func (f *ClientFactory) recordBuild(outcome string) {
	if f.metrics != nil {
		f.metrics.RecordContextBuild(outcome)
	}
}

// setString points dst at value unless the value is absent.
func setString(dst **string, value string) {
	if value != "" {
		v := value
		*dst = &v
	}
}

// asTimestamp coerces the numeric types an event-field mapping may carry
// into a Unix-seconds timestamp.
func asTimestamp(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
