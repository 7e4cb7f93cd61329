package experiments

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"edgelab-hq/tessera/pkg/decider"
	"edgelab-hq/tessera/pkg/telemetry/metrics"
)

const (
	// DefaultPath is where the artifact fetcher sidecar writes the rule
	// file on a standard host.
	DefaultPath = "/var/local/experiments.json"

	// DefaultBackoff is the base retry delay while the artifact is
	// missing or corrupt and nothing has been loaded yet.
	DefaultBackoff = 10 * time.Millisecond

	// DefaultPollInterval is the period of the mtime/size safety-net poll.
	DefaultPollInterval = 30 * time.Second

	// DefaultDebounce is the quiet period applied to filesystem events
	// before a reload attempt.
	DefaultDebounce = 100 * time.Millisecond

	// maxBackoff caps the exponential retry delay.
	maxBackoff = 5 * time.Second
)

// ParseFunc converts the on-disk artifact into an immutable engine handle.
type ParseFunc func(path string) (*decider.Handle, error)

// Options configures a ConfigCache. The zero value is usable: every field
// has a default.
type Options struct {
	// Timeout bounds how long New blocks waiting for the first successful
	// parse. Zero means return immediately and fill in the background.
	// Default: 0
	Timeout time.Duration

	// Backoff is the base delay between retries while the artifact cannot
	// be loaded and no snapshot exists yet. Retries back off
	// exponentially up to a cap. Default: 10ms
	Backoff time.Duration

	// PollInterval is the period of the mtime/size poll that catches
	// changes the filesystem watcher missed. Default: 30s
	PollInterval time.Duration

	// Debounce is the quiet period applied to filesystem events so a
	// write burst triggers a single parse. Default: 100ms
	Debounce time.Duration

	// Parse converts the artifact into an engine handle. Default:
	// decider.Init with the full capability set.
	Parse ParseFunc

	// Logger receives cache lifecycle and failure logs.
	// Default: slog.Default()
	Logger *slog.Logger

	// Metrics receives reload counters and generation gauges. Optional.
	Metrics *metrics.Collector
}

// snapshot is the unit of publication: a fully parsed handle plus its
// load metadata. Swapped atomically so readers never observe a partial
// parse.
type snapshot struct {
	handle     *decider.Handle
	generation uint64
	loadedAt   time.Time
}

// Stats is a point-in-time view of cache state for operators and tests.
type Stats struct {
	// Generation counts successful loads since construction.
	Generation uint64

	// Experiments is the entry count of the current snapshot, zero if
	// nothing has loaded.
	Experiments int

	// LastAttempt is when the cache last tried to load the artifact.
	LastAttempt time.Time

	// LastRefresh is when the current snapshot was published.
	LastRefresh time.Time

	// LastError is the most recent load failure, nil after a success.
	LastError error
}

// ConfigCache keeps an always-ready view of the experiment rule artifact.
// An external fetcher rewrites the file; the cache notices (fsnotify on
// the parent directory, debounced, with a periodic poll as safety net),
// reparses off the request path, and publishes the new handle atomically.
//
// Readers call Current, which is a single atomic pointer load: it never
// blocks on a refresh and never sees a partially parsed handle. When a
// reload fails the previous snapshot stays published; a stale rule set
// beats no rule set.
type ConfigCache struct {
	path    string
	opts    Options
	parse   ParseFunc
	logger  *slog.Logger
	metrics *metrics.Collector

	current atomic.Pointer[snapshot]

	watcher  *fsnotify.Watcher
	debounce *debouncer
	reloadCh chan struct{}

	stopCh    chan struct{}
	doneCh    chan struct{}
	closeOnce sync.Once

	firstLoad chan struct{}
	firstOnce sync.Once

	// mu guards the stats fields and the poll fingerprint.
	mu          sync.Mutex
	generation  uint64
	lastAttempt time.Time
	lastRefresh time.Time
	lastErr     error
	lastModTime time.Time
	lastSize    int64
}

// New creates a ConfigCache over the artifact at path and starts its
// background refresh loop. An empty path means DefaultPath.
//
// New only fails on setup problems (watcher creation). A missing or
// corrupt artifact is not an error: the cache starts empty, retries in
// the background, and Current reports false until a parse succeeds. With
// Options.Timeout > 0 New blocks up to that long for the first
// successful parse before returning either way.
func New(path string, opts Options) (*ConfigCache, error) {
	if path == "" {
		path = DefaultPath
	}
	if opts.Backoff <= 0 {
		opts.Backoff = DefaultBackoff
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}

	parse := opts.Parse
	if parse == nil {
		parse = func(p string) (*decider.Handle, error) {
			return decider.Init(decider.AllCapabilities, p)
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "experiments.cache")

	c := &ConfigCache{
		path:      path,
		opts:      opts,
		parse:     parse,
		logger:    logger,
		metrics:   opts.Metrics,
		debounce:  newDebouncer(opts.Debounce),
		reloadCh:  make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
		firstLoad: make(chan struct{}),
	}

	// The fetcher replaces the artifact by writing a temp file and
	// renaming it into place, so the watch goes on the parent directory.
	// A missing directory downgrades to poll-only operation.
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, NewCacheError(path, "failed to create filesystem watcher", err)
	}
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		logger.Warn("cannot watch artifact directory, polling only",
			"dir", dir,
			"error", err,
		)
		watcher.Close()
		watcher = nil
	}
	c.watcher = watcher

	// First attempt happens synchronously so a present, valid artifact is
	// visible the moment New returns.
	c.reload()

	go c.run()

	if _, ok := c.Current(); !ok && opts.Timeout > 0 {
		select {
		case <-c.firstLoad:
		case <-time.After(opts.Timeout):
			c.logger.Warn("experiment config not loaded within timeout",
				"path", path,
				"timeout", opts.Timeout,
			)
		}
	}

	return c, nil
}

// Current returns the latest successfully parsed handle. The second
// return is false until the first successful parse. The call is a single
// atomic load and never blocks on a refresh in progress.
func (c *ConfigCache) Current() (*decider.Handle, bool) {
	snap := c.current.Load()
	if snap == nil {
		return nil, false
	}
	return snap.handle, true
}

// Stats returns a point-in-time view of the cache's load history.
func (c *ConfigCache) Stats() Stats {
	c.mu.Lock()
	s := Stats{
		Generation:  c.generation,
		LastAttempt: c.lastAttempt,
		LastRefresh: c.lastRefresh,
		LastError:   c.lastErr,
	}
	c.mu.Unlock()

	if snap := c.current.Load(); snap != nil {
		s.Experiments = snap.handle.Len()
	}
	return s
}

// Close stops the background refresh loop and releases the filesystem
// watcher. The last published snapshot stays readable; Close never
// invalidates handles already handed out.
func (c *ConfigCache) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.stopCh)
		<-c.doneCh
		c.debounce.Stop()
		if c.watcher != nil {
			err = c.watcher.Close()
		}
	})
	return err
}

// run is the single background goroutine: it serializes every reload
// attempt, whatever triggered it (filesystem event, poll tick, or
// startup backoff).
func (c *ConfigCache) run() {
	defer close(c.doneCh)

	poll := time.NewTicker(c.opts.PollInterval)
	defer poll.Stop()

	var events chan fsnotify.Event
	var errs chan error
	if c.watcher != nil {
		events = c.watcher.Events
		errs = c.watcher.Errors
	}

	// Until something has loaded, keep retrying on a backoff schedule.
	backoff := c.opts.Backoff
	var retry <-chan time.Time
	if c.current.Load() == nil {
		retry = time.After(backoff)
	}

	attempt := func() {
		if c.reload() {
			backoff = c.opts.Backoff
			retry = nil
			return
		}
		if c.current.Load() == nil {
			retry = time.After(backoff)
			backoff = nextBackoff(backoff)
		}
	}

	for {
		select {
		case <-c.stopCh:
			return

		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if !c.relevantEvent(event) {
				continue
			}
			c.logger.Debug("artifact event detected",
				"path", event.Name,
				"op", event.Op.String(),
			)
			c.debounce.Trigger(func() {
				select {
				case c.reloadCh <- struct{}{}:
				default:
				}
			})

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			// Keep watching despite watcher errors; the poll covers gaps.
			c.logger.Error("filesystem watcher error", "error", err)

		case <-c.reloadCh:
			attempt()

		case <-retry:
			attempt()

		case <-poll.C:
			if c.pollDue() {
				attempt()
			}
		}
	}
}

// reload performs one load attempt and publishes on success. Returns
// whether a new snapshot was published.
func (c *ConfigCache) reload() bool {
	now := time.Now()
	c.mu.Lock()
	c.lastAttempt = now
	c.mu.Unlock()

	info, err := os.Stat(c.path)
	if err != nil {
		c.recordFailure(NewCacheError(c.path, "artifact unavailable", err))
		return false
	}

	handle, err := c.parse(c.path)
	if err != nil {
		c.recordFailure(NewCacheError(c.path, "artifact parse failed", err))
		return false
	}

	c.mu.Lock()
	c.generation++
	gen := c.generation
	loaded := time.Now()
	c.lastRefresh = loaded
	c.lastErr = nil
	c.lastModTime = info.ModTime()
	c.lastSize = info.Size()
	c.mu.Unlock()

	c.current.Store(&snapshot{
		handle:     handle,
		generation: gen,
		loadedAt:   loaded,
	})
	c.firstOnce.Do(func() { close(c.firstLoad) })

	c.logger.Info("experiment config loaded",
		"path", c.path,
		"generation", gen,
		"experiments", handle.Len(),
	)
	if c.metrics != nil {
		c.metrics.RecordConfigReload("success")
		c.metrics.SetConfigGeneration(gen)
		c.metrics.SetConfigLastSuccess(loaded)
	}
	return true
}

// recordFailure logs a failed attempt. The previous snapshot, if any,
// stays published.
func (c *ConfigCache) recordFailure(err *CacheError) {
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()

	c.logger.Warn("experiment config load failed, keeping previous snapshot",
		"path", c.path,
		"error", err,
	)
	if c.metrics != nil {
		c.metrics.RecordConfigReload("failure")
	}
}

// pollDue reports whether the poll fingerprint (mtime + size) differs
// from the last successful load, or whether nothing has loaded yet while
// the artifact exists.
func (c *ConfigCache) pollDue() bool {
	info, err := os.Stat(c.path)
	if err != nil {
		return false
	}

	if c.current.Load() == nil {
		return true
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return !info.ModTime().Equal(c.lastModTime) || info.Size() != c.lastSize
}

// relevantEvent filters directory events down to ones that touch the
// artifact itself. Temp files the fetcher writes alongside have a
// different base name and are ignored until the rename lands.
func (c *ConfigCache) relevantEvent(event fsnotify.Event) bool {
	if event.Op&fsnotify.Chmod == fsnotify.Chmod {
		return false
	}
	return filepath.Base(event.Name) == filepath.Base(c.path)
}

func nextBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		next = maxBackoff
	}
	return next
}

// debouncer coalesces bursts of filesystem events and fires the callback
// once after a quiet period.
type debouncer struct {
	interval time.Duration
	mu       sync.Mutex
	timer    *time.Timer
	callback func()
	stopCh   chan struct{}
}

func newDebouncer(interval time.Duration) *debouncer {
	return &debouncer{
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Trigger arms (or re-arms) the quiet-period timer with a new callback.
func (d *debouncer) Trigger(callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.callback = callback

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, func() {
		select {
		case <-d.stopCh:
			return
		default:
			d.mu.Lock()
			cb := d.callback
			d.mu.Unlock()
			if cb != nil {
				cb()
			}
		}
	})
}

// Stop cancels any pending callback.
func (d *debouncer) Stop() {
	close(d.stopCh)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.callback = nil
}
