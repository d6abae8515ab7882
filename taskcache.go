package taskcache

import (
	"fmt"

	"github.com/taskcache/taskcache/cache"
	packer "github.com/taskcache/taskcache/pkg/entry-packer"
	outputset "github.com/taskcache/taskcache/pkg/output-set"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// UpToDateReasonCached is the reason reported to the task state when a task
// is satisfied from the cache instead of being executed.
const UpToDateReasonCached = "CACHED"

// Task is the view of the task model this layer needs.
type Task interface {
	// IsCacheAllowed reports whether the task type and author permit caching
	// at all. When false, the cache is not consulted in any way.
	IsCacheAllowed() bool
	// IsCacheEnabled evaluates the task's runtime caching predicate for this
	// execution.
	IsCacheEnabled() bool
	// Outputs returns the task's declared output.
	Outputs() *outputset.Declaration
}

// KeyCalculator computes the input fingerprint for a task.
// It belongs to the change detection subsystem.
type KeyCalculator interface {
	CalculateCacheKey(task Task) (cache.Key, error)
}

// Result is the outcome of a task execution.
type Result interface {
	// Failure returns the task execution failure, or nil on success.
	Failure() error
}

// Executer runs a task. The caching executer wraps a delegate Executer and
// only invokes it when the task cannot be satisfied from the cache.
type Executer interface {
	Execute(task Task, state TaskState) Result
}

// TaskState is notified when a task is satisfied without execution.
type TaskState interface {
	UpToDate(reason string)
}

type Config struct {
	// Disabled turns the executer into a pass-through. Set when task output
	// caching is switched off for the whole build.
	Disabled bool
	// Storage for packed cache entries.
	Store cache.Store
	// Keyer computes input fingerprints. It is only consulted for tasks that
	// allow and enable caching.
	Keyer KeyCalculator
	// Delegate performs the actual execution on a miss.
	Delegate Executer
	// Logger to use. The global zerolog logger is used if nil.
	Logger *zerolog.Logger
}

// CachingExecuter decides, per task execution, whether the task can be
// replayed from the cache. It holds no per-task state: a single instance
// may execute tasks from any number of worker goroutines concurrently, as
// long as the store is thread-safe.
type CachingExecuter struct {
	disabled bool
	store    cache.Store
	keyer    KeyCalculator
	delegate Executer
	log      zerolog.Logger
}

// New initializes a caching executer around the given delegate.
func New(config Config) *CachingExecuter {
	var logger zerolog.Logger
	if config.Logger == nil {
		logger = zlog.Logger
	} else {
		logger = *config.Logger
	}
	return &CachingExecuter{
		disabled: config.Disabled,
		store:    config.Store,
		keyer:    config.Keyer,
		delegate: config.Delegate,
		log:      logger,
	}
}

// replayed is the result of a task satisfied from the cache.
type replayed struct{}

func (replayed) Failure() error { return nil }

// Execute runs the task through the cache.
//
// Tasks that disallow or disable caching go straight to the delegate with no
// cache interaction. Otherwise the key is computed and the store consulted:
// on a hit the outputs are unpacked and the task marked up to date, the
// delegate is never invoked; on a miss the delegate runs, and its outputs
// are packed and stored only if the execution did not fail.
//
// The returned error is a cache layer failure (key computation, packing,
// unpacking, or storing), distinct from a task execution failure, which is
// reported on the Result. A store read error is not fatal: it is logged and
// treated as a miss, so a damaged cache degrades to normal execution. Write
// side failures are returned, since silently dropping them would hide a
// broken cache forever.
func (c *CachingExecuter) Execute(task Task, state TaskState) (Result, error) {
	if c.disabled || !task.IsCacheAllowed() {
		return c.delegate.Execute(task, state), nil
	}
	if !task.IsCacheEnabled() {
		c.log.Debug().Msg("Caching disabled for this execution")
		return c.delegate.Execute(task, state), nil
	}

	key, err := c.keyer.CalculateCacheKey(task)
	if err != nil {
		return nil, fmt.Errorf("calculating cache key: %w", err)
	}
	log := c.log.With().Str("key", string(key)).Logger()

	entry, hit, err := c.store.Get(key)
	if err != nil {
		log.Warn().Err(err).Msg("Could not read cache entry, treating as miss")
	}
	if hit {
		if err := packer.Unpack(task.Outputs(), entry); err != nil {
			return nil, fmt.Errorf("unpacking cache entry: %w", err)
		}
		state.UpToDate(UpToDateReasonCached)
		log.Debug().Msg("Task outputs restored from cache")
		return replayed{}, nil
	}

	result := c.delegate.Execute(task, state)
	if failure := result.Failure(); failure != nil {
		log.Debug().Err(failure).Msg("Not caching failed execution")
		return result, nil
	}
	blob, err := packer.Pack(task.Outputs())
	if err != nil {
		return result, fmt.Errorf("packing task outputs: %w", err)
	}
	if err := c.store.Put(key, blob); err != nil {
		return result, fmt.Errorf("storing cache entry: %w", err)
	}
	log.Debug().Int("bytes", len(blob)).Msg("Task outputs stored in cache")
	return result, nil
}
