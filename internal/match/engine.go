package match

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/luckykangaroo/backend/internal/domain"
	"github.com/luckykangaroo/backend/internal/repository"
)

// ListingSource is the read contract the engine requires from the listing
// repository. All calls honour the deadline carried by the context.
type ListingSource interface {
	GetListing(ctx context.Context, id string) (domain.Listing, error)
	BulkGetListings(ctx context.Context, ids []string) ([]domain.Listing, error)
	FindCandidates(ctx context.Context, q repository.CandidateQuery) ([]domain.Listing, error)
}

// pairHardCap bounds pair result counts whatever the request or
// configuration asks for.
const pairHardCap = 100

// Config bundles every tunable of the matching engine. Zero values are
// replaced with defaults by Normalize.
type Config struct {
	MaxK     int     // results when the request omits k, default 20
	MinScore float64 // default minimum pair score

	LMax               int     // chain length cap, clamped to [3,5]
	BeamN              int     // per-node expansion beam
	MaxChains          int     // chain result cap
	MinEdgeScore       float64 // per-edge floor during expansion and search
	MinChainScore      float64 // feasibility floor for returned chains
	MaxTotalDistanceKm float64 // aggregate distance cap per chain

	ExpandWorkers   int           // parallel frontier workers
	RepoCallTimeout time.Duration // per-repository-call deadline
	PairDeadline    time.Duration // overall pair request deadline
	ChainDeadline   time.Duration // overall chain request deadline
	RetryBudget     int           // repository timeout retries per request
}

// DefaultConfig returns the engine defaults from the platform policy.
func DefaultConfig() Config {
	return Config{
		MaxK:               20,
		MinScore:           0.3,
		LMax:               4,
		BeamN:              15,
		MaxChains:          10,
		MinEdgeScore:       0.5,
		MinChainScore:      0.55,
		MaxTotalDistanceKm: 200,
		ExpandWorkers:      8,
		RepoCallTimeout:    300 * time.Millisecond,
		PairDeadline:       time.Second,
		ChainDeadline:      5 * time.Second,
		RetryBudget:        2,
	}
}

// Normalize fills zero values with defaults and clamps out-of-policy values.
func (c Config) Normalize() Config {
	def := DefaultConfig()
	if c.MaxK <= 0 {
		c.MaxK = def.MaxK
	}
	if c.MaxK > pairHardCap {
		c.MaxK = pairHardCap
	}
	if c.MinScore <= 0 {
		c.MinScore = def.MinScore
	}
	if c.LMax == 0 {
		c.LMax = def.LMax
	}
	if c.LMax < 3 {
		c.LMax = 3
	}
	if c.LMax > 5 {
		c.LMax = 5
	}
	if c.BeamN <= 0 {
		c.BeamN = def.BeamN
	}
	if c.MaxChains <= 0 {
		c.MaxChains = def.MaxChains
	}
	if c.MinEdgeScore <= 0 {
		c.MinEdgeScore = def.MinEdgeScore
	}
	if c.MinChainScore <= 0 {
		c.MinChainScore = def.MinChainScore
	}
	if c.MaxTotalDistanceKm <= 0 {
		c.MaxTotalDistanceKm = def.MaxTotalDistanceKm
	}
	if c.ExpandWorkers <= 0 {
		c.ExpandWorkers = def.ExpandWorkers
	}
	if c.RepoCallTimeout <= 0 {
		c.RepoCallTimeout = def.RepoCallTimeout
	}
	if c.PairDeadline <= 0 {
		c.PairDeadline = def.PairDeadline
	}
	if c.ChainDeadline <= 0 {
		c.ChainDeadline = def.ChainDeadline
	}
	if c.RetryBudget < 0 {
		c.RetryBudget = def.RetryBudget
	}
	return c
}

// Engine serves matching requests. It is stateless across requests; every
// request builds and releases its own transient structures.
type Engine struct {
	source ListingSource
	scorer *Scorer
	cfg    Config
	logger *slog.Logger
}

// NewEngine wires an Engine from its collaborators.
func NewEngine(source ListingSource, scorer *Scorer, cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		source: source,
		scorer: scorer,
		cfg:    cfg.Normalize(),
		logger: logger.With("component", "match"),
	}
}

// Scorer exposes the engine's scorer for explain-style callers.
func (e *Engine) Scorer() *Scorer { return e.scorer }

// repoCaller tracks the per-request retry budget and consecutive-timeout
// counter for repository calls. It is safe for use from parallel frontier
// workers.
type repoCaller struct {
	source      ListingSource
	callTimeout time.Duration

	mu          sync.Mutex
	retriesLeft int
	consecutive int
	timedOut    bool // a call ultimately failed after exhausting retries
}

func (e *Engine) newCaller() *repoCaller {
	return &repoCaller{
		source:      e.source,
		callTimeout: e.cfg.RepoCallTimeout,
		retriesLeft: e.cfg.RetryBudget,
	}
}

// maxConsecutiveTimeouts aborts expansion after this many repository
// timeouts in a row; the engine then returns what is built so far.
const maxConsecutiveTimeouts = 3

func (rc *repoCaller) getListing(ctx context.Context, id string) (domain.Listing, error) {
	var out domain.Listing
	err := rc.do(ctx, func(callCtx context.Context) error {
		var err error
		out, err = rc.source.GetListing(callCtx, id)
		return err
	})
	return out, err
}

func (rc *repoCaller) findCandidates(ctx context.Context, q repository.CandidateQuery) ([]domain.Listing, error) {
	var out []domain.Listing
	err := rc.do(ctx, func(callCtx context.Context) error {
		var err error
		out, err = rc.source.FindCandidates(callCtx, q)
		return err
	})
	return out, err
}

// do runs one repository call with the per-call deadline, retrying once with
// jittered backoff while the request retry budget lasts.
func (rc *repoCaller) do(ctx context.Context, fn func(context.Context) error) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		callCtx, cancel := context.WithTimeout(ctx, rc.callTimeout)
		err := fn(callCtx)
		cancel()

		if err == nil {
			rc.mu.Lock()
			rc.consecutive = 0
			rc.mu.Unlock()
			return nil
		}
		if !isCallTimeout(ctx, err) {
			return err
		}

		rc.mu.Lock()
		rc.consecutive++
		if rc.retriesLeft <= 0 || rc.consecutive >= maxConsecutiveTimeouts {
			rc.timedOut = true
			rc.mu.Unlock()
			return wrapError(KindRepositoryTimeout, "repository call timed out", err)
		}
		rc.retriesLeft--
		rc.mu.Unlock()

		backoff := time.Duration(10+rand.Intn(40)) * time.Millisecond
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// exhausted reports whether expansion should stop issuing repository calls.
func (rc *repoCaller) exhausted() bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.consecutive >= maxConsecutiveTimeouts
}

// failed reports whether any call ultimately timed out after retries.
func (rc *repoCaller) failed() bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.timedOut
}

// isCallTimeout distinguishes a per-call deadline from the overall request
// deadline: only the former is retryable.
func isCallTimeout(reqCtx context.Context, err error) bool {
	if !errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return reqCtx.Err() == nil
}
