package tenant

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/posrapor/posrapor/internal/shared"
)

// ConnectionTarget identifies one physical branch database. Two branch rows
// pointing at the same instance produce equal targets and therefore share a
// pool; identity is structural, never tied to the branch id.
type ConnectionTarget struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// Key returns the registry key. The password is deliberately excluded so a
// credential rotation does not strand an extra pool for the same instance.
func (t ConnectionTarget) Key() string {
	return fmt.Sprintf("%s:%d/%s@%s", t.Host, t.Port, t.Database, t.User)
}

// DSN renders a pgx connection string for the target.
func (t ConnectionTarget) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		url.QueryEscape(t.User), url.QueryEscape(t.Password), t.Host, t.Port, t.Database)
}

// PoolOpener dials a pool for a target. Injected so tests can count and fake
// pool creation.
type PoolOpener func(ctx context.Context, target ConnectionTarget) (*pgxpool.Pool, error)

// DefaultPoolOpener opens a pgx pool against the target.
func DefaultPoolOpener(ctx context.Context, target ConnectionTarget) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(target.DSN())
	if err != nil {
		return nil, fmt.Errorf("tenant: parse branch dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("tenant: open branch pool: %w", err)
	}
	return pool, nil
}

// PoolRegistry owns one pool per distinct connection target for the process
// lifetime. It is constructed once at startup and passed to the Router;
// there is no package-level pool state.
type PoolRegistry struct {
	mu     sync.Mutex
	opener PoolOpener
	pools  map[string]*pgxpool.Pool
}

// NewPoolRegistry constructs a registry. A nil opener falls back to
// DefaultPoolOpener.
func NewPoolRegistry(opener PoolOpener) *PoolRegistry {
	if opener == nil {
		opener = DefaultPoolOpener
	}
	return &PoolRegistry{opener: opener, pools: make(map[string]*pgxpool.Pool)}
}

// Get returns the pool for the target, dialing it on first use. Concurrent
// callers for the same target observe the same pool.
func (r *PoolRegistry) Get(ctx context.Context, target ConnectionTarget) (*pgxpool.Pool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if pool, ok := r.pools[target.Key()]; ok {
		return pool, nil
	}
	pool, err := r.opener(ctx, target)
	if err != nil {
		return nil, err
	}
	r.pools[target.Key()] = pool
	return pool, nil
}

// Close shuts down every pool in the registry.
func (r *PoolRegistry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, pool := range r.pools {
		if pool != nil {
			pool.Close()
		}
		delete(r.pools, key)
	}
}

// KasaLookup resolves extension registers for a branch from the catalog.
type KasaLookup interface {
	BranchKasalar(ctx context.Context, branchID int64) ([]int, error)
}

// Resolved is the outcome of routing a request to a branch: a shared pool,
// the primary register, and the full register set the branch's orders are
// filed under.
type Resolved struct {
	Pool        *pgxpool.Pool
	Branch      *Branch
	PrimaryKasa int
	Kasalar     []int32
}

// Router turns a user's branch selection into a live connection plus the
// branch's register set.
type Router struct {
	registry *PoolRegistry
	lookup   KasaLookup
	logger   *slog.Logger
}

// NewRouter wires the pool registry with the catalog register lookup.
func NewRouter(registry *PoolRegistry, lookup KasaLookup, logger *slog.Logger) *Router {
	return &Router{registry: registry, lookup: lookup, logger: logger}
}

// Resolve maps (user, branchIndex) to a pooled connection and register set.
// branchIndex < 0 selects the user's stored branch.
func (rt *Router) Resolve(ctx context.Context, user *User, branchIndex int) (*Resolved, error) {
	branch, err := user.BranchAt(branchIndex)
	if err != nil {
		return nil, err
	}

	target := ConnectionTarget{
		Host:     branch.DBHost,
		Port:     branch.DBPort,
		Database: branch.DBName,
		User:     branch.DBUser,
		Password: DecryptPassword(branch.DBPassword),
	}
	pool, err := rt.registry.Get(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrQueryFailed, err)
	}

	return &Resolved{
		Pool:        pool,
		Branch:      branch,
		PrimaryKasa: branch.KasaNo,
		Kasalar:     rt.registerSet(ctx, branch),
	}, nil
}

// registerSet computes the de-duplicated union of the primary register, any
// inline extension registers, and catalog extension rows. Extension lookup
// failures degrade to the primary register alone; a branch stays queryable
// even when its extension table is missing.
func (rt *Router) registerSet(ctx context.Context, branch *Branch) []int32 {
	seen := map[int]struct{}{branch.KasaNo: {}}

	if len(branch.Kasalar) > 0 {
		for _, kasa := range branch.Kasalar {
			seen[kasa] = struct{}{}
		}
	} else if branch.ID != 0 && rt.lookup != nil {
		extra, err := rt.lookup.BranchKasalar(ctx, branch.ID)
		if err != nil {
			if rt.logger != nil {
				rt.logger.Warn("kasa extension lookup failed, using primary register only",
					slog.Int64("branch_id", branch.ID), slog.Any("error", err))
			}
			seen = map[int]struct{}{branch.KasaNo: {}}
		} else {
			for _, kasa := range extra {
				seen[kasa] = struct{}{}
			}
		}
	}

	set := make([]int32, 0, len(seen))
	for kasa := range seen {
		set = append(set, int32(kasa))
	}
	sort.Slice(set, func(i, j int) bool { return set[i] < set[j] })
	return set
}

// DecryptPassword decodes a stored branch credential. Currently an identity
// transform; the indirection point exists so real encryption can be added
// without touching callers.
func DecryptPassword(stored string) string {
	return stored
}
