package tenant

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
)

type fakeLookup struct {
	kasalar map[int64][]int
	err     error
	calls   int
}

func (f *fakeLookup) BranchKasalar(ctx context.Context, branchID int64) ([]int, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.kasalar[branchID], nil
}

func countingOpener(calls *int) PoolOpener {
	return func(ctx context.Context, target ConnectionTarget) (*pgxpool.Pool, error) {
		*calls++
		return &pgxpool.Pool{}, nil
	}
}

func testUser(branches ...Branch) *User {
	return &User{ID: 1, Branches: branches, SelectedBranch: 0}
}

func testBranch() Branch {
	return Branch{
		ID:     10,
		Name:   "Merkez",
		DBHost: "10.0.0.5",
		DBPort: 5432,
		DBName: "posdb",
		DBUser: "pos",
		KasaNo: 1,
	}
}

func TestConnectionTargetKeyExcludesPassword(t *testing.T) {
	a := ConnectionTarget{Host: "h", Port: 5432, Database: "db", User: "u", Password: "old"}
	b := ConnectionTarget{Host: "h", Port: 5432, Database: "db", User: "u", Password: "rotated"}
	if a.Key() != b.Key() {
		t.Fatalf("targets differing only in password must share a key: %q vs %q", a.Key(), b.Key())
	}
	c := ConnectionTarget{Host: "h", Port: 5433, Database: "db", User: "u"}
	if a.Key() == c.Key() {
		t.Fatalf("distinct instances must not collide: %q", a.Key())
	}
}

func TestPoolRegistryReusesPoolPerTarget(t *testing.T) {
	opens := 0
	registry := NewPoolRegistry(countingOpener(&opens))
	target := ConnectionTarget{Host: "h", Port: 5432, Database: "db", User: "u"}

	first, err := registry.Get(context.Background(), target)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := registry.Get(context.Background(), target)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Fatal("same target must return the same pool")
	}
	if opens != 1 {
		t.Fatalf("expected a single dial, got %d", opens)
	}
}

func TestPoolRegistryDialFailureIsNotCached(t *testing.T) {
	boom := errors.New("refused")
	attempts := 0
	registry := NewPoolRegistry(func(ctx context.Context, target ConnectionTarget) (*pgxpool.Pool, error) {
		attempts++
		if attempts == 1 {
			return nil, boom
		}
		return &pgxpool.Pool{}, nil
	})
	target := ConnectionTarget{Host: "h", Port: 5432, Database: "db", User: "u"}

	if _, err := registry.Get(context.Background(), target); !errors.Is(err, boom) {
		t.Fatalf("expected dial error, got %v", err)
	}
	if _, err := registry.Get(context.Background(), target); err != nil {
		t.Fatalf("retry after failed dial: %v", err)
	}
}

func TestRouterResolveRegisterSetFromLookup(t *testing.T) {
	opens := 0
	lookup := &fakeLookup{kasalar: map[int64][]int{10: {2, 3, 1}}}
	router := NewRouter(NewPoolRegistry(countingOpener(&opens)), lookup, slog.Default())

	resolved, err := router.Resolve(context.Background(), testUser(testBranch()), -1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int32{1, 2, 3}
	if len(resolved.Kasalar) != len(want) {
		t.Fatalf("register set = %v, want %v", resolved.Kasalar, want)
	}
	for i, kasa := range want {
		if resolved.Kasalar[i] != kasa {
			t.Fatalf("register set = %v, want sorted %v", resolved.Kasalar, want)
		}
	}
	if resolved.PrimaryKasa != 1 {
		t.Fatalf("primary register = %d, want 1", resolved.PrimaryKasa)
	}
}

func TestRouterResolveInlineKasalarSkipsLookup(t *testing.T) {
	lookup := &fakeLookup{kasalar: map[int64][]int{10: {7, 8}}}
	branch := testBranch()
	branch.Kasalar = []int{1, 4, 4}
	router := NewRouter(NewPoolRegistry(countingOpener(new(int))), lookup, slog.Default())

	resolved, err := router.Resolve(context.Background(), testUser(branch), -1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lookup.calls != 0 {
		t.Fatalf("inline registers must short-circuit the catalog lookup, got %d calls", lookup.calls)
	}
	if len(resolved.Kasalar) != 2 || resolved.Kasalar[0] != 1 || resolved.Kasalar[1] != 4 {
		t.Fatalf("register set = %v, want deduplicated [1 4]", resolved.Kasalar)
	}
}

func TestRouterResolveLookupFailureDegradesToPrimary(t *testing.T) {
	lookup := &fakeLookup{err: errors.New("relation does not exist")}
	router := NewRouter(NewPoolRegistry(countingOpener(new(int))), lookup, slog.Default())

	resolved, err := router.Resolve(context.Background(), testUser(testBranch()), -1)
	if err != nil {
		t.Fatalf("routing must survive a failed extension lookup: %v", err)
	}
	if len(resolved.Kasalar) != 1 || resolved.Kasalar[0] != 1 {
		t.Fatalf("register set = %v, want just the primary", resolved.Kasalar)
	}
}

func TestRouterResolveInvalidBranchIndex(t *testing.T) {
	router := NewRouter(NewPoolRegistry(countingOpener(new(int))), nil, slog.Default())
	user := testUser(testBranch())

	if _, err := router.Resolve(context.Background(), user, 5); err == nil {
		t.Fatal("out-of-range index must fail")
	}

	user.SelectedBranch = 9
	if _, err := router.Resolve(context.Background(), user, -1); err == nil {
		t.Fatal("stale stored selection must fail, not clamp")
	}
}

func TestRouterSharesPoolAcrossBranchesOnSameInstance(t *testing.T) {
	opens := 0
	router := NewRouter(NewPoolRegistry(countingOpener(&opens)), nil, slog.Default())

	a := testBranch()
	b := testBranch()
	b.ID = 11
	b.Name = "Sube 2"
	b.KasaNo = 2
	user := testUser(a, b)

	if _, err := router.Resolve(context.Background(), user, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := router.Resolve(context.Background(), user, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opens != 1 {
		t.Fatalf("branches on one instance must share a pool, dialed %d times", opens)
	}
}
