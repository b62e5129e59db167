package jobs

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/posrapor/posrapor/internal/tenant"
)

type fakeEnqueuer struct {
	payloads []DashboardWarmupPayload
	err      error
}

func (f *fakeEnqueuer) EnqueueDashboardWarmup(ctx context.Context, payload DashboardWarmupPayload) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.payloads = append(f.payloads, payload)
	return &asynq.TaskInfo{ID: "task-1", Queue: QueueDefault}, nil
}

func warmupServer(t *testing.T, enqueuer WarmupEnqueuer, user *tenant.User) *httptest.Server {
	t.Helper()
	handler := NewHandler(enqueuer, slog.Default())
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if user != nil {
				req = req.WithContext(tenant.ContextWithUser(req.Context(), user))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Route("/jobs", handler.MountRoutes)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestWarmupEnqueue(t *testing.T) {
	enqueuer := &fakeEnqueuer{}
	srv := warmupServer(t, enqueuer, &tenant.User{ID: 1, Admin: true})

	resp, err := http.Post(srv.URL+"/jobs/warmup", "application/json",
		strings.NewReader(`{"active_within_hours": 6}`))
	if err != nil {
		t.Fatalf("post warmup: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}
	if len(enqueuer.payloads) != 1 || enqueuer.payloads[0].ActiveWithinHours != 6 {
		t.Fatalf("payloads = %+v, want one warmup scoped to 6 hours", enqueuer.payloads)
	}
}

func TestWarmupRequiresAdmin(t *testing.T) {
	enqueuer := &fakeEnqueuer{}
	srv := warmupServer(t, enqueuer, &tenant.User{ID: 2})

	resp, err := http.Post(srv.URL+"/jobs/warmup", "application/json", nil)
	if err != nil {
		t.Fatalf("post warmup: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
	if len(enqueuer.payloads) != 0 {
		t.Fatalf("non-admin must not enqueue, got %+v", enqueuer.payloads)
	}
}

func TestWarmupRequiresAuth(t *testing.T) {
	srv := warmupServer(t, &fakeEnqueuer{}, nil)

	resp, err := http.Post(srv.URL+"/jobs/warmup", "application/json", nil)
	if err != nil {
		t.Fatalf("post warmup: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestWarmupQueueDown(t *testing.T) {
	enqueuer := &fakeEnqueuer{err: errors.New("redis gone")}
	srv := warmupServer(t, enqueuer, &tenant.User{ID: 1, Admin: true})

	resp, err := http.Post(srv.URL+"/jobs/warmup", "application/json", nil)
	if err != nil {
		t.Fatalf("post warmup: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
}
