package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/posrapor/posrapor/internal/shared"
	"github.com/posrapor/posrapor/internal/tenant"
)

type fakeLoader struct {
	users map[int64]*tenant.User
}

func (f *fakeLoader) UserByID(ctx context.Context, id int64) (*tenant.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return user, nil
}

func TestMiddleware(t *testing.T) {
	tokens := NewTokenManager("test-secret", time.Hour)
	loader := &fakeLoader{users: map[int64]*tenant.User{
		42: {ID: 42, Email: "kasa@example.com"},
	}}

	var seen *tenant.User
	handler := Middleware(tokens, loader)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = tenant.UserFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	valid, err := tokens.Issue(42, time.Now())
	require.NoError(t, err)
	unknown, err := tokens.Issue(99, time.Now())
	require.NoError(t, err)

	cases := []struct {
		name       string
		header     string
		wantStatus int
		wantUser   int64
	}{
		{"valid token", "Bearer " + valid, http.StatusNoContent, 42},
		{"missing header", "", http.StatusUnauthorized, 0},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, 0},
		{"garbage token", "Bearer not-a-token", http.StatusUnauthorized, 0},
		{"unknown user", "Bearer " + unknown, http.StatusUnauthorized, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/reports/orders", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			require.Equal(t, tc.wantStatus, rec.Code)
			if tc.wantUser != 0 {
				require.NotNil(t, seen)
				require.Equal(t, tc.wantUser, seen.ID)
			} else {
				require.Nil(t, seen)
			}
		})
	}
}
