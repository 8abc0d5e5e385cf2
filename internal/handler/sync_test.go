package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suvilkaushik/easysched-mvp/internal/idp"
	"github.com/suvilkaushik/easysched-mvp/internal/middleware"
	"github.com/suvilkaushik/easysched-mvp/internal/reconcile"
	"github.com/suvilkaushik/easysched-mvp/internal/store"
	"github.com/suvilkaushik/easysched-mvp/internal/sync"
	"github.com/suvilkaushik/easysched-mvp/internal/webhook"
)

// fakeIdP serves the handler tests; only the calls the handlers make are
// implemented with data.
type fakeIdP struct {
	users []idp.User
}

func (f *fakeIdP) ListUsers(ctx context.Context, startingAfter string, limit int) ([]idp.User, error) {
	if startingAfter != "" {
		return nil, nil
	}
	if len(f.users) > limit {
		return f.users[:limit], nil
	}
	return f.users, nil
}

func (f *fakeIdP) GetUser(ctx context.Context, id string) (*idp.User, error) {
	for i := range f.users {
		if f.users[i].ID == id {
			return &f.users[i], nil
		}
	}
	return nil, idp.ErrNotFound
}

func (f *fakeIdP) FindByEmail(ctx context.Context, email string) (*idp.User, error) {
	for i := range f.users {
		for _, addr := range f.users[i].EmailAddresses {
			if addr.EmailAddress == email {
				return &f.users[i], nil
			}
		}
	}
	return nil, idp.ErrNotFound
}

func (f *fakeIdP) CreateUser(ctx context.Context, p idp.CreateParams) (*idp.User, error) {
	u := idp.User{
		ID:             "created-" + p.Username,
		Username:       p.Username,
		EmailAddresses: []idp.EmailAddress{{EmailAddress: p.EmailAddress}},
	}
	f.users = append(f.users, u)
	return &u, nil
}

// asUser mimics the auth middleware by injecting a verified caller id.
func asUser(remoteID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUserIDKey, remoteID)
		c.Next()
	}
}

func newSyncRouter(t *testing.T, mem *store.Memory, provider *fakeIdP, authed gin.HandlerFunc) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	verifier, err := webhook.NewVerifier(testSecret)
	require.NoError(t, err)

	engine := reconcile.NewEngine(mem)
	runner := sync.NewRunner(sync.NewOrchestrator(mem, provider, engine, 10), nil)

	h := NewHandler(verifier, engine, runner, provider)
	r := gin.New()
	h.RegisterRoutes(r, authed)
	return r
}

func TestSyncUsers_ReturnsReport(t *testing.T) {
	mem := store.NewMemory()
	provider := &fakeIdP{users: []idp.User{
		{ID: "r1", EmailAddresses: []idp.EmailAddress{{EmailAddress: "a@x.com"}}},
	}}
	r := newSyncRouter(t, mem, provider, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/sync/users", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ok":true`)
	assert.Contains(t, w.Body.String(), `"created":1`)
	assert.Len(t, mem.All(), 1)
}

func TestSyncUsers_InvocableViaGETForCron(t *testing.T) {
	mem := store.NewMemory()
	r := newSyncRouter(t, mem, &fakeIdP{}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sync/users", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ok":true`)
}

func TestSyncMe_ForbidsSyncingOtherUsers(t *testing.T) {
	mem := store.NewMemory()
	r := newSyncRouter(t, mem, &fakeIdP{}, asUser("r1"))

	body := strings.NewReader(`{"remoteId":"r2"}`)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/sync/me", body))

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, mem.All())
}

func TestSyncMe_MissingRemoteID(t *testing.T) {
	mem := store.NewMemory()
	r := newSyncRouter(t, mem, &fakeIdP{}, asUser("r1"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/sync/me", strings.NewReader(`{}`)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSyncMe_AppliesOwnRemoteIdentity(t *testing.T) {
	mem := store.NewMemory()
	provider := &fakeIdP{users: []idp.User{
		{
			ID:             "r1",
			FirstName:      "Ada",
			EmailAddresses: []idp.EmailAddress{{EmailAddress: "a@x.com"}},
		},
	}}
	r := newSyncRouter(t, mem, provider, asUser("r1"))

	body := strings.NewReader(`{"remoteId":"r1"}`)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/sync/me", body))

	assert.Equal(t, http.StatusOK, w.Code)

	rec, err := mem.FindByRemoteID(t.Context(), "r1")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", rec.Email)
	assert.Equal(t, "Ada", rec.FirstName)
}

func TestSyncMe_BannedUserStaysInactive(t *testing.T) {
	mem := store.NewMemory()
	provider := &fakeIdP{users: []idp.User{
		{
			ID:             "r1",
			FirstName:      "Ada",
			Banned:         true,
			EmailAddresses: []idp.EmailAddress{{EmailAddress: "a@x.com"}},
		},
	}}
	r := newSyncRouter(t, mem, provider, asUser("r1"))

	body := strings.NewReader(`{"remoteId":"r1"}`)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/sync/me", body))

	assert.Equal(t, http.StatusOK, w.Code)

	rec, err := mem.FindByRemoteID(t.Context(), "r1")
	require.NoError(t, err)
	assert.True(t, rec.Inactive, "banned accounts must not come back active")
	assert.Equal(t, "Ada", rec.FirstName, "profile fields still refresh")
}

func TestSyncMe_RemoteFetchFailureIsBadGateway(t *testing.T) {
	mem := store.NewMemory()
	r := newSyncRouter(t, mem, &fakeIdP{}, asUser("r-missing"))

	body := strings.NewReader(`{"remoteId":"r-missing"}`)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/sync/me", body))

	assert.Equal(t, http.StatusBadGateway, w.Code)
}
