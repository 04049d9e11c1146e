package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"flow-orchestrator/backend/internal/config"
	"flow-orchestrator/backend/internal/repository"
	"flow-orchestrator/backend/pkg/models"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// NoOpLogger for testing
type NoOpLogger struct{}

func (l *NoOpLogger) Debug(msg string, args ...any) {}
func (l *NoOpLogger) Info(msg string, args ...any)  {}
func (l *NoOpLogger) Error(msg string, args ...any) {}

// MockClientStore satisfies repository.ClientStore
type MockClientStore struct {
	mock.Mock
}

func (m *MockClientStore) CreateClient(ctx context.Context, client *models.Client) error {
	args := m.Called(ctx, client)
	return args.Error(0)
}

func (m *MockClientStore) GetClient(ctx context.Context, ownerID, id string) (*models.Client, error) {
	args := m.Called(ctx, ownerID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Client), args.Error(1)
}

func (m *MockClientStore) ListClients(ctx context.Context, ownerID string) ([]*models.Client, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).([]*models.Client), args.Error(1)
}

func newConfig(env, defaultUser string, requireClient bool) *config.Config {
	cfg := &config.Config{Environment: env}
	cfg.Scope.DefaultUser = defaultUser
	cfg.Scope.RequireClient = requireClient
	return cfg
}

// serve runs the middleware with policy p and returns the recorded status
// and the scope the handler saw.
func serve(t *testing.T, r *Resolver, p Policy, headers map[string]string) (int, models.Scope, bool) {
	t.Helper()
	e := echo.New()
	var (
		seen    models.Scope
		unowned bool
	)
	e.GET("/", func(c echo.Context) error {
		s, ok := ScopeFrom(c)
		require.True(t, ok, "scope should be in context")
		seen, unowned = s, IsUnowned(c)
		return c.NoContent(http.StatusOK)
	}, r.Middleware(p))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec.Code, seen, unowned
}

func TestResolve_OwnerOnly(t *testing.T) {
	clients := new(MockClientStore)
	r := New(newConfig("PROD", "", false), clients, &NoOpLogger{})

	scope, err := r.Resolve(context.Background(), " alice ", "", true)
	require.NoError(t, err)
	assert.Equal(t, models.Scope{UserID: "alice"}, scope)
	clients.AssertNotCalled(t, "GetClient", mock.Anything, mock.Anything, mock.Anything)
}

func TestResolve_DefaultUserOnlyInDev(t *testing.T) {
	dev := New(newConfig("DEV", "dev-user", false), new(MockClientStore), &NoOpLogger{})
	scope, err := dev.Resolve(context.Background(), "", "", false)
	require.NoError(t, err)
	assert.Equal(t, "dev-user", scope.UserID)

	prod := New(newConfig("PROD", "dev-user", false), new(MockClientStore), &NoOpLogger{})
	_, err = prod.Resolve(context.Background(), "", "", false)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestResolve_OwnedClient(t *testing.T) {
	clients := new(MockClientStore)
	clients.On("GetClient", mock.Anything, "alice", "acme").
		Return(&models.Client{ID: "acme", OwnerID: "alice", Name: "Acme"}, nil)

	r := New(newConfig("PROD", "", true), clients, &NoOpLogger{})
	scope, err := r.Resolve(context.Background(), "alice", "acme", true)
	require.NoError(t, err)
	assert.Equal(t, models.Scope{UserID: "alice", ClientID: "acme"}, scope)
	clients.AssertExpectations(t)
}

func TestResolve_UnownedClient(t *testing.T) {
	clients := new(MockClientStore)
	clients.On("GetClient", mock.Anything, "alice", "globex").Return(nil, repository.ErrNotFound)

	r := New(newConfig("PROD", "", false), clients, &NoOpLogger{})
	_, err := r.Resolve(context.Background(), "alice", "globex", false)
	assert.ErrorIs(t, err, ErrScopeNotOwned)
}

func TestResolve_ClientStoreFailure(t *testing.T) {
	clients := new(MockClientStore)
	clients.On("GetClient", mock.Anything, "alice", "acme").Return(nil, errors.New("db down"))

	r := New(newConfig("PROD", "", false), clients, &NoOpLogger{})
	_, err := r.Resolve(context.Background(), "alice", "acme", false)
	require.Error(t, err)
	assert.False(t, isScopeError(err))
}

func TestResolve_RequiredClientMissing(t *testing.T) {
	strict := New(newConfig("PROD", "", true), new(MockClientStore), &NoOpLogger{})
	_, err := strict.Resolve(context.Background(), "alice", "", true)
	assert.ErrorIs(t, err, ErrScopeMissing)

	// The endpoint does not require it.
	_, err = strict.Resolve(context.Background(), "alice", "", false)
	assert.NoError(t, err)

	// Enforcement is off.
	lax := New(newConfig("PROD", "", false), new(MockClientStore), &NoOpLogger{})
	_, err = lax.Resolve(context.Background(), "alice", "", true)
	assert.NoError(t, err)
}

func TestMiddleware_ListPolicyPassesUnownedScope(t *testing.T) {
	clients := new(MockClientStore)
	clients.On("GetClient", mock.Anything, "alice", "globex").Return(nil, repository.ErrNotFound)
	r := New(newConfig("PROD", "", false), clients, &NoOpLogger{})

	code, scope, unowned := serve(t, r, BrowsePolicy, map[string]string{
		HeaderUserID: "alice", HeaderClientID: "globex",
	})
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, unowned)
	assert.Equal(t, "globex", scope.ClientID)
}

func TestMiddleware_ResourcePolicyRejectsUnownedScope(t *testing.T) {
	clients := new(MockClientStore)
	clients.On("GetClient", mock.Anything, "alice", "globex").Return(nil, repository.ErrNotFound)
	r := New(newConfig("PROD", "", false), clients, &NoOpLogger{})

	e := echo.New()
	called := false
	e.GET("/", func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	}, r.Middleware(ResourcePolicy))
	var got error
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		got = err
		_ = c.NoContent(http.StatusTeapot)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderUserID, "alice")
	req.Header.Set(HeaderClientID, "globex")
	e.ServeHTTP(httptest.NewRecorder(), req)

	assert.False(t, called)
	assert.ErrorIs(t, got, ErrScopeNotOwned)
}

func TestMiddleware_OwnerPolicyIgnoresClient(t *testing.T) {
	clients := new(MockClientStore)
	r := New(newConfig("PROD", "", true), clients, &NoOpLogger{})

	code, scope, unowned := serve(t, r, OwnerPolicy, map[string]string{
		HeaderUserID: "alice", HeaderClientID: "whatever",
	})
	assert.Equal(t, http.StatusOK, code)
	assert.False(t, unowned)
	assert.Equal(t, models.Scope{UserID: "alice"}, scope)
	clients.AssertNotCalled(t, "GetClient", mock.Anything, mock.Anything, mock.Anything)
}
