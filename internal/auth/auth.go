// Package auth resolves the owner scope of a request. Callers identify
// themselves with headers; verifying that identity is left to the
// deployment in front of the service.
package auth

import (
	"context"
	"errors"
	"strings"

	"flow-orchestrator/backend/internal/config"
	"flow-orchestrator/backend/internal/repository"
	"flow-orchestrator/backend/pkg/models"

	"github.com/labstack/echo/v4"
)

var (
	ErrUnauthenticated = errors.New("caller identity is required")
	ErrScopeMissing    = errors.New("client scope is required")
	ErrScopeNotOwned   = errors.New("client scope is not owned by caller")
)

// Logger defines the logging interface compatible with the application logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

const (
	scopeKey   = "scope"
	unownedKey = "scope_unowned"
)

// Resolver turns request headers into a models.Scope, checking that a
// requested client belongs to the caller.
type Resolver struct {
	clients       repository.ClientStore
	logger        Logger
	defaultUser   string
	requireClient bool
}

// New creates a Resolver from the application configuration. The default
// user only applies in the DEV environment.
func New(cfg *config.Config, clients repository.ClientStore, logger Logger) *Resolver {
	r := &Resolver{
		clients:       clients,
		logger:        logger,
		requireClient: cfg.Scope.RequireClient,
	}
	if cfg.IsDev() {
		r.defaultUser = strings.TrimSpace(cfg.Scope.DefaultUser)
	}
	return r
}

// Resolve builds the scope for a user and optional client id. When
// clientRequired is set and the resolver was configured to enforce it, an
// absent client is ErrScopeMissing. An unknown or foreign client is
// ErrScopeNotOwned; the returned scope is still populated in that case.
func (r *Resolver) Resolve(ctx context.Context, userID, clientID string, clientRequired bool) (models.Scope, error) {
	userID = strings.TrimSpace(userID)
	clientID = strings.TrimSpace(clientID)
	if userID == "" {
		userID = r.defaultUser
	}
	if userID == "" {
		return models.Scope{}, ErrUnauthenticated
	}

	scope := models.Scope{UserID: userID, ClientID: clientID}
	if clientID == "" {
		if clientRequired && r.requireClient {
			return scope, ErrScopeMissing
		}
		return scope, nil
	}

	if _, err := r.clients.GetClient(ctx, userID, clientID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return scope, ErrScopeNotOwned
		}
		return scope, err
	}
	return scope, nil
}

// Middleware resolves the scope from the X-User-ID and X-Client-ID headers
// and stores it on the echo context. Under a list policy an unowned client
// is not an error: the handler sees IsUnowned and answers with an empty
// collection.
func (r *Resolver) Middleware(p Policy) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			clientID := req.Header.Get(HeaderClientID)
			if p.OwnerOnly {
				clientID = ""
			}
			scope, err := r.Resolve(req.Context(), req.Header.Get(HeaderUserID), clientID, p.ClientRequired)
			switch {
			case err == nil:
			case errors.Is(err, ErrScopeNotOwned) && p.EmptyOnUnowned:
				if r.logger != nil {
					r.logger.Debug("unowned client scope on list endpoint", "user_id", scope.UserID, "client_id", scope.ClientID)
				}
				c.Set(unownedKey, true)
			default:
				if r.logger != nil && !isScopeError(err) {
					r.logger.Error("failed to resolve scope", "error", err)
				}
				return err
			}
			c.Set(scopeKey, scope)
			return next(c)
		}
	}
}

func isScopeError(err error) bool {
	return errors.Is(err, ErrUnauthenticated) || errors.Is(err, ErrScopeMissing) || errors.Is(err, ErrScopeNotOwned)
}

// ScopeFrom returns the scope stored by Middleware.
func ScopeFrom(c echo.Context) (models.Scope, bool) {
	s, ok := c.Get(scopeKey).(models.Scope)
	return s, ok
}

// IsUnowned reports whether the request named a client the caller does not
// own. Only list endpoints reach their handler in that state.
func IsUnowned(c echo.Context) bool {
	v, _ := c.Get(unownedKey).(bool)
	return v
}
