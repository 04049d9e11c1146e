package api

import (
	"net/http"

	"flow-orchestrator/backend/pkg/models"

	"github.com/labstack/echo/v4"
)

// CreateClientRequest is the body of POST /clients.
type CreateClientRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CreateClient registers a sub-tenant under the caller.
// (POST /api/v1/clients)
func (s *Server) CreateClient(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	var req CreateClientRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}

	client, err := s.Clients.Register(c.Request().Context(), scope.UserID, req.ID, req.Name)
	if err != nil {
		return err
	}
	s.Logger.Info("client registered", "client_id", client.ID, "user_id", scope.UserID)
	return c.JSON(http.StatusCreated, map[string]any{"client": client})
}

// ListClients returns the caller's sub-tenants.
// (GET /api/v1/clients)
func (s *Server) ListClients(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	clients, err := s.Clients.List(c.Request().Context(), scope.UserID)
	if err != nil {
		return err
	}
	if clients == nil {
		clients = []*models.Client{}
	}
	return c.JSON(http.StatusOK, clients)
}
