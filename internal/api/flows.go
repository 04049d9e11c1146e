package api

import (
	"net/http"

	"flow-orchestrator/backend/internal/auth"
	"flow-orchestrator/backend/internal/services"
	"flow-orchestrator/backend/pkg/models"

	"github.com/labstack/echo/v4"
	"github.com/oapi-codegen/runtime"
)

// CreateFlowRequest is the body of POST /flows.
type CreateFlowRequest struct {
	Name        string           `json:"name"`
	Flow        models.FlowGraph `json:"flow"`
	Thumbnail   string           `json:"thumbnail"`
	Category    string           `json:"category"`
	Description string           `json:"description"`
	IsTemplate  bool             `json:"is_template"`
}

// UpdateFlowRequest is the body of PUT /flows/{id}. Absent fields are kept.
type UpdateFlowRequest struct {
	Name        *string           `json:"name"`
	Flow        *models.FlowGraph `json:"flow"`
	Thumbnail   *string           `json:"thumbnail"`
	Category    *string           `json:"category"`
	Description *string           `json:"description"`
	IsTemplate  *bool             `json:"is_template"`
}

// DuplicateFlowRequest is the optional body of POST /flows/{id}/duplicate.
type DuplicateFlowRequest struct {
	Name string `json:"name"`
}

// TemplateView is the template listing shape, with the graph flattened to
// top-level nodes and connections.
type TemplateView struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Category    string              `json:"category"`
	Description string              `json:"description"`
	Builtin     bool                `json:"builtin"`
	Thumbnail   string              `json:"thumbnail,omitempty"`
	Nodes       []models.Node       `json:"nodes"`
	Connections []models.Connection `json:"connections"`
}

func templateView(f *models.Flow) TemplateView {
	v := TemplateView{
		ID:          f.ID,
		Name:        f.Name,
		Category:    f.Category,
		Description: f.Description,
		Builtin:     f.Builtin,
		Thumbnail:   f.Thumbnail,
		Nodes:       f.Graph.Nodes,
		Connections: f.Graph.Connections,
	}
	if v.Nodes == nil {
		v.Nodes = []models.Node{}
	}
	if v.Connections == nil {
		v.Connections = []models.Connection{}
	}
	return v
}

// pathID binds the {id} path parameter.
func pathID(c echo.Context, name string) (string, error) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", name, c.Param(name), &id, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, "Invalid format for parameter "+name+": "+err.Error())
	}
	return id, nil
}

// categoryParam binds the optional ?category= filter.
func categoryParam(c echo.Context) (string, error) {
	var category *string
	if err := runtime.BindQueryParameter("form", true, false, "category", c.QueryParams(), &category); err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, "Invalid format for parameter category: "+err.Error())
	}
	if category == nil {
		return "", nil
	}
	return *category, nil
}

// ListTemplates returns the built-in templates plus the caller's own
// template flows. An unowned client scope gets an empty list.
// (GET /api/v1/flows/templates, GET /api/v1/orchestrator/templates)
func (s *Server) ListTemplates(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	category, err := categoryParam(c)
	if err != nil {
		return err
	}
	if auth.IsUnowned(c) {
		return c.JSON(http.StatusOK, []TemplateView{})
	}

	flows, err := s.Flows.ListTemplates(c.Request().Context(), scope, category)
	if err != nil {
		return err
	}
	out := make([]TemplateView, 0, len(flows))
	for _, f := range flows {
		out = append(out, templateView(f))
	}
	return c.JSON(http.StatusOK, out)
}

// ListFlows returns the flows saved under the caller's scope.
// (GET /api/v1/flows)
func (s *Server) ListFlows(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	category, err := categoryParam(c)
	if err != nil {
		return err
	}
	if auth.IsUnowned(c) {
		return c.JSON(http.StatusOK, []*models.Flow{})
	}

	flows, err := s.Flows.List(c.Request().Context(), scope, category)
	if err != nil {
		return err
	}
	if flows == nil {
		flows = []*models.Flow{}
	}
	return c.JSON(http.StatusOK, flows)
}

// CreateFlow saves a new flow.
// (POST /api/v1/flows)
func (s *Server) CreateFlow(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	var req CreateFlowRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}

	flow, err := s.Flows.Create(c.Request().Context(), scope, services.FlowInput{
		Name:        req.Name,
		Category:    req.Category,
		Description: req.Description,
		Thumbnail:   req.Thumbnail,
		IsTemplate:  req.IsTemplate,
		Graph:       req.Flow,
	})
	if err != nil {
		return err
	}
	s.Logger.Info("flow created", "flow_id", flow.ID, "user_id", scope.UserID, "client_id", scope.ClientID)
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"flow_id": flow.ID,
		"name":    flow.Name,
	})
}

// GetFlow returns one flow or built-in template.
// (GET /api/v1/flows/{id})
func (s *Server) GetFlow(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	flow, err := s.Flows.Get(c.Request().Context(), scope, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, flow)
}

// UpdateFlow renames or edits a flow.
// (PUT /api/v1/flows/{id})
func (s *Server) UpdateFlow(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req UpdateFlowRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}

	flow, err := s.Flows.Update(c.Request().Context(), scope, id, services.FlowUpdate{
		Name:        req.Name,
		Category:    req.Category,
		Description: req.Description,
		Thumbnail:   req.Thumbnail,
		IsTemplate:  req.IsTemplate,
		Graph:       req.Flow,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "Flow updated",
		"flow":    flow,
	})
}

// DuplicateFlow copies a flow, or a built-in template, into the caller's
// scope.
// (POST /api/v1/flows/{id}/duplicate)
func (s *Server) DuplicateFlow(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req DuplicateFlowRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}

	dup, err := s.Flows.Duplicate(c.Request().Context(), scope, id, req.Name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success":     true,
		"new_flow_id": dup.ID,
		"new_name":    dup.Name,
	})
}

// DeleteFlow removes a flow. Its execution history is kept.
// (DELETE /api/v1/flows/{id})
func (s *Server) DeleteFlow(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := s.Flows.Delete(c.Request().Context(), scope, id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true})
}
