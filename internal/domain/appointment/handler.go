package appointment

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medconnect/medconnect/internal/platform/auth"
	"github.com/medconnect/medconnect/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group, gate *auth.Authenticator) {
	g := api.Group("/appointments", gate.Required())
	g.POST("", h.Create, auth.RequireRole(auth.RolePatient))
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PATCH("/:id/status", h.UpdateStatus)
	g.PUT("/:id/notes", h.SetNotes, auth.RequireRole(auth.RoleDoctor))
	g.DELETE("/:id", h.Delete)
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func (h *Handler) Create(c echo.Context) error {
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	a, err := h.svc.Book(c.Request().Context(), auth.CurrentIdentity(c), req)
	if err != nil {
		return auth.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), auth.CurrentIdentity(c), pg.Limit, pg.Offset)
	if err != nil {
		return auth.HTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg, c.Request().URL.Path, c.QueryParams()))
}

func (h *Handler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	a, err := h.svc.Get(c.Request().Context(), auth.CurrentIdentity(c), id)
	if err != nil {
		return auth.HTTPError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req StatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	a, err := h.svc.UpdateStatus(c.Request().Context(), auth.CurrentIdentity(c), id, req.Status)
	if err != nil {
		return auth.HTTPError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) SetNotes(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req NotesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	a, err := h.svc.SetNotes(c.Request().Context(), auth.CurrentIdentity(c), id, req.Notes)
	if err != nil {
		return auth.HTTPError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), auth.CurrentIdentity(c), id); err != nil {
		return auth.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
