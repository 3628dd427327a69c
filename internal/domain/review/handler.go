package review

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
	api.POST("/reviews", h.Create, gate.Required(), auth.RequireRole(auth.RolePatient))
	api.GET("/reviews/:id", h.Get, gate.Optional())
	api.PUT("/reviews/:id/publish", h.SetPublished, gate.Required())
	api.DELETE("/reviews/:id", h.Delete, gate.Required())
	api.GET("/doctors/:id/reviews", h.ListForDoctor, gate.Optional())
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
	r, err := h.svc.Create(c.Request().Context(), auth.CurrentIdentity(c), req)
	if err != nil {
		return auth.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	r, err := h.svc.Get(c.Request().Context(), auth.CurrentIdentity(c), id)
	if err != nil {
		return auth.HTTPError(err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) ListForDoctor(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListForDoctor(c.Request().Context(), auth.CurrentIdentity(c), id, pg.Limit, pg.Offset)
	if err != nil {
		return auth.HTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg, c.Request().URL.Path, c.QueryParams()))
}

func (h *Handler) SetPublished(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	req := PublishRequest{Published: true}
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}
	}
	r, err := h.svc.SetPublished(c.Request().Context(), auth.CurrentIdentity(c), id, req.Published)
	if err != nil {
		return auth.HTTPError(err)
	}
	return c.JSON(http.StatusOK, r)
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
