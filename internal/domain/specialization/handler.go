package specialization

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medconnect/medconnect/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group, gate *auth.Authenticator) {
	api.GET("/specializations", h.List)
	api.GET("/specializations/:id", h.Get)

	adminGroup := api.Group("/specializations", gate.Required(), auth.RequireRole(auth.RoleAdmin))
	adminGroup.POST("", h.Create)
	adminGroup.PUT("/:id", h.Update)
	adminGroup.DELETE("/:id", h.Delete)

	api.PUT("/doctors/me/specializations", h.Assign, gate.Required(), auth.RequireRole(auth.RoleDoctor))
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func (h *Handler) List(c echo.Context) error {
	items, err := h.svc.List(c.Request().Context())
	if err != nil {
		return auth.HTTPError(err)
	}
	if items == nil {
		items = []*Specialization{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	s, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return auth.HTTPError(err)
	}
	return c.JSON(http.StatusOK, s)
}

func (h *Handler) Create(c echo.Context) error {
	var s Specialization
	if err := c.Bind(&s); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.svc.Create(c.Request().Context(), &s); err != nil {
		return auth.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, s)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var s Specialization
	if err := c.Bind(&s); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	s.ID = id
	if err := h.svc.Update(c.Request().Context(), &s); err != nil {
		return auth.HTTPError(err)
	}
	return c.JSON(http.StatusOK, s)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return auth.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Assign(c echo.Context) error {
	var req AssignRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	var doctorID uuid.UUID
	if req.DoctorID != nil {
		doctorID = *req.DoctorID
	}
	items, err := h.svc.Assign(c.Request().Context(), auth.CurrentIdentity(c), doctorID, req.SpecializationIDs)
	if err != nil {
		return auth.HTTPError(err)
	}
	return c.JSON(http.StatusOK, items)
}
