package principal

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medconnect/medconnect/internal/platform/auth"
	"github.com/medconnect/medconnect/pkg/pagination"
)

const stateCookie = "medconnect_oauth_state"

// FederatedAuthenticator runs the provider side of federated login.
type FederatedAuthenticator interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.FederatedProfile, error)
	VerifyIDToken(ctx context.Context, raw string) (*auth.FederatedProfile, error)
}

type Handler struct {
	svc       *Service
	linker    *Linker
	federated FederatedAuthenticator
	secure    bool
}

// NewHandler creates the principal handler. federated may be nil, in which
// case the federated routes are not registered.
func NewHandler(svc *Service, linker *Linker, federated FederatedAuthenticator, secureCookies bool) *Handler {
	return &Handler{svc: svc, linker: linker, federated: federated, secure: secureCookies}
}

// RegisterRoutes mounts the auth and doctor directory routes. limit guards
// the credential-accepting endpoints.
func (h *Handler) RegisterRoutes(api *echo.Group, gate *auth.Authenticator, limit echo.MiddlewareFunc) {
	public := api.Group("/auth", limit)
	public.POST("/register", h.Register)
	public.POST("/login", h.Login)

	authed := api.Group("/auth", gate.Required())
	authed.POST("/refresh", h.Refresh)
	authed.GET("/me", h.Me)

	if h.federated != nil && h.linker != nil {
		public.POST("/federated", h.FederatedLogin)
		api.GET("/auth/google/login", h.GoogleLogin)
		api.GET("/auth/google/callback", h.GoogleCallback, limit)
	}

	directory := api.Group("/doctors", gate.Optional())
	directory.GET("", h.ListDoctors)
	directory.GET("/:id", h.GetDoctor)
}

func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p, err := h.svc.Register(c.Request().Context(), req)
	if err != nil {
		return auth.HTTPError(err)
	}
	session, err := h.svc.IssueSession(p)
	if err != nil {
		return auth.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, session)
}

func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	session, err := h.svc.Login(c.Request().Context(), req)
	if err != nil {
		return auth.HTTPError(err)
	}
	return c.JSON(http.StatusOK, session)
}

func (h *Handler) Refresh(c echo.Context) error {
	ident := auth.CurrentIdentity(c)
	if ident == nil {
		return auth.HTTPError(auth.ErrAuthenticationRequired)
	}
	session, err := h.svc.Refresh(c.Request().Context(), ident.ID)
	if err != nil {
		return auth.HTTPError(err)
	}
	return c.JSON(http.StatusOK, session)
}

func (h *Handler) Me(c echo.Context) error {
	ident := auth.CurrentIdentity(c)
	if ident == nil {
		return auth.HTTPError(auth.ErrAuthenticationRequired)
	}
	p, err := h.svc.Get(c.Request().Context(), ident.ID)
	if err != nil {
		return auth.HTTPError(err)
	}
	return c.JSON(http.StatusOK, p)
}

// FederatedLogin accepts an ID token the client obtained from the provider.
func (h *Handler) FederatedLogin(c echo.Context) error {
	var req FederatedLoginRequest
	if err := c.Bind(&req); err != nil || req.IDToken == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "id_token is required")
	}
	ctx := c.Request().Context()
	profile, err := h.federated.VerifyIDToken(ctx, req.IDToken)
	if err != nil {
		h.svc.recordLogin("federated", "failure")
		return auth.HTTPError(err)
	}
	return h.completeFederated(c, profile)
}

func (h *Handler) GoogleLogin(c echo.Context) error {
	state, err := auth.NewState()
	if err != nil {
		return auth.HTTPError(err)
	}
	c.SetCookie(&http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return c.Redirect(http.StatusFound, h.federated.AuthCodeURL(state))
}

func (h *Handler) GoogleCallback(c echo.Context) error {
	cookie, err := c.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != c.QueryParam("state") {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid oauth state")
	}
	c.SetCookie(&http.Cookie{Name: stateCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true, Secure: h.secure})

	if e := c.QueryParam("error"); e != "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "federated login was not completed: "+e)
	}
	profile, err := h.federated.Exchange(c.Request().Context(), c.QueryParam("code"))
	if err != nil {
		h.svc.recordLogin("federated", "failure")
		return auth.HTTPError(err)
	}
	return h.completeFederated(c, profile)
}

func (h *Handler) completeFederated(c echo.Context, profile *auth.FederatedProfile) error {
	p, err := h.linker.LinkOrCreate(c.Request().Context(), profile)
	if err != nil {
		h.svc.recordLogin("federated", "error")
		return auth.HTTPError(err)
	}
	h.svc.recordLogin("federated", "success")
	session, err := h.svc.IssueSession(p)
	if err != nil {
		return auth.HTTPError(err)
	}
	return c.JSON(http.StatusOK, session)
}

func (h *Handler) ListDoctors(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListDoctors(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return auth.HTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg, c.Request().URL.Path, c.QueryParams()))
}

func (h *Handler) GetDoctor(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	d, err := h.svc.GetDoctor(c.Request().Context(), id)
	if err != nil {
		return auth.HTTPError(err)
	}
	return c.JSON(http.StatusOK, d)
}
