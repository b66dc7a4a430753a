package echoapi

import (
	"net/http"
	"strings"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/tabunganku/backend/core"
	"github.com/tabunganku/backend/core/profile"
	"github.com/tabunganku/backend/core/session"
)

type sessionApi struct {
	conf *core.Config
	svc  profile.ServiceInterface
}

// registerSessionAPI mounts the navigation resolver. It takes no jwt
// middleware: an invalid or missing token is a valid input here, it just
// resolves as unauthenticated instead of failing the request.
func registerSessionAPI(g *echo.Group, opts *Options) {
	api := sessionApi{conf: opts.Conf, svc: opts.ProfileSvc}

	g.POST("/session/resolve", api.resolve)
	g.GET("/session/routes", api.routes)
}

type (
	ResolveRequest struct {
		Path    string `json:"path"`
		Loading bool   `json:"loading,omitempty"`
	}

	ResolveResponse struct {
		Action session.Action `json:"action"`
		Role   string         `json:"role,omitempty"`
	}
)

func (api *sessionApi) resolve(ctx echo.Context) error {
	var data ResolveRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResolveRequest")
	}
	if data.Path == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "path", Error: "path is required"})
	}

	id := api.identify(ctx, data.Loading)
	return ctx.JSON(http.StatusOK, ResolveResponse{
		Action: session.Resolve(id, data.Path),
		Role:   id.Role,
	})
}

// identify derives the caller's identity from the bearer token, if any.
// The role always comes from the stored profile: a token whose account has
// been deleted or deactivated yields RoleErr, which resolves to a sign-out.
func (api *sessionApi) identify(ctx echo.Context, loading bool) session.Identity {
	if loading {
		return session.Identity{State: session.StateLoading}
	}

	raw := bearerToken(ctx)
	if raw == "" {
		return session.Identity{State: session.StateUnauthenticated}
	}

	claims := new(Claims)
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != middleware.AlgorithmHS256 {
			return nil, errors.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return []byte(api.conf.SecretKey), nil
	})
	if err != nil || !token.Valid {
		return session.Identity{State: session.StateUnauthenticated}
	}

	prof, err := api.svc.GetByID(claims.Subject)
	if err != nil || !prof.Active() {
		return session.Identity{State: session.StateAuthenticated, RoleErr: true}
	}
	return session.Identity{State: session.StateAuthenticated, Role: prof.Role}
}

// routes lists the public paths and role homes so clients need not
// hard-code them.
func (api *sessionApi) routes(ctx echo.Context) error {
	homes := make(map[string]string, len(profile.AllRoles))
	for _, role := range profile.AllRoles {
		if home, ok := session.HomeFor(role); ok {
			homes[role] = home
		}
	}
	return ctx.JSON(http.StatusOK, echo.Map{"homes": homes})
}

func bearerToken(ctx echo.Context) string {
	auth := ctx.Request().Header.Get(echo.HeaderAuthorization)
	const prefix = "Bearer "
	if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
		return auth[len(prefix):]
	}
	return ""
}
