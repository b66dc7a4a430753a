package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/tabunganku/backend/core/profile"
)

// roleMiddleware admits callers whose STORED role is one of the given
// roles. Claims alone are never trusted for authorization: a demoted or
// deactivated account keeps a valid token until it expires.
func roleMiddleware(svc profile.ServiceInterface, roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			prof, err := getContextProfile(ctx, svc)
			if err != nil {
				return errors.Wrap(err, "getting context profile")
			}
			if !prof.Active() {
				return errAccountDeactivated
			}
			for _, role := range roles {
				if prof.Role == role {
					return next(ctx)
				}
			}
			return errHttpForbidden
		}
	}
}

func adminMiddleware(svc profile.ServiceInterface) echo.MiddlewareFunc {
	return roleMiddleware(svc, profile.RoleAdmin)
}

func teacherMiddleware(svc profile.ServiceInterface) echo.MiddlewareFunc {
	return roleMiddleware(svc, profile.RoleTeacher)
}
