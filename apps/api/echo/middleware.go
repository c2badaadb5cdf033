package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/bebohany644546654/physica/core/student"
)

func adminMiddleware() echo.MiddlewareFunc {
	return roleMiddleware(RoleAdmin)
}

func roleMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			for _, role := range roles {
				if claims.Role == role {
					return next(ctx)
				}
			}
			return errHttpForbidden
		}
	}
}

// selfOrAdminMiddleware lets a student at their own records, their
// guardian at the same, and an admin at anyone's. The guarded routes
// carry the student id in :id.
func selfOrAdminMiddleware(svc *student.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			switch claims.Role {
			case RoleAdmin:
				return next(ctx)
			case RoleStudent:
				if claims.Subject == ctx.Param("id") {
					return next(ctx)
				}
			case RoleParent:
				// guardian tokens carry the student's code, not id
				if stu, err := svc.GetByCode(claims.Code); err == nil && stu.ID == ctx.Param("id") {
					return next(ctx)
				}
			}
			return errHttpForbidden
		}
	}
}
