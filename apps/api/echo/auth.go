package echoapi

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/bebohany644546654/physica/core"
	"github.com/bebohany644546654/physica/core/student"
)

// Portal roles carried in the token.
const (
	RoleAdmin   = "admin"
	RoleStudent = "student"
	RoleParent  = "parent"
)

// appJWTConfig is the default JWT auth middleware config.
var appJWTConfig = middleware.JWTConfig{
	SigningKey:    []byte(core.Conf.SecretKey),
	SigningMethod: middleware.AlgorithmHS256,
	ContextKey:    "authToken",
	Claims:        new(Claims),
}

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	Role string `json:"role"`
	Name string `json:"name,omitempty"`
	Code string `json:"code,omitempty"` // student login code
}

func newClaims(subject, role, name, code string) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    core.Conf.AppName,
			Subject:   subject,
			ExpiresAt: now.Add(core.Conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Role: role,
		Name: name,
		Code: code,
	}
}

func GetAdminClaims() *Claims {
	return newClaims("admin", RoleAdmin, core.Conf.AdminUsername, "")
}

func GetStudentClaims(stu student.Student) *Claims {
	return newClaims(stu.ID, RoleStudent, stu.Name, stu.Code)
}

func GetParentClaims(par student.Parent) *Claims {
	return newClaims(par.ID, RoleParent, "guardian of "+par.StudentName, par.StudentCode)
}

// authenticate resolves a login in order: the configured admin account,
// then a student by code, then a guardian by phone. Callers get the
// same failure either way so logins cannot probe which accounts exist.
func authenticate(username, pwd string, svc *student.Service) (*Claims, error) {
	username = core.CleanString(username)

	if core.Conf.AdminPassword != "" && username == core.Conf.AdminUsername {
		if subtle.ConstantTimeCompare([]byte(pwd), []byte(core.Conf.AdminPassword)) == 1 {
			return GetAdminClaims(), nil
		}
		return nil, errAuthenticationFailed
	}

	if stu, err := svc.AuthenticateStudent(username, pwd); err == nil {
		return GetStudentClaims(stu), nil
	}
	if par, err := svc.AuthenticateParent(username, pwd); err == nil {
		return GetParentClaims(par), nil
	}
	return nil, errAuthenticationFailed
}

// GenerateToken generates a signed JWT token string representing the Claims.
func GenerateToken(claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(appJWTConfig.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(appJWTConfig.SigningKey)
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

type authApi struct {
	svc *student.Service
}

func registerAuthAPI(g *echo.Group, _ echo.MiddlewareFunc, svc *student.Service) {
	api := authApi{svc: svc}

	ag := g.Group("/auth")

	// un-authed endpoints
	// TODO: rate limit `/login`
	ag.POST("/login", api.login)
}

func (api *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	claims, err := authenticate(data.Username, data.Password, api.svc)
	if err != nil {
		return err
	}
	token, err := GenerateToken(claims)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(appJWTConfig.ContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}
