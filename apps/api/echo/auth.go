package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/tabunganku/backend/core"
	"github.com/tabunganku/backend/core/authz"
	"github.com/tabunganku/backend/core/profile"
	"github.com/tabunganku/backend/core/student"
)

const (
	tokenContextKey   = "profileToken"
	profileContextKey = "profile"
)

func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    tokenContextKey,
		Claims:        new(Claims),
	}
}

// Claims represents the authorization claims transmitted via a JWT. Role
// is informational only; authorization always re-reads it from the store.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	Email        string `json:"email,omitempty"`
	FullName     string `json:"full_name,omitempty"`
	Role         string `json:"role,omitempty"`
}

func GetProfileClaims(conf *core.Config, prof profile.Profile, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	var oriat int64
	if len(origIat) > 0 {
		oriat = origIat[0]
	} else {
		oriat = nownix
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   prof.ID,
			Audience:  "TabunganKu",
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Email:        prof.Email,
		FullName:     prof.FullName(),
		Role:         prof.Role,
	}
}

func authenticate(conf *core.Config, email, pwd string, svc profile.ServiceInterface) (*Claims, error) {
	prof, err := svc.GetByEmail(email)
	if err != nil {
		if errors.Cause(err) == profile.ErrNotFound {
			return nil, errAuthenticationFailed
		}
		return nil, errors.Wrap(err, "finding profile by email")
	}
	if err = prof.CheckPassword(pwd); err != nil {
		return nil, errAuthenticationFailed
	}
	if !prof.Active() {
		return nil, errAccountDeactivated
	}
	prof, err = svc.SetLastLogin(prof)
	if err != nil {
		return nil, errors.Wrap(err, "setting lastLogin")
	}
	return GetProfileClaims(conf, prof), nil
}

// authenticateParent signs a parent in by their child's NISN; parent
// accounts are stored under a synthesized email derived from it.
func authenticateParent(conf *core.Config, nisn, pwd string, svc profile.ServiceInterface) (*Claims, error) {
	return authenticate(conf, student.ParentEmail(nisn), pwd, svc)
}

// GenerateToken generates a signed JWT token string representing the profile Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(middleware.AlgorithmHS256), claims)
	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(tokenContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextProfile(ctx echo.Context, svc profile.ServiceInterface, clms ...Claims) (profile.Profile, error) {
	if prof, ok := ctx.Get(profileContextKey).(profile.Profile); ok {
		return prof, nil
	}

	var claims Claims
	var err error
	if len(clms) > 0 {
		claims = clms[0]
	} else {
		claims, err = getContextClaims(ctx)
		if err != nil {
			return profile.Profile{}, errors.Wrap(err, "getting context claims")
		}
	}

	prof, err := svc.GetByID(claims.Subject)
	if err != nil {
		return profile.Profile{}, errors.Wrap(err, "finding profile by ID")
	}
	ctx.Set(profileContextKey, prof)
	return prof, nil
}

// getContextScope builds the row-level scope of the authenticated caller.
// The role comes from the stored profile, never from the token.
func getContextScope(ctx echo.Context, svc profile.ServiceInterface) (authz.Scope, error) {
	prof, err := getContextProfile(ctx, svc)
	if err != nil {
		return authz.Scope{}, err
	}
	return authz.ScopeFor(prof), nil
}

func refreshToken(ctx echo.Context, conf *core.Config, svc profile.ServiceInterface) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}

	prof, err := getContextProfile(ctx, svc, claims)
	if err != nil {
		return "", errors.Wrap(err, "getting context profile")
	}

	// check if profile is still active
	if !prof.Active() {
		return "", errAccountDeactivated
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	newClaims := GetProfileClaims(conf, prof, claims.OrigIssuedAt)
	token, err := GenerateToken(conf, newClaims)
	return token, errors.Wrap(err, "generating token")
}
