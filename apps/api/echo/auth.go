package echoapi

import (
	"crypto/subtle"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/apiwada/portal/core"
	"github.com/apiwada/portal/core/user"
)

var (
	// appJWTConfig is the default JWT auth middleware config.
	appJWTConfig = middleware.JWTConfig{
		SigningKey:    []byte(core.Conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    "userToken",
		Claims:        new(Claims),
	}
	contextUserKey = "user"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	Name         string `json:"name,omitempty"`
	Contact      string `json:"contact,omitempty"`
	ExamYear     string `json:"examYear,omitempty"`
	IsAdmin      bool   `json:"is_admin,omitempty"`
	// AdminID is the configured back-office identifier; admin sessions are
	// rebuilt from it without a store lookup.
	AdminID string `json:"admin_id,omitempty"`
}

func GetUserClaims(usr user.User, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	var oriat int64
	if len(origIat) > 0 {
		oriat = origIat[0]
	} else {
		oriat = nownix
	}

	claims := &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    core.Conf.AppName,
			Subject:   usr.IndexNumber,
			Audience:  "Portal",
			ExpiresAt: now.Add(core.Conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Name:         usr.Name,
		Contact:      usr.Contact,
		ExamYear:     usr.ExamYear,
		IsAdmin:      usr.IsAdmin(),
	}
	if usr.IsAdmin() {
		claims.AdminID = usr.Contact
	}
	return claims
}

// authenticate resolves an identifier/credential pair into session claims.
// Configured back-office identifiers take precedence and never fall through
// to the student lookup; exactly one of four outcomes is possible: success,
// invalid admin credential, unrecognized identifier or incorrect password.
func authenticate(identifier, pwd string, svc user.Service, ctx echo.Context) (*Claims, error) {
	if expected, ok := core.Conf.AdminCredentials[identifier]; ok {
		if subtle.ConstantTimeCompare([]byte(expected), []byte(pwd)) != 1 {
			return nil, errInvalidAdminCredential
		}
		return GetUserClaims(user.NewAdminSession(identifier)), nil
	}

	usr, err := svc.GetByContact(ctx.Request().Context(), identifier)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return nil, errUnknownIdentifier
		}
		return nil, errors.Wrap(err, "finding user by contact")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return nil, errIncorrectPassword
	}
	return GetUserClaims(usr), nil
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(appJWTConfig.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(appJWTConfig.SigningKey)
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(appJWTConfig.ContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextUser(ctx echo.Context, svc user.Service, clms ...Claims) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}

	var claims Claims
	var err error
	if len(clms) > 0 {
		claims = clms[0]
	} else {
		claims, err = getContextClaims(ctx)
		if err != nil {
			return user.User{}, errors.Wrap(err, "getting context claims")
		}
	}

	// admin sessions are synthetic; they do not exist in the store
	if claims.IsAdmin {
		if _, ok := core.Conf.AdminCredentials[claims.AdminID]; !ok {
			return user.User{}, errUnauthorized
		}
		usr := user.NewAdminSession(claims.AdminID)
		ctx.Set(contextUserKey, usr)
		return usr, nil
	}

	usr, err := svc.GetByIndex(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return user.User{}, errors.Wrap(err, "finding user by index number")
	}
	ctx.Set(contextUserKey, usr)
	return usr, nil
}

func refreshToken(ctx echo.Context, svc user.Service) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}

	usr, err := getContextUser(ctx, svc, claims)
	if err != nil {
		return "", errors.Wrap(err, "getting context user")
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(core.Conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	newClaims := GetUserClaims(usr, claims.OrigIssuedAt)
	token, err := GenerateToken(newClaims)
	return token, errors.Wrap(err, "generating token")
}
