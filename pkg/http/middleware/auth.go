package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const (
	operatorIssuer   = "autotrader"
	operatorAudience = "autotrader-operator"
	// OperatorContextKey holds the verified subject in echo.Context.
	OperatorContextKey = "operator"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// OperatorClaims are the claims of an operator token.
type OperatorClaims struct {
	jwt.RegisteredClaims
}

// Operators signs and checks HS256 operator tokens.
type Operators struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewOperators(secret string, ttl time.Duration) *Operators {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Operators{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for subject.
func (o *Operators) Issue(subject string) (string, error) {
	now := o.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, OperatorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    operatorIssuer,
			Audience:  []string{operatorAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(o.ttl)),
		},
	})
	signed, err := token.SignedString(o.secret)
	if err != nil {
		return "", fmt.Errorf("sign operator token: %w", err)
	}
	return signed, nil
}

// Verify returns the claims of a valid token.
func (o *Operators) Verify(tokenString string) (*OperatorClaims, error) {
	claims := &OperatorClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return o.secret, nil
	},
		jwt.WithIssuer(operatorIssuer),
		jwt.WithAudience(operatorAudience),
		jwt.WithTimeFunc(o.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// RequireOperator rejects requests without a valid "Authorization: Bearer"
// operator token. A nil Operators lets everything through.
func RequireOperator(o *Operators) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if o == nil {
				return next(c)
			}
			raw, err := bearer(c.Request().Header.Get(echo.HeaderAuthorization))
			if err == nil {
				var claims *OperatorClaims
				if claims, err = o.Verify(raw); err == nil {
					c.Set(OperatorContextKey, claims.Subject)
					return next(c)
				}
			}
			c.Response().Header().Set(echo.HeaderWWWAuthenticate, `Bearer realm="autotrader"`)
			return c.JSON(http.StatusUnauthorized, map[string]interface{}{
				"status":  http.StatusUnauthorized,
				"message": err.Error(),
			})
		}
	}
}

func bearer(h string) (string, error) {
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", ErrMissingToken
	}
	return strings.TrimSpace(h[len(prefix):]), nil
}
