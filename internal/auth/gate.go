package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "campusconnect/internal/errors"
	"campusconnect/internal/model"
)

const (
	// ContextKeyUser holds the authenticated model.PublicUser.
	ContextKeyUser = "user"
	// ContextKeyClaims holds the verified *Claims.
	ContextKeyClaims = "claims"

	verifyErrKey = "auth.verify_error"
)

// UserLookup resolves the identity behind a verified token. It must not load
// the password hash and returns gorm.ErrRecordNotFound for unknown ids.
type UserLookup interface {
	FindPublicByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}

// Gate authenticates requests with one token kind.
type Gate struct {
	codec   *JWTService
	users   UserLookup
	logger  *zap.Logger
	refresh bool
}

// NewAccessGate returns the gate for access tokens. Failures are 401.
func NewAccessGate(codec *JWTService, users UserLookup, logger *zap.Logger) *Gate {
	return &Gate{codec: codec, users: users, logger: logger}
}

// NewRefreshGate returns the gate for refresh tokens. Verification failures
// are 403 so clients fall back to a full login.
func NewRefreshGate(codec *JWTService, users UserLookup, logger *zap.Logger) *Gate {
	return &Gate{codec: codec, users: users, logger: logger, refresh: true}
}

// Middleware extracts the bearer token, verifies it, loads the user and
// stores both in the request context.
func (g *Gate) Middleware() echo.MiddlewareFunc {
	verify := echojwt.WithConfig(echojwt.Config{
		TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ",
		ContextKey:  ContextKeyClaims,
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			claims, err := g.codec.Verify(token)
			if err != nil {
				c.Set(verifyErrKey, err)
				return nil, err
			}
			return claims, nil
		},
		ErrorHandler: g.reject,
	})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return verify(g.attachUser(next))
	}
}

func (g *Gate) reject(c echo.Context, _ error) error {
	verifyErr, _ := c.Get(verifyErrKey).(error)
	switch {
	case verifyErr == nil:
		return g.fail(c, http.StatusUnauthorized, "authentication required", "NO_TOKEN")
	case errors.Is(verifyErr, ErrTokenExpired):
		if g.refresh {
			return g.fail(c, http.StatusForbidden, "refresh token expired", "REFRESH_TOKEN_EXPIRED")
		}
		return g.fail(c, http.StatusUnauthorized, "token expired", "TOKEN_EXPIRED")
	default:
		if g.refresh {
			return g.fail(c, http.StatusForbidden, "invalid refresh token", "INVALID_REFRESH_TOKEN")
		}
		return g.fail(c, http.StatusUnauthorized, "invalid token", "INVALID_TOKEN")
	}
}

func (g *Gate) attachUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, ok := c.Get(ContextKeyClaims).(*Claims)
		if !ok {
			return g.fail(c, g.verifyStatus(), "invalid token", "INVALID_TOKEN")
		}

		id, err := uuid.Parse(claims.UserID)
		if err != nil {
			return g.fail(c, g.verifyStatus(), "invalid token", "INVALID_TOKEN")
		}

		user, err := g.users.FindPublicByID(c.Request().Context(), id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return g.fail(c, g.verifyStatus(), "user not found", "USER_NOT_FOUND")
			}
			g.logger.Error("auth.gate.lookup_failed", zap.String("userId", claims.UserID), zap.Error(err))
			return echo.NewHTTPError(http.StatusInternalServerError, apperrors.ErrorResponse{
				Error: "authentication check failed",
				Code:  "INTERNAL_ERROR",
			})
		}

		c.Set(ContextKeyUser, model.NewPublicUser(user))
		return next(c)
	}
}

func (g *Gate) verifyStatus() int {
	if g.refresh {
		return http.StatusForbidden
	}
	return http.StatusUnauthorized
}

func (g *Gate) fail(c echo.Context, status int, message, code string) error {
	g.logger.Warn("auth.gate.rejected",
		zap.String("code", code),
		zap.Bool("refresh", g.refresh),
		zap.String("path", c.Path()),
	)
	return echo.NewHTTPError(status, apperrors.ErrorResponse{Error: message, Code: code})
}

// CurrentUser returns the user attached by a gate.
func CurrentUser(c echo.Context) (model.PublicUser, bool) {
	user, ok := c.Get(ContextKeyUser).(model.PublicUser)
	return user, ok
}

// CurrentClaims returns the claims attached by a gate.
func CurrentClaims(c echo.Context) (*Claims, bool) {
	claims, ok := c.Get(ContextKeyClaims).(*Claims)
	return claims, ok
}
