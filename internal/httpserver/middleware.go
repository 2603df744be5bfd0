package httpserver

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/elitcards/storefront/internal/logging"
)

// RequestLogger attaches a per-request logger to the context and logs the
// request outcome at a level matching its status.
func RequestLogger(base *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rid := c.Request().Header.Get(echo.HeaderXRequestID)

			l := base.With(
				"method", c.Request().Method,
				"path", c.Path(),
				"url", c.Request().URL.Path,
				"remote_ip", c.RealIP(),
			)
			if rid != "" {
				l = l.With("request_id", rid)
				c.Response().Header().Set(echo.HeaderXRequestID, rid)
			}

			req := c.Request().WithContext(logging.IntoContext(c.Request().Context(), l))
			c.SetRequest(req)

			start := time.Now()
			err := next(c)
			dur := time.Since(start)
			status := c.Response().Status

			if err != nil {
				c.Echo().HTTPErrorHandler(err, c)
				status = c.Response().Status
			}

			switch {
			case err != nil || status >= 500:
				l.Error("request completed", "status", status, "duration_ms", dur.Milliseconds(), "error", errStr(err))
			case status >= 400:
				l.Warn("request completed", "status", status, "duration_ms", dur.Milliseconds())
			default:
				l.Info("request completed", "status", status, "duration_ms", dur.Milliseconds(), "bytes", c.Response().Size)
			}
			return nil
		}
	}
}

func errStr(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("%v", err)
}

const ctxEmailKey = "email"

// RequireAuth validates the access token from the cookie or Authorization
// header and stores the account email on the echo context.
func RequireAuth(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := ""
			if ck, err := c.Cookie("accessToken"); err == nil {
				raw = ck.Value
			}
			if raw == "" {
				if h := c.Request().Header.Get(echo.HeaderAuthorization); strings.HasPrefix(h, "Bearer ") {
					raw = strings.TrimPrefix(h, "Bearer ")
				}
			}
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, "unauthorized")
			}

			claims, err := accessClaimsFromToken(raw, secret)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, "unauthorized")
			}
			c.Set(ctxEmailKey, claims.Subject)
			return next(c)
		}
	}
}

func emailFromContext(c echo.Context) (string, bool) {
	s, ok := c.Get(ctxEmailKey).(string)
	return s, ok && s != ""
}
