package httpserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/elitcards/storefront/internal/events"
	"github.com/elitcards/storefront/internal/logging"
	"github.com/elitcards/storefront/internal/models"
	"github.com/elitcards/storefront/internal/session"
)

type AuthHTTP struct {
	Svc       *session.Service
	Events    *events.Producer
	JWTSecret []byte
}

type userResponse struct {
	RemoteID string `json:"pbId,omitempty"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	JoinDate string `json:"joinDate"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{
		RemoteID: u.RemoteID,
		Name:     u.Name,
		Email:    u.Email,
		JoinDate: u.JoinDate,
	}
}

func createCookie(name, value, path string, exp time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Expires:  exp,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.register")

	var req struct {
		Name            string `json:"name"`
		Email           string `json:"email"`
		Password        string `json:"password"`
		PasswordConfirm string `json:"password_confirm"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return c.JSON(http.StatusBadRequest, "invalid body")
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, "name, email and password required")
	}
	if req.Password != req.PasswordConfirm {
		return c.JSON(http.StatusBadRequest, "passwords do not match")
	}

	// Duplicate check happens here, before AddUser is ever invoked.
	exists, err := h.Svc.UserExists(req.Email)
	if err != nil {
		l.Error("register_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, "internal error")
	}
	if exists {
		l.Warn("register_error", "status", 409, "reason", "email already registered")
		return c.JSON(http.StatusConflict, "an account with this email already exists")
	}

	user, source, err := h.Svc.AddUser(ctx, req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, session.ErrValidation) {
			return c.JSON(http.StatusBadRequest, err.Error())
		}
		l.Error("register_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, "internal error")
	}

	if err := h.Svc.SetCurrentUser(user); err != nil {
		l.Error("register_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, "internal error")
	}
	if err := h.setAccessCookie(c, user); err != nil {
		l.Error("register_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, "internal error")
	}

	if err := h.Events.Publish(ctx, user.Email, map[string]any{
		"type":  "user_registered",
		"email": user.Email,
		"name":  user.Name,
	}); err != nil {
		l.Warn("event publish failed", "error", err)
	}

	l.Info("register_success", "source", source)
	return c.JSON(http.StatusCreated, map[string]any{
		"user":   toUserResponse(user),
		"source": source,
	})
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return c.JSON(http.StatusBadRequest, "invalid body")
	}
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, "email and password required")
	}

	user, source, err := h.Svc.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			l.Warn("login_error", "status", 401, "reason", "invalid credentials")
			return c.JSON(http.StatusUnauthorized, "invalid email or password")
		}
		l.Error("login_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, "internal error")
	}

	if err := h.setAccessCookie(c, user); err != nil {
		l.Error("login_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, "internal error")
	}

	l.Info("login_success", "source", source)
	return c.JSON(http.StatusOK, map[string]any{
		"user":   toUserResponse(user),
		"source": source,
	})
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.logout")

	if err := h.Svc.SetCurrentUser(nil); err != nil {
		l.Error("logout_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, "internal error")
	}

	expired := time.Now().Add(-1 * time.Hour)
	c.SetCookie(createCookie("accessToken", "", "/", expired))

	return c.JSON(http.StatusOK, map[string]string{"message": "logged out"})
}

func (h *AuthHTTP) Me(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.me")

	user, err := h.Svc.CurrentUser()
	if err != nil {
		l.Error("me_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, "internal error")
	}
	if user == nil {
		return c.JSON(http.StatusUnauthorized, "not logged in")
	}
	return c.JSON(http.StatusOK, toUserResponse(user))
}

func (h *AuthHTTP) setAccessCookie(c echo.Context, user *models.User) error {
	exp := time.Now().Add(accessTokenTTL)
	token, err := createAccessToken(h.JWTSecret, user.Email, user.Name, exp)
	if err != nil {
		return err
	}
	c.SetCookie(createCookie("accessToken", token, "/", exp))
	return nil
}
