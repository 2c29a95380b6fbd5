package agrosite

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/agrosite/agrosite/service"
)

func (a *App) handleAdminLogin(c echo.Context) error {
	ip := c.RealIP()
	if !a.loginLimiter.Check(ip) {
		secs := int(math.Ceil(a.loginLimiter.RetryAfter(ip).Seconds()))
		if secs > 0 {
			c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
		}
		return echo.NewHTTPError(http.StatusTooManyRequests, "too many login attempts, try again later")
	}

	var req loginRequest
	if err := bindRequest(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	admin, err := a.Services.Admins.Login(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) || errors.Is(err, service.ErrInactiveAdmin) {
			a.loginLimiter.Record(ip)
			a.requestLogger(c).Warn().Str("username", req.Username).Str("ip", ip).Msg("admin login failed")
		}
		return err
	}
	a.loginLimiter.Reset(ip)

	if err := setAdminSession(c, admin.ID); err != nil {
		return err
	}
	token, exp, err := a.tokens.Issue(admin.ID, admin.Role)
	if err != nil {
		return err
	}
	a.requestLogger(c).Info().Int64("admin_id", admin.ID).Msg("admin logged in")
	return c.JSON(http.StatusOK, LoginResponse{Token: token, ExpiresAt: exp, Admin: admin})
}

func (a *App) handleAdminLogout(c echo.Context) error {
	if err := clearAdminSession(c); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (a *App) handleAdminMe(c echo.Context) error {
	return c.JSON(http.StatusOK, MeResponse{Admin: CurrentAdmin(c), CsrfToken: CsrfToken(c)})
}

func (a *App) handleListAdmins(c echo.Context) error {
	admins, err := a.Services.Admins.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, admins)
}

func (a *App) handleGetAdmin(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	admin, err := a.Services.Admins.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, admin)
}

func (a *App) handleCreateAdmin(c echo.Context) error {
	var req adminRequest
	if err := bindRequest(c, &req); err != nil {
		return err
	}
	if req.Password == "" {
		return fieldError("password", "required")
	}
	admin, err := a.Services.Admins.Create(c.Request().Context(), service.AdminInput{
		Username: req.Username,
		Name:     req.Name,
		Role:     req.Role,
		Password: req.Password,
		IsActive: boolOr(req.IsActive, true),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, admin)
}

// handleUpdateAdmin replaces an admin's fields. An omitted password keeps the
// current one.
func (a *App) handleUpdateAdmin(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req adminRequest
	if err := bindRequest(c, &req); err != nil {
		return err
	}
	active := boolOr(req.IsActive, true)
	if me := CurrentAdmin(c); me != nil && me.ID == id && !active {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot deactivate your own account")
	}
	admin, err := a.Services.Admins.Update(c.Request().Context(), id, service.AdminInput{
		Username: req.Username,
		Name:     req.Name,
		Role:     req.Role,
		Password: req.Password,
		IsActive: active,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, admin)
}

func (a *App) handleDeleteAdmin(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if me := CurrentAdmin(c); me != nil && me.ID == id {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot delete your own account")
	}
	if err := a.Services.Admins.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
