package agrosite

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (a *App) handleListNotifications(c echo.Context) error {
	userID, err := optionalQueryID(c, "userId")
	if err != nil {
		return err
	}
	list, err := a.Services.Notifications.List(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}

func (a *App) handleGetNotification(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	n, err := a.Services.Notifications.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, n)
}

func (a *App) handleCreateNotification(c echo.Context) error {
	var req notificationRequest
	if err := bindRequest(c, &req); err != nil {
		return err
	}
	n := req.toNotification()
	if err := a.Services.Notifications.Create(c.Request().Context(), n); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, n)
}

func (a *App) handleMarkNotificationRead(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	n, err := a.Services.Notifications.MarkRead(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, n)
}

// handleMarkAllNotificationsRead marks the notifications of ?userId as read,
// or every notification when userId is absent.
func (a *App) handleMarkAllNotificationsRead(c echo.Context) error {
	userID, err := optionalQueryID(c, "userId")
	if err != nil {
		return err
	}
	n, err := a.Services.Notifications.MarkAllRead(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, CountResponse{Updated: n})
}

func (a *App) handleDeleteNotification(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := a.Services.Notifications.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
