package agrosite

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/agrosite/agrosite/store"
)

const deliveryQueued = "queued"

// handleContact stores the message and queues the operator email. The
// response does not wait for delivery.
func (a *App) handleContact(c echo.Context) error {
	var req contactRequest
	if err := bindRequest(c, &req); err != nil {
		return err
	}
	m := req.toContactMessage()
	out, err := a.Services.Forms.SubmitContact(c.Request().Context(), m)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ContactResponse{
		ContactMessage: m,
		Delivery:       DeliveryInfo{ID: out.ID, Status: deliveryQueued},
	})
}

func (a *App) handleJobApplication(c echo.Context) error {
	var req jobApplicationRequest
	if err := bindRequest(c, &req); err != nil {
		return err
	}
	app := req.toJobApplication()
	out, err := a.Services.Forms.SubmitJobApplication(c.Request().Context(), app)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, JobApplicationResponse{
		JobApplication: app,
		Delivery:       DeliveryInfo{ID: out.ID, Status: deliveryQueued},
	})
}

func (a *App) handleAdminListContacts(c echo.Context) error {
	msgs, err := a.Services.Forms.ListContacts(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, msgs)
}

func (a *App) handleAdminListJobApplications(c echo.Context) error {
	apps, err := a.Services.Forms.ListJobApplications(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, apps)
}

func (a *App) handleAdminListDeliveries(c echo.Context) error {
	status := store.OutboxStatus(c.QueryParam("status"))
	switch status {
	case "", store.OutboxPending, store.OutboxSent, store.OutboxFailed:
	default:
		return fieldError("status", "oneof")
	}
	out, err := a.Services.Forms.Deliveries(c.Request().Context(), status)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}
