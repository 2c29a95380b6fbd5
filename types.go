package agrosite

import (
	"time"

	"github.com/agrosite/agrosite/store"
)

// DeliveryInfo reports the queued operator email of a form submission.
type DeliveryInfo struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

// ContactResponse is the body returned for a stored contact message.
type ContactResponse struct {
	*store.ContactMessage
	Delivery DeliveryInfo `json:"delivery"`
}

// JobApplicationResponse is the body returned for a stored job application.
type JobApplicationResponse struct {
	*store.JobApplication
	Delivery DeliveryInfo `json:"delivery"`
}

// CountResponse reports how many rows a bulk update changed.
type CountResponse struct {
	Updated int64 `json:"updated"`
}

// LoginResponse carries the bearer token issued at login. The session cookie
// is set alongside it.
type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	Admin     *store.Admin `json:"admin"`
}

// MeResponse describes the authenticated admin and the CSRF token to send with
// cookie-authenticated writes.
type MeResponse struct {
	Admin     *store.Admin `json:"admin"`
	CsrfToken string       `json:"csrfToken,omitempty"`
}

// ImageResponse is image metadata plus its public URL.
type ImageResponse struct {
	store.Image
	URL string `json:"url"`
}

// HealthResponse is returned by /healthz.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}
