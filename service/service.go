// Package service implements the site's use cases on top of store.Store:
// catalog reads and writes, form intake with queued delivery, notifications
// and back-office accounts.
package service

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/agrosite/agrosite/store"
)

var (
	// ErrInvalidCredentials is returned by Login for an unknown username or a
	// wrong password.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrInactiveAdmin is returned when a disabled admin logs in or presents a
	// token.
	ErrInactiveAdmin = errors.New("admin account is disabled")
	// ErrInvalidNotificationType is returned for a type outside
	// info, success, warning and error.
	ErrInvalidNotificationType = errors.New("invalid notification type")
)

// Nudger is told when new outbox messages have been committed.
type Nudger interface {
	Nudge()
}

// Services groups every use case behind one value for the HTTP layer.
type Services struct {
	Products      *ProductService
	Blog          *BlogService
	Forms         *FormService
	Notifications *NotificationService
	Admins        *AdminService
	Users         *UserService
	Images        *ImageService
}

type options struct {
	bcryptCost int
	nudger     Nudger
}

// Option customises New.
type Option func(*options)

// WithBcryptCost sets the cost used for new password hashes.
func WithBcryptCost(cost int) Option {
	return func(o *options) { o.bcryptCost = cost }
}

// WithNudger registers the delivery worker to wake after form submissions.
func WithNudger(n Nudger) Option {
	return func(o *options) { o.nudger = n }
}

// New builds all services over s.
func New(s store.Store, opts ...Option) *Services {
	o := options{bcryptCost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(&o)
	}
	return &Services{
		Products:      &ProductService{store: s},
		Blog:          &BlogService{store: s},
		Forms:         &FormService{store: s, nudger: o.nudger},
		Notifications: &NotificationService{store: s},
		Admins:        &AdminService{store: s, cost: o.bcryptCost},
		Users:         &UserService{store: s, cost: o.bcryptCost},
		Images:        &ImageService{store: s},
	}
}
