// Package store persists the site's records behind per-entity repository
// interfaces. The SQL implementation in this package runs on SQLite or
// PostgreSQL; package memstore provides an in-memory implementation for tests.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a record with the requested key does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write would violate a uniqueness constraint.
	ErrConflict = errors.New("already exists")
)

// ProductFilter narrows Products.List.
type ProductFilter struct {
	Category        string
	IncludeInactive bool
}

// BlogFilter narrows BlogPosts.List. Limit is applied after the category
// filter; zero means no limit.
type BlogFilter struct {
	Category        string
	Limit           int
	IncludeInactive bool
}

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	List(ctx context.Context) ([]User, error)
}

type ProductRepository interface {
	List(ctx context.Context, f ProductFilter) ([]Product, error)
	GetBySlug(ctx context.Context, slug string, includeInactive bool) (*Product, error)
	GetByID(ctx context.Context, id int64) (*Product, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	SetActive(ctx context.Context, id int64, active bool) error
}

type BlogPostRepository interface {
	List(ctx context.Context, f BlogFilter) ([]BlogPost, error)
	GetBySlug(ctx context.Context, slug string, includeInactive bool) (*BlogPost, error)
	GetByID(ctx context.Context, id int64) (*BlogPost, error)
	Create(ctx context.Context, p *BlogPost) error
	Update(ctx context.Context, p *BlogPost) error
	SetActive(ctx context.Context, id int64, active bool) error
}

type ContactMessageRepository interface {
	Create(ctx context.Context, m *ContactMessage) error
	GetByID(ctx context.Context, id int64) (*ContactMessage, error)
	List(ctx context.Context) ([]ContactMessage, error)
}

type JobApplicationRepository interface {
	Create(ctx context.Context, a *JobApplication) error
	GetByID(ctx context.Context, id int64) (*JobApplication, error)
	List(ctx context.Context) ([]JobApplication, error)
}

type NotificationRepository interface {
	// List returns notifications newest first. A nil userID lists all.
	List(ctx context.Context, userID *int64) ([]Notification, error)
	GetByID(ctx context.Context, id int64) (*Notification, error)
	Create(ctx context.Context, n *Notification) error
	MarkRead(ctx context.Context, id int64) error
	// MarkAllRead marks every unread notification of userID as read, or every
	// notification in the store when userID is nil. It returns the number of
	// rows changed.
	MarkAllRead(ctx context.Context, userID *int64) (int64, error)
	Delete(ctx context.Context, id int64) error
}

type AdminRepository interface {
	List(ctx context.Context) ([]Admin, error)
	GetByID(ctx context.Context, id int64) (*Admin, error)
	GetByUsername(ctx context.Context, username string) (*Admin, error)
	Create(ctx context.Context, a *Admin) error
	// Update replaces the editable fields. An empty PasswordHash keeps the
	// stored hash.
	Update(ctx context.Context, a *Admin) error
	Delete(ctx context.Context, id int64) error
}

type OutboxRepository interface {
	Enqueue(ctx context.Context, m *OutboxMessage) error
	// Due returns up to limit pending messages whose next attempt is at or
	// before now, oldest first.
	Due(ctx context.Context, now time.Time, limit int) ([]OutboxMessage, error)
	MarkSent(ctx context.Context, id int64, at time.Time) error
	// MarkAttempt records a failed delivery. A zero next marks the message as
	// terminally failed.
	MarkAttempt(ctx context.Context, id int64, attempts int, next time.Time, lastErr string) error
	// List returns messages with the given status, or all when status is empty.
	List(ctx context.Context, status OutboxStatus) ([]OutboxMessage, error)
}

type ImageRepository interface {
	Create(ctx context.Context, img *Image) error
	List(ctx context.Context) ([]Image, error)
	GetByFilename(ctx context.Context, filename string) (*Image, error)
	Delete(ctx context.Context, filename string) error
}

// Store groups the repositories. Repositories obtained from the Store passed
// to a WithTx callback share that transaction.
type Store interface {
	Users() UserRepository
	Products() ProductRepository
	BlogPosts() BlogPostRepository
	ContactMessages() ContactMessageRepository
	JobApplications() JobApplicationRepository
	Notifications() NotificationRepository
	Admins() AdminRepository
	Outbox() OutboxRepository
	Images() ImageRepository

	// WithTx runs fn atomically. fn's error rolls the transaction back.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
	Close() error
}
