package store

import "time"

// User is a site account. The password is only ever stored as a bcrypt hash.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Product is a catalog entry. Inactive products are hidden from public reads.
type Product struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Benefits    []string  `json:"benefits"`
	ImageURL    *string   `json:"imageUrl"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// BlogPost is a published article. Inactive posts are hidden from public reads.
type BlogPost struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Excerpt     string    `json:"excerpt"`
	Content     string    `json:"content"`
	Category    string    `json:"category"`
	ImageURL    *string   `json:"imageUrl"`
	PublishedAt time.Time `json:"publishedAt"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ContactMessage is a submission of the public contact form.
// ProductID is an advisory hint and is not checked against the catalog.
type ContactMessage struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     *string   `json:"phone"`
	Subject   *string   `json:"subject"`
	Message   string    `json:"message"`
	ProductID *int64    `json:"productId"`
	CreatedAt time.Time `json:"createdAt"`
}

// JobApplication is a submission of the careers form.
type JobApplication struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	AreaOfInterest string    `json:"areaOfInterest"`
	ResumeURL      *string   `json:"resumeUrl"`
	Message        *string   `json:"message"`
	CreatedAt      time.Time `json:"createdAt"`
}

// NotificationType classifies a notification for display.
type NotificationType string

const (
	NotificationInfo    NotificationType = "info"
	NotificationSuccess NotificationType = "success"
	NotificationWarning NotificationType = "warning"
	NotificationError   NotificationType = "error"
)

// Valid reports whether t is one of the four known types.
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationInfo, NotificationSuccess, NotificationWarning, NotificationError:
		return true
	}
	return false
}

// Notification is an in-app message, optionally addressed to a single user.
type Notification struct {
	ID        int64            `json:"id"`
	UserID    *int64           `json:"userId"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Type      NotificationType `json:"type"`
	IsRead    bool             `json:"isRead"`
	ActionURL *string          `json:"actionUrl"`
	CreatedAt time.Time        `json:"createdAt"`
}

// Admin roles.
const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
)

// Admin is a back-office account.
type Admin struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"isActive"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// OutboxKind names the record an outbox message delivers.
type OutboxKind string

const (
	OutboxContactMessage OutboxKind = "contact_message"
	OutboxJobApplication OutboxKind = "job_application"
)

// OutboxStatus is the delivery state of an outbox message.
type OutboxStatus string

const (
	OutboxPending OutboxStatus = "pending"
	OutboxSent    OutboxStatus = "sent"
	OutboxFailed  OutboxStatus = "failed"
)

// OutboxMessage is a durable email delivery task written in the same
// transaction as the record it announces.
type OutboxMessage struct {
	ID            int64        `json:"id"`
	Kind          OutboxKind   `json:"kind"`
	RefID         int64        `json:"refId"`
	Status        OutboxStatus `json:"status"`
	Attempts      int          `json:"attempts"`
	NextAttemptAt time.Time    `json:"nextAttemptAt"`
	LastError     string       `json:"lastError,omitempty"`
	CreatedAt     time.Time    `json:"createdAt"`
	SentAt        *time.Time   `json:"sentAt"`
}

// Image is metadata for an uploaded, re-encoded image.
type Image struct {
	ID           int64     `json:"id"`
	Filename     string    `json:"filename"`
	OriginalName string    `json:"originalName"`
	Width        int       `json:"width"`
	Height       int       `json:"height"`
	Size         int       `json:"size"`
	UploadedAt   time.Time `json:"uploadedAt"`
}
