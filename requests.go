package agrosite

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/agrosite/agrosite/auth"
	"github.com/agrosite/agrosite/store"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// requestValidator adapts go-playground/validator to echo.Validator and
// reports failures as a ValidationError keyed by JSON field names.
type requestValidator struct {
	v *validator.Validate
}

func newRequestValidator() *requestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugPattern.MatchString(fl.Field().String())
	})
	// max counts characters; bcrypt limits bytes.
	_ = v.RegisterValidation("bcryptlen", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= auth.MaxPasswordBytes
	})
	return &requestValidator{v: v}
}

func (rv *requestValidator) Validate(i any) error {
	err := rv.v.Struct(i)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	return &ValidationError{Fields: fields}
}

type normalizer interface {
	normalize()
}

// bindRequest decodes the body into req, applies its defaults and validates it.
func bindRequest(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return err
	}
	if n, ok := req.(normalizer); ok {
		n.normalize()
	}
	return c.Validate(req)
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func boolOr(b *bool, fallback bool) bool {
	if b == nil {
		return fallback
	}
	return *b
}

type productRequest struct {
	Name        string   `json:"name" validate:"required,max=200"`
	Slug        string   `json:"slug" validate:"required,max=200,slug"`
	Category    string   `json:"category" validate:"required,max=100"`
	Description string   `json:"description" validate:"required"`
	Benefits    []string `json:"benefits" validate:"required,dive,required"`
	ImageURL    *string  `json:"imageUrl" validate:"omitempty,uri"`
	IsActive    *bool    `json:"isActive"`
}

func (r *productRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Slug = strings.TrimSpace(r.Slug)
	if r.Slug == "" {
		r.Slug = Slugify(r.Name)
	}
	r.Category = strings.TrimSpace(r.Category)
	for i := range r.Benefits {
		r.Benefits[i] = strings.TrimSpace(r.Benefits[i])
	}
	r.ImageURL = trimPtr(r.ImageURL)
}

func (r *productRequest) toProduct(id int64) *store.Product {
	return &store.Product{
		ID:          id,
		Name:        r.Name,
		Slug:        r.Slug,
		Category:    r.Category,
		Description: r.Description,
		Benefits:    r.Benefits,
		ImageURL:    r.ImageURL,
		IsActive:    boolOr(r.IsActive, true),
	}
}

type blogPostRequest struct {
	Title       string     `json:"title" validate:"required,max=300"`
	Slug        string     `json:"slug" validate:"required,max=300,slug"`
	Excerpt     string     `json:"excerpt" validate:"required,max=1000"`
	Content     string     `json:"content" validate:"required"`
	Category    string     `json:"category" validate:"required,max=100"`
	ImageURL    *string    `json:"imageUrl" validate:"omitempty,uri"`
	PublishedAt *time.Time `json:"publishedAt"`
	IsActive    *bool      `json:"isActive"`
}

func (r *blogPostRequest) normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Slug = strings.TrimSpace(r.Slug)
	if r.Slug == "" {
		r.Slug = Slugify(r.Title)
	}
	r.Excerpt = strings.TrimSpace(r.Excerpt)
	r.Category = strings.TrimSpace(r.Category)
	r.ImageURL = trimPtr(r.ImageURL)
}

func (r *blogPostRequest) toBlogPost(id int64) *store.BlogPost {
	p := &store.BlogPost{
		ID:       id,
		Title:    r.Title,
		Slug:     r.Slug,
		Excerpt:  r.Excerpt,
		Content:  r.Content,
		Category: r.Category,
		ImageURL: r.ImageURL,
		IsActive: boolOr(r.IsActive, true),
	}
	if r.PublishedAt != nil {
		p.PublishedAt = r.PublishedAt.UTC()
	}
	return p
}

type contactRequest struct {
	Name      string  `json:"name" validate:"required,max=200"`
	Email     string  `json:"email" validate:"required,email,max=254"`
	Phone     *string `json:"phone" validate:"omitempty,max=50"`
	Subject   *string `json:"subject" validate:"omitempty,max=300"`
	Message   string  `json:"message" validate:"required,max=5000"`
	ProductID *int64  `json:"productId" validate:"omitempty,gt=0"`
}

func (r *contactRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.Phone = trimPtr(r.Phone)
	r.Subject = trimPtr(r.Subject)
	r.Message = strings.TrimSpace(r.Message)
}

func (r *contactRequest) toContactMessage() *store.ContactMessage {
	return &store.ContactMessage{
		Name:      r.Name,
		Email:     r.Email,
		Phone:     r.Phone,
		Subject:   r.Subject,
		Message:   r.Message,
		ProductID: r.ProductID,
	}
}

type jobApplicationRequest struct {
	Name           string  `json:"name" validate:"required,max=200"`
	Email          string  `json:"email" validate:"required,email,max=254"`
	AreaOfInterest string  `json:"areaOfInterest" validate:"required,max=200"`
	ResumeURL      *string `json:"resumeUrl" validate:"omitempty,url"`
	Message        *string `json:"message" validate:"omitempty,max=5000"`
}

func (r *jobApplicationRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.AreaOfInterest = strings.TrimSpace(r.AreaOfInterest)
	r.ResumeURL = trimPtr(r.ResumeURL)
	r.Message = trimPtr(r.Message)
}

func (r *jobApplicationRequest) toJobApplication() *store.JobApplication {
	return &store.JobApplication{
		Name:           r.Name,
		Email:          r.Email,
		AreaOfInterest: r.AreaOfInterest,
		ResumeURL:      r.ResumeURL,
		Message:        r.Message,
	}
}

type notificationRequest struct {
	UserID    *int64  `json:"userId" validate:"omitempty,gt=0"`
	Title     string  `json:"title" validate:"required,max=200"`
	Message   string  `json:"message" validate:"required,max=2000"`
	Type      string  `json:"type" validate:"omitempty,oneof=info success warning error"`
	ActionURL *string `json:"actionUrl" validate:"omitempty,uri"`
}

func (r *notificationRequest) normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Type = strings.TrimSpace(r.Type)
	r.ActionURL = trimPtr(r.ActionURL)
}

func (r *notificationRequest) toNotification() *store.Notification {
	return &store.Notification{
		UserID:    r.UserID,
		Title:     r.Title,
		Message:   r.Message,
		Type:      store.NotificationType(r.Type),
		ActionURL: r.ActionURL,
	}
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (r *loginRequest) normalize() {
	r.Username = strings.TrimSpace(r.Username)
}

type adminRequest struct {
	Username string `json:"username" validate:"required,max=100"`
	Name     string `json:"name" validate:"max=200"`
	Role     string `json:"role" validate:"omitempty,oneof=admin editor"`
	Password string `json:"password" validate:"omitempty,min=8,bcryptlen"`
	IsActive *bool  `json:"isActive"`
}

func (r *adminRequest) normalize() {
	r.Username = strings.TrimSpace(r.Username)
	r.Name = strings.TrimSpace(r.Name)
	r.Role = strings.TrimSpace(r.Role)
}
