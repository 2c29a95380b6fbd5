// Package memstore is an in-memory store.Store used by tests and local
// experiments. It honours the same uniqueness, soft-delete and not-found rules
// as the SQL store.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/agrosite/agrosite/store"
)

type state struct {
	nextID        map[string]int64
	users         map[int64]store.User
	products      map[int64]store.Product
	posts         map[int64]store.BlogPost
	contacts      map[int64]store.ContactMessage
	jobs          map[int64]store.JobApplication
	notifications map[int64]store.Notification
	admins        map[int64]store.Admin
	outbox        map[int64]store.OutboxMessage
	images        map[int64]store.Image
}

func newState() *state {
	return &state{
		nextID:        map[string]int64{},
		users:         map[int64]store.User{},
		products:      map[int64]store.Product{},
		posts:         map[int64]store.BlogPost{},
		contacts:      map[int64]store.ContactMessage{},
		jobs:          map[int64]store.JobApplication{},
		notifications: map[int64]store.Notification{},
		admins:        map[int64]store.Admin{},
		outbox:        map[int64]store.OutboxMessage{},
		images:        map[int64]store.Image{},
	}
}

func (st *state) clone() *state {
	c := newState()
	for k, v := range st.nextID {
		c.nextID[k] = v
	}
	copyMap(c.users, st.users)
	copyMap(c.products, st.products)
	copyMap(c.posts, st.posts)
	copyMap(c.contacts, st.contacts)
	copyMap(c.jobs, st.jobs)
	copyMap(c.notifications, st.notifications)
	copyMap(c.admins, st.admins)
	copyMap(c.outbox, st.outbox)
	copyMap(c.images, st.images)
	return c
}

func copyMap[V any](dst, src map[int64]V) {
	for k, v := range src {
		dst[k] = v
	}
}

func (st *state) id(table string) int64 {
	st.nextID[table]++
	return st.nextID[table]
}

// Store is a mutex-guarded in-memory store.Store.
type Store struct {
	mu   *sync.Mutex
	txMu *sync.Mutex
	st   *state
	inTx bool
	now  func() time.Time
}

var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		mu:   &sync.Mutex{},
		txMu: &sync.Mutex{},
		st:   newState(),
		now:  func() time.Time { return time.Now().UTC().Truncate(time.Second) },
	}
}

// SetClock overrides the time source used for created/updated stamps.
func (s *Store) SetClock(now func() time.Time) { s.now = now }

func (s *Store) Close() error { return nil }

// WithTx serialises transactions and restores a snapshot when fn fails.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx store.Store) error) error {
	if s.inTx {
		return fn(ctx, s)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.st.clone()
	s.mu.Unlock()

	tx := &Store{mu: s.mu, txMu: s.txMu, st: s.st, inTx: true, now: s.now}
	if err := fn(ctx, tx); err != nil {
		s.mu.Lock()
		*s.st = *snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) Users() store.UserRepository                     { return users{s} }
func (s *Store) Products() store.ProductRepository               { return products{s} }
func (s *Store) BlogPosts() store.BlogPostRepository             { return posts{s} }
func (s *Store) ContactMessages() store.ContactMessageRepository { return contacts{s} }
func (s *Store) JobApplications() store.JobApplicationRepository { return jobs{s} }
func (s *Store) Notifications() store.NotificationRepository     { return notifications{s} }
func (s *Store) Admins() store.AdminRepository                   { return admins{s} }
func (s *Store) Outbox() store.OutboxRepository                  { return outbox{s} }
func (s *Store) Images() store.ImageRepository                   { return images{s} }

func conflict(what, key string) error {
	return fmt.Errorf("%w: %s %q", store.ErrConflict, what, key)
}

func sortedIDs[V any](m map[int64]V) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// users

type users struct{ s *Store }

func (r users) Create(_ context.Context, u *store.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, ex := range r.s.st.users {
		if ex.Username == u.Username {
			return conflict("user", u.Username)
		}
	}
	u.ID = r.s.st.id("users")
	u.CreatedAt = r.s.now()
	r.s.st.users[u.ID] = *u
	return nil
}

func (r users) GetByID(_ context.Context, id int64) (*store.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.st.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (r users) GetByUsername(_ context.Context, username string) (*store.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.st.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r users) List(_ context.Context) ([]store.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []store.User{}
	for _, id := range sortedIDs(r.s.st.users) {
		out = append(out, r.s.st.users[id])
	}
	return out, nil
}

// products

type products struct{ s *Store }

func (r products) List(_ context.Context, f store.ProductFilter) ([]store.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []store.Product{}
	for _, id := range sortedIDs(r.s.st.products) {
		p := r.s.st.products[id]
		if !f.IncludeInactive && !p.IsActive {
			continue
		}
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		p.Benefits = cloneStrings(p.Benefits)
		out = append(out, p)
	}
	return out, nil
}

func (r products) GetBySlug(_ context.Context, slug string, includeInactive bool) (*store.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.st.products {
		if p.Slug == slug && (includeInactive || p.IsActive) {
			p.Benefits = cloneStrings(p.Benefits)
			return &p, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r products) GetByID(_ context.Context, id int64) (*store.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.st.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	p.Benefits = cloneStrings(p.Benefits)
	return &p, nil
}

func (r products) slugTaken(slug string, except int64) bool {
	for id, p := range r.s.st.products {
		if id != except && p.Slug == slug {
			return true
		}
	}
	return false
}

func (r products) Create(_ context.Context, p *store.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.slugTaken(p.Slug, 0) {
		return conflict("product slug", p.Slug)
	}
	now := r.s.now()
	p.ID = r.s.st.id("products")
	p.CreatedAt, p.UpdatedAt = now, now
	p.Benefits = cloneStrings(p.Benefits)
	r.s.st.products[p.ID] = *p
	return nil
}

func (r products) Update(_ context.Context, p *store.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	old, ok := r.s.st.products[p.ID]
	if !ok {
		return store.ErrNotFound
	}
	if r.slugTaken(p.Slug, p.ID) {
		return conflict("product slug", p.Slug)
	}
	p.CreatedAt = old.CreatedAt
	p.UpdatedAt = r.s.now()
	p.Benefits = cloneStrings(p.Benefits)
	r.s.st.products[p.ID] = *p
	return nil
}

func (r products) SetActive(_ context.Context, id int64, active bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.st.products[id]
	if !ok {
		return store.ErrNotFound
	}
	p.IsActive = active
	p.UpdatedAt = r.s.now()
	r.s.st.products[id] = p
	return nil
}

// blog posts

type posts struct{ s *Store }

func (r posts) List(_ context.Context, f store.BlogFilter) ([]store.BlogPost, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []store.BlogPost{}
	for _, p := range r.s.st.posts {
		if !f.IncludeInactive && !p.IsActive {
			continue
		}
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PublishedAt.Equal(out[j].PublishedAt) {
			return out[i].PublishedAt.After(out[j].PublishedAt)
		}
		return out[i].ID > out[j].ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r posts) GetBySlug(_ context.Context, slug string, includeInactive bool) (*store.BlogPost, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.st.posts {
		if p.Slug == slug && (includeInactive || p.IsActive) {
			return &p, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r posts) GetByID(_ context.Context, id int64) (*store.BlogPost, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.st.posts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (r posts) slugTaken(slug string, except int64) bool {
	for id, p := range r.s.st.posts {
		if id != except && p.Slug == slug {
			return true
		}
	}
	return false
}

func (r posts) Create(_ context.Context, p *store.BlogPost) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.slugTaken(p.Slug, 0) {
		return conflict("blog slug", p.Slug)
	}
	now := r.s.now()
	if p.PublishedAt.IsZero() {
		p.PublishedAt = now
	}
	p.ID = r.s.st.id("posts")
	p.CreatedAt, p.UpdatedAt = now, now
	r.s.st.posts[p.ID] = *p
	return nil
}

func (r posts) Update(_ context.Context, p *store.BlogPost) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	old, ok := r.s.st.posts[p.ID]
	if !ok {
		return store.ErrNotFound
	}
	if r.slugTaken(p.Slug, p.ID) {
		return conflict("blog slug", p.Slug)
	}
	if p.PublishedAt.IsZero() {
		p.PublishedAt = r.s.now()
	}
	p.CreatedAt = old.CreatedAt
	p.UpdatedAt = r.s.now()
	r.s.st.posts[p.ID] = *p
	return nil
}

func (r posts) SetActive(_ context.Context, id int64, active bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.st.posts[id]
	if !ok {
		return store.ErrNotFound
	}
	p.IsActive = active
	p.UpdatedAt = r.s.now()
	r.s.st.posts[id] = p
	return nil
}

// contact messages

type contacts struct{ s *Store }

func (r contacts) Create(_ context.Context, m *store.ContactMessage) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m.ID = r.s.st.id("contacts")
	m.CreatedAt = r.s.now()
	r.s.st.contacts[m.ID] = *m
	return nil
}

func (r contacts) GetByID(_ context.Context, id int64) (*store.ContactMessage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.st.contacts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &m, nil
}

func (r contacts) List(_ context.Context) ([]store.ContactMessage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ids := sortedIDs(r.s.st.contacts)
	out := make([]store.ContactMessage, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		out = append(out, r.s.st.contacts[ids[i]])
	}
	return out, nil
}

// job applications

type jobs struct{ s *Store }

func (r jobs) Create(_ context.Context, a *store.JobApplication) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a.ID = r.s.st.id("jobs")
	a.CreatedAt = r.s.now()
	r.s.st.jobs[a.ID] = *a
	return nil
}

func (r jobs) GetByID(_ context.Context, id int64) (*store.JobApplication, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.st.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &a, nil
}

func (r jobs) List(_ context.Context) ([]store.JobApplication, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ids := sortedIDs(r.s.st.jobs)
	out := make([]store.JobApplication, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		out = append(out, r.s.st.jobs[ids[i]])
	}
	return out, nil
}

// notifications

type notifications struct{ s *Store }

func sameUser(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (r notifications) List(_ context.Context, userID *int64) ([]store.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ids := sortedIDs(r.s.st.notifications)
	out := []store.Notification{}
	for i := len(ids) - 1; i >= 0; i-- {
		n := r.s.st.notifications[ids[i]]
		if userID != nil && !sameUser(n.UserID, userID) {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (r notifications) GetByID(_ context.Context, id int64) (*store.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.st.notifications[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &n, nil
}

func (r notifications) Create(_ context.Context, n *store.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if n.Type == "" {
		n.Type = store.NotificationInfo
	}
	n.ID = r.s.st.id("notifications")
	n.CreatedAt = r.s.now()
	r.s.st.notifications[n.ID] = *n
	return nil
}

func (r notifications) MarkRead(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.st.notifications[id]
	if !ok {
		return store.ErrNotFound
	}
	n.IsRead = true
	r.s.st.notifications[id] = n
	return nil
}

func (r notifications) MarkAllRead(_ context.Context, userID *int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var changed int64
	for id, n := range r.s.st.notifications {
		if n.IsRead || (userID != nil && !sameUser(n.UserID, userID)) {
			continue
		}
		n.IsRead = true
		r.s.st.notifications[id] = n
		changed++
	}
	return changed, nil
}

func (r notifications) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.st.notifications[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.s.st.notifications, id)
	return nil
}

// admins

type admins struct{ s *Store }

func (r admins) List(_ context.Context) ([]store.Admin, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []store.Admin{}
	for _, id := range sortedIDs(r.s.st.admins) {
		out = append(out, r.s.st.admins[id])
	}
	return out, nil
}

func (r admins) GetByID(_ context.Context, id int64) (*store.Admin, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.st.admins[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &a, nil
}

func (r admins) GetByUsername(_ context.Context, username string) (*store.Admin, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.st.admins {
		if a.Username == username {
			return &a, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r admins) usernameTaken(username string, except int64) bool {
	for id, a := range r.s.st.admins {
		if id != except && a.Username == username {
			return true
		}
	}
	return false
}

func (r admins) Create(_ context.Context, a *store.Admin) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.usernameTaken(a.Username, 0) {
		return conflict("admin", a.Username)
	}
	now := r.s.now()
	a.ID = r.s.st.id("admins")
	a.CreatedAt, a.UpdatedAt = now, now
	r.s.st.admins[a.ID] = *a
	return nil
}

func (r admins) Update(_ context.Context, a *store.Admin) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	old, ok := r.s.st.admins[a.ID]
	if !ok {
		return store.ErrNotFound
	}
	if r.usernameTaken(a.Username, a.ID) {
		return conflict("admin", a.Username)
	}
	if a.PasswordHash == "" {
		a.PasswordHash = old.PasswordHash
	}
	a.CreatedAt = old.CreatedAt
	a.UpdatedAt = r.s.now()
	r.s.st.admins[a.ID] = *a
	return nil
}

func (r admins) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.st.admins[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.s.st.admins, id)
	return nil
}

// outbox

type outbox struct{ s *Store }

func (r outbox) Enqueue(_ context.Context, m *store.OutboxMessage) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.now()
	m.ID = r.s.st.id("outbox")
	m.Status = store.OutboxPending
	m.NextAttemptAt = now
	m.CreatedAt = now
	r.s.st.outbox[m.ID] = *m
	return nil
}

func (r outbox) Due(_ context.Context, now time.Time, limit int) ([]store.OutboxMessage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []store.OutboxMessage{}
	for _, id := range sortedIDs(r.s.st.outbox) {
		m := r.s.st.outbox[id]
		if m.Status != store.OutboxPending || m.NextAttemptAt.After(now) {
			continue
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].NextAttemptAt.Before(out[j].NextAttemptAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r outbox) MarkSent(_ context.Context, id int64, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.st.outbox[id]
	if !ok {
		return store.ErrNotFound
	}
	m.Status = store.OutboxSent
	m.Attempts++
	m.SentAt = &at
	m.LastError = ""
	r.s.st.outbox[id] = m
	return nil
}

func (r outbox) MarkAttempt(_ context.Context, id int64, attempts int, next time.Time, lastErr string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.st.outbox[id]
	if !ok {
		return store.ErrNotFound
	}
	m.Attempts = attempts
	m.LastError = lastErr
	if next.IsZero() {
		m.Status = store.OutboxFailed
		m.NextAttemptAt = r.s.now()
	} else {
		m.Status = store.OutboxPending
		m.NextAttemptAt = next
	}
	r.s.st.outbox[id] = m
	return nil
}

func (r outbox) List(_ context.Context, status store.OutboxStatus) ([]store.OutboxMessage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ids := sortedIDs(r.s.st.outbox)
	out := []store.OutboxMessage{}
	for i := len(ids) - 1; i >= 0; i-- {
		m := r.s.st.outbox[ids[i]]
		if status != "" && m.Status != status {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// images

type images struct{ s *Store }

func (r images) Create(_ context.Context, img *store.Image) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, ex := range r.s.st.images {
		if ex.Filename == img.Filename {
			return conflict("image", img.Filename)
		}
	}
	if img.UploadedAt.IsZero() {
		img.UploadedAt = r.s.now()
	}
	img.ID = r.s.st.id("images")
	r.s.st.images[img.ID] = *img
	return nil
}

func (r images) List(_ context.Context) ([]store.Image, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ids := sortedIDs(r.s.st.images)
	out := make([]store.Image, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		out = append(out, r.s.st.images[ids[i]])
	}
	return out, nil
}

func (r images) GetByFilename(_ context.Context, filename string) (*store.Image, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, img := range r.s.st.images {
		if img.Filename == filename {
			return &img, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r images) Delete(_ context.Context, filename string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, img := range r.s.st.images {
		if img.Filename == filename {
			delete(r.s.st.images, id)
			return nil
		}
	}
	return store.ErrNotFound
}
