package service

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/agrosite/agrosite/auth"
	"github.com/agrosite/agrosite/store"
	"github.com/agrosite/agrosite/store/memstore"
)

type countingNudger struct{ n atomic.Int32 }

func (c *countingNudger) Nudge() { c.n.Add(1) }

func newServices(t *testing.T) (*Services, *memstore.Store, *countingNudger) {
	t.Helper()
	st := memstore.New()
	nudger := &countingNudger{}
	return New(st, WithBcryptCost(bcrypt.MinCost), WithNudger(nudger)), st, nudger
}

func TestProductSoftDeleteAndRestore(t *testing.T) {
	svc, _, _ := newServices(t)
	ctx := context.Background()

	p := &store.Product{Name: "Maxi Grow", Slug: "maxi-grow", Category: "fertilizer", Benefits: []string{"a"}, IsActive: true}
	require.NoError(t, svc.Products.Create(ctx, p))

	require.NoError(t, svc.Products.Delete(ctx, p.ID))
	_, err := svc.Products.Get(ctx, "maxi-grow")
	assert.ErrorIs(t, err, store.ErrNotFound)

	all, err := svc.Products.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.False(t, all[0].IsActive)

	require.NoError(t, svc.Products.Restore(ctx, p.ID))
	got, err := svc.Products.Get(ctx, "maxi-grow")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
}

func TestProductSlugConflicts(t *testing.T) {
	svc, _, _ := newServices(t)
	ctx := context.Background()

	a := &store.Product{Name: "A", Slug: "a", IsActive: true}
	b := &store.Product{Name: "B", Slug: "b", IsActive: true}
	require.NoError(t, svc.Products.Create(ctx, a))
	require.NoError(t, svc.Products.Create(ctx, b))

	assert.ErrorIs(t, svc.Products.Create(ctx, &store.Product{Name: "A2", Slug: "a", IsActive: true}), store.ErrConflict)

	b.Slug = "a"
	assert.ErrorIs(t, svc.Products.Update(ctx, b), store.ErrConflict)

	// keeping its own slug is fine
	a.Name = "A renamed"
	require.NoError(t, svc.Products.Update(ctx, a))

	assert.ErrorIs(t, svc.Products.Update(ctx, &store.Product{ID: 99, Slug: "zz"}), store.ErrNotFound)
}

func TestBlogListLimit(t *testing.T) {
	svc, _, _ := newServices(t)
	ctx := context.Background()
	for _, slug := range []string{"one", "two", "three"} {
		require.NoError(t, svc.Blog.Create(ctx, &store.BlogPost{Title: slug, Slug: slug, Category: "news", IsActive: true}))
	}
	require.NoError(t, svc.Blog.Create(ctx, &store.BlogPost{Title: "x", Slug: "x", Category: "tips", IsActive: true}))

	got, err := svc.Blog.List(ctx, "news", 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	for _, p := range got {
		assert.Equal(t, "news", p.Category)
	}

	assert.ErrorIs(t, svc.Blog.Create(ctx, &store.BlogPost{Title: "dup", Slug: "one"}), store.ErrConflict)
}

func TestSubmitContactQueuesDelivery(t *testing.T) {
	svc, st, nudger := newServices(t)
	ctx := context.Background()

	m := &store.ContactMessage{Name: "Ana", Email: "ana@example.com", Message: "hi"}
	out, err := svc.Forms.SubmitContact(ctx, m)
	require.NoError(t, err)
	assert.NotZero(t, m.ID)
	assert.Equal(t, store.OutboxContactMessage, out.Kind)
	assert.Equal(t, m.ID, out.RefID)
	assert.Equal(t, store.OutboxPending, out.Status)
	assert.Equal(t, int32(1), nudger.n.Load())

	pending, err := st.Outbox().List(ctx, store.OutboxPending)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	a := &store.JobApplication{Name: "Bo", Email: "bo@example.com", AreaOfInterest: "sales"}
	out, err = svc.Forms.SubmitJobApplication(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, store.OutboxJobApplication, out.Kind)
	assert.Equal(t, int32(2), nudger.n.Load())
}

func TestNotifications(t *testing.T) {
	svc, _, _ := newServices(t)
	ctx := context.Background()
	uid := int64(7)

	n := &store.Notification{UserID: &uid, Title: "t", Message: "m"}
	require.NoError(t, svc.Notifications.Create(ctx, n))
	assert.Equal(t, store.NotificationInfo, n.Type)

	err := svc.Notifications.Create(ctx, &store.Notification{Title: "t", Message: "m", Type: "loud"})
	assert.ErrorIs(t, err, ErrInvalidNotificationType)

	read, err := svc.Notifications.MarkRead(ctx, n.ID)
	require.NoError(t, err)
	assert.True(t, read.IsRead)

	_, err = svc.Notifications.MarkRead(ctx, 999)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestAdminLogin(t *testing.T) {
	svc, _, _ := newServices(t)
	ctx := context.Background()

	a, err := svc.Admins.Create(ctx, AdminInput{Username: "root", Name: "Root", Password: "pw", IsActive: true})
	require.NoError(t, err)
	assert.Equal(t, store.RoleAdmin, a.Role)
	assert.NotEqual(t, "pw", a.PasswordHash)

	got, err := svc.Admins.Login(ctx, "root", "pw")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	_, err = svc.Admins.Login(ctx, "root", "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Admins.Login(ctx, "ghost", "pw")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Admins.Update(ctx, a.ID, AdminInput{Username: "root", Name: "Root", Role: store.RoleEditor, IsActive: false})
	require.NoError(t, err)
	_, err = svc.Admins.Login(ctx, "root", "pw")
	assert.ErrorIs(t, err, ErrInactiveAdmin)
	_, err = svc.Admins.Authenticate(ctx, a.ID)
	assert.ErrorIs(t, err, ErrInactiveAdmin)

	_, err = svc.Admins.Create(ctx, AdminInput{Username: "root", Password: "x"})
	assert.ErrorIs(t, err, store.ErrConflict)

	require.NoError(t, svc.Admins.Delete(ctx, a.ID))
	_, err = svc.Admins.Authenticate(ctx, a.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestLoginUnknownUserComparesHash(t *testing.T) {
	svc, _, _ := newServices(t)
	ctx := context.Background()

	var hashes []string
	svc.Admins.check = func(hash, password string) error {
		hashes = append(hashes, hash)
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	}

	_, err := svc.Admins.Login(ctx, "ghost", "whatever-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	require.Len(t, hashes, 1)

	cost, err := bcrypt.Cost([]byte(hashes[0]))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)

	_, err = svc.Admins.Login(ctx, "ghost", "another-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	require.Len(t, hashes, 2)
	assert.Equal(t, hashes[0], hashes[1])
}

func TestUserRegisterRejectsLongPassword(t *testing.T) {
	svc, _, _ := newServices(t)

	_, err := svc.Users.Register(context.Background(), "farmer", strings.Repeat("é", 40))
	assert.ErrorIs(t, err, auth.ErrPasswordTooLong)
}

func TestUserRegister(t *testing.T) {
	svc, _, _ := newServices(t)
	ctx := context.Background()

	u, err := svc.Users.Register(ctx, "farmer", "pw")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("pw")))

	_, err = svc.Users.Register(ctx, "farmer", "pw")
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestImageExists(t *testing.T) {
	svc, _, _ := newServices(t)
	ctx := context.Background()

	ok, err := svc.Images.Exists(ctx, "a.jpg")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, svc.Images.Save(ctx, &store.Image{Filename: "a.jpg", OriginalName: "a.png"}))
	ok, err = svc.Images.Exists(ctx, "a.jpg")
	require.NoError(t, err)
	assert.True(t, ok)
}
