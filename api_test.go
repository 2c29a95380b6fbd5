package agrosite

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/agrosite/agrosite/notify"
	"github.com/agrosite/agrosite/service"
	"github.com/agrosite/agrosite/store"
	"github.com/agrosite/agrosite/store/memstore"
)

const (
	testAdminUser     = "root"
	testAdminPassword = "correct-horse"
)

type recordingSender struct {
	mu   sync.Mutex
	err  error
	sent []notify.Message
}

func (s *recordingSender) Send(_ context.Context, msg notify.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func newTestApp(t *testing.T, sender notify.Sender) *App {
	t.Helper()
	cfg := SiteConfig{
		Name:          "Agro Test",
		SessionSecret: "session-secret",
		JWTSecret:     "jwt-secret",
		UploadDir:     t.TempDir(),
		MailTo:        []string{"ops@example.com"},
	}
	app := New(cfg,
		WithStore(memstore.New()),
		WithSender(sender),
		WithLogger(zerolog.Nop()),
		WithBcryptCost(bcrypt.MinCost),
	)
	require.NoError(t, app.Setup(context.Background()))
	t.Cleanup(func() { app.Close() })

	_, err := app.Services.Admins.Create(context.Background(), service.AdminInput{
		Username: testAdminUser,
		Name:     "Root",
		Password: testAdminPassword,
		IsActive: true,
	})
	require.NoError(t, err)
	return app
}

type reqOpt func(*http.Request)

func withBearer(token string) reqOpt {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func withCookies(cookies ...*http.Cookie) reqOpt {
	return func(r *http.Request) {
		for _, c := range cookies {
			r.AddCookie(c)
		}
	}
}

func withHeader(k, v string) reqOpt {
	return func(r *http.Request) { r.Header.Set(k, v) }
}

func doJSON(t *testing.T, app *App, method, path string, body any, opts ...reqOpt) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.RemoteAddr = "192.0.2.10:41000"
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, o := range opts {
		o(req)
	}
	rec := httptest.NewRecorder()
	app.Echo.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func login(t *testing.T, app *App) (string, []*http.Cookie) {
	t.Helper()
	rec := doJSON(t, app, http.MethodPost, "/api/admin/login", map[string]string{
		"username": testAdminUser,
		"password": testAdminPassword,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[LoginResponse](t, rec)
	require.NotEmpty(t, resp.Token)
	return resp.Token, rec.Result().Cookies()
}

func productBody(name, slug string) map[string]any {
	return map[string]any{
		"name":        name,
		"slug":        slug,
		"category":    "fertilizers",
		"description": "Foliar fertilizer",
		"benefits":    []string{"More yield", "Less stress"},
	}
}

func TestProductLifecycleOverHTTP(t *testing.T) {
	app := newTestApp(t, &recordingSender{})
	token, _ := login(t, app)

	rec := doJSON(t, app, http.MethodPost, "/api/products", productBody("Maxi Grow", "maxi-grow"), withBearer(token))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	created := decode[store.Product](t, rec)
	assert.Positive(t, created.ID)
	assert.True(t, created.IsActive)

	rec = doJSON(t, app, http.MethodGet, "/api/products/maxi-grow", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[store.Product](t, rec)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, []string{"More yield", "Less stress"}, got.Benefits)

	rec = doJSON(t, app, http.MethodGet, "/api/products/category/fertilizers", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]store.Product](t, rec), 1)

	path := fmt.Sprintf("/api/products/%d", created.ID)
	rec = doJSON(t, app, http.MethodDelete, path, nil, withBearer(token))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, app, http.MethodGet, "/api/products/maxi-grow", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, codeNotFound, decode[ErrorBody](t, rec).Error.Code)

	rec = doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/admin/products/%d", created.ID), nil, withBearer(token))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[store.Product](t, rec).IsActive)

	rec = doJSON(t, app, http.MethodPut, path, productBody("Maxi Grow", "maxi-grow"), withBearer(token))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = doJSON(t, app, http.MethodGet, "/api/products/maxi-grow", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProductDuplicateSlug(t *testing.T) {
	app := newTestApp(t, &recordingSender{})
	token, _ := login(t, app)

	rec := doJSON(t, app, http.MethodPost, "/api/products", productBody("Maxi Grow", "maxi-grow"), withBearer(token))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, app, http.MethodPost, "/api/products", productBody("Maxi Grow 2", "maxi-grow"), withBearer(token))
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, codeConflict, decode[ErrorBody](t, rec).Error.Code)
}

func TestProductSlugDerivedFromName(t *testing.T) {
	app := newTestApp(t, &recordingSender{})
	token, _ := login(t, app)

	body := productBody("Óleo Vegetal Plus", "")
	rec := doJSON(t, app, http.MethodPost, "/api/products", body, withBearer(token))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "oleo-vegetal-plus", decode[store.Product](t, rec).Slug)
}

func TestUnknownSlugs(t *testing.T) {
	app := newTestApp(t, &recordingSender{})
	for _, path := range []string{"/api/products/nope", "/api/blog/nope"} {
		rec := doJSON(t, app, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}

func TestBlogLimit(t *testing.T) {
	app := newTestApp(t, &recordingSender{})
	token, _ := login(t, app)

	for i, day := range []string{"2024-01-01", "2024-02-01", "2024-03-01"} {
		rec := doJSON(t, app, http.MethodPost, "/api/blog", map[string]any{
			"title":       fmt.Sprintf("Post %d", i+1),
			"excerpt":     "Short",
			"content":     "Long",
			"category":    "news",
			"publishedAt": day + "T10:00:00Z",
		}, withBearer(token))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec := doJSON(t, app, http.MethodGet, "/api/blog?limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	posts := decode[[]store.BlogPost](t, rec)
	require.Len(t, posts, 2)
	assert.Equal(t, "post-3", posts[0].Slug)
	assert.Equal(t, "post-2", posts[1].Slug)

	rec = doJSON(t, app, http.MethodGet, "/api/blog?category=other", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]store.BlogPost](t, rec))

	rec = doJSON(t, app, http.MethodGet, "/api/blog?limit=0", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "gt=0", decode[ErrorBody](t, rec).Error.Fields["limit"])
}

func TestContactSurvivesDeliveryFailure(t *testing.T) {
	sender := &recordingSender{err: errors.New("relay down")}
	app := newTestApp(t, sender)
	token, _ := login(t, app)

	rec := doJSON(t, app, http.MethodPost, "/api/contact", map[string]any{
		"name":    "Ana",
		"email":   "ana@example.com",
		"message": "Do you ship to Goiás?",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[ContactResponse](t, rec)
	assert.Positive(t, resp.ID)
	assert.Equal(t, "queued", resp.Delivery.Status)
	assert.Positive(t, resp.Delivery.ID)

	sent, err := app.Worker.ProcessDue(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)

	rec = doJSON(t, app, http.MethodGet, "/api/admin/contacts", nil, withBearer(token))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]store.ContactMessage](t, rec), 1)

	rec = doJSON(t, app, http.MethodGet, "/api/admin/deliveries?status=pending", nil, withBearer(token))
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode[[]store.OutboxMessage](t, rec)
	require.Len(t, out, 1)
	assert.Equal(t, 1, out[0].Attempts)
	assert.Contains(t, out[0].LastError, "relay down")

	rec = doJSON(t, app, http.MethodGet, "/api/admin/deliveries?status=lost", nil, withBearer(token))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestJobApplicationDelivered(t *testing.T) {
	sender := &recordingSender{}
	app := newTestApp(t, sender)

	rec := doJSON(t, app, http.MethodPost, "/api/job-application", map[string]any{
		"name":           "Bruno",
		"email":          "bruno@example.com",
		"areaOfInterest": "Agronomy",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	sent, err := app.Worker.ProcessDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, "[Agro Test] New job application: Bruno (Agronomy)", msg.Subject)
	assert.Equal(t, []string{"ops@example.com"}, msg.To)
	assert.Equal(t, "bruno@example.com", msg.ReplyTo)
}

func TestNotificationsMarkAllForUser(t *testing.T) {
	app := newTestApp(t, &recordingSender{})
	token, _ := login(t, app)

	for _, uid := range []int64{7, 7, 8} {
		rec := doJSON(t, app, http.MethodPost, "/api/notifications", map[string]any{
			"userId":  uid,
			"title":   "Order shipped",
			"message": "Your order is on the way",
		}, withBearer(token))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, store.NotificationInfo, decode[store.Notification](t, rec).Type)
	}

	rec := doJSON(t, app, http.MethodPatch, "/api/notifications/read-all?userId=7", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(2), decode[CountResponse](t, rec).Updated)

	rec = doJSON(t, app, http.MethodGet, "/api/notifications?userId=8", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]store.Notification](t, rec)
	require.Len(t, list, 1)
	assert.False(t, list[0].IsRead)

	rec = doJSON(t, app, http.MethodPatch, fmt.Sprintf("/api/notifications/%d/read", list[0].ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[store.Notification](t, rec).IsRead)

	rec = doJSON(t, app, http.MethodPost, "/api/notifications", map[string]any{
		"title":   "Bad",
		"message": "Bad type",
		"type":    "critical",
	}, withBearer(token))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "oneof", decode[ErrorBody](t, rec).Error.Fields["type"])
}

func TestLoginRateLimited(t *testing.T) {
	app := newTestApp(t, &recordingSender{})
	bad := map[string]string{"username": testAdminUser, "password": "wrong-password"}

	for i := 0; i < 5; i++ {
		rec := doJSON(t, app, http.MethodPost, "/api/admin/login", bad)
		require.Equal(t, http.StatusUnauthorized, rec.Code, "attempt %d", i+1)
	}
	rec := doJSON(t, app, http.MethodPost, "/api/admin/login", bad)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, codeTooManyRequests, decode[ErrorBody](t, rec).Error.Code)
}

func TestValidationErrorBody(t *testing.T) {
	app := newTestApp(t, &recordingSender{})

	rec := doJSON(t, app, http.MethodPost, "/api/contact", map[string]any{
		"name":    "",
		"email":   "not-an-email",
		"message": "hi",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[ErrorBody](t, rec)
	assert.Equal(t, codeValidation, body.Error.Code)
	assert.Equal(t, "required", body.Error.Fields["name"])
	assert.Equal(t, "email", body.Error.Fields["email"])
	assert.NotEmpty(t, body.Error.RequestID)
	assert.Equal(t, rec.Header().Get("X-Request-Id"), body.Error.RequestID)
}

func TestWritesRequireAdmin(t *testing.T) {
	app := newTestApp(t, &recordingSender{})

	rec := doJSON(t, app, http.MethodPost, "/api/products", productBody("Maxi Grow", "maxi-grow"))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, codeUnauthorized, decode[ErrorBody](t, rec).Error.Code)

	rec = doJSON(t, app, http.MethodDelete, "/api/blog/1", nil, withBearer("garbage"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, app, http.MethodGet, "/api/admin/contacts", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionWritesNeedCSRFToken(t *testing.T) {
	app := newTestApp(t, &recordingSender{})
	_, cookies := login(t, app)

	rec := doJSON(t, app, http.MethodPost, "/api/products", productBody("Maxi Grow", "maxi-grow"), withCookies(cookies...))
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, app, http.MethodGet, "/api/admin/me", nil, withCookies(cookies...))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	me := decode[MeResponse](t, rec)
	require.NotEmpty(t, me.CsrfToken)
	assert.Equal(t, testAdminUser, me.Admin.Username)

	all := append(cookies, rec.Result().Cookies()...)
	rec = doJSON(t, app, http.MethodPost, "/api/products", productBody("Maxi Grow", "maxi-grow"),
		withCookies(all...), withHeader("X-CSRF-Token", me.CsrfToken))
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestAdminCannotDeleteSelf(t *testing.T) {
	app := newTestApp(t, &recordingSender{})
	token, _ := login(t, app)

	rec := doJSON(t, app, http.MethodGet, "/api/admin/me", nil, withBearer(token))
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[MeResponse](t, rec)

	rec = doJSON(t, app, http.MethodDelete, fmt.Sprintf("/api/admin/users/%d", me.Admin.ID), nil, withBearer(token))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, app, http.MethodPost, "/api/admin/users", map[string]any{
		"username": "editor1",
		"password": "editor-pass",
		"role":     "editor",
	}, withBearer(token))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	other := decode[store.Admin](t, rec)

	rec = doJSON(t, app, http.MethodDelete, fmt.Sprintf("/api/admin/users/%d", other.ID), nil, withBearer(token))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestImageUploadListDelete(t *testing.T) {
	app := newTestApp(t, &recordingSender{})
	token, _ := login(t, app)

	src := image.NewRGBA(image.Rect(0, 0, 1000, 500))
	for x := 0; x < 1000; x++ {
		src.Set(x, 250, color.RGBA{G: 200, A: 255})
	}
	var pngBuf bytes.Buffer
	require.NoError(t, png.Encode(&pngBuf, src))

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("image", "Soy Field.png")
	require.NoError(t, err)
	_, err = fw.Write(pngBuf.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/admin/images", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	app.Echo.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	img := decode[ImageResponse](t, rec)
	assert.Equal(t, "soy-field.jpg", img.Filename)
	assert.Equal(t, 800, img.Width)
	assert.Equal(t, 400, img.Height)
	assert.Equal(t, "/uploads/soy-field.jpg", img.URL)

	rec = doJSON(t, app, http.MethodGet, img.URL, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, app, http.MethodGet, "/api/admin/images", nil, withBearer(token))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]ImageResponse](t, rec), 1)

	rec = doJSON(t, app, http.MethodDelete, "/api/admin/images/soy-field.jpg", nil, withBearer(token))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, app, http.MethodGet, "/api/admin/images", nil, withBearer(token))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]ImageResponse](t, rec))
}

func TestFeedAndSitemap(t *testing.T) {
	app := newTestApp(t, &recordingSender{})
	token, _ := login(t, app)

	rec := doJSON(t, app, http.MethodPost, "/api/blog", map[string]any{
		"title":    "Harvest Report",
		"excerpt":  "Record soybean harvest",
		"content":  "Full text",
		"category": "news",
	}, withBearer(token))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = doJSON(t, app, http.MethodPost, "/api/products", productBody("Maxi Grow", "maxi-grow"), withBearer(token))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, app, http.MethodGet, "/feed.xml", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "application/rss+xml"))
	assert.Contains(t, rec.Body.String(), "<link>http://localhost:8080/blog/harvest-report</link>")
	assert.Contains(t, rec.Body.String(), "<description>Record soybean harvest</description>")

	rec = doJSON(t, app, http.MethodGet, "/sitemap.xml", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<loc>http://localhost:8080/products/maxi-grow</loc>")
	assert.Contains(t, rec.Body.String(), "<loc>http://localhost:8080/blog/harvest-report</loc>")
}

func TestHealth(t *testing.T) {
	app := newTestApp(t, &recordingSender{})
	rec := doJSON(t, app, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[HealthResponse](t, rec).Status)
}

func TestAdminPasswordByteLimit(t *testing.T) {
	app := newTestApp(t, &recordingSender{})
	token, _ := login(t, app)

	rec := doJSON(t, app, http.MethodPost, "/api/admin/users", map[string]any{
		"username": "acentos",
		"password": strings.Repeat("é", 40),
	}, withBearer(token))
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	body := decode[ErrorBody](t, rec)
	assert.Equal(t, codeValidation, body.Error.Code)
	assert.Equal(t, "bcryptlen", body.Error.Fields["password"])

	rec = doJSON(t, app, http.MethodPost, "/api/admin/users", map[string]any{
		"username": "acentos",
		"password": strings.Repeat("é", 36),
	}, withBearer(token))
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestSessionCookieDoesNotBlockPublicRoutes(t *testing.T) {
	app := newTestApp(t, &recordingSender{})
	_, cookies := login(t, app)

	rec := doJSON(t, app, http.MethodPost, "/api/contact", map[string]any{
		"name":    "Ana",
		"email":   "ana@example.com",
		"message": "Sent from the admin's browser",
	}, withCookies(cookies...))
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, app, http.MethodPost, "/api/admin/login", map[string]string{
		"username": testAdminUser,
		"password": testAdminPassword,
	}, withCookies(cookies...))
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestStaleSessionCookieCanLogIn(t *testing.T) {
	app := newTestApp(t, &recordingSender{})
	ctx := context.Background()

	_, err := app.Services.Admins.Create(ctx, service.AdminInput{
		Username: "temp",
		Password: "temp-password",
		IsActive: true,
	})
	require.NoError(t, err)
	rec := doJSON(t, app, http.MethodPost, "/api/admin/login", map[string]string{
		"username": "temp",
		"password": "temp-password",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	stale := rec.Result().Cookies()
	tempAdmin := decode[LoginResponse](t, rec).Admin
	require.NoError(t, app.Services.Admins.Delete(ctx, tempAdmin.ID))

	rec = doJSON(t, app, http.MethodGet, "/api/admin/me", nil, withCookies(stale...))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, app, http.MethodPost, "/api/admin/login", map[string]string{
		"username": testAdminUser,
		"password": testAdminPassword,
	}, withCookies(stale...))
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestEditorCannotManageAccounts(t *testing.T) {
	app := newTestApp(t, &recordingSender{})
	_, err := app.Services.Admins.Create(context.Background(), service.AdminInput{
		Username: "editor1",
		Password: "editor-pass",
		Role:     store.RoleEditor,
		IsActive: true,
	})
	require.NoError(t, err)

	rec := doJSON(t, app, http.MethodPost, "/api/admin/login", map[string]string{
		"username": "editor1",
		"password": "editor-pass",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	token := decode[LoginResponse](t, rec).Token

	rec = doJSON(t, app, http.MethodGet, "/api/admin/users", nil, withBearer(token))
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, codeForbidden, decode[ErrorBody](t, rec).Error.Code)

	rec = doJSON(t, app, http.MethodPost, "/api/products", productBody("Maxi Grow", "maxi-grow"), withBearer(token))
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestMarkAllNotificationsWithoutUser(t *testing.T) {
	app := newTestApp(t, &recordingSender{})
	token, _ := login(t, app)

	for _, body := range []map[string]any{
		{"userId": 7, "title": "a", "message": "m"},
		{"userId": 8, "title": "b", "message": "m"},
		{"title": "broadcast", "message": "m"},
	} {
		rec := doJSON(t, app, http.MethodPost, "/api/notifications", body, withBearer(token))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec := doJSON(t, app, http.MethodPatch, "/api/notifications/read-all", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(3), decode[CountResponse](t, rec).Updated)

	rec = doJSON(t, app, http.MethodGet, "/api/notifications", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	for _, n := range decode[[]store.Notification](t, rec) {
		assert.True(t, n.IsRead, n.Title)
	}
}

func TestConcurrentImagesGetDistinctFiles(t *testing.T) {
	app := newTestApp(t, &recordingSender{})
	ctx := context.Background()

	const uploads = 8
	var wg sync.WaitGroup
	errs := make([]error, uploads)
	imgs := make([]store.Image, uploads)
	for i := 0; i < uploads; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			imgs[i] = store.Image{Filename: "field.jpg", OriginalName: "field.png"}
			errs[i] = app.storeImage(ctx, &imgs[i], []byte(fmt.Sprintf("upload-%d", i)))
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for i, img := range imgs {
		require.NoError(t, errs[i])
		assert.False(t, seen[img.Filename], "duplicate filename %s", img.Filename)
		seen[img.Filename] = true

		data, err := os.ReadFile(filepath.Join(app.Config.UploadDir, img.Filename))
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("upload-%d", i), string(data))
	}

	stored, err := app.Services.Images.List(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, uploads)
}
