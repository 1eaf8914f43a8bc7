package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/portal/pagination"
)

// text renders a fixed string; the stub views below make handler output
// easy to assert on without real templates.
func text(format string, args ...any) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, format, args...)
		return err
	})
}

func stubViews() ViewFuncs {
	return ViewFuncs{
		Home: func(site string) templ.Component { return text("home %s", site) },
		PublicList: func(kind Kind, items []ContentItem, page pagination.Page, mainPage bool) templ.Component {
			return text("public-list %s n=%d page=%d/%d main=%t", kind.Plural(), len(items), page.Number, page.TotalPages, mainPage)
		},
		ContentDetail: func(item ContentItem) templ.Component { return text("detail %s", item.Title) },
		Contact:       func(sent bool, _ string) templ.Component { return text("contact sent=%t", sent) },
		AdminLogin:    func(showError bool, _ string) templ.Component { return text("login error=%t", showError) },
		AdminDashboard: func(actor Actor, _ string) templ.Component {
			return text("dashboard %s", actor.Attribution())
		},
		AdminList: func(kind Kind, items []ContentItem, page pagination.Page, _ string) templ.Component {
			return text("admin-list %s n=%d total=%d", kind.Plural(), len(items), page.Total)
		},
		AdminForm: func(kind Kind, item ContentItem, _ string) templ.Component {
			return text("admin-form %s id=%d", kind.Singular(), item.ID)
		},
		Users:       func(string) templ.Component { return text("users") },
		UserList:    func(users []User, _ string) templ.Component { return text("user-list n=%d", len(users)) },
		UserForm:    func(user User, _ string) templ.Component { return text("user-form %s", user.Username) },
		Inbox:       func(string) templ.Component { return text("inbox") },
		Messages:    func(msgs []ContactMessage) templ.Component { return text("messages n=%d", len(msgs)) },
		Gallery:     func(images []string, _ string) templ.Component { return text("gallery n=%d", len(images)) },
		Slider:      func(images []string) templ.Component { return text("slider n=%d", len(images)) },
		NotFound:    func() templ.Component { return text("not found") },
		ServerError: func() templ.Component { return text("server error") },
	}
}

func newTestApp(t *testing.T, opts ...func(*SiteConfig)) *App {
	t.Helper()
	store := setupTestStore(t)
	cfg := SiteConfig{
		SessionSecret: "test-session-secret",
		PublicDir:     t.TempDir(),
		DatabasePath:  filepath.Join(t.TempDir(), "unused.db"),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	app := New(cfg, stubViews(), WithStore(store), WithLogger(logger))
	require.NoError(t, app.Init())
	t.Cleanup(func() { app.Close() })
	return app
}

// client replays cookies between requests the way a browser would.
type client struct {
	t       *testing.T
	app     *App
	cookies map[string]*http.Cookie
}

func newClient(t *testing.T, app *App) *client {
	return &client{t: t, app: app, cookies: map[string]*http.Cookie{}}
}

func (c *client) do(req *http.Request) *httptest.ResponseRecorder {
	c.t.Helper()
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	if tok, ok := c.cookies["_csrf"]; ok && req.Method != http.MethodGet {
		req.Header.Set("X-CSRF-Token", tok.Value)
	}
	rec := httptest.NewRecorder()
	c.app.Echo.ServeHTTP(rec, req)
	for _, ck := range rec.Result().Cookies() {
		if ck.MaxAge < 0 {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = ck
	}
	return rec
}

func (c *client) get(target string) *httptest.ResponseRecorder {
	return c.do(httptest.NewRequest(http.MethodGet, target, nil))
}

func (c *client) postForm(target string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, "application/x-www-form-urlencoded")
	return c.do(req)
}

// login fetches a CSRF cookie from the login page and signs in.
func (c *client) login(username, password string) *httptest.ResponseRecorder {
	c.t.Helper()
	rec := c.get("/admin")
	require.Equal(c.t, http.StatusOK, rec.Code)
	require.Contains(c.t, c.cookies, "_csrf")
	return c.postForm("/login", url.Values{"username": {username}, "password": {password}})
}

func loggedInClient(t *testing.T, app *App) *client {
	t.Helper()
	require.NoError(t, app.Store.AddUser(context.Background(), "Jane Doe", "jane", "s3cret"))
	c := newClient(t, app)
	rec := c.login("jane", "s3cret")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	return c
}

func TestHomeAndPublicList(t *testing.T) {
	app := newTestApp(t)
	c := newClient(t, app)
	for i := 0; i < 5; i++ {
		_, err := app.Store.AddContent(context.Background(), Announcement, sampleItem("a"))
		require.NoError(t, err)
	}

	rec := c.get("/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "home Portal", rec.Body.String())

	rec = c.get("/announcements/1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public-list announcements n=5 page=1/1 main=false", rec.Body.String())

	rec = c.get("/announcements/1?main_page=true")
	assert.Equal(t, "public-list announcements n=3 page=1/2 main=true", rec.Body.String())

	rec = c.get("/articles/1")
	assert.Equal(t, "public-list articles n=0 page=1/0 main=false", rec.Body.String())
}

func TestPublicListRejectsBadPage(t *testing.T) {
	app := newTestApp(t)
	c := newClient(t, app)

	for _, target := range []string{"/announcements/0", "/articles/-1", "/articles/abc"} {
		rec := c.get(target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestDetail(t *testing.T) {
	app := newTestApp(t)
	c := newClient(t, app)
	id, err := app.Store.AddContent(context.Background(), Article, sampleItem("Open day"))
	require.NoError(t, err)

	rec := c.get(fmt.Sprintf("/article/%d", id))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "detail Open day", rec.Body.String())

	rec = c.get("/article/999")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not found", rec.Body.String())

	rec = c.get("/announcement/1")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = c.get("/article/x")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnknownRouteRendersNotFound(t *testing.T) {
	app := newTestApp(t)
	rec := newClient(t, app).get("/no/such/page")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not found", rec.Body.String())
}

func TestAdminRequiresSession(t *testing.T) {
	app := newTestApp(t)
	c := newClient(t, app)

	rec := c.get("/admin/dashboard")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin", rec.Header().Get("Location"))

	req := httptest.NewRequest(http.MethodGet, "/admin/announcements", nil)
	req.Header.Set("HX-Request", "true")
	rec = c.do(req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "/admin", rec.Header().Get("HX-Redirect"))
}

func TestLoginFailure(t *testing.T) {
	app := newTestApp(t)
	require.NoError(t, app.Store.AddUser(context.Background(), "Jane Doe", "jane", "s3cret"))
	c := newClient(t, app)

	rec := c.login("jane", "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "login error=true", rec.Body.String())

	rec = c.login("nobody", "s3cret")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = c.get("/admin/dashboard")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestLoginWithoutCSRFTokenIsForbidden(t *testing.T) {
	app := newTestApp(t)
	c := newClient(t, app)
	rec := c.postForm("/login", url.Values{"username": {"jane"}, "password": {"s3cret"}})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestLoginRateLimited(t *testing.T) {
	app := newTestApp(t)
	c := newClient(t, app)
	for i := 0; i < 5; i++ {
		rec := c.login("jane", "wrong")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec := c.login("jane", "wrong")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestLoginSuccessClearsFailures(t *testing.T) {
	app := newTestApp(t)
	require.NoError(t, app.Store.AddUser(context.Background(), "Jane Doe", "jane", "s3cret"))
	c := newClient(t, app)
	for i := 0; i < 4; i++ {
		require.Equal(t, http.StatusUnauthorized, c.login("jane", "wrong").Code)
	}
	require.Equal(t, http.StatusSeeOther, c.login("jane", "s3cret").Code)
	require.Equal(t, http.StatusSeeOther, c.get("/logout").Code)

	for i := 0; i < 5; i++ {
		rec := c.login("jane", "wrong")
		require.Equal(t, http.StatusUnauthorized, rec.Code, "attempt %d", i+1)
	}
	assert.Equal(t, http.StatusTooManyRequests, c.login("jane", "wrong").Code)
}

func TestLoginSessionAndLogout(t *testing.T) {
	app := newTestApp(t)
	c := loggedInClient(t, app)

	rec := c.get("/admin/dashboard")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dashboard Jane Doe", rec.Body.String())

	rec = c.get("/admin")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/dashboard", rec.Header().Get("Location"))

	rec = c.get("/logout")
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	rec = c.get("/admin/dashboard")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestAdminAddContent(t *testing.T) {
	app := newTestApp(t)
	c := loggedInClient(t, app)

	body, ctype := multipartBody(t,
		file("image", "photo.jpg", []byte("jpeg-bytes")),
		field("title", "Open day"),
		field("content", "<p>Welcome</p>"),
	)
	req := httptest.NewRequest(http.MethodPost, "/admin/announcements/add", body)
	req.Header.Set(echo.HeaderContentType, ctype)
	rec := c.do(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "admin-list announcements n=1 total=1", rec.Body.String())

	item, err := app.Store.GetContent(context.Background(), Announcement, 1)
	require.NoError(t, err)
	assert.Equal(t, "Open day", item.Title)
	assert.Equal(t, "Jane Doe", item.Author)

	rec = c.get("/admin/announcement/edit/form/1")
	assert.Equal(t, "admin-form announcement id=1", rec.Body.String())
}

func TestAdminAddMissingFieldIsBadRequest(t *testing.T) {
	app := newTestApp(t)
	c := loggedInClient(t, app)

	body, ctype := multipartBody(t,
		file("image", "photo.jpg", []byte("jpeg-bytes")),
		field("content", "body"),
	)
	req := httptest.NewRequest(http.MethodPost, "/admin/articles/add", body)
	req.Header.Set(echo.HeaderContentType, ctype)
	rec := c.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	n, err := app.Store.CountContent(context.Background(), Article)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAdminAddRequiresMultipart(t *testing.T) {
	app := newTestApp(t)
	c := loggedInClient(t, app)
	rec := c.postForm("/admin/articles/add", url.Values{"title": {"t"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminEditAndDelete(t *testing.T) {
	app := newTestApp(t)
	c := loggedInClient(t, app)
	id, err := app.Store.AddContent(context.Background(), Article, sampleItem("v1"))
	require.NoError(t, err)

	body, ctype := multipartBody(t,
		field("id", fmt.Sprint(id)),
		field("title", "v2"),
		field("content", "c2"),
	)
	req := httptest.NewRequest(http.MethodPost, "/admin/article/edit", body)
	req.Header.Set(echo.HeaderContentType, ctype)
	rec := c.do(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got, err := app.Store.GetContent(context.Background(), Article, id)
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Title)
	assert.Equal(t, sampleItem("v1").ImagePath, got.ImagePath)

	rec = c.do(httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/admin/articles/delete/%d", id), nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin-list articles n=0 total=0", rec.Body.String())

	rec = c.do(httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/admin/articles/delete/%d", id), nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminListPaging(t *testing.T) {
	app := newTestApp(t)
	c := loggedInClient(t, app)
	for i := 0; i < 3; i++ {
		_, err := app.Store.AddContent(context.Background(), Article, sampleItem("a"))
		require.NoError(t, err)
	}

	rec := c.get("/admin/articles?page=2&page_size=2")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin-list articles n=1 total=3", rec.Body.String())

	rec = c.get("/admin/articles?page=0")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = c.get("/admin/articles?page_size=0")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUserManagement(t *testing.T) {
	app := newTestApp(t)
	c := loggedInClient(t, app)

	rec := c.get("/admin/user/list")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "refreshUserList", rec.Header().Get("HX-Trigger"))
	assert.Equal(t, "user-list n=1", rec.Body.String())

	rec = c.postForm("/admin/user/add", url.Values{"name": {"Amy"}, "username": {"amy"}, "password": {"pw"}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-list n=2", rec.Body.String())

	rec = c.postForm("/admin/user/add", url.Values{"name": {"Amy"}, "username": {"amy"}, "password": {"pw"}})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = c.postForm("/admin/user/add", url.Values{"name": {"Bob"}, "username": {"bob"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = c.postForm("/admin/user/edit/amy", url.Values{"name": {"Amy B"}, "username": {"amyb"}})
	assert.Equal(t, http.StatusOK, rec.Code)
	u, err := app.Store.GetUser(context.Background(), "amyb")
	require.NoError(t, err)
	assert.Equal(t, "Amy B", u.Name)

	rec = c.get("/admin/user/edit/form/amyb")
	assert.Equal(t, "user-form amyb", rec.Body.String())
	rec = c.get("/admin/user/edit/form/ghost")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = c.do(httptest.NewRequest(http.MethodDelete, "/admin/user/delete/amyb", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-list n=1", rec.Body.String())
}

func TestContactAndInbox(t *testing.T) {
	app := newTestApp(t)
	visitor := newClient(t, app)

	rec := visitor.get("/contact")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "contact sent=false", rec.Body.String())

	rec = visitor.postForm("/contact", url.Values{"name": {"Ann"}, "email": {"ann@example.com"}, "message": {"Hello"}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "contact sent=true", rec.Body.String())

	rec = visitor.postForm("/contact", url.Values{"name": {"Ann"}, "email": {"ann@example.com"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	msgs, err := app.Store.ListMessages(context.Background())
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "192.0.2.1", msgs[0].OriginIP)

	staff := loggedInClient(t, app)
	rec = staff.get("/admin/messages")
	assert.Equal(t, "messages n=1", rec.Body.String())
}

func TestGalleryEndpoints(t *testing.T) {
	app := newTestApp(t)
	c := loggedInClient(t, app)

	rec := c.get("/admin/image/list")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = c.get("/admin/image/count")
	assert.JSONEq(t, `0`, rec.Body.String())

	body, ctype := multipartBody(t, file("image", "one.png", pngBytes(t, 20, 20)))
	req := httptest.NewRequest(http.MethodPost, "/admin/image/add", body)
	req.Header.Set(echo.HeaderContentType, ctype)
	rec = c.do(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "gallery n=1", rec.Body.String())

	rec = c.get("/admin/image/count")
	assert.JSONEq(t, `1`, rec.Body.String())

	names, err := app.Content.GalleryPage(1, 10)
	require.NoError(t, err)
	require.Len(t, names, 1)

	rec = c.get("/slider")
	assert.Equal(t, "slider n=1", rec.Body.String())

	rec = c.do(httptest.NewRequest(http.MethodDelete, "/admin/image/delete/"+names[0], nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = c.do(httptest.NewRequest(http.MethodDelete, "/admin/image/delete/"+names[0], nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = c.get("/admin/image/list?page=0")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGalleryListHugePaging(t *testing.T) {
	app := newTestApp(t)
	c := loggedInClient(t, app)
	for i := 0; i < 5; i++ {
		_, err := app.Media.Put(app.Config.GalleryDir, strings.NewReader("x"), "webp", 0)
		require.NoError(t, err)
	}

	rec := c.get("/admin/image/list?page=9223372036854775806&page_size=9223372036854775807")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = c.get("/admin/image/list?page=9223372036854775806&page_size=100")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = c.get("/admin/image/list?page_size=100")
	require.Equal(t, http.StatusOK, rec.Code)
	var names []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &names))
	assert.Len(t, names, 5)
}

func TestGalleryRejectsNonImage(t *testing.T) {
	app := newTestApp(t)
	c := loggedInClient(t, app)

	body, ctype := multipartBody(t, file("image", "notes.txt", []byte("plain text")))
	req := httptest.NewRequest(http.MethodPost, "/admin/image/add", body)
	req.Header.Set(echo.HeaderContentType, ctype)
	rec := c.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFeedAndSitemap(t *testing.T) {
	app := newTestApp(t)
	c := newClient(t, app)
	_, err := app.Store.AddContent(context.Background(), Announcement, sampleItem("News"))
	require.NoError(t, err)

	rec := c.get("/feed.xml")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<title>News</title>")
	assert.Contains(t, rec.Body.String(), "http://localhost:3000/announcement/1")

	rec = c.get("/sitemap.xml")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<loc>http://localhost:3000/contact</loc>")
	assert.Contains(t, rec.Body.String(), "<loc>http://localhost:3000/announcement/1</loc>")
}

func TestDocDownload(t *testing.T) {
	app := newTestApp(t)
	c := newClient(t, app)

	rec := c.get("/docs/missing.pdf")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	app := newTestApp(t, func(cfg *SiteConfig) { cfg.MetricsEnabled = true })
	c := loggedInClient(t, app)

	body, ctype := multipartBody(t, field("content", "no title or image"))
	req := httptest.NewRequest(http.MethodPost, "/admin/articles/add", body)
	req.Header.Set(echo.HeaderContentType, ctype)
	require.Equal(t, http.StatusBadRequest, c.do(req).Code)

	rec := c.get("/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `portal_uploads_total{outcome="error",target="articles"} 1`)
	assert.Contains(t, rec.Body.String(), "portal_requests_total")
}

func TestMetricsDisabledByDefault(t *testing.T) {
	app := newTestApp(t)
	rec := newClient(t, app).get("/metrics")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGalleryPageSizeFromConfig(t *testing.T) {
	app := newTestApp(t, func(cfg *SiteConfig) { cfg.GalleryPageSize = 2 })
	c := loggedInClient(t, app)
	for i := 0; i < 3; i++ {
		_, err := app.Media.Put(app.Config.GalleryDir, strings.NewReader("x"), "webp", 0)
		require.NoError(t, err)
	}

	rec := c.get("/admin/image/list")
	require.Equal(t, http.StatusOK, rec.Code)
	var names []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &names))
	assert.Len(t, names, 2)

	rec = c.get("/admin/gallery")
	assert.Equal(t, "gallery n=2", rec.Body.String())
}
