package httpserver_test

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"finitefield.org/hanko-portal/internal/portal/authapi"
	"finitefield.org/hanko-portal/internal/portal/connectivity"
	"finitefield.org/hanko-portal/internal/portal/testutil"
)

func loginAPI(t *testing.T, role string) *authapi.StaticService {
	t.Helper()
	return &authapi.StaticService{
		LoginFunc: func(_ context.Context, creds authapi.Credentials) (*authapi.LoginResponse, error) {
			if creds.Password != "correct" {
				return nil, &authapi.ServerError{Op: "login", Status: http.StatusBadRequest, Body: authapi.ErrorBody{
					LoginErr: "Password incorrect",
					Message:  "Check the address",
				}}
			}
			return &authapi.LoginResponse{Token: testutil.IssueToken(t, role)}, nil
		},
	}
}

func TestDashboardRedirectsWithoutAuth(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	browser := testutil.NewBrowser(t, ts)

	resp := browser.Get("/admin/dashboard")
	require.Equal(t, http.StatusFound, resp.Status)
	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "/login", loc.Path)
	require.Equal(t, "/admin/dashboard", loc.Query().Get("from"))

	page := browser.Get(resp.Header.Get("Location"))
	require.Equal(t, http.StatusOK, page.Status)
	doc := page.Document(t)
	require.Equal(t, "/admin/dashboard", doc.Find(`form[data-login-form] input[name="from"]`).AttrOr("value", ""))
	require.Equal(t, "no-store, max-age=0", page.Header.Get("Cache-Control"))
}

func TestLoginFlowAuthenticatesAndReturnsToDestination(t *testing.T) {
	t.Parallel()

	api := loginAPI(t, "admin")
	ts := testutil.NewServer(t, testutil.WithAPI(api))
	browser := testutil.NewBrowser(t, ts)

	resp := browser.PostForm("/login", url.Values{
		"email":    {"tester@example.com"},
		"password": {"correct"},
		"from":     {"/admin/dashboard"},
	})
	require.Equal(t, http.StatusSeeOther, resp.Status)
	require.Equal(t, "/admin/dashboard", resp.Header.Get("Location"))
	require.Equal(t, "tester@example.com", api.Logins()[0].Email)

	dash := browser.Get("/admin/dashboard")
	require.Equal(t, http.StatusOK, dash.Status)
	doc := dash.Document(t)
	require.Equal(t, "tester@example.com", doc.Find("[data-user-email]").Text())
	require.Equal(t, "admin", doc.Find("[data-dashboard]").AttrOr("data-dashboard", ""))
	require.Equal(t, "/logout", doc.Find("form[data-logout-form]").AttrOr("action", ""))
	require.Equal(t, 1, doc.Find("[data-session-expires]").Length())

	for _, path := range []string{"/login", "/register", "/"} {
		again := browser.Get(path)
		require.Equal(t, http.StatusFound, again.Status, path)
		require.Equal(t, "/admin/dashboard", again.Header.Get("Location"), path)
	}
}

func TestLoginWithoutFromGoesToRoleDashboard(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t, testutil.WithAPI(loginAPI(t, "user")))
	browser := testutil.NewBrowser(t, ts)

	resp := browser.PostForm("/login", url.Values{"email": {"a@b.c"}, "password": {"correct"}, "from": {"https://evil.example.com"}})
	require.Equal(t, http.StatusSeeOther, resp.Status)
	require.Equal(t, "/user/dashboard", resp.Header.Get("Location"))

	// role gate sends users away from the admin dashboard
	mismatch := browser.Get("/admin/dashboard")
	require.Equal(t, http.StatusFound, mismatch.Status)
	require.Equal(t, "/user/dashboard", mismatch.Header.Get("Location"))

	require.Equal(t, http.StatusNotFound, browser.Get("/editor/dashboard").Status)
}

func TestLoginRejectedRendersErrors(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t, testutil.WithAPI(loginAPI(t, "admin")))
	browser := testutil.NewBrowser(t, ts)

	resp := browser.PostForm("/login", url.Values{"email": {"tester@example.com"}, "password": {"wrong"}})
	require.Equal(t, http.StatusUnauthorized, resp.Status)

	doc := resp.Document(t)
	require.Equal(t, "Password incorrect", doc.Find("[data-notice]").Text())
	require.Equal(t, "Check the address", doc.Find(`[data-field-error="email"]`).Text())
	require.Equal(t, "tester@example.com", doc.Find(`input[name="email"]`).AttrOr("value", ""))

	btn := doc.Find("button[data-submit]")
	require.Equal(t, "Login", btn.Text())
	_, disabled := btn.Attr("disabled")
	require.False(t, disabled)

	require.Equal(t, http.StatusFound, browser.Get("/admin/dashboard").Status)
}

func TestLoginOfflineShowsConnectionNotice(t *testing.T) {
	t.Parallel()

	api := &authapi.StaticService{
		LoginFunc: func(context.Context, authapi.Credentials) (*authapi.LoginResponse, error) {
			return nil, &authapi.TransportError{Op: "login", Err: errors.New("dial tcp: connection refused")}
		},
	}
	ts := testutil.NewServer(t, testutil.WithAPI(api), testutil.WithConnectivity(connectivity.Static(false)))
	browser := testutil.NewBrowser(t, ts)

	resp := browser.PostForm("/login", url.Values{"email": {"tester@example.com"}, "password": {"pw"}})
	require.Equal(t, http.StatusBadGateway, resp.Status)
	doc := resp.Document(t)
	require.Equal(t, "Internet connection failed!", doc.Find("[data-notice]").Text())
	require.Equal(t, "tester@example.com", doc.Find(`input[name="email"]`).AttrOr("value", ""))
}

func TestLoginHonoursRequestTimeout(t *testing.T) {
	t.Parallel()

	api := &authapi.StaticService{
		LoginFunc: func(ctx context.Context, _ authapi.Credentials) (*authapi.LoginResponse, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	ts := testutil.NewServer(t, testutil.WithAPI(api), testutil.WithRequestTimeout(50*time.Millisecond))
	browser := testutil.NewBrowser(t, ts)

	started := time.Now()
	resp := browser.PostForm("/login", url.Values{"email": {"tester@example.com"}, "password": {"pw"}})
	require.Equal(t, http.StatusGatewayTimeout, resp.Status)
	require.Less(t, time.Since(started), 5*time.Second)
	require.Equal(t, "Login failed! Please try again.", resp.Document(t).Find("[data-notice]").Text())
}

func TestRegisterFieldErrors(t *testing.T) {
	t.Parallel()

	api := &authapi.StaticService{
		RegisterFunc: func(context.Context, authapi.Registration) (*authapi.RegisterResponse, error) {
			return nil, &authapi.ServerError{Op: "register", Status: http.StatusBadRequest, Body: authapi.ErrorBody{Email: "Email taken"}}
		},
	}
	ts := testutil.NewServer(t, testutil.WithAPI(api))
	browser := testutil.NewBrowser(t, ts)

	resp := browser.PostForm("/register", url.Values{"name": {"Ada"}, "email": {"ada@example.com"}, "password": {"pw"}})
	require.Equal(t, http.StatusUnprocessableEntity, resp.Status)
	doc := resp.Document(t)
	require.Equal(t, "Email taken", doc.Find(`[data-field-error="email"]`).Text())
	require.Equal(t, 0, doc.Find("[data-notice]").Length())
	require.Equal(t, "Ada", doc.Find(`input[name="name"]`).AttrOr("value", ""))
}

func TestRegisterSuccessDoesNotAuthenticate(t *testing.T) {
	t.Parallel()

	api := &authapi.StaticService{
		RegisterFunc: func(context.Context, authapi.Registration) (*authapi.RegisterResponse, error) {
			return &authapi.RegisterResponse{Message: "Registration successful!"}, nil
		},
	}
	ts := testutil.NewServer(t, testutil.WithAPI(api))
	browser := testutil.NewBrowser(t, ts)

	resp := browser.PostForm("/register", url.Values{"name": {"Ada"}, "email": {"ada@example.com"}, "password": {"pw"}})
	require.Equal(t, http.StatusOK, resp.Status)
	doc := resp.Document(t)
	notice := doc.Find("[data-notice]")
	require.Equal(t, "Registration successful!", notice.Text())
	require.Equal(t, "success", notice.AttrOr("data-level", ""))
	require.Empty(t, doc.Find(`input[name="name"]`).AttrOr("value", "x"))
	require.Equal(t, "Ada", api.Registrations()[0].Name)

	require.Equal(t, http.StatusFound, browser.Get("/user/dashboard").Status)
}

func TestLogoutClearsSession(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t, testutil.WithAPI(loginAPI(t, "admin")))
	browser := testutil.NewBrowser(t, ts)

	resp := browser.PostForm("/login", url.Values{"email": {"a@b.c"}, "password": {"correct"}})
	require.Equal(t, http.StatusSeeOther, resp.Status)

	out := browser.PostForm("/logout", nil)
	require.Equal(t, http.StatusSeeOther, out.Status)
	require.Equal(t, "/login?status=logged_out", out.Header.Get("Location"))

	require.Equal(t, http.StatusFound, browser.Get("/admin/dashboard").Status)

	page := browser.Get("/login?status=logged_out")
	require.Equal(t, http.StatusOK, page.Status)
	require.Equal(t, "You have been logged out.", page.Document(t).Find("[data-notice]").Text())
}

func TestHTMXLoginUsesHXRedirect(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t, testutil.WithAPI(loginAPI(t, "user")))
	browser := testutil.NewBrowser(t, ts)

	resp := browser.PostHTMX("/login", url.Values{"email": {"a@b.c"}, "password": {"correct"}})
	require.Equal(t, http.StatusNoContent, resp.Status)
	require.Equal(t, "/user/dashboard", resp.Header.Get("HX-Redirect"))

	out := browser.PostHTMX("/logout", nil)
	require.Equal(t, http.StatusNoContent, out.Status)
	require.Equal(t, "/login?status=logged_out", out.Header.Get("HX-Redirect"))
}

func TestHTMXFailedLoginSwapsMain(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t, testutil.WithAPI(loginAPI(t, "user")))
	browser := testutil.NewBrowser(t, ts)

	resp := browser.PostHTMX("/login", url.Values{"email": {"a@b.c"}, "password": {"wrong"}})
	require.Equal(t, http.StatusOK, resp.Status, "htmx only swaps 2xx responses")
	require.Equal(t, []string{"Password incorrect"}, resp.Notices(t))
	require.Equal(t, "Check the address", resp.FieldError(t, "email"))

	doc := resp.Document(t)
	require.Equal(t, 1, doc.Find("main form[data-login-form]").Length())
	_, preserved := doc.Find(`input[name="password"]`).Attr("hx-preserve")
	require.True(t, preserved)
	require.Contains(t, resp.Header.Values("Vary"), "HX-Request")
}

func TestUnsafeRequestsRequireCSRF(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	browser := testutil.NewBrowser(t, ts)
	browser.CSRFToken()

	resp := browser.PostForm("/login", url.Values{"csrf_token": {"forged"}, "email": {"a@b.c"}})
	require.Equal(t, http.StatusForbidden, resp.Status)
}

func TestHealthAndStatic(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	browser := testutil.NewBrowser(t, ts)

	health := browser.Get("/healthz")
	require.Equal(t, http.StatusOK, health.Status)
	require.JSONEq(t, `{"status":"ok"}`, string(health.Body))

	css := browser.Get("/public/static/portal.css")
	require.Equal(t, http.StatusOK, css.Status)
	require.True(t, strings.Contains(string(css.Body), ".submitBtn"))
}
