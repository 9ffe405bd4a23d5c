package testutil

import (
	"bytes"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

// Browser keeps cookies between requests and never follows redirects.
type Browser struct {
	t      testing.TB
	base   string
	Client *http.Client
}

// NewBrowser returns a Browser talking to ts.
func NewBrowser(t testing.TB, ts *httptest.Server) *Browser {
	t.Helper()

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &Browser{
		t:    t,
		base: ts.URL,
		Client: &http.Client{
			Jar: jar,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Response is a fully read HTTP response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Document parses the body as HTML.
func (r *Response) Document(t testing.TB) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(r.Body))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

// Notices returns the text of every rendered notice, in order.
func (r *Response) Notices(t testing.TB) []string {
	t.Helper()
	var out []string
	r.Document(t).Find("[data-notice]").Each(func(_ int, s *goquery.Selection) {
		out = append(out, strings.TrimSpace(s.Text()))
	})
	return out
}

// FieldError returns the inline error rendered for the named input.
func (r *Response) FieldError(t testing.TB, field string) string {
	t.Helper()
	return strings.TrimSpace(r.Document(t).Find(`[data-field-error="` + field + `"]`).Text())
}

// Get fetches path.
func (b *Browser) Get(path string) *Response {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodGet, b.base+path, nil)
	if err != nil {
		b.t.Fatalf("build request: %v", err)
	}
	return b.Do(req)
}

// PostForm submits values to path. The CSRF token issued on the login page is
// added when values does not carry one.
func (b *Browser) PostForm(path string, values url.Values, headers ...string) *Response {
	b.t.Helper()
	if values == nil {
		values = url.Values{}
	}
	if values.Get("csrf_token") == "" {
		values.Set("csrf_token", b.CSRFToken())
	}
	req, err := http.NewRequest(http.MethodPost, b.base+path, strings.NewReader(values.Encode()))
	if err != nil {
		b.t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	return b.Do(req)
}

// PostHTMX submits values the way the htmx-enhanced forms do.
func (b *Browser) PostHTMX(path string, values url.Values) *Response {
	b.t.Helper()
	return b.PostForm(path, values, "HX-Request", "true", "HX-Current-URL", b.base+path)
}

// Do sends req and reads the whole body.
func (b *Browser) Do(req *http.Request) *Response {
	b.t.Helper()
	resp, err := b.Client.Do(req)
	if err != nil {
		b.t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		b.t.Fatalf("read body: %v", err)
	}
	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: body}
}

// CSRFToken returns the token held in the CSRF cookie, fetching the login page
// first when the jar has none.
func (b *Browser) CSRFToken() string {
	b.t.Helper()
	if token := b.cookie("portal_csrf"); token != "" {
		return token
	}
	b.Get("/login")
	token := b.cookie("portal_csrf")
	if token == "" {
		b.t.Fatalf("no csrf cookie issued")
	}
	return token
}

// cookie returns the named cookie value scoped to the server, or "".
func (b *Browser) cookie(name string) string {
	u, err := url.Parse(b.base)
	if err != nil {
		b.t.Fatalf("parse base url: %v", err)
	}
	for _, c := range b.Client.Jar.Cookies(u) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}
