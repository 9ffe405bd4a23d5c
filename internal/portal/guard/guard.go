// Package guard decides whether a protected page renders or sends the browser to login.
package guard

import (
	"net/http"
	"net/url"
	"path"
	"strings"
)

// LoginPath is where unauthenticated visitors are sent.
const LoginPath = "/login"

// FromParam carries the original destination across the login redirect.
const FromParam = "from"

// Location identifies a page inside the portal.
type Location struct {
	Path     string
	RawQuery string
	Fragment string
}

// String renders the location as a relative URL.
func (l Location) String() string {
	var b strings.Builder
	b.WriteString(l.Path)
	if l.RawQuery != "" {
		b.WriteByte('?')
		b.WriteString(l.RawQuery)
	}
	if l.Fragment != "" {
		b.WriteByte('#')
		b.WriteString(l.Fragment)
	}
	return b.String()
}

// State travels with a redirect.
type State struct {
	From *Location
}

// Redirect is a navigation intent.
type Redirect struct {
	Path  string
	State State
}

// URL encodes the redirect, with the from state as a query parameter.
func (r Redirect) URL() string {
	if r.State.From == nil {
		return r.Path
	}
	q := url.Values{}
	q.Set(FromParam, r.State.From.String())
	return r.Path + "?" + q.Encode()
}

// Decision is the outcome of Decide. Exactly one of Render or Redirect is set.
type Decision struct {
	Render   bool
	Redirect *Redirect
}

// Decide renders the page for authenticated visitors and otherwise redirects to
// LoginPath remembering loc.
func Decide(loc Location, authenticated bool) Decision {
	if authenticated {
		return Decision{Render: true}
	}
	from := loc
	return Decision{Redirect: &Redirect{Path: LoginPath, State: State{From: &from}}}
}

// LocationFromRequest captures the request target.
func LocationFromRequest(r *http.Request) Location {
	if r == nil || r.URL == nil {
		return Location{Path: "/"}
	}
	p := r.URL.EscapedPath()
	if p == "" {
		p = "/"
	}
	return Location{Path: p, RawQuery: r.URL.RawQuery, Fragment: r.URL.Fragment}
}

// SafeFrom validates a from value as a same-site path. It rejects absolute
// URLs, protocol-relative paths, backslashes and the login page itself.
func SafeFrom(raw string) (Location, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Location{}, false
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme != "" || parsed.Host != "" || parsed.Opaque != "" {
		return Location{}, false
	}
	if !strings.HasPrefix(parsed.Path, "/") {
		return Location{}, false
	}
	unescaped, err := url.PathUnescape(parsed.EscapedPath())
	if err != nil || strings.Contains(unescaped, "\\") {
		return Location{}, false
	}
	cleaned := path.Clean(unescaped)
	if strings.HasPrefix(cleaned, "//") {
		return Location{}, false
	}
	if cleaned == LoginPath || strings.HasPrefix(cleaned, LoginPath+"/") {
		return Location{}, false
	}
	return Location{
		Path:     (&url.URL{Path: cleaned}).EscapedPath(),
		RawQuery: parsed.RawQuery,
		Fragment: parsed.Fragment,
	}, true
}
