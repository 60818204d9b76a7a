// Package router maps page paths to public or protected routes and gates
// protected ones on the session state.
package router

import (
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/rpggio/chemviz/internal/domain/session"
)

const (
	PathLanding   = "/"
	PathLogin     = "/login"
	PathSignup    = "/signup"
	PathDashboard = "/dashboard"
	PathUpload    = "/upload"
	PathHistory   = "/history"
)

// Route is one page of the application.
type Route struct {
	Path      string
	Name      string
	Protected bool
}

// DefaultRoutes returns the application's page table.
func DefaultRoutes() []Route {
	return []Route{
		{Path: PathLanding, Name: "landing"},
		{Path: PathLogin, Name: "login"},
		{Path: PathSignup, Name: "signup"},
		{Path: PathDashboard, Name: "dashboard", Protected: true},
		{Path: PathUpload, Name: "upload", Protected: true},
		{Path: PathHistory, Name: "history", Protected: true},
	}
}

// SessionState reports whether a session is authenticated.
type SessionState interface {
	IsAuthenticated() bool
}

// Decision is the outcome of resolving a path.
type Decision struct {
	Route Route
	// Redirected is set when the requested path is not what renders.
	Redirected bool
	Requested  string
}

// Location is the current page plus whatever the navigation carried.
type Location struct {
	Path  string
	Route Route
	State any
}

// Router resolves paths against the session and tracks the current location.
type Router struct {
	session SessionState
	logger  *slog.Logger
	routes  map[string]Route

	mu        sync.Mutex
	current   Location
	listeners map[int]func(Location)
	nextID    int
}

// New creates a router over routes.
func New(sess SessionState, routes []Route, logger *slog.Logger) *Router {
	table := make(map[string]Route, len(routes))
	for _, route := range routes {
		table[route.Path] = route
	}
	return &Router{
		session:   sess,
		logger:    logger,
		routes:    table,
		current:   Location{Path: PathLanding, Route: table[PathLanding]},
		listeners: make(map[int]func(Location)),
	}
}

// Resolve decides which route renders for path. Unknown paths go to the
// landing page; protected paths go to the login page when anonymous.
func (r *Router) Resolve(path string) Decision {
	clean := normalize(path)

	route, ok := r.routes[clean]
	if !ok {
		return Decision{Route: r.routes[PathLanding], Redirected: true, Requested: path}
	}
	if route.Protected && (r.session == nil || !r.session.IsAuthenticated()) {
		return Decision{Route: r.routes[PathLogin], Redirected: true, Requested: path}
	}
	return Decision{Route: route, Requested: path}
}

// Allowed reports whether path renders as itself.
func (r *Router) Allowed(path string) bool {
	return !r.Resolve(path).Redirected
}

// Navigate resolves path, moves to the resulting route and notifies
// listeners. Navigation state is dropped when the navigation is redirected.
func (r *Router) Navigate(path string, state any) Location {
	decision := r.Resolve(path)
	loc := Location{Path: decision.Route.Path, Route: decision.Route}
	if !decision.Redirected {
		loc.State = state
	}

	r.mu.Lock()
	r.current = loc
	ids := make([]int, 0, len(r.listeners))
	for id := range r.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(Location), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, r.listeners[id])
	}
	r.mu.Unlock()

	if r.logger != nil {
		r.logger.Debug("navigate", "requested", path, "path", loc.Path, "redirected", decision.Redirected)
	}

	for _, fn := range fns {
		fn(loc)
	}
	return loc
}

// Current returns the current location.
func (r *Router) Current() Location {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// OnNavigate registers fn for every navigation and returns a function that
// removes it.
func (r *Router) OnNavigate(fn func(Location)) func() {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.listeners[id] = fn
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.listeners, id)
		r.mu.Unlock()
	}
}

// SessionEvents is the subscription side of the session manager.
type SessionEvents interface {
	Subscribe(fn func(session.Event)) func()
}

// BindSession sends the router to the login page whenever the session is
// invalidated. It returns a function that undoes the binding.
func (r *Router) BindSession(events SessionEvents) func() {
	return events.Subscribe(func(e session.Event) {
		if e.Type == session.EventInvalidated {
			r.Navigate(PathLogin, nil)
		}
	})
}

func normalize(path string) string {
	path = strings.TrimSpace(path)
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return PathLanding
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = PathLanding
		}
	}
	return path
}
