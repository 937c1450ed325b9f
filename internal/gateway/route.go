package gateway

import (
	"net/http"
	"strings"

	"github.com/canonica-labs/d1bridge/internal/router"
)

// Request is an inbound request matched to a route.
type Request struct {
	*http.Request

	// ID is the request id, echoed in the X-Request-ID header.
	ID string

	// Params holds the values of ":name" path segments.
	Params map[string]string

	// Credentials are the remote credentials carried by the request.
	Credentials router.Credentials

	// Mode is set once a backend has been selected.
	Mode string
}

// Param returns a path parameter.
func (r *Request) Param(key string) string {
	return r.Params[key]
}

// HandlerFunc serves one operation. It returns the outcome data, or an error
// mapped onto the response status.
type HandlerFunc func(r *Request) (interface{}, error)

// Route maps one method and path pattern to an operation.
type Route struct {
	Name    string
	Method  string
	Path    string
	Handler HandlerFunc

	segments []string
}

func newRoute(name, method, path string, handler HandlerFunc) *Route {
	return &Route{
		Name:     name,
		Method:   method,
		Path:     path,
		Handler:  handler,
		segments: strings.Split(strings.TrimPrefix(path, "/"), "/"),
	}
}

// match reports whether path fits the route pattern and returns its
// parameters. Parameters never match empty segments.
func (route *Route) match(path string) (map[string]string, bool) {
	segments := strings.Split(strings.TrimPrefix(path, "/"), "/")
	if len(segments) != len(route.segments) {
		return nil, false
	}

	params := make(map[string]string)
	for i, segment := range route.segments {
		if strings.HasPrefix(segment, ":") {
			if segments[i] == "" {
				return nil, false
			}
			params[strings.TrimPrefix(segment, ":")] = segments[i]
			continue
		}
		if segment != segments[i] {
			return nil, false
		}
	}
	return params, true
}

// routeTable is an ordered list of routes. A method mismatch is reported as
// not found, like any other unmatched request.
type routeTable []*Route

func (t *routeTable) add(name, method, path string, handler HandlerFunc) {
	*t = append(*t, newRoute(name, method, path, handler))
}

func (t routeTable) lookup(method, path string) (*Route, map[string]string) {
	for _, route := range t {
		if route.Method != method {
			continue
		}
		if params, ok := route.match(path); ok {
			return route, params
		}
	}
	return nil, nil
}
