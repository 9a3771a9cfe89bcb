package generichttp

import (
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi"
)

// MethodPath is a struct containing an HTTP method and a URL path
type MethodPath struct {
	Method, Path string
}

// RouteTable maps method-path pairs to handlers
type RouteTable map[MethodPath]http.HandlerFunc

// Endpoints returns the routes of the table as "METHOD /path", sorted by path
func (rt RouteTable) Endpoints() []string {
	routes := make([]MethodPath, 0, len(rt))
	for k := range rt {
		routes = append(routes, k)
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})
	out := make([]string, len(routes))
	for i, mp := range routes {
		out[i] = mp.Method + " " + mp.Path
	}
	return out
}

// Bind registers every route of the table on a chi router
func (rt RouteTable) Bind(r chi.Router) {
	for mp, h := range rt {
		r.MethodFunc(mp.Method, mp.Path, h)
	}
}

// HTTPer is a type which can expose its functionality as a route table
type HTTPer interface {
	RT() RouteTable
}

// SubMuxSanitize converts a URL such as "omc/peaks" into "/omc/peaks", the
// form chi.Router.Mount expects.  The empty string becomes "/"
func SubMuxSanitize(str string) string {
	str = strings.TrimSuffix(str, "*")
	str = strings.Trim(str, "/")
	return "/" + str
}
