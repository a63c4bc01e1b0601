package guard

import (
	"net/url"
	"strings"

	"github.com/eventflow/eventflow/internal/models"
)

// Page names a screen of the application.
type Page string

const (
	PageHome        Page = "home"
	PageEvents      Page = "events"
	PageEventDetail Page = "event_detail"
	PageCalendar    Page = "calendar"
	PageDashboard   Page = "dashboard"
	PageAdmin       Page = "admin"
	PageLogin       Page = "login"
	PageNotFound    Page = "not_found"
)

// Route is one entry of the route table.
type Route struct {
	Pattern string
	Page    Page
	// Protected routes need a session; Roles further restricts them when non-empty.
	Protected bool
	Roles     []models.Role
}

// Routes is the route table in match order. The catch-all is not listed.
var Routes = []Route{
	{Pattern: "/", Page: PageHome},
	{Pattern: "/events", Page: PageEvents},
	{Pattern: "/events/:id", Page: PageEventDetail},
	{Pattern: "/calendar", Page: PageCalendar},
	{Pattern: "/dashboard", Page: PageDashboard, Protected: true},
	{Pattern: "/admin", Page: PageAdmin, Protected: true, Roles: []models.Role{models.RoleAdmin, models.RoleClubAdmin}},
	{Pattern: "/login", Page: PageLogin},
	{Pattern: "/register", Page: PageLogin},
}

var notFound = Route{Pattern: "*", Page: PageNotFound}

// Match is a resolved navigation target. Location is Path plus the original query string.
type Match struct {
	Route    Route
	Path     string
	Location string
	Params   map[string]string
	Query    url.Values
}

// Resolve matches a path like "/events?category=Tech" against the route table.
func Resolve(raw string) Match {
	path, rawQuery, _ := strings.Cut(raw, "?")
	query, _ := url.ParseQuery(rawQuery)
	if path == "" {
		path = "/"
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}

	location := path
	if rawQuery != "" {
		location += "?" + rawQuery
	}

	for _, r := range Routes {
		if params, ok := match(r.Pattern, path); ok {
			return Match{Route: r, Path: path, Location: location, Params: params, Query: query}
		}
	}
	return Match{Route: notFound, Path: path, Location: location, Params: map[string]string{}, Query: query}
}

// Check runs Decide for a resolved route. Public routes always allow.
func (m Match) Check(in Input) Decision {
	if !m.Route.Protected {
		return Decision{Outcome: Allow}
	}
	return Decide(in, m.Route.Roles, m.Location)
}

func match(pattern, path string) (map[string]string, bool) {
	ps := strings.Split(strings.Trim(pattern, "/"), "/")
	segs := strings.Split(strings.Trim(path, "/"), "/")
	if len(ps) != len(segs) {
		return nil, false
	}
	params := map[string]string{}
	for i, p := range ps {
		if name, ok := strings.CutPrefix(p, ":"); ok {
			if segs[i] == "" {
				return nil, false
			}
			v, err := url.PathUnescape(segs[i])
			if err != nil {
				return nil, false
			}
			params[name] = v
			continue
		}
		if p != segs[i] {
			return nil, false
		}
	}
	return params, true
}
