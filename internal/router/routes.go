// Package router holds the back-office route table and the navigation
// guard that decides, per navigation, whether the destination may be
// shown given the caller's session.
package router

import (
	"path"
	"strings"
)

const (
	NameLogin     = "Login"
	NameDashboard = "Dashboard"
	NameProfile   = "Profile"
	NameMedicines = "Medicines"
	NameSales     = "Sales"
	NamePurchases = "Purchases"
	NameSuppliers = "Suppliers"
)

// maxRedirects bounds redirect chains so a misconfigured table cannot loop.
const maxRedirects = 8

// Route is one record of the route table. Child paths are relative to the
// parent; an empty child path matches the parent path itself.
type Route struct {
	Path         string
	Name         string
	Title        string
	RequiresAuth bool
	Redirect     string
	Children     []Route
}

// Match is the result of resolving a path, after following redirects.
type Match struct {
	Path         string
	Name         string
	Title        string
	RequiresAuth bool
	// Redirected is set when the requested path was not Path itself.
	Redirected bool
}

type entry struct {
	path         string
	route        *Route
	requiresAuth bool
}

// Table resolves paths against a tree of routes.
type Table struct {
	entries []entry
	byName  map[string]string
}

func NewTable(routes []Route) *Table {
	t := &Table{byName: map[string]string{}}
	for i := range routes {
		t.add("/", &routes[i], false)
	}
	return t
}

func (t *Table) add(parent string, r *Route, inherited bool) {
	full := joinPath(parent, r.Path)
	auth := inherited || r.RequiresAuth
	t.entries = append(t.entries, entry{path: full, route: r, requiresAuth: auth})
	if r.Name != "" {
		t.byName[r.Name] = full
	}
	for i := range r.Children {
		t.add(full, &r.Children[i], auth)
	}
}

// PathOf returns the path of the named route.
func (t *Table) PathOf(name string) (string, bool) {
	p, ok := t.byName[name]
	return p, ok
}

// Resolve finds the route for p, following redirect records. The match
// requires auth when the record or any of its ancestors does.
func (t *Table) Resolve(p string) (Match, bool) {
	p = normalize(p)
	redirected := false

	for range maxRedirects {
		e, ok := t.lookup(p)
		if !ok {
			return Match{Path: p, Redirected: redirected}, false
		}
		if e.route.Redirect != "" {
			p = normalize(e.route.Redirect)
			redirected = true
			continue
		}
		return Match{
			Path:         e.path,
			Name:         e.route.Name,
			Title:        e.route.Title,
			RequiresAuth: e.requiresAuth,
			Redirected:   redirected,
		}, true
	}
	return Match{Path: p, Redirected: redirected}, false
}

func (t *Table) lookup(p string) (entry, bool) {
	for _, e := range t.entries {
		if e.path != p {
			continue
		}
		// A layout only renders through its children.
		if e.route.Name == "" && e.route.Redirect == "" && len(e.route.Children) > 0 {
			continue
		}
		return e, true
	}
	return entry{}, false
}

func joinPath(parent, child string) string {
	if strings.HasPrefix(child, "/") {
		return normalize(child)
	}
	return normalize(path.Join(parent, child))
}

func normalize(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

// AppRoutes is the back-office route table: a public login page and an
// authenticated layout holding every other page.
func AppRoutes() []Route {
	return []Route{
		{Path: "/login", Name: NameLogin, Title: "Login"},
		{
			Path:         "/",
			RequiresAuth: true,
			Children: []Route{
				{Path: "", Redirect: "/dashboard"},
				{Path: "dashboard", Name: NameDashboard, Title: "Dashboard"},
				{Path: "profile", Name: NameProfile, Title: "Profil"},
				{Path: "medicines", Name: NameMedicines, Title: "Halaman Data Obat"},
				{Path: "sales", Name: NameSales, Title: "Halaman Data Penjualan"},
				{Path: "purchases", Name: NamePurchases, Title: "Halaman Data Pembelian"},
				{Path: "suppliers", Name: NameSuppliers, Title: "Halaman Data Supplier"},
			},
		},
	}
}
