package http

import (
	"html/template"
	"net/http"
)

var pages = template.Must(template.New("page").Parse(`<!doctype html>
<html lang="id">
<head><meta charset="utf-8"><title>{{.Title}} · Apotek</title></head>
<body>
{{if .Login}}
<main>
  <h1>Login</h1>
  {{if .Error}}<p role="alert">{{.Error}}</p>{{end}}
  <form method="post" action="/login">
    <label>Email <input type="email" name="email" value="{{.Email}}" required></label>
    <label>Password <input type="password" name="password" required></label>
    <button type="submit">Masuk</button>
  </form>
</main>
{{else}}
<nav>
  <a href="/dashboard">Dashboard</a>
  <a href="/medicines">Obat</a>
  <a href="/sales">Penjualan</a>
  <a href="/purchases">Pembelian</a>
  <a href="/suppliers">Supplier</a>
  <a href="/profile">Profil</a>
  <form method="post" action="/logout"><button type="submit">Keluar</button></form>
</nav>
<main data-route="{{.Name}}">
  <h1>{{.Title}}</h1>
  {{if .UserEmail}}<p>{{.UserEmail}}</p>{{end}}
</main>
{{end}}
</body>
</html>
`))

type pageData struct {
	Name      string
	Title     string
	Login     bool
	Error     string
	Email     string
	UserEmail string
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pages.Execute(w, data); err != nil {
		s.logger.Error(r.Context(), "render page failed", "route", data.Name, "error", err)
	}
}
