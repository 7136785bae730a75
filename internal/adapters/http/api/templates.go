package api

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	service "github.com/okian/palantir/internal/app"
	"github.com/okian/palantir/internal/domain/model"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{"alerts", "minions", "minion", "checks", "check", "detail", "error"}

var funcs = template.FuncMap{
	"fromNow":     func(t model.UnixTime) string { return model.FromNow(t.Time) },
	"formatDate":  func(t model.UnixTime) string { return model.FormatDate(t.Time) },
	"statusClass": model.StatusClass,
	"statusLabel": model.StatusLabel,
	"pathEscape":  url.PathEscape,
	"toJSON": func(v any) string {
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	},
	"join": strings.Join,
}

// pages holds one template set per page, each combined with the layout.
var pages = func() map[string]*template.Template {
	out := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		out[name] = template.Must(template.New("layout.html").Funcs(funcs).
			ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html"))
	}
	return out
}()

// minionRow is a minions page row with its worst check status.
type minionRow struct {
	model.Minion
	Status int `json:"status"`
}

// pageData is the model of every page.
type pageData struct {
	Title string
	Nav   string
	Query string
	Flash string
	Error string
	All   bool

	Alerts  []model.Alert
	Minions []minionRow
	Minion  *model.Minion
	Checks  []model.Check
	Check   *model.Check
	Detail  *service.Detail
}

// render writes the named page. Output is buffered so a template failure
// still yields a clean 500.
func render(w http.ResponseWriter, status int, name string, data *pageData) error {
	tmpl, ok := pages[name]
	if !ok {
		return fmt.Errorf("%w: unknown page %q", ErrRender, name)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrRender, name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
	return nil
}
