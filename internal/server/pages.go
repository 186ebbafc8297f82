package server

import (
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Noratrieb/does-it-build/internal/grid"
	"github.com/Noratrieb/does-it-build/internal/model"
	"github.com/Noratrieb/does-it-build/internal/store"
	"github.com/Noratrieb/does-it-build/internal/version"
)

//go:embed static
var staticFS embed.FS

var pageFuncs = template.FuncMap{
	"icon": func(s model.Status) string {
		if s == model.StatusPass {
			return "✅"
		}
		return "❌"
	},
	// Cell locators are already percent-encoded, keep the template from
	// escaping them a second time.
	"cellURL": func(c grid.Cell) template.URL {
		return template.URL("/build?" + c.Locator())
	},
}

var (
	indexTmpl = template.Must(template.New("index.gohtml").Funcs(pageFuncs).ParseFS(staticFS, "static/index.gohtml"))
	buildTmpl = template.Must(template.New("build.gohtml").Funcs(pageFuncs).ParseFS(staticFS, "static/build.gohtml"))
)

type indexPage struct {
	Mode    model.Mode
	Modes   []model.Mode
	By      grid.Orientation
	Flip    grid.Orientation
	Search  string
	Failing bool
	Grid    grid.Grid
	Commit  string
}

type buildPage struct {
	Nightly string
	Target  string
	Mode    model.Mode
	Status  model.Status
	Stderr  string
	Commit  string
}

// handleIndex renders the matrix for one mode. Query parameters drive
// the view: mode, by (row axis), search and failing.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	q := r.URL.Query()
	mode := model.ModeCore
	if raw := q.Get("mode"); raw != "" {
		m, err := model.ParseMode(raw)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		mode = m
	}
	by := grid.TargetMajor
	if raw := q.Get("by"); raw != "" {
		by = grid.Orientation(raw)
		if !by.Valid() {
			http.Error(w, "unknown orientation "+strconv.Quote(raw), http.StatusBadRequest)
			return
		}
	}
	filter := grid.FilterState{Search: q.Get("search")}
	if raw := q.Get("failing"); raw != "" {
		failing, err := strconv.ParseBool(raw)
		if err != nil {
			http.Error(w, "failing must be a boolean", http.StatusBadRequest)
			return
		}
		filter.FailingOnly = failing
	}

	builds, err := s.st.BuildStatus(r.Context())
	if err != nil {
		slog.Error("error loading target state", "error", err)
		http.Error(w, "failed to load target state", http.StatusInternalServerError)
		return
	}

	rs := grid.NewRecordStore()
	if err := rs.Update(model.PartitionByMode(builds)[mode]); err != nil {
		slog.Error("error ingesting target state", "error", err)
		http.Error(w, "failed to load target state", http.StatusInternalServerError)
		return
	}

	page := indexPage{
		Mode:    mode,
		Modes:   model.Modes(),
		By:      by,
		Flip:    by.Flip(),
		Search:  filter.Search,
		Failing: filter.FailingOnly,
		Grid:    grid.Render(rs, filter, by),
		Commit:  version.Commit(),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTmpl.Execute(w, page); err != nil {
		slog.Error("error rendering index", "error", err)
	}
}

// handleBuildPage renders GET /build?nightly=&target=&mode=: the full
// stderr of one attempt. mode defaults to core.
func (s *Server) handleBuildPage(w http.ResponseWriter, r *http.Request) {
	nightly, target, mode, err := buildParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	b, err := s.st.BuildStatusFull(r.Context(), nightly, target, mode)
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		slog.Error("error loading target state", "error", err)
		http.Error(w, "failed to load build", http.StatusInternalServerError)
		return
	}

	page := buildPage{
		Nightly: b.Nightly,
		Target:  b.Target,
		Mode:    b.Mode,
		Status:  b.Status,
		Stderr:  b.Stderr,
		Commit:  version.Commit(),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := buildTmpl.Execute(w, page); err != nil {
		slog.Error("error rendering build page", "error", err)
	}
}

func (s *Server) handleCSS(w http.ResponseWriter, r *http.Request) {
	serveStatic(w, "static/index.css", "text/css; charset=utf-8")
}

func (s *Server) handleJS(w http.ResponseWriter, r *http.Request) {
	serveStatic(w, "static/index.js", "text/javascript")
}

func serveStatic(w http.ResponseWriter, path, contentType string) {
	data, err := staticFS.ReadFile(path)
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Write(data) //nolint:errcheck
}
