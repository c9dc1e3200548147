package server

import (
	"html/template"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/npym/pkg/buildinfo"
	"github.com/matzehuels/npym/pkg/catalog"
	"github.com/matzehuels/npym/pkg/errors"
)

var (
	projectsTmpl = template.Must(template.New("projects").Parse(`<!DOCTYPE html>
<html>
  <head><meta name="pypi:repository-version" content="1.0"><title>Simple index</title></head>
  <body>
{{- range .}}
    <a href="{{.}}/">{{.}}</a><br>
{{- end}}
  </body>
</html>
`))

	filesTmpl = template.Must(template.New("files").Parse(`<!DOCTYPE html>
<html>
  <head><meta name="pypi:repository-version" content="1.0"><title>Links for {{.Project}}</title></head>
  <body>
    <h1>Links for {{.Project}}</h1>
{{- range .Files}}
    <a href="../../files/{{.Filename}}#sha256={{.SHA256}}">{{.Filename}}</a><br>
{{- end}}
  </body>
</html>
`))
)

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": buildinfo.Version})
}

func (s *Server) projects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.runner.Catalog.Projects(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeHTML(w, projectsTmpl, projects)
}

func (s *Server) redirectSlash(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, r.URL.Path+"/", http.StatusMovedPermanently)
}

func (s *Server) project(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "project")
	if norm := catalog.NormalizeProject(name); norm != name {
		http.Redirect(w, r, "../"+norm+"/", http.StatusMovedPermanently)
		return
	}
	files, err := s.runner.Catalog.Files(r.Context(), name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if len(files) == 0 {
		s.writeError(w, errors.New(errors.ErrCodeNotFound, "project %s not found", name))
		return
	}
	writeHTML(w, filesTmpl, struct {
		Project string
		Files   []catalog.Record
	}{name, files})
}

func (s *Server) file(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	if err := errors.ValidatePath(name); err != nil || strings.Contains(name, "/") || !strings.HasSuffix(name, ".whl") {
		s.writeError(w, errors.New(errors.ErrCodeNotFound, "file %s not found", name))
		return
	}
	if _, err := s.runner.Catalog.Get(r.Context(), name); err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	http.ServeFile(w, r, filepath.Join(s.opts.Dest, name))
}

func writeHTML(w http.ResponseWriter, t *template.Template, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = t.Execute(w, data)
}
