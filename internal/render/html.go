package render

import (
	"fmt"
	"html/template"
	"io"
)

var page = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="es">
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
{{template "node" .Root}}
</body>
</html>
{{define "node"}}
{{- if eq .Kind "list" "checklist" -}}
<ol class="{{.Kind}}{{with .Attrs.of}} {{.}}{{end}}">{{range .Children}}{{template "node" .}}{{end}}</ol>
{{- else if eq .Kind "item" -}}
<li{{with .Attrs.id}} data-id="{{.}}"{{end}}>{{.Text}}{{range .Children}}{{template "node" .}}{{end}}</li>
{{- else if eq .Kind "table" -}}
<table>{{range .Children}}{{template "node" .}}{{end}}</table>
{{- else if eq .Kind "row" -}}
<tr>{{range .Children}}{{template "node" .}}{{end}}</tr>
{{- else if eq .Kind "cell" -}}
<td>{{.Text}}</td>
{{- else if eq .Kind "title" -}}
<h3>{{.Text}}</h3>
{{- else if or (eq .Kind "text") (eq .Kind "sentence") (eq .Kind "scenario") (eq .Kind "prompt") -}}
<p class="{{.Kind}}">{{.Text}}</p>
{{- else if .Children -}}
<div class="{{.Kind}}{{with .Attrs.variant}} {{.}}{{end}}"{{with .Attrs.id}} data-id="{{.}}"{{end}}{{with .Attrs.step}} data-step="{{.}}"{{end}}>{{.Text}}{{range .Children}}{{template "node" .}}{{end}}</div>
{{- else -}}
<span class="{{.Kind}}">{{.Text}}</span>
{{- end -}}
{{end}}`))

// HTML writes a standalone preview page for root.
func HTML(w io.Writer, title string, root Node) error {
	if err := page.Execute(w, struct {
		Title string
		Root  Node
	}{title, root}); err != nil {
		return fmt.Errorf("rendering preview: %w", err)
	}
	return nil
}
