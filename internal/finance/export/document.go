package export

import (
	"bytes"
	"fmt"
	"html/template"
)

// Renderer turns a ViewModel into a standalone HTML document suitable for
// direct download or for conversion to PDF by the report client.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the document template once.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("financial-report").Parse(documentTemplate)
	if err != nil {
		return nil, fmt.Errorf("export: parse document template: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Render executes the template.
func (r *Renderer) Render(vm ViewModel) ([]byte, error) {
	if r == nil || r.tmpl == nil {
		return nil, fmt.Errorf("export: renderer not initialised")
	}
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, vm); err != nil {
		return nil, fmt.Errorf("export: render document: %w", err)
	}
	return buf.Bytes(), nil
}

const documentTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: Helvetica, Arial, sans-serif; color: #1a1a2e; margin: 40px; }
header { display: flex; justify-content: space-between; align-items: center; margin-bottom: 24px; }
h1 { font-size: 20px; margin: 0; }
h2 { font-size: 14px; margin: 28px 0 8px; border-bottom: 1px solid #d0d0dd; padding-bottom: 4px; }
table { width: 100%; border-collapse: collapse; font-size: 12px; }
th { text-align: left; padding: 6px 8px; background: #f0f0f6; }
td { padding: 6px 8px; border-bottom: 1px solid #ececf2; }
tr.total td { font-weight: bold; border-top: 2px solid #d0d0dd; }
.summary td.positive { color: #1d7a46; font-weight: bold; }
.summary td.negative { color: #b3261e; font-weight: bold; }
img.logo { max-height: 64px; }
</style>
</head>
<body>
<header>
<div>
<h1>{{.Title}}</h1>
{{if .BusinessName}}<p>{{.BusinessName}}</p>{{end}}
</div>
{{if .LogoDataURI}}<img class="logo" src="{{.LogoDataURI}}" alt="logo">{{end}}
</header>
<table class="summary">
{{range .Summary}}<tr><td>{{.Label}}</td><td{{if .Class}} class="{{.Class}}"{{end}}>{{.Value}}</td></tr>
{{end}}</table>
{{range .Sections}}
<h2>{{.Title}}</h2>
<table>
<tr>{{range .Headers}}<th>{{.}}</th>{{end}}</tr>
{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{end}}<tr class="total"><td>Total</td>{{range slice .Headers 2}}<td></td>{{end}}<td>{{.Total}}</td></tr>
</table>
{{end}}
</body>
</html>
`
