package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"html/template"

	"github.com/javiercastrodev/claro-urls-duplicates/internal/models"
)

const AttachmentName = "urls_a_eliminar.json"

var tableTemplate = template.Must(template.New("table").Parse(`<html><body>` +
	`<h3>URLs a eliminar</h3>` +
	`<table style="border-collapse:collapse;width:100%;font-family:Arial,sans-serif;font-size:14px;">` +
	`<thead><tr>` +
	`<th style="text-align:left;padding:8px;border:1px solid #ddd;background:#f5f5f5;">URL</th>` +
	`<th style="text-align:left;padding:8px;border:1px solid #ddd;background:#f5f5f5;">Ultima actualización</th>` +
	`</tr></thead>` +
	`<tbody>` +
	`{{range .}}<tr>` +
	`<td style="padding:8px;border:1px solid #ddd;"><a href="{{.URL}}">{{.URL}}</a></td>` +
	`<td style="padding:8px;border:1px solid #ddd;white-space:nowrap;">{{with .LastModified}}{{.}}{{end}}</td>` +
	`</tr>{{else}}<tr><td colspan="2" style="padding:8px;border:1px solid #ddd;">Sin resultados</td></tr>{{end}}` +
	`</tbody>` +
	`</table>` +
	`</body></html>`))

// JSON renders r indented by two spaces. HTML characters and non-ASCII text
// are written as-is.
func JSON(r models.Report) ([]byte, error) {
	if r.Suffixes == nil {
		r.Suffixes = []string{}
	}
	if r.URLsToDelete == nil {
		r.URLsToDelete = []models.Candidate{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// HTMLTable renders the candidates as an email friendly table.
func HTMLTable(candidates []models.Candidate) (string, error) {
	var buf bytes.Buffer
	if err := tableTemplate.Execute(&buf, candidates); err != nil {
		return "", fmt.Errorf("failed to render report table: %w", err)
	}
	return buf.String(), nil
}

func HTMLPre(reportJSON []byte) string {
	return "<pre>" + html.EscapeString(string(reportJSON)) + "</pre>"
}

func Subject(count int) string {
	return fmt.Sprintf("Claro sitemap - URLs a eliminar (%d)", count)
}
