package export

import (
	"strings"

	"github.com/gosimple/slug"
)

const (
	KindPDF = "pdf"
	KindXML = "xml"
)

// FileName builds the download name, e.g. cbam-report-72031000-3f2a9c1e.pdf.
// Only the first eight characters of the report id are used.
func FileName(kind, cnCode, reportID string) string {
	parts := []string{"cbam report", cnCode}
	if id := strings.ReplaceAll(reportID, "-", ""); id != "" {
		if len(id) > 8 {
			id = id[:8]
		}
		parts = append(parts, id)
	}
	name := slug.Make(strings.Join(parts, " "))
	if name == "" {
		name = "cbam-report"
	}
	return name + "." + kind
}
