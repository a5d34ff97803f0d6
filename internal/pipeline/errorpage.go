package pipeline

import (
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"path/filepath"

	"github.com/zmirror/zmirror/internal/config"
	mirrorerrors "github.com/zmirror/zmirror/internal/errors"
)

var errorPageTmpl = template.Must(template.New("error").Parse(`<!DOCTYPE html>
<html><head><title>zmirror error</title></head>
<body>
<h1>{{.Status}} {{.StatusText}}</h1>
<p>{{.Message}}</p>
{{if .DumpPath}}<p>Snapshot: {{.DumpPath}}</p>{{end}}
</body></html>
`))

type errorPageData struct {
	Status     int
	StatusText string
	Message    string
	DumpPath   string
}

// writeErrorPage renders spec.md §6's error page: status, sanitized
// message, and (if developer_dump_all_files is set) the path of an opaque
// snapshot dump of the error. The request context is not part of the dump.
func writeErrorPage(w http.ResponseWriter, cfg *config.Config, status int, err error) {
	data := errorPageData{
		Status:     status,
		StatusText: http.StatusText(status),
		Message:    err.Error(),
	}

	if cfg.DeveloperDumpAllFiles {
		if path, dumpErr := dumpSnapshot(err); dumpErr == nil {
			data.DumpPath = path
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	errorPageTmpl.Execute(w, data)
}

// dumpSnapshot serializes err (and its MirrorError detail, if any) to a
// file under os.TempDir as an opaque, operator-visible blob (spec.md §9:
// "format is operator-visible but not stable").
func dumpSnapshot(err error) (string, error) {
	snapshot := map[string]interface{}{"error": err.Error()}
	if me, ok := err.(*mirrorerrors.MirrorError); ok && len(me.Details) > 0 {
		snapshot["details"] = me.Details
	}

	path := filepath.Join(os.TempDir(), fmt.Sprintf("zmirror-dump-%p.json", err))
	f, createErr := os.Create(path)
	if createErr != nil {
		return "", createErr
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(snapshot); encErr != nil {
		return "", encErr
	}
	return path, nil
}
