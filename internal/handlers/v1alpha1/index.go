package v1alpha1

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"slices"

	"github.com/wm2snap/migrator/internal/estimation"
	"github.com/wm2snap/migrator/internal/service"
	"github.com/wm2snap/migrator/internal/store/model"
	"go.uber.org/zap"
)

//go:embed templates/index.html
var templatesFS embed.FS

var indexTemplate = template.Must(
	template.New("index.html").
		Funcs(template.FuncMap{"formatDuration": estimation.FormatDuration}).
		ParseFS(templatesFS, "templates/index.html"),
)

type indexPage struct {
	Current    service.Migration
	Statistics estimation.Statistics
	History    []model.MigrationRecord
}

// (GET /)
func (h *ServiceHandler) Index(w http.ResponseWriter, r *http.Request) {
	stats, err := h.estimationSrv.Statistics(r.Context())
	if err != nil {
		http.Error(w, service.UserMessage(err), http.StatusInternalServerError)
		return
	}

	history, err := h.estimationSrv.History(r.Context())
	if err != nil {
		http.Error(w, service.UserMessage(err), http.StatusInternalServerError)
		return
	}
	slices.Reverse(history)

	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, indexPage{
		Current:    h.migrationSrv.Current(),
		Statistics: stats,
		History:    history,
	}); err != nil {
		zap.S().Named("index_handler").Errorw("failed to render index page", "error", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
