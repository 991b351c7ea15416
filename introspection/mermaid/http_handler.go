package mermaid

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"

	"github.com/cleitonmarx/teardown/introspection"
)

var (
	//go:embed phases.gohtml
	templateFS embed.FS
	tmpl       = template.Must(template.ParseFS(templateFS, "phases.gohtml"))
)

const defaultMaxTextSize = 100000

type graphHandlerConfig struct {
	maxTextSize int
}

// GraphHandlerOption configures NewGraphHandler behavior.
type GraphHandlerOption func(*graphHandlerConfig)

// WithMaxTextSize sets Mermaid's maxTextSize value used by the graph page.
// Values <= 0 are ignored and default to 100000.
func WithMaxTextSize(maxTextSize int) GraphHandlerOption {
	return func(cfg *graphHandlerConfig) {
		if maxTextSize > 0 {
			cfg.maxTextSize = maxTextSize
		}
	}
}

type graphPageData struct {
	GraphJSON   template.JS
	Title       string
	MaxTextSize int
}

// NewGraphHandler creates an HTTP handler that serves the phase graph of the report as an HTML page.
// The page is rendered once, when the handler is created.
func NewGraphHandler(title string, report introspection.Report, opts ...GraphHandlerOption) http.Handler {
	cfg := graphHandlerConfig{
		maxTextSize: defaultMaxTextSize,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	graphJSON, err := json.Marshal(GeneratePhaseGraph(report))
	if err != nil {
		return errorHandler(err)
	}

	var out bytes.Buffer
	if err := tmpl.Execute(&out, graphPageData{
		Title:       fmt.Sprintf("%s Shutdown Phases", title),
		MaxTextSize: cfg.maxTextSize,
		// json.Marshal returns a valid JavaScript string literal for the graph source.
		GraphJSON: template.JS(string(graphJSON)),
	}); err != nil {
		return errorHandler(err)
	}
	page := append([]byte(nil), out.Bytes()...)

	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(page)
	})
}

// NewReportHandler creates an HTTP handler that serves the report as JSON.
func NewReportHandler(report introspection.Report) http.Handler {
	body, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return errorHandler(err)
	}
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	})
}

func errorHandler(err error) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	})
}
