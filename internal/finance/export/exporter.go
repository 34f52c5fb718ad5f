package export

import (
	"context"
	"encoding/base64"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ledgerdesk/ledgerdesk/internal/finance"
	"github.com/ledgerdesk/ledgerdesk/report"
)

// maxLogoBytes caps how much of a branding logo gets embedded.
const maxLogoBytes = 2 << 20

// Document is a rendered report ready for download.
type Document struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Exporter serializes a statement and its line items into a downloadable
// document. It holds no state between invocations; each export is a pure
// function of its inputs apart from the best-effort logo fetch.
type Exporter struct {
	renderer *Renderer
	pdf      *report.Client
	fetcher  *http.Client
	logger   *slog.Logger
}

// NewExporter wires the exporter. The PDF client may be nil or unready, in
// which case documents are emitted as plain HTML.
func NewExporter(pdf *report.Client, logger *slog.Logger) (*Exporter, error) {
	renderer, err := NewRenderer()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		renderer: renderer,
		pdf:      pdf,
		fetcher:  &http.Client{Timeout: 10 * time.Second},
		logger:   logger,
	}, nil
}

// Export renders the document for one computed statement. The exporter
// never recomputes totals. A logo fetch or decode failure is logged and the
// document renders without it; a PDF backend failure falls back to the HTML
// document so a report always comes out.
func (e *Exporter) Export(ctx context.Context, period string, comp finance.Computation, branding Branding) (Document, error) {
	if e == nil || e.renderer == nil {
		return Document{}, fmt.Errorf("export: exporter not initialised")
	}
	vm := BuildViewModel(comp.Statement, comp.Lines, period, branding)
	if branding.LogoURL != "" {
		logo, err := e.fetchLogo(ctx, branding.LogoURL)
		if err != nil {
			e.logger.Warn("branding logo skipped",
				slog.String("url", branding.LogoURL),
				slog.Any("error", err))
		} else {
			vm.LogoDataURI = logo
		}
	}

	html, err := e.renderer.Render(vm)
	if err != nil {
		return Document{}, err
	}

	if e.pdf.Ready() {
		pdf, err := e.pdf.RenderHTML(ctx, html)
		if err == nil {
			return Document{
				Filename:    fmt.Sprintf("financial-report-%s.pdf", period),
				ContentType: "application/pdf",
				Data:        pdf,
			}, nil
		}
		e.logger.Error("pdf conversion failed, serving html document", slog.Any("error", err))
	}

	return Document{
		Filename:    fmt.Sprintf("financial-report-%s.html", period),
		ContentType: "text/html; charset=utf-8",
		Data:        html,
	}, nil
}

// fetchLogo downloads the branding image and embeds it as a data URI.
func (e *Exporter) fetchLogo(ctx context.Context, url string) (template.URL, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := e.fetcher.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("logo fetch returned status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxLogoBytes+1))
	if err != nil {
		return "", err
	}
	if len(data) > maxLogoBytes {
		return "", fmt.Errorf("logo exceeds %d bytes", maxLogoBytes)
	}
	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("logo has unsupported content type %s", contentType)
	}
	encoded := base64.StdEncoding.EncodeToString(data)
	return template.URL(fmt.Sprintf("data:%s;base64,%s", contentType, encoded)), nil
}
