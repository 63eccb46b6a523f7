package cloud

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page is the data the cloud template renders.
type Page struct {
	Title   string
	Heading string
	Updated string
	Words   []Word
}

// Renderer executes the embedded page templates.
type Renderer struct {
	cloud    *template.Template
	fallback *template.Template
	// FallbackTitle is shown when there are no words.
	FallbackTitle string
}

func NewRenderer(fallbackTitle string) (*Renderer, error) {
	cloudTmpl, err := template.ParseFS(templateFS, "templates/cloud.html")
	if err != nil {
		return nil, fmt.Errorf("parsing cloud template: %w", err)
	}
	fallbackTmpl, err := template.ParseFS(templateFS, "templates/fallback.html")
	if err != nil {
		return nil, fmt.Errorf("parsing fallback template: %w", err)
	}
	if fallbackTitle == "" {
		fallbackTitle = "No Data Found"
	}
	return &Renderer{cloud: cloudTmpl, fallback: fallbackTmpl, FallbackTitle: fallbackTitle}, nil
}

// Render writes the word-cloud page, or the fallback page when p has no
// words.
func (r *Renderer) Render(w io.Writer, p Page) error {
	if len(p.Words) == 0 {
		return r.RenderFallback(w)
	}
	if err := r.cloud.Execute(w, p); err != nil {
		return fmt.Errorf("rendering cloud page: %w", err)
	}
	return nil
}

// RenderFallback writes the placeholder page used when no keywords survived.
func (r *Renderer) RenderFallback(w io.Writer) error {
	if err := r.fallback.Execute(w, r.FallbackTitle); err != nil {
		return fmt.Errorf("rendering fallback page: %w", err)
	}
	return nil
}

// WriteFile renders into a temporary file next to path and renames it into
// place, so readers never observe a half-written page.
func WriteFile(path string, render func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".wordcloud-*.html")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := render(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("renaming %s to %s: %w", tmpName, path, err)
	}
	return nil
}
