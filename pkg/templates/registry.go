// Package templates renders the bot's outgoing messages. Message
// bodies live as .tmpl assets grouped by channel ("telegram/welcome")
// and are parsed once on load. Markdown escaping is the caller's job,
// with the helpers in this package.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"
	"text/template"
)

//go:embed assets/**/*.tmpl
var assetsFS embed.FS

// Template is one parsed message template.
type Template struct {
	ID string

	parsed *template.Template
}

// Render executes the template against data.
func (t *Template) Render(data any) (string, error) {
	var buf bytes.Buffer
	if err := t.parsed.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render template %s: %w", t.ID, err)
	}

	return buf.String(), nil
}

// Registry resolves templates by ID. IDs mirror the file layout with
// the extension stripped, so assets/telegram/help.tmpl is
// "telegram/help".
type Registry struct {
	fsys      fs.FS
	templates map[string]*Template
	mu        sync.RWMutex
}

// NewRegistry loads every .tmpl file under dir. The embedded registry
// from Get covers normal operation; the disk variant exists for tests
// and for iterating on message copy without recompiling.
func NewRegistry(dir string) (*Registry, error) {
	return newRegistry(os.DirFS(dir))
}

func newRegistry(fsys fs.FS) (*Registry, error) {
	r := &Registry{
		fsys:      fsys,
		templates: map[string]*Template{},
	}

	err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".tmpl") {
			return nil
		}
		return r.load(path)
	})
	if err != nil {
		return nil, err
	}

	return r, nil
}

// Get returns the process-wide registry backed by embedded assets.
// The assets are compiled in, so a failure here is a build defect and
// panics rather than returning an error.
func Get() *Registry {
	defaultOnce.Do(func() {
		sub, err := fs.Sub(assetsFS, "assets")
		if err != nil {
			defaultErr = fmt.Errorf("prepare embedded templates: %w", err)
			return
		}
		defaultRegistry, defaultErr = newRegistry(sub)
	})

	if defaultErr != nil {
		panic(defaultErr)
	}

	return defaultRegistry
}

// GetTemplate retrieves a template by ID. A template added to the
// backing filesystem after load is picked up here; an already loaded
// template is never re-read.
func (r *Registry) GetTemplate(id string) (*Template, error) {
	r.mu.RLock()
	tmpl, ok := r.templates[id]
	r.mu.RUnlock()

	if ok {
		return tmpl, nil
	}

	path := id + ".tmpl"
	if _, err := fs.Stat(r.fsys, path); err == nil {
		if err := r.load(path); err != nil {
			return nil, err
		}
		r.mu.RLock()
		tmpl = r.templates[id]
		r.mu.RUnlock()
		if tmpl != nil {
			return tmpl, nil
		}
	}

	return nil, fmt.Errorf("template not found: %s", id)
}

// Render executes the template with the given ID against data.
func (r *Registry) Render(id string, data any) (string, error) {
	tmpl, err := r.GetTemplate(id)
	if err != nil {
		return "", err
	}

	return tmpl.Render(data)
}

func (r *Registry) load(path string) error {
	id := strings.TrimSuffix(path, ".tmpl")

	content, err := fs.ReadFile(r.fsys, path)
	if err != nil {
		return fmt.Errorf("read template %s: %w", id, err)
	}

	parsed, err := template.New(id).Parse(string(content))
	if err != nil {
		return fmt.Errorf("parse template %s: %w", id, err)
	}

	r.mu.Lock()
	r.templates[id] = &Template{ID: id, parsed: parsed}
	r.mu.Unlock()

	return nil
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
	defaultErr      error
)
