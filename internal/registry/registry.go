// Package registry provides the durable record of known document templates:
// key, label, source file and the raw-field to semantic-key map. The registry
// is a single JSON document inside the templates directory, rewritten
// wholesale on every mutation.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/kiraworks/borang/internal/catalog"
)

const (
	registryFile = "templates.json"

	dirPerm  = 0o750
	filePerm = 0o640
)

var (
	// ErrDuplicateKey is returned by Create when the key is already taken.
	ErrDuplicateKey = errors.New("template key already exists")
	// ErrUnknownTemplate is returned when no template has the given key.
	ErrUnknownTemplate = errors.New("template not found")
)

// Template describes one registered template. FieldMap associates raw PDF
// field names with semantic keys from the catalog and starts out empty.
type Template struct {
	Key      string            `json:"key"`
	Label    string            `json:"label"`
	File     string            `json:"file"`
	FieldMap map[string]string `json:"fieldMap"`
}

// Registry is a flat-file template store. A single process-wide mutex
// serializes mutations; writes are atomic (temp file + rename). Writers in
// other processes are not coordinated, the last full rewrite wins.
type Registry struct {
	dir string
	mu  sync.Mutex
}

// New opens (creating if necessary) a registry rooted at dir. Template
// binaries live alongside the registry document in the same directory.
func New(dir string) (*Registry, error) {
	if dir == "" {
		return nil, errors.New("templates directory cannot be empty")
	}
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("cannot create templates directory %s: %w", dir, err)
	}
	return &Registry{dir: dir}, nil
}

// Dir returns the templates directory.
func (r *Registry) Dir() string {
	return r.dir
}

// TemplatePath returns the absolute path of a template's source binary.
func (r *Registry) TemplatePath(t *Template) string {
	return filepath.Join(r.dir, t.File)
}

// List returns all registered templates.
func (r *Registry) List() ([]Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load()
}

// Get returns the template with the given key.
func (r *Registry) Get(key string) (*Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	templates, err := r.load()
	if err != nil {
		return nil, err
	}
	for i := range templates {
		if templates[i].Key == key {
			return &templates[i], nil
		}
	}
	return nil, fmt.Errorf("%q: %w", key, ErrUnknownTemplate)
}

// Create registers a new template with an empty field map. The file is
// expected to already exist inside the templates directory.
func (r *Registry) Create(key, label, file string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	templates, err := r.load()
	if err != nil {
		return err
	}
	for i := range templates {
		if templates[i].Key == key {
			return fmt.Errorf("%q: %w", key, ErrDuplicateKey)
		}
	}
	templates = append(templates, Template{
		Key:      key,
		Label:    label,
		File:     file,
		FieldMap: map[string]string{},
	})
	return r.save(templates)
}

// Delete removes a template and its source binary. Deleting an unknown key
// or an already-removed binary is not an error.
func (r *Registry) Delete(key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	templates, err := r.load()
	if err != nil {
		return err
	}

	kept := templates[:0]
	for i := range templates {
		if templates[i].Key == key {
			path := filepath.Join(r.dir, templates[i].File)
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("failed to remove template file %s: %w", path, err)
			}
			continue
		}
		kept = append(kept, templates[i])
	}
	return r.save(kept)
}

// SaveFieldMap replaces a template's field map wholesale. Entries whose
// semantic key is not in the catalog are dropped silently. Returns the number
// of entries stored.
func (r *Registry) SaveFieldMap(key string, fieldMap map[string]string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	templates, err := r.load()
	if err != nil {
		return 0, err
	}

	sanitized := map[string]string{}
	for rawName, semKey := range fieldMap {
		semKey = strings.TrimSpace(semKey)
		if semKey == "" || !catalog.IsStandard(semKey) {
			continue
		}
		sanitized[rawName] = semKey
	}

	for i := range templates {
		if templates[i].Key == key {
			templates[i].FieldMap = sanitized
			if err := r.save(templates); err != nil {
				return 0, err
			}
			return len(sanitized), nil
		}
	}
	return 0, fmt.Errorf("%q: %w", key, ErrUnknownTemplate)
}

func (r *Registry) load() ([]Template, error) {
	data, err := os.ReadFile(filepath.Join(r.dir, registryFile))
	if err != nil {
		if os.IsNotExist(err) {
			return []Template{}, nil
		}
		return nil, fmt.Errorf("failed to read registry: %w", err)
	}
	var templates []Template
	if err := json.Unmarshal(data, &templates); err != nil {
		return nil, fmt.Errorf("failed to parse registry: %w", err)
	}
	return templates, nil
}

// save rewrites the registry document. Templates keep their stored order, so
// the persisted list reads in creation order.
func (r *Registry) save(templates []Template) error {
	data, err := json.MarshalIndent(templates, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode registry: %w", err)
	}

	tmp, err := os.CreateTemp(r.dir, registryFile+".*")
	if err != nil {
		return fmt.Errorf("failed to create registry temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write registry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close registry temp file: %w", err)
	}
	if err := os.Chmod(tmpName, filePerm); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to chmod registry: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(r.dir, registryFile)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace registry: %w", err)
	}
	return nil
}

// Slugify derives a product key and display label from an uploaded filename,
// e.g. "Pinjaman_Peribadi-2024.pdf" becomes ("pinjaman-peribadi-2024",
// "PINJAMAN PERIBADI 2024").
func Slugify(filename string) (key, label string) {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	label = base
	for _, sep := range []string{"_", "-"} {
		label = strings.ReplaceAll(label, sep, " ")
	}
	label = strings.ToUpper(strings.Join(strings.Fields(label), " "))

	var b strings.Builder
	for _, r := range strings.ToLower(strings.Join(strings.Fields(label), "-")) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}
	key = b.String()
	return key, label
}
