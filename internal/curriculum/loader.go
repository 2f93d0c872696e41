// Package curriculum seeds subjects and units from files on disk.
//
// A seed directory holds subject files (*.subject.yaml), optional
// orientation notes next to them (*.orientation.md), and unit documents
// (*.unit.yaml or *.unit.json) in the persisted unit document format.
package curriculum

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/p-n-ai/campus/internal/catalog"
	"github.com/p-n-ai/campus/internal/content"
)

// Subject is the on-disk shape of a subject file.
type Subject struct {
	ID      string   `yaml:"id"`
	Name    string   `yaml:"name"`
	Courses []string `yaml:"courses"`
}

// Loader loads and caches seed content from the filesystem.
type Loader struct {
	rootDir  string
	subjects map[string]Subject
	notes    map[string]string
	units    map[string]content.Row
	mu       sync.RWMutex
}

// NewLoader creates a new loader and loads all content under rootDir.
func NewLoader(rootDir string) (*Loader, error) {
	if info, err := os.Stat(rootDir); err != nil {
		return nil, fmt.Errorf("curriculum root: %w", err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("curriculum root %s is not a directory", rootDir)
	}

	l := &Loader{
		rootDir:  rootDir,
		subjects: make(map[string]Subject),
		notes:    make(map[string]string),
		units:    make(map[string]content.Row),
	}

	if err := l.loadAll(); err != nil {
		return nil, fmt.Errorf("loading curriculum: %w", err)
	}

	slog.Info("curriculum loaded", "subjects", len(l.subjects), "units", len(l.units))
	return l, nil
}

// Subjects returns the loaded subjects ordered by id, with orientation
// notes and unit counts filled in.
func (l *Loader) Subjects() []catalog.Subject {
	l.mu.RLock()
	defer l.mu.RUnlock()

	counts := make(map[string]int)
	for _, r := range l.units {
		counts[r.SubjectID]++
	}

	out := make([]catalog.Subject, 0, len(l.subjects))
	for _, s := range l.subjects {
		courses := s.Courses
		if courses == nil {
			courses = []string{}
		}
		out = append(out, catalog.Subject{
			ID:               s.ID,
			Name:             s.Name,
			UnitsCount:       counts[s.ID],
			Courses:          courses,
			OrientationNotes: l.notes[s.ID],
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Units returns the loaded unit rows ordered by id.
func (l *Loader) Units() []content.Row {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]content.Row, 0, len(l.units))
	for _, r := range l.units {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Seed writes every subject, then every unit, into store. Units whose
// subject is neither in the seed nor already stored are skipped.
func (l *Loader) Seed(ctx context.Context, store catalog.Store) error {
	known := make(map[string]bool)
	for _, s := range l.Subjects() {
		if err := store.UpsertSubject(ctx, s); err != nil {
			return fmt.Errorf("seeding subject %s: %w", s.ID, err)
		}
		known[s.ID] = true
	}

	seeded := 0
	for _, r := range l.Units() {
		if !known[r.SubjectID] {
			if _, err := store.Subject(ctx, r.SubjectID); err != nil {
				slog.Warn("skipping unit with unknown subject", "unit_id", r.ID, "subject_id", r.SubjectID)
				continue
			}
			known[r.SubjectID] = true
		}
		if err := store.UpsertUnit(ctx, r); err != nil {
			return fmt.Errorf("seeding unit %s: %w", r.ID, err)
		}
		seeded++
	}

	slog.Info("curriculum seeded", "subjects", len(l.subjects), "units", seeded)
	return nil
}

func (l *Loader) loadAll() error {
	return filepath.Walk(l.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}

		switch {
		case strings.HasSuffix(path, ".orientation.md"):
			return l.loadNotes(path)
		case strings.HasSuffix(path, ".subject.yaml"), strings.HasSuffix(path, ".subject.yml"):
			return l.loadSubject(path)
		case strings.HasSuffix(path, ".unit.yaml"), strings.HasSuffix(path, ".unit.yml"):
			return l.loadUnit(path, yamlDocument)
		case strings.HasSuffix(path, ".unit.json"):
			return l.loadUnit(path, content.ParseObject)
		}
		return nil
	})
}

func (l *Loader) loadSubject(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var s Subject
	if err := yaml.Unmarshal(data, &s); err != nil {
		slog.Warn("skipping invalid subject YAML", "path", path, "error", err)
		return nil
	}
	if s.ID == "" {
		return nil
	}
	if s.Name == "" {
		s.Name = s.ID
	}

	l.mu.Lock()
	l.subjects[s.ID] = s
	l.mu.Unlock()
	return nil
}

func (l *Loader) loadNotes(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	// Notes belong to the subject file sharing their base name.
	base := strings.TrimSuffix(path, ".orientation.md")
	subjectData, err := os.ReadFile(base + ".subject.yaml")
	if err != nil {
		return nil
	}

	var partial struct {
		ID string `yaml:"id"`
	}
	if err := yaml.Unmarshal(subjectData, &partial); err != nil || partial.ID == "" {
		return nil
	}

	l.mu.Lock()
	l.notes[partial.ID] = string(data)
	l.mu.Unlock()
	return nil
}

func (l *Loader) loadUnit(path string, parse func([]byte) (map[string]any, error)) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	doc, err := parse(data)
	if err != nil {
		slog.Warn("skipping invalid unit document", "path", path, "error", err)
		return nil
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		slog.Warn("skipping unencodable unit document", "path", path, "error", err)
		return nil
	}

	// Columns come from the normalized document so seeded rows agree
	// with what the catalog will decode.
	u, err := content.Parse(raw, time.Now())
	if err != nil || u.ID == "" || u.SubjectID == "" {
		slog.Warn("skipping unit without id or subject_id", "path", path)
		return nil
	}
	if warnings, err := content.Lint(raw); err == nil && len(warnings) > 0 {
		slog.Warn("unit document does not match schema", "path", path, "unit_id", u.ID, "warnings", warnings)
	}

	l.mu.Lock()
	l.units[u.ID] = content.Row{
		ID:          u.ID,
		SubjectID:   u.SubjectID,
		Number:      u.Number,
		Title:       u.Title,
		ContentJSON: raw,
	}
	l.mu.Unlock()
	return nil
}

func yamlDocument(data []byte) (map[string]any, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("empty document")
	}
	return doc, nil
}
