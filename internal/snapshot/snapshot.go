// Package snapshot persists a Store and its Registry's index metadata to
// a JSON file on disk, and restores both from one.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/stratadb/stratadb/internal/registry"
	"github.com/stratadb/stratadb/internal/store"
)

// document is the on-disk JSON shape. Field order is alphabetical so a
// directly inspected file reads the same way regardless of which Go
// struct produced it.
type document struct {
	Chunks    []chunkDoc          `json:"chunks"`
	Documents []documentDoc       `json:"documents"`
	Indices   map[string]indexDoc `json:"indices"`
	Libraries []libraryDoc        `json:"libraries"`
	Timestamp string              `json:"timestamp"`
}

type libraryDoc struct {
	Description  string            `json:"description"`
	EmbeddingDim *int              `json:"embedding_dim"`
	ID           string            `json:"id"`
	Metadata     map[string]string `json:"metadata"`
	Name         string            `json:"name"`
}

type documentDoc struct {
	Description string            `json:"description"`
	ID          string            `json:"id"`
	LibraryID   string            `json:"library_id"`
	Metadata    map[string]string `json:"metadata"`
	Title       string            `json:"title"`
}

type chunkDoc struct {
	DocumentID string            `json:"document_id"`
	Embedding  []float64         `json:"embedding"`
	ID         string            `json:"id"`
	Metadata   map[string]string `json:"metadata"`
	Text       string            `json:"text"`
}

type indexDoc struct {
	Algorithm string `json:"algorithm"`
	Metric    string `json:"metric"`
}

// Engine saves and restores a Store plus its Registry's index metadata.
type Engine struct {
	store    *store.Store
	registry *registry.Registry
	dataDir  string
}

// New returns an Engine writing timestamped snapshots under dataDir by
// default.
func New(s *store.Store, r *registry.Registry, dataDir string) *Engine {
	return &Engine{store: s, registry: r, dataDir: dataDir}
}

// DefaultPath returns the path Save uses when called with an empty path:
// dataDir/snapshot_YYYYMMDD_HHMMSS.json.
func (e *Engine) DefaultPath(now time.Time) string {
	return filepath.Join(e.dataDir, fmt.Sprintf("snapshot_%s.json", now.Format("20060102_150405")))
}

// Save writes the current store and index metadata to path, or to
// DefaultPath(time.Now()) if path is empty. It writes to a temp file in
// the same directory and renames it into place so a reader never
// observes a partially written snapshot.
func (e *Engine) Save(path string) (string, error) {
	if path == "" {
		path = e.DefaultPath(time.Now())
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("snapshot: failed to create directory: %w", err)
	}

	doc := e.toDocument()

	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("snapshot: failed to create file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("snapshot: failed to encode: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("snapshot: failed to sync: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("snapshot: failed to close: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("snapshot: failed to rename into place: %w", err)
	}
	return path, nil
}

// DefaultLoadPath returns the path Load uses when called with an empty
// path: dataDir/snapshot.json.
func (e *Engine) DefaultLoadPath() string {
	return filepath.Join(e.dataDir, "snapshot.json")
}

// Load restores the store and rebuilds every index recorded in the
// snapshot at path, or at DefaultLoadPath() if path is empty. A missing
// file at the resolved path is a successful no-op: it is logged, not
// treated as an error. A library whose index fails to rebuild is
// skipped; its data is still restored.
func (e *Engine) Load(path string) error {
	if path == "" {
		path = e.DefaultLoadPath()
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Default().Info("snapshot file not found, skipping load", "path", path)
			return nil
		}
		return fmt.Errorf("snapshot: failed to open file: %w", err)
	}
	defer file.Close()

	var doc document
	if err := json.NewDecoder(file).Decode(&doc); err != nil {
		return fmt.Errorf("snapshot: failed to decode: %w", err)
	}

	e.store.LoadSnapshot(fromDocument(doc))

	meta := make(map[string]registry.Info, len(doc.Indices))
	for libraryID, idx := range doc.Indices {
		meta[libraryID] = registry.Info{LibraryID: libraryID, Algorithm: idx.Algorithm, Metric: idx.Metric}
	}
	e.registry.RebuildIndices(meta)
	return nil
}

func (e *Engine) toDocument() document {
	snap := e.store.Snapshot()
	meta := e.registry.GetIndexMetadata()

	doc := document{
		Chunks:    make([]chunkDoc, len(snap.Chunks)),
		Documents: make([]documentDoc, len(snap.Documents)),
		Indices:   make(map[string]indexDoc, len(meta)),
		Libraries: make([]libraryDoc, len(snap.Libraries)),
		Timestamp: time.Now().Format(time.RFC3339),
	}

	for i, l := range snap.Libraries {
		doc.Libraries[i] = libraryDoc{
			Description:  l.Description,
			EmbeddingDim: l.EmbeddingDim,
			ID:           l.ID,
			Metadata:     l.Metadata,
			Name:         l.Name,
		}
	}
	for i, d := range snap.Documents {
		doc.Documents[i] = documentDoc{
			Description: d.Description,
			ID:          d.ID,
			LibraryID:   d.LibraryID,
			Metadata:    d.Metadata,
			Title:       d.Title,
		}
	}
	for i, c := range snap.Chunks {
		doc.Chunks[i] = chunkDoc{
			DocumentID: c.DocumentID,
			Embedding:  c.Embedding,
			ID:         c.ID,
			Metadata:   c.Metadata,
			Text:       c.Text,
		}
	}
	for libraryID, info := range meta {
		doc.Indices[libraryID] = indexDoc{Algorithm: info.Algorithm, Metric: info.Metric}
	}
	return doc
}

func fromDocument(doc document) store.Snapshot {
	snap := store.Snapshot{
		Libraries: make([]store.Library, len(doc.Libraries)),
		Documents: make([]store.Document, len(doc.Documents)),
		Chunks:    make([]store.Chunk, len(doc.Chunks)),
	}
	for i, l := range doc.Libraries {
		snap.Libraries[i] = store.Library{
			ID:           l.ID,
			Name:         l.Name,
			Description:  l.Description,
			Metadata:     l.Metadata,
			EmbeddingDim: l.EmbeddingDim,
		}
	}
	for i, d := range doc.Documents {
		snap.Documents[i] = store.Document{
			ID:          d.ID,
			LibraryID:   d.LibraryID,
			Title:       d.Title,
			Description: d.Description,
			Metadata:    d.Metadata,
		}
	}
	for i, c := range doc.Chunks {
		snap.Chunks[i] = store.Chunk{
			ID:         c.ID,
			DocumentID: c.DocumentID,
			Text:       c.Text,
			Embedding:  c.Embedding,
			Metadata:   c.Metadata,
		}
	}
	return snap
}
