// Package stratadb is a single-node, in-memory vector database: libraries
// contain documents, documents contain searchable chunks, and each
// library can be indexed with a pluggable nearest-neighbor algorithm.
//
// Service is the composition root: it wires the store, the index
// registry, and the snapshot engine together and is the entry point
// every caller (the cmd/stratadb CLI, or an embedding program) should
// use.
package stratadb

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/stratadb/stratadb/internal/config"
	"github.com/stratadb/stratadb/internal/index"
	"github.com/stratadb/stratadb/internal/registry"
	"github.com/stratadb/stratadb/internal/snapshot"
	"github.com/stratadb/stratadb/internal/store"
	"github.com/stratadb/stratadb/internal/vdberrors"
)

// Field length limits enforced on create/update, matching the reference
// implementation's request validation.
const (
	maxNameLength = 255
	maxDescLength = 1000
	minTextLength = 1
	maxTextLength = 10000
)

// Service is the main entry point: it composes a Store, a Registry, and
// a snapshot Engine behind a single facade.
type Service struct {
	store     *store.Store
	registry  *registry.Registry
	snapshots *snapshot.Engine
	cfg       *config.Config
	logger    *slog.Logger
}

// New builds a Service from cfg. A nil cfg loads configuration from the
// environment.
func New(cfg *config.Config) (*Service, error) {
	if cfg == nil {
		cfg = config.LoadFromEnv()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("stratadb: invalid config: %w", err)
	}

	s := store.New()
	lshParams := index.LSHParams{
		NumPlanes: cfg.Index.LSHNumPlanes,
		NumTables: cfg.Index.LSHNumTables,
		Seed:      cfg.Index.LSHSeed,
	}
	overfetch := registry.OverfetchParams{
		Multiplier:         cfg.Search.Multiplier,
		Buffer:             cfg.Search.Buffer,
		FilteredMultiplier: cfg.Search.FilteredMultiplier,
		FilteredBuffer:     cfg.Search.FilteredBuffer,
	}
	r := registry.New(s, cfg.Index.DefaultMetric, lshParams, overfetch)

	return &Service{
		store:     s,
		registry:  r,
		snapshots: snapshot.New(s, r, cfg.Database.DataDir),
		cfg:       cfg,
		logger:    slog.Default().With("component", "stratadb"),
	}, nil
}

func sanitizeMetadata(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		key := strings.TrimSpace(k)
		if key == "" {
			continue
		}
		out[key] = strings.TrimSpace(v)
	}
	return out
}

func truncatedLen(s string, max int) error {
	if len(s) > max {
		return vdberrors.InvalidInput(fmt.Sprintf("exceeds maximum length of %d", max))
	}
	return nil
}

// CreateLibrary creates a new library with a generated id.
func (s *Service) CreateLibrary(name, description string, metadata map[string]string) (store.Library, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return store.Library{}, vdberrors.InvalidInput("name must not be empty")
	}
	if err := truncatedLen(name, maxNameLength); err != nil {
		return store.Library{}, err
	}
	if err := truncatedLen(description, maxDescLength); err != nil {
		return store.Library{}, err
	}

	lib := store.Library{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		Metadata:    sanitizeMetadata(metadata),
	}
	created := s.store.CreateLibrary(lib)
	s.logger.Info("library created", "library_id", created.ID)
	return created, nil
}

// GetLibrary returns the library with id.
func (s *Service) GetLibrary(id string) (store.Library, error) {
	return s.store.GetLibrary(id)
}

// ListLibraries returns every library.
func (s *Service) ListLibraries() []store.Library {
	return s.store.ListLibraries()
}

// UpdateLibraryParams names the library fields UpdateLibrary may change;
// a nil field is left unchanged.
type UpdateLibraryParams struct {
	Name        *string
	Description *string
	Metadata    map[string]string
}

// UpdateLibrary applies the given params to the existing library.
func (s *Service) UpdateLibrary(id string, params UpdateLibraryParams) (store.Library, error) {
	lib, err := s.store.GetLibrary(id)
	if err != nil {
		return store.Library{}, err
	}

	if params.Name != nil {
		name := strings.TrimSpace(*params.Name)
		if name == "" {
			return store.Library{}, vdberrors.InvalidInput("name must not be empty")
		}
		if err := truncatedLen(name, maxNameLength); err != nil {
			return store.Library{}, err
		}
		lib.Name = name
	}
	if params.Description != nil {
		if err := truncatedLen(*params.Description, maxDescLength); err != nil {
			return store.Library{}, err
		}
		lib.Description = *params.Description
	}
	if params.Metadata != nil {
		lib.Metadata = sanitizeMetadata(params.Metadata)
	}

	updated, err := s.store.UpdateLibrary(lib)
	if err != nil {
		return store.Library{}, err
	}
	s.logger.Info("library updated", "library_id", updated.ID)
	return updated, nil
}

// DeleteLibrary removes a library, its documents, and its chunks, and
// clears its built index.
func (s *Service) DeleteLibrary(id string) error {
	if err := s.store.DeleteLibrary(id); err != nil {
		return err
	}
	s.registry.ClearIndex(id)
	s.logger.Info("library deleted", "library_id", id)
	return nil
}

// CreateDocument creates a document under libraryID.
func (s *Service) CreateDocument(libraryID, title, description string, metadata map[string]string) (store.Document, error) {
	if _, err := s.store.GetLibrary(libraryID); err != nil {
		return store.Document{}, err
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return store.Document{}, vdberrors.InvalidInput("title must not be empty")
	}
	if err := truncatedLen(title, maxNameLength); err != nil {
		return store.Document{}, err
	}
	if err := truncatedLen(description, maxDescLength); err != nil {
		return store.Document{}, err
	}

	doc := store.Document{
		ID:          uuid.NewString(),
		LibraryID:   libraryID,
		Title:       title,
		Description: description,
		Metadata:    sanitizeMetadata(metadata),
	}
	created := s.store.CreateDocument(doc)
	s.logger.Info("document created", "document_id", created.ID, "library_id", libraryID)
	return created, nil
}

// GetDocument returns the document with id.
func (s *Service) GetDocument(id string) (store.Document, error) {
	return s.store.GetDocument(id)
}

// ListDocuments returns every document belonging to libraryID.
func (s *Service) ListDocuments(libraryID string) []store.Document {
	return s.store.ListDocumentsByLibrary(libraryID)
}

// UpdateDocumentParams names the document fields UpdateDocument may
// change; a nil field is left unchanged.
type UpdateDocumentParams struct {
	Title       *string
	Description *string
	Metadata    map[string]string
}

// UpdateDocument applies the given params to the existing document.
func (s *Service) UpdateDocument(id string, params UpdateDocumentParams) (store.Document, error) {
	doc, err := s.store.GetDocument(id)
	if err != nil {
		return store.Document{}, err
	}

	if params.Title != nil {
		title := strings.TrimSpace(*params.Title)
		if title == "" {
			return store.Document{}, vdberrors.InvalidInput("title must not be empty")
		}
		if err := truncatedLen(title, maxNameLength); err != nil {
			return store.Document{}, err
		}
		doc.Title = title
	}
	if params.Description != nil {
		if err := truncatedLen(*params.Description, maxDescLength); err != nil {
			return store.Document{}, err
		}
		doc.Description = *params.Description
	}
	if params.Metadata != nil {
		doc.Metadata = sanitizeMetadata(params.Metadata)
	}

	updated, err := s.store.UpdateDocument(doc)
	if err != nil {
		return store.Document{}, err
	}
	s.logger.Info("document updated", "document_id", updated.ID)
	return updated, nil
}

// DeleteDocument removes a document and its chunks.
func (s *Service) DeleteDocument(id string) error {
	if err := s.store.DeleteDocument(id); err != nil {
		return err
	}
	s.logger.Info("document deleted", "document_id", id)
	return nil
}

// CreateChunk creates a chunk under documentID, which must belong to
// libraryID. The first non-empty embedding recorded against a library
// freezes its dimensionality; every later chunk must match it.
func (s *Service) CreateChunk(libraryID, documentID, text string, embedding []float64, metadata map[string]string) (store.Chunk, error) {
	doc, err := s.store.GetDocument(documentID)
	if err != nil {
		return store.Chunk{}, err
	}
	if doc.LibraryID != libraryID {
		return store.Chunk{}, vdberrors.NotFound("Document", documentID)
	}

	text = strings.TrimSpace(text)
	if len(text) < minTextLength {
		return store.Chunk{}, vdberrors.InvalidInput("text must not be empty")
	}
	if err := truncatedLen(text, maxTextLength); err != nil {
		return store.Chunk{}, err
	}

	if err := s.enforceEmbeddingDimension(libraryID, embedding); err != nil {
		return store.Chunk{}, err
	}

	chunk := store.Chunk{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		Text:       text,
		Embedding:  embedding,
		Metadata:   sanitizeMetadata(metadata),
	}
	created := s.store.CreateChunk(chunk)
	s.logger.Info("chunk created", "chunk_id", created.ID, "document_id", documentID)
	return created, nil
}

// enforceEmbeddingDimension validates embedding against the library's
// frozen dimensionality, freezing it on the first non-empty embedding.
func (s *Service) enforceEmbeddingDimension(libraryID string, embedding []float64) error {
	if len(embedding) == 0 {
		return nil
	}

	lib, err := s.store.GetLibrary(libraryID)
	if err != nil {
		return err
	}

	if lib.EmbeddingDim != nil {
		if len(embedding) != *lib.EmbeddingDim {
			return vdberrors.DimensionMismatch(*lib.EmbeddingDim, len(embedding))
		}
		return nil
	}

	if err := s.store.SetLibraryEmbeddingDim(libraryID, len(embedding)); err != nil {
		return err
	}
	s.logger.Info("library embedding dimension frozen", "library_id", libraryID, "dim", len(embedding))
	return nil
}

// GetChunk returns the chunk with id.
func (s *Service) GetChunk(id string) (store.Chunk, error) {
	return s.store.GetChunk(id)
}

// ListChunks returns every chunk belonging to libraryID.
func (s *Service) ListChunks(libraryID string) []store.Chunk {
	return s.store.ListChunksByLibrary(libraryID)
}

// UpdateChunkParams names the chunk fields UpdateChunk may change; a nil
// field is left unchanged.
type UpdateChunkParams struct {
	Text      *string
	Embedding []float64 // nil means unchanged
	Metadata  map[string]string
}

// UpdateChunk applies the given params to the existing chunk. Changing
// Embedding re-validates against the library's frozen dimensionality but
// does not rebuild or invalidate any already-built index; callers that
// need search results to reflect the update must rebuild the index
// explicitly.
func (s *Service) UpdateChunk(id string, params UpdateChunkParams) (store.Chunk, error) {
	chunk, err := s.store.GetChunk(id)
	if err != nil {
		return store.Chunk{}, err
	}

	if params.Embedding != nil {
		libraryID, ok := s.store.LibraryIDForDocument(chunk.DocumentID)
		if ok {
			if err := s.enforceEmbeddingDimension(libraryID, params.Embedding); err != nil {
				return store.Chunk{}, err
			}
		}
		chunk.Embedding = params.Embedding
	}
	if params.Text != nil {
		text := strings.TrimSpace(*params.Text)
		if len(text) < minTextLength {
			return store.Chunk{}, vdberrors.InvalidInput("text must not be empty")
		}
		if err := truncatedLen(text, maxTextLength); err != nil {
			return store.Chunk{}, err
		}
		chunk.Text = text
	}
	if params.Metadata != nil {
		chunk.Metadata = sanitizeMetadata(params.Metadata)
	}

	updated, err := s.store.UpdateChunk(chunk)
	if err != nil {
		return store.Chunk{}, err
	}
	s.logger.Info("chunk updated", "chunk_id", updated.ID)
	return updated, nil
}

// DeleteChunk removes a single chunk. The chunk may still appear as a
// candidate in an already-built index until the index is rebuilt; Search
// silently skips candidates that no longer exist in the store.
func (s *Service) DeleteChunk(id string) error {
	if err := s.store.DeleteChunk(id); err != nil {
		return err
	}
	s.logger.Info("chunk deleted", "chunk_id", id)
	return nil
}

// BuildIndex (re)builds libraryID's index using algorithm and metric.
func (s *Service) BuildIndex(libraryID, algorithm, metric string) error {
	if _, err := s.store.GetLibrary(libraryID); err != nil {
		return err
	}
	if err := s.registry.BuildIndex(libraryID, algorithm, metric); err != nil {
		return err
	}
	s.logger.Info("index built", "library_id", libraryID, "algorithm", algorithm, "metric", metric)
	return nil
}

// GetIndexInfo reports the algorithm and metric active for libraryID.
func (s *Service) GetIndexInfo(libraryID string) registry.Info {
	return s.registry.GetIndexInfo(libraryID)
}

// SearchResult is a single scored chunk returned by Search, enriched with
// the fields a caller needs without a follow-up GetChunk call.
type SearchResult struct {
	ChunkID    string
	DocumentID string
	Score      float64
	Text       string
	Metadata   map[string]string
}

// Search returns up to k chunks from libraryID nearest to vector, most
// similar first, optionally restricted to chunks whose metadata matches
// every key/value in metadataFilters exactly.
func (s *Service) Search(libraryID string, vector []float64, k int, metadataFilters map[string]string) ([]SearchResult, error) {
	if _, err := s.store.GetLibrary(libraryID); err != nil {
		return nil, err
	}
	if len(vector) == 0 {
		return nil, vdberrors.InvalidInput("query vector must not be empty")
	}

	matches, err := s.registry.Search(libraryID, vector, k, metadataFilters)
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(matches))
	for _, m := range matches {
		chunk, err := s.store.GetChunk(m.ID)
		if err != nil {
			continue
		}
		results = append(results, SearchResult{
			ChunkID:    chunk.ID,
			DocumentID: chunk.DocumentID,
			Score:      m.Score,
			Text:       chunk.Text,
			Metadata:   chunk.Metadata,
		})
	}
	return results, nil
}

// SaveSnapshot writes the database to path, or to a timestamped default
// path under the configured data directory if path is empty.
func (s *Service) SaveSnapshot(path string) (string, error) {
	return s.snapshots.Save(path)
}

// LoadSnapshot restores the database from path, rebuilding every index
// recorded in the snapshot.
func (s *Service) LoadSnapshot(path string) error {
	return s.snapshots.Load(path)
}
