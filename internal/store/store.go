package store

import (
	"github.com/stratadb/stratadb/internal/rwmutex"
	"github.com/stratadb/stratadb/internal/vdberrors"
)

// Store holds every Library, Document, and Chunk in memory behind a
// single writer-priority lock. All reads return deep copies so callers
// can never mutate state out from under a concurrent writer.
type Store struct {
	mu        *rwmutex.RWMutex
	libraries map[string]Library
	documents map[string]Document
	chunks    map[string]Chunk
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		mu:        rwmutex.New(),
		libraries: make(map[string]Library),
		documents: make(map[string]Document),
		chunks:    make(map[string]Chunk),
	}
}

// CreateLibrary inserts or overwrites library by id.
func (s *Store) CreateLibrary(l Library) Library {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := cloneLibrary(l)
	s.libraries[l.ID] = stored
	return cloneLibrary(stored)
}

// GetLibrary returns a copy of the library with id, or NotFoundError.
func (s *Store) GetLibrary(id string) (Library, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.libraries[id]
	if !ok {
		return Library{}, vdberrors.NotFound("Library", id)
	}
	return cloneLibrary(l), nil
}

// ListLibraries returns a copy of every stored library.
func (s *Store) ListLibraries() []Library {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Library, 0, len(s.libraries))
	for _, l := range s.libraries {
		out = append(out, cloneLibrary(l))
	}
	return out
}

// UpdateLibrary overwrites an existing library, returning NotFoundError
// if it does not exist.
func (s *Store) UpdateLibrary(l Library) (Library, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.libraries[l.ID]; !ok {
		return Library{}, vdberrors.NotFound("Library", l.ID)
	}
	stored := cloneLibrary(l)
	s.libraries[l.ID] = stored
	return cloneLibrary(stored), nil
}

// SetLibraryEmbeddingDim freezes dim as the library's embedding
// dimensionality. Called once, when the first non-empty chunk embedding
// is recorded. A dimension that is already set is never changed: calling
// it again with the same dim is a no-op, and with a different dim returns
// DimensionMismatchError.
func (s *Store) SetLibraryEmbeddingDim(id string, dim int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.libraries[id]
	if !ok {
		return vdberrors.NotFound("Library", id)
	}
	if l.EmbeddingDim != nil {
		if *l.EmbeddingDim != dim {
			return vdberrors.DimensionMismatch(*l.EmbeddingDim, dim)
		}
		return nil
	}
	d := dim
	l.EmbeddingDim = &d
	s.libraries[id] = l
	return nil
}

// DeleteLibrary removes a library along with every document and chunk
// that belongs to it.
func (s *Store) DeleteLibrary(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.libraries[id]; !ok {
		return vdberrors.NotFound("Library", id)
	}

	docIDs := make(map[string]struct{})
	for _, d := range s.documents {
		if d.LibraryID == id {
			docIDs[d.ID] = struct{}{}
		}
	}
	for cid, c := range s.chunks {
		if _, ok := docIDs[c.DocumentID]; ok {
			delete(s.chunks, cid)
		}
	}
	for did := range docIDs {
		delete(s.documents, did)
	}
	delete(s.libraries, id)
	return nil
}

// CreateDocument inserts or overwrites document by id.
func (s *Store) CreateDocument(d Document) Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := cloneDocument(d)
	s.documents[d.ID] = stored
	return cloneDocument(stored)
}

// GetDocument returns a copy of the document with id, or NotFoundError.
func (s *Store) GetDocument(id string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.documents[id]
	if !ok {
		return Document{}, vdberrors.NotFound("Document", id)
	}
	return cloneDocument(d), nil
}

// ListDocumentsByLibrary returns every document belonging to libraryID.
func (s *Store) ListDocumentsByLibrary(libraryID string) []Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Document
	for _, d := range s.documents {
		if d.LibraryID == libraryID {
			out = append(out, cloneDocument(d))
		}
	}
	return out
}

// UpdateDocument overwrites an existing document, returning NotFoundError
// if it does not exist.
func (s *Store) UpdateDocument(d Document) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[d.ID]; !ok {
		return Document{}, vdberrors.NotFound("Document", d.ID)
	}
	stored := cloneDocument(d)
	s.documents[d.ID] = stored
	return cloneDocument(stored), nil
}

// DeleteDocument removes a document along with every chunk that belongs
// to it.
func (s *Store) DeleteDocument(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[id]; !ok {
		return vdberrors.NotFound("Document", id)
	}
	for cid, c := range s.chunks {
		if c.DocumentID == id {
			delete(s.chunks, cid)
		}
	}
	delete(s.documents, id)
	return nil
}

// CreateChunk inserts or overwrites chunk by id.
func (s *Store) CreateChunk(c Chunk) Chunk {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := cloneChunk(c)
	s.chunks[c.ID] = stored
	return cloneChunk(stored)
}

// GetChunk returns a copy of the chunk with id, or NotFoundError.
func (s *Store) GetChunk(id string) (Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chunks[id]
	if !ok {
		return Chunk{}, vdberrors.NotFound("Chunk", id)
	}
	return cloneChunk(c), nil
}

// ListChunksByDocument returns every chunk belonging to documentID.
func (s *Store) ListChunksByDocument(documentID string) []Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Chunk
	for _, c := range s.chunks {
		if c.DocumentID == documentID {
			out = append(out, cloneChunk(c))
		}
	}
	return out
}

// ListChunksByLibrary returns every chunk belonging to any document of
// libraryID.
func (s *Store) ListChunksByLibrary(libraryID string) []Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docIDs := make(map[string]struct{})
	for _, d := range s.documents {
		if d.LibraryID == libraryID {
			docIDs[d.ID] = struct{}{}
		}
	}
	var out []Chunk
	for _, c := range s.chunks {
		if _, ok := docIDs[c.DocumentID]; ok {
			out = append(out, cloneChunk(c))
		}
	}
	return out
}

// UpdateChunk overwrites an existing chunk, returning NotFoundError if it
// does not exist.
func (s *Store) UpdateChunk(c Chunk) (Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chunks[c.ID]; !ok {
		return Chunk{}, vdberrors.NotFound("Chunk", c.ID)
	}
	stored := cloneChunk(c)
	s.chunks[c.ID] = stored
	return cloneChunk(stored), nil
}

// DeleteChunk removes a single chunk.
func (s *Store) DeleteChunk(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chunks[id]; !ok {
		return vdberrors.NotFound("Chunk", id)
	}
	delete(s.chunks, id)
	return nil
}

// ChunkDocumentID returns the document id a chunk belongs to, without
// exposing internal maps.
func (s *Store) ChunkDocumentID(chunkID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chunks[chunkID]
	if !ok {
		return "", false
	}
	return c.DocumentID, true
}

// LibraryIDForDocument returns the library id a document belongs to.
func (s *Store) LibraryIDForDocument(documentID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.documents[documentID]
	if !ok {
		return "", false
	}
	return d.LibraryID, true
}

// Snapshot is a point-in-time, deep copy of every table, suitable for
// JSON serialization by internal/snapshot.
type Snapshot struct {
	Libraries []Library
	Documents []Document
	Chunks    []Chunk
}

// Snapshot returns a deep copy of the store's full contents.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		Libraries: make([]Library, 0, len(s.libraries)),
		Documents: make([]Document, 0, len(s.documents)),
		Chunks:    make([]Chunk, 0, len(s.chunks)),
	}
	for _, l := range s.libraries {
		snap.Libraries = append(snap.Libraries, cloneLibrary(l))
	}
	for _, d := range s.documents {
		snap.Documents = append(snap.Documents, cloneDocument(d))
	}
	for _, c := range s.chunks {
		snap.Chunks = append(snap.Chunks, cloneChunk(c))
	}
	return snap
}

// LoadSnapshot replaces the store's entire contents with snap. It parses
// and clones snap before acquiring the write lock so a malformed restore
// never leaves the store partially cleared.
func (s *Store) LoadSnapshot(snap Snapshot) {
	libraries := make(map[string]Library, len(snap.Libraries))
	for _, l := range snap.Libraries {
		libraries[l.ID] = cloneLibrary(l)
	}
	documents := make(map[string]Document, len(snap.Documents))
	for _, d := range snap.Documents {
		documents[d.ID] = cloneDocument(d)
	}
	chunks := make(map[string]Chunk, len(snap.Chunks))
	for _, c := range snap.Chunks {
		chunks[c.ID] = cloneChunk(c)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.libraries = libraries
	s.documents = documents
	s.chunks = chunks
}
