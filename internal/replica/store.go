// Package replica keeps validated documents for a set of shares. Per
// (share, path, author) the newest document wins; older versions are
// discarded and ephemeral documents disappear once their delete_after
// passes. Only *document.Document values enter the store, so everything in
// it has passed the full validation pipeline.
package replica

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"earthstar/go-core/pkg/document"
)

const snapshotSchemaVersion = 1

var ErrUnsupportedSnapshot = errors.New("unsupported replica snapshot version")

type docKey struct {
	share  string
	path   string
	author string
}

// Store holds the newest validated document per (share, path, author),
// optionally persisting a JSON snapshot after every change.
type Store struct {
	mu   sync.RWMutex
	docs map[docKey]*document.Document
	path string
}

type snapshot struct {
	Version   int               `json:"version"`
	Documents []json.RawMessage `json:"documents"`
}

// NewStore creates an in-memory store.
func NewStore() *Store {
	return &Store{docs: make(map[docKey]*document.Document)}
}

// NewPersistentStore creates a store backed by a snapshot file. Every
// document in an existing snapshot is re-validated on load.
func NewPersistentStore(path string) (*Store, error) {
	s := &Store{docs: make(map[docKey]*document.Document), path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func keyOf(doc *document.Document) docKey {
	return docKey{
		share:  doc.Share().String(),
		path:   doc.Path(),
		author: doc.Author().String(),
	}
}

// newerThan reports whether a should replace b: higher timestamp wins, ties
// break toward the lexicographically larger signature so all replicas
// converge on the same version.
func newerThan(a, b *document.Document) bool {
	at, bt := a.Timestamp().UnixMicro(), b.Timestamp().UnixMicro()
	if at != bt {
		return at > bt
	}
	return a.Signature() > b.Signature()
}

// Upsert stores the document unless an equal or newer version of it is
// already present. It reports whether the document was stored.
func (s *Store) Upsert(doc *document.Document) (bool, error) {
	key := keyOf(doc)

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.docs[key]; ok && !newerThan(doc, existing) {
		return false, nil
	}
	next := s.cloneDocsLocked()
	next[key] = doc
	if err := s.persistLocked(next); err != nil {
		return false, err
	}
	s.docs = next
	return true, nil
}

// Get returns the stored document for the exact (share, path, author)
// triple, ignoring expired ephemerals.
func (s *Store) Get(share, path, author string, now time.Time) (*document.Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[docKey{share: share, path: path, author: author}]
	if !ok || doc.Expired(now) {
		return nil, false
	}
	return doc, true
}

// Latest returns the newest non-expired document at a path across all
// authors.
func (s *Store) Latest(share, path string, now time.Time) (*document.Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *document.Document
	for key, doc := range s.docs {
		if key.share != share || key.path != path || doc.Expired(now) {
			continue
		}
		if best == nil || newerThan(doc, best) {
			best = doc
		}
	}
	return best, best != nil
}

// ByShare returns all non-expired documents of a share, ordered by path
// then author.
func (s *Store) ByShare(share string, now time.Time) []*document.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*document.Document, 0)
	for key, doc := range s.docs {
		if key.share == share && !doc.Expired(now) {
			out = append(out, doc)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Path() != out[j].Path() {
			return out[i].Path() < out[j].Path()
		}
		return out[i].Author().String() < out[j].Author().String()
	})
	return out
}

// Len returns the number of stored documents, expired ones included until
// pruned.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// PruneExpired removes documents whose delete_after has passed and reports
// how many were dropped.
func (s *Store) PruneExpired(now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make(map[docKey]*document.Document, len(s.docs))
	pruned := 0
	for key, doc := range s.docs {
		if doc.Expired(now) {
			pruned++
			continue
		}
		next[key] = doc
	}
	if pruned == 0 {
		return 0, nil
	}
	if err := s.persistLocked(next); err != nil {
		return 0, err
	}
	s.docs = next
	return pruned, nil
}

func (s *Store) cloneDocsLocked() map[docKey]*document.Document {
	next := make(map[docKey]*document.Document, len(s.docs)+1)
	for k, v := range s.docs {
		next[k] = v
	}
	return next
}

func (s *Store) persistLocked(docs map[docKey]*document.Document) error {
	if s.path == "" {
		return nil
	}
	snap := snapshot{Version: snapshotSchemaVersion}
	for _, doc := range docs {
		raw, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		snap.Documents = append(snap.Documents, raw)
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(s.path, payload, 0o600)
}

func (s *Store) load() error {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	var snap snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return fmt.Errorf("decode replica snapshot: %w", err)
	}
	if snap.Version != snapshotSchemaVersion {
		return ErrUnsupportedSnapshot
	}
	for _, rawDoc := range snap.Documents {
		doc, err := document.UnmarshalDocument(rawDoc)
		if err != nil {
			return fmt.Errorf("replica snapshot holds an invalid document: %w", err)
		}
		s.docs[keyOf(doc)] = doc
	}
	return nil
}
