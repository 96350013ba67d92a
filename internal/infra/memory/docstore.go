package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"geolearn-service/internal/domain"
	"geolearn-service/internal/progress"
)

// DocStore is an in-memory implementation of progress.Store, used in tests
// and for running without Redis. A single mutex makes every operation,
// including multi-field Updates, atomic per store.
type DocStore struct {
	mu     sync.Mutex
	docs   map[string]map[string]*document // collection -> id -> document
	serial int
}

type document struct {
	fields map[string]any
	order  int // insertion order, keeps TopN ties stable
}

func NewDocStore() *DocStore {
	return &DocStore{docs: make(map[string]map[string]*document)}
}

func (s *DocStore) Get(_ context.Context, collection, id string, out any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[collection][id]
	if !ok {
		return domain.ErrNotFound
	}
	return decodeInto(doc.fields, out)
}

func (s *DocStore) Set(_ context.Context, collection, id string, doc any) error {
	fields, err := encodeDoc(doc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(collection, id, fields)
	return nil
}

func (s *DocStore) Create(_ context.Context, collection, id string, doc any) error {
	fields, err := encodeDoc(doc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[collection][id]; ok {
		return domain.ErrConflict
	}
	s.put(collection, id, fields)
	return nil
}

func (s *DocStore) Update(_ context.Context, collection, id string, ops ...progress.FieldOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[collection][id]
	if !ok {
		return domain.ErrNotFound
	}
	return progress.ApplyOps(doc.fields, ops)
}

func (s *DocStore) TopN(_ context.Context, collection, orderBy string, limit int, out any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs := make([]*document, 0, len(s.docs[collection]))
	for _, doc := range s.docs[collection] {
		docs = append(docs, doc)
	}

	sort.SliceStable(docs, func(i, j int) bool {
		vi := progress.FieldNumber(docs[i].fields, orderBy)
		vj := progress.FieldNumber(docs[j].fields, orderBy)
		if vi != vj {
			return vi > vj
		}
		return docs[i].order < docs[j].order
	})
	if limit < len(docs) {
		docs = docs[:limit]
	}

	fields := make([]map[string]any, len(docs))
	for i, doc := range docs {
		fields[i] = doc.fields
	}
	return decodeInto(fields, out)
}

// put stores the fields, keeping the original insertion order on replace.
// Caller holds the mutex.
func (s *DocStore) put(collection, id string, fields map[string]any) {
	coll, ok := s.docs[collection]
	if !ok {
		coll = make(map[string]*document)
		s.docs[collection] = coll
	}
	if existing, ok := coll[id]; ok {
		existing.fields = fields
		return
	}
	s.serial++
	coll[id] = &document{fields: fields, order: s.serial}
}

func encodeDoc(doc any) (map[string]any, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	fields := make(map[string]any)
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func decodeInto(v, out any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
