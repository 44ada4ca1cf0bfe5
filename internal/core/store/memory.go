package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Memory is an in-memory Store with optimistic concurrency, used as the
// transactional fake in domain tests and by the seed command.
//
// Every committed write bumps the document version. A transaction records
// the versions it observed (including misses) and validates them at commit;
// any change underneath aborts the attempt with ErrConflict, which the
// retry loop in RunTransaction handles exactly like the Postgres store.
type Memory struct {
	mu   sync.Mutex
	docs map[string]*memDoc

	retry RetryPolicy

	// commitHook, when set, runs right before commit validation of every
	// transaction attempt. Tests use it to interleave a conflicting write.
	commitHook func()
}

type memDoc struct {
	raw        json.RawMessage
	version    int64
	createTime time.Time
	updateTime time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		docs:  make(map[string]*memDoc),
		retry: DefaultRetryPolicy(),
	}
}

// SetCommitHook installs a hook invoked before every commit attempt.
// Pass nil to remove. Intended for tests only.
func (m *Memory) SetCommitHook(fn func()) {
	m.commitHook = fn
}

func (m *Memory) snapshot(path string) *Document {
	doc, ok := m.docs[path]
	if !ok {
		return nil
	}
	raw := make(json.RawMessage, len(doc.raw))
	copy(raw, doc.raw)
	return &Document{
		Path:       path,
		Raw:        raw,
		Version:    doc.version,
		CreateTime: doc.createTime,
		UpdateTime: doc.updateTime,
	}
}

// Get implements Store.
func (m *Memory) Get(ctx context.Context, path string) (*Document, error) {
	if err := ValidateDocPath(path); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot(path), nil
}

// Query implements Store.
func (m *Memory) Query(ctx context.Context, q Query) ([]*Document, error) {
	m.mu.Lock()
	var docs []*Document
	for path := range m.docs {
		if CollectionOf(path) == q.Collection {
			docs = append(docs, m.snapshot(path))
		}
	}
	m.mu.Unlock()
	return applyQuery(docs, q)
}

// RunTransaction implements Store.
func (m *Memory) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return RunWithRetry(ctx, m.retry, func(ctx context.Context) error {
		tx := &memTx{
			store:    m,
			reads:    make(map[string]int64),
			writes:   make(map[string]*json.RawMessage),
			creating: make(map[string]bool),
		}

		if err := fn(ctx, tx); err != nil {
			return err
		}

		if m.commitHook != nil {
			m.commitHook()
		}

		return m.commit(tx)
	})
}

func (m *Memory) commit(tx *memTx) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Validate every observed version, reads and writes alike.
	for path, version := range tx.reads {
		var current int64
		if doc, ok := m.docs[path]; ok {
			current = doc.version
		}
		if current != version {
			return fmt.Errorf("%s changed underneath transaction: %w", path, ErrConflict)
		}
	}
	for path := range tx.creating {
		if _, ok := m.docs[path]; ok {
			return fmt.Errorf("%s created concurrently: %w", path, ErrConflict)
		}
	}

	now := time.Now().UTC()
	for path, raw := range tx.writes {
		if raw == nil {
			delete(m.docs, path)
			continue
		}
		doc, ok := m.docs[path]
		if !ok {
			doc = &memDoc{createTime: now}
			m.docs[path] = doc
		}
		doc.raw = *raw
		doc.version++
		doc.updateTime = now
	}
	return nil
}

// memTx stages writes and records observed versions for commit validation.
type memTx struct {
	store *Memory

	reads    map[string]int64
	writes   map[string]*json.RawMessage // nil value = delete
	creating map[string]bool
}

func (t *memTx) observe(path string) *Document {
	t.store.mu.Lock()
	doc := t.store.snapshot(path)
	t.store.mu.Unlock()

	if _, seen := t.reads[path]; !seen {
		if doc == nil {
			t.reads[path] = 0
		} else {
			t.reads[path] = doc.Version
		}
	}
	return doc
}

func (t *memTx) Get(path string) (*Document, error) {
	if err := ValidateDocPath(path); err != nil {
		return nil, err
	}

	// Read-your-writes within the transaction.
	if raw, ok := t.writes[path]; ok {
		t.observe(path)
		if raw == nil {
			return nil, nil
		}
		return &Document{Path: path, Raw: *raw}, nil
	}

	return t.observe(path), nil
}

func (t *memTx) Query(q Query) ([]*Document, error) {
	t.store.mu.Lock()
	seen := make(map[string]*Document)
	for path := range t.store.docs {
		if CollectionOf(path) == q.Collection {
			seen[path] = t.store.snapshot(path)
		}
	}
	t.store.mu.Unlock()

	for path, doc := range seen {
		if _, ok := t.reads[path]; !ok {
			t.reads[path] = doc.Version
		}
	}

	// Overlay staged writes.
	for path, raw := range t.writes {
		if CollectionOf(path) != q.Collection {
			continue
		}
		if raw == nil {
			delete(seen, path)
		} else {
			seen[path] = &Document{Path: path, Raw: *raw}
		}
	}

	docs := make([]*Document, 0, len(seen))
	for _, doc := range seen {
		docs = append(docs, doc)
	}
	return applyQuery(docs, q)
}

func (t *memTx) put(path string, data any, mustExist, mustNotExist bool) error {
	if err := ValidateDocPath(path); err != nil {
		return err
	}

	existing, err := t.Get(path)
	if err != nil {
		return err
	}
	if mustExist && existing == nil {
		return fmt.Errorf("update %s: document does not exist", path)
	}
	if mustNotExist {
		if existing != nil {
			return fmt.Errorf("create %s: document already exists", path)
		}
		t.creating[path] = true
	}

	raw, err := Encode(data)
	if err != nil {
		return err
	}
	t.writes[path] = &raw
	return nil
}

func (t *memTx) Create(path string, data any) error {
	return t.put(path, data, false, true)
}

func (t *memTx) Set(path string, data any) error {
	return t.put(path, data, false, false)
}

func (t *memTx) Update(path string, data any) error {
	return t.put(path, data, true, false)
}

func (t *memTx) Delete(path string) error {
	if err := ValidateDocPath(path); err != nil {
		return err
	}
	t.observe(path)
	t.writes[path] = nil
	return nil
}

// --- Query evaluation (shared by Memory and memTx) ---

func applyQuery(docs []*Document, q Query) ([]*Document, error) {
	filtered := docs[:0]
	for _, doc := range docs {
		ok, err := matches(doc, q.Filters)
		if err != nil {
			return nil, err
		}
		if ok {
			filtered = append(filtered, doc)
		}
	}

	sort.Slice(filtered, func(i, j int) bool {
		less := orderLess(filtered[i], filtered[j], q.OrderBy)
		if q.Desc {
			return !less
		}
		return less
	})

	if q.Limit > 0 && len(filtered) > q.Limit {
		filtered = filtered[:q.Limit]
	}
	return filtered, nil
}

func orderLess(a, b *Document, field string) bool {
	if field == "" {
		return a.Path < b.Path
	}
	av, _ := fieldValue(a, field)
	bv, _ := fieldValue(b, field)
	if cmp, ok := compareValues(av, bv); ok {
		return cmp < 0
	}
	return a.Path < b.Path
}

func matches(doc *Document, filters []Filter) (bool, error) {
	for _, f := range filters {
		v, err := fieldValue(doc, f.Field)
		if err != nil {
			return false, err
		}
		cmp, ok := compareValues(v, f.Value)
		if !ok {
			return false, nil
		}
		switch f.Op {
		case OpEqual:
			if cmp != 0 {
				return false, nil
			}
		case OpLess:
			if cmp >= 0 {
				return false, nil
			}
		case OpLessEqual:
			if cmp > 0 {
				return false, nil
			}
		case OpGreater:
			if cmp <= 0 {
				return false, nil
			}
		case OpGreaterEqual:
			if cmp < 0 {
				return false, nil
			}
		default:
			return false, fmt.Errorf("unsupported filter op %q", f.Op)
		}
	}
	return true, nil
}

func fieldValue(doc *Document, field string) (any, error) {
	m, err := doc.Fields()
	if err != nil {
		return nil, err
	}
	return m[field], nil
}

// compareValues compares two JSON-ish scalars. Both sides are normalized:
// any numeric type becomes float64, fmt.Stringer values become strings.
func compareValues(a, b any) (int, bool) {
	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	}

	as, aok := toString(a)
	bs, bok := toString(b)
	if aok && bok {
		return strings.Compare(as, bs), true
	}

	ab, aok := a.(bool)
	bb, bok := b.(bool)
	if aok && bok {
		if ab == bb {
			return 0, true
		}
		if !ab {
			return -1, true
		}
		return 1, true
	}

	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func toString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case fmt.Stringer:
		return s.String(), true
	default:
		return "", false
	}
}
