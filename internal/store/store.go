package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var (
	ErrNotFound    = errors.New("record not found")
	ErrDuplicateID = errors.New("duplicate record id")
)

// OpObserver receives store operation timings. Satisfied by observability.Prom.
type OpObserver interface {
	ObserveStoreOp(collection, op, status string, seconds float64)
	IncStoreError(collection, class string)
}

// Store owns the data directory and hands out one Collection per entity kind.
// Each collection is an ordered JSON array in its own file; the in-memory
// slice is the source of truth and every successful write is flushed to disk
// before the call returns.
type Store struct {
	mu          sync.Mutex
	dir         string
	collections map[string]*Collection
	obs         OpObserver
}

func Open(dir string, obs OpObserver) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	return &Store{
		dir:         dir,
		collections: make(map[string]*Collection),
		obs:         obs,
	}, nil
}

// Collection opens (or returns the already-open) collection with the given
// name, creating an empty file on first use.
func (s *Store) Collection(name string) (*Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.collections[name]; ok {
		return c, nil
	}

	c := &Collection{
		name: name,
		path: filepath.Join(s.dir, name+".json"),
		obs:  s.obs,
	}

	if err := c.load(); err != nil {
		return nil, err
	}

	s.collections[name] = c

	return c, nil
}

// Ping verifies the data directory is still reachable; used by readiness.
func (s *Store) Ping() error {
	_, err := os.Stat(s.dir)
	return err
}

// Collection is a single durable ordered sequence of JSON records. All
// operations hold the collection mutex, so writers to the same file are
// serialized.
type Collection struct {
	mu   sync.Mutex
	name string
	path string
	docs []json.RawMessage
	obs  OpObserver
}

type idOnly struct {
	ID string `json:"id"`
}

func (c *Collection) load() error {
	data, err := os.ReadFile(c.path)

	if errors.Is(err, os.ErrNotExist) {
		c.docs = nil
		return c.persist()
	}

	if err != nil {
		return fmt.Errorf("read %s: %w", c.path, err)
	}

	var docs []json.RawMessage

	if err := json.Unmarshal(data, &docs); err != nil {
		return fmt.Errorf("parse %s: %w", c.path, err)
	}

	c.docs = docs

	return nil
}

// persist writes the whole collection to a temp file, fsyncs it and renames
// over the live file. Callers must hold c.mu.
func (c *Collection) persist() error {
	data, err := json.MarshalIndent(docsOrEmpty(c.docs), "", "  ")

	if err != nil {
		return err
	}

	tmp := c.path + ".tmp"

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)

	if err != nil {
		return err
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}

	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}

	if err := f.Close(); err != nil {
		return err
	}

	return os.Rename(tmp, c.path)
}

func docsOrEmpty(docs []json.RawMessage) []json.RawMessage {
	if docs == nil {
		return []json.RawMessage{}
	}
	return docs
}

// List returns every record in insertion order. Never nil.
func (c *Collection) List() []json.RawMessage {
	defer c.observe("list", time.Now())

	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]json.RawMessage, len(c.docs))
	copy(out, c.docs)

	return out
}

func (c *Collection) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.docs)
}

func (c *Collection) Get(id string) (json.RawMessage, error) {
	defer c.observe("get", time.Now())

	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.indexOf(id)

	if idx == -1 {
		return nil, ErrNotFound
	}

	return c.docs[idx], nil
}

// Append adds a record with a collection-unique id.
func (c *Collection) Append(record any) error {
	defer c.observe("append", time.Now())

	doc, id, err := encode(record)

	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.indexOf(id) != -1 {
		c.fail("append", ErrDuplicateID)
		return ErrDuplicateID
	}

	c.docs = append(c.docs, doc)

	if err := c.persist(); err != nil {
		// roll back the in-memory append so memory matches disk
		c.docs = c.docs[:len(c.docs)-1]
		c.fail("append", err)
		return err
	}

	return nil
}

// Replace swaps the full record stored under id.
func (c *Collection) Replace(id string, record any) error {
	defer c.observe("replace", time.Now())

	doc, _, err := encode(record)

	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.indexOf(id)

	if idx == -1 {
		return ErrNotFound
	}

	prev := c.docs[idx]
	c.docs[idx] = doc

	if err := c.persist(); err != nil {
		c.docs[idx] = prev
		c.fail("replace", err)
		return err
	}

	return nil
}

// Patch overlays the supplied fields onto the stored record (shallow merge,
// last write wins per field) and returns the merged document.
func (c *Collection) Patch(id string, fields map[string]any) (json.RawMessage, error) {
	defer c.observe("patch", time.Now())

	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.indexOf(id)

	if idx == -1 {
		return nil, ErrNotFound
	}

	var merged map[string]json.RawMessage

	if err := json.Unmarshal(c.docs[idx], &merged); err != nil {
		return nil, err
	}

	for k, v := range fields {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		merged[k] = raw
	}

	doc, err := json.Marshal(merged)

	if err != nil {
		return nil, err
	}

	prev := c.docs[idx]
	c.docs[idx] = doc

	if err := c.persist(); err != nil {
		c.docs[idx] = prev
		c.fail("patch", err)
		return nil, err
	}

	return doc, nil
}

// Remove deletes the record with the given id and reports how many records
// were removed. Removing an absent id is a no-op, not an error.
func (c *Collection) Remove(id string) (int, error) {
	defer c.observe("remove", time.Now())

	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.indexOf(id)

	if idx == -1 {
		return 0, nil
	}

	prev := c.docs
	c.docs = append(append([]json.RawMessage{}, c.docs[:idx]...), c.docs[idx+1:]...)

	if err := c.persist(); err != nil {
		c.docs = prev
		c.fail("remove", err)
		return 0, err
	}

	return 1, nil
}

// indexOf assumes c.mu is held.
func (c *Collection) indexOf(id string) int {
	for i, doc := range c.docs {
		var probe idOnly
		if err := json.Unmarshal(doc, &probe); err != nil {
			continue
		}
		if probe.ID == id {
			return i
		}
	}

	return -1
}

func encode(record any) (json.RawMessage, string, error) {
	doc, err := json.Marshal(record)

	if err != nil {
		return nil, "", err
	}

	var probe idOnly

	if err := json.Unmarshal(doc, &probe); err != nil {
		return nil, "", err
	}

	if probe.ID == "" {
		return nil, "", errors.New("record has no id")
	}

	return doc, probe.ID, nil
}

func (c *Collection) observe(op string, start time.Time) {
	if c.obs == nil {
		return
	}
	c.obs.ObserveStoreOp(c.name, op, "ok", time.Since(start).Seconds())
}

func (c *Collection) fail(op string, err error) {
	if c.obs == nil {
		return
	}

	class := "io"

	switch {
	case errors.Is(err, ErrNotFound):
		class = "not_found"
	case errors.Is(err, ErrDuplicateID):
		class = "duplicate_id"
	}

	c.obs.IncStoreError(c.name, class)
}
