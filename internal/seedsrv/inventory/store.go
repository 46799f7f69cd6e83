package inventory

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	json "github.com/json-iterator/go"
	"github.com/nerd4ever/kaya-seed/internal/common/apperrors"
)

const metadataExt = ".metadata"

// Store is a file-backed record of provisioned orders and per-artifact
// audit logs. One file per order record, one log blob per artifact, all
// writes are whole-object rewrites. Record blobs are staged in a
// temporary file and published with link (create) or rename (rewrite),
// so a record that exists always has its full content: readers never
// see a truncated or half-written blob and need no lock.
type Store struct {
	dir string

	mu     sync.Mutex
	locks  map[string]*sync.Mutex
	counts map[string]int
}

// NewStore opens the data directory and seeds the per-artifact order
// counters with a one-time scan of existing records.
func NewStore(dir string) (*Store, apperrors.Error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, ErrInventory.MsgErr("unable to create data directory", err)
	}
	s := &Store{
		dir:    dir,
		locks:  make(map[string]*sync.Mutex),
		counts: make(map[string]int),
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, ErrInventory.MsgErr("unable to scan data directory", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), metadataExt) {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), metadataExt)
		artifactID, _, ok := strings.Cut(name, ".")
		if !ok {
			continue
		}
		s.counts[artifactID]++
	}
	return s, nil
}

// artifactLock returns the mutex serializing mutation for one artifact.
func (s *Store) artifactLock(artifactID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[artifactID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[artifactID] = l
	}
	return l
}

func (s *Store) orderPath(artifactID, orderID string) string {
	return filepath.Join(s.dir, artifactID+"."+orderID+metadataExt)
}

func (s *Store) logPath(artifactID string) string {
	return filepath.Join(s.dir, artifactID+".log")
}

// CreateOrder persists a new order record if capacity allows and no
// record exists for the pair. The record is staged in a temporary file
// and linked into place, so it only becomes visible with its content
// already durable. The stock check, the exclusive link and the counter
// update happen under the artifact lock so concurrent calls cannot
// both claim the last unit or the same order id.
func (s *Store) CreateOrder(artifactID, orderID string, capacity int, rec *OrderRecord) apperrors.Error {
	l := s.artifactLock(artifactID)
	l.Lock()
	defer l.Unlock()

	if capacity-s.counts[artifactID] <= 0 {
		return ErrOutOfStock
	}

	body, err := json.Marshal(rec)
	if err != nil {
		return ErrInventory.MsgErr("unable to encode provision record", err)
	}

	tmp, werr := s.stageRecord(body)
	if werr != nil {
		return werr
	}
	defer os.Remove(tmp)

	// Link fails with EEXIST when a record for the pair is already
	// published, which keeps creation exclusive.
	if err := os.Link(tmp, s.orderPath(artifactID, orderID)); err != nil {
		if os.IsExist(err) {
			return ErrOrderAlreadyExists
		}
		return ErrInventory.MsgErr("unable to create provision record", err)
	}

	s.counts[artifactID]++
	return nil
}

// stageRecord writes body to a fresh temporary file in the data
// directory and returns its path. The caller removes the file once it
// is linked or renamed into place.
func (s *Store) stageRecord(body []byte) (string, apperrors.Error) {
	f, err := os.CreateTemp(s.dir, ".staged-*")
	if err != nil {
		return "", ErrInventory.MsgErr("unable to stage provision record", err)
	}
	name := f.Name()
	if _, err := f.Write(body); err != nil {
		f.Close()
		os.Remove(name)
		return "", ErrInventory.MsgErr("unable to write provision record", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(name)
		return "", ErrInventory.MsgErr("unable to flush provision record", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", ErrInventory.MsgErr("unable to write provision record", err)
	}
	return name, nil
}

// GetOrder reads and decodes the record for the pair.
func (s *Store) GetOrder(artifactID, orderID string) (*OrderRecord, apperrors.Error) {
	body, err := s.ReadOrderRaw(artifactID, orderID)
	if err != nil {
		return nil, err
	}
	rec := &OrderRecord{}
	if uerr := json.Unmarshal(body, rec); uerr != nil {
		return nil, ErrEmptyRecord.Err(uerr)
	}
	return rec, nil
}

// ReadOrderRaw returns the stored record blob unmodified.
func (s *Store) ReadOrderRaw(artifactID, orderID string) ([]byte, apperrors.Error) {
	body, err := os.ReadFile(s.orderPath(artifactID, orderID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrOrderNotFound
		}
		return nil, ErrInventory.MsgErr("unable to read provision record", err)
	}
	if len(body) == 0 {
		return nil, ErrEmptyRecord
	}
	return body, nil
}

// WriteOrderRaw replaces the whole record blob for an existing order.
// The new blob is staged and renamed over the old one, so a concurrent
// reader sees either the previous record or the new one, never a
// truncated file.
func (s *Store) WriteOrderRaw(artifactID, orderID string, body []byte) apperrors.Error {
	l := s.artifactLock(artifactID)
	l.Lock()
	defer l.Unlock()

	path := s.orderPath(artifactID, orderID)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return ErrOrderNotFound
		}
		return ErrInventory.MsgErr("unable to stat provision record", err)
	}
	tmp, werr := s.stageRecord(body)
	if werr != nil {
		return werr
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return ErrInventory.MsgErr("unable to rewrite provision record", err)
	}
	return nil
}

// OrderExists reports whether a record is present for the pair.
func (s *Store) OrderExists(artifactID, orderID string) bool {
	_, err := os.Stat(s.orderPath(artifactID, orderID))
	return err == nil
}

// CountOrders returns the number of provisioned orders for an artifact.
func (s *Store) CountOrders(artifactID string) int {
	l := s.artifactLock(artifactID)
	l.Lock()
	defer l.Unlock()
	return s.counts[artifactID]
}

// AppendLog prepends a timestamped entry to the artifact log, newest
// first, rewriting the full blob under the artifact lock.
func (s *Store) AppendLog(artifactID, message string) apperrors.Error {
	l := s.artifactLock(artifactID)
	l.Lock()
	defer l.Unlock()

	entries, err := s.readLog(artifactID)
	if err != nil {
		return err
	}
	entry := fmt.Sprintf("[%s] %s", time.Now().Format(time.RFC3339), message)
	entries = append([]string{entry}, entries...)

	body, merr := json.Marshal(entries)
	if merr != nil {
		return ErrInventory.MsgErr("unable to encode log", merr)
	}
	if werr := os.WriteFile(s.logPath(artifactID), body, 0o644); werr != nil {
		return ErrInventory.MsgErr("unable to write log", werr)
	}
	return nil
}

// ReadLog returns the artifact log, newest entry first. A missing log
// file reads as empty.
func (s *Store) ReadLog(artifactID string) ([]string, apperrors.Error) {
	l := s.artifactLock(artifactID)
	l.Lock()
	defer l.Unlock()
	return s.readLog(artifactID)
}

func (s *Store) readLog(artifactID string) ([]string, apperrors.Error) {
	body, err := os.ReadFile(s.logPath(artifactID))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, ErrInventory.MsgErr("unable to read log", err)
	}
	var entries []string
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, ErrInventory.MsgErr("unable to decode log", err)
	}
	return entries, nil
}
