// Package history keeps the rolling log of successful collections in a
// single JSON file: {"coletas": [entry, ...]}, oldest first, capped at the
// most recent N entries.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hazyhaar/vendas/collector/internal/atomicfile"
	"github.com/hazyhaar/vendas/collector/sales"
)

// DefaultLimit is the number of entries kept in the log.
const DefaultLimit = 30

// DefaultDays is the query window used when none (or an invalid one) is given.
const DefaultDays = 7

// ErrNoData is returned by Latest when nothing was collected yet.
var ErrNoData = errors.New("history: no collection recorded yet")

// file is the on-disk layout.
type file struct {
	Entries []sales.Entry `json:"coletas"`
}

// Summary is the answer of a windowed history query.
type Summary struct {
	Days    int           `json:"dias"`
	Count   int           `json:"coletas"`
	Average float64       `json:"media"`
	Entries []sales.Entry `json:"dados"`
}

// Store is the history file. All methods are safe for concurrent use; the
// load-append-truncate-persist sequence of Append runs under one lock.
type Store struct {
	path  string
	limit int
	now   func() time.Time
	mu    sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithLimit overrides DefaultLimit.
func WithLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.limit = n
		}
	}
}

// WithClock overrides time.Now for timestamps and query windows.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore returns a Store backed by the file at path.
func NewStore(path string, opts ...Option) *Store {
	s := &Store{path: path, limit: DefaultLimit, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Init creates an empty log file if none exists.
func (s *Store) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("history: stat %s: %w", s.path, err)
	}
	return s.write(&file{Entries: []sales.Entry{}})
}

// Append records res as a new entry stamped with the current time and
// drops the oldest entries beyond the limit.
func (s *Store) Append(_ context.Context, res *sales.Result) (sales.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.read()
	if err != nil {
		return sales.Entry{}, err
	}
	entry := sales.NewEntry(res, s.now())
	f.Entries = append(f.Entries, entry)
	if over := len(f.Entries) - s.limit; over > 0 {
		f.Entries = append([]sales.Entry(nil), f.Entries[over:]...)
	}
	if err := s.write(f); err != nil {
		return sales.Entry{}, err
	}
	return entry, nil
}

// All returns every entry, oldest first.
func (s *Store) All() ([]sales.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := s.read()
	if err != nil {
		return nil, err
	}
	return f.Entries, nil
}

// Latest returns the most recent entry or ErrNoData.
func (s *Store) Latest() (sales.Entry, error) {
	entries, err := s.All()
	if err != nil {
		return sales.Entry{}, err
	}
	if len(entries) == 0 {
		return sales.Entry{}, ErrNoData
	}
	return entries[len(entries)-1], nil
}

// Recent returns the entries stamped within the last days days. Negative
// days use DefaultDays.
func (s *Store) Recent(days int) ([]sales.Entry, error) {
	if days < 0 {
		days = DefaultDays
	}
	entries, err := s.All()
	if err != nil {
		return nil, err
	}
	cutoff := s.now().AddDate(0, 0, -days)
	out := []sales.Entry{}
	for _, e := range entries {
		if !e.Timestamp.Before(cutoff) {
			out = append(out, e)
		}
	}
	return out, nil
}

// Query returns Recent(days) with its count and average collected value.
func (s *Store) Query(days int) (Summary, error) {
	if days < 0 {
		days = DefaultDays
	}
	entries, err := s.Recent(days)
	if err != nil {
		return Summary{}, err
	}
	sum := Summarize(entries)
	sum.Days = days
	return sum, nil
}

// Summarize computes count and average TotalValue. An empty window has
// average 0.
func Summarize(entries []sales.Entry) Summary {
	if entries == nil {
		entries = []sales.Entry{}
	}
	var total float64
	for _, e := range entries {
		total += e.TotalValue
	}
	return Summary{
		Count:   len(entries),
		Average: total / float64(max(len(entries), 1)),
		Entries: entries,
	}
}

// ParseDays reads the "dias" query parameter. Anything that is not a
// non-negative integer means DefaultDays.
func ParseDays(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return DefaultDays
	}
	return n
}

func (s *Store) read() (*file, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return &file{Entries: []sales.Entry{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("history: read %s: %w", s.path, err)
	}
	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("history: decode %s: %w", s.path, err)
	}
	if f.Entries == nil {
		f.Entries = []sales.Entry{}
	}
	return &f, nil
}

func (s *Store) write(f *file) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("history: encode: %w", err)
	}
	if err := atomicfile.Write(s.path, data, 0o644); err != nil {
		return fmt.Errorf("history: write %s: %w", s.path, err)
	}
	return nil
}
