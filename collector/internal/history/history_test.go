package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/hazyhaar/vendas/collector/sales"
)

// stepClock returns a clock that starts at start and advances by step on
// every call.
func stepClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	t := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now := t
		t = t.Add(step)
		return now
	}
}

func result(period string, orders int, value float64) *sales.Result {
	return sales.NewResult(period, []sales.Row{{Store: "L", ValidOrders: orders, ValidSalesValue: value}})
}

func TestAppend_Retention(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "historico.json"),
		WithClock(stepClock(time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC), time.Hour)))
	ctx := context.Background()

	for i := 0; i < 31; i++ {
		if _, err := s.Append(ctx, result(fmt.Sprintf("p%02d", i), i, float64(i))); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}

	all, err := s.All()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 30 {
		t.Fatalf("entries = %d, want 30", len(all))
	}
	for i, e := range all {
		if want := fmt.Sprintf("p%02d", i+1); e.Period != want {
			t.Fatalf("entry %d period = %q, want %q (oldest evicted first)", i, e.Period, want)
		}
	}
}

func TestAppend_EvictsByInsertionOrder(t *testing.T) {
	// Timestamps go backwards: eviction still drops the first inserted.
	s := NewStore(filepath.Join(t.TempDir(), "h.json"), WithLimit(2),
		WithClock(stepClock(time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), -time.Hour)))
	ctx := context.Background()
	for _, p := range []string{"a", "b", "c"} {
		if _, err := s.Append(ctx, result(p, 1, 1)); err != nil {
			t.Fatal(err)
		}
	}
	all, _ := s.All()
	if len(all) != 2 || all[0].Period != "b" || all[1].Period != "c" {
		t.Fatalf("entries = %+v", all)
	}
}

func TestAppend_EntryFields(t *testing.T) {
	at := time.Date(2025, 3, 2, 12, 0, 0, 0, time.UTC)
	s := NewStore(filepath.Join(t.TempDir(), "h.json"), WithClock(func() time.Time { return at }))
	e, err := s.Append(context.Background(), sales.NewResult("x ~ y", []sales.Row{
		{ValidOrders: 5, ValidSalesValue: 120.50},
		{ValidOrders: 3, ValidSalesValue: 80.00},
	}))
	if err != nil {
		t.Fatal(err)
	}
	if !e.Timestamp.Equal(at) || e.TotalOrders != 8 || e.TotalValue != 200.50 || len(e.Rows) != 2 {
		t.Fatalf("entry = %+v", e)
	}
}

func TestFileLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "h.json")
	s := NewStore(path)
	if err := s.Init(); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	if string(raw["coletas"]) != "[]" {
		t.Fatalf("initial file = %s", data)
	}

	s.Append(context.Background(), result("p", 1, 1))
	data, _ = os.ReadFile(path)
	var f struct {
		Coletas []map[string]any `json:"coletas"`
	}
	if err := json.Unmarshal(data, &f); err != nil {
		t.Fatal(err)
	}
	if len(f.Coletas) != 1 || f.Coletas[0]["periodo"] != "p" {
		t.Fatalf("file = %s", data)
	}
}

func TestInit_KeepsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "h.json")
	s := NewStore(path)
	s.Append(context.Background(), result("p", 1, 1))
	if err := s.Init(); err != nil {
		t.Fatal(err)
	}
	all, _ := s.All()
	if len(all) != 1 {
		t.Fatalf("Init wiped the log: %d entries", len(all))
	}
}

func TestLatest(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "h.json"))
	if _, err := s.Latest(); !errors.Is(err, ErrNoData) {
		t.Fatalf("Latest on missing file: %v, want ErrNoData", err)
	}
	s.Init()
	if _, err := s.Latest(); !errors.Is(err, ErrNoData) {
		t.Fatalf("Latest on empty log: %v, want ErrNoData", err)
	}
	s.Append(context.Background(), result("first", 1, 1))
	s.Append(context.Background(), result("second", 2, 2))
	e, err := s.Latest()
	if err != nil || e.Period != "second" {
		t.Fatalf("Latest = %+v, %v", e, err)
	}
}

func TestRecent_Window(t *testing.T) {
	now := time.Date(2025, 3, 20, 12, 0, 0, 0, time.UTC)
	path := filepath.Join(t.TempDir(), "h.json")
	var ts []time.Time
	for _, d := range []int{10, 8, 7, 3, 0} {
		ts = append(ts, now.AddDate(0, 0, -d))
	}
	i := 0
	writer := NewStore(path, WithClock(func() time.Time { at := ts[i]; i++; return at }))
	for _, d := range []int{10, 8, 7, 3, 0} {
		if _, err := writer.Append(context.Background(), result(fmt.Sprint(d), 1, float64(d))); err != nil {
			t.Fatal(err)
		}
	}

	s := NewStore(path, WithClock(func() time.Time { return now }))
	got, err := s.Recent(7)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[0].Period != "7" || got[2].Period != "0" {
		t.Fatalf("Recent(7) = %+v", got)
	}

	zero, _ := s.Recent(0)
	if len(zero) != 1 || zero[0].Period != "0" {
		t.Fatalf("Recent(0) = %+v", zero)
	}

	sum, err := s.Query(7)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Days != 7 || sum.Count != 3 || sum.Average != (7.0+3.0+0.0)/3 {
		t.Fatalf("Query(7) = %+v", sum)
	}
}

func TestSummarize_EmptyWindow(t *testing.T) {
	sum := Summarize(nil)
	if sum.Count != 0 || sum.Average != 0 {
		t.Fatalf("summary = %+v", sum)
	}
	if sum.Entries == nil {
		t.Fatal("entries must encode as [] not null")
	}
}

func TestQuery_EmptyStoreAverageZero(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "h.json"))
	sum, err := s.Query(ParseDays("abc"))
	if err != nil {
		t.Fatal(err)
	}
	if sum.Days != 7 || sum.Count != 0 || sum.Average != 0 {
		t.Fatalf("summary = %+v", sum)
	}
}

func TestParseDays(t *testing.T) {
	cases := map[string]int{
		"":    7,
		"abc": 7,
		"3":   3,
		"0":   0,
		" 14": 14,
		"-2":  7,
		"2.5": 7,
		"30":  30,
	}
	for in, want := range cases {
		if got := ParseDays(in); got != want {
			t.Errorf("ParseDays(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestAppend_ConcurrentNoLostUpdates(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "h.json"), WithLimit(100))
	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := s.Append(context.Background(), result(fmt.Sprint(i), 1, 1)); err != nil {
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()
	all, _ := s.All()
	if len(all) != 40 {
		t.Fatalf("entries = %d, want 40", len(all))
	}
}

func TestRead_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "h.json")
	os.WriteFile(path, []byte("{"), 0o644)
	if _, err := NewStore(path).Latest(); err == nil || errors.Is(err, ErrNoData) {
		t.Fatalf("got %v, want decode error", err)
	}
}
