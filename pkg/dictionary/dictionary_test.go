package dictionary

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

const sampleDict = `# polish sample
lubię	lubić	V:pres:1sg
lubisz	lubić	V:pres:2sg
kot	kot	N:sg:nom
kota	kot	N:sg:gen
kota	kot	N:sg:acc
zamek	zamek	N:sg:nom
zamek	zamek	N:sg:acc
`

func sampleEntries(t *testing.T) []Entry {
	t.Helper()
	entries, err := ReadText(strings.NewReader(sampleDict))
	if err != nil {
		t.Fatalf("ReadText: %v", err)
	}
	return entries
}

func TestLookup(t *testing.T) {
	d := New(sampleEntries(t))

	testCases := []struct {
		word        string
		expected    []string
		description string
	}{
		{"lubię", []string{"lubić/V:pres:1sg"}, "single analysis"},
		{"kota", []string{"kot/N:sg:gen", "kot/N:sg:acc"}, "load order preserved"},
		{"Kota", nil, "lookup is case sensitive"},
		{"pies", nil, "missing word"},
	}

	for _, tc := range testCases {
		got := d.Lookup(tc.word)
		if len(got) != len(tc.expected) {
			t.Errorf("%s: Lookup(%q) = %v", tc.description, tc.word, got)
			continue
		}
		for i, e := range got {
			if e.Lemma+"/"+e.Tag != tc.expected[i] {
				t.Errorf("%s: entry %d = %v, want %s", tc.description, i, e, tc.expected[i])
			}
		}
	}
}

func TestReverseLookupAndTags(t *testing.T) {
	d := New(sampleEntries(t))

	if got := d.ReverseLookup("lubić", "V:pres:1sg"); len(got) != 1 || got[0] != "lubię" {
		t.Errorf("ReverseLookup = %v, want [lubię]", got)
	}
	if got := d.ReverseLookup("lubić", "V:past"); got != nil {
		t.Errorf("ReverseLookup of missing tag = %v", got)
	}

	tags := d.LemmaTags("kot")
	if len(tags) != 3 {
		t.Errorf("LemmaTags(kot) = %v, want 3 tags", tags)
	}

	inventory := d.Tags()
	if len(inventory) != 5 {
		t.Errorf("tag inventory = %v", inventory)
	}
	for i := 1; i < len(inventory); i++ {
		if inventory[i-1] > inventory[i] {
			t.Fatalf("tag inventory not sorted: %v", inventory)
		}
	}
	if d.Len() != 7 {
		t.Errorf("Len = %d, want 7", d.Len())
	}
}

func TestNewDropsDuplicates(t *testing.T) {
	e := Entry{Form: "kot", Lemma: "kot", Tag: "N"}
	d := New([]Entry{e, e})
	if d.Len() != 1 || len(d.Lookup("kot")) != 1 {
		t.Errorf("duplicate entry indexed twice")
	}
}

func TestNormalizedKeys(t *testing.T) {
	decomposed := "cafe\u0301"
	composed := "caf\u00e9"
	d := New([]Entry{{Form: decomposed, Lemma: decomposed, Tag: "N"}})
	if !d.Contains(composed) || !d.Contains(decomposed) {
		t.Error("NFD form must be found with its NFC spelling")
	}
	if got := d.ReverseLookup(composed, "N"); len(got) != 1 || got[0] != composed {
		t.Errorf("ReverseLookup with NFC lemma = %v", got)
	}
}

func TestReadTextMalformed(t *testing.T) {
	testCases := []struct {
		input       string
		description string
	}{
		{"kot\tkot\n", "missing tag"},
		{"kot\tkot\tN\textra\n", "too many fields"},
		{"\tkot\tN\n", "empty form"},
	}
	for _, tc := range testCases {
		if _, err := ReadText(strings.NewReader(tc.input)); err == nil {
			t.Errorf("%s: expected error", tc.description)
		}
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pl.bin")
	entries := sampleEntries(t)

	if err := WriteSnapshot(path, entries); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	format, err := DetectFileFormat(path)
	if err != nil || format != FormatSnapshot {
		t.Fatalf("DetectFileFormat = %v, %v", format, err)
	}

	got, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if len(got) != len(entries) {
		t.Fatalf("snapshot has %d entries, want %d", len(got), len(entries))
	}
	for i := range got {
		if got[i] != entries[i] {
			t.Errorf("entry %d = %v, want %v", i, got[i], entries[i])
		}
	}
}

func TestReadSnapshotRejectsText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.bin")
	if err := os.WriteFile(path, []byte("not a snapshot"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadSnapshot(path); err == nil {
		t.Error("expected header error")
	}
}

type staticSource []Entry

func (s staticSource) Entries(context.Context) ([]Entry, error) { return s, nil }

type failingSource struct{}

func (failingSource) Entries(context.Context) ([]Entry, error) {
	return nil, errors.New("unreachable")
}

func TestLoaderMergesSources(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pl.dict")
	if err := os.WriteFile(path, []byte(sampleDict), 0o644); err != nil {
		t.Fatal(err)
	}

	extra := staticSource{{Form: "grammarserve", Lemma: "grammarserve", Tag: "N:sg:nom"}}
	loader := NewLoader(path, FormatUnknown, extra, failingSource{})
	d, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !d.Contains("grammarserve") || !d.Contains("lubię") {
		t.Error("merged dictionary is missing entries")
	}
	stats := loader.Stats()
	if stats.Format != FormatText || stats.FileEntries != 7 || stats.SourceEntries != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestLoaderEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.dict")
	if err := os.WriteFile(path, []byte("# nothing\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := NewLoader(path, FormatText).Load(context.Background())
	if !errors.Is(err, ErrEmpty) {
		t.Errorf("expected ErrEmpty, got %v", err)
	}
}

func TestHandleLoadsOnce(t *testing.T) {
	var calls atomic.Int32
	h := NewHandle(func() (*Dictionary, error) {
		calls.Add(1)
		return New([]Entry{{Form: "a", Lemma: "a", Tag: "DT"}}), nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if d, err := h.Get(); err != nil || !d.Contains("a") {
				t.Errorf("Get = %v, %v", d, err)
			}
		}()
	}
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("load ran %d times", calls.Load())
	}
	tags, err := h.Tags()
	if err != nil || len(tags) != 1 || tags[0] != "DT" {
		t.Errorf("Tags = %v, %v", tags, err)
	}
}

func TestHandleCachesFailure(t *testing.T) {
	var calls atomic.Int32
	h := NewHandle(func() (*Dictionary, error) {
		calls.Add(1)
		return nil, errors.New("disk on fire")
	})
	for i := 0; i < 3; i++ {
		if _, err := h.Get(); err == nil {
			t.Fatal("expected error")
		}
	}
	if _, err := h.Tags(); err == nil {
		t.Error("tag inventory must surface the load error")
	}
	if calls.Load() != 1 {
		t.Errorf("failed load retried %d times", calls.Load())
	}
}

func TestHandleTagFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tags.txt")
	if err := os.WriteFile(path, []byte("N:sg\nN:pl\n\nN:sg\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	h := Static(New(nil)).WithTagFile(path)
	tags, err := h.Tags()
	if err != nil || len(tags) != 2 {
		t.Errorf("Tags = %v, %v", tags, err)
	}
}

func TestBuildSnapshot(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "pl.dict")
	if err := os.WriteFile(src, []byte(sampleDict), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "pl.bin")

	extra := staticSource{{Form: "grammarserve", Lemma: "grammarserve", Tag: "N:sg:nom"}}
	stats, err := BuildSnapshot(context.Background(), NewLoader(src, FormatText, extra), out)
	if err != nil {
		t.Fatalf("BuildSnapshot: %v", err)
	}
	if stats.FileEntries != 7 || stats.SourceEntries != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}

	d, err := NewLoader(out, FormatUnknown).Load(context.Background())
	if err != nil {
		t.Fatalf("loading snapshot: %v", err)
	}
	if d.Len() != 8 || !d.Contains("grammarserve") {
		t.Errorf("snapshot has %d entries", d.Len())
	}
	if forms := d.ReverseLookup("kot", "N:sg:acc"); len(forms) != 1 || forms[0] != "kota" {
		t.Errorf("ReverseLookup(kot, N:sg:acc) = %v", forms)
	}
}

func TestBuildSnapshotMissingSource(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.bin")
	if _, err := BuildSnapshot(context.Background(), NewLoader(filepath.Join(dir, "none.dict"), FormatText), out); err == nil {
		t.Error("expected an error for a missing source file")
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("no snapshot must be written when loading fails")
	}
}
