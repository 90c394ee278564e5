package utils

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestCasePredicates(t *testing.T) {
	testCases := []struct {
		word                string
		lower, upper, mixed bool
		description         string
	}{
		{"kot", true, false, false, "lowercase"},
		{"Kot", false, false, false, "capitalized"},
		{"PARIS", false, true, false, "all uppercase"},
		{"iPhone", false, false, true, "lower then upper"},
		{"McDonald", false, false, true, "upper inside a capitalized word"},
		{"123", true, false, false, "no letters"},
		{"", true, false, false, "empty"},
	}

	for _, tc := range testCases {
		if got := IsAllLower(tc.word); got != tc.lower {
			t.Errorf("%s: IsAllLower(%q) = %v", tc.description, tc.word, got)
		}
		if got := IsAllUpper(tc.word); got != tc.upper {
			t.Errorf("%s: IsAllUpper(%q) = %v", tc.description, tc.word, got)
		}
		if got := IsMixedCase(tc.word); got != tc.mixed {
			t.Errorf("%s: IsMixedCase(%q) = %v", tc.description, tc.word, got)
		}
	}
}

func TestUppercaseFirst(t *testing.T) {
	testCases := []struct {
		input, expected string
		description     string
	}{
		{"kraków", "Kraków", "ascii first letter"},
		{"ïlla", "Ïlla", "accented first letter"},
		{"", "", "empty string"},
	}
	for _, tc := range testCases {
		if got := UppercaseFirst(tc.input); got != tc.expected {
			t.Errorf("%s: UppercaseFirst(%q) = %q, want %q", tc.description, tc.input, got, tc.expected)
		}
	}
}

func TestUnique(t *testing.T) {
	got := Unique([]string{"ran", "runs", "ran", "run", "runs"})
	if want := []string{"ran", "runs", "run"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Unique = %v, want %v", got, want)
	}
}

func TestSaveTOMLFileReplaces(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("garbage = [\n"), 0644); err != nil {
		t.Fatal(err)
	}

	type section struct {
		Path string `toml:"path"`
	}
	if err := SaveTOMLFile(map[string]section{"dict": {Path: "data/dict.txt"}}, path); err != nil {
		t.Fatal(err)
	}

	data, err := ParseTOMLWithRecovery(path)
	if err != nil {
		t.Fatal(err)
	}
	dict, ok := ExtractSection(data, "dict")
	if !ok {
		t.Fatal("dict section missing")
	}
	if p, _ := ExtractString(dict, "path"); p != "data/dict.txt" {
		t.Errorf("path = %q", p)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %v", entries)
	}
}

func TestExtractStrings(t *testing.T) {
	data := map[string]any{"hooks": []any{"ly_adverb", 3, "auto_prefix"}, "n": int64(2)}
	got, ok := ExtractStrings(data, "hooks")
	if !ok || !reflect.DeepEqual(got, []string{"ly_adverb", "auto_prefix"}) {
		t.Errorf("ExtractStrings = %v, %v", got, ok)
	}
	if _, ok := ExtractStrings(data, "n"); ok {
		t.Error("a non-array value must not extract")
	}
}
