package dictionary

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/edsrzf/mmap-go"
	"github.com/vmihailenco/msgpack/v5"
)

// Source supplies extra entries merged into a dictionary at load time.
type Source interface {
	Entries(ctx context.Context) ([]Entry, error)
}

// snapshot is the msgpack payload that follows the magic header.
type snapshot struct {
	Version int     `msgpack:"v"`
	Entries []Entry `msgpack:"e"`
}

const snapshotVersion = 1

// LoaderStats describes the outcome of a load.
type LoaderStats struct {
	Path          string
	Format        FileFormat
	FileEntries   int
	SourceEntries int
	Elapsed       time.Duration
}

// Loader reads a dictionary file plus optional extra sources.
type Loader struct {
	path    string
	format  FileFormat
	sources []Source
	stats   LoaderStats
}

// NewLoader creates a loader for path. FormatUnknown means detect from the file.
func NewLoader(path string, format FileFormat, sources ...Source) *Loader {
	return &Loader{path: path, format: format, sources: sources}
}

// Stats returns statistics about the last Load.
func (l *Loader) Stats() LoaderStats {
	return l.stats
}

// Load reads and indexes the dictionary. A source that fails is logged and skipped;
// a failure of the dictionary file itself is returned.
func (l *Loader) Load(ctx context.Context) (*Dictionary, error) {
	start := time.Now()
	format := l.format
	if format == FormatUnknown {
		detected, err := DetectFileFormat(l.path)
		if err != nil {
			return nil, err
		}
		format = detected
	}

	var entries []Entry
	var err error
	switch format {
	case FormatText:
		entries, err = ReadTextFile(l.path)
	case FormatSnapshot:
		entries, err = ReadSnapshot(l.path)
	default:
		err = fmt.Errorf("unsupported dictionary format %v", format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load dictionary %s: %w", l.path, err)
	}
	fileEntries := len(entries)

	for _, src := range l.sources {
		extra, err := src.Entries(ctx)
		if err != nil {
			log.Warnf("Skipping dictionary source %T: %v", src, err)
			continue
		}
		entries = append(entries, extra...)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%s: %w", l.path, ErrEmpty)
	}

	d := New(entries)
	l.stats = LoaderStats{
		Path:          l.path,
		Format:        format,
		FileEntries:   fileEntries,
		SourceEntries: len(entries) - fileEntries,
		Elapsed:       time.Since(start),
	}
	log.Debugf("Loaded dictionary %s (%s): %d entries, %d tags in %v",
		l.path, format, d.Len(), len(d.Tags()), l.stats.Elapsed)
	return d, nil
}

// ReadTextFile reads a tab-separated dictionary file.
func ReadTextFile(path string) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadText(file)
}

// ReadText parses form<TAB>lemma<TAB>tag lines. Blank lines and lines starting
// with '#' are ignored; any other line with a different shape is an error.
func ReadText(r io.Reader) ([]Entry, error) {
	var entries []Entry
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entry, err := ParseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// ParseLine parses a single form<TAB>lemma<TAB>tag line.
func ParseLine(line string) (Entry, error) {
	parts := strings.Split(line, "\t")
	if len(parts) != 3 || parts[0] == "" || parts[2] == "" {
		return Entry{}, fmt.Errorf("malformed entry %q, expected form<TAB>lemma<TAB>tag", line)
	}
	return Entry{Form: parts[0], Lemma: parts[1], Tag: parts[2]}, nil
}

// FormatLine is the inverse of ParseLine.
func FormatLine(e Entry) string {
	return e.Form + "\t" + e.Lemma + "\t" + e.Tag
}

// ReadSnapshot maps a snapshot file into memory and decodes its entries.
func ReadSnapshot(path string) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	m, err := mmap.Map(file, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to map %s: %w", path, err)
	}
	defer func() {
		if err := m.Unmap(); err != nil {
			log.Warnf("Failed to unmap %s: %v", path, err)
		}
	}()

	if len(m) < len(snapshotMagic) || string(m[:len(snapshotMagic)]) != string(snapshotMagic) {
		return nil, fmt.Errorf("%s: missing snapshot header", path)
	}

	var snap snapshot
	if err := msgpack.Unmarshal(m[len(snapshotMagic):], &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", path, err)
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("%s: unsupported snapshot version %d", path, snap.Version)
	}
	return snap.Entries, nil
}

// WriteSnapshot stores entries in the binary snapshot format.
func WriteSnapshot(path string, entries []Entry) error {
	data, err := msgpack.Marshal(snapshot{Version: snapshotVersion, Entries: entries})
	if err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	if _, err := w.Write(snapshotMagic); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	return w.Flush()
}

// BuildSnapshot loads a dictionary through l and writes all of its entries,
// extra sources included, to out in the snapshot format.
func BuildSnapshot(ctx context.Context, l *Loader, out string) (LoaderStats, error) {
	d, err := l.Load(ctx)
	if err != nil {
		return LoaderStats{}, err
	}
	if err := WriteSnapshot(out, d.Entries()); err != nil {
		return l.Stats(), fmt.Errorf("writing snapshot %s: %w", out, err)
	}
	return l.Stats(), nil
}

// ReadTagFile reads a tag inventory file, one tag per line.
func ReadTagFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var tags []string
	seen := make(map[string]bool)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		tag := strings.TrimSpace(scanner.Text())
		if tag == "" || strings.HasPrefix(tag, "#") || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	return tags, scanner.Err()
}
