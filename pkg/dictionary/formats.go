package dictionary

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

// FileFormat represents the supported dictionary file formats
type FileFormat int

const (
	FormatUnknown  FileFormat = iota
	FormatText                // form<TAB>lemma<TAB>tag lines
	FormatSnapshot            // msgpack snapshot behind a magic header
)

// snapshotMagic opens every snapshot file.
var snapshotMagic = []byte("GSD1")

// FormatInfo contains metadata about a dictionary file format
type FormatInfo struct {
	Format      FileFormat
	Description string
	Extensions  []string
	MinSize     int64
}

var supportedFormats = map[FileFormat]FormatInfo{
	FormatText: {
		Format:      FormatText,
		Description: "Tab-separated text dictionary",
		Extensions:  []string{".txt", ".tsv", ".dict"},
		MinSize:     1,
	},
	FormatSnapshot: {
		Format:      FormatSnapshot,
		Description: "Binary dictionary snapshot",
		Extensions:  []string{".bin"},
		MinSize:     int64(len(snapshotMagic)) + 1,
	},
}

func (f FileFormat) String() string {
	switch f {
	case FormatText:
		return "text"
	case FormatSnapshot:
		return "snapshot"
	default:
		return "unknown"
	}
}

// ParseFormat maps a config value to a FileFormat. Empty or "auto" means detect.
func ParseFormat(s string) FileFormat {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "tsv", "txt":
		return FormatText
	case "snapshot", "bin", "binary":
		return FormatSnapshot
	default:
		return FormatUnknown
	}
}

// ValidateFileFormat checks if a file matches the expected format
func ValidateFileFormat(filename string, expectedFormat FileFormat) error {
	fileInfo, err := os.Stat(filename)
	if err != nil {
		return fmt.Errorf("failed to stat file %s: %w", filename, err)
	}

	formatInfo, exists := supportedFormats[expectedFormat]
	if !exists {
		return fmt.Errorf("unknown format: %v", expectedFormat)
	}

	if fileInfo.Size() < formatInfo.MinSize {
		return fmt.Errorf("file %s is too small (%d bytes) for format %s (minimum: %d bytes)",
			filename, fileInfo.Size(), formatInfo.Description, formatInfo.MinSize)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	validExt := false
	for _, validExtension := range formatInfo.Extensions {
		if ext == validExtension {
			validExt = true
			break
		}
	}
	if !validExt {
		return fmt.Errorf("file %s has invalid extension %s for format %s (expected: %v)",
			filename, ext, formatInfo.Description, formatInfo.Extensions)
	}

	if expectedFormat == FormatSnapshot {
		return validateSnapshotHeader(filename)
	}
	return nil
}

// validateSnapshotHeader checks the magic bytes of a snapshot file
func validateSnapshotHeader(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", filename, err)
	}
	defer file.Close()

	header := make([]byte, len(snapshotMagic))
	if _, err := file.Read(header); err != nil {
		return fmt.Errorf("failed to read header from %s: %w", filename, err)
	}
	if !bytes.Equal(header, snapshotMagic) {
		return fmt.Errorf("file %s is not a dictionary snapshot", filename)
	}

	log.Debugf("Snapshot file %s validated", filename)
	return nil
}

// DetectFileFormat attempts to detect the format of a file
func DetectFileFormat(filename string) (FileFormat, error) {
	for _, format := range []FileFormat{FormatSnapshot, FormatText} {
		if err := ValidateFileFormat(filename, format); err == nil {
			return format, nil
		}
	}
	return FormatUnknown, fmt.Errorf("unable to detect format for file %s", filename)
}

// GetFormatInfo returns information about a specific format
func GetFormatInfo(format FileFormat) (FormatInfo, bool) {
	info, exists := supportedFormats[format]
	return info, exists
}
