package dictionary

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
)

// Handle is a lazily loaded, process-lifetime dictionary.
// The load function runs at most once; concurrent first callers wait for it
// and every caller observes the same dictionary or the same error.
type Handle struct {
	get  func() (*Dictionary, error)
	tags func() ([]string, error)
}

// NewHandle wraps a load function.
func NewHandle(load func() (*Dictionary, error)) *Handle {
	h := &Handle{get: sync.OnceValues(load)}
	h.tags = sync.OnceValues(func() ([]string, error) {
		d, err := h.get()
		if err != nil {
			return nil, err
		}
		return d.Tags(), nil
	})
	return h
}

// Static returns a handle over an already built dictionary.
func Static(d *Dictionary) *Handle {
	return NewHandle(func() (*Dictionary, error) { return d, nil })
}

// Open returns a handle that loads path on first use.
func Open(path string, format FileFormat, sources ...Source) *Handle {
	loader := NewLoader(path, format, sources...)
	return NewHandle(func() (*Dictionary, error) {
		d, err := loader.Load(context.Background())
		if err != nil {
			return nil, err
		}
		st := loader.Stats()
		log.Infof("Dictionary ready: %d entries from %s (%s), %d from extra sources, in %v",
			st.FileEntries, st.Path, st.Format, st.SourceEntries, st.Elapsed)
		return d, nil
	})
}

// WithTagFile replaces the inventory derived from the dictionary with the tags of a file.
func (h *Handle) WithTagFile(path string) *Handle {
	h.tags = sync.OnceValues(func() ([]string, error) {
		return ReadTagFile(path)
	})
	return h
}

// Get returns the dictionary, loading it on first use.
func (h *Handle) Get() (*Dictionary, error) {
	return h.get()
}

// Tags returns the tag inventory, loading it on first use.
func (h *Handle) Tags() ([]string, error) {
	return h.tags()
}
