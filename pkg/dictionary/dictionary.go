// Package dictionary provides the read-only morphological lexicon used by the tagger
// and the synthesizer.
//
// Entries are (form, lemma, tag) triples. Two patricia tries index them: the forward
// trie maps a surface form to its entries in load order, the reverse trie maps
// "lemma|tag" to the forms carrying that analysis. A Dictionary is never mutated
// after New returns and is safe for concurrent readers.
package dictionary

import (
	"errors"
	"sort"

	"github.com/tchap/go-patricia/v2/patricia"
	"golang.org/x/text/unicode/norm"
)

// Separator joins lemma and tag in reverse lookup keys.
const Separator = "|"

// ErrEmpty is returned when a dictionary source yields no entries.
var ErrEmpty = errors.New("dictionary has no entries")

// Entry is one analysis of a surface form.
type Entry struct {
	Form  string `msgpack:"f"`
	Lemma string `msgpack:"l"`
	Tag   string `msgpack:"t"`
}

// Dictionary is an immutable forward and reverse index over entries.
type Dictionary struct {
	forward *patricia.Trie
	reverse *patricia.Trie
	tags    []string
	size    int
}

// New indexes entries. Duplicate triples are kept once.
func New(entries []Entry) *Dictionary {
	d := &Dictionary{
		forward: patricia.NewTrie(),
		reverse: patricia.NewTrie(),
	}
	seen := make(map[Entry]struct{}, len(entries))
	tagSet := make(map[string]struct{})

	for _, e := range entries {
		e.Form = normalize(e.Form)
		e.Lemma = normalize(e.Lemma)
		if e.Form == "" {
			continue
		}
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}

		fkey := patricia.Prefix(e.Form)
		if item := d.forward.Get(fkey); item != nil {
			d.forward.Set(fkey, append(item.([]Entry), e))
		} else {
			d.forward.Insert(fkey, []Entry{e})
		}

		rkey := patricia.Prefix(e.Lemma + Separator + e.Tag)
		if item := d.reverse.Get(rkey); item != nil {
			d.reverse.Set(rkey, append(item.([]string), e.Form))
		} else {
			d.reverse.Insert(rkey, []string{e.Form})
		}

		tagSet[e.Tag] = struct{}{}
		d.size++
	}

	d.tags = make([]string, 0, len(tagSet))
	for tag := range tagSet {
		d.tags = append(d.tags, tag)
	}
	sort.Strings(d.tags)
	return d
}

// Lookup returns the entries for a surface form in load order.
// The returned slice must not be modified.
func (d *Dictionary) Lookup(word string) []Entry {
	if item := d.forward.Get(patricia.Prefix(normalize(word))); item != nil {
		return item.([]Entry)
	}
	return nil
}

// Contains reports whether word has at least one entry.
func (d *Dictionary) Contains(word string) bool {
	return d.forward.Get(patricia.Prefix(normalize(word))) != nil
}

// ReverseLookup returns the forms analysed as (lemma, tag), one per entry.
func (d *Dictionary) ReverseLookup(lemma, tag string) []string {
	if item := d.reverse.Get(patricia.Prefix(normalize(lemma) + Separator + tag)); item != nil {
		return item.([]string)
	}
	return nil
}

// LemmaTags lists, sorted, the tags a lemma can be synthesized with.
func (d *Dictionary) LemmaTags(lemma string) []string {
	prefix := normalize(lemma) + Separator
	var tags []string
	_ = d.reverse.VisitSubtree(patricia.Prefix(prefix), func(p patricia.Prefix, _ patricia.Item) error {
		tags = append(tags, string(p)[len(prefix):])
		return nil
	})
	sort.Strings(tags)
	return tags
}

// Tags returns the sorted tag inventory.
func (d *Dictionary) Tags() []string {
	return d.tags
}

// Len is the number of distinct entries.
func (d *Dictionary) Len() int {
	return d.size
}

// Entries returns every entry, grouped by form in trie order.
func (d *Dictionary) Entries() []Entry {
	out := make([]Entry, 0, d.size)
	_ = d.forward.Visit(func(_ patricia.Prefix, item patricia.Item) error {
		out = append(out, item.([]Entry)...)
		return nil
	})
	return out
}

func normalize(s string) string {
	if norm.NFC.IsNormalString(s) {
		return s
	}
	return norm.NFC.String(s)
}
