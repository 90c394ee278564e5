// Package tokenize splits text into sentences and sentences into word, punctuation
// and whitespace tokens.
//
// Both tokenizers are pure functions of their input: the returned slices
// concatenate back to the original text and repeated calls return the same
// sequence.
package tokenize

// Tokenizer splits a string into surface substrings.
type Tokenizer interface {
	Tokenize(text string) []string
}

// Lexicon answers whether a word is a dictionary entry.
// The tagger provides one to drive compound splitting.
type Lexicon interface {
	Known(word string) bool
}

// LexiconFunc adapts a function to Lexicon.
type LexiconFunc func(word string) bool

// Known implements Lexicon.
func (f LexiconFunc) Known(word string) bool { return f(word) }
