package synth

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// Negation synthesizes negated forms that the dictionary only stores in their
// affirmative variant: the Marker in the tag is swapped for Affirmative and
// every form found gets Prefix.
type Negation struct {
	Marker      string
	Affirmative string
	Prefix      string
	// Exclude matches tags whose negation is not prefixed, such as
	// comparatives and superlatives. It applies to pattern synthesis.
	Exclude *regexp.Regexp
}

// PolishNegation returns the "nie" prefix negation.
func PolishNegation() *Negation {
	return &Negation{
		Marker:      ":neg",
		Affirmative: ":aff",
		Prefix:      "nie",
		Exclude:     regexp.MustCompile(`:(?:com|sup)`),
	}
}

func (n *Negation) affirmative(tag string) (string, bool) {
	if n.Marker == "" || !strings.Contains(tag, n.Marker) {
		return "", false
	}
	return strings.Replace(tag, n.Marker, n.Affirmative, 1), true
}

func (n *Negation) excluded(tag string) bool {
	return n.Exclude != nil && n.Exclude.MatchString(tag)
}

func (n *Negation) prefix(forms []string) []string {
	for i, f := range forms {
		forms[i] = n.Prefix + f
	}
	return forms
}

// DiacriticCodec maps letters to digit placeholders for dictionaries that
// store them that way. Decode(Encode(x)) == x for every x without digits.
type DiacriticCodec struct {
	encoder *strings.Replacer
	decoder *strings.Replacer
}

// NewDiacriticCodec takes letter/placeholder pairs. Placeholders must be
// non-empty digit strings, unique and prefix-free.
func NewDiacriticCodec(pairs ...string) (*DiacriticCodec, error) {
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("odd number of codec arguments")
	}
	reverse := make([]string, 0, len(pairs))
	letters := make(map[string]bool)
	var codes []string
	for i := 0; i < len(pairs); i += 2 {
		letter, code := pairs[i], pairs[i+1]
		if letter == "" || letters[letter] {
			return nil, fmt.Errorf("empty or repeated letter %q", letter)
		}
		letters[letter] = true
		if code == "" || strings.IndexFunc(code, func(r rune) bool { return !unicode.IsDigit(r) }) >= 0 {
			return nil, fmt.Errorf("placeholder %q for %q is not a digit string", code, letter)
		}
		for _, c := range codes {
			if strings.HasPrefix(c, code) || strings.HasPrefix(code, c) {
				return nil, fmt.Errorf("placeholders %q and %q overlap", c, code)
			}
		}
		codes = append(codes, code)
		reverse = append(reverse, code, letter)
	}
	return &DiacriticCodec{
		encoder: strings.NewReplacer(pairs...),
		decoder: strings.NewReplacer(reverse...),
	}, nil
}

// PolishDiacritics maps the lowercase letters to 1-9 and the uppercase ones to 01-09.
func PolishDiacritics() *DiacriticCodec {
	lower := []rune("ąćęłńóśźż")
	upper := []rune("ĄĆĘŁŃÓŚŹŻ")
	pairs := make([]string, 0, 4*len(lower))
	for i := range lower {
		pairs = append(pairs, string(lower[i]), fmt.Sprint(i+1), string(upper[i]), fmt.Sprintf("0%d", i+1))
	}
	c, err := NewDiacriticCodec(pairs...)
	if err != nil {
		panic(err)
	}
	return c
}

// Encode replaces letters with their placeholders.
func (c *DiacriticCodec) Encode(s string) string { return c.encoder.Replace(s) }

// Decode replaces placeholders with their letters.
func (c *DiacriticCodec) Decode(s string) string { return c.decoder.Replace(s) }
