// Package entity extracts candidate person or place names from text.
package entity

import "regexp"

// Extractor returns candidate names found in text, leftmost first.
type Extractor interface {
	Names(text string) []string
}

// Func adapts a plain function to Extractor.
type Func func(text string) []string

// Names calls f.
func (f Func) Names(text string) []string { return f(text) }

var capitalizedPair = regexp.MustCompile(`\b[A-Z][a-z]+\s[A-Z][a-z]+\b`)

// CapitalizedPairs treats two consecutive capitalised words as a name.
// Matches are leftmost and non-overlapping.
var CapitalizedPairs Extractor = Func(func(text string) []string {
	return capitalizedPair.FindAllString(text, -1)
})

// Default is the extractor used when none is configured.
var Default = CapitalizedPairs
