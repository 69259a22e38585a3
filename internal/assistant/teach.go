package assistant

import (
	"strings"

	"github.com/rcliao/alphamind/internal/store"
)

// ErrEmptyFact is returned for a teach command with nothing after the prefix.
var ErrEmptyFact = store.ErrEmptyFact

// TeachPrefixes start a teach command, compared case-insensitively.
var TeachPrefixes = []string{"remember that", "learn that"}

// ParseTeach reports whether input is a teach command and extracts the fact:
// the trimmed text after the first "that". A teach command with an empty
// remainder returns ErrEmptyFact.
func ParseTeach(input string) (fact string, ok bool, err error) {
	lower := strings.ToLower(input)
	matched := false
	for _, p := range TeachPrefixes {
		if strings.HasPrefix(lower, p) {
			matched = true
			break
		}
	}
	if !matched {
		return "", false, nil
	}

	// ToLower can change byte lengths outside ASCII, so locate "that" in the
	// original text by scanning case-insensitively.
	i := indexFold(input, "that")
	fact = strings.TrimSpace(input[i+len("that"):])
	if fact == "" {
		return "", true, ErrEmptyFact
	}
	return fact, true, nil
}

// indexFold returns the byte index of the first ASCII case-insensitive match
// of sub in s, or -1.
func indexFold(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if strings.EqualFold(s[i:i+len(sub)], sub) {
			return i
		}
	}
	return -1
}
