package retrieval

import (
	"regexp"
	"strings"

	"github.com/rcliao/alphamind/internal/entity"
	"github.com/rcliao/alphamind/internal/model"
)

// Pronouns that trigger antecedent substitution.
var Pronouns = []string{"he", "she", "they", "him", "her", "them", "his", "their"}

var pronounPattern = regexp.MustCompile(`(?i)\b(` + strings.Join(Pronouns, "|") + `)\b`)

// HasPronoun reports whether query contains a pronoun as a whole word.
func HasPronoun(query string) bool {
	return pronounPattern.MatchString(query)
}

// ResolvePronouns substitutes every pronoun in query with an antecedent. The
// antecedent is the first name extracted from the most recent bot reply that
// has one, else from the most recent fact that has one. Without an
// antecedent the query is returned unchanged.
func ResolvePronouns(query string, turns []model.Turn, facts []model.Fact, ex entity.Extractor) string {
	if !HasPronoun(query) {
		return query
	}
	if ex == nil {
		ex = entity.Default
	}
	name := antecedent(turns, facts, ex)
	if name == "" {
		return query
	}
	return pronounPattern.ReplaceAllLiteralString(query, name)
}

func antecedent(turns []model.Turn, facts []model.Fact, ex entity.Extractor) string {
	for i := len(turns) - 1; i >= 0; i-- {
		if names := ex.Names(turns[i].Bot); len(names) > 0 {
			return names[0]
		}
	}
	for i := len(facts) - 1; i >= 0; i-- {
		if names := ex.Names(facts[i].Text); len(names) > 0 {
			return names[0]
		}
	}
	return ""
}
