// Package model defines the core retrieval and memory data types.
package model

import "time"

// Kind values for corpus entries.
const (
	KindChunk = "chunk"
	KindFact  = "fact"
)

// Chunk is a paragraph of document text, the unit of retrieval.
type Chunk struct {
	Text   string `json:"text"`
	Source string `json:"source"`
	Seq    int    `json:"seq"`
}

// Fact is a single user-taught line. Seq is its position in the fact log.
type Fact struct {
	Seq  int    `json:"seq"`
	Text string `json:"text"`
}

// Entry is one position of the corpus. Pos is the join key into the
// embedding index: corpus[i] and index entry i always describe the same text.
type Entry struct {
	Pos    int    `json:"pos"`
	Text   string `json:"text"`
	Kind   string `json:"kind"`
	Source string `json:"source,omitempty"`
}

// Hit is a similarity search result.
type Hit struct {
	Pos   int     `json:"pos"`
	Score float64 `json:"score"`
}

// Turn is one user/bot exchange in a conversation session.
type Turn struct {
	User string    `json:"user"`
	Bot  string    `json:"bot"`
	At   time.Time `json:"at"`
}

// Corpus concatenates chunks followed by facts, assigning positions in order.
func Corpus(chunks []Chunk, facts []Fact) []Entry {
	entries := make([]Entry, 0, len(chunks)+len(facts))
	for _, c := range chunks {
		entries = append(entries, Entry{Pos: len(entries), Text: c.Text, Kind: KindChunk, Source: c.Source})
	}
	for _, f := range facts {
		entries = append(entries, Entry{Pos: len(entries), Text: f.Text, Kind: KindFact})
	}
	return entries
}
