package model

import "testing"

func TestCorpus(t *testing.T) {
	chunks := []Chunk{{Text: "Library hours", Source: "a.txt"}, {Text: "Hostel rules", Source: "b.txt"}}
	facts := []Fact{{Seq: 0, Text: "The canteen opens at 9"}}

	got := Corpus(chunks, facts)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i, e := range got {
		if e.Pos != i {
			t.Errorf("entry %d has Pos %d", i, e.Pos)
		}
	}
	if got[1].Kind != KindChunk || got[1].Source != "b.txt" {
		t.Errorf("entry 1 = %+v", got[1])
	}
	if got[2].Kind != KindFact || got[2].Text != "The canteen opens at 9" || got[2].Source != "" {
		t.Errorf("entry 2 = %+v", got[2])
	}
	if n := len(Corpus(nil, nil)); n != 0 {
		t.Errorf("empty corpus has %d entries", n)
	}
}
