package entity

import (
	"strings"
	"testing"
)

func TestCapitalizedPairs(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"single", "Rahul Mehra is the head of CSE", []string{"Rahul Mehra"}},
		{"two", "Anita Rao met Vikram Singh", []string{"Anita Rao", "Vikram Singh"}},
		{"non overlapping", "Anita Rao Kumar", []string{"Anita Rao"}},
		{"none", "the library opens at 9", nil},
		{"acronym not a name", "CSE Department", nil},
		{"single capital word", "Bhimtal is nice", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CapitalizedPairs.Names(tt.text)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("Names(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestFunc(t *testing.T) {
	e := Func(func(text string) []string { return []string{strings.ToUpper(text)} })
	got := e.Names("abc")
	if len(got) != 1 || got[0] != "ABC" {
		t.Errorf("unexpected %v", got)
	}
}
