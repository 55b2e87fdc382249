package textfilter

import "testing"

func TestFilter_Clean(t *testing.T) {
	f := NewProfanityFilter()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "lowercase", in: "damn this door", want: "darn this door"},
		{name: "uppercase", in: "DAMN IT", want: "DARN IT"},
		{name: "title case", in: "Hell awaits.", want: "Heck awaits."},
		{name: "mixed case", in: "sHiT", want: "sHoOt"},
		{name: "longest match wins", in: "a fucking troll", want: "a flipping troll"},
		{name: "whole words only", in: "The hellhound guards the shell.", want: "The hellhound guards the shell."},
		{name: "clean text untouched", in: "You open the chest.", want: "You open the chest."},
		{name: "several words", in: "Damn, what the hell?", want: "Darn, what the heck?"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.Clean(tt.in); got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFilter_Contains(t *testing.T) {
	f := NewProfanityFilter()
	if !f.Contains("well, crap") {
		t.Error("Expected profanity to be detected")
	}
	if f.Contains("a crappie is a fish") {
		t.Error("Expected partial word not to match")
	}
}

func TestFilter_Empty(t *testing.T) {
	f := NewFilter(nil)
	if got := f.Clean("damn"); got != "damn" {
		t.Errorf("Expected empty filter to leave text alone, got %q", got)
	}
	if f.Contains("damn") {
		t.Error("Expected empty filter to match nothing")
	}
}

func TestShouldFilterContent(t *testing.T) {
	tests := map[string]bool{
		"G":     true,
		"pg":    true,
		"PG13":  true,
		"PG-13": true,
		" R ":   false,
		"":      false,
	}
	for rating, want := range tests {
		if got := ShouldFilterContent(rating); got != want {
			t.Errorf("ShouldFilterContent(%q) = %v, want %v", rating, got, want)
		}
	}
}
