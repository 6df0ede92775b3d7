package history

import "testing"

func TestHashtag(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"solar_eclipse", "#SolarEclipse"},
		{"Apollo_11", "#Apollo11"},
		{"Moon", "#Moon"},
		{"NASA", "#NASA"},
		{"a__b", "#AB"},
		{"élan_vital", "#ÉlanVital"},
		{"", "#"},
	}
	for _, tt := range tests {
		if got := Hashtag(tt.title); got != tt.want {
			t.Errorf("Hashtag(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}

func TestAnnotate(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		pages []Page
		want  string
	}{
		{
			name: "no pages",
			text: "Apollo 11 landed on the moon.",
			want: "Apollo 11 landed on the moon.",
		},
		{
			name:  "apollo",
			text:  "Apollo 11 landed on the moon.",
			pages: []Page{{Title: "Apollo_11", NormalizedTitle: "Apollo_11"}},
			want:  "#Apollo11 landed on the moon.",
		},
		{
			name:  "case insensitive",
			text:  "the moon landing occurred",
			pages: []Page{{Title: "Moon_Landing", NormalizedTitle: "Moon_Landing"}},
			want:  "the #MoonLanding occurred",
		},
		{
			name:  "normalized title with spaces",
			text:  "The Treaty of Versailles was signed.",
			pages: []Page{{Title: "Treaty_of_Versailles", NormalizedTitle: "Treaty of Versailles"}},
			want:  "The #TreatyOfVersailles was signed.",
		},
		{
			name:  "every occurrence",
			text:  "Rome fell. Rome rose.",
			pages: []Page{{Title: "Rome", NormalizedTitle: "Rome"}},
			want:  "#Rome fell. #Rome rose.",
		},
		{
			name:  "whole word only",
			text:  "Romeo visited Rome.",
			pages: []Page{{Title: "Rome", NormalizedTitle: "Rome"}},
			want:  "Romeo visited #Rome.",
		},
		{
			name: "empty title skipped",
			text: "Apollo 11 landed.",
			pages: []Page{
				{Title: "", NormalizedTitle: "Apollo_11"},
				{Title: "  ", NormalizedTitle: "Apollo_11"},
			},
			want: "Apollo 11 landed.",
		},
		{
			name:  "empty normalized title skipped",
			text:  "Apollo 11 landed.",
			pages: []Page{{Title: "Apollo_11", NormalizedTitle: ""}, {Title: "Apollo_11", NormalizedTitle: "_"}},
			want:  "Apollo 11 landed.",
		},
		{
			name:  "regexp metacharacters are literal",
			text:  "Titanic (1997 film) premiered. C++ appeared.",
			pages: []Page{{Title: "Titanic_(1997_film)", NormalizedTitle: "Titanic_(1997_film)"}, {Title: "C++", NormalizedTitle: "C++"}},
			want:  "Titanic (1997 film) premiered. C++ appeared.",
		},
		{
			name: "longer phrase first",
			text: "A solar eclipse and an eclipse.",
			pages: []Page{
				{Title: "Solar_Eclipse", NormalizedTitle: "Solar_Eclipse"},
				{Title: "Eclipse", NormalizedTitle: "Eclipse"},
			},
			want: "A #SolarEclipse and an #Eclipse.",
		},
		{
			name: "shorter phrase first",
			text: "A solar eclipse and an eclipse.",
			pages: []Page{
				{Title: "Eclipse", NormalizedTitle: "Eclipse"},
				{Title: "Solar_Eclipse", NormalizedTitle: "Solar_Eclipse"},
			},
			want: "A solar #Eclipse and an #Eclipse.",
		},
		{
			name:  "no match",
			text:  "Nothing relevant here.",
			pages: []Page{{Title: "Mars", NormalizedTitle: "Mars"}},
			want:  "Nothing relevant here.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Annotate(tt.text, tt.pages); got != tt.want {
				t.Errorf("Annotate() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAnnotateIdempotent(t *testing.T) {
	pages := []Page{
		{Title: "Moon", NormalizedTitle: "Moon"},
		{Title: "Apollo_11", NormalizedTitle: "Apollo_11"},
		{Title: "NASA", NormalizedTitle: "NASA"},
	}
	text := "NASA flew Apollo 11 to the Moon; the moon was reached by nasa."

	once := Annotate(text, pages)
	twice := Annotate(once, pages)
	if once != twice {
		t.Errorf("second pass changed text:\n once: %q\ntwice: %q", once, twice)
	}
	want := "#NASA flew #Apollo11 to the #Moon; the #Moon was reached by #NASA."
	if once != want {
		t.Errorf("Annotate() = %q, want %q", once, want)
	}
}
