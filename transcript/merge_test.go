package transcript

import "testing"

func TestMerge(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		addition string
		want     string
	}{
		{"empty_base", "", "hello world", "hello world"},
		{"empty_addition", "hello world", "", "hello world"},
		{"both_empty", "", "", ""},
		{"no_overlap", "the quick", "brown fox", "the quick brown fox"},
		{"single_word_overlap", "the quick brown", "brown fox jumps", "the quick brown fox jumps"},
		{"multi_word_overlap", "I went to the store", "to the store yesterday", "I went to the store yesterday"},
		{"full_containment", "hello world", "world", "hello world"},
		{"identical", "same text here", "same text here", "same text here"},
		{"case_insensitive_overlap", "New York", "new york city", "New York city"},
		{"whitespace_normalized", "  the   quick ", " quick  fox ", "the quick fox"},
		{"largest_overlap_wins", "a b a b", "a b c", "a b a b c"},
		{"repeated_word", "really really", "really good", "really really good"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Merge(tt.base, tt.addition); got != tt.want {
				t.Errorf("Merge(%q, %q) = %q, want %q", tt.base, tt.addition, got, tt.want)
			}
		})
	}
}

func TestMergeIdempotence(t *testing.T) {
	inputs := []string{"", "one", "two words", "a longer sentence with several words"}

	for _, s := range inputs {
		if got := Merge(s, ""); got != s {
			t.Errorf("Merge(%q, \"\") = %q, want %q", s, got, s)
		}
		if got := Merge("", s); got != s {
			t.Errorf("Merge(\"\", %q) = %q, want %q", s, got, s)
		}
	}
}

func TestClean(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"   ", ""},
		{"one", "one"},
		{"  spread\t out \n text ", "spread out text"},
	}

	for _, tt := range tests {
		if got := Clean(tt.in); got != tt.want {
			t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
