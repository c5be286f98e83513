package textproc

import "testing"

func TestDedupOverlapScenarios(t *testing.T) {
	cases := []struct {
		name     string
		previous string
		current  string
		want     string
	}{
		{
			name:     "S1 large overlap",
			previous: "let's review the roadmap for q2 and q3",
			current:  "roadmap for q2 and q3 plus hiring plan",
			want:     "plus hiring plan",
		},
		{
			name:     "S2 full duplicate",
			previous: "we should align on launch timeline",
			current:  "launch timeline",
			want:     "",
		},
		{
			name:     "S3 no overlap",
			previous: "budget approved yesterday",
			current:  "design review starts tomorrow",
			want:     "design review starts tomorrow",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DedupOverlap(tc.previous, tc.current)
			if got != tc.want {
				t.Errorf("DedupOverlap(%q, %q) = %q, want %q", tc.previous, tc.current, got, tc.want)
			}
		})
	}
}

// TestDedupOverlapBound checks invariant 4: the removed prefix length is
// either 0 or >= 4 code points and <= min(len(previous), len(current)).
func TestDedupOverlapBound(t *testing.T) {
	cases := []struct {
		previous string
		current  string
	}{
		{"abc", "abcdef"},        // overlap would be < 4, must not trigger
		{"ab", "ab"},             // both shorter than min length
		{"hello world", "world"}, // exact short overlap length 5, must exceed half(5)=2.5 -> ok
		{"", "anything at all here"},
		{"some previous text here", ""},
	}

	for _, tc := range cases {
		got := DedupOverlap(tc.previous, tc.current)
		removed := len([]rune(tc.current)) - len([]rune(got))
		if removed != 0 && removed < minOverlapCodepoints {
			t.Errorf("DedupOverlap(%q, %q) removed %d code points, below minimum", tc.previous, tc.current, removed)
		}
		maxAllowed := len([]rune(tc.previous))
		if len([]rune(tc.current)) < maxAllowed {
			maxAllowed = len([]rune(tc.current))
		}
		if removed > maxAllowed {
			t.Errorf("DedupOverlap(%q, %q) removed %d code points, exceeds max %d", tc.previous, tc.current, removed, maxAllowed)
		}
	}
}

func TestStripLanguagePrefix(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "S4a prefix directly concatenated",
			in:   "language EnglishWhat's your name?",
			want: "What's your name?",
		},
		{
			name: "S4b mid-sentence after terminator",
			in:   "Hi.language Chinese吃吃吃。",
			want: "Hi.吃吃吃。",
		},
		{
			name: "colon variant",
			in:   "language: French Bonjour tout le monde",
			want: "Bonjour tout le monde",
		},
		{
			name: "fullwidth colon variant",
			in:   "language：Japanese こんにちは",
			want: "こんにちは",
		},
		{
			name: "no tag present",
			in:   "just a plain sentence.",
			want: "just a plain sentence.",
		},
		{
			name: "collapses multiple spaces",
			in:   "language English  hello   there",
			want: "hello there",
		},
		{
			name: "None sentinel",
			in:   "language None some text",
			want: "some text",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := StripLanguagePrefix(tc.in)
			if got != tc.want {
				t.Errorf("StripLanguagePrefix(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
