package assistant

import "testing"

func TestParseDetection(t *testing.T) {
	cases := []struct {
		name         string
		raw          string
		wantKind     string
		wantContent  string
		wantCategory string
	}{
		{
			name:         "goal",
			raw:          "TYPE: GOAL\nCONTENT: run a marathon in the fall\nCATEGORY: fitness",
			wantKind:     "GOAL",
			wantContent:  "run a marathon in the fall",
			wantCategory: "fitness",
		},
		{
			name:         "fact",
			raw:          "TYPE: FACT\nCONTENT: prefers espresso over filter coffee\nCATEGORY: preferences",
			wantKind:     "FACT",
			wantContent:  "prefers espresso over filter coffee",
			wantCategory: "preferences",
		},
		{
			name:     "none",
			raw:      "TYPE: NONE",
			wantKind: "",
		},
		{
			name:         "missing category defaults",
			raw:          "TYPE: FACT\nCONTENT: works remotely on Fridays",
			wantKind:     "FACT",
			wantContent:  "works remotely on Fridays",
			wantCategory: "general",
		},
		{
			name:     "type without content is dropped",
			raw:      "TYPE: GOAL\nCATEGORY: career",
			wantKind: "",
		},
		{
			name:     "garbage",
			raw:      "I don't see anything worth remembering here.",
			wantKind: "",
		},
		{
			name:         "bracketed type",
			raw:          "TYPE: [FACT]\nCONTENT: allergic to peanuts\nCATEGORY: health",
			wantKind:     "FACT",
			wantContent:  "allergic to peanuts",
			wantCategory: "health",
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			kind, content, category := parseDetection(c.raw)
			if kind != c.wantKind {
				t.Errorf("kind = %q, want %q", kind, c.wantKind)
			}
			if kind == "" {
				return
			}
			if content != c.wantContent {
				t.Errorf("content = %q, want %q", content, c.wantContent)
			}
			if category != c.wantCategory {
				t.Errorf("category = %q, want %q", category, c.wantCategory)
			}
		})
	}
}
