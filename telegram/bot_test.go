package telegram

import "testing"

func TestParseCallCallback(t *testing.T) {
	cases := []struct {
		data          string
		wantID        string
		wantConfirmed bool
		wantOK        bool
	}{
		{"call:a1b2c3:yes", "a1b2c3", true, true},
		{"call:a1b2c3:no", "a1b2c3", false, true},
		{"call:a1b2c3:maybe", "", false, false},
		{"other:a1b2c3:yes", "", false, false},
		{"call:yes", "", false, false},
		{"", "", false, false},
		{"call:a1b2c3:yes:extra", "", false, false},
	}

	for _, c := range cases {
		id, confirmed, ok := parseCallCallback(c.data)
		if ok != c.wantOK {
			t.Errorf("parseCallCallback(%q) ok = %v, want %v", c.data, ok, c.wantOK)
			continue
		}
		if !ok {
			continue
		}
		if id != c.wantID || confirmed != c.wantConfirmed {
			t.Errorf("parseCallCallback(%q) = (%q, %v), want (%q, %v)",
				c.data, id, confirmed, c.wantID, c.wantConfirmed)
		}
	}
}
