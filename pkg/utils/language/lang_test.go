package language

import (
	"database/sql/driver"
	"testing"

	"golang.org/x/text/language"
)

func TestTag_Scan_and_Value(t *testing.T) {
	var t1 Tag
	if err := t1.Scan("en-US"); err != nil {
		t.Fatalf("Scan error = %v", err)
	}
	if t1.String() != "en-US" {
		t.Fatalf("tag = %q, want %q", t1.String(), "en-US")
	}

	val, err := t1.Value()
	if err != nil {
		t.Fatalf("Value error = %v", err)
	}
	if s, ok := val.(string); !ok || s != "en-US" {
		t.Fatalf("Value() = %#v, want string(en-US)", val)
	}

	// nil scan -> Und
	var t2 Tag
	if err := t2.Scan(nil); err != nil {
		t.Fatalf("Scan(nil) error = %v", err)
	}
	if t2 != Tag(language.Und) {
		t.Fatalf("Scan(nil) got %q, want %q", t2.String(), language.Und.String())
	}

	// compile-time interface check
	var _ driver.Valuer = Tag(language.Und)
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"en", "en"},
		{"EN", "en"},
		{"fr-FR", "fr-FR"},
		{"", "en"},
		{"zz!!", "en"},
	}
	for _, c := range cases {
		if got := Normalize(c.in); got != c.want {
			t.Errorf("Normalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
