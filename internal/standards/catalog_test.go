package standards

import (
	"strings"
	"testing"
)

func TestLoadEmbeddedCatalog(t *testing.T) {
	cat, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cat.Len() != 4 {
		t.Fatalf("Len()=%d, want 4", cat.Len())
	}

	first, ok := cat.ByIndex(0)
	if !ok {
		t.Fatalf("ByIndex(0) not found")
	}
	if first.FullName != "Professional Responsibility and Accountability" {
		t.Fatalf("first standard = %q", first.FullName)
	}

	last, ok := cat.ByID(4)
	if !ok {
		t.Fatalf("ByID(4) not found")
	}
	if last.FullName != "Ethical Practice" {
		t.Fatalf("last standard = %q", last.FullName)
	}

	for _, s := range cat.All() {
		if len(s.KeyAreas) == 0 {
			t.Fatalf("standard %d has no key areas", s.ID)
		}
		if len(s.ExampleQuestions) == 0 {
			t.Fatalf("standard %d has no example questions", s.ID)
		}
	}
}

func TestParseRejectsBadCatalogs(t *testing.T) {
	cases := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "empty",
			yaml:    "standards: []",
			wantErr: "empty",
		},
		{
			name: "out_of_order",
			yaml: `
standards:
  - id: 2
    full_name: "Knowledge-Based Practice"
    key_areas: ["a"]
`,
			wantErr: "out of order",
		},
		{
			name: "missing_key_areas",
			yaml: `
standards:
  - id: 1
    full_name: "Professional Responsibility and Accountability"
`,
			wantErr: "no key areas",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			if err == nil {
				t.Fatalf("Parse accepted bad catalog")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error %q does not mention %q", err.Error(), tc.wantErr)
			}
		})
	}
}

func TestByIndexOutOfRange(t *testing.T) {
	cat, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if _, ok := cat.ByIndex(-1); ok {
		t.Fatalf("ByIndex(-1) should not resolve")
	}
	if _, ok := cat.ByIndex(cat.Len()); ok {
		t.Fatalf("ByIndex(len) should not resolve")
	}
}
