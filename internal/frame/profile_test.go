package frame

import (
	"strings"
	"testing"
)

func TestDefaultCatalog(t *testing.T) {
	cat := DefaultCatalog()
	if cat.First().ID != "iphone-se" {
		t.Errorf("First() = %s, want iphone-se", cat.First().ID)
	}
	if _, ok := cat.Get("desktop"); !ok {
		t.Error("desktop profile missing")
	}
	if _, ok := cat.Get("nope"); ok {
		t.Error("Get(nope) should report missing")
	}
	if got, want := len(cat.List()), len(BuiltinProfiles()); got != want {
		t.Errorf("List() has %d profiles, want %d", got, want)
	}
}

func TestCatalogNextWraps(t *testing.T) {
	cat := DefaultCatalog()
	all := cat.List()

	p := cat.Next(all[len(all)-1].ID)
	if p.ID != all[0].ID {
		t.Errorf("Next(last) = %s, want wrap to %s", p.ID, all[0].ID)
	}
	p = cat.Next("unknown-id")
	if p.ID != all[0].ID {
		t.Errorf("Next(unknown) = %s, want %s", p.ID, all[0].ID)
	}
	p = cat.Next(all[0].ID)
	if p.ID != all[1].ID {
		t.Errorf("Next(first) = %s, want %s", p.ID, all[1].ID)
	}
}

func TestNewCatalogValidation(t *testing.T) {
	valid := Profile{ID: "a", Name: "A", Width: 100, Height: 200, Category: CategoryMobile}

	cases := []struct {
		name     string
		profiles []Profile
		wantErr  string
	}{
		{"empty", nil, "empty"},
		{"missing id", []Profile{{Name: "A", Width: 1, Height: 1, Category: CategoryMobile}}, "id"},
		{"zero width", []Profile{{ID: "a", Name: "A", Height: 1, Category: CategoryMobile}}, "dimensions"},
		{"negative height", []Profile{{ID: "a", Name: "A", Width: 1, Height: -5, Category: CategoryMobile}}, "dimensions"},
		{"bad category", []Profile{{ID: "a", Name: "A", Width: 1, Height: 1, Category: "watch"}}, "category"},
		{"duplicate id", []Profile{valid, valid}, "duplicate"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewCatalog(tc.profiles)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}

	if _, err := NewCatalog([]Profile{valid}); err != nil {
		t.Errorf("valid catalog rejected: %v", err)
	}
}

func TestBuiltinProfileCategories(t *testing.T) {
	seen := map[Category]bool{}
	for _, p := range BuiltinProfiles() {
		seen[p.Category] = true
	}
	for _, c := range []Category{CategoryMobile, CategoryTablet, CategoryDesktop} {
		if !seen[c] {
			t.Errorf("builtin catalog has no %s profile", c)
		}
	}
}
