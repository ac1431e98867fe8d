package licenses

import "testing"

func TestMatchByCode(t *testing.T) {
	got := Match("cc-by-sa")
	if got == nil || got.Code != "cc-by-sa" {
		t.Fatalf("got %+v, want cc-by-sa", got)
	}
}

func TestMatchByURLInsideCopyright(t *testing.T) {
	got := Match("", "2019 Some Artist, licensed under https://creativecommons.org/licenses/by-nc-sa/4.0/")
	if got == nil || got.Code != "cc-by-nc-sa" {
		t.Fatalf("got %+v, want cc-by-nc-sa", got)
	}
}

func TestMatchSchemeInsensitive(t *testing.T) {
	got := Match("http://creativecommons.org/publicdomain/zero/1.0/")
	if got == nil || got.Code != "cc0" {
		t.Fatalf("got %+v, want cc0", got)
	}
}

func TestMatchFirstValueWins(t *testing.T) {
	got := Match("cc-by", "https://creativecommons.org/licenses/by-nd/4.0/")
	if got == nil || got.Code != "cc-by" {
		t.Fatalf("got %+v, want cc-by from the first value", got)
	}
}

func TestMatchNoResult(t *testing.T) {
	if got := Match("", "All rights reserved"); got != nil {
		t.Errorf("got %+v, want nil", got)
	}
}

func TestMatchDistinguishesPathSegments(t *testing.T) {
	// by-nc-sa must not fall through to by-nc or by-sa.
	got := Match("https://creativecommons.org/licenses/by-nc-sa/4.0/")
	if got == nil || got.Code != "cc-by-nc-sa" {
		t.Fatalf("got %+v, want cc-by-nc-sa", got)
	}
}

func TestByCode(t *testing.T) {
	if l := ByCode("cc0"); l == nil || l.Name != "Public domain" {
		t.Fatalf("got %+v", l)
	}
	if l := ByCode("nope"); l != nil {
		t.Errorf("got %+v, want nil", l)
	}
}
