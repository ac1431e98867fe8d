package credits

import (
	"testing"

	"github.com/coda-audio/coda/internal/catalog"
	"github.com/coda-audio/coda/internal/config"
)

func testParser(t *testing.T) *Parser {
	t.Helper()
	p, err := Config{JoinPhrases: config.DefaultJoinPhrases(), Default: ", "}.Compile()
	if err != nil {
		t.Fatalf("compiling parser: %v", err)
	}
	return p
}

func TestParseMultipleJoinPhrases(t *testing.T) {
	p := testParser(t)

	got := p.Parse("Luigi 21 Plus feat. Ñejo feat Ñengo Flow & Chyno Nyno", "", nil, nil)
	want := []Credit{
		{Credit: "Luigi 21 Plus", Joinphrase: " feat. ", Index: 0},
		{Credit: "Ñejo", Joinphrase: " feat ", Index: 1},
		{Credit: "Ñengo Flow", Joinphrase: " & ", Index: 2},
		{Credit: "Chyno Nyno", Joinphrase: "", Index: 3},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d credits, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i].Credit != want[i].Credit {
			t.Errorf("credit[%d] = %q, want %q", i, got[i].Credit, want[i].Credit)
		}
		if got[i].Joinphrase != want[i].Joinphrase {
			t.Errorf("joinphrase[%d] = %q, want %q", i, got[i].Joinphrase, want[i].Joinphrase)
		}
		if got[i].Index != want[i].Index {
			t.Errorf("index[%d] = %d, want %d", i, got[i].Index, want[i].Index)
		}
		if got[i].Artist != nil {
			t.Errorf("artist[%d] = %v, want nil", i, got[i].Artist)
		}
	}
}

func TestParsePipeSeparator(t *testing.T) {
	p := testParser(t)

	got := p.Parse("The Kinks|Various Artists", "", nil, nil)
	if len(got) != 2 {
		t.Fatalf("got %d credits, want 2: %+v", len(got), got)
	}
	if got[0].Credit != "The Kinks" || got[0].Joinphrase != "|" || got[0].Index != 0 {
		t.Errorf("first = %+v, want {The Kinks | 0}", got[0])
	}
	if got[1].Credit != "Various Artists" || got[1].Joinphrase != "" || got[1].Index != 1 {
		t.Errorf("second = %+v, want {Various Artists  1}", got[1])
	}
}

func TestParseSingleArtist(t *testing.T) {
	p := testParser(t)

	got := p.Parse("Prince", "", nil, nil)
	if len(got) != 1 {
		t.Fatalf("got %d credits, want 1", len(got))
	}
	if got[0].Credit != "Prince" || got[0].Joinphrase != "" || got[0].Index != 0 {
		t.Errorf("got %+v", got[0])
	}
}

func TestParseEmptyString(t *testing.T) {
	p := testParser(t)

	if got := p.Parse("", "", nil, nil); got != nil {
		t.Errorf("got %+v, want nil for empty input", got)
	}
}

func TestParseEmptyStringWithForcedArtist(t *testing.T) {
	p := testParser(t)
	artist := &catalog.Artist{ID: "a1", Name: "Channel Artist"}

	got := p.Parse("", "", nil, artist)
	if len(got) != 1 {
		t.Fatalf("got %d credits, want 1", len(got))
	}
	if got[0].Credit != "Channel Artist" {
		t.Errorf("credit = %q, want forced artist name", got[0].Credit)
	}
	if got[0].Artist != artist {
		t.Error("expected forced artist carried through")
	}
}

func TestParseForcedJoinphraseAndIndex(t *testing.T) {
	p := testParser(t)
	idx := 4

	got := p.Parse("A & B", " + ", &idx, nil)
	if len(got) != 2 {
		t.Fatalf("got %d credits, want 2", len(got))
	}
	for i, c := range got {
		if c.Joinphrase != " + " {
			t.Errorf("joinphrase[%d] = %q, want forced %q", i, c.Joinphrase, " + ")
		}
		if c.Index != 4 {
			t.Errorf("index[%d] = %d, want forced 4", i, c.Index)
		}
	}
}

func TestParseDottedVariantBeforeBarePrefix(t *testing.T) {
	p := testParser(t)

	// " ft. " must be consumed by the dotted alternative, not split as
	// " ft " plus a stray dot.
	got := p.Parse("A ft. B", "", nil, nil)
	if len(got) != 2 {
		t.Fatalf("got %d credits, want 2: %+v", len(got), got)
	}
	if got[0].Joinphrase != " ft. " {
		t.Errorf("joinphrase = %q, want %q", got[0].Joinphrase, " ft. ")
	}
	if got[1].Credit != "B" {
		t.Errorf("second credit = %q, want B", got[1].Credit)
	}
}

func TestParseParenthesisNormalization(t *testing.T) {
	p := testParser(t)

	got := p.Parse("Artist( Guest)", "", nil, nil)
	if len(got) < 2 {
		t.Fatalf("got %d credits, want at least 2: %+v", len(got), got)
	}
	if got[0].Joinphrase != "(" {
		t.Errorf("joinphrase = %q, want %q after normalization", got[0].Joinphrase, "(")
	}
}

func TestParseIsDeterministic(t *testing.T) {
	p := testParser(t)

	a := p.Parse("X featuring Y and Z", "", nil, nil)
	b := p.Parse("X featuring Y and Z", "", nil, nil)
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("credit[%d] differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}
