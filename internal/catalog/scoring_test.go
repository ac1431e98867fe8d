package catalog

import "testing"

func TestSortCandidatesPrefersIdentifiedRows(t *testing.T) {
	plain := &Artist{ID: "1", Name: "A"}
	identified := &Artist{ID: "2", Name: "A", MBID: "mbid-123"}

	got := SortCandidates([]*Artist{plain, identified}, []string{"mbid"})
	if got[0].ID != "2" {
		t.Errorf("first candidate = %s, want the mbid-carrying row", got[0].ID)
	}
}

// Field weights follow the alphabetical order of the field names, not the
// caller's order. Callers pass ["mbid", "fid"] expecting mbid-first
// priority, but "fid" sorts before "mbid" and so carries the higher
// weight: a fid-only row outranks an mbid-only row. This is long-standing
// observed behavior that callers depend on; do not "fix" it to honor
// caller order without auditing every call site.
func TestSortCandidatesAlphabeticalWeighting(t *testing.T) {
	empty := &Artist{ID: "empty"}
	fidOnly := &Artist{ID: "fid-only", FID: "https://peer.example/artist/1"}
	mbidOnly := &Artist{ID: "mbid-only", MBID: "b10bbbfc-cf9e-42e0-be17-e2c3e1d2600d"}

	got := SortCandidates([]*Artist{empty, fidOnly, mbidOnly}, []string{"mbid", "fid"})

	if got[0].ID != "fid-only" {
		t.Errorf("first = %s, want fid-only (fid sorts first, higher weight)", got[0].ID)
	}
	if got[1].ID != "mbid-only" {
		t.Errorf("second = %s, want mbid-only", got[1].ID)
	}
	if got[2].ID != "empty" {
		t.Errorf("third = %s, want empty", got[2].ID)
	}
}

func TestSortCandidatesTiesKeepArrivalOrder(t *testing.T) {
	first := &Artist{ID: "first", MBID: "x"}
	second := &Artist{ID: "second", MBID: "y"}
	third := &Artist{ID: "third"}

	got := SortCandidates([]*Artist{first, second, third}, []string{"mbid"})
	if got[0].ID != "first" || got[1].ID != "second" || got[2].ID != "third" {
		t.Errorf("order = %s, %s, %s; want arrival order within equal scores",
			got[0].ID, got[1].ID, got[2].ID)
	}
}

func TestSortCandidatesUnknownFieldsScoreZero(t *testing.T) {
	a := &ArtistCredit{ID: "a", ArtistID: "art", Credit: "A"}
	b := &ArtistCredit{ID: "b", ArtistID: "art", Credit: "B"}

	// Credits carry no mbid/fid; both score zero and keep arrival order.
	got := SortCandidates([]*ArtistCredit{a, b}, []string{"mbid", "fid"})
	if got[0].ID != "a" || got[1].ID != "b" {
		t.Errorf("order = %s, %s; want a, b", got[0].ID, got[1].ID)
	}
}
