package store

import "testing"

func TestQuery_Match(t *testing.T) {
	rec := MinuteRecord{RunID: "r1", Scenario: "s2", Minute: 120, Island: true}
	cases := []struct {
		name string
		q    Query
		want bool
	}{
		{"zero query", Query{}, true},
		{"run", Query{RunID: "r1"}, true},
		{"other run", Query{RunID: "r2"}, false},
		{"scenario", Query{Scenario: "s3"}, false},
		{"range includes", Query{From: 120, To: 121}, true},
		{"upper bound exclusive", Query{From: 0, To: 120}, false},
		{"lower bound", Query{From: 121}, false},
		{"island only", Query{IslandOnly: true}, true},
	}
	for _, tc := range cases {
		if got := tc.q.Match(rec); got != tc.want {
			t.Errorf("%s: got %v want %v", tc.name, got, tc.want)
		}
	}
	if (Query{IslandOnly: true}).Match(MinuteRecord{}) {
		t.Error("grid-tied record must not match IslandOnly")
	}
}
