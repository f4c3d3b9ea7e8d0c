package cache

import "testing"

func TestKeyFor(t *testing.T) {
	cases := []struct {
		firstID int64
		limit   int
		want    Key
	}{
		{0, 20, Key{Latest: true, Limit: 20}},
		{-5, 5, Key{Latest: true, Limit: 5}},
		{100, 20, Key{Lo: 80, Hi: 99}},
		{10, 20, Key{Lo: 1, Hi: 9}},
		{1, 20, Key{Lo: 1, Hi: 0}},
	}
	for _, tc := range cases {
		if got := KeyFor(tc.firstID, tc.limit); got != tc.want {
			t.Fatalf("KeyFor(%d, %d) = %+v, want %+v", tc.firstID, tc.limit, got, tc.want)
		}
	}
}

func TestKeyStringAndParse(t *testing.T) {
	for _, k := range []Key{LatestKey, {Lo: 1, Hi: 20}, {Lo: 81, Hi: 100}} {
		got, err := ParseKey(k.String())
		if err != nil {
			t.Fatalf("ParseKey(%q): %v", k.String(), err)
		}
		if got != k {
			t.Fatalf("round trip %q: got %+v", k.String(), got)
		}
	}
	if LatestKey.String() != "last_messages" {
		t.Fatalf("unexpected latest key %q", LatestKey.String())
	}
	if KeyFor(0, 5).String() != "last_messages" {
		t.Fatalf("limit leaked into latest key string")
	}
	if (Key{Lo: 80, Hi: 99}).String() != "80-99" {
		t.Fatalf("unexpected range key")
	}
}

func TestParseKey_RejectsForeignKeys(t *testing.T) {
	for _, s := range []string{"", "latest", "1-", "-1", "a-b", "5-2", "0-3", "1-2-3"} {
		if _, err := ParseKey(s); err == nil {
			t.Fatalf("expected %q to be rejected", s)
		}
	}
}

func TestKeyContains(t *testing.T) {
	k := Key{Lo: 80, Hi: 99}
	if !k.Contains(80) || !k.Contains(99) || k.Contains(79) || k.Contains(100) {
		t.Fatalf("unexpected containment for %+v", k)
	}
	if LatestKey.Contains(1) {
		t.Fatalf("latest key must not contain ids")
	}
}
