package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestParseYearMonth(t *testing.T) {
	cases := []struct {
		in   string
		want YearMonth
		ok   bool
	}{
		{"2019-01", YearMonth{2019, time.January}, true},
		{" 2019-12 ", YearMonth{2019, time.December}, true},
		{"2019-03-01", YearMonth{2019, time.March}, true},
		{"2019-03-01T00:00:00Z", YearMonth{2019, time.March}, true},
		{"2019-03-01 00:00:00+00", YearMonth{2019, time.March}, true},
		{"2019-13", YearMonth{}, false},
		{"2019-1", YearMonth{2019, time.January}, true},
		{"2019-9", YearMonth{2019, time.September}, true},
		{"2019-0", YearMonth{}, false},
		{"2019-+1", YearMonth{}, false},
		{"2019-123", YearMonth{}, false},
		{"201901", YearMonth{}, false},
		{"2019-02-30", YearMonth{}, false},
		{"2019-03-01x", YearMonth{}, false},
		{"", YearMonth{}, false},
		{"January 2019", YearMonth{}, false},
	}
	for _, tc := range cases {
		got, err := ParseYearMonth(tc.in)
		if tc.ok {
			if err != nil || got != tc.want {
				t.Fatalf("%q expected %v, got %v (err=%v)", tc.in, tc.want, got, err)
			}
			continue
		}
		var de *DataFormatError
		if !errors.As(err, &de) || !errors.Is(err, ErrInvalidMonth) {
			t.Fatalf("%q expected DataFormatError, got %v", tc.in, err)
		}
	}
}

func TestYearMonthOrdering(t *testing.T) {
	a := MustYearMonth("2018-12")
	b := MustYearMonth("2019-01")
	c := MustYearMonth("2019-02")

	if !a.Before(b) || !b.Before(c) || c.Before(a) {
		t.Fatal("chronological order broken")
	}
	if a.Compare(a) != 0 {
		t.Fatal("compare with self must be 0")
	}
	// "2019-10" sorts before "2019-9" as text but not as a month.
	if !NewYearMonth(2019, time.September).Before(NewYearMonth(2019, time.October)) {
		t.Fatal("September must precede October")
	}
}

func TestYearMonthStringAndTime(t *testing.T) {
	ym := NewYearMonth(2019, time.April)
	if ym.String() != "2019-04" {
		t.Fatalf("got %s", ym.String())
	}
	want := time.Date(2019, time.April, 1, 0, 0, 0, 0, time.UTC)
	if !ym.Time().Equal(want) {
		t.Fatalf("got %v", ym.Time())
	}
}

func TestYearMonthJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		M YearMonth `json:"m"`
	}{NewYearMonth(2019, time.July)})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"m":"2019-07"}` {
		t.Fatalf("got %s", b)
	}

	var out struct {
		M YearMonth `json:"m"`
	}
	if err := json.Unmarshal([]byte(`{"m":"2020-02"}`), &out); err != nil {
		t.Fatal(err)
	}
	if out.M != NewYearMonth(2020, time.February) {
		t.Fatalf("got %v", out.M)
	}
	if err := json.Unmarshal([]byte(`{"m":"nope"}`), &out); err == nil {
		t.Fatal("expected error for invalid month")
	}
}

func TestParseFilter(t *testing.T) {
	cases := []struct {
		in    string
		all   bool
		store string
	}{
		{"", true, ""},
		{"All", true, ""},
		{"  All ", true, ""},
		{"Brooklyn", false, "Brooklyn"},
		{" Brooklyn ", false, "Brooklyn"},
		{"all", false, "all"},
	}
	for _, tc := range cases {
		f := ParseFilter(tc.in)
		if f.IsAll() != tc.all {
			t.Fatalf("%q: IsAll=%v", tc.in, f.IsAll())
		}
		name, ok := f.Store()
		if ok == tc.all || name != tc.store {
			t.Fatalf("%q: Store()=(%q,%v)", tc.in, name, ok)
		}
	}
}

func TestFilterMatchesAndString(t *testing.T) {
	var zero Filter
	if !zero.IsAll() || !zero.Matches("anything") || zero.String() != "All" {
		t.Fatal("zero filter must behave as AllStores")
	}
	f := SingleStore("Chicago")
	if !f.Matches("Chicago") || f.Matches("chicago") || f.Matches("") {
		t.Fatal("single store must match exactly")
	}
	if f.String() != "Chicago" {
		t.Fatalf("got %s", f.String())
	}
}
