package parse

import (
	"testing"
	"time"
)

func TestDateSerial(t *testing.T) {
	d, ok := Date("44927")
	if !ok {
		t.Fatal("expected serial to parse")
	}
	want := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	if !d.Equal(want) {
		t.Errorf("expected %v, got %v", want, d)
	}
}

func TestDateSerialOutOfRange(t *testing.T) {
	for _, raw := range []string{"0", "-5", "100000", "999999"} {
		if d, ok := Date(raw); ok {
			t.Errorf("expected %q to fall through serial parsing, got %v", raw, d)
		}
	}
}

func TestDateSlash(t *testing.T) {
	cases := []struct {
		raw  string
		want time.Time
	}{
		// US month/day/year wins when both readings are valid
		{"01/02/2024", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
		// day/month/year fallback when the first number cannot be a month
		{"25/12/2023", time.Date(2023, 12, 25, 0, 0, 0, 0, time.UTC)},
		{"2024/03/15", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
		// two-digit years: <50 maps to 2000s, rest to 1900s
		{"01/02/24", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"01/02/99", time.Date(1999, 1, 2, 0, 0, 0, 0, time.UTC)},
	}
	for _, c := range cases {
		d, ok := Date(c.raw)
		if !ok {
			t.Errorf("%q: expected parse success", c.raw)
			continue
		}
		if !d.Equal(c.want) {
			t.Errorf("%q: expected %v, got %v", c.raw, c.want, d)
		}
	}
}

func TestDateDash(t *testing.T) {
	d, ok := Date("2024-02-01")
	if !ok || !d.Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("ISO date mismatch: got %v ok=%v", d, ok)
	}

	d, ok = Date("01-02-2024")
	if !ok || !d.Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("dd-mm-yyyy mismatch: got %v ok=%v", d, ok)
	}
}

func TestDateDot(t *testing.T) {
	d, ok := Date("24.12.2023")
	if !ok || !d.Equal(time.Date(2023, 12, 24, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("dotted date mismatch: got %v ok=%v", d, ok)
	}
}

func TestDateGenericLayout(t *testing.T) {
	d, ok := Date("Jan 2, 2024")
	if !ok || !d.Equal(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("generic layout mismatch: got %v ok=%v", d, ok)
	}
}

func TestDateNoRollover(t *testing.T) {
	// month 13 must be rejected, not wrapped into the next year
	if d, ok := Date("13/32/2024"); ok {
		t.Errorf("expected rollover rejection, got %v", d)
	}
}

func TestDateNeverFails(t *testing.T) {
	inputs := []string{"", "########", "not a date", "//", "1/2", "a/b/c", "..", "--", "99/99/99", " "}
	for _, raw := range inputs {
		d, ok := Date(raw)
		if ok {
			t.Errorf("%q: expected sentinel fallback", raw)
		}
		if !d.Equal(SentinelDate) {
			t.Errorf("%q: expected sentinel %v, got %v", raw, SentinelDate, d)
		}
	}
}
