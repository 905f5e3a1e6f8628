package property

import (
	"errors"
	"math/big"
	"testing"
)

func TestToWei(t *testing.T) {
	cases := map[string]string{
		"1":        "1000000000000000000",
		"0.25":     "250000000000000000",
		" 12.5 ":   "12500000000000000000",
		"0":        "0",
		"0.000001": "1000000000000",
	}
	for input, want := range cases {
		got, err := ToWei(input)
		if err != nil {
			t.Fatalf("ToWei(%q) error = %v", input, err)
		}
		if got.String() != want {
			t.Fatalf("ToWei(%q) = %s, want %s", input, got, want)
		}
	}
}

func TestToWeiRejectsBadAmounts(t *testing.T) {
	for _, input := range []string{"", "abc", "-1", "0.0000000000000000001"} {
		if _, err := ToWei(input); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("ToWei(%q) error = %v, want ErrInvalidAmount", input, err)
		}
	}
}

func TestFormatEther(t *testing.T) {
	value, _ := new(big.Int).SetString("1500000000000000000", 10)
	if got := FormatEther(value); got != "1.5" {
		t.Fatalf("FormatEther() = %q, want 1.5", got)
	}
	if got := FormatEther(nil); got != "0" {
		t.Fatalf("FormatEther(nil) = %q", got)
	}
	if got := FormatBaseUnits(big.NewInt(1234), 2); got != "12.34" {
		t.Fatalf("FormatBaseUnits() = %q", got)
	}
}

func TestSizeHint(t *testing.T) {
	if got := SizeHint(" 950 ", "2400 sq ft"); got != "950" {
		t.Fatalf("SizeHint(explicit) = %q", got)
	}
	if got := SizeHint("", "Renovated duplex, 2400 Sq Ft, garden"); got != "2400" {
		t.Fatalf("SizeHint(description) = %q", got)
	}
	if got := SizeHint("", "three bedrooms"); got != DefaultSizeHint {
		t.Fatalf("SizeHint(default) = %q", got)
	}
}
