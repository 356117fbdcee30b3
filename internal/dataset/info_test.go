package dataset

import (
	"errors"
	"testing"
)

func TestIrisIsValid(t *testing.T) {
	info := Iris()
	if err := info.Validate(); err != nil {
		t.Fatalf("iris info invalid: %v", err)
	}
	if info.FeatureCount != 4 || info.ClassCount != 3 {
		t.Fatalf("unexpected iris shape: %+v", info)
	}
}

func TestValidateRejectsMalformedInfo(t *testing.T) {
	cases := []Info{
		{FeatureCount: 0, ClassCount: 3},
		{FeatureCount: 4, ClassCount: 0},
		{FeatureCount: 2, ClassCount: 2, FeatureNames: []string{"a"}},
		{FeatureCount: 2, ClassCount: 2, ClassNames: []string{"a", "b", "c"}},
	}
	for _, info := range cases {
		if err := info.Validate(); !errors.Is(err, ErrMalformedInfo) {
			t.Fatalf("expected ErrMalformedInfo for %+v, got %v", info, err)
		}
	}
}

func TestLookup(t *testing.T) {
	if _, err := Lookup("iris"); err != nil {
		t.Fatalf("lookup iris: %v", err)
	}
	if _, err := Lookup("mnist"); err == nil {
		t.Fatal("expected unknown dataset error")
	}
}
