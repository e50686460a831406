package features

import (
	"math"
	"testing"
)

func TestExtractEmpty(t *testing.T) {
	got := Default().Extract("   ...  ")
	if len(got) != 0 {
		t.Errorf("expected empty features, got %v", got)
	}
}

func TestExtractStableKeys(t *testing.T) {
	a := Default().Extract("I always fail.")
	b := Default().Extract("Work went fine today, nothing special?")

	if len(a) != 7 || len(b) != 7 {
		t.Fatalf("expected 7 keys each, got %d and %d", len(a), len(b))
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			t.Errorf("key %q missing from second extraction", k)
		}
	}
}

func TestExtractValues(t *testing.T) {
	got := Default().Extract("I never know. I never sleep?")

	tests := []struct {
		key  string
		want float64
	}{
		{TokenCount, 6},
		{UniqueRatio, 4.0 / 6.0},
		{RepetitionScore, 2.0 / 6.0},
		{NegationFreq, 2.0 / 6.0},
		{CertaintyFreq, 2.0 / 6.0},
		{QuestionRatio, 1.0},
		{FirstPersonDensity, 2.0 / 6.0},
	}
	for _, tt := range tests {
		if math.Abs(got[tt.key]-tt.want) > 1e-9 {
			t.Errorf("%s = %f, want %f", tt.key, got[tt.key], tt.want)
		}
	}
}
