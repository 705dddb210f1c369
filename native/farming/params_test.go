package farming

import (
	"errors"
	"math"
	"testing"
)

func TestGlobalConfigValidate(t *testing.T) {
	if err := defaultTestConfig().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cfg := defaultTestConfig()
	cfg.MintRatio = RatioBase + 1
	if err := cfg.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("mint ratio over base accepted: %v", err)
	}

	cfg = defaultTestConfig()
	cfg.RewardCuts[0] = RewardCut{Address: testDev1, Ratio: 600}
	cfg.RewardCuts[1] = RewardCut{Address: testDev2, Ratio: 600}
	if err := cfg.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("cut total at base accepted: %v", err)
	}
}

func TestGlobalConfigValidateHarvestSplitBounds(t *testing.T) {
	cases := []struct {
		name    string
		buyback uint64
		dev     uint64
		ok      bool
	}{
		{"exact", 750, 250, true},
		{"all buyback", RatioBase, 0, true},
		{"short sum", 600, 300, false},
		{"over sum", 600, 500, false},
		{"buyback over base", RatioBase + 1, 0, false},
		{"wrapped sum", math.MaxUint64, RatioBase + 1, false},
		{"wrapped dev", RatioBase + 1, math.MaxUint64, false},
	}
	for _, tc := range cases {
		cfg := defaultTestConfig()
		cfg.HarvestBuybackRatio = tc.buyback
		cfg.HarvestDevRatio = tc.dev
		err := cfg.Validate()
		if tc.ok && err != nil {
			t.Fatalf("%s: valid split rejected: %v", tc.name, err)
		}
		if !tc.ok && !errors.Is(err, ErrValidation) {
			t.Fatalf("%s: split %d/%d accepted: %v", tc.name, tc.buyback, tc.dev, err)
		}
	}
}
