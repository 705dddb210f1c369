package farming

import "github.com/ethereum/go-ethereum/common"

// Deposit fees and the developer bucket of harvest fees always split across
// the three developer beneficiaries at 44% / 40% / 16%. The third share is
// derived by subtraction so the split conserves the fee exactly.
const (
	devSplitRatio1 = 440
	devSplitRatio2 = 400
)

// RewardCut routes a fixed fraction of gross block rewards to a beneficiary
// before the remainder is minted into the pool index.
type RewardCut struct {
	Address common.Address
	// Ratio in parts per RatioBase. The three cut ratios must sum to less
	// than RatioBase; the remainder stays with the pool.
	Ratio uint64
}

// GlobalConfig carries the ledger-wide reward and fee schedule plus the
// administrator identity. It is stored in state and mutated only through
// admin operations that take an explicit caller argument.
type GlobalConfig struct {
	Admin       common.Address
	RewardAsset common.Address

	// MintRatio is the RatioBase fraction of gross accrued reward credited
	// to the distributable pool index after the reward cuts are removed.
	MintRatio uint64

	RewardCuts [3]RewardCut

	// FeeBeneficiaries receive deposit fees and the developer bucket of
	// harvest fees, split 44/40/16.
	FeeBeneficiaries [3]common.Address

	// Harvest fees split two ways: BuybackRatio to BuybackAddress, the
	// rest to the developer beneficiaries. The two ratios must sum to
	// exactly RatioBase.
	BuybackAddress      common.Address
	HarvestBuybackRatio uint64
	HarvestDevRatio     uint64
}

// Clone returns a deep copy so stored configuration cannot be mutated
// through shared references.
func (c *GlobalConfig) Clone() *GlobalConfig {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// Validate checks the schedule invariants before the configuration is
// accepted into state.
func (c *GlobalConfig) Validate() error {
	if c == nil {
		return errNilConfig
	}
	if c.Admin == (common.Address{}) {
		return errZeroAddress
	}
	if c.MintRatio == 0 || c.MintRatio > RatioBase {
		return errMintRatioRange
	}
	var cutTotal uint64
	for _, cut := range c.RewardCuts {
		if cut.Ratio > RatioBase {
			return errRatioRange
		}
		cutTotal += cut.Ratio
	}
	if cutTotal >= RatioBase {
		return errRewardCutTotal
	}
	if c.HarvestBuybackRatio > RatioBase || c.HarvestDevRatio > RatioBase {
		return errHarvestSplit
	}
	if c.HarvestBuybackRatio+c.HarvestDevRatio != RatioBase {
		return errHarvestSplit
	}
	return nil
}
