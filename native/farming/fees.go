package farming

import "github.com/holiman/uint256"

// SplitFee divides a fee across the three developer beneficiaries using the
// fixed 44/40/16 schedule. The last share is total minus the first two, so
// the three shares always sum to the input exactly regardless of rounding.
func SplitFee(fee *uint256.Int) (dev1, dev2, dev3 *uint256.Int, err error) {
	fee = zeroIfNil(fee)
	dev1, err = mulRatio(fee, devSplitRatio1)
	if err != nil {
		return nil, nil, nil, err
	}
	dev2, err = mulRatio(fee, devSplitRatio2)
	if err != nil {
		return nil, nil, nil, err
	}
	rest, err := checkedSub(fee, dev1)
	if err != nil {
		return nil, nil, nil, err
	}
	dev3, err = checkedSub(rest, dev2)
	if err != nil {
		return nil, nil, nil, err
	}
	return dev1, dev2, dev3, nil
}

// SplitHarvestFee divides a harvest fee into the buy-back share and the
// three developer shares. The developer bucket is the remainder of the
// two-way split and is then subdivided with SplitFee, so the four shares
// conserve the fee exactly.
func SplitHarvestFee(fee *uint256.Int, buybackRatio uint64) (buyback, dev1, dev2, dev3 *uint256.Int, err error) {
	fee = zeroIfNil(fee)
	buyback, err = mulRatio(fee, buybackRatio)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	devBucket, err := checkedSub(fee, buyback)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	dev1, dev2, dev3, err = SplitFee(devBucket)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	return buyback, dev1, dev2, dev3, nil
}
