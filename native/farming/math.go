package farming

import "github.com/holiman/uint256"

// Checked arithmetic over unsigned 256-bit amounts. Every value that flows
// through the farming engine passes through these wrappers so overflow,
// underflow and division by zero surface as ErrArithmetic instead of
// wrapping or saturating.

func checkedAdd(a, b *uint256.Int) (*uint256.Int, error) {
	sum, overflow := new(uint256.Int).AddOverflow(a, b)
	if overflow {
		return nil, errAddOverflow
	}
	return sum, nil
}

func checkedSub(a, b *uint256.Int) (*uint256.Int, error) {
	diff, underflow := new(uint256.Int).SubOverflow(a, b)
	if underflow {
		return nil, errSubUnderflow
	}
	return diff, nil
}

func checkedMul(a, b *uint256.Int) (*uint256.Int, error) {
	product, overflow := new(uint256.Int).MulOverflow(a, b)
	if overflow {
		return nil, errMulOverflow
	}
	return product, nil
}

func checkedDiv(a, b *uint256.Int) (*uint256.Int, error) {
	if b.IsZero() {
		return nil, errDivisionByZero
	}
	return new(uint256.Int).Div(a, b), nil
}

func checkedMod(a, b *uint256.Int) (*uint256.Int, error) {
	if b.IsZero() {
		return nil, errDivisionByZero
	}
	return new(uint256.Int).Mod(a, b), nil
}

// mulRatio scales amount by ratio parts per RatioBase, truncating toward
// zero. All fee and split arithmetic funnels through here.
func mulRatio(amount *uint256.Int, ratio uint64) (*uint256.Int, error) {
	scaled, err := checkedMul(amount, uint256.NewInt(ratio))
	if err != nil {
		return nil, err
	}
	return checkedDiv(scaled, uint256.NewInt(RatioBase))
}

func zeroIfNil(v *uint256.Int) *uint256.Int {
	if v == nil {
		return uint256.NewInt(0)
	}
	return v
}

func cloneAmount(v *uint256.Int) *uint256.Int {
	if v == nil {
		return uint256.NewInt(0)
	}
	return v.Clone()
}

func minAmount(a, b *uint256.Int) *uint256.Int {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}
