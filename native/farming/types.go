package farming

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

const (
	// Precision scales AccRewardPerShare so integer division keeps twelve
	// decimal places of reward-per-stake resolution.
	Precision = 1_000_000_000_000
	// RatioBase is the denominator for every fee and split ratio.
	RatioBase = 1000
)

// NativeAsset is the sentinel identifier for the chain's native currency.
// Pools and fee schedules use it in place of a token address.
var NativeAsset = common.Address{}

// Pool is one reward-distribution unit tied to a deposit asset and a time
// window. Accrual only happens while StartTime <= clock < EndTime.
type Pool struct {
	ID           uint64
	DepositAsset common.Address

	TotalDeposited *uint256.Int
	RewardPerBlock *uint256.Int

	StartTime   uint64
	EndTime     uint64
	LastAccrual uint64

	// AccRewardPerShare is the cumulative reward per deposited unit scaled
	// by Precision. Monotonically non-decreasing.
	AccRewardPerShare *uint256.Int
	// TotalRewarded counts every reward unit ever paid out of this pool,
	// to users and split beneficiaries alike. Audit counter only.
	TotalRewarded *uint256.Int

	// DepositFee is charged on every deposit call, in DepositFeeAsset.
	DepositFee      *uint256.Int
	DepositFeeAsset common.Address
	// HarvestFeeRatio is charged on harvested rewards, parts per RatioBase,
	// sized through the oracle in HarvestFeeAsset.
	HarvestFeeRatio uint64
	HarvestFeeAsset common.Address
}

func (p *Pool) normalize() {
	p.TotalDeposited = zeroIfNil(p.TotalDeposited)
	p.RewardPerBlock = zeroIfNil(p.RewardPerBlock)
	p.AccRewardPerShare = zeroIfNil(p.AccRewardPerShare)
	p.TotalRewarded = zeroIfNil(p.TotalRewarded)
	p.DepositFee = zeroIfNil(p.DepositFee)
}

// Clone returns a deep copy to protect stored pools from caller mutation.
func (p *Pool) Clone() *Pool {
	if p == nil {
		return nil
	}
	clone := *p
	clone.TotalDeposited = cloneAmount(p.TotalDeposited)
	clone.RewardPerBlock = cloneAmount(p.RewardPerBlock)
	clone.AccRewardPerShare = cloneAmount(p.AccRewardPerShare)
	clone.TotalRewarded = cloneAmount(p.TotalRewarded)
	clone.DepositFee = cloneAmount(p.DepositFee)
	return &clone
}

// Active reports whether the pool accepts deposits at the given clock value.
func (p *Pool) Active(now uint64) bool {
	return now >= p.StartTime && now < p.EndTime
}

// Ended reports whether the pool window has closed. Ended pools block new
// deposits but never withdrawals.
func (p *Pool) Ended(now uint64) bool {
	return now >= p.EndTime
}

// Position is the per (pool, user) stake record, created lazily on first
// deposit and kept as a zero record after full withdrawal.
type Position struct {
	Address   common.Address
	Deposited *uint256.Int
	// RewardDebt checkpoints Deposited * AccRewardPerShare / Precision as
	// of the last settlement; pending rewards are measured against it.
	RewardDebt *uint256.Int
}

func (u *Position) normalize() {
	u.Deposited = zeroIfNil(u.Deposited)
	u.RewardDebt = zeroIfNil(u.RewardDebt)
}

// Clone returns a deep copy of the position.
func (u *Position) Clone() *Position {
	if u == nil {
		return nil
	}
	clone := *u
	clone.Deposited = cloneAmount(u.Deposited)
	clone.RewardDebt = cloneAmount(u.RewardDebt)
	return &clone
}
