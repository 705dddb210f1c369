package farming

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// PoolSpec carries the full schedule for a new pool.
type PoolSpec struct {
	DepositAsset   common.Address
	RewardPerBlock *uint256.Int
	StartTime      uint64
	EndTime        uint64

	DepositFee      *uint256.Int
	DepositFeeAsset common.Address
	HarvestFeeRatio uint64
	HarvestFeeAsset common.Address
}

// PoolFeeUpdate replaces a pool's fee schedule wholesale. Zero values clear
// the corresponding fee.
type PoolFeeUpdate struct {
	DepositFee      *uint256.Int
	DepositFeeAsset common.Address
	HarvestFeeRatio uint64
	HarvestFeeAsset common.Address
}

func (e *Engine) requireAdmin(caller common.Address) (*GlobalConfig, error) {
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	if caller == (common.Address{}) || caller != cfg.Admin {
		return nil, errNotAdmin
	}
	return cfg, nil
}

// CreatePool registers a new reward pool and returns its identifier. The
// window is validated but may lie entirely in the future or already be in
// progress; accrual clamps to it either way.
func (e *Engine) CreatePool(caller common.Address, spec PoolSpec) (uint64, error) {
	release, err := e.enter()
	if err != nil {
		return 0, err
	}
	defer release()

	if _, err := e.requireAdmin(caller); err != nil {
		return 0, err
	}
	rate := zeroIfNil(spec.RewardPerBlock)
	if rate.IsZero() {
		return 0, errZeroRate
	}
	if spec.StartTime >= spec.EndTime {
		return 0, errWindowOrder
	}
	if spec.HarvestFeeRatio > RatioBase {
		return 0, errRatioRange
	}

	id, err := e.state.PoolCount()
	if err != nil {
		return 0, err
	}
	pool := &Pool{
		ID:              id,
		DepositAsset:    spec.DepositAsset,
		RewardPerBlock:  rate.Clone(),
		StartTime:       spec.StartTime,
		EndTime:         spec.EndTime,
		LastAccrual:     spec.StartTime,
		DepositFee:      cloneAmount(spec.DepositFee),
		DepositFeeAsset: spec.DepositFeeAsset,
		HarvestFeeRatio: spec.HarvestFeeRatio,
		HarvestFeeAsset: spec.HarvestFeeAsset,
	}
	pool.normalize()
	if err := e.state.PutPool(pool); err != nil {
		return 0, err
	}
	e.state.AppendEvent(NewPoolCreatedEvent(pool))
	return id, nil
}

// UpdatePoolSchedule rewrites a pool's reward rate and window. The pool is
// accrued under the old schedule first so past intervals keep their rate.
func (e *Engine) UpdatePoolSchedule(caller common.Address, poolID uint64, rewardPerBlock *uint256.Int, start, end uint64) error {
	release, err := e.enter()
	if err != nil {
		return err
	}
	defer release()

	cfg, err := e.requireAdmin(caller)
	if err != nil {
		return err
	}
	rate := zeroIfNil(rewardPerBlock)
	if rate.IsZero() {
		return errZeroRate
	}
	if start >= end {
		return errWindowOrder
	}
	pool, err := e.loadPool(poolID)
	if err != nil {
		return err
	}
	if err := e.accrue(pool, cfg); err != nil {
		return err
	}
	pool.RewardPerBlock = rate.Clone()
	pool.StartTime = start
	pool.EndTime = end
	if pool.LastAccrual < start {
		pool.LastAccrual = start
	}
	if err := e.state.PutPool(pool); err != nil {
		return err
	}
	e.state.AppendEvent(NewScheduleUpdatedEvent(pool))
	return nil
}

// SetPoolFees replaces the pool's deposit and harvest fee schedule. The pool
// is accrued first so the change only affects future activity.
func (e *Engine) SetPoolFees(caller common.Address, poolID uint64, update PoolFeeUpdate) error {
	release, err := e.enter()
	if err != nil {
		return err
	}
	defer release()

	cfg, err := e.requireAdmin(caller)
	if err != nil {
		return err
	}
	if update.HarvestFeeRatio > RatioBase {
		return errRatioRange
	}
	pool, err := e.loadPool(poolID)
	if err != nil {
		return err
	}
	if err := e.accrue(pool, cfg); err != nil {
		return err
	}
	pool.DepositFee = cloneAmount(update.DepositFee)
	pool.DepositFeeAsset = update.DepositFeeAsset
	pool.HarvestFeeRatio = update.HarvestFeeRatio
	pool.HarvestFeeAsset = update.HarvestFeeAsset
	if err := e.state.PutPool(pool); err != nil {
		return err
	}
	e.state.AppendEvent(NewFeesUpdatedEvent(pool))
	return nil
}

// closePool settles the pool and shrinks its window so no further reward
// accrues. Pools that never started are frozen at a window no clock value
// can enter.
func (e *Engine) closePool(cfg *GlobalConfig, pool *Pool) error {
	if pool.Ended(e.now) {
		return errPoolNotActive
	}
	if err := e.accrue(pool, cfg); err != nil {
		return err
	}
	if e.now > pool.StartTime {
		pool.EndTime = e.now
	} else {
		pool.EndTime = pool.StartTime + 1
		pool.LastAccrual = pool.EndTime
	}
	return nil
}

// ClosePool ends reward accrual immediately. Deposits stop; withdrawals and
// harvests of already-accrued rewards stay open.
func (e *Engine) ClosePool(caller common.Address, poolID uint64) error {
	release, err := e.enter()
	if err != nil {
		return err
	}
	defer release()

	cfg, err := e.requireAdmin(caller)
	if err != nil {
		return err
	}
	pool, err := e.loadPool(poolID)
	if err != nil {
		return err
	}
	if err := e.closePool(cfg, pool); err != nil {
		return err
	}
	if err := e.state.PutPool(pool); err != nil {
		return err
	}
	e.state.AppendEvent(NewPoolClosedEvent(pool, e.now))
	return nil
}

// MassUpdate accrues every pool to the current clock in one pass. Useful
// before parameter changes that should not retroactively reprice intervals.
func (e *Engine) MassUpdate(caller common.Address) error {
	release, err := e.enter()
	if err != nil {
		return err
	}
	defer release()

	cfg, err := e.requireAdmin(caller)
	if err != nil {
		return err
	}
	count, err := e.state.PoolCount()
	if err != nil {
		return err
	}
	for id := uint64(0); id < count; id++ {
		pool, err := e.loadPool(id)
		if err != nil {
			return err
		}
		if err := e.accrue(pool, cfg); err != nil {
			return err
		}
		if err := e.state.PutPool(pool); err != nil {
			return err
		}
	}
	return nil
}

// AddReward spreads an additional reward budget over the pool's remaining
// window, raising RewardPerBlock by amount divided by the remaining span.
// When source is non-zero the budget is pulled from it into the vault;
// otherwise the vault is assumed to be funded out of band. Returns the rate
// increase.
func (e *Engine) AddReward(caller common.Address, poolID uint64, amount *uint256.Int, source common.Address) (*uint256.Int, error) {
	release, err := e.enter()
	if err != nil {
		return nil, err
	}
	defer release()

	cfg, err := e.requireAdmin(caller)
	if err != nil {
		return nil, err
	}
	amount = zeroIfNil(amount)
	if amount.IsZero() {
		return nil, errInvalidAmount
	}
	pool, err := e.loadPool(poolID)
	if err != nil {
		return nil, err
	}
	if pool.Ended(e.now) {
		return nil, errPoolNotActive
	}
	if err := e.accrue(pool, cfg); err != nil {
		return nil, err
	}

	from := e.now
	if pool.StartTime > from {
		from = pool.StartTime
	}
	span := uint64(1)
	if pool.EndTime > from {
		span = pool.EndTime - from
	}
	delta, err := checkedDiv(amount, uint256.NewInt(span))
	if err != nil {
		return nil, err
	}
	if delta.IsZero() {
		return nil, errInvalidAmount
	}
	if pool.RewardPerBlock, err = checkedAdd(pool.RewardPerBlock, delta); err != nil {
		return nil, err
	}
	if source != (common.Address{}) {
		if err := e.transferFrom(cfg.RewardAsset, source, e.vault, amount); err != nil {
			return nil, err
		}
	}
	if err := e.state.PutPool(pool); err != nil {
		return nil, err
	}
	e.state.AppendEvent(NewRewardAddedEvent(pool, delta, amount))
	return delta, nil
}

// EmergencyStop closes every open pool at the current clock and sweeps the
// vault's remaining reward balance to the target account. Principal stays
// in the vault for withdrawal.
func (e *Engine) EmergencyStop(caller common.Address, target common.Address) (*uint256.Int, error) {
	release, err := e.enter()
	if err != nil {
		return nil, err
	}
	defer release()

	cfg, err := e.requireAdmin(caller)
	if err != nil {
		return nil, err
	}
	if target == (common.Address{}) {
		return nil, errZeroAddress
	}
	count, err := e.state.PoolCount()
	if err != nil {
		return nil, err
	}
	for id := uint64(0); id < count; id++ {
		pool, err := e.loadPool(id)
		if err != nil {
			return nil, err
		}
		if pool.Ended(e.now) {
			continue
		}
		if err := e.closePool(cfg, pool); err != nil {
			return nil, err
		}
		if err := e.state.PutPool(pool); err != nil {
			return nil, err
		}
		e.state.AppendEvent(NewPoolClosedEvent(pool, e.now))
	}

	reward, err := e.token(cfg.RewardAsset)
	if err != nil {
		return nil, err
	}
	balance, err := reward.BalanceOf(e.vault)
	if err != nil {
		return nil, err
	}
	swept := balance.Clone()
	if err := e.vaultTransfer(cfg.RewardAsset, target, swept); err != nil {
		return nil, err
	}
	e.state.AppendEvent(NewStoppedEvent(target, swept))
	return swept, nil
}

// SetAdmin hands the administrator role to next. Only the current holder
// may rotate it.
func (e *Engine) SetAdmin(caller, next common.Address) error {
	release, err := e.enter()
	if err != nil {
		return err
	}
	defer release()

	cfg, err := e.requireAdmin(caller)
	if err != nil {
		return err
	}
	if next == (common.Address{}) {
		return errZeroAddress
	}
	previous := cfg.Admin
	cfg.Admin = next
	if err := e.state.SetGlobalConfig(cfg); err != nil {
		return err
	}
	e.state.AppendEvent(NewAdminRotatedEvent(previous, next))
	return nil
}

// SetHarvestSplit replaces the two-way harvest fee split. The ratios must
// sum to exactly RatioBase.
func (e *Engine) SetHarvestSplit(caller common.Address, buybackRatio, devRatio uint64) error {
	release, err := e.enter()
	if err != nil {
		return err
	}
	defer release()

	cfg, err := e.requireAdmin(caller)
	if err != nil {
		return err
	}
	if buybackRatio > RatioBase || devRatio > RatioBase || buybackRatio+devRatio != RatioBase {
		return errHarvestSplit
	}
	cfg.HarvestBuybackRatio = buybackRatio
	cfg.HarvestDevRatio = devRatio
	if err := e.state.SetGlobalConfig(cfg); err != nil {
		return err
	}
	e.state.AppendEvent(NewHarvestSplitSetEvent(buybackRatio, devRatio))
	return nil
}
