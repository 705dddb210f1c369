package farming

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"farmchain/core/types"
	nativecommon "farmchain/native/common"
)

// ModuleName keys the engine in the host's pause view.
const ModuleName = "farming"

// Token is the asset-transfer collaborator. Implementations may signal
// failure either through the error or through a false success flag; the
// engine treats both as a hard error for the enclosing operation.
type Token interface {
	BalanceOf(account common.Address) (*uint256.Int, error)
	// Transfer moves value out of the module vault.
	Transfer(to common.Address, amount *uint256.Int) (bool, error)
	TransferFrom(from, to common.Address, amount *uint256.Int) (bool, error)
}

// TokenRegistry resolves an asset identifier to its transfer collaborator.
// The native sentinel resolves to the native-currency ledger.
type TokenRegistry interface {
	Token(asset common.Address) (Token, error)
}

// RateConverter is the price-oracle collaborator used to size harvest fees.
// A nil converter disables harvest fees entirely.
type RateConverter interface {
	Convert(base, quote common.Address, amount *uint256.Int) (*uint256.Int, error)
}

type engineState interface {
	GlobalConfig() (*GlobalConfig, error)
	SetGlobalConfig(cfg *GlobalConfig) error
	PoolCount() (uint64, error)
	GetPool(id uint64) (*Pool, error)
	PutPool(pool *Pool) error
	GetPosition(poolID uint64, addr common.Address) (*Position, error)
	PutPosition(poolID uint64, position *Position) error
	AppendEvent(evt *types.Event)
}

// Engine orchestrates the staking ledger: pool accrual, lazy per-user
// settlement and fee routing. All state-changing operations follow the same
// ordering: accrue the pool index, settle the caller against the old
// reward-debt baseline, mutate balances, then recompute the baseline.
type Engine struct {
	state     engineState
	tokens    TokenRegistry
	converter RateConverter
	vault     common.Address
	now       uint64
	guard     *nativecommon.ReentrancyGuard
	pauses    nativecommon.PauseView
}

// NewEngine constructs an engine whose deposits and reward budget are held
// by the given vault account.
func NewEngine(vault common.Address) *Engine {
	return &Engine{vault: vault, guard: &nativecommon.ReentrancyGuard{}}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetTokens wires the asset-transfer collaborators.
func (e *Engine) SetTokens(tokens TokenRegistry) { e.tokens = tokens }

// SetConverter wires the price oracle used for harvest fee sizing. Passing
// nil disables harvest fees.
func (e *Engine) SetConverter(converter RateConverter) { e.converter = converter }

// SetPauses wires the module pause view consulted on every operation.
func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// SetClock records the externally supplied integer clock. The clock never
// moves backwards; stale values are ignored.
func (e *Engine) SetClock(now uint64) {
	if e == nil {
		return
	}
	if now > e.now {
		e.now = now
	}
}

// Clock returns the engine's current clock value.
func (e *Engine) Clock() uint64 {
	if e == nil {
		return 0
	}
	return e.now
}

// Vault returns the module account holding deposits and the reward budget.
func (e *Engine) Vault() common.Address {
	if e == nil {
		return common.Address{}
	}
	return e.vault
}

func (e *Engine) enter() (func(), error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if e.tokens == nil {
		return nil, errNilTokens
	}
	if err := nativecommon.Guard(e.pauses, ModuleName); err != nil {
		return nil, err
	}
	return e.guard.Enter()
}

func (e *Engine) loadConfig() (*GlobalConfig, error) {
	cfg, err := e.state.GlobalConfig()
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, errNilConfig
	}
	return cfg, nil
}

func (e *Engine) loadPool(id uint64) (*Pool, error) {
	pool, err := e.state.GetPool(id)
	if err != nil {
		return nil, err
	}
	if pool == nil {
		return nil, errUnknownPool
	}
	pool.normalize()
	return pool, nil
}

func (e *Engine) loadPosition(poolID uint64, addr common.Address) (*Position, error) {
	position, err := e.state.GetPosition(poolID, addr)
	if err != nil {
		return nil, err
	}
	if position == nil {
		position = &Position{Address: addr}
	}
	position.normalize()
	return position, nil
}

func (e *Engine) token(asset common.Address) (Token, error) {
	return e.tokens.Token(asset)
}

func (e *Engine) transferFrom(asset common.Address, from, to common.Address, amount *uint256.Int) error {
	if amount.IsZero() {
		return nil
	}
	token, err := e.token(asset)
	if err != nil {
		return err
	}
	ok, err := token.TransferFrom(from, to, amount)
	if err != nil {
		return err
	}
	if !ok {
		return errTransferRejected
	}
	return nil
}

func (e *Engine) vaultTransfer(asset common.Address, to common.Address, amount *uint256.Int) error {
	if amount.IsZero() {
		return nil
	}
	token, err := e.token(asset)
	if err != nil {
		return err
	}
	ok, err := token.Transfer(to, amount)
	if err != nil {
		return err
	}
	if !ok {
		return errTransferRejected
	}
	return nil
}

// fundsCheck accumulates the total a caller must hold per asset so every
// balance requirement is verified before the first transfer runs.
type fundsCheck struct {
	assets []common.Address
	totals []*uint256.Int
}

func (f *fundsCheck) add(asset common.Address, amount *uint256.Int) error {
	if amount.IsZero() {
		return nil
	}
	for i, existing := range f.assets {
		if existing == asset {
			total, err := checkedAdd(f.totals[i], amount)
			if err != nil {
				return err
			}
			f.totals[i] = total
			return nil
		}
	}
	f.assets = append(f.assets, asset)
	f.totals = append(f.totals, amount.Clone())
	return nil
}

func (e *Engine) verifyFunds(caller common.Address, f *fundsCheck) error {
	for i, asset := range f.assets {
		token, err := e.token(asset)
		if err != nil {
			return err
		}
		balance, err := token.BalanceOf(caller)
		if err != nil {
			return err
		}
		if balance.Cmp(f.totals[i]) < 0 {
			return errInsufficientFunds
		}
	}
	return nil
}

// accrualOutcome captures the effect one accrual pass would have on a pool
// without mutating it. A nil outcome means the pass is a no-op.
type accrualOutcome struct {
	lastAccrual       uint64
	accRewardPerShare *uint256.Int
	gross             *uint256.Int
	distributable     *uint256.Int
	devCuts           [3]*uint256.Int
}

// projectAccrual is the single pure accrual formula shared by the mutating
// accrue path and the read-only PendingReward projection.
func projectAccrual(pool *Pool, cfg *GlobalConfig, now uint64) (*accrualOutcome, error) {
	if now <= pool.LastAccrual || now < pool.StartTime || pool.LastAccrual >= pool.EndTime {
		return nil, nil
	}
	from := pool.LastAccrual
	if pool.StartTime > from {
		from = pool.StartTime
	}
	to := now
	if pool.EndTime < to {
		to = pool.EndTime
	}
	if to <= from {
		return nil, nil
	}

	out := &accrualOutcome{
		lastAccrual:       to,
		accRewardPerShare: cloneAmount(pool.AccRewardPerShare),
		gross:             uint256.NewInt(0),
		distributable:     uint256.NewInt(0),
	}
	for i := range out.devCuts {
		out.devCuts[i] = uint256.NewInt(0)
	}

	// Rewards over an empty interval are never minted; the window simply
	// advances past them.
	if pool.TotalDeposited.IsZero() {
		return out, nil
	}

	gross, err := checkedMul(uint256.NewInt(to-from), pool.RewardPerBlock)
	if err != nil {
		return nil, err
	}
	if gross.IsZero() {
		return out, nil
	}
	out.gross = gross

	for i, cut := range cfg.RewardCuts {
		share, err := mulRatio(gross, cut.Ratio)
		if err != nil {
			return nil, err
		}
		out.devCuts[i] = share
	}

	distributable, err := mulRatio(gross, cfg.MintRatio)
	if err != nil {
		return nil, err
	}
	out.distributable = distributable
	if !distributable.IsZero() {
		scaled, err := checkedMul(distributable, uint256.NewInt(Precision))
		if err != nil {
			return nil, err
		}
		perShare, err := checkedDiv(scaled, pool.TotalDeposited)
		if err != nil {
			return nil, err
		}
		acc, err := checkedAdd(out.accRewardPerShare, perShare)
		if err != nil {
			return nil, err
		}
		out.accRewardPerShare = acc
	}
	return out, nil
}

// accrue brings the pool index up to the engine clock and pays the reward
// cuts out of the vault. Calling it again at the same clock value is a
// no-op, so the pass is idempotent.
func (e *Engine) accrue(pool *Pool, cfg *GlobalConfig) error {
	out, err := projectAccrual(pool, cfg, e.now)
	if err != nil || out == nil {
		return err
	}

	if !out.gross.IsZero() {
		reward, err := e.token(cfg.RewardAsset)
		if err != nil {
			return err
		}
		available, err := reward.BalanceOf(e.vault)
		if err != nil {
			return err
		}
		available = available.Clone()
		for i, cut := range out.devCuts {
			if cut.IsZero() {
				continue
			}
			// The vault never pays out more than it holds; cuts are
			// short-paid when the reward budget runs dry.
			pay := minAmount(cut, available)
			if pay.IsZero() {
				continue
			}
			if err := e.vaultTransfer(cfg.RewardAsset, cfg.RewardCuts[i].Address, pay); err != nil {
				return err
			}
			available, err = checkedSub(available, pay)
			if err != nil {
				return err
			}
			total, err := checkedAdd(pool.TotalRewarded, pay)
			if err != nil {
				return err
			}
			pool.TotalRewarded = total
		}
	}

	pool.AccRewardPerShare = out.accRewardPerShare
	pool.LastAccrual = out.lastAccrual
	return nil
}

// positionValue is Deposited * AccRewardPerShare / Precision, the running
// total a position has earned since inception.
func positionValue(pool *Pool, position *Position) (*uint256.Int, error) {
	scaled, err := checkedMul(position.Deposited, pool.AccRewardPerShare)
	if err != nil {
		return nil, err
	}
	return checkedDiv(scaled, uint256.NewInt(Precision))
}

// settle computes the caller's pending reward against the old baseline. It
// never updates RewardDebt; callers do that only after mutating the stake
// so the new baseline reflects the new amount.
func settle(pool *Pool, position *Position) (*uint256.Int, error) {
	value, err := positionValue(pool, position)
	if err != nil {
		return nil, err
	}
	if position.RewardDebt.Cmp(value) > 0 {
		return nil, errRewardDebt
	}
	return checkedSub(value, position.RewardDebt)
}

// payReward transfers up to pending reward units from the vault, capped at
// the vault's actual reward balance, and returns what was actually paid.
func (e *Engine) payReward(cfg *GlobalConfig, pool *Pool, to common.Address, pending *uint256.Int) (*uint256.Int, error) {
	if pending.IsZero() {
		return uint256.NewInt(0), nil
	}
	reward, err := e.token(cfg.RewardAsset)
	if err != nil {
		return nil, err
	}
	available, err := reward.BalanceOf(e.vault)
	if err != nil {
		return nil, err
	}
	pay := minAmount(pending, available).Clone()
	if pay.IsZero() {
		return pay, nil
	}
	if err := e.vaultTransfer(cfg.RewardAsset, to, pay); err != nil {
		return nil, err
	}
	total, err := checkedAdd(pool.TotalRewarded, pay)
	if err != nil {
		return nil, err
	}
	pool.TotalRewarded = total
	return pay, nil
}

// harvestFee sizes the fee charged on a pending reward amount through the
// oracle collaborator. Without an oracle the fee is always zero.
func (e *Engine) harvestFee(cfg *GlobalConfig, pool *Pool, pending *uint256.Int) (*uint256.Int, error) {
	if e.converter == nil || pool.HarvestFeeRatio == 0 || pending.IsZero() {
		return uint256.NewInt(0), nil
	}
	converted, err := e.converter.Convert(cfg.RewardAsset, pool.HarvestFeeAsset, pending)
	if err != nil {
		return nil, err
	}
	return mulRatio(converted, pool.HarvestFeeRatio)
}

// chargeDepositFee splits the pool's deposit fee across the three fee
// beneficiaries, pulling each share from the caller.
func (e *Engine) chargeDepositFee(cfg *GlobalConfig, pool *Pool, caller common.Address) error {
	if pool.DepositFee.IsZero() {
		return nil
	}
	dev1, dev2, dev3, err := SplitFee(pool.DepositFee)
	if err != nil {
		return err
	}
	shares := [3]*uint256.Int{dev1, dev2, dev3}
	for i, share := range shares {
		if err := e.transferFrom(pool.DepositFeeAsset, caller, cfg.FeeBeneficiaries[i], share); err != nil {
			return err
		}
	}
	return nil
}

// Deposit stakes amount into the pool, charging the deposit fee and paying
// out any pending reward first. For native flows attachedValue must match
// the native value the call requires exactly.
func (e *Engine) Deposit(caller common.Address, poolID uint64, amount, attachedValue *uint256.Int) error {
	release, err := e.enter()
	if err != nil {
		return err
	}
	defer release()

	amount = zeroIfNil(amount)
	attachedValue = zeroIfNil(attachedValue)
	if amount.IsZero() {
		return errInvalidAmount
	}

	cfg, err := e.loadConfig()
	if err != nil {
		return err
	}
	pool, err := e.loadPool(poolID)
	if err != nil {
		return err
	}
	if !pool.Active(e.now) {
		return errPoolNotActive
	}
	position, err := e.loadPosition(poolID, caller)
	if err != nil {
		return err
	}

	required := uint256.NewInt(0)
	if pool.DepositAsset == NativeAsset {
		if required, err = checkedAdd(required, amount); err != nil {
			return err
		}
	}
	if !pool.DepositFee.IsZero() && pool.DepositFeeAsset == NativeAsset {
		if required, err = checkedAdd(required, pool.DepositFee); err != nil {
			return err
		}
	}
	if attachedValue.Cmp(required) != 0 {
		return errAttachedValue
	}

	funds := &fundsCheck{}
	if err := funds.add(pool.DepositAsset, amount); err != nil {
		return err
	}
	if err := funds.add(pool.DepositFeeAsset, pool.DepositFee); err != nil {
		return err
	}
	if err := e.verifyFunds(caller, funds); err != nil {
		return err
	}

	if err := e.chargeDepositFee(cfg, pool, caller); err != nil {
		return err
	}
	if err := e.accrue(pool, cfg); err != nil {
		return err
	}
	pending, err := settle(pool, position)
	if err != nil {
		return err
	}
	if err := e.transferFrom(pool.DepositAsset, caller, e.vault, amount); err != nil {
		return err
	}
	// Deposit always harvests first; the settled reward is paid out before
	// the stake changes, without a harvest fee.
	paid, err := e.payReward(cfg, pool, caller, pending)
	if err != nil {
		return err
	}

	if pool.TotalDeposited, err = checkedAdd(pool.TotalDeposited, amount); err != nil {
		return err
	}
	if position.Deposited, err = checkedAdd(position.Deposited, amount); err != nil {
		return err
	}
	if position.RewardDebt, err = positionValue(pool, position); err != nil {
		return err
	}

	if err := e.state.PutPosition(poolID, position); err != nil {
		return err
	}
	if err := e.state.PutPool(pool); err != nil {
		return err
	}
	e.state.AppendEvent(NewDepositedEvent(pool, caller, amount, pool.DepositFee, paid))
	return nil
}

// Withdraw removes amount of stake after settling rewards. Withdrawals stay
// open after the pool window ends.
func (e *Engine) Withdraw(caller common.Address, poolID uint64, amount *uint256.Int) error {
	release, err := e.enter()
	if err != nil {
		return err
	}
	defer release()

	amount = zeroIfNil(amount)
	if amount.IsZero() {
		return errInvalidAmount
	}

	cfg, err := e.loadConfig()
	if err != nil {
		return err
	}
	pool, err := e.loadPool(poolID)
	if err != nil {
		return err
	}
	if e.now < pool.StartTime {
		return errPoolNotStarted
	}
	position, err := e.loadPosition(poolID, caller)
	if err != nil {
		return err
	}
	if amount.Cmp(position.Deposited) > 0 {
		return errExceedsStake
	}

	if err := e.accrue(pool, cfg); err != nil {
		return err
	}
	pending, err := settle(pool, position)
	if err != nil {
		return err
	}
	paid, err := e.payReward(cfg, pool, caller, pending)
	if err != nil {
		return err
	}

	if pool.TotalDeposited, err = checkedSub(pool.TotalDeposited, amount); err != nil {
		return err
	}
	if position.Deposited, err = checkedSub(position.Deposited, amount); err != nil {
		return err
	}
	if err := e.vaultTransfer(pool.DepositAsset, caller, amount); err != nil {
		return err
	}
	if position.RewardDebt, err = positionValue(pool, position); err != nil {
		return err
	}

	if err := e.state.PutPosition(poolID, position); err != nil {
		return err
	}
	if err := e.state.PutPool(pool); err != nil {
		return err
	}
	e.state.AppendEvent(NewWithdrawnEvent(pool, caller, amount, paid))
	return nil
}

// Harvest pays out the caller's pending reward, charging the oracle-sized
// harvest fee. Returns whether any reward was actually paid; payouts are
// capped at the vault's reward balance and short-paid silently.
func (e *Engine) Harvest(caller common.Address, poolID uint64, attachedValue *uint256.Int) (bool, error) {
	release, err := e.enter()
	if err != nil {
		return false, err
	}
	defer release()

	attachedValue = zeroIfNil(attachedValue)

	cfg, err := e.loadConfig()
	if err != nil {
		return false, err
	}
	pool, err := e.loadPool(poolID)
	if err != nil {
		return false, err
	}
	position, err := e.loadPosition(poolID, caller)
	if err != nil {
		return false, err
	}

	if err := e.accrue(pool, cfg); err != nil {
		return false, err
	}
	pending, err := settle(pool, position)
	if err != nil {
		return false, err
	}

	fee, err := e.harvestFee(cfg, pool, pending)
	if err != nil {
		return false, err
	}
	required := uint256.NewInt(0)
	if !fee.IsZero() && pool.HarvestFeeAsset == NativeAsset {
		required = fee
	}
	if attachedValue.Cmp(required) != 0 {
		return false, errAttachedValue
	}
	if !fee.IsZero() {
		funds := &fundsCheck{}
		if err := funds.add(pool.HarvestFeeAsset, fee); err != nil {
			return false, err
		}
		if err := e.verifyFunds(caller, funds); err != nil {
			return false, err
		}
		buyback, dev1, dev2, dev3, err := SplitHarvestFee(fee, cfg.HarvestBuybackRatio)
		if err != nil {
			return false, err
		}
		if err := e.transferFrom(pool.HarvestFeeAsset, caller, cfg.BuybackAddress, buyback); err != nil {
			return false, err
		}
		shares := [3]*uint256.Int{dev1, dev2, dev3}
		for i, share := range shares {
			if err := e.transferFrom(pool.HarvestFeeAsset, caller, cfg.FeeBeneficiaries[i], share); err != nil {
				return false, err
			}
		}
	}

	paid, err := e.payReward(cfg, pool, caller, pending)
	if err != nil {
		return false, err
	}
	if position.RewardDebt, err = positionValue(pool, position); err != nil {
		return false, err
	}

	if err := e.state.PutPosition(poolID, position); err != nil {
		return false, err
	}
	if err := e.state.PutPool(pool); err != nil {
		return false, err
	}
	e.state.AppendEvent(NewHarvestedEvent(pool, caller, paid, fee))
	return !paid.IsZero(), nil
}

// EmergencyWithdraw returns the caller's full stake without touching the
// accrual index, forfeiting any pending reward. No fee is charged.
func (e *Engine) EmergencyWithdraw(caller common.Address, poolID uint64) (*uint256.Int, error) {
	release, err := e.enter()
	if err != nil {
		return nil, err
	}
	defer release()

	pool, err := e.loadPool(poolID)
	if err != nil {
		return nil, err
	}
	position, err := e.loadPosition(poolID, caller)
	if err != nil {
		return nil, err
	}
	amount := position.Deposited.Clone()
	if amount.IsZero() {
		return nil, errNothingDeposited
	}

	if pool.TotalDeposited, err = checkedSub(pool.TotalDeposited, amount); err != nil {
		return nil, err
	}
	if err := e.vaultTransfer(pool.DepositAsset, caller, amount); err != nil {
		return nil, err
	}
	position.Deposited = uint256.NewInt(0)
	position.RewardDebt = uint256.NewInt(0)

	if err := e.state.PutPosition(poolID, position); err != nil {
		return nil, err
	}
	if err := e.state.PutPool(pool); err != nil {
		return nil, err
	}
	e.state.AppendEvent(NewEmergencyWithdrawnEvent(pool, caller, amount))
	return amount, nil
}

// PendingReward is the read-only projection of what a harvest would pay and
// the fee it would charge, at the engine's current clock.
type PendingReward struct {
	Amount          *uint256.Int
	HarvestFee      *uint256.Int
	HarvestFeeAsset common.Address
}

// PendingReward projects the pool index forward without persisting it and
// reports the caller's claimable reward.
func (e *Engine) PendingReward(poolID uint64, addr common.Address) (*PendingReward, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	pool, err := e.loadPool(poolID)
	if err != nil {
		return nil, err
	}
	position, err := e.loadPosition(poolID, addr)
	if err != nil {
		return nil, err
	}

	out, err := projectAccrual(pool, cfg, e.now)
	if err != nil {
		return nil, err
	}
	if out != nil {
		pool.AccRewardPerShare = out.accRewardPerShare
	}
	pending, err := settle(pool, position)
	if err != nil {
		return nil, err
	}
	fee, err := e.harvestFee(cfg, pool, pending)
	if err != nil {
		return nil, err
	}
	return &PendingReward{
		Amount:          pending,
		HarvestFee:      fee,
		HarvestFeeAsset: pool.HarvestFeeAsset,
	}, nil
}
