package farming

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"farmchain/core/types"
)

var (
	testAdmin   = common.Address{0x01}
	testUser    = common.Address{0x02}
	testUserB   = common.Address{0x03}
	testVault   = common.Address{0x0a}
	testReward  = common.Address{0x10}
	testStake   = common.Address{0x11}
	testFeeCoin = common.Address{0x12}
	testDev1    = common.Address{0x21}
	testDev2    = common.Address{0x22}
	testDev3    = common.Address{0x23}
	testBuyback = common.Address{0x24}
)

type testLedger struct {
	balances map[common.Address]map[common.Address]*uint256.Int
}

func newTestLedger() *testLedger {
	return &testLedger{balances: make(map[common.Address]map[common.Address]*uint256.Int)}
}

func (l *testLedger) credit(asset, account common.Address, amount uint64) {
	book := l.balances[asset]
	if book == nil {
		book = make(map[common.Address]*uint256.Int)
		l.balances[asset] = book
	}
	current := book[account]
	if current == nil {
		current = uint256.NewInt(0)
	}
	book[account] = new(uint256.Int).Add(current, uint256.NewInt(amount))
}

func (l *testLedger) balance(asset, account common.Address) *uint256.Int {
	if book := l.balances[asset]; book != nil {
		if v := book[account]; v != nil {
			return v.Clone()
		}
	}
	return uint256.NewInt(0)
}

func (l *testLedger) move(asset, from, to common.Address, amount *uint256.Int) (bool, error) {
	have := l.balance(asset, from)
	if have.Cmp(amount) < 0 {
		return false, nil
	}
	l.balances[asset][from] = new(uint256.Int).Sub(have, amount)
	book := l.balances[asset]
	current := book[to]
	if current == nil {
		current = uint256.NewInt(0)
	}
	book[to] = new(uint256.Int).Add(current, amount)
	return true, nil
}

func (l *testLedger) Token(asset common.Address) (Token, error) {
	return &testToken{ledger: l, asset: asset}, nil
}

type testToken struct {
	ledger *testLedger
	asset  common.Address
}

func (t *testToken) BalanceOf(account common.Address) (*uint256.Int, error) {
	return t.ledger.balance(t.asset, account), nil
}

func (t *testToken) Transfer(to common.Address, amount *uint256.Int) (bool, error) {
	return t.ledger.move(t.asset, testVault, to, amount)
}

func (t *testToken) TransferFrom(from, to common.Address, amount *uint256.Int) (bool, error) {
	return t.ledger.move(t.asset, from, to, amount)
}

type mockEngineState struct {
	cfg       *GlobalConfig
	pools     map[uint64]*Pool
	count     uint64
	positions map[string]*Position
	events    []*types.Event
}

func newMockEngineState(cfg *GlobalConfig) *mockEngineState {
	return &mockEngineState{
		cfg:       cfg.Clone(),
		pools:     make(map[uint64]*Pool),
		positions: make(map[string]*Position),
	}
}

func positionKey(poolID uint64, addr common.Address) string {
	return fmt.Sprintf("%d/%s", poolID, strings.ToLower(addr.Hex()))
}

func (m *mockEngineState) GlobalConfig() (*GlobalConfig, error) { return m.cfg.Clone(), nil }

func (m *mockEngineState) SetGlobalConfig(cfg *GlobalConfig) error {
	m.cfg = cfg.Clone()
	return nil
}

func (m *mockEngineState) PoolCount() (uint64, error) { return m.count, nil }

func (m *mockEngineState) GetPool(id uint64) (*Pool, error) {
	return m.pools[id].Clone(), nil
}

func (m *mockEngineState) PutPool(pool *Pool) error {
	m.pools[pool.ID] = pool.Clone()
	if pool.ID >= m.count {
		m.count = pool.ID + 1
	}
	return nil
}

func (m *mockEngineState) GetPosition(poolID uint64, addr common.Address) (*Position, error) {
	return m.positions[positionKey(poolID, addr)].Clone(), nil
}

func (m *mockEngineState) PutPosition(poolID uint64, position *Position) error {
	m.positions[positionKey(poolID, position.Address)] = position.Clone()
	return nil
}

func (m *mockEngineState) AppendEvent(evt *types.Event) { m.events = append(m.events, evt) }

func (m *mockEngineState) lastEvent() *types.Event {
	if len(m.events) == 0 {
		return nil
	}
	return m.events[len(m.events)-1]
}

func defaultTestConfig() *GlobalConfig {
	return &GlobalConfig{
		Admin:               testAdmin,
		RewardAsset:         testReward,
		MintRatio:           700,
		FeeBeneficiaries:    [3]common.Address{testDev1, testDev2, testDev3},
		BuybackAddress:      testBuyback,
		HarvestBuybackRatio: 750,
		HarvestDevRatio:     250,
	}
}

func newFarmingHarness(t *testing.T, cfg *GlobalConfig) (*Engine, *mockEngineState, *testLedger) {
	t.Helper()
	if cfg == nil {
		cfg = defaultTestConfig()
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config: %v", err)
	}
	state := newMockEngineState(cfg)
	ledger := newTestLedger()
	ledger.credit(testReward, testVault, 1_000_000)
	engine := NewEngine(testVault)
	engine.SetState(state)
	engine.SetTokens(ledger)
	return engine, state, ledger
}

func mustCreatePool(t *testing.T, engine *Engine, spec PoolSpec) uint64 {
	t.Helper()
	id, err := engine.CreatePool(testAdmin, spec)
	if err != nil {
		t.Fatalf("CreatePool: %v", err)
	}
	return id
}

func basicPoolSpec() PoolSpec {
	return PoolSpec{
		DepositAsset:   testStake,
		RewardPerBlock: uint256.NewInt(100),
		StartTime:      0,
		EndTime:        1_000_000,
	}
}

func TestAccrualSingleStaker(t *testing.T) {
	engine, _, ledger := newFarmingHarness(t, nil)
	pool := mustCreatePool(t, engine, basicPoolSpec())
	ledger.credit(testStake, testUser, 1000)

	if err := engine.Deposit(testUser, pool, uint256.NewInt(100), nil); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	engine.SetClock(10)

	pending, err := engine.PendingReward(pool, testUser)
	if err != nil {
		t.Fatalf("PendingReward: %v", err)
	}
	// 10 elapsed * 100 per unit * 700/1000 minted.
	if pending.Amount.Uint64() != 700 {
		t.Fatalf("expected pending 700, got %s", pending.Amount.Dec())
	}

	paid, err := engine.Harvest(testUser, pool, nil)
	if err != nil {
		t.Fatalf("Harvest: %v", err)
	}
	if !paid {
		t.Fatalf("expected reward payout")
	}
	if got := ledger.balance(testReward, testUser); got.Uint64() != 700 {
		t.Fatalf("expected reward balance 700, got %s", got.Dec())
	}

	// Nothing left to claim at the same clock value.
	pending, err = engine.PendingReward(pool, testUser)
	if err != nil {
		t.Fatalf("PendingReward: %v", err)
	}
	if !pending.Amount.IsZero() {
		t.Fatalf("expected zero pending after harvest, got %s", pending.Amount.Dec())
	}
}

func TestAccrualIdempotent(t *testing.T) {
	engine, state, ledger := newFarmingHarness(t, nil)
	pool := mustCreatePool(t, engine, basicPoolSpec())
	ledger.credit(testStake, testUser, 1000)
	if err := engine.Deposit(testUser, pool, uint256.NewInt(100), nil); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	engine.SetClock(10)

	if err := engine.MassUpdate(testAdmin); err != nil {
		t.Fatalf("MassUpdate: %v", err)
	}
	first := state.pools[pool].AccRewardPerShare.Clone()
	if err := engine.MassUpdate(testAdmin); err != nil {
		t.Fatalf("MassUpdate: %v", err)
	}
	if state.pools[pool].AccRewardPerShare.Cmp(first) != 0 {
		t.Fatalf("repeated accrual at one clock value changed the index")
	}
	if state.pools[pool].LastAccrual != 10 {
		t.Fatalf("expected last accrual 10, got %d", state.pools[pool].LastAccrual)
	}
}

func TestAccrualClampsToWindow(t *testing.T) {
	engine, _, ledger := newFarmingHarness(t, nil)
	spec := basicPoolSpec()
	spec.EndTime = 10
	pool := mustCreatePool(t, engine, spec)
	ledger.credit(testStake, testUser, 1000)
	if err := engine.Deposit(testUser, pool, uint256.NewInt(100), nil); err != nil {
		t.Fatalf("Deposit: %v", err)
	}

	engine.SetClock(50)
	pending, err := engine.PendingReward(pool, testUser)
	if err != nil {
		t.Fatalf("PendingReward: %v", err)
	}
	// Accrual stops at the window end, 10 units at rate 100 minted at 70%.
	if pending.Amount.Uint64() != 700 {
		t.Fatalf("expected pending 700 at window end, got %s", pending.Amount.Dec())
	}

	// Past the window the pool rejects new deposits but still settles.
	err = engine.Deposit(testUser, pool, uint256.NewInt(1), nil)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for ended pool, got %v", err)
	}
	if err := engine.Withdraw(testUser, pool, uint256.NewInt(100)); err != nil {
		t.Fatalf("Withdraw after window: %v", err)
	}
	if got := ledger.balance(testReward, testUser); got.Uint64() != 700 {
		t.Fatalf("withdraw must settle rewards, got %s", got.Dec())
	}
}

func TestEmptyPoolIntervalMintsNothing(t *testing.T) {
	engine, state, ledger := newFarmingHarness(t, nil)
	pool := mustCreatePool(t, engine, basicPoolSpec())

	engine.SetClock(100)
	if err := engine.MassUpdate(testAdmin); err != nil {
		t.Fatalf("MassUpdate: %v", err)
	}
	stored := state.pools[pool]
	if stored.LastAccrual != 100 {
		t.Fatalf("empty interval must advance last accrual, got %d", stored.LastAccrual)
	}
	if !stored.AccRewardPerShare.IsZero() {
		t.Fatalf("empty interval must not mint, index %s", stored.AccRewardPerShare.Dec())
	}

	// The first depositor earns nothing for the skipped interval.
	ledger.credit(testStake, testUser, 1000)
	if err := engine.Deposit(testUser, pool, uint256.NewInt(100), nil); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	pending, err := engine.PendingReward(pool, testUser)
	if err != nil {
		t.Fatalf("PendingReward: %v", err)
	}
	if !pending.Amount.IsZero() {
		t.Fatalf("retroactive reward minted: %s", pending.Amount.Dec())
	}
}

func TestProportionalDistribution(t *testing.T) {
	engine, _, ledger := newFarmingHarness(t, nil)
	pool := mustCreatePool(t, engine, basicPoolSpec())
	ledger.credit(testStake, testUser, 1000)
	ledger.credit(testStake, testUserB, 1000)

	if err := engine.Deposit(testUser, pool, uint256.NewInt(100), nil); err != nil {
		t.Fatalf("Deposit A: %v", err)
	}
	if err := engine.Deposit(testUserB, pool, uint256.NewInt(300), nil); err != nil {
		t.Fatalf("Deposit B: %v", err)
	}
	engine.SetClock(10)

	pendingA, err := engine.PendingReward(pool, testUser)
	if err != nil {
		t.Fatalf("PendingReward A: %v", err)
	}
	pendingB, err := engine.PendingReward(pool, testUserB)
	if err != nil {
		t.Fatalf("PendingReward B: %v", err)
	}
	// 700 distributable split 1:3 by stake.
	if pendingA.Amount.Uint64() != 175 {
		t.Fatalf("expected A pending 175, got %s", pendingA.Amount.Dec())
	}
	if pendingB.Amount.Uint64() != 525 {
		t.Fatalf("expected B pending 525, got %s", pendingB.Amount.Dec())
	}
}

func TestWithdrawExceedingStakeLeavesStateUntouched(t *testing.T) {
	engine, state, ledger := newFarmingHarness(t, nil)
	pool := mustCreatePool(t, engine, basicPoolSpec())
	ledger.credit(testStake, testUser, 1000)
	if err := engine.Deposit(testUser, pool, uint256.NewInt(100), nil); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	engine.SetClock(5)

	before := state.pools[pool].Clone()
	err := engine.Withdraw(testUser, pool, uint256.NewInt(101))
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	after := state.pools[pool]
	if after.LastAccrual != before.LastAccrual || after.TotalDeposited.Cmp(before.TotalDeposited) != 0 {
		t.Fatalf("failed withdraw mutated pool state")
	}
	if got := ledger.balance(testStake, testUser); got.Uint64() != 900 {
		t.Fatalf("failed withdraw moved funds, balance %s", got.Dec())
	}
	if got := ledger.balance(testReward, testUser); !got.IsZero() {
		t.Fatalf("failed withdraw paid rewards, balance %s", got.Dec())
	}
}

func TestEmergencyWithdrawForfeitsRewards(t *testing.T) {
	engine, state, ledger := newFarmingHarness(t, nil)
	pool := mustCreatePool(t, engine, basicPoolSpec())
	ledger.credit(testStake, testUser, 1000)
	if err := engine.Deposit(testUser, pool, uint256.NewInt(100), nil); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	engine.SetClock(10)

	amount, err := engine.EmergencyWithdraw(testUser, pool)
	if err != nil {
		t.Fatalf("EmergencyWithdraw: %v", err)
	}
	if amount.Uint64() != 100 {
		t.Fatalf("expected full principal 100, got %s", amount.Dec())
	}
	if got := ledger.balance(testStake, testUser); got.Uint64() != 1000 {
		t.Fatalf("principal not returned, balance %s", got.Dec())
	}
	if got := ledger.balance(testReward, testUser); !got.IsZero() {
		t.Fatalf("emergency withdraw paid rewards: %s", got.Dec())
	}
	position := state.positions[positionKey(pool, testUser)]
	if !position.Deposited.IsZero() || !position.RewardDebt.IsZero() {
		t.Fatalf("position not zeroed: %s / %s", position.Deposited.Dec(), position.RewardDebt.Dec())
	}

	// Repeating the call has nothing to return.
	if _, err := engine.EmergencyWithdraw(testUser, pool); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error on empty position, got %v", err)
	}
}

func TestDepositFeeSplit(t *testing.T) {
	engine, _, ledger := newFarmingHarness(t, nil)
	spec := basicPoolSpec()
	spec.DepositFee = uint256.NewInt(100)
	spec.DepositFeeAsset = testFeeCoin
	pool := mustCreatePool(t, engine, spec)
	ledger.credit(testStake, testUser, 1000)
	ledger.credit(testFeeCoin, testUser, 100)

	if err := engine.Deposit(testUser, pool, uint256.NewInt(100), nil); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	if got := ledger.balance(testFeeCoin, testDev1); got.Uint64() != 44 {
		t.Fatalf("dev1 fee share %s, want 44", got.Dec())
	}
	if got := ledger.balance(testFeeCoin, testDev2); got.Uint64() != 40 {
		t.Fatalf("dev2 fee share %s, want 40", got.Dec())
	}
	if got := ledger.balance(testFeeCoin, testDev3); got.Uint64() != 16 {
		t.Fatalf("dev3 fee share %s, want 16", got.Dec())
	}

	// A second deposit without fee funds fails before any transfer.
	err := engine.Deposit(testUser, pool, uint256.NewInt(100), nil)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error on short fee balance, got %v", err)
	}
	if got := ledger.balance(testStake, testUser); got.Uint64() != 900 {
		t.Fatalf("failed deposit moved stake, balance %s", got.Dec())
	}
}

type unitConverter struct{}

func (unitConverter) Convert(base, quote common.Address, amount *uint256.Int) (*uint256.Int, error) {
	return amount.Clone(), nil
}

func TestHarvestFeeSplit(t *testing.T) {
	engine, _, ledger := newFarmingHarness(t, nil)
	engine.SetConverter(unitConverter{})
	spec := basicPoolSpec()
	spec.HarvestFeeRatio = 100
	spec.HarvestFeeAsset = testFeeCoin
	pool := mustCreatePool(t, engine, spec)
	ledger.credit(testStake, testUser, 1000)
	ledger.credit(testFeeCoin, testUser, 100)

	if err := engine.Deposit(testUser, pool, uint256.NewInt(100), nil); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	engine.SetClock(10)

	pending, err := engine.PendingReward(pool, testUser)
	if err != nil {
		t.Fatalf("PendingReward: %v", err)
	}
	if pending.HarvestFee.Uint64() != 70 {
		t.Fatalf("expected projected fee 70, got %s", pending.HarvestFee.Dec())
	}

	paid, err := engine.Harvest(testUser, pool, nil)
	if err != nil {
		t.Fatalf("Harvest: %v", err)
	}
	if !paid {
		t.Fatalf("expected payout")
	}
	if got := ledger.balance(testReward, testUser); got.Uint64() != 700 {
		t.Fatalf("reward balance %s, want 700", got.Dec())
	}
	// Fee 70 splits 52 buyback, then 7/7/4 across the beneficiaries.
	if got := ledger.balance(testFeeCoin, testBuyback); got.Uint64() != 52 {
		t.Fatalf("buyback share %s, want 52", got.Dec())
	}
	if got := ledger.balance(testFeeCoin, testDev1); got.Uint64() != 7 {
		t.Fatalf("dev1 share %s, want 7", got.Dec())
	}
	if got := ledger.balance(testFeeCoin, testDev3); got.Uint64() != 4 {
		t.Fatalf("dev3 share %s, want 4", got.Dec())
	}
}

func TestHarvestWithoutElapsedTimePaysNothing(t *testing.T) {
	engine, _, ledger := newFarmingHarness(t, nil)
	pool := mustCreatePool(t, engine, basicPoolSpec())
	ledger.credit(testStake, testUser, 1000)
	if err := engine.Deposit(testUser, pool, uint256.NewInt(100), nil); err != nil {
		t.Fatalf("Deposit: %v", err)
	}

	paid, err := engine.Harvest(testUser, pool, nil)
	if err != nil {
		t.Fatalf("Harvest: %v", err)
	}
	if paid {
		t.Fatalf("zero elapsed time must pay nothing")
	}
	if got := ledger.balance(testReward, testUser); !got.IsZero() {
		t.Fatalf("unexpected reward payout %s", got.Dec())
	}
}

func TestRewardCutsRouteToBeneficiaries(t *testing.T) {
	cfg := defaultTestConfig()
	cfg.RewardCuts = [3]RewardCut{
		{Address: testDev1, Ratio: 100},
		{Address: testDev2, Ratio: 50},
		{Address: testDev3, Ratio: 50},
	}
	engine, state, ledger := newFarmingHarness(t, cfg)
	pool := mustCreatePool(t, engine, basicPoolSpec())
	ledger.credit(testStake, testUser, 1000)
	if err := engine.Deposit(testUser, pool, uint256.NewInt(100), nil); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	engine.SetClock(10)
	if err := engine.MassUpdate(testAdmin); err != nil {
		t.Fatalf("MassUpdate: %v", err)
	}

	// Gross 1000: cuts 100/50/50 paid immediately, 700 indexed for stakers.
	if got := ledger.balance(testReward, testDev1); got.Uint64() != 100 {
		t.Fatalf("cut1 %s, want 100", got.Dec())
	}
	if got := ledger.balance(testReward, testDev2); got.Uint64() != 50 {
		t.Fatalf("cut2 %s, want 50", got.Dec())
	}
	if got := ledger.balance(testReward, testDev3); got.Uint64() != 50 {
		t.Fatalf("cut3 %s, want 50", got.Dec())
	}
	if got := state.pools[pool].TotalRewarded; got.Uint64() != 200 {
		t.Fatalf("total rewarded %s, want 200", got.Dec())
	}
	pending, err := engine.PendingReward(pool, testUser)
	if err != nil {
		t.Fatalf("PendingReward: %v", err)
	}
	if pending.Amount.Uint64() != 700 {
		t.Fatalf("staker pending %s, want 700", pending.Amount.Dec())
	}
}

func TestNativeDepositRequiresAttachedValue(t *testing.T) {
	engine, _, ledger := newFarmingHarness(t, nil)
	spec := basicPoolSpec()
	spec.DepositAsset = NativeAsset
	pool := mustCreatePool(t, engine, spec)
	ledger.credit(NativeAsset, testUser, 1000)

	err := engine.Deposit(testUser, pool, uint256.NewInt(100), nil)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected attached value mismatch, got %v", err)
	}
	if err := engine.Deposit(testUser, pool, uint256.NewInt(100), uint256.NewInt(100)); err != nil {
		t.Fatalf("Deposit with attached value: %v", err)
	}
	if got := ledger.balance(NativeAsset, testVault); got.Uint64() != 100 {
		t.Fatalf("vault native balance %s, want 100", got.Dec())
	}
}

func TestVaultShortPaysWhenBudgetExhausted(t *testing.T) {
	engine, _, ledger := newFarmingHarness(t, nil)
	// Replace the default budget with a deliberately short one.
	ledger.balances[testReward][testVault] = uint256.NewInt(500)
	pool := mustCreatePool(t, engine, basicPoolSpec())
	ledger.credit(testStake, testUser, 1000)
	if err := engine.Deposit(testUser, pool, uint256.NewInt(100), nil); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	engine.SetClock(10)

	paid, err := engine.Harvest(testUser, pool, nil)
	if err != nil {
		t.Fatalf("Harvest: %v", err)
	}
	if !paid {
		t.Fatalf("expected partial payout")
	}
	if got := ledger.balance(testReward, testUser); got.Uint64() != 500 {
		t.Fatalf("expected capped payout 500, got %s", got.Dec())
	}

	// The shortfall is forfeited, not carried.
	paid, err = engine.Harvest(testUser, pool, nil)
	if err != nil {
		t.Fatalf("second Harvest: %v", err)
	}
	if paid {
		t.Fatalf("shortfall must not be claimable later")
	}
}

func TestDepositSettlesBeforeStakeChanges(t *testing.T) {
	engine, _, ledger := newFarmingHarness(t, nil)
	pool := mustCreatePool(t, engine, basicPoolSpec())
	ledger.credit(testStake, testUser, 1000)
	if err := engine.Deposit(testUser, pool, uint256.NewInt(100), nil); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	engine.SetClock(10)

	// Topping up pays out the 700 already earned at the old stake.
	if err := engine.Deposit(testUser, pool, uint256.NewInt(100), nil); err != nil {
		t.Fatalf("second Deposit: %v", err)
	}
	if got := ledger.balance(testReward, testUser); got.Uint64() != 700 {
		t.Fatalf("expected implicit harvest of 700, got %s", got.Dec())
	}
	pending, err := engine.PendingReward(pool, testUser)
	if err != nil {
		t.Fatalf("PendingReward: %v", err)
	}
	if !pending.Amount.IsZero() {
		t.Fatalf("pending must reset after settlement, got %s", pending.Amount.Dec())
	}
}

func TestVaultHoldsExactlyTotalDeposited(t *testing.T) {
	engine, state, ledger := newFarmingHarness(t, nil)
	pool := mustCreatePool(t, engine, basicPoolSpec())
	ledger.credit(testStake, testUser, 1000)
	ledger.credit(testStake, testUserB, 1000)

	if err := engine.Deposit(testUser, pool, uint256.NewInt(250), nil); err != nil {
		t.Fatalf("Deposit A: %v", err)
	}
	if err := engine.Deposit(testUserB, pool, uint256.NewInt(400), nil); err != nil {
		t.Fatalf("Deposit B: %v", err)
	}
	engine.SetClock(7)
	if err := engine.Withdraw(testUser, pool, uint256.NewInt(100)); err != nil {
		t.Fatalf("Withdraw: %v", err)
	}

	total := state.pools[pool].TotalDeposited
	if got := ledger.balance(testStake, testVault); got.Cmp(total) != 0 {
		t.Fatalf("vault holds %s, ledger says %s", got.Dec(), total.Dec())
	}
	if total.Uint64() != 550 {
		t.Fatalf("total deposited %s, want 550", total.Dec())
	}
}

func TestOperationsEmitEvents(t *testing.T) {
	engine, state, ledger := newFarmingHarness(t, nil)
	pool := mustCreatePool(t, engine, basicPoolSpec())
	if evt := state.lastEvent(); evt == nil || evt.Type != EventTypePoolCreated {
		t.Fatalf("expected pool created event, got %+v", evt)
	}
	ledger.credit(testStake, testUser, 1000)
	if err := engine.Deposit(testUser, pool, uint256.NewInt(100), nil); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	evt := state.lastEvent()
	if evt.Type != EventTypeDeposited {
		t.Fatalf("expected deposit event, got %s", evt.Type)
	}
	if evt.Attributes["amount"] != "100" {
		t.Fatalf("deposit amount attribute %q", evt.Attributes["amount"])
	}
	if evt.Attributes["user"] != strings.ToLower(testUser.Hex()) {
		t.Fatalf("deposit user attribute %q", evt.Attributes["user"])
	}
}
