package state

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"farmchain/native/farming"
	"farmchain/storage"
)

var (
	vaultAddr = common.Address{0x0a}
	adminAddr = common.Address{0x01}
	userAddr  = common.Address{0x02}
	stakeCoin = common.Address{0x11}
	rewardTok = common.Address{0x10}
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(storage.NewMemDB(), vaultAddr)
}

func TestGlobalConfigRoundTrip(t *testing.T) {
	manager := newTestManager(t)

	initialized, err := manager.Initialized()
	if err != nil {
		t.Fatalf("Initialized: %v", err)
	}
	if initialized {
		t.Fatalf("fresh store must not be initialized")
	}
	cfg, err := manager.GlobalConfig()
	if err != nil {
		t.Fatalf("GlobalConfig: %v", err)
	}
	if cfg != nil {
		t.Fatalf("expected nil config on fresh store")
	}

	want := &farming.GlobalConfig{
		Admin:       adminAddr,
		RewardAsset: rewardTok,
		MintRatio:   700,
		RewardCuts: [3]farming.RewardCut{
			{Address: common.Address{0x21}, Ratio: 100},
			{Address: common.Address{0x22}, Ratio: 50},
			{Address: common.Address{0x23}, Ratio: 50},
		},
		FeeBeneficiaries:    [3]common.Address{{0x31}, {0x32}, {0x33}},
		BuybackAddress:      common.Address{0x24},
		HarvestBuybackRatio: 750,
		HarvestDevRatio:     250,
	}
	if err := manager.SetGlobalConfig(want); err != nil {
		t.Fatalf("SetGlobalConfig: %v", err)
	}
	got, err := manager.GlobalConfig()
	if err != nil {
		t.Fatalf("GlobalConfig: %v", err)
	}
	if got == nil || *got != *want {
		t.Fatalf("config round trip mismatch: %+v", got)
	}
	initialized, err = manager.Initialized()
	if err != nil {
		t.Fatalf("Initialized: %v", err)
	}
	if !initialized {
		t.Fatalf("store must report initialized after config write")
	}
}

func TestPoolRoundTripAndCount(t *testing.T) {
	manager := newTestManager(t)

	missing, err := manager.GetPool(0)
	if err != nil {
		t.Fatalf("GetPool: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown pool")
	}

	pool := &farming.Pool{
		ID:                0,
		DepositAsset:      stakeCoin,
		TotalDeposited:    uint256.NewInt(1234),
		RewardPerBlock:    uint256.NewInt(100),
		StartTime:         10,
		EndTime:           1000,
		LastAccrual:       42,
		AccRewardPerShare: uint256.NewInt(987654321),
		TotalRewarded:     uint256.NewInt(777),
		DepositFee:        uint256.NewInt(5),
		DepositFeeAsset:   rewardTok,
		HarvestFeeRatio:   25,
		HarvestFeeAsset:   rewardTok,
	}
	if err := manager.PutPool(pool); err != nil {
		t.Fatalf("PutPool: %v", err)
	}
	count, err := manager.PoolCount()
	if err != nil {
		t.Fatalf("PoolCount: %v", err)
	}
	if count != 1 {
		t.Fatalf("pool count %d, want 1", count)
	}

	got, err := manager.GetPool(0)
	if err != nil {
		t.Fatalf("GetPool: %v", err)
	}
	if got.DepositAsset != stakeCoin || got.LastAccrual != 42 {
		t.Fatalf("pool fields lost: %+v", got)
	}
	if got.TotalDeposited.Uint64() != 1234 || got.AccRewardPerShare.Uint64() != 987654321 {
		t.Fatalf("pool amounts lost: %s / %s", got.TotalDeposited.Dec(), got.AccRewardPerShare.Dec())
	}

	// Rewriting an existing pool must not bump the counter.
	if err := manager.PutPool(got); err != nil {
		t.Fatalf("PutPool: %v", err)
	}
	count, err = manager.PoolCount()
	if err != nil {
		t.Fatalf("PoolCount: %v", err)
	}
	if count != 1 {
		t.Fatalf("pool count %d after rewrite, want 1", count)
	}
}

func TestPositionRoundTrip(t *testing.T) {
	manager := newTestManager(t)

	missing, err := manager.GetPosition(0, userAddr)
	if err != nil {
		t.Fatalf("GetPosition: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown position")
	}

	position := &farming.Position{
		Address:    userAddr,
		Deposited:  uint256.NewInt(500),
		RewardDebt: uint256.NewInt(350),
	}
	if err := manager.PutPosition(3, position); err != nil {
		t.Fatalf("PutPosition: %v", err)
	}
	got, err := manager.GetPosition(3, userAddr)
	if err != nil {
		t.Fatalf("GetPosition: %v", err)
	}
	if got.Address != userAddr || got.Deposited.Uint64() != 500 || got.RewardDebt.Uint64() != 350 {
		t.Fatalf("position round trip mismatch: %+v", got)
	}

	// Positions are scoped per pool.
	other, err := manager.GetPosition(4, userAddr)
	if err != nil {
		t.Fatalf("GetPosition: %v", err)
	}
	if other != nil {
		t.Fatalf("position leaked across pools")
	}
}

func TestTokenLedgerTransfers(t *testing.T) {
	manager := newTestManager(t)
	if err := manager.Credit(stakeCoin, userAddr, uint256.NewInt(100)); err != nil {
		t.Fatalf("Credit: %v", err)
	}
	token, err := manager.Token(stakeCoin)
	if err != nil {
		t.Fatalf("Token: %v", err)
	}

	ok, err := token.TransferFrom(userAddr, vaultAddr, uint256.NewInt(60))
	if err != nil || !ok {
		t.Fatalf("TransferFrom: ok=%v err=%v", ok, err)
	}
	balance, err := token.BalanceOf(userAddr)
	if err != nil {
		t.Fatalf("BalanceOf: %v", err)
	}
	if balance.Uint64() != 40 {
		t.Fatalf("balance %s, want 40", balance.Dec())
	}

	// Short transfers fail atomically.
	ok, err = token.TransferFrom(userAddr, vaultAddr, uint256.NewInt(41))
	if err != nil {
		t.Fatalf("TransferFrom: %v", err)
	}
	if ok {
		t.Fatalf("short transfer reported success")
	}
	balance, err = token.BalanceOf(userAddr)
	if err != nil {
		t.Fatalf("BalanceOf: %v", err)
	}
	if balance.Uint64() != 40 {
		t.Fatalf("failed transfer moved funds, balance %s", balance.Dec())
	}

	// Transfer debits the vault.
	ok, err = token.Transfer(userAddr, uint256.NewInt(10))
	if err != nil || !ok {
		t.Fatalf("Transfer: ok=%v err=%v", ok, err)
	}
	vaultBalance, err := token.BalanceOf(vaultAddr)
	if err != nil {
		t.Fatalf("BalanceOf: %v", err)
	}
	if vaultBalance.Uint64() != 50 {
		t.Fatalf("vault balance %s, want 50", vaultBalance.Dec())
	}
}

func TestEngineRunsAgainstManager(t *testing.T) {
	manager := newTestManager(t)
	cfg := &farming.GlobalConfig{
		Admin:               adminAddr,
		RewardAsset:         rewardTok,
		MintRatio:           700,
		FeeBeneficiaries:    [3]common.Address{{0x31}, {0x32}, {0x33}},
		BuybackAddress:      common.Address{0x24},
		HarvestBuybackRatio: 750,
		HarvestDevRatio:     250,
	}
	if err := manager.SetGlobalConfig(cfg); err != nil {
		t.Fatalf("SetGlobalConfig: %v", err)
	}
	if err := manager.Credit(rewardTok, vaultAddr, uint256.NewInt(1_000_000)); err != nil {
		t.Fatalf("Credit vault: %v", err)
	}
	if err := manager.Credit(stakeCoin, userAddr, uint256.NewInt(1000)); err != nil {
		t.Fatalf("Credit user: %v", err)
	}

	engine := farming.NewEngine(vaultAddr)
	engine.SetState(manager)
	engine.SetTokens(manager)

	poolID, err := engine.CreatePool(adminAddr, farming.PoolSpec{
		DepositAsset:   stakeCoin,
		RewardPerBlock: uint256.NewInt(100),
		StartTime:      0,
		EndTime:        1_000_000,
	})
	if err != nil {
		t.Fatalf("CreatePool: %v", err)
	}
	if err := engine.Deposit(userAddr, poolID, uint256.NewInt(100), nil); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	engine.SetClock(10)
	paid, err := engine.Harvest(userAddr, poolID, nil)
	if err != nil {
		t.Fatalf("Harvest: %v", err)
	}
	if !paid {
		t.Fatalf("expected payout")
	}

	token, err := manager.Token(rewardTok)
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	balance, err := token.BalanceOf(userAddr)
	if err != nil {
		t.Fatalf("BalanceOf: %v", err)
	}
	if balance.Uint64() != 700 {
		t.Fatalf("reward balance %s, want 700", balance.Dec())
	}

	events := manager.DrainEvents()
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[2].Type != farming.EventTypeHarvested {
		t.Fatalf("last event %s", events[2].Type)
	}
	if remaining := manager.DrainEvents(); len(remaining) != 0 {
		t.Fatalf("drain must clear the buffer")
	}
}
