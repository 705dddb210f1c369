package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"farmchain/core/types"
	"farmchain/native/farming"
	"farmchain/storage"
)

const (
	keyGlobalConfig = "farming/config"
	keyPoolCount    = "farming/pool-count"
	poolKeyPrefix   = "farming/pool/"
	posKeyPrefix    = "farming/position/"
)

// Manager persists farming pools, positions and the global configuration in
// a key-value store and doubles as the token registry for the engine. All
// amounts are stored as decimal strings so records stay readable in debug
// dumps and survive schema evolution.
type Manager struct {
	mu     sync.RWMutex
	db     storage.Database
	vault  common.Address
	events []*types.Event
}

// NewManager wraps the database. The vault address is the module account
// token transfers debit when the engine pays out.
func NewManager(db storage.Database, vault common.Address) *Manager {
	return &Manager{db: db, vault: vault}
}

func poolKey(id uint64) []byte {
	return []byte(fmt.Sprintf("%s%d", poolKeyPrefix, id))
}

func positionKey(poolID uint64, addr common.Address) []byte {
	return []byte(fmt.Sprintf("%s%d/%s", posKeyPrefix, poolID, strings.ToLower(addr.Hex())))
}

func parseAmount(field, value string) (*uint256.Int, error) {
	if strings.TrimSpace(value) == "" {
		return uint256.NewInt(0), nil
	}
	parsed, err := uint256.FromDecimal(value)
	if err != nil {
		return nil, fmt.Errorf("state: invalid %s amount %q: %w", field, value, err)
	}
	return parsed, nil
}

type storedRewardCut struct {
	Address string `json:"address"`
	Ratio   uint64 `json:"ratio"`
}

type storedConfig struct {
	Admin               string             `json:"admin"`
	RewardAsset         string             `json:"rewardAsset"`
	MintRatio           uint64             `json:"mintRatio"`
	RewardCuts          [3]storedRewardCut `json:"rewardCuts"`
	FeeBeneficiaries    [3]string          `json:"feeBeneficiaries"`
	BuybackAddress      string             `json:"buybackAddress"`
	HarvestBuybackRatio uint64             `json:"harvestBuybackRatio"`
	HarvestDevRatio     uint64             `json:"harvestDevRatio"`
}

type storedPool struct {
	ID                uint64 `json:"id"`
	DepositAsset      string `json:"depositAsset"`
	TotalDeposited    string `json:"totalDeposited"`
	RewardPerBlock    string `json:"rewardPerBlock"`
	StartTime         uint64 `json:"startTime"`
	EndTime           uint64 `json:"endTime"`
	LastAccrual       uint64 `json:"lastAccrual"`
	AccRewardPerShare string `json:"accRewardPerShare"`
	TotalRewarded     string `json:"totalRewarded"`
	DepositFee        string `json:"depositFee"`
	DepositFeeAsset   string `json:"depositFeeAsset"`
	HarvestFeeRatio   uint64 `json:"harvestFeeRatio"`
	HarvestFeeAsset   string `json:"harvestFeeAsset"`
}

type storedPosition struct {
	Address    string `json:"address"`
	Deposited  string `json:"deposited"`
	RewardDebt string `json:"rewardDebt"`
}

// Initialized reports whether a global configuration has been written.
func (m *Manager) Initialized() (bool, error) {
	if m == nil || m.db == nil {
		return false, errors.New("state: manager not configured")
	}
	return m.db.Has([]byte(keyGlobalConfig))
}

// GlobalConfig loads the stored configuration, or nil when none exists yet.
func (m *Manager) GlobalConfig() (*farming.GlobalConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	raw, err := m.db.Get([]byte(keyGlobalConfig))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var record storedConfig
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("state: decode config: %w", err)
	}
	cfg := &farming.GlobalConfig{
		Admin:               common.HexToAddress(record.Admin),
		RewardAsset:         common.HexToAddress(record.RewardAsset),
		MintRatio:           record.MintRatio,
		BuybackAddress:      common.HexToAddress(record.BuybackAddress),
		HarvestBuybackRatio: record.HarvestBuybackRatio,
		HarvestDevRatio:     record.HarvestDevRatio,
	}
	for i, cut := range record.RewardCuts {
		cfg.RewardCuts[i] = farming.RewardCut{
			Address: common.HexToAddress(cut.Address),
			Ratio:   cut.Ratio,
		}
	}
	for i, addr := range record.FeeBeneficiaries {
		cfg.FeeBeneficiaries[i] = common.HexToAddress(addr)
	}
	return cfg, nil
}

// SetGlobalConfig persists the configuration.
func (m *Manager) SetGlobalConfig(cfg *farming.GlobalConfig) error {
	if cfg == nil {
		return errors.New("state: nil config")
	}
	record := storedConfig{
		Admin:               strings.ToLower(cfg.Admin.Hex()),
		RewardAsset:         strings.ToLower(cfg.RewardAsset.Hex()),
		MintRatio:           cfg.MintRatio,
		BuybackAddress:      strings.ToLower(cfg.BuybackAddress.Hex()),
		HarvestBuybackRatio: cfg.HarvestBuybackRatio,
		HarvestDevRatio:     cfg.HarvestDevRatio,
	}
	for i, cut := range cfg.RewardCuts {
		record.RewardCuts[i] = storedRewardCut{
			Address: strings.ToLower(cut.Address.Hex()),
			Ratio:   cut.Ratio,
		}
	}
	for i, addr := range cfg.FeeBeneficiaries {
		record.FeeBeneficiaries[i] = strings.ToLower(addr.Hex())
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("state: encode config: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.db.Put([]byte(keyGlobalConfig), raw)
}

// PoolCount returns the number of registered pools. Pool identifiers are
// dense, so valid ids are [0, count).
func (m *Manager) PoolCount() (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.poolCountLocked()
}

func (m *Manager) poolCountLocked() (uint64, error) {
	raw, err := m.db.Get([]byte(keyPoolCount))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var count uint64
	if err := json.Unmarshal(raw, &count); err != nil {
		return 0, fmt.Errorf("state: decode pool count: %w", err)
	}
	return count, nil
}

// GetPool loads the pool, or nil when the id is unknown.
func (m *Manager) GetPool(id uint64) (*farming.Pool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	raw, err := m.db.Get(poolKey(id))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var record storedPool
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("state: decode pool %d: %w", id, err)
	}
	pool := &farming.Pool{
		ID:              record.ID,
		DepositAsset:    common.HexToAddress(record.DepositAsset),
		StartTime:       record.StartTime,
		EndTime:         record.EndTime,
		LastAccrual:     record.LastAccrual,
		DepositFeeAsset: common.HexToAddress(record.DepositFeeAsset),
		HarvestFeeRatio: record.HarvestFeeRatio,
		HarvestFeeAsset: common.HexToAddress(record.HarvestFeeAsset),
	}
	if pool.TotalDeposited, err = parseAmount("totalDeposited", record.TotalDeposited); err != nil {
		return nil, err
	}
	if pool.RewardPerBlock, err = parseAmount("rewardPerBlock", record.RewardPerBlock); err != nil {
		return nil, err
	}
	if pool.AccRewardPerShare, err = parseAmount("accRewardPerShare", record.AccRewardPerShare); err != nil {
		return nil, err
	}
	if pool.TotalRewarded, err = parseAmount("totalRewarded", record.TotalRewarded); err != nil {
		return nil, err
	}
	if pool.DepositFee, err = parseAmount("depositFee", record.DepositFee); err != nil {
		return nil, err
	}
	return pool, nil
}

// PutPool persists the pool and bumps the pool counter when a new id is
// appended.
func (m *Manager) PutPool(pool *farming.Pool) error {
	if pool == nil {
		return errors.New("state: nil pool")
	}
	clone := pool.Clone()
	record := storedPool{
		ID:                clone.ID,
		DepositAsset:      strings.ToLower(clone.DepositAsset.Hex()),
		TotalDeposited:    clone.TotalDeposited.Dec(),
		RewardPerBlock:    clone.RewardPerBlock.Dec(),
		StartTime:         clone.StartTime,
		EndTime:           clone.EndTime,
		LastAccrual:       clone.LastAccrual,
		AccRewardPerShare: clone.AccRewardPerShare.Dec(),
		TotalRewarded:     clone.TotalRewarded.Dec(),
		DepositFee:        clone.DepositFee.Dec(),
		DepositFeeAsset:   strings.ToLower(clone.DepositFeeAsset.Hex()),
		HarvestFeeRatio:   clone.HarvestFeeRatio,
		HarvestFeeAsset:   strings.ToLower(clone.HarvestFeeAsset.Hex()),
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("state: encode pool %d: %w", clone.ID, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.db.Put(poolKey(clone.ID), raw); err != nil {
		return err
	}
	count, err := m.poolCountLocked()
	if err != nil {
		return err
	}
	if clone.ID >= count {
		encoded, err := json.Marshal(clone.ID + 1)
		if err != nil {
			return err
		}
		return m.db.Put([]byte(keyPoolCount), encoded)
	}
	return nil
}

// GetPosition loads the stake record for (pool, address), or nil when the
// address never deposited.
func (m *Manager) GetPosition(poolID uint64, addr common.Address) (*farming.Position, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	raw, err := m.db.Get(positionKey(poolID, addr))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var record storedPosition
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("state: decode position: %w", err)
	}
	position := &farming.Position{Address: common.HexToAddress(record.Address)}
	if position.Deposited, err = parseAmount("deposited", record.Deposited); err != nil {
		return nil, err
	}
	if position.RewardDebt, err = parseAmount("rewardDebt", record.RewardDebt); err != nil {
		return nil, err
	}
	return position, nil
}

// PutPosition persists the stake record.
func (m *Manager) PutPosition(poolID uint64, position *farming.Position) error {
	if position == nil {
		return errors.New("state: nil position")
	}
	clone := position.Clone()
	record := storedPosition{
		Address:    strings.ToLower(clone.Address.Hex()),
		Deposited:  clone.Deposited.Dec(),
		RewardDebt: clone.RewardDebt.Dec(),
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("state: encode position: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.db.Put(positionKey(poolID, clone.Address), raw)
}

// AppendEvent buffers an emitted event until the host drains it.
func (m *Manager) AppendEvent(evt *types.Event) {
	if evt == nil {
		return
	}
	m.mu.Lock()
	m.events = append(m.events, evt.Clone())
	m.mu.Unlock()
}

// DrainEvents returns the buffered events and clears the buffer.
func (m *Manager) DrainEvents() []*types.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	drained := m.events
	m.events = nil
	return drained
}

// Token resolves an asset to its balance ledger. Every asset, the native
// sentinel included, is served by the same key-value backed ledger.
func (m *Manager) Token(asset common.Address) (farming.Token, error) {
	if m == nil || m.db == nil {
		return nil, errors.New("state: manager not configured")
	}
	return &TokenLedger{manager: m, asset: asset}, nil
}
