package config

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"farmchain/native/farming"
)

func parseAddress(field, raw string) (common.Address, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return common.Address{}, fmt.Errorf("config: %s required", field)
	}
	if !common.IsHexAddress(trimmed) {
		return common.Address{}, fmt.Errorf("config: invalid %s address %q", field, raw)
	}
	return common.HexToAddress(trimmed), nil
}

func parseAssetAddress(field, raw string) (common.Address, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return farming.NativeAsset, nil
	}
	if !common.IsHexAddress(trimmed) {
		return common.Address{}, fmt.Errorf("config: invalid %s address %q", field, raw)
	}
	return common.HexToAddress(trimmed), nil
}

func parseAmount(field, raw string) (*uint256.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return uint256.NewInt(0), nil
	}
	parsed, err := uint256.FromDecimal(trimmed)
	if err != nil {
		return nil, fmt.Errorf("config: invalid %s amount %q: %w", field, raw, err)
	}
	return parsed, nil
}

// VaultAddress parses the vault account the ledger holds funds in.
func (c *Config) VaultAddress() (common.Address, error) {
	return parseAddress("Vault", c.Vault)
}

// GlobalConfig converts the farming section into the engine configuration,
// validating it in the process.
func (c *Config) GlobalConfig() (*farming.GlobalConfig, error) {
	section := c.Farming
	admin, err := parseAddress("farming.Admin", section.Admin)
	if err != nil {
		return nil, err
	}
	rewardAsset, err := parseAssetAddress("farming.RewardAsset", section.RewardAsset)
	if err != nil {
		return nil, err
	}
	if len(section.RewardCuts) > 3 {
		return nil, fmt.Errorf("config: at most 3 reward cuts supported, got %d", len(section.RewardCuts))
	}
	if len(section.FeeBeneficiaries) != 3 {
		return nil, fmt.Errorf("config: exactly 3 fee beneficiaries required, got %d", len(section.FeeBeneficiaries))
	}
	cfg := &farming.GlobalConfig{
		Admin:               admin,
		RewardAsset:         rewardAsset,
		MintRatio:           section.MintRatio,
		HarvestBuybackRatio: section.HarvestBuybackRatio,
		HarvestDevRatio:     section.HarvestDevRatio,
	}
	for i, cut := range section.RewardCuts {
		addr, err := parseAddress(fmt.Sprintf("farming.RewardCuts[%d].Address", i), cut.Address)
		if err != nil {
			return nil, err
		}
		cfg.RewardCuts[i] = farming.RewardCut{Address: addr, Ratio: cut.Ratio}
	}
	for i, beneficiary := range section.FeeBeneficiaries {
		addr, err := parseAddress(fmt.Sprintf("farming.FeeBeneficiaries[%d]", i), beneficiary)
		if err != nil {
			return nil, err
		}
		cfg.FeeBeneficiaries[i] = addr
	}
	if cfg.BuybackAddress, err = parseAddress("farming.BuybackAddress", section.BuybackAddress); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// PoolSpecs converts the configured boot pools.
func (c *Config) PoolSpecs() ([]farming.PoolSpec, error) {
	specs := make([]farming.PoolSpec, 0, len(c.Pools))
	for i, pool := range c.Pools {
		depositAsset, err := parseAssetAddress(fmt.Sprintf("pools[%d].DepositAsset", i), pool.DepositAsset)
		if err != nil {
			return nil, err
		}
		rate, err := parseAmount(fmt.Sprintf("pools[%d].RewardPerBlock", i), pool.RewardPerBlock)
		if err != nil {
			return nil, err
		}
		depositFee, err := parseAmount(fmt.Sprintf("pools[%d].DepositFee", i), pool.DepositFee)
		if err != nil {
			return nil, err
		}
		depositFeeAsset, err := parseAssetAddress(fmt.Sprintf("pools[%d].DepositFeeAsset", i), pool.DepositFeeAsset)
		if err != nil {
			return nil, err
		}
		harvestFeeAsset, err := parseAssetAddress(fmt.Sprintf("pools[%d].HarvestFeeAsset", i), pool.HarvestFeeAsset)
		if err != nil {
			return nil, err
		}
		specs = append(specs, farming.PoolSpec{
			DepositAsset:    depositAsset,
			RewardPerBlock:  rate,
			StartTime:       pool.StartTime,
			EndTime:         pool.EndTime,
			DepositFee:      depositFee,
			DepositFeeAsset: depositFeeAsset,
			HarvestFeeRatio: pool.HarvestFeeRatio,
			HarvestFeeAsset: harvestFeeAsset,
		})
	}
	return specs, nil
}

// GenesisBalance is one parsed seed balance.
type GenesisBalance struct {
	Asset   common.Address
	Address common.Address
	Amount  *uint256.Int
}

// GenesisBalances converts the configured seed balances.
func (c *Config) GenesisBalances() ([]GenesisBalance, error) {
	balances := make([]GenesisBalance, 0, len(c.Genesis))
	for i, entry := range c.Genesis {
		asset, err := parseAssetAddress(fmt.Sprintf("genesis[%d].Asset", i), entry.Asset)
		if err != nil {
			return nil, err
		}
		addr, err := parseAddress(fmt.Sprintf("genesis[%d].Address", i), entry.Address)
		if err != nil {
			return nil, err
		}
		amount, err := parseAmount(fmt.Sprintf("genesis[%d].Amount", i), entry.Amount)
		if err != nil {
			return nil, err
		}
		balances = append(balances, GenesisBalance{Asset: asset, Address: addr, Amount: amount})
	}
	return balances, nil
}
