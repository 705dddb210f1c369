package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the daemon configuration loaded from TOML.
type Config struct {
	RPCAddress string `toml:"RPCAddress"`
	DataDir    string `toml:"DataDir"`

	LogEnvironment string `toml:"LogEnvironment"`
	LogFile        string `toml:"LogFile"`
	LogMaxSizeMB   int    `toml:"LogMaxSizeMB"`
	LogMaxBackups  int    `toml:"LogMaxBackups"`

	Vault   string        `toml:"Vault"`
	Farming FarmingConfig `toml:"farming"`
	Oracle  OracleConfig  `toml:"oracle"`
	Pools   []PoolConfig  `toml:"pools"`
	Genesis []Balance     `toml:"genesis"`
}

// FarmingConfig maps onto the ledger's global configuration.
type FarmingConfig struct {
	Admin               string      `toml:"Admin"`
	RewardAsset         string      `toml:"RewardAsset"`
	MintRatio           uint64      `toml:"MintRatio"`
	RewardCuts          []RewardCut `toml:"RewardCuts"`
	FeeBeneficiaries    []string    `toml:"FeeBeneficiaries"`
	BuybackAddress      string      `toml:"BuybackAddress"`
	HarvestBuybackRatio uint64      `toml:"HarvestBuybackRatio"`
	HarvestDevRatio     uint64      `toml:"HarvestDevRatio"`
}

// RewardCut routes a fraction of gross rewards to a beneficiary.
type RewardCut struct {
	Address string `toml:"Address"`
	Ratio   uint64 `toml:"Ratio"`
}

// OracleConfig wires the harvest fee price sources.
type OracleConfig struct {
	Priority      []string     `toml:"Priority"`
	MaxAgeSeconds int64        `toml:"MaxAgeSeconds"`
	Endpoint      string       `toml:"Endpoint"`
	APIKey        string       `toml:"APIKey"`
	ManualRates   []ManualRate `toml:"ManualRates"`
}

// ManualRate seeds the manual oracle source at startup.
type ManualRate struct {
	Base  string `toml:"Base"`
	Quote string `toml:"Quote"`
	Rate  string `toml:"Rate"`
}

// PoolConfig describes a pool created at first boot.
type PoolConfig struct {
	DepositAsset    string `toml:"DepositAsset"`
	RewardPerBlock  string `toml:"RewardPerBlock"`
	StartTime       uint64 `toml:"StartTime"`
	EndTime         uint64 `toml:"EndTime"`
	DepositFee      string `toml:"DepositFee"`
	DepositFeeAsset string `toml:"DepositFeeAsset"`
	HarvestFeeRatio uint64 `toml:"HarvestFeeRatio"`
	HarvestFeeAsset string `toml:"HarvestFeeAsset"`
}

// Balance seeds an account balance at first boot.
type Balance struct {
	Asset   string `toml:"Asset"`
	Address string `toml:"Address"`
	Amount  string `toml:"Amount"`
}

// Load reads the configuration file and rejects unknown keys so typos fail
// loudly instead of silently falling back to defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file %s does not exist", path)
	}
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return nil, fmt.Errorf("config file %s contains unknown keys: %s", path, strings.Join(keys, ", "))
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.RPCAddress) == "" {
		c.RPCAddress = ":8645"
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./farmd-data"
	}
	if strings.TrimSpace(c.LogEnvironment) == "" {
		c.LogEnvironment = "development"
	}
	if c.Oracle.MaxAgeSeconds <= 0 {
		c.Oracle.MaxAgeSeconds = 120
	}
	if len(c.Oracle.Priority) == 0 {
		c.Oracle.Priority = []string{"manual"}
	}
}
