package rpc

import "encoding/json"

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
	codeRateLimited    = -32020
	codePaused         = -32030
)

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      int               `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// PoolResult is the wire representation of a pool. Amounts are decimal
// strings so precision survives JSON number handling.
type PoolResult struct {
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
	Active            bool   `json:"active"`
}

// PositionResult is the wire representation of a stake record.
type PositionResult struct {
	Pool       uint64 `json:"pool"`
	Address    string `json:"address"`
	Deposited  string `json:"deposited"`
	RewardDebt string `json:"rewardDebt"`
}

// PendingResult reports a claimable reward projection.
type PendingResult struct {
	Pool            uint64 `json:"pool"`
	Address         string `json:"address"`
	Amount          string `json:"amount"`
	HarvestFee      string `json:"harvestFee"`
	HarvestFeeAsset string `json:"harvestFeeAsset"`
}

// BalanceResult reports a single asset balance.
type BalanceResult struct {
	Asset   string `json:"asset"`
	Address string `json:"address"`
	Balance string `json:"balance"`
}
