package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"farmchain/native/farming"
)

func parseParams(req *RPCRequest, out interface{}) error {
	if len(req.Params) != 1 {
		return fmt.Errorf("expected exactly one params object")
	}
	if err := json.Unmarshal(req.Params[0], out); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}
	return nil
}

// parseAddress decodes a required 0x-prefixed address.
func parseAddress(field, raw string) (common.Address, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return common.Address{}, fmt.Errorf("%s required", field)
	}
	if !common.IsHexAddress(trimmed) {
		return common.Address{}, fmt.Errorf("invalid %s address %q", field, raw)
	}
	return common.HexToAddress(trimmed), nil
}

// parseAssetAddress decodes an asset identifier; an empty string selects the
// native asset.
func parseAssetAddress(field, raw string) (common.Address, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return farming.NativeAsset, nil
	}
	if !common.IsHexAddress(trimmed) {
		return common.Address{}, fmt.Errorf("invalid %s address %q", field, raw)
	}
	return common.HexToAddress(trimmed), nil
}

// parseAmount decodes a decimal amount string; empty means zero.
func parseAmount(field, raw string) (*uint256.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return uint256.NewInt(0), nil
	}
	parsed, err := uint256.FromDecimal(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid %s amount %q", field, raw)
	}
	return parsed, nil
}

func addrString(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}

func poolResult(pool *farming.Pool, now uint64) PoolResult {
	return PoolResult{
		ID:                pool.ID,
		DepositAsset:      addrString(pool.DepositAsset),
		TotalDeposited:    pool.TotalDeposited.Dec(),
		RewardPerBlock:    pool.RewardPerBlock.Dec(),
		StartTime:         pool.StartTime,
		EndTime:           pool.EndTime,
		LastAccrual:       pool.LastAccrual,
		AccRewardPerShare: pool.AccRewardPerShare.Dec(),
		TotalRewarded:     pool.TotalRewarded.Dec(),
		DepositFee:        pool.DepositFee.Dec(),
		DepositFeeAsset:   addrString(pool.DepositFeeAsset),
		HarvestFeeRatio:   pool.HarvestFeeRatio,
		HarvestFeeAsset:   addrString(pool.HarvestFeeAsset),
		Active:            pool.Active(now),
	}
}

func poolLabel(poolID uint64) string {
	return strconv.FormatUint(poolID, 10)
}

// poolBefore snapshots a pool ahead of a ledger operation so payout metrics
// can be derived from the TotalRewarded delta afterwards.
func (s *Server) poolBefore(poolID uint64) *farming.Pool {
	pool, err := s.manager.GetPool(poolID)
	if err != nil {
		return nil
	}
	return pool
}

// recordPoolMetrics refreshes the stake gauge for the pool and counts every
// reward unit the operation moved out of the vault, dev cuts included.
func (s *Server) recordPoolMetrics(poolID uint64, before *farming.Pool) {
	after, err := s.manager.GetPool(poolID)
	if err != nil || after == nil {
		return
	}
	label := poolLabel(poolID)
	s.metrics.RecordPoolStake(label, after.TotalDeposited.ToBig())
	if before == nil {
		return
	}
	if after.TotalRewarded.Cmp(before.TotalRewarded) > 0 {
		delta := new(uint256.Int).Sub(after.TotalRewarded, before.TotalRewarded)
		s.metrics.RecordRewardPaid(label, delta.ToBig())
	}
}

func (s *Server) handleDeposit(w http.ResponseWriter, req *RPCRequest) error {
	var params struct {
		From          string `json:"from"`
		Pool          uint64 `json:"pool"`
		Amount        string `json:"amount"`
		AttachedValue string `json:"attachedValue"`
	}
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return err
	}
	from, err := parseAddress("from", params.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return err
	}
	amount, err := parseAmount("deposit", params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return err
	}
	attached, err := parseAmount("attachedValue", params.AttachedValue)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return err
	}
	before := s.poolBefore(params.Pool)
	s.syncClock()
	if err := s.engine.Deposit(from, params.Pool, amount, attached); err != nil {
		writeEngineError(w, req.ID, err)
		return err
	}
	s.recordPoolMetrics(params.Pool, before)
	if before != nil && !before.DepositFee.IsZero() {
		s.metrics.RecordFee(poolLabel(params.Pool), "deposit", before.DepositFee.ToBig())
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
	return nil
}

func (s *Server) handleWithdraw(w http.ResponseWriter, req *RPCRequest) error {
	var params struct {
		From   string `json:"from"`
		Pool   uint64 `json:"pool"`
		Amount string `json:"amount"`
	}
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return err
	}
	from, err := parseAddress("from", params.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return err
	}
	amount, err := parseAmount("withdraw", params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return err
	}
	before := s.poolBefore(params.Pool)
	s.syncClock()
	if err := s.engine.Withdraw(from, params.Pool, amount); err != nil {
		writeEngineError(w, req.ID, err)
		return err
	}
	s.recordPoolMetrics(params.Pool, before)
	writeResult(w, req.ID, map[string]bool{"ok": true})
	return nil
}

func (s *Server) handleHarvest(w http.ResponseWriter, req *RPCRequest) error {
	var params struct {
		From          string `json:"from"`
		Pool          uint64 `json:"pool"`
		AttachedValue string `json:"attachedValue"`
	}
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return err
	}
	from, err := parseAddress("from", params.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return err
	}
	attached, err := parseAmount("attachedValue", params.AttachedValue)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return err
	}
	before := s.poolBefore(params.Pool)
	s.syncClock()
	// Project the fee a successful harvest will charge; Harvest itself only
	// reports whether a payout happened.
	var projectedFee *uint256.Int
	if pending, pendingErr := s.engine.PendingReward(params.Pool, from); pendingErr == nil {
		projectedFee = pending.HarvestFee
	}
	paid, err := s.engine.Harvest(from, params.Pool, attached)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return err
	}
	s.recordPoolMetrics(params.Pool, before)
	if projectedFee != nil && !projectedFee.IsZero() {
		s.metrics.RecordFee(poolLabel(params.Pool), "harvest", projectedFee.ToBig())
	}
	writeResult(w, req.ID, map[string]bool{"paid": paid})
	return nil
}

func (s *Server) handleEmergencyWithdraw(w http.ResponseWriter, req *RPCRequest) error {
	var params struct {
		From string `json:"from"`
		Pool uint64 `json:"pool"`
	}
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return err
	}
	from, err := parseAddress("from", params.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return err
	}
	before := s.poolBefore(params.Pool)
	s.syncClock()
	amount, err := s.engine.EmergencyWithdraw(from, params.Pool)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return err
	}
	s.recordPoolMetrics(params.Pool, before)
	writeResult(w, req.ID, map[string]string{"amount": amount.Dec()})
	return nil
}

func (s *Server) handlePendingReward(w http.ResponseWriter, req *RPCRequest) error {
	var params struct {
		Address string `json:"address"`
		Pool    uint64 `json:"pool"`
	}
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return err
	}
	addr, err := parseAddress("address", params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return err
	}
	s.syncClock()
	pending, err := s.engine.PendingReward(params.Pool, addr)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return err
	}
	writeResult(w, req.ID, PendingResult{
		Pool:            params.Pool,
		Address:         addrString(addr),
		Amount:          pending.Amount.Dec(),
		HarvestFee:      pending.HarvestFee.Dec(),
		HarvestFeeAsset: addrString(pending.HarvestFeeAsset),
	})
	return nil
}

func (s *Server) handleGetPool(w http.ResponseWriter, req *RPCRequest) error {
	var params struct {
		Pool uint64 `json:"pool"`
	}
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return err
	}
	pool, err := s.manager.GetPool(params.Pool)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return err
	}
	if pool == nil {
		err := fmt.Errorf("unknown pool %d", params.Pool)
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return err
	}
	writeResult(w, req.ID, poolResult(pool, s.engine.Clock()))
	return nil
}

func (s *Server) handleListPools(w http.ResponseWriter, req *RPCRequest) error {
	count, err := s.manager.PoolCount()
	if err != nil {
		writeEngineError(w, req.ID, err)
		return err
	}
	results := make([]PoolResult, 0, count)
	for id := uint64(0); id < count; id++ {
		pool, err := s.manager.GetPool(id)
		if err != nil {
			writeEngineError(w, req.ID, err)
			return err
		}
		if pool == nil {
			continue
		}
		results = append(results, poolResult(pool, s.engine.Clock()))
	}
	writeResult(w, req.ID, results)
	return nil
}

func (s *Server) handleGetPosition(w http.ResponseWriter, req *RPCRequest) error {
	var params struct {
		Address string `json:"address"`
		Pool    uint64 `json:"pool"`
	}
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return err
	}
	addr, err := parseAddress("address", params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return err
	}
	position, err := s.manager.GetPosition(params.Pool, addr)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return err
	}
	result := PositionResult{Pool: params.Pool, Address: addrString(addr), Deposited: "0", RewardDebt: "0"}
	if position != nil {
		result.Deposited = position.Deposited.Dec()
		result.RewardDebt = position.RewardDebt.Dec()
	}
	writeResult(w, req.ID, result)
	return nil
}

func (s *Server) handleGetBalance(w http.ResponseWriter, req *RPCRequest) error {
	var params struct {
		Asset   string `json:"asset"`
		Address string `json:"address"`
	}
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return err
	}
	asset, err := parseAssetAddress("asset", params.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return err
	}
	addr, err := parseAddress("address", params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return err
	}
	token, err := s.manager.Token(asset)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return err
	}
	balance, err := token.BalanceOf(addr)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return err
	}
	writeResult(w, req.ID, BalanceResult{
		Asset:   addrString(asset),
		Address: addrString(addr),
		Balance: balance.Dec(),
	})
	return nil
}

func (s *Server) handleCreatePool(w http.ResponseWriter, req *RPCRequest) error {
	var params struct {
		Caller          string `json:"caller"`
		DepositAsset    string `json:"depositAsset"`
		RewardPerBlock  string `json:"rewardPerBlock"`
		StartTime       uint64 `json:"startTime"`
		EndTime         uint64 `json:"endTime"`
		DepositFee      string `json:"depositFee"`
		DepositFeeAsset string `json:"depositFeeAsset"`
		HarvestFeeRatio uint64 `json:"harvestFeeRatio"`
		HarvestFeeAsset string `json:"harvestFeeAsset"`
	}
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return err
	}
	caller, err := parseAddress("caller", params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return err
	}
	depositAsset, err := parseAssetAddress("depositAsset", params.DepositAsset)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return err
	}
	rate, err := parseAmount("rewardPerBlock", params.RewardPerBlock)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return err
	}
	depositFee, err := parseAmount("depositFee", params.DepositFee)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return err
	}
	depositFeeAsset, err := parseAssetAddress("depositFeeAsset", params.DepositFeeAsset)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return err
	}
	harvestFeeAsset, err := parseAssetAddress("harvestFeeAsset", params.HarvestFeeAsset)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return err
	}
	s.syncClock()
	id, err := s.engine.CreatePool(caller, farming.PoolSpec{
		DepositAsset:    depositAsset,
		RewardPerBlock:  rate,
		StartTime:       params.StartTime,
		EndTime:         params.EndTime,
		DepositFee:      depositFee,
		DepositFeeAsset: depositFeeAsset,
		HarvestFeeRatio: params.HarvestFeeRatio,
		HarvestFeeAsset: harvestFeeAsset,
	})
	if err != nil {
		writeEngineError(w, req.ID, err)
		return err
	}
	writeResult(w, req.ID, map[string]uint64{"pool": id})
	return nil
}

func (s *Server) handleUpdatePoolSchedule(w http.ResponseWriter, req *RPCRequest) error {
	var params struct {
		Caller         string `json:"caller"`
		Pool           uint64 `json:"pool"`
		RewardPerBlock string `json:"rewardPerBlock"`
		StartTime      uint64 `json:"startTime"`
		EndTime        uint64 `json:"endTime"`
	}
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return err
	}
	caller, err := parseAddress("caller", params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return err
	}
	rate, err := parseAmount("rewardPerBlock", params.RewardPerBlock)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return err
	}
	s.syncClock()
	if err := s.engine.UpdatePoolSchedule(caller, params.Pool, rate, params.StartTime, params.EndTime); err != nil {
		writeEngineError(w, req.ID, err)
		return err
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
	return nil
}

func (s *Server) handleSetPoolFees(w http.ResponseWriter, req *RPCRequest) error {
	var params struct {
		Caller          string `json:"caller"`
		Pool            uint64 `json:"pool"`
		DepositFee      string `json:"depositFee"`
		DepositFeeAsset string `json:"depositFeeAsset"`
		HarvestFeeRatio uint64 `json:"harvestFeeRatio"`
		HarvestFeeAsset string `json:"harvestFeeAsset"`
	}
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return err
	}
	caller, err := parseAddress("caller", params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return err
	}
	depositFee, err := parseAmount("depositFee", params.DepositFee)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return err
	}
	depositFeeAsset, err := parseAssetAddress("depositFeeAsset", params.DepositFeeAsset)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return err
	}
	harvestFeeAsset, err := parseAssetAddress("harvestFeeAsset", params.HarvestFeeAsset)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return err
	}
	s.syncClock()
	update := farming.PoolFeeUpdate{
		DepositFee:      depositFee,
		DepositFeeAsset: depositFeeAsset,
		HarvestFeeRatio: params.HarvestFeeRatio,
		HarvestFeeAsset: harvestFeeAsset,
	}
	if err := s.engine.SetPoolFees(caller, params.Pool, update); err != nil {
		writeEngineError(w, req.ID, err)
		return err
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
	return nil
}

func (s *Server) handleClosePool(w http.ResponseWriter, req *RPCRequest) error {
	var params struct {
		Caller string `json:"caller"`
		Pool   uint64 `json:"pool"`
	}
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return err
	}
	caller, err := parseAddress("caller", params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return err
	}
	s.syncClock()
	if err := s.engine.ClosePool(caller, params.Pool); err != nil {
		writeEngineError(w, req.ID, err)
		return err
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
	return nil
}

func (s *Server) handleMassUpdate(w http.ResponseWriter, req *RPCRequest) error {
	var params struct {
		Caller string `json:"caller"`
	}
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return err
	}
	caller, err := parseAddress("caller", params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return err
	}
	s.syncClock()
	if err := s.engine.MassUpdate(caller); err != nil {
		writeEngineError(w, req.ID, err)
		return err
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
	return nil
}

func (s *Server) handleAddReward(w http.ResponseWriter, req *RPCRequest) error {
	var params struct {
		Caller string `json:"caller"`
		Pool   uint64 `json:"pool"`
		Amount string `json:"amount"`
		Source string `json:"source"`
	}
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return err
	}
	caller, err := parseAddress("caller", params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return err
	}
	amount, err := parseAmount("reward", params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return err
	}
	source, err := parseAssetAddress("source", params.Source)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return err
	}
	s.syncClock()
	delta, err := s.engine.AddReward(caller, params.Pool, amount, source)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return err
	}
	writeResult(w, req.ID, map[string]string{"rateDelta": delta.Dec()})
	return nil
}

func (s *Server) handleEmergencyStop(w http.ResponseWriter, req *RPCRequest) error {
	var params struct {
		Caller string `json:"caller"`
		Target string `json:"target"`
	}
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return err
	}
	caller, err := parseAddress("caller", params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return err
	}
	target, err := parseAddress("target", params.Target)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return err
	}
	s.syncClock()
	swept, err := s.engine.EmergencyStop(caller, target)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return err
	}
	writeResult(w, req.ID, map[string]string{"swept": swept.Dec()})
	return nil
}

func (s *Server) handleSetAdmin(w http.ResponseWriter, req *RPCRequest) error {
	var params struct {
		Caller string `json:"caller"`
		Next   string `json:"next"`
	}
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return err
	}
	caller, err := parseAddress("caller", params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return err
	}
	next, err := parseAddress("next", params.Next)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return err
	}
	s.syncClock()
	if err := s.engine.SetAdmin(caller, next); err != nil {
		writeEngineError(w, req.ID, err)
		return err
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
	return nil
}

func (s *Server) handleSetHarvestSplit(w http.ResponseWriter, req *RPCRequest) error {
	var params struct {
		Caller       string `json:"caller"`
		BuybackRatio uint64 `json:"buybackRatio"`
		DevRatio     uint64 `json:"devRatio"`
	}
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return err
	}
	caller, err := parseAddress("caller", params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return err
	}
	s.syncClock()
	if err := s.engine.SetHarvestSplit(caller, params.BuybackRatio, params.DevRatio); err != nil {
		writeEngineError(w, req.ID, err)
		return err
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
	return nil
}

// handleSetPaused toggles the ledger pause guard. While engaged every
// state-changing operation is rejected with the paused error code.
func (s *Server) handleSetPaused(w http.ResponseWriter, req *RPCRequest) error {
	var params struct {
		Paused bool `json:"paused"`
	}
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return err
	}
	if s.pauses == nil {
		err := errors.New("pause control not configured")
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, err.Error(), nil)
		return err
	}
	s.pauses.SetPaused(farming.ModuleName, params.Paused)
	s.metrics.SetPause(params.Paused)
	writeResult(w, req.ID, map[string]bool{"paused": params.Paused})
	return nil
}
