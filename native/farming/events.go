package farming

import (
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"farmchain/core/types"
)

const (
	EventTypeDeposited          = "farming.deposited"
	EventTypeWithdrawn          = "farming.withdrawn"
	EventTypeEmergencyWithdrawn = "farming.emergency_withdrawn"
	EventTypeHarvested          = "farming.harvested"
	EventTypePoolCreated        = "farming.pool.created"
	EventTypeScheduleUpdated    = "farming.pool.schedule_updated"
	EventTypePoolClosed         = "farming.pool.closed"
	EventTypeFeesUpdated        = "farming.pool.fees_updated"
	EventTypeRewardAdded        = "farming.pool.reward_added"
	EventTypeAdminRotated       = "farming.admin.rotated"
	EventTypeHarvestSplitSet    = "farming.harvest_split.updated"
	EventTypeStopped            = "farming.stopped"
)

func eventAddr(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}

func eventAmount(v *uint256.Int) string {
	return zeroIfNil(v).Dec()
}

func poolAttributes(pool *Pool) map[string]string {
	attrs := make(map[string]string)
	if pool == nil {
		return attrs
	}
	attrs["pool"] = strconv.FormatUint(pool.ID, 10)
	attrs["depositAsset"] = eventAddr(pool.DepositAsset)
	return attrs
}

// NewDepositedEvent records a deposit together with the reward paid out by
// the implicit pre-mutation harvest.
func NewDepositedEvent(pool *Pool, user common.Address, amount, fee, rewardPaid *uint256.Int) *types.Event {
	attrs := poolAttributes(pool)
	attrs["user"] = eventAddr(user)
	attrs["amount"] = eventAmount(amount)
	attrs["depositFee"] = eventAmount(fee)
	attrs["rewardPaid"] = eventAmount(rewardPaid)
	return &types.Event{Type: EventTypeDeposited, Attributes: attrs}
}

// NewWithdrawnEvent records a stake withdrawal and the settled reward.
func NewWithdrawnEvent(pool *Pool, user common.Address, amount, rewardPaid *uint256.Int) *types.Event {
	attrs := poolAttributes(pool)
	attrs["user"] = eventAddr(user)
	attrs["amount"] = eventAmount(amount)
	attrs["rewardPaid"] = eventAmount(rewardPaid)
	return &types.Event{Type: EventTypeWithdrawn, Attributes: attrs}
}

// NewEmergencyWithdrawnEvent records a principal recovery that forfeited
// any pending reward.
func NewEmergencyWithdrawnEvent(pool *Pool, user common.Address, amount *uint256.Int) *types.Event {
	attrs := poolAttributes(pool)
	attrs["user"] = eventAddr(user)
	attrs["amount"] = eventAmount(amount)
	return &types.Event{Type: EventTypeEmergencyWithdrawn, Attributes: attrs}
}

// NewHarvestedEvent records a harvest; the paid amount may be zero.
func NewHarvestedEvent(pool *Pool, user common.Address, rewardPaid, fee *uint256.Int) *types.Event {
	attrs := poolAttributes(pool)
	attrs["user"] = eventAddr(user)
	attrs["rewardPaid"] = eventAmount(rewardPaid)
	attrs["harvestFee"] = eventAmount(fee)
	return &types.Event{Type: EventTypeHarvested, Attributes: attrs}
}

// NewPoolCreatedEvent records the full schedule of a freshly created pool.
func NewPoolCreatedEvent(pool *Pool) *types.Event {
	attrs := poolAttributes(pool)
	attrs["rewardPerBlock"] = eventAmount(pool.RewardPerBlock)
	attrs["startTime"] = strconv.FormatUint(pool.StartTime, 10)
	attrs["endTime"] = strconv.FormatUint(pool.EndTime, 10)
	attrs["depositFee"] = eventAmount(pool.DepositFee)
	attrs["depositFeeAsset"] = eventAddr(pool.DepositFeeAsset)
	attrs["harvestFeeRatio"] = strconv.FormatUint(pool.HarvestFeeRatio, 10)
	attrs["harvestFeeAsset"] = eventAddr(pool.HarvestFeeAsset)
	return &types.Event{Type: EventTypePoolCreated, Attributes: attrs}
}

// NewScheduleUpdatedEvent records a rate or window change.
func NewScheduleUpdatedEvent(pool *Pool) *types.Event {
	attrs := poolAttributes(pool)
	attrs["rewardPerBlock"] = eventAmount(pool.RewardPerBlock)
	attrs["startTime"] = strconv.FormatUint(pool.StartTime, 10)
	attrs["endTime"] = strconv.FormatUint(pool.EndTime, 10)
	return &types.Event{Type: EventTypeScheduleUpdated, Attributes: attrs}
}

// NewPoolClosedEvent records a forced end of accrual.
func NewPoolClosedEvent(pool *Pool, closedAt uint64) *types.Event {
	attrs := poolAttributes(pool)
	attrs["closedAt"] = strconv.FormatUint(closedAt, 10)
	return &types.Event{Type: EventTypePoolClosed, Attributes: attrs}
}

// NewFeesUpdatedEvent records the fee schedule now in force for the pool.
func NewFeesUpdatedEvent(pool *Pool) *types.Event {
	attrs := poolAttributes(pool)
	attrs["depositFee"] = eventAmount(pool.DepositFee)
	attrs["depositFeeAsset"] = eventAddr(pool.DepositFeeAsset)
	attrs["harvestFeeRatio"] = strconv.FormatUint(pool.HarvestFeeRatio, 10)
	attrs["harvestFeeAsset"] = eventAddr(pool.HarvestFeeAsset)
	return &types.Event{Type: EventTypeFeesUpdated, Attributes: attrs}
}

// NewRewardAddedEvent records a reward budget top-up.
func NewRewardAddedEvent(pool *Pool, rateDelta, total *uint256.Int) *types.Event {
	attrs := poolAttributes(pool)
	attrs["rateDelta"] = eventAmount(rateDelta)
	attrs["totalAdded"] = eventAmount(total)
	attrs["rewardPerBlock"] = eventAmount(pool.RewardPerBlock)
	return &types.Event{Type: EventTypeRewardAdded, Attributes: attrs}
}

// NewAdminRotatedEvent records an administrator handover.
func NewAdminRotatedEvent(previous, next common.Address) *types.Event {
	return &types.Event{Type: EventTypeAdminRotated, Attributes: map[string]string{
		"previous": eventAddr(previous),
		"next":     eventAddr(next),
	}}
}

// NewHarvestSplitSetEvent records the new two-way harvest fee split.
func NewHarvestSplitSetEvent(buybackRatio, devRatio uint64) *types.Event {
	return &types.Event{Type: EventTypeHarvestSplitSet, Attributes: map[string]string{
		"buybackRatio": strconv.FormatUint(buybackRatio, 10),
		"devRatio":     strconv.FormatUint(devRatio, 10),
	}}
}

// NewStoppedEvent records an emergency stop and the swept reward balance.
func NewStoppedEvent(target common.Address, swept *uint256.Int) *types.Event {
	return &types.Event{Type: EventTypeStopped, Attributes: map[string]string{
		"target": eventAddr(target),
		"swept":  eventAmount(swept),
	}}
}
