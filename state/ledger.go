package state

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"farmchain/storage"
)

const balanceKeyPrefix = "balance/"

func balanceKey(asset, account common.Address) []byte {
	return []byte(fmt.Sprintf("%s%s/%s", balanceKeyPrefix, strings.ToLower(asset.Hex()), strings.ToLower(account.Hex())))
}

// TokenLedger tracks per-account balances for one asset in the key-value
// store. Transfers are all-or-nothing: a short balance reports failure
// without moving anything.
type TokenLedger struct {
	manager *Manager
	asset   common.Address
}

func (l *TokenLedger) getBalance(account common.Address) (*uint256.Int, error) {
	raw, err := l.manager.db.Get(balanceKey(l.asset, account))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return uint256.NewInt(0), nil
	}
	if err != nil {
		return nil, err
	}
	return parseAmount("balance", string(raw))
}

func (l *TokenLedger) setBalance(account common.Address, amount *uint256.Int) error {
	return l.manager.db.Put(balanceKey(l.asset, account), []byte(amount.Dec()))
}

// BalanceOf returns the stored balance for the account.
func (l *TokenLedger) BalanceOf(account common.Address) (*uint256.Int, error) {
	l.manager.mu.RLock()
	defer l.manager.mu.RUnlock()
	return l.getBalance(account)
}

func (l *TokenLedger) move(from, to common.Address, amount *uint256.Int) (bool, error) {
	if amount == nil || amount.IsZero() {
		return true, nil
	}
	l.manager.mu.Lock()
	defer l.manager.mu.Unlock()
	fromBalance, err := l.getBalance(from)
	if err != nil {
		return false, err
	}
	if fromBalance.Cmp(amount) < 0 {
		return false, nil
	}
	toBalance, err := l.getBalance(to)
	if err != nil {
		return false, err
	}
	newTo, overflow := new(uint256.Int).AddOverflow(toBalance, amount)
	if overflow {
		return false, fmt.Errorf("state: balance overflow for %s", to.Hex())
	}
	if err := l.setBalance(from, new(uint256.Int).Sub(fromBalance, amount)); err != nil {
		return false, err
	}
	return true, l.setBalance(to, newTo)
}

// Transfer moves value out of the module vault.
func (l *TokenLedger) Transfer(to common.Address, amount *uint256.Int) (bool, error) {
	return l.move(l.manager.vault, to, amount)
}

// TransferFrom moves value between arbitrary accounts.
func (l *TokenLedger) TransferFrom(from, to common.Address, amount *uint256.Int) (bool, error) {
	return l.move(from, to, amount)
}

// Credit mints amount of asset onto the account. Used for genesis seeding
// and operator funding of the reward budget.
func (m *Manager) Credit(asset, account common.Address, amount *uint256.Int) error {
	if m == nil || m.db == nil {
		return errors.New("state: manager not configured")
	}
	if amount == nil || amount.IsZero() {
		return nil
	}
	ledger := &TokenLedger{manager: m, asset: asset}
	m.mu.Lock()
	defer m.mu.Unlock()
	balance, err := ledger.getBalance(account)
	if err != nil {
		return err
	}
	updated, overflow := new(uint256.Int).AddOverflow(balance, amount)
	if overflow {
		return fmt.Errorf("state: balance overflow for %s", account.Hex())
	}
	return ledger.setBalance(account, updated)
}
