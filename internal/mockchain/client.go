// Package mockchain provides a deterministic in-memory stand-in for an
// Ethereum node, used by the scenario harness in place of a real client.
//
// The mock keeps balances, nonces, and chain metadata in memory and
// performs no networking. All amounts are wei as *big.Int; callers must
// not mutate returned values.
package mockchain

import (
	"context"
	"fmt"
	"math/big"
	"sync"
)

// Defaults used by New.
var (
	defaultChainID  = big.NewInt(1337)
	defaultGasPrice = big.NewInt(1_000_000_000) // 1 gwei
)

// Client is the in-memory mock chain. Safe for concurrent use.
type Client struct {
	mu        sync.Mutex
	chainID   *big.Int
	gasPrice  *big.Int
	blockNum  uint64
	balances  map[string]*big.Int
	nonces    map[string]uint64
	snapshots []*state
}

// state is a copied view of the mutable chain state, kept for Revert.
type state struct {
	blockNum uint64
	balances map[string]*big.Int
	nonces   map[string]uint64
}

// ErrInsufficientFunds is returned by Transfer when the sender balance
// cannot cover the value.
type ErrInsufficientFunds struct {
	From    string
	Balance *big.Int
	Value   *big.Int
}

func (e *ErrInsufficientFunds) Error() string {
	return fmt.Sprintf("insufficient funds: %s has %s wei, needs %s", e.From, e.Balance, e.Value)
}

// New creates a mock chain with the default chain ID (1337) and gas
// price (1 gwei), no accounts, at block 0.
func New() *Client {
	return &Client{
		chainID:  new(big.Int).Set(defaultChainID),
		gasPrice: new(big.Int).Set(defaultGasPrice),
		balances: make(map[string]*big.Int),
		nonces:   make(map[string]uint64),
	}
}

// ChainID returns the configured chain ID.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return new(big.Int).Set(c.chainID), nil
}

// SetChainID overrides the chain ID, for scenarios pinning a network.
func (c *Client) SetChainID(id *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chainID = new(big.Int).Set(id)
}

// SuggestGasPrice returns the fixed mock gas price.
func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return new(big.Int).Set(c.gasPrice), nil
}

// SetGasPrice overrides the suggested gas price.
func (c *Client) SetGasPrice(price *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gasPrice = new(big.Int).Set(price)
}

// BlockNumber returns the current block height. Transfer advances it.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.blockNum, nil
}

// BalanceAt returns the wei balance of an address. Unknown addresses
// have balance zero, matching real node behavior.
func (c *Client) BalanceAt(ctx context.Context, addr string) (*big.Int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if b, ok := c.balances[addr]; ok {
		return new(big.Int).Set(b), nil
	}
	return new(big.Int), nil
}

// NonceAt returns the transaction count of an address.
func (c *Client) NonceAt(ctx context.Context, addr string) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nonces[addr], nil
}

// SetBalance sets an address balance directly, bypassing transfer rules.
// Used for scenario genesis state. Negative balances are rejected.
func (c *Client) SetBalance(addr string, wei *big.Int) error {
	if wei.Sign() < 0 {
		return fmt.Errorf("balance must not be negative: %s", wei)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.balances[addr] = new(big.Int).Set(wei)
	return nil
}

// Transfer moves value wei from one address to another, increments the
// sender nonce, and advances the block number. Rejects negative values
// and insufficient sender balance.
func (c *Client) Transfer(ctx context.Context, from, to string, value *big.Int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if value.Sign() < 0 {
		return fmt.Errorf("transfer value must not be negative: %s", value)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	balance, ok := c.balances[from]
	if !ok {
		balance = new(big.Int)
	}
	if balance.Cmp(value) < 0 {
		return &ErrInsufficientFunds{
			From:    from,
			Balance: new(big.Int).Set(balance),
			Value:   new(big.Int).Set(value),
		}
	}

	c.balances[from] = new(big.Int).Sub(balance, value)
	toBalance, ok := c.balances[to]
	if !ok {
		toBalance = new(big.Int)
	}
	c.balances[to] = new(big.Int).Add(toBalance, value)
	c.nonces[from]++
	c.blockNum++
	return nil
}

// Snapshot saves the current chain state and returns its index.
func (c *Client) Snapshot() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.snapshots = append(c.snapshots, &state{
		blockNum: c.blockNum,
		balances: copyBalances(c.balances),
		nonces:   copyNonces(c.nonces),
	})
	return len(c.snapshots) - 1
}

// Revert restores the state saved at the given snapshot index and drops
// that snapshot and any taken after it.
func (c *Client) Revert(id int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if id < 0 || id >= len(c.snapshots) {
		return fmt.Errorf("unknown snapshot %d", id)
	}
	s := c.snapshots[id]
	c.blockNum = s.blockNum
	c.balances = copyBalances(s.balances)
	c.nonces = copyNonces(s.nonces)
	c.snapshots = c.snapshots[:id]
	return nil
}

func copyBalances(m map[string]*big.Int) map[string]*big.Int {
	out := make(map[string]*big.Int, len(m))
	for k, v := range m {
		out[k] = new(big.Int).Set(v)
	}
	return out
}

func copyNonces(m map[string]uint64) map[string]uint64 {
	out := make(map[string]uint64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
