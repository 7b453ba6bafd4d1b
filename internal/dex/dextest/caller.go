// Package dextest provides an in-memory contract caller for tests.
package dextest

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"yieldScope/internal/dex"
)

// Pool is the on-chain state served for one pool address.
type Pool struct {
	Factory      common.Address
	Fee          uint64
	Token0       common.Address
	Token1       common.Address
	SqrtPriceX96 *big.Int
}

// Caller answers factory/fee/token0/token1/slot0/balanceOf calls from memory
// and counts calls per method.
type Caller struct {
	mu       sync.Mutex
	pools    map[common.Address]Pool
	balances map[[2]common.Address]*big.Int
	calls    map[string]int
	failures map[string]error
}

func NewCaller() *Caller {
	return &Caller{
		pools:    make(map[common.Address]Pool),
		balances: make(map[[2]common.Address]*big.Int),
		calls:    make(map[string]int),
		failures: make(map[string]error),
	}
}

func (c *Caller) SetPool(addr common.Address, pool Pool) {
	c.mu.Lock()
	c.pools[addr] = pool
	c.mu.Unlock()
}

func (c *Caller) SetBalance(token, holder common.Address, amount *big.Int) {
	c.mu.Lock()
	c.balances[[2]common.Address{token, holder}] = amount
	c.mu.Unlock()
}

// Fail makes every call to method return err until cleared with a nil err.
func (c *Caller) Fail(method string, err error) {
	c.mu.Lock()
	if err == nil {
		delete(c.failures, method)
	} else {
		c.failures[method] = err
	}
	c.mu.Unlock()
}

// Calls returns how many times method was called.
func (c *Caller) Calls(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[method]
}

// TotalCalls returns the number of calls across all methods.
func (c *Caller) TotalCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, n := range c.calls {
		total += n
	}
	return total
}

func (c *Caller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if msg.To == nil || len(msg.Data) < 4 {
		return nil, fmt.Errorf("malformed call")
	}
	poolABI, err := dex.V3PoolABI()
	if err != nil {
		return nil, err
	}
	erc20ABI, err := dex.ERC20ABI()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if method, err := erc20ABI.MethodById(msg.Data[:4]); err == nil {
		c.calls[method.Name]++
		if failure := c.failures[method.Name]; failure != nil {
			return nil, failure
		}
		args, err := method.Inputs.Unpack(msg.Data[4:])
		if err != nil {
			return nil, err
		}
		holder := args[0].(common.Address)
		bal, ok := c.balances[[2]common.Address{*msg.To, holder}]
		if !ok {
			bal = big.NewInt(0)
		}
		return method.Outputs.Pack(bal)
	}

	method, err := poolABI.MethodById(msg.Data[:4])
	if err != nil {
		return nil, err
	}
	c.calls[method.Name]++
	if failure := c.failures[method.Name]; failure != nil {
		return nil, failure
	}
	pool, ok := c.pools[*msg.To]
	if !ok {
		return nil, fmt.Errorf("execution reverted")
	}

	switch method.Name {
	case "factory":
		return method.Outputs.Pack(pool.Factory)
	case "fee":
		return method.Outputs.Pack(new(big.Int).SetUint64(pool.Fee))
	case "token0":
		return method.Outputs.Pack(pool.Token0)
	case "token1":
		return method.Outputs.Pack(pool.Token1)
	case "slot0":
		sqrt := pool.SqrtPriceX96
		if sqrt == nil {
			sqrt = big.NewInt(0)
		}
		return method.Outputs.Pack(sqrt, big.NewInt(0), uint16(0), uint16(0), uint16(0), uint8(0), true)
	default:
		return nil, fmt.Errorf("unsupported method %s", method.Name)
	}
}
