package dex

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
)

// PoolIdentity holds the immutable fields read from a pool contract.
type PoolIdentity struct {
	Fee    uint64
	Token0 common.Address
	Token1 common.Address
}

// PoolReader reads pool and token state through eth_call.
type PoolReader struct {
	caller ContractCaller
}

func NewPoolReader(caller ContractCaller) *PoolReader {
	return &PoolReader{caller: caller}
}

// Factory returns the factory that deployed the pool.
func (r *PoolReader) Factory(ctx context.Context, pool common.Address) (common.Address, error) {
	poolABI, err := V3PoolABI()
	if err != nil {
		return common.Address{}, fmt.Errorf("parse pool abi: %w", err)
	}
	values, err := r.call(ctx, pool, poolABI, "factory")
	if err != nil {
		return common.Address{}, err
	}
	factory, err := asAddress(values[0])
	if err != nil {
		return common.Address{}, fmt.Errorf("factory: %w", err)
	}
	return factory, nil
}

// Identity reads fee, token0 and token1 concurrently.
func (r *PoolReader) Identity(ctx context.Context, pool common.Address) (PoolIdentity, error) {
	poolABI, err := V3PoolABI()
	if err != nil {
		return PoolIdentity{}, fmt.Errorf("parse pool abi: %w", err)
	}

	var id PoolIdentity
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		values, err := r.call(gctx, pool, poolABI, "fee")
		if err != nil {
			return err
		}
		fee, err := asBigInt(values[0])
		if err != nil {
			return fmt.Errorf("fee: %w", err)
		}
		id.Fee = fee.Uint64()
		return nil
	})
	g.Go(func() error {
		values, err := r.call(gctx, pool, poolABI, "token0")
		if err != nil {
			return err
		}
		id.Token0, err = asAddress(values[0])
		if err != nil {
			return fmt.Errorf("token0: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		values, err := r.call(gctx, pool, poolABI, "token1")
		if err != nil {
			return err
		}
		id.Token1, err = asAddress(values[0])
		if err != nil {
			return fmt.Errorf("token1: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return PoolIdentity{}, err
	}
	if id.Token0 == id.Token1 {
		return PoolIdentity{}, fmt.Errorf("pool %s reports identical tokens %s", pool.Hex(), id.Token0.Hex())
	}
	return id, nil
}

// BalanceOf returns the raw ERC-20 balance of holder.
func (r *PoolReader) BalanceOf(ctx context.Context, token, holder common.Address) (*big.Int, error) {
	erc20ABI, err := ERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	values, err := r.call(ctx, token, erc20ABI, "balanceOf", holder)
	if err != nil {
		return nil, err
	}
	bal, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("balanceOf unexpected type %T", values[0])
	}
	return bal, nil
}

// Balances fetches the pool's own balance of both tokens concurrently.
func (r *PoolReader) Balances(ctx context.Context, pool, token0, token1 common.Address) (*big.Int, *big.Int, error) {
	var bal0, bal1 *big.Int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		bal0, err = r.BalanceOf(gctx, token0, pool)
		return err
	})
	g.Go(func() error {
		var err error
		bal1, err = r.BalanceOf(gctx, token1, pool)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return bal0, bal1, nil
}

// SqrtPriceX96 returns the current sqrt price from slot0.
func (r *PoolReader) SqrtPriceX96(ctx context.Context, pool common.Address) (*big.Int, error) {
	poolABI, err := V3PoolABI()
	if err != nil {
		return nil, fmt.Errorf("parse pool abi: %w", err)
	}
	values, err := r.call(ctx, pool, poolABI, "slot0")
	if err != nil {
		return nil, err
	}
	sqrt, err := asBigInt(values[0])
	if err != nil {
		return nil, fmt.Errorf("slot0 sqrtPriceX96: %w", err)
	}
	return sqrt, nil
}

func (r *PoolReader) call(ctx context.Context, to common.Address, parsed abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	if r.caller == nil {
		return nil, fmt.Errorf("contract caller is nil")
	}
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &to, Data: data}
	resp, err := r.caller.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s on %s: %w", method, to.Hex(), err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%s returned no values", method)
	}
	return values, nil
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case int32:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}
