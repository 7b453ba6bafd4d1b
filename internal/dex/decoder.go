package dex

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

const (
	ProtocolUniswapV3     = "UniswapV3"
	ProtocolPancakeSwapV3 = "PancakeSwapV3"

	UniswapV3SwapTopic     = "0xc42079f94a6350d7e6235f29174924f928cc2ac818eb64fed8004e115fbcca67"
	PancakeSwapV3SwapTopic = "0x19b47279256b2a23a1665c810c8d55a1758940ee09377d4f8d26497a3577dc83"
)

// ContractCaller performs read-only contract calls.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// DefaultSwapTopics returns the built-in topic0 -> protocol table.
func DefaultSwapTopics() map[string]string {
	return map[string]string{
		UniswapV3SwapTopic:     ProtocolUniswapV3,
		PancakeSwapV3SwapTopic: ProtocolPancakeSwapV3,
	}
}

// SwapEvent is a classified and decoded swap log.
type SwapEvent struct {
	Protocol string
	Pool     common.Address
	TxHash   common.Hash
	Amount0  *big.Int
	Amount1  *big.Int
}

// SwapDecoder recognizes swap logs by topic0 and decodes their amounts.
type SwapDecoder struct {
	topicToProtocol map[string]string
}

// NewSwapDecoder builds a decoder from a topic0 -> protocol mapping.
func NewSwapDecoder(topics map[string]string) (*SwapDecoder, error) {
	table := make(map[string]string, len(topics))
	for topic, protocol := range topics {
		topic = strings.ToLower(strings.TrimSpace(topic))
		protocol = strings.TrimSpace(protocol)
		if protocol == "" {
			return nil, fmt.Errorf("empty protocol for topic %s", topic)
		}
		data, err := hexutil.Decode(topic)
		if err != nil {
			return nil, fmt.Errorf("invalid swap topic: %s", topic)
		}
		if len(data) != common.HashLength {
			return nil, fmt.Errorf("invalid swap topic length: %s", topic)
		}
		table[topic] = protocol
	}
	if len(table) == 0 {
		return nil, fmt.Errorf("swap topic table is empty")
	}
	return &SwapDecoder{topicToProtocol: table}, nil
}

// Classify returns the protocol tag of a log, or false when it is not a swap.
func (d *SwapDecoder) Classify(log *types.Log) (string, bool) {
	if log == nil || len(log.Topics) == 0 {
		return "", false
	}
	protocol, ok := d.topicToProtocol[strings.ToLower(log.Topics[0].Hex())]
	return protocol, ok
}

// Decode classifies a log and decodes its amounts. ok is false for logs that
// are not swaps; an error is returned only for matched logs with a bad payload.
func (d *SwapDecoder) Decode(log *types.Log) (SwapEvent, bool, error) {
	protocol, ok := d.Classify(log)
	if !ok {
		return SwapEvent{}, false, nil
	}
	amount0, amount1, err := DecodeSwapAmounts(log.Data)
	if err != nil {
		return SwapEvent{}, true, fmt.Errorf("decode swap %s in tx %s: %w", log.Address.Hex(), log.TxHash.Hex(), err)
	}
	return SwapEvent{
		Protocol: protocol,
		Pool:     log.Address,
		TxHash:   log.TxHash,
		Amount0:  amount0,
		Amount1:  amount1,
	}, true, nil
}
