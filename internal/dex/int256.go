package dex

import (
	"errors"
	"fmt"
	"math/big"
)

const wordSize = 32

var (
	// ErrShortPayload is returned when a swap payload holds fewer than two words.
	ErrShortPayload = errors.New("swap payload shorter than 64 bytes")
	// ErrAmountOutOfRange is returned for amounts that do not fit in a signed 128-bit integer.
	ErrAmountOutOfRange = errors.New("swap amount outside int128 range")

	maxInt128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
	minInt128 = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
)

// Int256FromWord interprets a 32-byte big-endian word as a signed 256-bit
// two's-complement integer.
func Int256FromWord(word []byte) (*big.Int, error) {
	if len(word) != wordSize {
		return nil, fmt.Errorf("int256 word must be %d bytes, got %d", wordSize, len(word))
	}
	if word[0]&0x80 == 0 {
		return new(big.Int).SetBytes(word), nil
	}

	// negative: magnitude is the bitwise complement plus one
	inverted := make([]byte, wordSize)
	for i, b := range word {
		inverted[i] = ^b
	}
	magnitude := new(big.Int).SetBytes(inverted)
	magnitude.Add(magnitude, big.NewInt(1))
	return magnitude.Neg(magnitude), nil
}

// FitsInt128 reports whether v is within the signed 128-bit range.
func FitsInt128(v *big.Int) bool {
	return v.Cmp(minInt128) >= 0 && v.Cmp(maxInt128) <= 0
}

// DecodeSwapAmounts decodes amount0 and amount1 from the first two words of a
// swap payload. Negative values are token outflow from the pool.
func DecodeSwapAmounts(data []byte) (*big.Int, *big.Int, error) {
	if len(data) < 2*wordSize {
		return nil, nil, fmt.Errorf("%w: got %d", ErrShortPayload, len(data))
	}
	amount0, err := Int256FromWord(data[:wordSize])
	if err != nil {
		return nil, nil, err
	}
	amount1, err := Int256FromWord(data[wordSize : 2*wordSize])
	if err != nil {
		return nil, nil, err
	}
	if !FitsInt128(amount0) {
		return nil, nil, fmt.Errorf("amount0 %s: %w", amount0, ErrAmountOutOfRange)
	}
	if !FitsInt128(amount1) {
		return nil, nil, fmt.Errorf("amount1 %s: %w", amount1, ErrAmountOutOfRange)
	}
	return amount0, amount1, nil
}
