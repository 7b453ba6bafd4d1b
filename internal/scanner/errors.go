package scanner

import "fmt"

// BlockError is a failure while processing one block.
type BlockError struct {
	BlockNumber uint64
	Err         error
}

func (e *BlockError) Error() string {
	return fmt.Sprintf("block %d: %v", e.BlockNumber, e.Err)
}

func (e *BlockError) Unwrap() error {
	return e.Err
}
