package model

import (
	"encoding/json"
	"fmt"
)

// VolumeBucket is the volume accumulated in one minute for a pool.
// It is encoded as the JSON pair [minute, amount].
type VolumeBucket struct {
	Minute uint64
	Amount uint64
}

// MarshalJSON encodes the bucket as a two element array.
func (b VolumeBucket) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]uint64{b.Minute, b.Amount})
}

// UnmarshalJSON decodes a [minute, amount] pair.
func (b *VolumeBucket) UnmarshalJSON(data []byte) error {
	var pair []uint64
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("volume bucket: expected 2 values, got %d", len(pair))
	}
	b.Minute = pair[0]
	b.Amount = pair[1]
	return nil
}
