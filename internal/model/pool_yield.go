package model

// PoolYield is one row of the yield ranking.
type PoolYield struct {
	Pool           string  `json:"pool"`
	Protocol       string  `json:"protocol"`
	Token          string  `json:"token"`
	Fee            uint64  `json:"fee"`
	Volume         float64 `json:"volume"`
	Liquidity      float64 `json:"liquidity"`
	FeeRatePerHour float64 `json:"fee_rate_per_hour"`
}
