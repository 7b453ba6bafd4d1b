package model

// PoolInfo is the tracked metadata of a swap pool.
type PoolInfo struct {
	Protocol        string `json:"protocol"`
	Pool            string `json:"pool"`
	Factory         string `json:"factory"`
	Token0          string `json:"token0"`
	Token1          string `json:"token1"`
	Fee             uint64 `json:"fee"`
	Token0Liquidity uint64 `json:"token0_liquidity"`
	Token1Liquidity uint64 `json:"token1_liquidity"`
	Timestamp       uint64 `json:"timestamp"`
}

// IsFresh reports whether the liquidity fields are younger than ttl seconds.
func (p PoolInfo) IsFresh(now, ttl uint64) bool {
	if now < p.Timestamp {
		return true
	}
	return now-p.Timestamp < ttl
}

// Side identifies one token of a pool pair.
type Side int

const (
	SideNone Side = iota
	Side0
	Side1
)

// Token returns the token address of the given side.
func (p PoolInfo) Token(side Side) string {
	switch side {
	case Side0:
		return p.Token0
	case Side1:
		return p.Token1
	default:
		return ""
	}
}

// Liquidity returns the decimal-adjusted balance of the given side.
func (p PoolInfo) Liquidity(side Side) uint64 {
	switch side {
	case Side0:
		return p.Token0Liquidity
	case Side1:
		return p.Token1Liquidity
	default:
		return 0
	}
}
