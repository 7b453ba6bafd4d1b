package model

import "strings"

// QuoteTokens lists the tokens whose amounts can be valued: the wrapped
// native token (priced through the oracle) and stable tokens (face value).
type QuoteTokens struct {
	Native  string
	Stables map[string]struct{}
}

func NewQuoteTokens(native string, stables []string) QuoteTokens {
	q := QuoteTokens{
		Native:  strings.ToLower(strings.TrimSpace(native)),
		Stables: make(map[string]struct{}, len(stables)),
	}
	for _, s := range stables {
		q.Stables[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
	}
	return q
}

func (q QuoteTokens) isQuote(token string) bool {
	if token == "" {
		return false
	}
	if token == q.Native {
		return true
	}
	_, ok := q.Stables[token]
	return ok
}

// Side picks the pool side to value, token0 first. SideNone means neither
// token is a quote token.
func (q QuoteTokens) Side(p PoolInfo) Side {
	switch {
	case q.isQuote(p.Token0):
		return Side0
	case q.isQuote(p.Token1):
		return Side1
	default:
		return SideNone
	}
}

// IsNative reports whether token is the wrapped native token.
func (q QuoteTokens) IsNative(token string) bool {
	return token != "" && token == q.Native
}

// Liquidity returns the chosen side's liquidity in the common unit.
func (q QuoteTokens) Liquidity(p PoolInfo, side Side, nativePrice float64) float64 {
	liq := float64(p.Liquidity(side))
	if q.IsNative(p.Token(side)) {
		liq *= nativePrice
	}
	return liq
}
