package domain

import (
	"fmt"
	"math"
)

// InstrumentKind 持仓品种
type InstrumentKind string

const (
	InstrumentKindOption InstrumentKind = "OPTION"
	InstrumentKindStock  InstrumentKind = "STOCK"
)

// Multiplier 期权按合约乘数放大，股票为 1
func (k InstrumentKind) Multiplier() (float64, error) {
	switch k {
	case InstrumentKindOption:
		return ContractMultiplier, nil
	case InstrumentKindStock:
		return 1, nil
	default:
		return 0, fmt.Errorf("%w: instrument kind %q", ErrInvalidParameter, string(k))
	}
}

// Position 组合中的一个持仓，希腊字母为单位 (每股) 值
// Quantity 为合约张数或股数，负数表示空头
type Position struct {
	Symbol   string         `json:"symbol"`
	Kind     InstrumentKind `json:"kind"`
	Quantity float64        `json:"quantity"`
	Delta    float64        `json:"delta"`
	Gamma    float64        `json:"gamma"`
	Theta    float64        `json:"theta"`
	Vega     float64        `json:"vega"`
	Beta     float64        `json:"beta"` // 相对基准指数，0 视为未知并按 1 处理
}

// PositionExposure 单个持仓的敞口
type PositionExposure struct {
	Symbol            string  `json:"symbol"`
	TotalDelta        float64 `json:"total_delta"`
	BetaWeightedDelta float64 `json:"beta_weighted_delta"`
	TotalGamma        float64 `json:"total_gamma"`
	TotalTheta        float64 `json:"total_theta"`
	TotalVega         float64 `json:"total_vega"`
}

// PortfolioExposure 组合层面的加权汇总
type PortfolioExposure struct {
	Positions         []PositionExposure `json:"positions"`
	TotalDelta        float64            `json:"total_delta"`
	BetaWeightedDelta float64            `json:"beta_weighted_delta"`
	TotalGamma        float64            `json:"total_gamma"`
	TotalTheta        float64            `json:"total_theta"`
	TotalVega         float64            `json:"total_vega"`
	HedgeShares       float64            `json:"hedge_shares"` // 基准指数对冲股数，负数为卖出
}

// AggregatePortfolio 汇总组合敞口：各项 = 单位希腊字母 × 数量 × 乘数
func AggregatePortfolio(positions []Position) (*PortfolioExposure, error) {
	if len(positions) == 0 {
		return nil, fmt.Errorf("%w: empty portfolio", ErrInvalidParameter)
	}
	out := &PortfolioExposure{Positions: make([]PositionExposure, 0, len(positions))}
	for i, pos := range positions {
		mult, err := pos.Kind.Multiplier()
		if err != nil {
			return nil, fmt.Errorf("position %d: %w", i, err)
		}
		beta := pos.Beta
		if beta == 0 {
			beta = 1
		}
		scale := pos.Quantity * mult
		e := PositionExposure{
			Symbol:     pos.Symbol,
			TotalDelta: pos.Delta * scale,
			TotalGamma: pos.Gamma * scale,
			TotalTheta: pos.Theta * scale,
			TotalVega:  pos.Vega * scale,
		}
		e.BetaWeightedDelta = e.TotalDelta * beta

		out.Positions = append(out.Positions, e)
		out.TotalDelta += e.TotalDelta
		out.BetaWeightedDelta += e.BetaWeightedDelta
		out.TotalGamma += e.TotalGamma
		out.TotalTheta += e.TotalTheta
		out.TotalVega += e.TotalVega
	}
	out.HedgeShares = -math.Round(out.BetaWeightedDelta)
	if out.HedgeShares == 0 {
		out.HedgeShares = 0 // 避免 -0
	}
	return out, nil
}

// Beta 资产收益对市场收益的 beta = cov(a, m) / var(m)
func Beta(assetReturns, marketReturns []float64) (float64, error) {
	n := len(assetReturns)
	if n < 2 || n != len(marketReturns) {
		return math.NaN(), fmt.Errorf("%w: need two equal-length return series of at least 2 points", ErrInvalidParameter)
	}
	var ma, mm float64
	for i := range n {
		ma += assetReturns[i]
		mm += marketReturns[i]
	}
	ma /= float64(n)
	mm /= float64(n)

	var cov, variance float64
	for i := range n {
		da := assetReturns[i] - ma
		dm := marketReturns[i] - mm
		cov += da * dm
		variance += dm * dm
	}
	if variance == 0 {
		return math.NaN(), fmt.Errorf("%w: market returns have zero variance", ErrInvalidParameter)
	}
	return cov / variance, nil
}
