package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregatePortfolio(t *testing.T) {
	positions := []Position{
		{Symbol: "AAPL-C-200", Kind: InstrumentKindOption, Quantity: 10, Delta: 0.5, Gamma: 0.02, Theta: -0.05, Vega: 0.2, Beta: 1.2},
		{Symbol: "AAPL", Kind: InstrumentKindStock, Quantity: -300, Delta: 1, Beta: 1.2},
	}
	exp, err := AggregatePortfolio(positions)
	require.NoError(t, err)

	require.Len(t, exp.Positions, 2)
	assert.InDelta(t, 500.0, exp.Positions[0].TotalDelta, 1e-9)
	assert.InDelta(t, -300.0, exp.Positions[1].TotalDelta, 1e-9)

	assert.InDelta(t, 200.0, exp.TotalDelta, 1e-9)
	assert.InDelta(t, 240.0, exp.BetaWeightedDelta, 1e-9)
	assert.InDelta(t, 20.0, exp.TotalGamma, 1e-9)
	assert.InDelta(t, -50.0, exp.TotalTheta, 1e-9)
	assert.InDelta(t, 200.0, exp.TotalVega, 1e-9)
	assert.Equal(t, -240.0, exp.HedgeShares)
}

func TestAggregatePortfolio_DefaultBetaAndFlatHedge(t *testing.T) {
	exp, err := AggregatePortfolio([]Position{
		{Symbol: "SPY", Kind: InstrumentKindStock, Quantity: 100, Delta: 1},
		{Symbol: "SPY-P", Kind: InstrumentKindOption, Quantity: 2, Delta: -0.5},
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, exp.BetaWeightedDelta, 1e-9)
	assert.Equal(t, 0.0, exp.HedgeShares)
	assert.False(t, math.Signbit(exp.HedgeShares))
}

func TestAggregatePortfolio_Invalid(t *testing.T) {
	_, err := AggregatePortfolio(nil)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = AggregatePortfolio([]Position{{Symbol: "X", Kind: "FUTURE", Quantity: 1}})
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestBeta(t *testing.T) {
	market := []float64{0.01, -0.02, 0.03, 0.0, -0.005}
	asset := make([]float64, len(market))
	for i, m := range market {
		asset[i] = 2*m + 0.001
	}
	b, err := Beta(asset, market)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, b, 1e-12)

	_, err = Beta(asset, market[:3])
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = Beta([]float64{0.1, 0.2}, []float64{0.01, 0.01})
	assert.ErrorIs(t, err, ErrInvalidParameter)
}
