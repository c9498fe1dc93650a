package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func payoffAt(t *testing.T, l OptionLeg, price float64) float64 {
	t.Helper()
	v, err := l.Payoff(price)
	require.NoError(t, err)
	return v
}

func TestOptionLeg_Payoff(t *testing.T) {
	longCall := OptionLeg{Type: OptionTypeCall, Side: PositionSideLong, Strike: 100, Premium: 5, Quantity: 2}
	assert.InDelta(t, (15.0-5)*2*100, payoffAt(t, longCall, 115), 1e-9)
	assert.InDelta(t, -5.0*2*100, payoffAt(t, longCall, 90), 1e-9)

	shortPut := OptionLeg{Type: OptionTypePut, Side: PositionSideShort, Strike: 100, Premium: 4, Quantity: 1}
	assert.InDelta(t, 400.0, payoffAt(t, shortPut, 120), 1e-9)
	assert.InDelta(t, -600.0, payoffAt(t, shortPut, 90), 1e-9)
}

func TestOptionLeg_StockPayoff(t *testing.T) {
	longStock := OptionLeg{Kind: LegKindStock, Side: PositionSideLong, Strike: 100, Quantity: 100}
	require.NoError(t, longStock.Validate())
	assert.InDelta(t, 2000.0, payoffAt(t, longStock, 120), 1e-9)
	assert.InDelta(t, -500.0, payoffAt(t, longStock, 95), 1e-9)

	shortStock := OptionLeg{Kind: LegKindStock, Side: PositionSideShort, Strike: 50, Quantity: 10}
	assert.InDelta(t, 50.0, payoffAt(t, shortStock, 45), 1e-9)
	assert.InDelta(t, -100.0, payoffAt(t, shortStock, 60), 1e-9)
}

func TestOptionLeg_ValueBeforeExpiry(t *testing.T) {
	far := OptionLeg{
		Type: OptionTypeCall, Side: PositionSideLong, Strike: 100, Premium: 4.5, Quantity: 1,
		TimeToExpiry: 0.25, Volatility: 0.2, RiskFreeRate: 0.05,
	}
	require.NoError(t, far.Validate())

	v, err := far.Value(100)
	require.NoError(t, err)
	assert.InDelta(t, 4.614997129602855, v, 1e-9)

	// 未到期期权价值不低于其内在价值的贴现下界
	for _, s := range []float64{80, 100, 120} {
		v, err := far.Value(s)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, v, s-100*math.Exp(-0.05*0.25)-1e-9, "spot %v", s)
	}

	// 波动率越高，未到期腿的盈亏越高
	calm := far
	calm.Volatility = 0.1
	stressed := far
	stressed.Volatility = 0.6
	assert.Greater(t, payoffAt(t, stressed, 100), payoffAt(t, far, 100))
	assert.Greater(t, payoffAt(t, far, 100), payoffAt(t, calm, 100))
}

func TestAnalyzeStrategy_CalendarSpread(t *testing.T) {
	legs := []OptionLeg{
		{Type: OptionTypeCall, Side: PositionSideShort, Strike: 100, Premium: 2, Quantity: 1},
		{
			Type: OptionTypeCall, Side: PositionSideLong, Strike: 100, Premium: 4.5, Quantity: 1,
			TimeToExpiry: 0.25, Volatility: 0.2, RiskFreeRate: 0.05,
		},
	}
	profile, err := AnalyzeStrategy(legs, Linspace(70, 130, 61))
	require.NoError(t, err)

	// 近月到期于平值时远月保留全部时间价值
	assert.Equal(t, 100.0, profile.MaxProfitPrice)
	assert.InDelta(t, 200+(4.614997129602855-4.5)*100, profile.MaxProfit, 1e-9)
	require.Len(t, profile.Breakevens, 2)
	assert.Less(t, profile.Breakevens[0], 100.0)
	assert.Greater(t, profile.Breakevens[1], 100.0)
	// 两端亏损有限，趋近于净权利金支出
	assert.GreaterOrEqual(t, profile.MaxLoss, -250.0)
}

func TestBuildStrategy_CoveredCall(t *testing.T) {
	legs, err := BuildStrategy(StrategyTypeCoveredCall, []float64{100, 105}, []float64{3})
	require.NoError(t, err)
	require.Len(t, legs, 2)
	assert.True(t, legs[0].IsStock())
	assert.Equal(t, 100, legs[0].Quantity)
	assert.Equal(t, PositionSideShort, legs[1].Side)

	payoffs, err := StrategyPayoff(legs, []float64{80, 97, 105, 120})
	require.NoError(t, err)
	assert.InDelta(t, -1700.0, payoffs[0], 1e-9)
	assert.InDelta(t, 0.0, payoffs[1], 1e-9)
	assert.InDelta(t, 800.0, payoffs[2], 1e-9)
	assert.InDelta(t, 800.0, payoffs[3], 1e-9)
}

func TestBuildStrategy_ProtectivePut(t *testing.T) {
	legs, err := BuildStrategy(StrategyTypeProtectivePut, []float64{100, 95}, []float64{2})
	require.NoError(t, err)

	profile, err := AnalyzeStrategy(legs, Linspace(60, 140, 81))
	require.NoError(t, err)
	assert.InDelta(t, -700.0, profile.MaxLoss, 1e-9)
	assert.InDelta(t, 3800.0, profile.MaxProfit, 1e-9)
	assert.Equal(t, []float64{102}, profile.Breakevens)
}

func TestBuildStrategy_RatioPutSpread(t *testing.T) {
	legs, err := BuildStrategy(StrategyTypeRatioPutSpread, []float64{95, 100}, []float64{1.5, 4})
	require.NoError(t, err)
	assert.Equal(t, OptionLeg{Type: OptionTypePut, Side: PositionSideShort, Strike: 95, Premium: 1.5, Quantity: 2}, legs[0])
	assert.Equal(t, OptionLeg{Type: OptionTypePut, Side: PositionSideLong, Strike: 100, Premium: 4, Quantity: 1}, legs[1])

	profile, err := AnalyzeStrategy(legs, Linspace(80, 110, 31))
	require.NoError(t, err)
	assert.InDelta(t, 400.0, profile.MaxProfit, 1e-9)
	assert.Equal(t, 95.0, profile.MaxProfitPrice)
	assert.InDelta(t, -1100.0, profile.MaxLoss, 1e-9)
	assert.Equal(t, 80.0, profile.MaxLossPrice)
	assert.Equal(t, []float64{91, 99}, profile.Breakevens)
}

func TestBuildStrategy_PutBackspread(t *testing.T) {
	legs, err := BuildStrategy(StrategyTypePutBackspread, []float64{95, 105}, []float64{2, 6})
	require.NoError(t, err)
	assert.Equal(t, PositionSideLong, legs[0].Side)
	assert.Equal(t, 2, legs[0].Quantity)
	assert.Equal(t, PositionSideShort, legs[1].Side)

	profile, err := AnalyzeStrategy(legs, Linspace(70, 120, 51))
	require.NoError(t, err)
	assert.InDelta(t, -800.0, profile.MaxLoss, 1e-9)
	assert.Equal(t, 95.0, profile.MaxLossPrice)
	assert.InDelta(t, 1700.0, profile.MaxProfit, 1e-9)
	assert.Equal(t, []float64{87, 103}, profile.Breakevens)
}

func TestAnalyzeStrategy_BullCallSpread(t *testing.T) {
	legs, err := BuildStrategy(StrategyTypeBullCallSpread, []float64{95, 105}, []float64{7, 3})
	require.NoError(t, err)
	require.Len(t, legs, 2)

	profile, err := AnalyzeStrategy(legs, Linspace(80, 120, 41))
	require.NoError(t, err)

	assert.InDelta(t, 600.0, profile.MaxProfit, 1e-9)
	assert.InDelta(t, -400.0, profile.MaxLoss, 1e-9)
	assert.Equal(t, 80.0, profile.MaxLossPrice)
	assert.Equal(t, 105.0, profile.MaxProfitPrice)
	require.Len(t, profile.Breakevens, 1)
	assert.InDelta(t, 99.0, profile.Breakevens[0], 1e-9)
}

func TestAnalyzeStrategy_Straddle(t *testing.T) {
	legs, err := BuildStrategy(StrategyTypeStraddle, []float64{100, 100}, []float64{5, 5})
	require.NoError(t, err)

	profile, err := AnalyzeStrategy(legs, Linspace(80, 120, 41))
	require.NoError(t, err)

	assert.InDelta(t, -1000.0, profile.MaxLoss, 1e-9)
	assert.Equal(t, 100.0, profile.MaxLossPrice)
	require.Len(t, profile.Breakevens, 2)
	assert.InDelta(t, 90.0, profile.Breakevens[0], 1e-9)
	assert.InDelta(t, 110.0, profile.Breakevens[1], 1e-9)
}

func TestAnalyzeStrategy_InterpolatedBreakeven(t *testing.T) {
	legs := []OptionLeg{{Type: OptionTypeCall, Side: PositionSideLong, Strike: 100, Premium: 2.5, Quantity: 1}}
	profile, err := AnalyzeStrategy(legs, []float64{100, 105})
	require.NoError(t, err)
	require.Len(t, profile.Breakevens, 1)
	assert.InDelta(t, 102.5, profile.Breakevens[0], 1e-9)
}

func TestBuildStrategy_Butterfly(t *testing.T) {
	legs, err := BuildStrategy(StrategyTypeButterfly, []float64{90, 100, 110}, []float64{12, 5, 1.5})
	require.NoError(t, err)
	require.Len(t, legs, 3)
	assert.Equal(t, PositionSideShort, legs[1].Side)
	assert.Equal(t, 2, legs[1].Quantity)

	payoffs, err := StrategyPayoff(legs, []float64{80, 100, 120})
	require.NoError(t, err)
	assert.InDelta(t, -350.0, payoffs[0], 1e-9)
	assert.InDelta(t, 650.0, payoffs[1], 1e-9)
	assert.InDelta(t, -350.0, payoffs[2], 1e-9)
}

func TestBuildStrategy_IronCondor(t *testing.T) {
	legs, err := BuildStrategy(StrategyTypeIronCondor, []float64{80, 90, 110, 120}, []float64{1, 3, 3, 1})
	require.NoError(t, err)
	require.Len(t, legs, 4)

	// 净收权利金 4，两翼最大亏损 10-4
	payoffs, err := StrategyPayoff(legs, []float64{70, 100, 130})
	require.NoError(t, err)
	assert.InDelta(t, -600.0, payoffs[0], 1e-9)
	assert.InDelta(t, 400.0, payoffs[1], 1e-9)
	assert.InDelta(t, -600.0, payoffs[2], 1e-9)
}

func TestBuildStrategy_Invalid(t *testing.T) {
	_, err := BuildStrategy(StrategyType("COLLAR"), []float64{100}, []float64{1})
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = BuildStrategy(StrategyTypeBullCallSpread, []float64{100}, []float64{1})
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = BuildStrategy(StrategyTypeLongCall, []float64{-1}, []float64{1})
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = BuildStrategy(StrategyTypeCoveredCall, []float64{100, 105}, []float64{0, 3})
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestStrategyPayoff_InvalidLegs(t *testing.T) {
	_, err := StrategyPayoff(nil, []float64{100})
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = StrategyPayoff([]OptionLeg{{Type: OptionTypeCall, Side: "FLAT", Strike: 100, Quantity: 1}}, []float64{100})
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = StrategyPayoff([]OptionLeg{{Type: OptionTypeCall, Side: PositionSideLong, Strike: 100, Quantity: 0}}, []float64{100})
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = AnalyzeStrategy([]OptionLeg{{Type: OptionTypeCall, Side: PositionSideLong, Strike: 100, Quantity: 1}}, nil)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = StrategyPayoff([]OptionLeg{{Kind: "FUTURE", Side: PositionSideLong, Strike: 100, Quantity: 1}}, []float64{100})
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = StrategyPayoff([]OptionLeg{{Kind: LegKindStock, Side: PositionSideLong, Strike: 100, Premium: 1, Quantity: 1}}, []float64{100})
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = StrategyPayoff([]OptionLeg{{Type: OptionTypePut, Side: PositionSideLong, Strike: 100, Quantity: 1, TimeToExpiry: 0.5}}, []float64{100})
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = StrategyPayoff([]OptionLeg{{Type: OptionTypePut, Side: PositionSideLong, Strike: 100, Quantity: 1, TimeToExpiry: -1, Volatility: 0.2}}, []float64{100})
	assert.ErrorIs(t, err, ErrInvalidParameter)

	timed := OptionLeg{Type: OptionTypePut, Side: PositionSideLong, Strike: 100, Quantity: 1, TimeToExpiry: 0.5, Volatility: 0.2}
	_, err = StrategyPayoff([]OptionLeg{timed}, []float64{0})
	assert.ErrorIs(t, err, ErrInvalidParameter)
}
