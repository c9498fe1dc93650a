package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulatePaths_Shape(t *testing.T) {
	g := GBMParams{S0: 100, Mu: 0.08, Sigma: 0.25, T: 1}
	paths, err := SimulatePaths(g, 252, 500, WithSeed(7))
	require.NoError(t, err)

	require.Len(t, paths, 500)
	for _, path := range paths {
		require.Len(t, path, 253)
		assert.Equal(t, 100.0, path[0])
		for _, v := range path {
			assert.Positive(t, v)
		}
	}
}

func TestSimulatePaths_Deterministic(t *testing.T) {
	g := GBMParams{S0: 50, Mu: 0.03, Sigma: 0.4, T: 0.5}
	a, err := SimulatePaths(g, 20, 300, WithSeed(42), WithWorkers(1))
	require.NoError(t, err)
	b, err := SimulatePaths(g, 20, 300, WithSeed(42), WithWorkers(8))
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := SimulatePaths(g, 20, 300, WithSeed(43))
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestSimulatePaths_ZeroVolatility(t *testing.T) {
	g := GBMParams{S0: 100, Mu: 0.05, Sigma: 0, T: 2}
	paths, err := SimulatePaths(g, 4, 3, WithSeed(1))
	require.NoError(t, err)

	grid := Linspace(0, 2, 5)
	for _, path := range paths {
		for j, v := range path {
			assert.InDelta(t, 100*math.Exp(0.05*grid[j]), v, 1e-9)
		}
	}
}

func TestSimulatePaths_TerminalMoments(t *testing.T) {
	g := GBMParams{S0: 100, Mu: 0.08, Sigma: 0.2, T: 1}
	paths, err := SimulatePaths(g, 10, 20000, WithSeed(2024))
	require.NoError(t, err)

	stats, err := SummarizePaths(paths)
	require.NoError(t, err)
	want := NewLognormalMoments(g.S0, g.Mu, g.Sigma, g.T)
	assert.InDelta(t, want.Mean, stats.MeanFinal, 1.0)
	assert.InDelta(t, math.Sqrt(want.Variance), stats.StdDevFinal, 1.0)
}

func TestSimulatePaths_InvalidInputs(t *testing.T) {
	g := GBMParams{S0: 100, Mu: 0.05, Sigma: 0.2, T: 1}
	_, err := SimulatePaths(g, 0, 10)
	assert.ErrorIs(t, err, ErrInvalidParameter)
	_, err = SimulatePaths(g, 10, 0)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	bad := g
	bad.S0 = -1
	_, err = SimulatePaths(bad, 10, 10)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	bad = g
	bad.Sigma = -0.1
	_, err = SimulatePaths(bad, 10, 10)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	bad = g
	bad.T = 0
	_, err = SimulatePaths(bad, 10, 10)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	bad = g
	bad.Sigma = math.Inf(1)
	_, err = SimulatePaths(bad, 10, 10)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	bad = g
	bad.S0 = math.Inf(1)
	_, err = SimulatePaths(bad, 10, 10)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestSummarizePaths(t *testing.T) {
	paths := [][]float64{
		{100, 110, 120},
		{100, 90, 80},
		{100, 100, 100},
	}
	stats, err := SummarizePaths(paths)
	require.NoError(t, err)

	assert.InDelta(t, 100.0, stats.MeanFinal, 1e-12)
	assert.InDelta(t, math.Sqrt(800.0/3), stats.StdDevFinal, 1e-12)
	assert.InDelta(t, 80.4, stats.Percentile1, 1e-12)
	assert.InDelta(t, 119.6, stats.Percentile99, 1e-12)
	assert.Equal(t, 120.0, stats.MaxPrice)
	assert.Equal(t, 80.0, stats.MinPrice)
	assert.Equal(t, 3, stats.NumPaths)
	assert.Equal(t, 2, stats.StepsPerPath)

	_, err = SummarizePaths(nil)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestPercentile(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5}
	assert.Equal(t, 1.0, Percentile(sorted, 0))
	assert.Equal(t, 3.0, Percentile(sorted, 50))
	assert.Equal(t, 5.0, Percentile(sorted, 100))
	assert.InDelta(t, 1.4, Percentile(sorted, 10), 1e-12)
	assert.True(t, math.IsNaN(Percentile(nil, 50)))
}

func TestMonteCarloPrice_MatchesBlackScholes(t *testing.T) {
	res, err := MonteCarloPrice(atm(), 100000, OptionTypeCall, WithSeed(42))
	require.NoError(t, err)

	assert.Equal(t, 100000, res.Simulations)
	assert.Equal(t, uint64(42), res.Seed)
	assert.Positive(t, res.StandardError)
	// 标准误约为 std(payoff)/√n ≈ 0.047
	assert.Less(t, res.StandardError, 0.1)
	assert.InDelta(t, 10.450583572185565, res.Estimate, 3*res.StandardError)
}

func TestMonteCarloPrice_Deterministic(t *testing.T) {
	p := atm()
	p.Q = 0.01
	a, err := MonteCarloPrice(p, 30000, OptionTypePut, WithSeed(9), WithWorkers(1))
	require.NoError(t, err)
	b, err := MonteCarloPrice(p, 30000, OptionTypePut, WithSeed(9), WithWorkers(16))
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := MonteCarloPrice(p, 30000, OptionTypePut, WithSeed(10))
	require.NoError(t, err)
	assert.NotEqual(t, a.Estimate, c.Estimate)
}

func TestMonteCarloPrice_UnseededReportsSeed(t *testing.T) {
	a, err := MonteCarloPrice(atm(), 1000, OptionTypeCall)
	require.NoError(t, err)
	b, err := MonteCarloPrice(atm(), 1000, OptionTypeCall, WithSeed(a.Seed))
	require.NoError(t, err)
	assert.Equal(t, a.Estimate, b.Estimate)
}

func TestMonteCarloPrice_InvalidInputs(t *testing.T) {
	_, err := MonteCarloPrice(atm(), 0, OptionTypeCall)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	p := atm()
	p.T = 0
	_, err = MonteCarloPrice(p, 100, OptionTypeCall)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = MonteCarloPrice(atm(), 100, OptionType("FORWARD"))
	assert.ErrorIs(t, err, ErrInvalidOptionType)
}

func TestRunningMoments_MergeMatchesSequential(t *testing.T) {
	xs := []float64{3, 1, 4, 1, 5, 9, 2, 6, 5, 3, 5}
	var seq runningMoments
	for _, x := range xs {
		seq.add(x)
	}

	var left, right, merged runningMoments
	for _, x := range xs[:4] {
		left.add(x)
	}
	for _, x := range xs[4:] {
		right.add(x)
	}
	merged.merge(left)
	merged.merge(right)

	assert.Equal(t, seq.n, merged.n)
	assert.InDelta(t, seq.mean, merged.mean, 1e-12)
	assert.InDelta(t, seq.m2, merged.m2, 1e-9)
}
