package application

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
)

// defaultGridPoints 策略盈亏曲线的默认网格点数
const defaultGridPoints = 101

// PricingQueryService 无副作用的分析计算
type PricingQueryService struct {
	*engine
}

// ApproximateRepricing Delta-Gamma-Theta-Vega 近似重定价
func (q *PricingQueryService) ApproximateRepricing(ctx context.Context, cmd ApproximationCommand) (*ApproximationDTO, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	res, err := q.approximate(cmd)
	q.observe(ctx, "approximation", start, err)
	if err != nil {
		return nil, err
	}
	return &ApproximationDTO{
		OriginalPrice:     toDecimal(res.OriginalPrice),
		ApproximatedPrice: toDecimal(res.ApproximatedPrice),
		EstimatedChange:   toDecimal(res.EstimatedChange),
		Greeks:            toGreeksDTO(res.Greeks),
	}, nil
}

func (q *PricingQueryService) approximate(cmd ApproximationCommand) (*domain.RepricingApproximation, error) {
	optionType, err := cmd.optionType()
	if err != nil {
		return nil, err
	}
	p, err := cmd.params(q.now())
	if err != nil {
		return nil, err
	}
	return domain.ApproximateRepricing(p, optionType, cmd.PriceChange, cmd.DaysElapsed, cmd.VolatilityChange)
}

// SimulatePaths 模拟 GBM 路径并汇总统计量
func (q *PricingQueryService) SimulatePaths(ctx context.Context, cmd SimulatePathsCommand) (*PathSimulationDTO, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	dto, err := q.simulatePaths(cmd)
	q.observe(ctx, "simulate_paths", start, err)
	return dto, err
}

func (q *PricingQueryService) simulatePaths(cmd SimulatePathsCommand) (*PathSimulationDTO, error) {
	if cmd.Steps > q.limits.MaxPathSteps {
		return nil, limitExceeded("steps", cmd.Steps, q.limits.MaxPathSteps)
	}
	if cmd.NumPaths > q.limits.MaxPaths {
		return nil, limitExceeded("num_paths", cmd.NumPaths, q.limits.MaxPaths)
	}

	g := domain.GBMParams{S0: cmd.InitialPrice, Mu: cmd.Drift, Sigma: cmd.Volatility, T: cmd.TimeHorizon}
	seed := randomSeed(cmd.Seed)
	paths, err := domain.SimulatePaths(g, cmd.Steps, cmd.NumPaths, q.simulationOptions(seed)...)
	if err != nil {
		return nil, err
	}
	stats, err := domain.SummarizePaths(paths)
	if err != nil {
		return nil, err
	}
	moments := domain.NewLognormalMoments(g.S0, g.Mu, g.Sigma, g.T)

	dto := &PathSimulationDTO{
		Seed:       seed,
		Statistics: stats,
		Expected: ExpectedTerminalDTO{
			Mean:   moments.Mean,
			StdDev: math.Sqrt(moments.Variance),
		},
	}
	if cmd.IncludePaths {
		dto.TimeGrid = domain.Linspace(0, g.T, cmd.Steps+1)
		dto.Paths = paths
	}
	return dto, nil
}

// AnalyzeStrategy 多腿策略到期盈亏分析
func (q *PricingQueryService) AnalyzeStrategy(ctx context.Context, cmd StrategyCommand) (*StrategyDTO, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	dto, err := q.analyzeStrategy(cmd)
	q.observe(ctx, "strategy_payoff", start, err)
	return dto, err
}

func (q *PricingQueryService) analyzeStrategy(cmd StrategyCommand) (*StrategyDTO, error) {
	legs := cmd.Legs
	if len(legs) == 0 {
		var err error
		legs, err = domain.BuildStrategy(domain.StrategyType(strings.ToUpper(cmd.Strategy)), cmd.Strikes, cmd.Premiums)
		if err != nil {
			return nil, err
		}
	}

	points := cmd.Points
	if points == 0 {
		points = defaultGridPoints
	}
	if points < 2 {
		return nil, fmt.Errorf("%w: points=%d must be >= 2", domain.ErrInvalidParameter, points)
	}
	if points > q.limits.MaxGridPoints {
		return nil, limitExceeded("points", points, q.limits.MaxGridPoints)
	}

	lo, hi := cmd.PriceMin, cmd.PriceMax
	if lo == 0 && hi == 0 {
		lo, hi = defaultPriceRange(legs)
	}
	if !(lo > 0 && hi > lo) {
		return nil, fmt.Errorf("%w: price range [%v, %v] must satisfy 0 < min < max", domain.ErrInvalidParameter, lo, hi)
	}

	profile, err := domain.AnalyzeStrategy(legs, domain.Linspace(lo, hi, points))
	if err != nil {
		return nil, err
	}
	return &StrategyDTO{Legs: legs, Profile: profile}, nil
}

// defaultPriceRange 执行价区间向两侧各扩展 50%
func defaultPriceRange(legs []domain.OptionLeg) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, l := range legs {
		lo = math.Min(lo, l.Strike)
		hi = math.Max(hi, l.Strike)
	}
	return 0.5 * lo, 1.5 * hi
}

// AggregatePortfolio 组合希腊字母敞口与 beta 对冲
func (q *PricingQueryService) AggregatePortfolio(ctx context.Context, cmd PortfolioCommand) (*domain.PortfolioExposure, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	var (
		exp *domain.PortfolioExposure
		err error
	)
	if n := len(cmd.Positions); n > q.limits.MaxBatchSize {
		err = limitExceeded("positions", n, q.limits.MaxBatchSize)
	} else {
		exp, err = domain.AggregatePortfolio(cmd.Positions)
	}
	q.observe(ctx, "portfolio_exposure", start, err)
	return exp, err
}

// HistoricalVolatility 收盘价序列的年化波动率
func (q *PricingQueryService) HistoricalVolatility(ctx context.Context, cmd HistoricalVolatilityCommand) (*HistoricalVolatilityDTO, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	dto, err := q.historicalVolatility(cmd)
	q.observe(ctx, "historical_volatility", start, err)
	return dto, err
}

func (q *PricingQueryService) historicalVolatility(cmd HistoricalVolatilityCommand) (*HistoricalVolatilityDTO, error) {
	ppy := cmd.PeriodsPerYear
	if ppy == 0 {
		ppy = domain.PeriodsPerYearDaily
	}
	vol, err := domain.HistoricalVolatility(cmd.Closes, ppy)
	if err != nil {
		return nil, err
	}
	dto := &HistoricalVolatilityDTO{
		Volatility:     toDecimal(vol),
		PeriodsPerYear: ppy,
		Observations:   len(cmd.Closes),
	}
	if cmd.Window > 0 {
		rolling, err := domain.RollingVolatility(cmd.Closes, cmd.Window, ppy)
		if err != nil {
			return nil, err
		}
		dto.Window = cmd.Window
		dto.Rolling = nullableFloats(rolling)
	}
	return dto, nil
}

// randomSeed 未指定种子时随机生成，结果中回传以便复现
func randomSeed(seed *uint64) uint64 {
	if seed != nil {
		return *seed
	}
	return rand.Uint64()
}
