package application

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
)

// hoursPerYear 到期日换算为年化期限时使用的日历年
const hoursPerYear = 24 * domain.DaysPerYear

// OptionInput 单个期权的市场输入，TimeToExpiry 与 ExpiryDate 二选一
type OptionInput struct {
	Symbol          string
	OptionType      string
	UnderlyingPrice float64
	StrikePrice     float64
	TimeToExpiry    float64    // 年
	ExpiryDate      *time.Time // 到期时刻，已过期按 T=0 处理
	RiskFreeRate    float64
	Volatility      float64
	DividendYield   float64
}

func (in OptionInput) optionType() (domain.OptionType, error) {
	t := domain.OptionType(strings.ToUpper(in.OptionType))
	return t, t.Validate()
}

func (in OptionInput) params(now time.Time) (domain.MarketParameters, error) {
	t := in.TimeToExpiry
	if in.ExpiryDate != nil {
		if t != 0 {
			return domain.MarketParameters{}, fmt.Errorf("%w: time_to_expiry and expiry_date are mutually exclusive", domain.ErrInvalidParameter)
		}
		t = math.Max(in.ExpiryDate.Sub(now).Hours()/hoursPerYear, 0)
	}
	p := domain.MarketParameters{
		S:     in.UnderlyingPrice,
		K:     in.StrikePrice,
		T:     t,
		R:     in.RiskFreeRate,
		Sigma: in.Volatility,
		Q:     in.DividendYield,
	}
	return p, nil
}

// PriceOptionCommand 期权定价命令
type PriceOptionCommand struct {
	OptionInput
	PricingModel  string // BLACK_SCHOLES (默认) | BINOMIAL | MONTE_CARLO
	ExerciseStyle string // 仅 BINOMIAL 支持 AMERICAN
	Steps         int    // 二叉树步数，0 使用默认值
	Simulations   int    // 蒙特卡洛模拟次数，0 使用默认值
	Seed          *uint64
}

// GreeksCommand 希腊字母计算命令
type GreeksCommand struct {
	OptionInput
}

// ImpliedVolatilityCommand 隐含波动率求解命令，OptionInput.Volatility 被忽略
type ImpliedVolatilityCommand struct {
	OptionInput
	MarketPrice float64
}

// ApproximationCommand 泰勒近似重定价命令
type ApproximationCommand struct {
	OptionInput
	PriceChange      float64 // 标的价格变动
	DaysElapsed      float64 // 经过的日历日
	VolatilityChange float64 // 波动率变动 (百分点)
}

// SimulatePathsCommand GBM 路径模拟命令
type SimulatePathsCommand struct {
	InitialPrice float64
	Drift        float64
	Volatility   float64
	TimeHorizon  float64 // 年
	Steps        int
	NumPaths     int
	Seed         *uint64
	IncludePaths bool // 是否在结果中返回完整路径矩阵
}

// StrategyCommand 策略盈亏分析命令
// 提供 Legs 时直接使用；否则按 Strategy + Strikes + Premiums 组装
type StrategyCommand struct {
	Strategy string
	Legs     []domain.OptionLeg
	Strikes  []float64
	Premiums []float64
	PriceMin float64 // 0 表示按执行价自动确定
	PriceMax float64
	Points   int
}

// PortfolioCommand 组合敞口汇总命令
type PortfolioCommand struct {
	Positions []domain.Position
}

// HistoricalVolatilityCommand 历史波动率命令
type HistoricalVolatilityCommand struct {
	Closes         []float64
	PeriodsPerYear float64 // 0 使用日频 252
	Window         int     // >0 时额外返回滚动波动率
}

// BatchPriceOptionsCommand 批量定价命令
type BatchPriceOptionsCommand struct {
	BatchID   string
	Contracts []PriceOptionCommand
}
