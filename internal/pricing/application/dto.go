package application

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
)

// OptionPriceDTO 定价结果
type OptionPriceDTO struct {
	RequestID     string           `json:"request_id,omitempty"`
	Symbol        string           `json:"symbol,omitempty"`
	OptionType    string           `json:"option_type"`
	PricingModel  string           `json:"pricing_model"`
	ExerciseStyle string           `json:"exercise_style"`
	Price         decimal.Decimal  `json:"price"`
	StandardError *decimal.Decimal `json:"standard_error,omitempty"`
	Steps         int              `json:"steps,omitempty"`
	Simulations   int              `json:"simulations,omitempty"`
	Seed          *uint64          `json:"seed,omitempty"`
	TimeToExpiry  float64          `json:"time_to_expiry"`
}

// GreeksDTO 希腊字母
type GreeksDTO struct {
	Delta decimal.Decimal `json:"delta"`
	Gamma decimal.Decimal `json:"gamma"`
	Theta decimal.Decimal `json:"theta"`
	Vega  decimal.Decimal `json:"vega"`
	Rho   decimal.Decimal `json:"rho"`
}

// ImpliedVolatilityDTO 隐含波动率结果，Found=false 表示市场价超出可达范围
type ImpliedVolatilityDTO struct {
	Found             bool             `json:"found"`
	ImpliedVolatility *decimal.Decimal `json:"implied_volatility"`
	MarketPrice       decimal.Decimal  `json:"market_price"`
	Message           string           `json:"message,omitempty"`
}

// ApproximationDTO 泰勒近似结果
type ApproximationDTO struct {
	OriginalPrice     decimal.Decimal `json:"original_price"`
	ApproximatedPrice decimal.Decimal `json:"approximated_price"`
	EstimatedChange   decimal.Decimal `json:"estimated_change"`
	Greeks            GreeksDTO       `json:"greeks"`
}

// PathSimulationDTO 路径模拟结果
type PathSimulationDTO struct {
	Seed       uint64                `json:"seed"`
	Statistics domain.PathStatistics `json:"statistics"`
	Expected   ExpectedTerminalDTO   `json:"expected"`
	TimeGrid   []float64             `json:"time_grid,omitempty"`
	Paths      [][]float64           `json:"paths,omitempty"`
}

// ExpectedTerminalDTO 终值的解析矩
type ExpectedTerminalDTO struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

// StrategyDTO 策略盈亏画像
type StrategyDTO struct {
	Legs    []domain.OptionLeg      `json:"legs"`
	Profile *domain.StrategyProfile `json:"profile"`
}

// HistoricalVolatilityDTO 历史波动率结果，Rolling 中窗口未满的位置为 null
type HistoricalVolatilityDTO struct {
	Volatility     decimal.Decimal `json:"volatility"`
	PeriodsPerYear float64         `json:"periods_per_year"`
	Observations   int             `json:"observations"`
	Window         int             `json:"window,omitempty"`
	Rolling        []*float64      `json:"rolling,omitempty"`
}

// BatchFailure 批量定价中失败的合约
type BatchFailure struct {
	Index  int    `json:"index"`
	Symbol string `json:"symbol,omitempty"`
	Code   string `json:"code"`
	Error  string `json:"error"`
}

// BatchPricingResult 批量定价结果
type BatchPricingResult struct {
	BatchID      string            `json:"batch_id"`
	Results      []*OptionPriceDTO `json:"results"`
	Failures     []BatchFailure    `json:"failures"`
	SuccessCount int               `json:"success_count"`
	FailureCount int               `json:"failure_count"`
	AverageTime  float64           `json:"average_time_ms"`
}

// toDecimal NaN/Inf 无法表示为 decimal，按 0 处理
func toDecimal(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}

// toDecimalPtr NaN/Inf 返回 nil，序列化为 null
func toDecimalPtr(f float64) *decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	d := decimal.NewFromFloat(f)
	return &d
}

func nullableFloats(xs []float64) []*float64 {
	out := make([]*float64, len(xs))
	for i := range xs {
		if !math.IsNaN(xs[i]) {
			out[i] = &xs[i]
		}
	}
	return out
}

func toGreeksDTO(g domain.Greeks) GreeksDTO {
	return GreeksDTO{
		Delta: toDecimal(g.Delta),
		Gamma: toDecimal(g.Gamma),
		Theta: toDecimal(g.Theta),
		Vega:  toDecimal(g.Vega),
		Rho:   toDecimal(g.Rho),
	}
}
