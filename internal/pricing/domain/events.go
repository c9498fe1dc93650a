package domain

import "time"

const (
	OptionPricedEventType     = "OptionPriced"
	GreeksCalculatedEventType = "GreeksCalculated"
	PricingErrorEventType     = "PricingError"
)

// PricingModel 定价模型
type PricingModel string

const (
	PricingModelBlackScholes PricingModel = "BLACK_SCHOLES"
	PricingModelBinomial     PricingModel = "BINOMIAL"
	PricingModelMonteCarlo   PricingModel = "MONTE_CARLO"
)

// OptionPricedEvent 期权定价完成事件
type OptionPricedEvent struct {
	RequestID       string       `json:"request_id"`
	Symbol          string       `json:"symbol"`
	OptionType      OptionType   `json:"option_type"`
	PricingModel    PricingModel `json:"pricing_model"`
	StrikePrice     float64      `json:"strike_price"`
	TimeToExpiry    float64      `json:"time_to_expiry"`
	UnderlyingPrice float64      `json:"underlying_price"`
	Volatility      float64      `json:"volatility"`
	RiskFreeRate    float64      `json:"risk_free_rate"`
	DividendYield   float64      `json:"dividend_yield"`
	OptionPrice     float64      `json:"option_price"`
	StandardError   float64      `json:"standard_error,omitempty"`
	OccurredOn      time.Time    `json:"occurred_on"`
}

// GreeksCalculatedEvent 希腊字母计算完成事件
type GreeksCalculatedEvent struct {
	RequestID       string     `json:"request_id"`
	Symbol          string     `json:"symbol"`
	OptionType      OptionType `json:"option_type"`
	StrikePrice     float64    `json:"strike_price"`
	UnderlyingPrice float64    `json:"underlying_price"`
	Greeks          Greeks     `json:"greeks"`
	OccurredOn      time.Time  `json:"occurred_on"`
}

// PricingErrorEvent 定价错误事件
type PricingErrorEvent struct {
	RequestID  string    `json:"request_id"`
	Symbol     string    `json:"symbol"`
	Operation  string    `json:"operation"`
	ErrorCode  string    `json:"error_code"`
	Error      string    `json:"error"`
	OccurredOn time.Time `json:"occurred_on"`
}
