package domain

import (
	"fmt"
	"math"
)

// ContractMultiplier 每张期权合约对应的标的数量
const ContractMultiplier = 100.0

// PositionSide 持仓方向
type PositionSide string

const (
	PositionSideLong  PositionSide = "LONG"  // 买入
	PositionSideShort PositionSide = "SHORT" // 卖出
)

func (s PositionSide) sign() (float64, error) {
	switch s {
	case PositionSideLong:
		return 1, nil
	case PositionSideShort:
		return -1, nil
	default:
		return 0, fmt.Errorf("%w: position side %q", ErrInvalidParameter, string(s))
	}
}

// StrategyType 策略类型
type StrategyType string

const (
	StrategyTypeLongCall        StrategyType = "LONG_CALL"
	StrategyTypeLongPut         StrategyType = "LONG_PUT"
	StrategyTypeBullCallSpread  StrategyType = "BULL_CALL_SPREAD"
	StrategyTypeBearPutSpread   StrategyType = "BEAR_PUT_SPREAD"
	StrategyTypeStraddle        StrategyType = "STRADDLE"
	StrategyTypeStrangle        StrategyType = "STRANGLE"
	StrategyTypeIronCondor      StrategyType = "IRON_CONDOR"
	StrategyTypeButterfly       StrategyType = "BUTTERFLY"
	StrategyTypeRatioCallSpread StrategyType = "RATIO_CALL_SPREAD"
	StrategyTypeCallBackspread  StrategyType = "CALL_BACKSPREAD"
	StrategyTypeRatioPutSpread  StrategyType = "RATIO_PUT_SPREAD"
	StrategyTypePutBackspread   StrategyType = "PUT_BACKSPREAD"
	StrategyTypeCoveredCall     StrategyType = "COVERED_CALL"
	StrategyTypeProtectivePut   StrategyType = "PROTECTIVE_PUT"
)

// LegKind 策略腿的资产类型
type LegKind string

const (
	LegKindOption LegKind = "OPTION" // 期权，空值等同于 OPTION
	LegKindStock  LegKind = "STOCK"  // 标的股票
)

// OptionLeg 策略中的单个头寸
//
// 股票腿: Strike 为建仓价，Quantity 为股数，不收付权利金，盈亏为 sign*(S-Strike)*Quantity
// 期权腿: Quantity 为合约张数；TimeToExpiry>0 时表示分析时点该腿尚未到期，
// 按 BlackScholesPrice(S, Strike, TimeToExpiry, RiskFreeRate, Volatility) 估值而非内在价值
type OptionLeg struct {
	Kind         LegKind      `json:"kind,omitempty"`
	Type         OptionType   `json:"type,omitempty"`
	Side         PositionSide `json:"side"`
	Strike       float64      `json:"strike"`
	Premium      float64      `json:"premium"`  // 每股权利金
	Quantity     int          `json:"quantity"` // 合约张数或股数
	TimeToExpiry float64      `json:"time_to_expiry,omitempty"`
	Volatility   float64      `json:"volatility,omitempty"`
	RiskFreeRate float64      `json:"risk_free_rate,omitempty"`
}

// IsStock 是否为股票腿
func (l OptionLeg) IsStock() bool { return l.Kind == LegKindStock }

// Validate 校验单腿参数
func (l OptionLeg) Validate() error {
	switch l.Kind {
	case "", LegKindOption, LegKindStock:
	default:
		return fmt.Errorf("%w: leg kind %q", ErrInvalidParameter, string(l.Kind))
	}
	if _, err := l.Side.sign(); err != nil {
		return err
	}
	switch {
	case !(l.Strike > 0) || isInf(l.Strike):
		return invalidParam("strike", l.Strike, "must be finite and > 0")
	case l.Quantity <= 0:
		return fmt.Errorf("%w: quantity=%d must be > 0", ErrInvalidParameter, l.Quantity)
	}
	if l.IsStock() {
		if l.Premium != 0 || l.TimeToExpiry != 0 || l.Volatility != 0 {
			return fmt.Errorf("%w: stock leg takes no premium, time_to_expiry or volatility", ErrInvalidParameter)
		}
		return nil
	}

	if err := l.Type.Validate(); err != nil {
		return err
	}
	if !(l.Premium >= 0) || isInf(l.Premium) {
		return invalidParam("premium", l.Premium, "must be finite and >= 0")
	}
	if l.TimeToExpiry == 0 {
		return nil
	}
	return l.marketParameters(l.Strike).validateStrict()
}

func (l OptionLeg) marketParameters(price float64) MarketParameters {
	return MarketParameters{S: price, K: l.Strike, T: l.TimeToExpiry, R: l.RiskFreeRate, Sigma: l.Volatility}
}

// Value 标的价格为 price 时该腿的每股价值: 股票为价格本身，
// 已到期期权为内在价值，未到期期权为 BSM 理论价
func (l OptionLeg) Value(price float64) (float64, error) {
	switch {
	case l.IsStock():
		return price, nil
	case l.TimeToExpiry > 0:
		return BlackScholesPrice(l.marketParameters(price), l.Type)
	default:
		return IntrinsicValue(price, l.Strike, l.Type), nil
	}
}

// Payoff 标的价格为 price 时该腿的盈亏 (含建仓成本，期权乘以合约乘数)
func (l OptionLeg) Payoff(price float64) (float64, error) {
	sign, err := l.Side.sign()
	if err != nil {
		return 0, err
	}
	v, err := l.Value(price)
	if err != nil {
		return 0, err
	}
	if l.IsStock() {
		return sign * (v - l.Strike) * float64(l.Quantity), nil
	}
	return sign * (v - l.Premium) * float64(l.Quantity) * ContractMultiplier, nil
}

// StrategyPayoff 多腿策略在各标的价格下的总盈亏
func StrategyPayoff(legs []OptionLeg, prices []float64) ([]float64, error) {
	if len(legs) == 0 {
		return nil, fmt.Errorf("%w: strategy has no legs", ErrInvalidParameter)
	}
	for i, leg := range legs {
		if err := leg.Validate(); err != nil {
			return nil, fmt.Errorf("leg %d: %w", i, err)
		}
	}
	out := make([]float64, len(prices))
	for i, s := range prices {
		for j, leg := range legs {
			v, err := leg.Payoff(s)
			if err != nil {
				return nil, fmt.Errorf("leg %d at price %v: %w", j, s, err)
			}
			out[i] += v
		}
	}
	return out, nil
}

// StrategyProfile 策略在价格网格上的盈亏画像
type StrategyProfile struct {
	Prices         []float64 `json:"prices"`
	Payoffs        []float64 `json:"payoffs"`
	MaxProfit      float64   `json:"max_profit"`
	MaxProfitPrice float64   `json:"max_profit_price"`
	MaxLoss        float64   `json:"max_loss"`
	MaxLossPrice   float64   `json:"max_loss_price"`
	Breakevens     []float64 `json:"breakevens"`
}

// AnalyzeStrategy 计算盈亏曲线、网格上的最大盈利/亏损及盈亏平衡点
// 盈亏平衡点在相邻网格点符号变化处线性插值
func AnalyzeStrategy(legs []OptionLeg, prices []float64) (*StrategyProfile, error) {
	if len(prices) == 0 {
		return nil, fmt.Errorf("%w: empty price grid", ErrInvalidParameter)
	}
	payoffs, err := StrategyPayoff(legs, prices)
	if err != nil {
		return nil, err
	}

	profile := &StrategyProfile{
		Prices:     prices,
		Payoffs:    payoffs,
		MaxProfit:  math.Inf(-1),
		MaxLoss:    math.Inf(1),
		Breakevens: []float64{},
	}
	for i, v := range payoffs {
		if v > profile.MaxProfit {
			profile.MaxProfit, profile.MaxProfitPrice = v, prices[i]
		}
		if v < profile.MaxLoss {
			profile.MaxLoss, profile.MaxLossPrice = v, prices[i]
		}
		if i == 0 {
			if v == 0 {
				profile.Breakevens = append(profile.Breakevens, prices[i])
			}
			continue
		}
		prev := payoffs[i-1]
		switch {
		case v == 0:
			profile.Breakevens = append(profile.Breakevens, prices[i])
		case prev != 0 && (prev < 0) != (v < 0):
			x0, x1 := prices[i-1], prices[i]
			profile.Breakevens = append(profile.Breakevens, x0+(x1-x0)*(-prev)/(v-prev))
		}
	}
	return profile, nil
}

// BuildStrategy 按类型组装常见策略，strikes 自低到高，premiums 与 strikes 一一对应
// COVERED_CALL/PROTECTIVE_PUT 例外: strikes 为 [股票建仓价, 期权执行价]，premiums 仅含期权权利金，
// 股票腿为 100 股，对应 1 张期权
func BuildStrategy(kind StrategyType, strikes, premiums []float64) ([]OptionLeg, error) {
	type shape struct{ strikes, premiums int }
	need := map[StrategyType]shape{
		StrategyTypeLongCall:        {1, 1},
		StrategyTypeLongPut:         {1, 1},
		StrategyTypeBullCallSpread:  {2, 2},
		StrategyTypeBearPutSpread:   {2, 2},
		StrategyTypeStraddle:        {2, 2},
		StrategyTypeStrangle:        {2, 2},
		StrategyTypeIronCondor:      {4, 4},
		StrategyTypeButterfly:       {3, 3},
		StrategyTypeRatioCallSpread: {2, 2},
		StrategyTypeCallBackspread:  {2, 2},
		StrategyTypeRatioPutSpread:  {2, 2},
		StrategyTypePutBackspread:   {2, 2},
		StrategyTypeCoveredCall:     {2, 1},
		StrategyTypeProtectivePut:   {2, 1},
	}
	n, ok := need[kind]
	if !ok {
		return nil, fmt.Errorf("%w: strategy type %q", ErrInvalidParameter, string(kind))
	}
	if len(strikes) != n.strikes || len(premiums) != n.premiums {
		return nil, fmt.Errorf("%w: %s needs %d strikes and %d premiums", ErrInvalidParameter, kind, n.strikes, n.premiums)
	}

	leg := func(t OptionType, side PositionSide, i, qty int) OptionLeg {
		return OptionLeg{Type: t, Side: side, Strike: strikes[i], Premium: premiums[i], Quantity: qty}
	}
	call, put := OptionTypeCall, OptionTypePut
	long, short := PositionSideLong, PositionSideShort
	// 股票 + 单张期权
	hedged := func(t OptionType, side PositionSide) []OptionLeg {
		return []OptionLeg{
			{Kind: LegKindStock, Side: long, Strike: strikes[0], Quantity: int(ContractMultiplier)},
			{Kind: LegKindOption, Type: t, Side: side, Strike: strikes[1], Premium: premiums[0], Quantity: 1},
		}
	}

	var legs []OptionLeg
	switch kind {
	case StrategyTypeLongCall:
		legs = []OptionLeg{leg(call, long, 0, 1)}
	case StrategyTypeLongPut:
		legs = []OptionLeg{leg(put, long, 0, 1)}
	case StrategyTypeBullCallSpread:
		legs = []OptionLeg{leg(call, long, 0, 1), leg(call, short, 1, 1)}
	case StrategyTypeBearPutSpread:
		legs = []OptionLeg{leg(put, short, 0, 1), leg(put, long, 1, 1)}
	case StrategyTypeStraddle:
		legs = []OptionLeg{leg(call, long, 0, 1), leg(put, long, 1, 1)}
	case StrategyTypeStrangle:
		legs = []OptionLeg{leg(put, long, 0, 1), leg(call, long, 1, 1)}
	case StrategyTypeIronCondor:
		legs = []OptionLeg{leg(put, long, 0, 1), leg(put, short, 1, 1), leg(call, short, 2, 1), leg(call, long, 3, 1)}
	case StrategyTypeButterfly:
		legs = []OptionLeg{leg(call, long, 0, 1), leg(call, short, 1, 2), leg(call, long, 2, 1)}
	case StrategyTypeRatioCallSpread:
		legs = []OptionLeg{leg(call, long, 0, 1), leg(call, short, 1, 2)}
	case StrategyTypeCallBackspread:
		legs = []OptionLeg{leg(call, short, 0, 1), leg(call, long, 1, 2)}
	case StrategyTypeRatioPutSpread:
		legs = []OptionLeg{leg(put, short, 0, 2), leg(put, long, 1, 1)}
	case StrategyTypePutBackspread:
		legs = []OptionLeg{leg(put, long, 0, 2), leg(put, short, 1, 1)}
	case StrategyTypeCoveredCall:
		legs = hedged(call, short)
	case StrategyTypeProtectivePut:
		legs = hedged(put, long)
	}
	for i, l := range legs {
		if err := l.Validate(); err != nil {
			return nil, fmt.Errorf("leg %d: %w", i, err)
		}
	}
	return legs, nil
}
