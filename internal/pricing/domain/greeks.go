package domain

import (
	"fmt"
	"math"
)

// 希腊字母的单位约定
//   - Theta 按日历日计，年化值除以 365
//   - Vega 按波动率变动 1 个百分点计，除以 100
//   - Rho 按利率变动 1 个百分点计，除以 100
const (
	DaysPerYear     = 365.0
	PercentagePoint = 100.0
)

// Greeks 希腊字母
type Greeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"` // 每日
	Vega  float64 `json:"vega"`  // 每 1% 波动率
	Rho   float64 `json:"rho"`   // 每 1% 利率
}

// CalculateGreeks 计算 Delta/Gamma/Theta/Vega/Rho，与 BlackScholesPrice 共享 d1/d2
// 要求 T>0；Delta 不含 e^{-qT} 因子，q 仅通过 d1/d2 进入
func CalculateGreeks(p MarketParameters, optionType OptionType) (Greeks, error) {
	if err := optionType.Validate(); err != nil {
		return Greeks{}, err
	}
	if err := p.validateStrict(); err != nil {
		return Greeks{}, err
	}
	g := newBSMTerms(p).greeks(p, optionType)
	if err := g.checkFinite(); err != nil {
		return Greeks{}, err
	}
	return g, nil
}

// checkFinite 任一希腊字母溢出为 NaN/Inf 时返回 ErrNumericInstability
func (g Greeks) checkFinite() error {
	for _, v := range [...]float64{g.Delta, g.Gamma, g.Theta, g.Vega, g.Rho} {
		if !isFinite(v) {
			return fmt.Errorf("%w: greeks=%+v", ErrNumericInstability, g)
		}
	}
	return nil
}

func (m bsmTerms) greeks(p MarketParameters, optionType OptionType) Greeks {
	pdf := NormPDF(m.d1)
	decay := -p.S * pdf * p.Sigma / (2 * m.sqrtT)

	g := Greeks{
		Gamma: pdf / (p.S * p.Sigma * m.sqrtT),
		Vega:  p.S * pdf * m.sqrtT / PercentagePoint,
	}
	if optionType == OptionTypeCall {
		g.Delta = NormCDF(m.d1)
		g.Theta = (decay - p.R*p.K*m.discountR*NormCDF(m.d2)) / DaysPerYear
		g.Rho = p.K * p.T * m.discountR * NormCDF(m.d2) / PercentagePoint
	} else {
		g.Delta = NormCDF(m.d1) - 1
		g.Theta = (decay + p.R*p.K*m.discountR*NormCDF(-m.d2)) / DaysPerYear
		g.Rho = -p.K * p.T * m.discountR * NormCDF(-m.d2) / PercentagePoint
	}
	return g
}

// RepricingApproximation Delta-Gamma-Theta-Vega 二阶近似结果
type RepricingApproximation struct {
	OriginalPrice     float64 `json:"original_price"`
	ApproximatedPrice float64 `json:"approximated_price"`
	EstimatedChange   float64 `json:"estimated_change"`
	Greeks            Greeks  `json:"greeks"`
}

// ApproximateRepricing 用泰勒展开估计参数变动后的期权价格
//
//	ΔV ≈ Δ·dS + ½·Γ·dS² + Θ·dT + Vega·dSigma
//
// 单位与希腊字母一致：dT 以天为单位 (正值表示时间流逝)，dSigma 以百分点为单位
// (例如 -5 表示波动率下降 5 个百分点)，不是年和小数
func ApproximateRepricing(p MarketParameters, optionType OptionType, dS, dT, dSigma float64) (*RepricingApproximation, error) {
	if err := optionType.Validate(); err != nil {
		return nil, err
	}
	if err := p.validateStrict(); err != nil {
		return nil, err
	}
	for name, v := range map[string]float64{"dS": dS, "dT": dT, "dSigma": dSigma} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, invalidParam(name, v, "must be finite")
		}
	}

	terms := newBSMTerms(p)
	original := terms.price(p, optionType)
	if !isFinite(original) {
		return nil, fmt.Errorf("%w: price=%v", ErrNumericInstability, original)
	}
	g := terms.greeks(p, optionType)
	if err := g.checkFinite(); err != nil {
		return nil, err
	}
	change := g.Delta*dS + 0.5*g.Gamma*dS*dS + g.Theta*dT + g.Vega*dSigma
	if !isFinite(change) {
		return nil, fmt.Errorf("%w: estimated_change=%v", ErrNumericInstability, change)
	}

	return &RepricingApproximation{
		OriginalPrice:     original,
		ApproximatedPrice: original + change,
		EstimatedChange:   change,
		Greeks:            g,
	}, nil
}
