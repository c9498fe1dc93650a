package domain

import (
	"fmt"
	"math"
)

// 隐含波动率搜索区间与容差
const (
	ImpliedVolLowerBound = 0.001
	ImpliedVolUpperBound = 5.0
	ImpliedVolPriceTol   = 1e-8
	impliedVolMaxIter    = 200
)

// bsmTerms 一次计算、在定价与希腊字母之间共享的中间量
type bsmTerms struct {
	d1, d2    float64
	sqrtT     float64
	discountR float64 // e^{-rT}
	discountQ float64 // e^{-qT}
}

func newBSMTerms(p MarketParameters) bsmTerms {
	sqrtT := math.Sqrt(p.T)
	volSqrtT := p.Sigma * sqrtT
	d1 := (math.Log(p.S/p.K) + (p.R-p.Q+0.5*p.Sigma*p.Sigma)*p.T) / volSqrtT
	return bsmTerms{
		d1:        d1,
		d2:        d1 - volSqrtT,
		sqrtT:     sqrtT,
		discountR: math.Exp(-p.R * p.T),
		discountQ: math.Exp(-p.Q * p.T),
	}
}

// price 不做校验的 BSM 公式，要求 T>0, sigma>0
func (m bsmTerms) price(p MarketParameters, optionType OptionType) float64 {
	var v float64
	if optionType == OptionTypeCall {
		v = p.S*m.discountQ*NormCDF(m.d1) - p.K*m.discountR*NormCDF(m.d2)
	} else {
		v = p.K*m.discountR*NormCDF(-m.d2) - p.S*m.discountQ*NormCDF(-m.d1)
	}
	// 浮点误差可能产生极小的负值
	if v < 0 {
		return 0
	}
	return v
}

// BlackScholesPrice 计算欧式期权的 Black-Scholes-Merton 理论价格
// T==0 时不走公式，直接返回内在价值
func BlackScholesPrice(p MarketParameters, optionType OptionType) (float64, error) {
	if err := optionType.Validate(); err != nil {
		return 0, err
	}
	if err := p.Validate(); err != nil {
		return 0, err
	}
	if p.T == 0 {
		return IntrinsicValue(p.S, p.K, optionType), nil
	}
	v := newBSMTerms(p).price(p, optionType)
	if !isFinite(v) {
		return 0, fmt.Errorf("%w: price=%v (S=%v K=%v T=%v sigma=%v)", ErrNumericInstability, v, p.S, p.K, p.T, p.Sigma)
	}
	return v, nil
}

// ImpliedVolatility 用 Brent 方法在 [0.001, 5.0] 上求解使理论价等于市场价的波动率
// p.Sigma 被忽略。市场价超出该区间可达价格范围时返回 NaN 与 ErrNoConvergence
func ImpliedVolatility(marketPrice float64, p MarketParameters, optionType OptionType) (float64, error) {
	if err := optionType.Validate(); err != nil {
		return math.NaN(), err
	}
	if err := p.WithSigma(ImpliedVolLowerBound).validateStrict(); err != nil {
		return math.NaN(), err
	}
	if math.IsNaN(marketPrice) || math.IsInf(marketPrice, 0) {
		return math.NaN(), invalidParam("market_price", marketPrice, "must be finite")
	}

	f := func(sigma float64) float64 {
		q := p.WithSigma(sigma)
		return newBSMTerms(q).price(q, optionType) - marketPrice
	}

	sigma, ok := brentRoot(f, ImpliedVolLowerBound, ImpliedVolUpperBound, ImpliedVolPriceTol, impliedVolMaxIter)
	if !ok {
		return math.NaN(), fmt.Errorf("%w: market price %v outside attainable range for sigma in [%v, %v]",
			ErrNoConvergence, marketPrice, ImpliedVolLowerBound, ImpliedVolUpperBound)
	}
	return sigma, nil
}

// brentRoot Brent 求根，要求 f(a), f(b) 异号；ok=false 表示区间未括住根或未收敛
func brentRoot(f func(float64) float64, a, b, ftol float64, maxIter int) (float64, bool) {
	fa, fb := f(a), f(b)
	if math.Abs(fa) <= ftol {
		return a, true
	}
	if math.Abs(fb) <= ftol {
		return b, true
	}
	if fa*fb > 0 {
		return math.NaN(), false
	}

	c, fc := b, fb
	var d, e float64
	for range maxIter {
		if (fb > 0 && fc > 0) || (fb < 0 && fc < 0) {
			c, fc = a, fa
			d = b - a
			e = d
		}
		if math.Abs(fc) < math.Abs(fb) {
			a, b, c = b, c, b
			fa, fb, fc = fb, fc, fb
		}
		tol := 2*2.220446049250313e-16*math.Abs(b) + 0.5e-12
		m := 0.5 * (c - b)
		if math.Abs(fb) <= ftol || math.Abs(m) <= tol {
			return b, true
		}
		if math.Abs(e) >= tol && math.Abs(fa) > math.Abs(fb) {
			// 反二次插值或割线
			s := fb / fa
			var pp, qq float64
			if a == c {
				pp = 2 * m * s
				qq = 1 - s
			} else {
				qa := fa / fc
				r := fb / fc
				pp = s * (2*m*qa*(qa-r) - (b-a)*(r-1))
				qq = (qa - 1) * (r - 1) * (s - 1)
			}
			if pp > 0 {
				qq = -qq
			}
			pp = math.Abs(pp)
			if 2*pp < math.Min(3*m*qq-math.Abs(tol*qq), math.Abs(e*qq)) {
				e = d
				d = pp / qq
			} else {
				d = m
				e = d
			}
		} else {
			d = m
			e = d
		}
		a, fa = b, fb
		if math.Abs(d) > tol {
			b += d
		} else if m > 0 {
			b += tol
		} else {
			b -= tol
		}
		fb = f(b)
	}
	return b, math.Abs(fb) <= 1e-6
}
