package domain

import (
	"fmt"
	"math"
)

// 各采样频率对应的年化因子
const (
	PeriodsPerYearDaily  = 252.0
	PeriodsPerYearWeekly = 52.0
	PeriodsPerYearHourly = 252.0 * 6.5
	PeriodsPerYearMinute = 252.0 * 6.5 * 60
)

// SimpleReturns 收盘价序列的简单收益率 (p[i]/p[i-1] - 1)
func SimpleReturns(closes []float64) ([]float64, error) {
	if len(closes) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 prices", ErrInvalidParameter)
	}
	out := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if !(closes[i-1] > 0) {
			return nil, invalidParam("close", closes[i-1], "must be > 0")
		}
		out[i-1] = closes[i]/closes[i-1] - 1
	}
	return out, nil
}

// HistoricalVolatility 年化历史波动率 = 收益率样本标准差 × √periodsPerYear
func HistoricalVolatility(closes []float64, periodsPerYear float64) (float64, error) {
	if !(periodsPerYear > 0) {
		return math.NaN(), invalidParam("periods_per_year", periodsPerYear, "must be > 0")
	}
	returns, err := SimpleReturns(closes)
	if err != nil {
		return math.NaN(), err
	}
	if len(returns) < 2 {
		return math.NaN(), fmt.Errorf("%w: need at least 3 prices", ErrInvalidParameter)
	}
	return sampleStdDev(returns) * math.Sqrt(periodsPerYear), nil
}

// RollingVolatility 滑动窗口年化波动率，结果与收益率对齐，窗口未满的位置为 NaN
func RollingVolatility(closes []float64, window int, periodsPerYear float64) ([]float64, error) {
	if window < 2 {
		return nil, fmt.Errorf("%w: window=%d must be >= 2", ErrInvalidParameter, window)
	}
	if !(periodsPerYear > 0) {
		return nil, invalidParam("periods_per_year", periodsPerYear, "must be > 0")
	}
	returns, err := SimpleReturns(closes)
	if err != nil {
		return nil, err
	}
	annualize := math.Sqrt(periodsPerYear)
	out := make([]float64, len(returns))
	for i := range returns {
		if i+1 < window {
			out[i] = math.NaN()
			continue
		}
		out[i] = sampleStdDev(returns[i+1-window:i+1]) * annualize
	}
	return out, nil
}

func sampleStdDev(xs []float64) float64 {
	_, m2 := welford(xs)
	return math.Sqrt(m2 / float64(len(xs)-1))
}
