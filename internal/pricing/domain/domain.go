// Package domain 期权定价与敏感度计算的领域模型
// 所有计算均为无状态纯函数，每次调用独立创建并丢弃中间数据
package domain

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidParameter 参数非法，在计算开始前同步返回
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrNoConvergence 隐含波动率在搜索区间内无解
	ErrNoConvergence = errors.New("implied volatility not found")
	// ErrNumericInstability 二叉树风险中性概率落在 (0,1) 之外，或计算结果溢出为 NaN/Inf
	ErrNumericInstability = errors.New("numeric instability")
	// ErrInvalidOptionType 未知期权类型
	ErrInvalidOptionType = errors.New("invalid option type")
	// ErrInvalidExerciseStyle 未知行权方式
	ErrInvalidExerciseStyle = errors.New("invalid exercise style")
)

// OptionType 期权类型
type OptionType string

const (
	OptionTypeCall OptionType = "CALL" // 看涨期权
	OptionTypePut  OptionType = "PUT"  // 看跌期权
)

// Validate 校验期权类型
func (t OptionType) Validate() error {
	switch t {
	case OptionTypeCall, OptionTypePut:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidOptionType, string(t))
	}
}

// ExerciseStyle 行权方式，仅二叉树定价使用
type ExerciseStyle string

const (
	ExerciseStyleEuropean ExerciseStyle = "EUROPEAN" // 欧式，仅到期日行权
	ExerciseStyleAmerican ExerciseStyle = "AMERICAN" // 美式，到期前任意时点行权
)

// Validate 校验行权方式
func (s ExerciseStyle) Validate() error {
	switch s {
	case ExerciseStyleEuropean, ExerciseStyleAmerican:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidExerciseStyle, string(s))
	}
}

// MarketParameters 定价所需的市场参数
type MarketParameters struct {
	S     float64 // 标的资产价格
	K     float64 // 执行价格
	T     float64 // 到期时间 (年)
	R     float64 // 无风险利率
	Sigma float64 // 波动率
	Q     float64 // 连续股息率
}

// Validate 校验解析解定价的参数域: 全部有限，且 S>0, K>0, sigma>0, T>=0, q>=0
func (p MarketParameters) Validate() error {
	switch {
	case isInf(p.S):
		return invalidParam("S", p.S, "must be finite")
	case isInf(p.K):
		return invalidParam("K", p.K, "must be finite")
	case isInf(p.Sigma):
		return invalidParam("sigma", p.Sigma, "must be finite")
	case isInf(p.T):
		return invalidParam("T", p.T, "must be finite")
	case isInf(p.Q):
		return invalidParam("q", p.Q, "must be finite")
	case !(p.S > 0):
		return invalidParam("S", p.S, "must be > 0")
	case !(p.K > 0):
		return invalidParam("K", p.K, "must be > 0")
	case !(p.Sigma > 0):
		return invalidParam("sigma", p.Sigma, "must be > 0")
	case !(p.T >= 0):
		return invalidParam("T", p.T, "must be >= 0")
	case !(p.Q >= 0):
		return invalidParam("q", p.Q, "must be >= 0")
	case !isFinite(p.R):
		return invalidParam("r", p.R, "must be finite")
	}
	return nil
}

// validateStrict 在 Validate 基础上要求 T>0
func (p MarketParameters) validateStrict() error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.T == 0 {
		return invalidParam("T", p.T, "must be > 0")
	}
	return nil
}

// WithSigma 返回替换波动率后的参数副本
func (p MarketParameters) WithSigma(sigma float64) MarketParameters {
	p.Sigma = sigma
	return p
}

// IntrinsicValue 内在价值
func IntrinsicValue(s, k float64, optionType OptionType) float64 {
	if optionType == OptionTypeCall {
		return math.Max(s-k, 0)
	}
	return math.Max(k-s, 0)
}

func isInf(x float64) bool { return math.IsInf(x, 0) }

// isFinite NaN 与 ±Inf 均视为非有限
func isFinite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }

func invalidParam(name string, value float64, reason string) error {
	return fmt.Errorf("%w: %s=%v %s", ErrInvalidParameter, name, value, reason)
}
