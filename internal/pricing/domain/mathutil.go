package domain

import "math"

// NormCDF 标准正态分布累积分布函数，基于 erfc 计算
func NormCDF(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}

// NormPDF 标准正态分布概率密度函数
func NormPDF(x float64) float64 {
	return math.Exp(-x*x/2) / math.Sqrt(2*math.Pi)
}

// LognormalMoments GBM 终值 S_T 的对数正态参数与矩
type LognormalMoments struct {
	MuLog    float64 // ln(S_T) 的均值
	SigmaLog float64 // ln(S_T) 的标准差
	Mean     float64 // E[S_T]
	Variance float64 // Var[S_T]
}

// NewLognormalMoments 由 GBM 参数计算 S_T 的分布参数
func NewLognormalMoments(s0, mu, sigma, t float64) LognormalMoments {
	muLog := math.Log(s0) + (mu-0.5*sigma*sigma)*t
	sigmaLog := sigma * math.Sqrt(t)
	mean := s0 * math.Exp(mu*t)
	return LognormalMoments{
		MuLog:    muLog,
		SigmaLog: sigmaLog,
		Mean:     mean,
		Variance: mean * mean * (math.Exp(sigma*sigma*t) - 1),
	}
}

// Linspace 生成 [start, stop] 上 n 个等距点，与 numpy.linspace 一致
func Linspace(start, stop float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	if n == 1 {
		out[0] = start
		return out
	}
	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	out[n-1] = stop
	return out
}
