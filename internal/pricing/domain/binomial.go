package domain

import (
	"fmt"
	"math"
)

// PriceTree 资产价格三角阵，Nodes[i][j] 为第 i 步、下跌 j 次的价格 (0<=j<=i)
type PriceTree struct {
	Nodes [][]float64
}

// ValueTree 期权价值三角阵，形状与 PriceTree 相同
type ValueTree struct {
	Nodes [][]float64
}

// BinomialLattice 一次 CRR 定价调用产生的完整树
type BinomialLattice struct {
	Steps       int
	Dt          float64
	Up          float64
	Down        float64
	Probability float64 // 风险中性上涨概率
	Prices      PriceTree
	Values      ValueTree
}

// Price 根节点价值
func (l *BinomialLattice) Price() float64 {
	return l.Values.Nodes[0][0]
}

// BinomialPrice Cox-Ross-Rubinstein 二叉树定价
// 步数过大时耗时为 O(steps²)，这是预期行为
func BinomialPrice(p MarketParameters, steps int, style ExerciseStyle, optionType OptionType) (float64, error) {
	lattice, err := BuildBinomialLattice(p, steps, style, optionType)
	if err != nil {
		return math.NaN(), err
	}
	return lattice.Price(), nil
}

// BuildBinomialLattice 构建价格树并做反向归纳，返回两棵树
// 风险中性概率不在 (0,1) 内时返回 ErrNumericInstability
func BuildBinomialLattice(p MarketParameters, steps int, style ExerciseStyle, optionType OptionType) (*BinomialLattice, error) {
	if err := optionType.Validate(); err != nil {
		return nil, err
	}
	if err := style.Validate(); err != nil {
		return nil, err
	}
	if steps <= 0 {
		return nil, fmt.Errorf("%w: steps=%d must be > 0", ErrInvalidParameter, steps)
	}
	if err := p.validateStrict(); err != nil {
		return nil, err
	}

	dt := p.T / float64(steps)
	u := math.Exp(p.Sigma * math.Sqrt(dt))
	d := 1 / u
	prob := (math.Exp((p.R-p.Q)*dt) - d) / (u - d)
	if !(prob > 0 && prob < 1) {
		return nil, fmt.Errorf("%w: risk-neutral probability %v outside (0,1) for sigma=%v r=%v steps=%d",
			ErrNumericInstability, prob, p.Sigma, p.R, steps)
	}
	disc := math.Exp(-p.R * dt)

	prices := buildPriceTree(p.S, u, d, steps)
	values := make([][]float64, steps+1)
	values[steps] = make([]float64, steps+1)
	for j, s := range prices[steps] {
		values[steps][j] = IntrinsicValue(s, p.K, optionType)
	}

	american := style == ExerciseStyleAmerican
	for i := steps - 1; i >= 0; i-- {
		row := make([]float64, i+1)
		next := values[i+1]
		for j := range row {
			v := disc * (prob*next[j] + (1-prob)*next[j+1])
			if american {
				v = math.Max(v, IntrinsicValue(prices[i][j], p.K, optionType))
			}
			row[j] = v
		}
		values[i] = row
	}

	return &BinomialLattice{
		Steps:       steps,
		Dt:          dt,
		Up:          u,
		Down:        d,
		Probability: prob,
		Prices:      PriceTree{Nodes: prices},
		Values:      ValueTree{Nodes: values},
	}, nil
}

// buildPriceTree 节点 (i,j) = S0 * u^(i-j) * d^j
func buildPriceTree(s0, u, d float64, steps int) [][]float64 {
	tree := make([][]float64, steps+1)
	tree[0] = []float64{s0}
	for i := 1; i <= steps; i++ {
		row := make([]float64, i+1)
		for j := range row {
			row[j] = s0 * math.Pow(u, float64(i-j)) * math.Pow(d, float64(j))
		}
		tree[i] = row
	}
	return tree
}
