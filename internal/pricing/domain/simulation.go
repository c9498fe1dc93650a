package domain

import (
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"
)

// mcBatchSize 蒙特卡洛每批模拟数，批 b 使用独立随机流 PCG(seed, b)
const mcBatchSize = 8192

// GBMParams 几何布朗运动参数
type GBMParams struct {
	S0    float64 // 初始价格
	Mu    float64 // 年化漂移
	Sigma float64 // 年化波动率
	T     float64 // 模拟时长 (年)
}

// Validate 校验 GBM 参数
func (g GBMParams) Validate() error {
	switch {
	case isInf(g.S0):
		return invalidParam("S0", g.S0, "must be finite")
	case isInf(g.Sigma):
		return invalidParam("sigma", g.Sigma, "must be finite")
	case isInf(g.T):
		return invalidParam("T", g.T, "must be finite")
	case !(g.S0 > 0):
		return invalidParam("S0", g.S0, "must be > 0")
	case !(g.Sigma >= 0):
		return invalidParam("sigma", g.Sigma, "must be >= 0")
	case !(g.T > 0):
		return invalidParam("T", g.T, "must be > 0")
	case !isFinite(g.Mu):
		return invalidParam("mu", g.Mu, "must be finite")
	}
	return nil
}

type simulationConfig struct {
	seed    uint64
	seeded  bool
	workers int
}

// SimulationOption 模拟选项
type SimulationOption func(*simulationConfig)

// WithSeed 固定随机种子，相同参数与种子的两次调用输出逐位一致
func WithSeed(seed uint64) SimulationOption {
	return func(c *simulationConfig) {
		c.seed = seed
		c.seeded = true
	}
}

// WithWorkers 限制并行协程数，不影响结果
func WithWorkers(n int) SimulationOption {
	return func(c *simulationConfig) {
		if n > 0 {
			c.workers = n
		}
	}
}

func newSimulationConfig(opts []SimulationOption) simulationConfig {
	cfg := simulationConfig{workers: runtime.GOMAXPROCS(0)}
	for _, opt := range opts {
		opt(&cfg)
	}
	if !cfg.seeded {
		cfg.seed = rand.Uint64()
	}
	return cfg
}

// SimulatePaths 生成 numPaths 条 GBM 路径，返回 numPaths x (steps+1) 矩阵
// S(t) = S0 * exp((mu - σ²/2)t + σW(t))，时间网格为 linspace(0, T, steps+1)，W(0)=0
// 每条路径的首列恒等于 S0
func SimulatePaths(g GBMParams, steps, numPaths int, opts ...SimulationOption) ([][]float64, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if steps <= 0 {
		return nil, fmt.Errorf("%w: steps=%d must be > 0", ErrInvalidParameter, steps)
	}
	if numPaths <= 0 {
		return nil, fmt.Errorf("%w: num_paths=%d must be > 0", ErrInvalidParameter, numPaths)
	}
	cfg := newSimulationConfig(opts)

	grid := Linspace(0, g.T, steps+1)
	sqrtDt := math.Sqrt(g.T / float64(steps))
	drift := g.Mu - 0.5*g.Sigma*g.Sigma

	paths := make([][]float64, numPaths)
	simulate := func(i int) {
		rng := rand.New(rand.NewPCG(cfg.seed, uint64(i)))
		row := make([]float64, steps+1)
		row[0] = g.S0
		w := 0.0
		for j := 1; j <= steps; j++ {
			w += rng.NormFloat64() * sqrtDt
			row[j] = g.S0 * math.Exp(drift*grid[j]+g.Sigma*w)
		}
		paths[i] = row
	}

	forEachChunk(numPaths, cfg.workers, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			simulate(i)
		}
	})
	return paths, nil
}

// forEachChunk 把 [0,n) 切块后并行执行
func forEachChunk(n, workers int, fn func(lo, hi int)) {
	chunks := min(workers*4, n)
	if workers <= 1 || chunks <= 1 {
		fn(0, n)
		return
	}
	size := (n + chunks - 1) / chunks

	var g errgroup.Group
	g.SetLimit(workers)
	for lo := 0; lo < n; lo += size {
		hi := min(lo+size, n)
		g.Go(func() error {
			fn(lo, hi)
			return nil
		})
	}
	_ = g.Wait()
}

// PathStatistics 模拟路径的统计摘要
type PathStatistics struct {
	MeanFinal    float64 `json:"mean_final"`
	StdDevFinal  float64 `json:"std_dev_final"`
	Percentile1  float64 `json:"percentile_1"`  // 最差情景
	Percentile99 float64 `json:"percentile_99"` // 最好情景
	MaxPrice     float64 `json:"max_price"`
	MinPrice     float64 `json:"min_price"`
	NumPaths     int     `json:"num_paths"`
	StepsPerPath int     `json:"steps_per_path"`
}

// SummarizePaths 计算终值均值、总体标准差、1%/99% 分位数与全路径最高/最低价
func SummarizePaths(paths [][]float64) (PathStatistics, error) {
	if len(paths) == 0 || len(paths[0]) == 0 {
		return PathStatistics{}, fmt.Errorf("%w: no paths", ErrInvalidParameter)
	}
	finals := make([]float64, len(paths))
	maxPrice, minPrice := math.Inf(-1), math.Inf(1)
	for i, path := range paths {
		finals[i] = path[len(path)-1]
		maxPrice = math.Max(maxPrice, slices.Max(path))
		minPrice = math.Min(minPrice, slices.Min(path))
	}
	mean, m2 := welford(finals)
	slices.Sort(finals)

	return PathStatistics{
		MeanFinal:    mean,
		StdDevFinal:  math.Sqrt(m2 / float64(len(finals))),
		Percentile1:  Percentile(finals, 1),
		Percentile99: Percentile(finals, 99),
		MaxPrice:     maxPrice,
		MinPrice:     minPrice,
		NumPaths:     len(paths),
		StepsPerPath: len(paths[0]) - 1,
	}, nil
}

// Percentile 已排序样本的线性插值分位数 (numpy 默认方法)，q 取 [0,100]
func Percentile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	pos := q / 100 * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// MonteCarloResult 蒙特卡洛定价结果
type MonteCarloResult struct {
	Estimate      float64 `json:"estimate"`
	StandardError float64 `json:"standard_error"`
	Simulations   int     `json:"simulations"`
	Seed          uint64  `json:"seed"` // 未指定种子时为随机生成的种子，可用于复现
}

// MonteCarloPrice 模拟风险中性终值 S_T = S0*exp((r-q-σ²/2)T + σ√T·Z) 为欧式期权定价
// 返回折现后的样本均值及其标准误 std(payoff)*e^{-rT}/√n
func MonteCarloPrice(p MarketParameters, numSimulations int, optionType OptionType, opts ...SimulationOption) (*MonteCarloResult, error) {
	if err := optionType.Validate(); err != nil {
		return nil, err
	}
	if err := p.validateStrict(); err != nil {
		return nil, err
	}
	if numSimulations <= 0 {
		return nil, fmt.Errorf("%w: num_simulations=%d must be > 0", ErrInvalidParameter, numSimulations)
	}
	cfg := newSimulationConfig(opts)

	drift := (p.R - p.Q - 0.5*p.Sigma*p.Sigma) * p.T
	vol := p.Sigma * math.Sqrt(p.T)

	numBatches := (numSimulations + mcBatchSize - 1) / mcBatchSize
	batches := make([]runningMoments, numBatches)
	runBatch := func(b int) {
		n := min(mcBatchSize, numSimulations-b*mcBatchSize)
		rng := rand.New(rand.NewPCG(cfg.seed, uint64(b)))
		var acc runningMoments
		for range n {
			st := p.S * math.Exp(drift+vol*rng.NormFloat64())
			acc.add(IntrinsicValue(st, p.K, optionType))
		}
		batches[b] = acc
	}

	forEachChunk(numBatches, cfg.workers, func(lo, hi int) {
		for b := lo; b < hi; b++ {
			runBatch(b)
		}
	})

	// 按批次顺序合并，保证结果与并行度无关
	var total runningMoments
	for _, b := range batches {
		total.merge(b)
	}

	disc := math.Exp(-p.R * p.T)
	n := float64(total.n)
	return &MonteCarloResult{
		Estimate:      disc * total.mean,
		StandardError: disc * math.Sqrt(total.m2/n) / math.Sqrt(n),
		Simulations:   numSimulations,
		Seed:          cfg.seed,
	}, nil
}

// runningMoments 均值与二阶中心矩的增量累积
type runningMoments struct {
	n    int
	mean float64
	m2   float64
}

func (r *runningMoments) add(x float64) {
	r.n++
	delta := x - r.mean
	r.mean += delta / float64(r.n)
	r.m2 += delta * (x - r.mean)
}

// merge Chan 并行方差合并
func (r *runningMoments) merge(o runningMoments) {
	if o.n == 0 {
		return
	}
	if r.n == 0 {
		*r = o
		return
	}
	n := r.n + o.n
	delta := o.mean - r.mean
	r.mean += delta * float64(o.n) / float64(n)
	r.m2 += o.m2 + delta*delta*float64(r.n)*float64(o.n)/float64(n)
	r.n = n
}

func welford(xs []float64) (mean, m2 float64) {
	var acc runningMoments
	for _, x := range xs {
		acc.add(x)
	}
	return acc.mean, acc.m2
}
