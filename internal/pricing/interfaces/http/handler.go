package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/optionpricing/internal/pricing/application"
	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
	"github.com/wyfcoding/optionpricing/pkg/logger"
	"github.com/wyfcoding/optionpricing/pkg/response"
)

// PricingHandler HTTP 处理器
// 负责处理与定价相关的 HTTP 请求
type PricingHandler struct {
	svc *application.PricingService
}

// NewPricingHandler 创建 HTTP 处理器实例
func NewPricingHandler(svc *application.PricingService) *PricingHandler {
	return &PricingHandler{svc: svc}
}

// RegisterRoutes 将处理器方法绑定到 Gin 路由引擎
func (h *PricingHandler) RegisterRoutes(router gin.IRouter) {
	api := router.Group("/api/v1/pricing")
	{
		api.POST("/option/price", h.PriceOption)
		api.POST("/option/greeks", h.GetGreeks)
		api.POST("/option/implied-volatility", h.ImpliedVolatility)
		api.POST("/option/approximation", h.ApproximateRepricing)
		api.POST("/option/batch", h.BatchPriceOptions)
		api.POST("/simulation/paths", h.SimulatePaths)
		api.POST("/strategy/payoff", h.StrategyPayoff)
		api.POST("/portfolio/exposure", h.PortfolioExposure)
		api.POST("/volatility/historical", h.HistoricalVolatility)
	}
}

// OptionRequest 单个期权的市场参数，time_to_expiry 与 expiry_date 二选一
type OptionRequest struct {
	Symbol          string     `json:"symbol"`
	OptionType      string     `json:"option_type" binding:"required"`
	UnderlyingPrice float64    `json:"underlying_price" binding:"required"`
	StrikePrice     float64    `json:"strike_price" binding:"required"`
	TimeToExpiry    float64    `json:"time_to_expiry"`
	ExpiryDate      *time.Time `json:"expiry_date"`
	RiskFreeRate    float64    `json:"risk_free_rate"`
	Volatility      float64    `json:"volatility"`
	DividendYield   float64    `json:"dividend_yield"`
}

func (r OptionRequest) input() application.OptionInput {
	return application.OptionInput{
		Symbol:          r.Symbol,
		OptionType:      r.OptionType,
		UnderlyingPrice: r.UnderlyingPrice,
		StrikePrice:     r.StrikePrice,
		TimeToExpiry:    r.TimeToExpiry,
		ExpiryDate:      r.ExpiryDate,
		RiskFreeRate:    r.RiskFreeRate,
		Volatility:      r.Volatility,
		DividendYield:   r.DividendYield,
	}
}

// PricingRequest 定价请求
type PricingRequest struct {
	OptionRequest
	PricingModel  string  `json:"pricing_model"`
	ExerciseStyle string  `json:"exercise_style"`
	Steps         int     `json:"steps" binding:"gte=0"`
	Simulations   int     `json:"simulations" binding:"gte=0"`
	Seed          *uint64 `json:"seed"`
}

func (r PricingRequest) command() application.PriceOptionCommand {
	return application.PriceOptionCommand{
		OptionInput:   r.input(),
		PricingModel:  r.PricingModel,
		ExerciseStyle: r.ExerciseStyle,
		Steps:         r.Steps,
		Simulations:   r.Simulations,
		Seed:          r.Seed,
	}
}

// BatchPricingRequest 批量定价请求
type BatchPricingRequest struct {
	BatchID   string           `json:"batch_id"`
	Contracts []PricingRequest `json:"contracts" binding:"required,dive"`
}

// ImpliedVolatilityRequest 隐含波动率请求
type ImpliedVolatilityRequest struct {
	OptionRequest
	MarketPrice float64 `json:"market_price"`
}

// ApproximationRequest 近似重定价请求
type ApproximationRequest struct {
	OptionRequest
	PriceChange      float64 `json:"price_change"`
	DaysElapsed      float64 `json:"days_elapsed"`
	VolatilityChange float64 `json:"volatility_change"`
}

// SimulatePathsRequest 路径模拟请求
type SimulatePathsRequest struct {
	InitialPrice float64 `json:"initial_price" binding:"required"`
	Drift        float64 `json:"drift"`
	Volatility   float64 `json:"volatility" binding:"gte=0"`
	TimeHorizon  float64 `json:"time_horizon" binding:"required"`
	Steps        int     `json:"steps" binding:"required"`
	NumPaths     int     `json:"num_paths" binding:"required"`
	Seed         *uint64 `json:"seed"`
	IncludePaths bool    `json:"include_paths"`
}

// StrategyRequest 策略盈亏请求，legs 与 strategy 二选一
type StrategyRequest struct {
	Strategy string             `json:"strategy"`
	Legs     []domain.OptionLeg `json:"legs"`
	Strikes  []float64          `json:"strikes"`
	Premiums []float64          `json:"premiums"`
	PriceMin float64            `json:"price_min"`
	PriceMax float64            `json:"price_max"`
	Points   int                `json:"points" binding:"gte=0"`
}

// PortfolioRequest 组合敞口请求
type PortfolioRequest struct {
	Positions []domain.Position `json:"positions" binding:"required"`
}

// HistoricalVolatilityRequest 历史波动率请求
type HistoricalVolatilityRequest struct {
	Closes         []float64 `json:"closes" binding:"required"`
	PeriodsPerYear float64   `json:"periods_per_year" binding:"gte=0"`
	Window         int       `json:"window" binding:"gte=0"`
}

// PriceOption 期权定价
func (h *PricingHandler) PriceOption(c *gin.Context) {
	var req PricingRequest
	if !bind(c, &req) {
		return
	}
	result, err := h.svc.Command.PriceOption(c.Request.Context(), req.command())
	if err != nil {
		fail(c, "Failed to calculate option price", err)
		return
	}
	response.Success(c, result)
}

// BatchPriceOptions 批量定价，部分失败时仍返回 200
func (h *PricingHandler) BatchPriceOptions(c *gin.Context) {
	var req BatchPricingRequest
	if !bind(c, &req) {
		return
	}
	cmds := make([]application.PriceOptionCommand, len(req.Contracts))
	for i, r := range req.Contracts {
		cmds[i] = r.command()
	}
	result, err := h.svc.Command.BatchPriceOptions(c.Request.Context(), application.BatchPriceOptionsCommand{
		BatchID:   req.BatchID,
		Contracts: cmds,
	})
	if err != nil {
		fail(c, "Failed to price batch", err)
		return
	}
	response.Success(c, result)
}

// GetGreeks 获取希腊字母
func (h *PricingHandler) GetGreeks(c *gin.Context) {
	var req OptionRequest
	if !bind(c, &req) {
		return
	}
	greeks, err := h.svc.Command.CalculateGreeks(c.Request.Context(), application.GreeksCommand{OptionInput: req.input()})
	if err != nil {
		fail(c, "Failed to calculate Greeks", err)
		return
	}
	response.Success(c, greeks)
}

// ImpliedVolatility 反解隐含波动率，无解时 found=false
func (h *PricingHandler) ImpliedVolatility(c *gin.Context) {
	var req ImpliedVolatilityRequest
	if !bind(c, &req) {
		return
	}
	result, err := h.svc.Command.ImpliedVolatility(c.Request.Context(), application.ImpliedVolatilityCommand{
		OptionInput: req.input(),
		MarketPrice: req.MarketPrice,
	})
	if err != nil {
		fail(c, "Failed to solve implied volatility", err)
		return
	}
	response.Success(c, result)
}

// ApproximateRepricing 泰勒近似重定价
func (h *PricingHandler) ApproximateRepricing(c *gin.Context) {
	var req ApproximationRequest
	if !bind(c, &req) {
		return
	}
	result, err := h.svc.Query.ApproximateRepricing(c.Request.Context(), application.ApproximationCommand{
		OptionInput:      req.input(),
		PriceChange:      req.PriceChange,
		DaysElapsed:      req.DaysElapsed,
		VolatilityChange: req.VolatilityChange,
	})
	if err != nil {
		fail(c, "Failed to approximate repricing", err)
		return
	}
	response.Success(c, result)
}

// SimulatePaths GBM 路径模拟
func (h *PricingHandler) SimulatePaths(c *gin.Context) {
	var req SimulatePathsRequest
	if !bind(c, &req) {
		return
	}
	result, err := h.svc.Query.SimulatePaths(c.Request.Context(), application.SimulatePathsCommand{
		InitialPrice: req.InitialPrice,
		Drift:        req.Drift,
		Volatility:   req.Volatility,
		TimeHorizon:  req.TimeHorizon,
		Steps:        req.Steps,
		NumPaths:     req.NumPaths,
		Seed:         req.Seed,
		IncludePaths: req.IncludePaths,
	})
	if err != nil {
		fail(c, "Failed to simulate paths", err)
		return
	}
	response.Success(c, result)
}

// StrategyPayoff 策略盈亏曲线，legs 可含股票腿与未到期期权腿
func (h *PricingHandler) StrategyPayoff(c *gin.Context) {
	var req StrategyRequest
	if !bind(c, &req) {
		return
	}
	result, err := h.svc.Query.AnalyzeStrategy(c.Request.Context(), application.StrategyCommand{
		Strategy: req.Strategy,
		Legs:     req.Legs,
		Strikes:  req.Strikes,
		Premiums: req.Premiums,
		PriceMin: req.PriceMin,
		PriceMax: req.PriceMax,
		Points:   req.Points,
	})
	if err != nil {
		fail(c, "Failed to analyze strategy", err)
		return
	}
	response.Success(c, result)
}

// PortfolioExposure 组合希腊字母敞口
func (h *PricingHandler) PortfolioExposure(c *gin.Context) {
	var req PortfolioRequest
	if !bind(c, &req) {
		return
	}
	result, err := h.svc.Query.AggregatePortfolio(c.Request.Context(), application.PortfolioCommand{Positions: req.Positions})
	if err != nil {
		fail(c, "Failed to aggregate portfolio", err)
		return
	}
	response.Success(c, result)
}

// HistoricalVolatility 历史波动率
func (h *PricingHandler) HistoricalVolatility(c *gin.Context) {
	var req HistoricalVolatilityRequest
	if !bind(c, &req) {
		return
	}
	result, err := h.svc.Query.HistoricalVolatility(c.Request.Context(), application.HistoricalVolatilityCommand{
		Closes:         req.Closes,
		PeriodsPerYear: req.PeriodsPerYear,
		Window:         req.Window,
	})
	if err != nil {
		fail(c, "Failed to calculate historical volatility", err)
		return
	}
	response.Success(c, result)
}

func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, application.CodeInvalidParameter, err.Error())
		return false
	}
	return true
}

// fail 按错误码映射 HTTP 状态码
func fail(c *gin.Context, msg string, err error) {
	code := application.ErrorCode(err)
	status := http.StatusInternalServerError
	switch code {
	case application.CodeInvalidParameter:
		status = http.StatusBadRequest
	case application.CodeNumericInstability:
		status = http.StatusUnprocessableEntity
	case application.CodeNotFound:
		status = http.StatusNotFound
	case application.CodeCanceled:
		status = http.StatusRequestTimeout
	}
	if status >= http.StatusInternalServerError {
		logger.Error(c.Request.Context(), msg, "error", err)
		response.ErrorWithStatus(c, status, code, "Internal server error")
		return
	}
	response.ErrorWithStatus(c, status, code, err.Error())
}
