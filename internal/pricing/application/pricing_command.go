package application

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
	"github.com/wyfcoding/optionpricing/pkg/logger"
)

// PricingCommandService 处理定价相关的命令操作，结果通过 EventPublisher 发布
type PricingCommandService struct {
	*engine
}

// PriceOption 期权定价
func (c *PricingCommandService) PriceOption(ctx context.Context, cmd PriceOptionCommand) (*OptionPriceDTO, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	model, err := parsePricingModel(cmd.PricingModel)
	op := "price_option"
	if err == nil {
		op = "price_" + strings.ToLower(string(model))
	}

	var dto *OptionPriceDTO
	if err == nil {
		dto, err = c.priceOption(ctx, model, cmd)
	}
	c.observe(ctx, op, start, err)
	if err != nil {
		c.emitError(ctx, op, cmd.Symbol, err)
		return nil, err
	}

	c.emit(ctx, domain.OptionPricedEventType, func(p domain.EventPublisher) error {
		event := domain.OptionPricedEvent{
			RequestID:       dto.RequestID,
			Symbol:          cmd.Symbol,
			OptionType:      domain.OptionType(dto.OptionType),
			PricingModel:    model,
			StrikePrice:     cmd.StrikePrice,
			TimeToExpiry:    dto.TimeToExpiry,
			UnderlyingPrice: cmd.UnderlyingPrice,
			Volatility:      cmd.Volatility,
			RiskFreeRate:    cmd.RiskFreeRate,
			DividendYield:   cmd.DividendYield,
			OptionPrice:     dto.Price.InexactFloat64(),
			OccurredOn:      c.now(),
		}
		if dto.StandardError != nil {
			event.StandardError = dto.StandardError.InexactFloat64()
		}
		return p.PublishOptionPriced(ctx, event)
	})
	return dto, nil
}

func parsePricingModel(s string) (domain.PricingModel, error) {
	if s == "" {
		return domain.PricingModelBlackScholes, nil
	}
	m := domain.PricingModel(strings.ToUpper(s))
	switch m {
	case domain.PricingModelBlackScholes, domain.PricingModelBinomial, domain.PricingModelMonteCarlo:
		return m, nil
	default:
		return "", fmt.Errorf("%w: pricing model %q", domain.ErrInvalidParameter, s)
	}
}

func parseExerciseStyle(s string) (domain.ExerciseStyle, error) {
	if s == "" {
		return domain.ExerciseStyleEuropean, nil
	}
	style := domain.ExerciseStyle(strings.ToUpper(s))
	return style, style.Validate()
}

func (c *PricingCommandService) priceOption(ctx context.Context, model domain.PricingModel, cmd PriceOptionCommand) (*OptionPriceDTO, error) {
	optionType, err := cmd.optionType()
	if err != nil {
		return nil, err
	}
	style, err := parseExerciseStyle(cmd.ExerciseStyle)
	if err != nil {
		return nil, err
	}
	p, err := cmd.params(c.now())
	if err != nil {
		return nil, err
	}

	dto := &OptionPriceDTO{
		RequestID:     logger.RequestIDFromContext(ctx),
		Symbol:        cmd.Symbol,
		OptionType:    string(optionType),
		PricingModel:  string(model),
		ExerciseStyle: string(style),
		TimeToExpiry:  p.T,
	}

	switch model {
	case domain.PricingModelBinomial:
		steps := cmd.Steps
		if steps == 0 {
			steps = c.limits.DefaultBinomialSteps
		}
		if steps > c.limits.MaxBinomialSteps {
			return nil, limitExceeded("steps", steps, c.limits.MaxBinomialSteps)
		}
		price, err := domain.BinomialPrice(p, steps, style, optionType)
		if err != nil {
			if errors.Is(err, domain.ErrNumericInstability) && c.metrics != nil {
				c.metrics.NumericInstability.Inc()
			}
			return nil, err
		}
		dto.Price = toDecimal(price)
		dto.Steps = steps

	case domain.PricingModelMonteCarlo:
		if style != domain.ExerciseStyleEuropean {
			return nil, fmt.Errorf("%w: monte carlo prices european exercise only", domain.ErrInvalidExerciseStyle)
		}
		sims := cmd.Simulations
		if sims == 0 {
			sims = c.limits.DefaultSimulations
		}
		if sims > c.limits.MaxSimulations {
			return nil, limitExceeded("simulations", sims, c.limits.MaxSimulations)
		}
		seed := randomSeed(cmd.Seed)
		res, err := domain.MonteCarloPrice(p, sims, optionType, c.simulationOptions(seed)...)
		if err != nil {
			return nil, err
		}
		dto.Price = toDecimal(res.Estimate)
		dto.StandardError = toDecimalPtr(res.StandardError)
		dto.Simulations = res.Simulations
		dto.Seed = &res.Seed

	default:
		if style != domain.ExerciseStyleEuropean {
			return nil, fmt.Errorf("%w: black-scholes prices european exercise only", domain.ErrInvalidExerciseStyle)
		}
		price, err := domain.BlackScholesPrice(p, optionType)
		if err != nil {
			return nil, err
		}
		dto.Price = toDecimal(price)
	}
	return dto, nil
}

// BatchPriceOptions 批量定价，单个合约失败不影响其他合约
func (c *PricingCommandService) BatchPriceOptions(ctx context.Context, cmd BatchPriceOptionsCommand) (*BatchPricingResult, error) {
	n := len(cmd.Contracts)
	if n == 0 {
		return nil, fmt.Errorf("%w: batch has no contracts", domain.ErrInvalidParameter)
	}
	if n > c.limits.MaxBatchSize {
		return nil, limitExceeded("contracts", n, c.limits.MaxBatchSize)
	}
	batchID := cmd.BatchID
	if batchID == "" {
		batchID = uuid.NewString()
	}

	results := make([]*OptionPriceDTO, n)
	errs := make([]error, n)
	durations := make([]time.Duration, n)

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, contract := range cmd.Contracts {
		g.Go(func() error {
			start := time.Now()
			results[i], errs[i] = c.PriceOption(ctx, contract)
			durations[i] = time.Since(start)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := &BatchPricingResult{
		BatchID:  batchID,
		Results:  make([]*OptionPriceDTO, 0, n),
		Failures: []BatchFailure{},
	}
	var total time.Duration
	for i := range n {
		total += durations[i]
		if errs[i] != nil {
			out.Failures = append(out.Failures, BatchFailure{
				Index:  i,
				Symbol: cmd.Contracts[i].Symbol,
				Code:   ErrorCode(errs[i]),
				Error:  errs[i].Error(),
			})
			continue
		}
		out.Results = append(out.Results, results[i])
	}
	out.SuccessCount = len(out.Results)
	out.FailureCount = len(out.Failures)
	out.AverageTime = float64(total.Microseconds()) / 1000 / float64(n)

	logger.Info(ctx, "Batch pricing completed",
		"batch_id", batchID,
		"contracts", n,
		"success", out.SuccessCount,
		"failure", out.FailureCount,
	)
	return out, nil
}

// CalculateGreeks 计算希腊字母并发布 GreeksCalculated 事件
func (c *PricingCommandService) CalculateGreeks(ctx context.Context, cmd GreeksCommand) (*GreeksDTO, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	g, err := c.calculateGreeks(cmd)
	c.observe(ctx, "greeks", start, err)
	if err != nil {
		c.emitError(ctx, "greeks", cmd.Symbol, err)
		return nil, err
	}

	c.emit(ctx, domain.GreeksCalculatedEventType, func(p domain.EventPublisher) error {
		return p.PublishGreeksCalculated(ctx, domain.GreeksCalculatedEvent{
			RequestID:       logger.RequestIDFromContext(ctx),
			Symbol:          cmd.Symbol,
			OptionType:      domain.OptionType(strings.ToUpper(cmd.OptionType)),
			StrikePrice:     cmd.StrikePrice,
			UnderlyingPrice: cmd.UnderlyingPrice,
			Greeks:          g,
			OccurredOn:      c.now(),
		})
	})
	dto := toGreeksDTO(g)
	return &dto, nil
}

func (c *PricingCommandService) calculateGreeks(cmd GreeksCommand) (domain.Greeks, error) {
	optionType, err := cmd.optionType()
	if err != nil {
		return domain.Greeks{}, err
	}
	p, err := cmd.params(c.now())
	if err != nil {
		return domain.Greeks{}, err
	}
	return domain.CalculateGreeks(p, optionType)
}

// ImpliedVolatility 反解隐含波动率；无解时返回 Found=false 而不是错误
func (c *PricingCommandService) ImpliedVolatility(ctx context.Context, cmd ImpliedVolatilityCommand) (*ImpliedVolatilityDTO, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	iv, err := c.impliedVolatility(cmd)
	c.observe(ctx, "implied_volatility", start, err)

	switch {
	case errors.Is(err, domain.ErrNoConvergence):
		if c.metrics != nil {
			c.metrics.ImpliedVolNotFound.Inc()
		}
		return &ImpliedVolatilityDTO{
			Found:       false,
			MarketPrice: toDecimal(cmd.MarketPrice),
			Message:     err.Error(),
		}, nil
	case err != nil:
		c.emitError(ctx, "implied_volatility", cmd.Symbol, err)
		return nil, err
	}
	return &ImpliedVolatilityDTO{
		Found:             true,
		ImpliedVolatility: toDecimalPtr(iv),
		MarketPrice:       toDecimal(cmd.MarketPrice),
	}, nil
}

func (c *PricingCommandService) impliedVolatility(cmd ImpliedVolatilityCommand) (float64, error) {
	optionType, err := cmd.optionType()
	if err != nil {
		return 0, err
	}
	p, err := cmd.params(c.now())
	if err != nil {
		return 0, err
	}
	return domain.ImpliedVolatility(cmd.MarketPrice, p, optionType)
}
