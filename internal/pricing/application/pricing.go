package application

import (
	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
	"github.com/wyfcoding/optionpricing/pkg/config"
	"github.com/wyfcoding/optionpricing/pkg/metrics"
)

// PricingService 定价门面服务。
// Command 侧的操作会发布领域事件，Query 侧为无副作用的分析计算
type PricingService struct {
	Command *PricingCommandService
	Query   *PricingQueryService
}

// NewPricingService 构造函数。publisher 为 nil 时不发布事件
func NewPricingService(limits config.PricingConfig, m *metrics.Metrics, publisher domain.EventPublisher, opts ...Option) *PricingService {
	e := newEngine(limits, m, publisher, opts)
	return &PricingService{
		Command: &PricingCommandService{engine: e},
		Query:   &PricingQueryService{engine: e},
	}
}
