package observability

import (
	"github.com/quantica-hq/billing/internal/observability/logger"
	"github.com/quantica-hq/billing/internal/observability/metrics"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(logger.New),
	fx.Provide(metrics.New),
)
