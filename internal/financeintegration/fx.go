package financeintegration

import (
	"github.com/digiunlocks/soccer-club-sub006/internal/financeintegration/service"
	"go.uber.org/fx"
)

var Module = fx.Module("finance.integration",
	fx.Provide(service.NewService),
)
