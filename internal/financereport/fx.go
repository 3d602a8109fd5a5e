package financereport

import (
	"github.com/digiunlocks/soccer-club-sub006/internal/financereport/service"
	"go.uber.org/fx"
)

var Module = fx.Module("finance.report",
	fx.Provide(service.NewService),
)
