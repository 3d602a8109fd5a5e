package audit

import (
	"github.com/digiunlocks/soccer-club-sub006/internal/audit/repository"
	"github.com/digiunlocks/soccer-club-sub006/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
