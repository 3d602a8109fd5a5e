package ledger

import (
	"github.com/digiunlocks/soccer-club-sub006/internal/ledger/repository"
	"github.com/digiunlocks/soccer-club-sub006/internal/ledger/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ledger.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
