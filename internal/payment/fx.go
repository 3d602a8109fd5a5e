package payment

import (
	"github.com/digiunlocks/soccer-club-sub006/internal/payment/repository"
	"github.com/digiunlocks/soccer-club-sub006/internal/payment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
