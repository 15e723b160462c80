package order

import (
	"go.uber.org/fx"

	"github.com/igorwgn/vitrine/internal/port"
)

// Module provides the order repository to Fx as the store port.
var Module = fx.Provide(
	fx.Annotate(NewRepository, fx.As(new(port.OrderRepository))),
)
