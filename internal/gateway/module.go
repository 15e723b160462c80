package gateway

import (
	"go.uber.org/fx"

	"github.com/igorwgn/vitrine/internal/port"
)

// Module provides the payment gateway client to Fx.
var Module = fx.Provide(
	fx.Annotate(NewClient, fx.As(new(port.PaymentGateway))),
)
