package notifier

import (
	"go.uber.org/fx"

	"github.com/igorwgn/vitrine/internal/port"
)

// Module wires the notification channels and dispatcher.
var Module = fx.Options(
	fx.Provide(NewSMTPSender),
	fx.Provide(NewWhatsAppSender),
	fx.Provide(
		fx.Annotate(NewDispatcher, fx.As(new(port.Notifier))),
	),
)
