package http

import (
	"go.uber.org/fx"

	admintransport "github.com/igorwgn/vitrine/internal/transport/http/admin"
	ordertransport "github.com/igorwgn/vitrine/internal/transport/http/order"
	webhooktransport "github.com/igorwgn/vitrine/internal/transport/http/webhook"
)

// Module aggregates all HTTP transport handlers.
var Module = fx.Options(
	ordertransport.Module,
	admintransport.Module,
	webhooktransport.Module,
)
