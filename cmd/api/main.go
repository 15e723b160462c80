package main

import (
	"go.uber.org/fx"

	"github.com/igorwgn/vitrine/internal/app"
)

func main() {
	fx.New(app.Module).Run()
}
