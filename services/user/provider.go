package user

import (
	"go.uber.org/fx"
)

var Options = fx.Options(
	fx.Provide(NewRepository),
)
