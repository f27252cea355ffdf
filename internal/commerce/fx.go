package commerce

import "go.uber.org/fx"

var Module = fx.Module("commerce",
	fx.Provide(NewClient),
)
