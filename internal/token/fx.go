package token

import (
	"github.com/learnsprout/sproutlink/internal/token/repository"
	"github.com/learnsprout/sproutlink/internal/token/service"
	"go.uber.org/fx"
)

var Module = fx.Module("token.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
