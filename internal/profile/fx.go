package profile

import (
	"github.com/learnsprout/sproutlink/internal/profile/repository"
	"github.com/learnsprout/sproutlink/internal/profile/service"
	"go.uber.org/fx"
)

var Module = fx.Module("profile.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
