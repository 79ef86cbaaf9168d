package ordernumber

import (
	"github.com/storekit/vendra/internal/ordernumber/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ordernumber.service",
	fx.Provide(service.NewService),
)
