package platformbilling

import (
	"github.com/storekit/vendra/internal/platformbilling/service"
	"go.uber.org/fx"
)

var Module = fx.Module("platformbilling.service",
	fx.Provide(service.NewService),
)
