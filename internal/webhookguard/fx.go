package webhookguard

import "go.uber.org/fx"

var Module = fx.Module("webhook.guard",
	fx.Provide(New),
)
