package webhookguard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/storekit/vendra/internal/config"
)

const keyWebhookEvent = "webhook:event:%s:%s"

const claimReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

// Guard deduplicates gateway webhook deliveries by event ID. The first
// delivery claims the event with SETNX; replays inside the TTL are reported
// as duplicates. A disabled guard passes everything through.
type Guard struct {
	enabled bool

	client *redis.Client
	script *redis.Script
	ttl    time.Duration
}

func New(cfg config.Config) (*Guard, error) {
	guardCfg := cfg.Webhook
	if !guardCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(guardCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("webhook guard redis addr is required")
	}
	if guardCfg.DedupeTTLSecs <= 0 {
		return nil, errors.New("webhook guard ttl must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(guardCfg.RedisPassword),
		DB:       guardCfg.RedisDB,
	})

	return &Guard{
		enabled: true,
		client:  client,
		script:  redis.NewScript(claimReleaseScript),
		ttl:     time.Duration(guardCfg.DedupeTTLSecs) * time.Second,
	}, nil
}

func (g *Guard) Enabled() bool {
	return g != nil && g.enabled
}

// Claim marks the event as seen. The returned token releases the claim if
// processing fails, so the gateway's retry is not swallowed.
func (g *Guard) Claim(ctx context.Context, source, eventID string) (string, bool, error) {
	if !g.Enabled() {
		return "", true, nil
	}
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return "", false, errors.New("webhook event id is empty")
	}

	token := uuid.NewString()
	key := fmt.Sprintf(keyWebhookEvent, source, eventID)
	ok, err := g.client.SetNX(ctx, key, token, g.ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

// Release drops the claim so the event can be redelivered. Only the claim
// holder's token releases it; an expired or re-claimed key is left alone.
func (g *Guard) Release(ctx context.Context, source, eventID, token string) error {
	if !g.Enabled() || token == "" {
		return nil
	}
	key := fmt.Sprintf(keyWebhookEvent, source, eventID)
	return g.script.Run(ctx, g.client, []string{key}, token).Err()
}
