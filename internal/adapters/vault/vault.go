package vault

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	vault "github.com/hashicorp/vault/api"
)

// Client reads KV v2 secrets with a per-key TTL cache. Safe for concurrent use.
type Client struct {
	api *vault.Client

	mu    sync.RWMutex
	cache map[string]cached // path#key -> value + expiry
}

type cached struct {
	val string
	exp time.Time
}

// New builds a client from VAULT_ADDR / VAULT_TOKEN; addr and token override
// them when set.
func New(addr, token string) (*Client, error) {
	cfg := vault.DefaultConfig()
	if err := cfg.ReadEnvironment(); err != nil {
		return nil, fmt.Errorf("vault env cfg: %w", err)
	}
	if addr != "" {
		cfg.Address = addr
	}
	api, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault api: %w", err)
	}
	if token != "" {
		api.SetToken(token)
	}
	return &Client{api: api, cache: make(map[string]cached)}, nil
}

// GetKV fetches one key of a KV v2 secret ("mount/rel/path"). ttl > 0 caches
// the value for that long.
func (c *Client) GetKV(ctx context.Context, secretPath, key string, ttl time.Duration) (string, error) {
	if secretPath == "" || key == "" {
		return "", errors.New("secret path and key must be non-empty")
	}
	canonical := secretPath + "#" + key

	if ttl > 0 {
		c.mu.RLock()
		cv, ok := c.cache[canonical]
		c.mu.RUnlock()
		if ok && time.Now().Before(cv.exp) {
			return cv.val, nil
		}
	}

	mount, rel := splitMount(secretPath)
	sec, err := c.api.KVv2(mount).Get(ctx, rel)
	if err != nil {
		return "", fmt.Errorf("vault get %s: %w", secretPath, err)
	}
	raw, ok := sec.Data[key]
	if !ok {
		return "", fmt.Errorf("key %q not found in secret %q", key, secretPath)
	}
	val, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("value at %s#%s is not a string", secretPath, key)
	}

	if ttl > 0 {
		c.mu.Lock()
		c.cache[canonical] = cached{val: val, exp: time.Now().Add(ttl)}
		c.mu.Unlock()
	}
	return val, nil
}

func splitMount(p string) (mount, rel string) {
	parts := strings.SplitN(strings.Trim(p, "/"), "/", 2)
	mount = parts[0]
	if len(parts) == 2 {
		rel = parts[1]
	}
	return
}
