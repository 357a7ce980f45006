package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/defistate/token-launcher-go/store"
	"github.com/defistate/token-launcher-go/store/file"
	"github.com/defistate/token-launcher-go/store/memory"
	"github.com/defistate/token-launcher-go/store/postgres"
	"github.com/defistate/token-launcher-go/store/redis"
)

var supportedStoreProviders = []string{"memory", "file", "postgres", "postgresql", "redis", "rediss"}

// newStore opens the store selected by the scheme of storeURL.
func newStore(ctx context.Context, logger *slog.Logger, storeURL string) (store.Store, error) {
	provider, rest, ok := strings.Cut(storeURL, "://")
	if !ok {
		return nil, fmt.Errorf("store url %q has no scheme (supported: %s)", redactStoreURL(storeURL), strings.Join(supportedStoreProviders, ", "))
	}

	logger.Info("Opening store", "provider", provider, "url", redactStoreURL(storeURL))
	var (
		st  store.Store
		err error
	)
	switch provider {
	case "memory":
		logger.Warn("Memory store selected: launch history is lost on exit")
		return memory.New(), nil
	case "file":
		st, err = file.New(rest)
	case "postgres", "postgresql":
		st, err = postgres.New(ctx, storeURL)
	case "redis", "rediss":
		st, err = redis.Open(ctx, storeURL)
	default:
		return nil, fmt.Errorf("unsupported store provider %q (supported: %s)", provider, strings.Join(supportedStoreProviders, ", "))
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", provider, err)
	}
	return st, nil
}

// redactStoreURL masks the password of a store URL. Unparsable URLs are
// reduced to their scheme.
func redactStoreURL(storeURL string) string {
	u, err := url.Parse(storeURL)
	if err != nil {
		if provider, _, ok := strings.Cut(storeURL, "://"); ok {
			return provider + "://<redacted>"
		}
		return "<redacted>"
	}
	return u.Redacted()
}
