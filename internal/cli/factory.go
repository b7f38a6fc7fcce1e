package cli

import (
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/aretw0/espalier/internal/config"
	"github.com/aretw0/espalier/pkg/adapters/file"
	"github.com/aretw0/espalier/pkg/adapters/httpapi"
	"github.com/aretw0/espalier/pkg/adapters/redis"
	"github.com/aretw0/espalier/pkg/ports"
)

// Backend bundles the collaborators a command gets from the configured
// storage. Projects and Locker are nil when the backend does not provide
// them.
type Backend struct {
	Store    ports.FlowStore
	Projects httpapi.ProjectStore
	Locker   ports.FlowLocker
	closer   func() error
}

// Close releases backend resources.
func (b *Backend) Close() error {
	if b.closer == nil {
		return nil
	}
	return b.closer()
}

// NewBackend builds the flow store described by the configuration.
func NewBackend(cfg *config.Config) (*Backend, error) {
	switch cfg.Storage.Backend {
	case "file":
		store, err := file.NewStore(cfg.Storage.DataDir)
		if err != nil {
			return nil, fmt.Errorf("open file store at %s: %w", cfg.Storage.DataDir, err)
		}
		return &Backend{Store: store, Projects: store}, nil
	case "redis":
		store := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			redis.WithTTL(cfg.Redis.TTL()))
		b := &Backend{Store: store, closer: store.Close}
		if cfg.Redis.Locking {
			client := goredis.NewClient(&goredis.Options{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			b.Locker = redis.NewLocker(client, "espalier:")
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
