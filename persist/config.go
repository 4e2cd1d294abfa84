package persist

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Config selects a snapshot store and codec.
type Config struct {
	Store     string `json:"store,omitempty" yaml:"store,omitempty"`           // memory, file, sqlite, redis; empty disables persistence
	Path      string `json:"path,omitempty" yaml:"path,omitempty"`             // FileStore root directory
	DSN       string `json:"dsn,omitempty" yaml:"dsn,omitempty"`               // SQLite data source name
	RedisAddr string `json:"redis_addr,omitempty" yaml:"redis_addr,omitempty"` // Redis address host:port
	Codec     string `json:"codec,omitempty" yaml:"codec,omitempty"`
	Prefix    string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
}

// DefaultConfig returns the default persistence configuration: JSON
// snapshots, persistence disabled.
func DefaultConfig() Config {
	return Config{Codec: "json"}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Store != "" {
		c.Store = source.Store
	}
	if source.Path != "" {
		c.Path = source.Path
	}
	if source.DSN != "" {
		c.DSN = source.DSN
	}
	if source.RedisAddr != "" {
		c.RedisAddr = source.RedisAddr
	}
	if source.Codec != "" {
		c.Codec = source.Codec
	}
	if source.Prefix != "" {
		c.Prefix = source.Prefix
	}
}

// NewStore builds the configured store. It returns a nil Store when Store
// is empty, meaning persistence is disabled.
func NewStore(ctx context.Context, cfg *Config) (Store, error) {
	switch cfg.Store {
	case "":
		return nil, nil
	case "memory":
		return NewMemoryStore(), nil
	case "file":
		if cfg.Path == "" {
			return nil, fmt.Errorf("file store requires a path")
		}
		ext := ""
		if cfg.Codec != "" {
			ext = "." + cfg.Codec
		}
		return NewFileStore(cfg.Path, ext), nil
	case "sqlite":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("sqlite store requires a dsn")
		}
		return OpenSQLite(ctx, cfg.DSN)
	case "redis":
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("redis store requires an address")
		}
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
		}
		return NewRedisStore(client, cfg.Prefix), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownStore, cfg.Store)
	}
}

// NewSnapshotterFromConfig builds the store and codec named by cfg. The
// returned Snapshotter is nil when persistence is disabled.
func NewSnapshotterFromConfig(ctx context.Context, cfg *Config, opts ...Option) (*Snapshotter, error) {
	store, err := NewStore(ctx, cfg)
	if err != nil || store == nil {
		return nil, err
	}

	name := cfg.Codec
	if name == "" {
		name = "json"
	}
	codec, err := GetCodec(name)
	if err != nil {
		return nil, err
	}

	// Redis keys are already namespaced by the store.
	if cfg.Store != "redis" && cfg.Prefix != "" {
		opts = append([]Option{WithPrefix(cfg.Prefix)}, opts...)
	}
	return NewSnapshotter(store, codec, opts...), nil
}
