// Package redisstore implements the store contract on redis, one client per
// configured region. Each key is a redis hash holding the opaque version
// counter next to the payload; the compare-and-swap is a Lua script so the
// version check and the write are a single atomic step on the server.
package redisstore

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/kvquorum/kvsema/config"
	"github.com/kvquorum/kvsema/store"
)

const (
	versionField = "ver"
	dataField    = "data"
)

// casScript applies the write only when the stored version matches the
// expected one, or when the key is absent and the caller expects absence
// (expected version 0). Returns 1 if the write applied.
var casScript = redis.NewScript(`
local ver = redis.call('HGET', KEYS[1], 'ver')
local expected = tonumber(ARGV[2])
if ver == false then
	if expected == 0 then
		redis.call('HSET', KEYS[1], 'ver', 1, 'data', ARGV[1])
		return 1
	end
	return 0
end
if expected ~= 0 and tonumber(ver) == expected then
	redis.call('HSET', KEYS[1], 'ver', tonumber(ver) + 1, 'data', ARGV[1])
	return 1
end
return 0
`)

type (
	// Store is a redis-backed store.KV.
	Store struct {
		clients   map[string]*redis.Client // region -> client
		regions   []string                 // sorted region names
		keyPrefix string
	}
)

var _ store.KV = (*Store)(nil)

// New builds a Store from the region endpoint map. The auth token, when set,
// is used as the redis password for every region.
func New(cfg *config.Store, authToken string) (*Store, error) {
	if cfg == nil || len(cfg.Regions) == 0 {
		return nil, &config.ValidationError{Msg: "store requires at least one region endpoint"}
	}
	clients := make(map[string]*redis.Client, len(cfg.Regions))
	regions := make([]string, 0, len(cfg.Regions))
	for region, endpoint := range cfg.Regions {
		clients[region] = redis.NewClient(&redis.Options{
			Addr:     endpoint.Addr,
			Password: authToken,
			DB:       endpoint.DB,
		})
		regions = append(regions, region)
	}
	sort.Strings(regions)
	return &Store{
		clients:   clients,
		regions:   regions,
		keyPrefix: cfg.KeyPrefix,
	}, nil
}

// Close closes every region's client.
func (s *Store) Close() error {
	var firstErr error
	for _, client := range s.clients {
		if err := client.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *Store) Get(ctx context.Context, key string, region string) (*store.Entry, error) {
	client, err := s.client(region)
	if err != nil {
		return nil, err
	}
	res, err := client.HMGet(ctx, s.redisKey(key), versionField, dataField).Result()
	if err != nil {
		return nil, fmt.Errorf("redis get %v: %w", key, err)
	}
	if res[0] == nil {
		return nil, &store.NotFoundError{Key: key, Region: region}
	}
	var version int64
	if _, err := fmt.Sscan(res[0].(string), &version); err != nil {
		return nil, fmt.Errorf("redis get %v: malformed version %q", key, res[0])
	}
	var value []byte
	if res[1] != nil {
		value = []byte(res[1].(string))
	}
	return &store.Entry{Value: value, Version: version}, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte, expectedVersion int64, region string) (bool, error) {
	client, err := s.client(region)
	if err != nil {
		return false, err
	}
	applied, err := casScript.Run(ctx, client, []string{s.redisKey(key)}, value, expectedVersion).Int()
	if err != nil {
		return false, fmt.Errorf("redis put %v: %w", key, err)
	}
	return applied == 1, nil
}

func (s *Store) Regions(ctx context.Context) ([]string, error) {
	return slices.Clone(s.regions), nil
}

func (s *Store) client(region string) (*redis.Client, error) {
	if region == "" {
		// default region is the first configured one
		region = s.regions[0]
	}
	client, ok := s.clients[region]
	if !ok {
		return nil, fmt.Errorf("unknown store region %q", region)
	}
	return client, nil
}

func (s *Store) redisKey(key string) string {
	if s.keyPrefix == "" {
		return key
	}
	return s.keyPrefix + ":" + key
}
