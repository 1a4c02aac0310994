package database

import (
	"context"
	"time"

	"github.com/coocood/freecache"
	"github.com/hatlonely/rdbx/log"
	"github.com/hatlonely/rdbx/log/logger"
	"github.com/hatlonely/rdbx/rdb/schema"
	"github.com/hatlonely/rdbx/ref"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

var ErrCacheMiss = errors.New("cache miss")

// MetadataCache 元数据缓存的存储后端，值是序列化后的字节
type MetadataCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Close() error
}

type FreeCacheOptions struct {
	// 缓存大小，单位字节，freecache 最小 512KB
	Size int `cfg:"size" def:"10485760"`
}

// FreeCache 进程内缓存
type FreeCache struct {
	cache *freecache.Cache
}

func NewFreeCacheWithOptions(options *FreeCacheOptions) (*FreeCache, error) {
	if options == nil {
		options = &FreeCacheOptions{}
	}
	size := options.Size
	if size <= 0 {
		size = 10 * 1024 * 1024
	}
	return &FreeCache{cache: freecache.NewCache(size)}, nil
}

func (c *FreeCache) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := c.cache.Get([]byte(key))
	if err != nil {
		if errors.Is(err, freecache.ErrNotFound) {
			return nil, ErrCacheMiss
		}
		return nil, errors.Wrap(err, "freecache.Get failed")
	}
	return value, nil
}

// Set ttl 按秒取整，0 表示不过期
func (c *FreeCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.cache.Set([]byte(key), value, int(ttl.Seconds())); err != nil {
		return errors.Wrap(err, "freecache.Set failed")
	}
	return nil
}

func (c *FreeCache) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		c.cache.Del([]byte(key))
	}
	return nil
}

func (c *FreeCache) Close() error {
	c.cache.Clear()
	return nil
}

type RedisCacheOptions struct {
	// host:port 地址
	Endpoint string `cfg:"endpoint" validate:"required"`
	Username string `cfg:"username"`
	Password string `cfg:"password"`
	DB       int    `cfg:"db" def:"0"`

	DialTimeout  time.Duration `cfg:"dialTimeout" def:"5s"`
	ReadTimeout  time.Duration `cfg:"readTimeout" def:"3s"`
	WriteTimeout time.Duration `cfg:"writeTimeout" def:"3s"`
}

// RedisCache 多个进程共享的缓存，适合多个导出任务读同一个库
type RedisCache struct {
	client *redis.Client
}

func NewRedisCacheWithOptions(options *RedisCacheOptions) (*RedisCache, error) {
	if options == nil || options.Endpoint == "" {
		return nil, errors.New("redis endpoint is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:         options.Endpoint,
		Username:     options.Username,
		Password:     options.Password,
		DB:           options.DB,
		DialTimeout:  options.DialTimeout,
		ReadTimeout:  options.ReadTimeout,
		WriteTimeout: options.WriteTimeout,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "redis ping %s failed", options.Endpoint)
	}
	return &RedisCache{client: client}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, errors.Wrap(err, "redis.Get failed")
	}
	return value, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return errors.Wrap(err, "redis.Set failed")
	}
	return nil
}

func (c *RedisCache) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return errors.Wrap(err, "redis.Del failed")
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

type CachedProviderOptions struct {
	// Provider 被缓存的元数据来源
	Provider *ref.TypeOptions `cfg:"provider" validate:"required"`

	// Cache 缓存后端，默认 FreeCache
	Cache *ref.TypeOptions `cfg:"cache"`

	Logger *ref.TypeOptions `cfg:"logger"`

	// KeyPrefix 区分不同数据库的缓存键
	KeyPrefix string        `cfg:"keyPrefix" def:"rdbx:schema:"`
	TTL       time.Duration `cfg:"ttl" def:"5m"`
}

// CachedProvider 缓存 Provider 的查询结果，错误结果不缓存
//
// 缓存读写失败只记录日志并回退到被包装的 Provider
type CachedProvider struct {
	provider schema.Provider
	cache    MetadataCache
	logger   logger.Logger

	keyPrefix string
	ttl       time.Duration
}

func NewCachedProviderWithOptions(options *CachedProviderOptions) (*CachedProvider, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}
	provider, err := NewProviderWithOptions(options.Provider)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create underlying provider")
	}

	var cache MetadataCache
	if options.Cache == nil {
		cache, _ = NewFreeCacheWithOptions(nil)
	} else {
		o := *options.Cache
		if o.Namespace == "" {
			o.Namespace = Namespace
		}
		cache, err = ref.Build[MetadataCache](&o)
		if err != nil {
			return nil, errors.WithMessage(err, "failed to create cache")
		}
	}

	l, err := log.NewLoggerWithOptions(options.Logger)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create logger")
	}

	return NewCachedProvider(provider, cache, l, options), nil
}

func NewCachedProvider(provider schema.Provider, cache MetadataCache, l logger.Logger, options *CachedProviderOptions) *CachedProvider {
	if options == nil {
		options = &CachedProviderOptions{}
	}
	if l == nil {
		l = log.Default()
	}
	prefix := options.KeyPrefix
	if prefix == "" {
		prefix = "rdbx:schema:"
	}
	return &CachedProvider{
		provider:  provider,
		cache:     cache,
		logger:    l.WithGroup("cachedProvider"),
		keyPrefix: prefix,
		ttl:       options.TTL,
	}
}

func (p *CachedProvider) Provider() schema.Provider {
	return p.provider
}

func (p *CachedProvider) key(operation string, name string) string {
	return p.keyPrefix + operation + ":" + name
}

func cached[T any](ctx context.Context, p *CachedProvider, operation string, name string, load func() (T, error)) (T, error) {
	key := p.key(operation, name)

	buf, err := p.cache.Get(ctx, key)
	if err == nil {
		var value T
		if err = msgpack.Unmarshal(buf, &value); err == nil {
			return value, nil
		}
		p.logger.WarnContext(ctx, "decode cached metadata failed", "key", key, "error", err.Error())
	} else if !errors.Is(err, ErrCacheMiss) {
		p.logger.WarnContext(ctx, "read metadata cache failed", "key", key, "error", err.Error())
	}

	value, err := load()
	if err != nil {
		return value, err
	}

	buf, err = msgpack.Marshal(value)
	if err != nil {
		p.logger.WarnContext(ctx, "encode metadata failed", "key", key, "error", err.Error())
		return value, nil
	}
	if err := p.cache.Set(ctx, key, buf, p.ttl); err != nil {
		p.logger.WarnContext(ctx, "write metadata cache failed", "key", key, "error", err.Error())
	}
	return value, nil
}

func (p *CachedProvider) Relations(ctx context.Context) ([]string, error) {
	return cached(ctx, p, "relations", "", func() ([]string, error) {
		return p.provider.Relations(ctx)
	})
}

func (p *CachedProvider) ShowCreate(ctx context.Context, name string) (map[string]string, error) {
	return cached(ctx, p, "create", name, func() (map[string]string, error) {
		return p.provider.ShowCreate(ctx, name)
	})
}

func (p *CachedProvider) Columns(ctx context.Context, name string) ([]*schema.Column, error) {
	return cached(ctx, p, "columns", name, func() ([]*schema.Column, error) {
		return p.provider.Columns(ctx, name)
	})
}

type primaryKey struct {
	Name string
	OK   bool
}

func (p *CachedProvider) PrimaryKey(ctx context.Context, name string) (string, bool, error) {
	pk, err := cached(ctx, p, "pk", name, func() (primaryKey, error) {
		pk, ok, err := p.provider.PrimaryKey(ctx, name)
		return primaryKey{Name: pk, OK: ok}, err
	})
	if err != nil {
		return "", false, err
	}
	return pk.Name, pk.OK, nil
}

func (p *CachedProvider) Indexes(ctx context.Context, name string) ([]*schema.Index, error) {
	return cached(ctx, p, "indexes", name, func() ([]*schema.Index, error) {
		return p.provider.Indexes(ctx, name)
	})
}

func (p *CachedProvider) TypeInfo(typ schema.ColumnType) (schema.TypeInfo, bool) {
	return p.provider.TypeInfo(typ)
}

// Invalidate 删除关系的缓存，同时删除关系列表，name 为空时只删除关系列表
func (p *CachedProvider) Invalidate(ctx context.Context, name string) error {
	keys := []string{p.key("relations", "")}
	if name != "" {
		for _, operation := range []string{"create", "columns", "pk", "indexes"} {
			keys = append(keys, p.key(operation, name))
		}
	}
	return p.cache.Del(ctx, keys...)
}

func (p *CachedProvider) Close() error {
	var errs []error
	if err := p.cache.Close(); err != nil {
		errs = append(errs, err)
	}
	if c, ok := p.provider.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) != 0 {
		return errors.Errorf("close cached provider failed: %v", errs)
	}
	return nil
}

var (
	_ schema.Provider = (*CachedProvider)(nil)
	_ MetadataCache   = (*FreeCache)(nil)
	_ MetadataCache   = (*RedisCache)(nil)
)
