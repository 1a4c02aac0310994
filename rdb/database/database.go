package database

import (
	"github.com/hatlonely/rdbx/rdb/schema"
	"github.com/hatlonely/rdbx/ref"
	"github.com/pkg/errors"
)

const Namespace = "github.com/hatlonely/rdbx/rdb/database"

func init() {
	ref.MustRegisterT[SQL](NewSQLWithOptions)
	ref.MustRegisterT[Gorm](NewGormWithOptions)
	ref.MustRegisterT[ObservableProvider](NewObservableProviderWithOptions)
	ref.MustRegisterT[CachedProvider](NewCachedProviderWithOptions)
	ref.MustRegisterT[FreeCache](NewFreeCacheWithOptions)
	ref.MustRegisterT[RedisCache](NewRedisCacheWithOptions)
}

// NewProviderWithOptions 按配置创建元数据来源，Namespace 为空时使用本包
func NewProviderWithOptions(options *ref.TypeOptions) (schema.Provider, error) {
	if options == nil {
		return nil, errors.New("provider options is nil")
	}
	if options.Namespace == "" {
		o := *options
		o.Namespace = Namespace
		options = &o
	}
	provider, err := ref.Build[schema.Provider](options)
	if err != nil {
		return nil, errors.WithMessage(err, "create provider failed")
	}
	return provider, nil
}
