package database

import (
	"context"
	"fmt"
	"time"

	"github.com/hatlonely/rdbx/log"
	"github.com/hatlonely/rdbx/log/logger"
	"github.com/hatlonely/rdbx/rdb/schema"
	"github.com/hatlonely/rdbx/ref"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type ObservableProviderOptions struct {
	// Provider 被包装的元数据来源
	Provider *ref.TypeOptions `cfg:"provider" validate:"required"`

	Logger *ref.TypeOptions `cfg:"logger"`

	EnableMetrics bool `cfg:"enableMetrics" def:"true"`
	EnableLogging bool `cfg:"enableLogging" def:"true"`
	EnableTracing bool `cfg:"enableTracing" def:"false"`

	// Name 指标名前缀，同时作为日志和 span 的 component
	Name string `cfg:"name" def:"schema_provider"`
}

// ProviderMetrics 元数据查询的 prometheus 指标
type ProviderMetrics struct {
	operationCounter  *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	activeOperations  *prometheus.GaugeVec
}

// 同名指标重复注册时复用已注册的 collector
func register[T prometheus.Collector](c T) T {
	if err := prometheus.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

func NewProviderMetrics(name string) *ProviderMetrics {
	return &ProviderMetrics{
		operationCounter: register(prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: name + "_operations_total",
				Help: "Total number of schema metadata operations",
			},
			[]string{"operation", "status"},
		)),
		operationDuration: register(prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    name + "_operation_duration_seconds",
				Help:    "Duration of schema metadata operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
			},
			[]string{"operation"},
		)),
		activeOperations: register(prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: name + "_active_operations",
				Help: "Number of active schema metadata operations",
			},
			[]string{"operation"},
		)),
	}
}

// ObservableProvider 为任意 schema.Provider 添加指标、日志和链路追踪
type ObservableProvider struct {
	provider schema.Provider

	logger  logger.Logger
	metrics *ProviderMetrics
	tracer  trace.Tracer
	name    string
}

func NewObservableProviderWithOptions(options *ObservableProviderOptions) (*ObservableProvider, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}
	provider, err := NewProviderWithOptions(options.Provider)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create underlying provider")
	}
	return NewObservableProvider(provider, options)
}

func NewObservableProvider(provider schema.Provider, options *ObservableProviderOptions) (*ObservableProvider, error) {
	if provider == nil {
		return nil, errors.New("provider is nil")
	}
	if options == nil {
		options = &ObservableProviderOptions{}
	}
	name := options.Name
	if name == "" {
		name = "schema_provider"
	}

	obs := &ObservableProvider{provider: provider, name: name}
	if options.EnableLogging {
		l, err := log.NewLoggerWithOptions(options.Logger)
		if err != nil {
			return nil, errors.WithMessage(err, "failed to create logger")
		}
		obs.logger = l.WithGroup("observableProvider")
	}
	if options.EnableMetrics {
		obs.metrics = NewProviderMetrics(name)
	}
	if options.EnableTracing {
		obs.tracer = otel.Tracer(fmt.Sprintf("schema.%s", name))
	}
	return obs, nil
}

func (obs *ObservableProvider) Provider() schema.Provider {
	return obs.provider
}

func (obs *ObservableProvider) observe(ctx context.Context, operation string, relation string, fn func(context.Context) error) error {
	start := time.Now()

	var span trace.Span
	if obs.tracer != nil {
		ctx, span = obs.tracer.Start(ctx, fmt.Sprintf("schema.%s", operation),
			trace.WithAttributes(
				attribute.String("component", obs.name),
				attribute.String("operation", operation),
				attribute.String("relation", relation),
			),
		)
		defer span.End()
	}

	if obs.metrics != nil {
		obs.metrics.activeOperations.WithLabelValues(operation).Inc()
		defer obs.metrics.activeOperations.WithLabelValues(operation).Dec()
	}

	err := fn(ctx)
	duration := time.Since(start)

	if span != nil {
		span.SetAttributes(attribute.Int64("duration_ms", duration.Milliseconds()))
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			span.RecordError(err)
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}

	if obs.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		obs.metrics.operationCounter.WithLabelValues(operation, status).Inc()
		obs.metrics.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	}

	if obs.logger != nil {
		if err != nil {
			obs.logger.ErrorContext(ctx, "schema operation failed",
				"component", obs.name,
				"operation", operation,
				"relation", relation,
				"duration_ms", duration.Milliseconds(),
				"error", err.Error(),
			)
		} else {
			obs.logger.DebugContext(ctx, "schema operation completed",
				"component", obs.name,
				"operation", operation,
				"relation", relation,
				"duration_ms", duration.Milliseconds(),
			)
		}
	}

	return err
}

func (obs *ObservableProvider) Relations(ctx context.Context) ([]string, error) {
	var names []string
	err := obs.observe(ctx, "Relations", "", func(ctx context.Context) error {
		var err error
		names, err = obs.provider.Relations(ctx)
		return err
	})
	return names, err
}

func (obs *ObservableProvider) ShowCreate(ctx context.Context, name string) (map[string]string, error) {
	var def map[string]string
	err := obs.observe(ctx, "ShowCreate", name, func(ctx context.Context) error {
		var err error
		def, err = obs.provider.ShowCreate(ctx, name)
		return err
	})
	return def, err
}

func (obs *ObservableProvider) Columns(ctx context.Context, name string) ([]*schema.Column, error) {
	var columns []*schema.Column
	err := obs.observe(ctx, "Columns", name, func(ctx context.Context) error {
		var err error
		columns, err = obs.provider.Columns(ctx, name)
		return err
	})
	return columns, err
}

func (obs *ObservableProvider) PrimaryKey(ctx context.Context, name string) (string, bool, error) {
	var pk string
	var ok bool
	err := obs.observe(ctx, "PrimaryKey", name, func(ctx context.Context) error {
		var err error
		pk, ok, err = obs.provider.PrimaryKey(ctx, name)
		return err
	})
	return pk, ok, err
}

func (obs *ObservableProvider) Indexes(ctx context.Context, name string) ([]*schema.Index, error) {
	var indexes []*schema.Index
	err := obs.observe(ctx, "Indexes", name, func(ctx context.Context) error {
		var err error
		indexes, err = obs.provider.Indexes(ctx, name)
		return err
	})
	return indexes, err
}

func (obs *ObservableProvider) TypeInfo(typ schema.ColumnType) (schema.TypeInfo, bool) {
	return obs.provider.TypeInfo(typ)
}

func (obs *ObservableProvider) Close() error {
	if c, ok := obs.provider.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

var _ schema.Provider = (*ObservableProvider)(nil)
