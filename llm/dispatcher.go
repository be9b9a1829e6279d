package llm

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/genbridge/types"
)

// =============================================================================
// 🚀 推理分发器
// =============================================================================

// Recorder 接收每次推理调用的观测数据，通常由 metrics.Collector 实现
type Recorder interface {
	RecordInference(provider, modality, status string, duration time.Duration)
}

// Dispatcher 把一次请求发送给 Provider，并把结果转换为 Result。
// 每次 Infer 只调用 Provider 一次，不做重试。
type Dispatcher struct {
	provider Provider
	logger   *zap.Logger
	timeout  time.Duration
	recorder Recorder
	tracer   trace.Tracer
}

// DispatcherOption 配置 Dispatcher
type DispatcherOption func(*Dispatcher)

// WithTimeout 设置单次调用超时，<= 0 表示不限制
func WithTimeout(d time.Duration) DispatcherOption {
	return func(dp *Dispatcher) {
		dp.timeout = d
	}
}

// WithRecorder 设置观测记录器
func WithRecorder(r Recorder) DispatcherOption {
	return func(dp *Dispatcher) {
		dp.recorder = r
	}
}

// NewDispatcher 创建分发器
func NewDispatcher(provider Provider, logger *zap.Logger, opts ...DispatcherOption) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{
		provider: provider,
		logger:   logger.With(zap.String("component", "dispatcher"), zap.String("provider", provider.Name())),
		tracer:   otel.Tracer("genbridge/llm"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Provider 返回底层 Provider
func (d *Dispatcher) Provider() Provider {
	return d.provider
}

// Infer 执行一次推理
func (d *Dispatcher) Infer(ctx context.Context, req Request) Result {
	if len(req.Parts) == 0 {
		return Failed(types.NewInvalidRequestError("request has no content parts"))
	}

	ctx, span := d.tracer.Start(ctx, "llm.infer",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("llm.provider", d.provider.Name()),
			attribute.String("llm.modality", string(req.Modality)),
			attribute.Int("llm.parts", len(req.Parts)),
		),
	)
	defer span.End()

	ctx = types.WithModality(ctx, string(req.Modality))
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	start := time.Now()
	output, err := d.generate(ctx, req.Parts)
	duration := time.Since(start)

	logFields := []zap.Field{
		zap.String("modality", string(req.Modality)),
		zap.Int("parts", len(req.Parts)),
		zap.Duration("duration", duration),
	}
	if id, ok := types.RequestID(ctx); ok {
		logFields = append(logFields, zap.String("request_id", id))
	}

	if err != nil {
		result := Failed(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, result.Failure.Message)
		d.record(req.Modality, "failure", duration)
		d.logger.Warn("inference failed", append(logFields,
			zap.String("code", string(result.Failure.Code)),
			zap.Error(err),
		)...)
		return result
	}

	span.SetAttributes(attribute.Int("llm.output_chars", len(output)))
	d.record(req.Modality, "success", duration)
	d.logger.Info("inference completed", logFields...)
	return Succeeded(output)
}

// generate 调用 Provider，并把 panic 转换为错误
func (d *Dispatcher) generate(ctx context.Context, parts []Part) (output string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = types.NewError(types.ErrInternalError, fmt.Sprintf("provider panic: %v", r)).
				WithProvider(d.provider.Name())
		}
	}()
	return d.provider.Generate(ctx, parts)
}

func (d *Dispatcher) record(modality Modality, status string, duration time.Duration) {
	if d.recorder == nil {
		return
	}
	d.recorder.RecordInference(d.provider.Name(), string(modality), status, duration)
}
