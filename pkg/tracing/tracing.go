// Package tracing 初始化 OpenTelemetry，span 通过 stdout 导出器写到标准输出或文件
package tracing

import (
	"context"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/fisker/salesflow/pkg/config"
	"github.com/fisker/salesflow/pkg/logger"
)

// ShutdownFunc 刷新并关闭 TracerProvider
type ShutdownFunc func(ctx context.Context) error

func noop(context.Context) error { return nil }

// Init 按配置安装全局 TracerProvider，未启用时 span 为 no-op
func Init(cfg *config.TracingConfig, serviceName, serviceVersion string) (ShutdownFunc, error) {
	if cfg == nil || !cfg.Enabled {
		return noop, nil
	}

	var w io.Writer = os.Stdout
	var closer io.Closer
	if cfg.Output != "" && cfg.Output != "stdout" {
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return noop, err
		}
		w, closer = f, f
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return noop, err
	}

	tp, err := InstallProvider(serviceName, serviceVersion, sdktrace.NewBatchSpanProcessor(exporter))
	if err != nil {
		return noop, err
	}
	logger.Infof("Tracing enabled, exporting spans to %s", describe(cfg.Output))

	return func(ctx context.Context) error {
		err := tp.Shutdown(ctx)
		if closer != nil {
			_ = closer.Close()
		}
		return err
	}, nil
}

// InstallProvider 使用给定的 SpanProcessor 注册全局 TracerProvider
func InstallProvider(serviceName, serviceVersion string, processor sdktrace.SpanProcessor) (*sdktrace.TracerProvider, error) {
	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			attribute.String("service.name", serviceName),
			attribute.String("service.version", serviceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(processor),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp, nil
}

// StatusFromHTTPCode 将 HTTP 状态码映射为 span 状态
func StatusFromHTTPCode(code int) (codes.Code, string) {
	switch {
	case code >= 100 && code < 400:
		return codes.Ok, ""
	case code >= 400 && code < 500:
		return codes.Error, "client error"
	case code >= 500:
		return codes.Error, "server error"
	default:
		return codes.Unset, ""
	}
}

func describe(output string) string {
	if output == "" {
		return "stdout"
	}
	return output
}
