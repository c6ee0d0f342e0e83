package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"todoapi/pkg/tracing"
)

const pushPath = "/loki/api/v1/push"

// LokiLogger logs through zap (with trace correlation from otelzap) and, when
// a Loki URL is configured, mirrors each line to Loki asynchronously.
type LokiLogger struct {
	Logger      *otelzap.Logger
	serviceName string
	pushURL     string
	httpClient  *http.Client
	pending     sync.WaitGroup
}

type LokiLogEntry struct {
	Streams []LokiStream `json:"streams"`
}

type LokiStream struct {
	Stream map[string]string `json:"stream"`
	Values [][]string        `json:"values"`
}

func New(serviceName, lokiURL, level string) (*LokiLogger, error) {
	config := zap.NewProductionConfig()
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.TimeKey = "timestamp"

	if level != "" {
		lvl, err := zap.ParseAtomicLevel(strings.ToLower(level))

		if err != nil {
			return nil, fmt.Errorf("parse log level: %w", err)
		}

		config.Level = lvl
	}

	zapLogger, err := config.Build()

	if err != nil {
		return nil, fmt.Errorf("failed to create zap logger: %w", err)
	}

	return FromZap(zapLogger, serviceName, lokiURL), nil
}

// NewNop returns a logger that discards everything and never pushes.
func NewNop() *LokiLogger {
	return FromZap(zap.NewNop(), "", "")
}

// FromZap builds a LokiLogger on top of an existing zap logger. An empty
// lokiURL disables pushing.
func FromZap(zapLogger *zap.Logger, serviceName, lokiURL string) *LokiLogger {
	l := &LokiLogger{
		Logger:      otelzap.New(zapLogger),
		serviceName: serviceName,
		httpClient:  &http.Client{Timeout: 5 * time.Second},
	}

	if lokiURL != "" {
		l.pushURL = strings.TrimRight(lokiURL, "/") + pushPath
	}

	return l
}

func (l *LokiLogger) Info(ctx context.Context, msg string, fields ...zap.Field) {
	l.log(ctx, zapcore.InfoLevel, msg, fields...)
}

func (l *LokiLogger) Warn(ctx context.Context, msg string, fields ...zap.Field) {
	l.log(ctx, zapcore.WarnLevel, msg, fields...)
}

func (l *LokiLogger) Error(ctx context.Context, msg string, fields ...zap.Field) {
	l.log(ctx, zapcore.ErrorLevel, msg, fields...)
}

func (l *LokiLogger) log(ctx context.Context, level zapcore.Level, msg string, fields ...zap.Field) {
	switch level {
	case zapcore.ErrorLevel:
		l.Logger.Ctx(ctx).Error(msg, fields...)
	case zapcore.WarnLevel:
		l.Logger.Ctx(ctx).Warn(msg, fields...)
	default:
		l.Logger.Ctx(ctx).Info(msg, fields...)
	}

	if l.pushURL == "" || !l.Logger.Core().Enabled(level) {
		return
	}

	entry, err := l.buildEntry(ctx, level, msg, fields)

	if err != nil {
		return
	}

	l.pending.Add(1)

	go func() {
		defer l.pending.Done()
		l.push(entry)
	}()
}

func (l *LokiLogger) buildEntry(ctx context.Context, level zapcore.Level, msg string, fields []zap.Field) (LokiLogEntry, error) {
	enc := zapcore.NewMapObjectEncoder()

	for _, field := range fields {
		field.AddTo(enc)
	}

	line := enc.Fields
	line["timestamp"] = time.Now().Format(time.RFC3339Nano)
	line["level"] = level.String()
	line["message"] = msg
	line["service"] = l.serviceName

	if traceID := tracing.GetTraceID(ctx); traceID != "" {
		line["trace_id"] = traceID
		line["span_id"] = tracing.GetSpanID(ctx)
	}

	body, err := json.Marshal(line)

	if err != nil {
		return LokiLogEntry{}, err
	}

	return LokiLogEntry{
		Streams: []LokiStream{
			{
				Stream: map[string]string{
					"service": l.serviceName,
					"level":   level.String(),
				},
				Values: [][]string{
					{strconv.FormatInt(time.Now().UnixNano(), 10), string(body)},
				},
			},
		},
	}, nil
}

func (l *LokiLogger) push(entry LokiLogEntry) {
	body, err := json.Marshal(entry)

	if err != nil {
		return
	}

	req, err := http.NewRequest(http.MethodPost, l.pushURL, bytes.NewReader(body))

	if err != nil {
		return
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := l.httpClient.Do(req)

	if err != nil {
		return
	}
	defer resp.Body.Close()

	io.Copy(io.Discard, resp.Body)
}

// Flush waits for in-flight pushes and syncs the zap core.
func (l *LokiLogger) Flush() error {
	l.pending.Wait()

	return l.Logger.Sync()
}
