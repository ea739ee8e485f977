package tracing

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// InjectTraceID returns ctx carrying a logger tagged with a fresh trace id.
func InjectTraceID(ctx context.Context) context.Context {
	return WithTraceID(ctx, uuid.New().String())
}

// WithTraceID returns ctx carrying a logger tagged with id.
func WithTraceID(ctx context.Context, id string) context.Context {
	logger := log.With().Str("traceId", id).Logger()
	return logger.WithContext(ctx)
}
