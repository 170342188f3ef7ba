package logger

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/mytwin/twin-admin/internal/graphql"
)

func Setup(dev bool) zerolog.Logger {
	var logger zerolog.Logger
	level := zerolog.InfoLevel
	if dev {
		level = zerolog.DebugLevel
	}

	logger = zerolog.New(os.Stderr).Level(level).With().Timestamp().Caller().Logger()

	if dev {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, FormatTimestamp: func(i any) string {
			return time.Now().Format(time.RFC3339)
		}}).Level(level).With().Stack().Logger()
	}

	return logger
}

// Operations logs every GraphQL operation with its duration. Each error the
// server reports is logged with its code, path and extensions. Variables and
// headers are never logged since they carry passwords and tokens.
func Operations(logger zerolog.Logger) graphql.Middleware {
	return func(next graphql.Handler) graphql.Handler {
		return func(ctx context.Context, op *graphql.Operation) (*graphql.Response, error) {
			started := time.Now()

			ctx = logger.With().
				Str("operation", op.Name).
				Logger().WithContext(ctx)

			resp, err := next(ctx, op)

			if err != nil {
				zerolog.Ctx(ctx).Error().
					Err(err).
					Dur("duration", time.Since(started)).
					Msg("graphql operation")

				return resp, err
			}

			for i, gqlErr := range resp.Errors {
				zerolog.Ctx(ctx).Warn().
					Int("index", i).
					Str("code", gqlErr.Code()).
					Interface("path", gqlErr.Path).
					Interface("extensions", gqlErr.Extensions).
					Msg(gqlErr.Message)
			}

			zerolog.Ctx(ctx).Debug().
				Int("errors", len(resp.Errors)).
				Dur("duration", time.Since(started)).
				Msg("graphql operation")

			return resp, nil
		}
	}
}
