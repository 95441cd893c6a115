package telemetry

import (
	"context"
	"log/slog"
	"net"

	"github.com/redis/go-redis/v9"
)

// MonitorRedis attaches debug logging of every command to the client.
func MonitorRedis(r *redis.Client, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	r.AddHook(redisLog{logger: logger})
}

type redisLog struct {
	logger *slog.Logger
}

func (l redisLog) DialHook(hook redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := hook(ctx, network, addr)
		if err != nil {
			l.logger.WarnContext(ctx, "redis: dial failed", "network", network, "addr", addr, "error", err)
			return conn, err
		}
		l.logger.DebugContext(ctx, "redis: dialed", "network", network, "addr", addr)
		return conn, nil
	}
}

func (l redisLog) ProcessHook(hook redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := hook(ctx, cmd)
		if err != nil && err != redis.Nil {
			l.logger.WarnContext(ctx, "redis: command failed", "cmd", cmd.Name(), "error", err)
			return err
		}
		l.logger.DebugContext(ctx, "redis: command", "cmd", cmd.Name())
		return err
	}
}

func (l redisLog) ProcessPipelineHook(hook redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := hook(ctx, cmds)
		if err != nil {
			l.logger.WarnContext(ctx, "redis: pipeline failed", "cmds", len(cmds), "error", err)
			return err
		}
		l.logger.DebugContext(ctx, "redis: pipeline", "cmds", len(cmds))
		return nil
	}
}
