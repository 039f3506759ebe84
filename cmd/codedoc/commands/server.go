package commands

import (
	"context"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/jinford/codedoc/internal/interface/httpapi"
)

// ServerStartAction はHTTP APIサーバを起動するコマンドのアクション
func ServerStartAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	port := appCtx.Config.Server.Port
	if cmd.IsSet("port") {
		port = cmd.Int("port")
	}

	server := httpapi.NewServer(
		appCtx.Generator,
		appCtx.Orchestrator,
		appCtx.Limiter,
		appCtx.Logger,
		httpapi.Options{
			Port:          port,
			BatchThrottle: appCtx.BatchThrottle(),
			MaxBatchFiles: appCtx.Config.Batch.MaxFiles,
		},
	)

	slog.Info("APIサーバを起動します",
		"port", port,
		"rateLimitStore", appCtx.Config.RateLimit.Store,
	)

	return server.Run(ctx)
}
