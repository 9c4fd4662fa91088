package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/truthengine/backend-go/app/bootstrap"
	"github.com/truthengine/backend-go/internal/console"
	apperrors "github.com/truthengine/backend-go/internal/errors"
	"github.com/truthengine/backend-go/internal/knowledge"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(apperrors.GetAppError(err).ExitCode())
	}
}

func run(ctx context.Context) error {
	app, err := bootstrap.Init(ctx)
	if err != nil {
		return err
	}
	defer app.Shutdown()

	return app.Invoke(func(engine *knowledge.SearchEngine) error {
		app.Logger.Info("Embedding model loaded",
			zap.String("model", app.Config.Embedding.Model),
			zap.Int("dimensions", app.Config.Embedding.Dimensions),
			zap.Float64("threshold", engine.Threshold()))

		return session(ctx, console.NewREPL(engine, os.Stdin, os.Stdout, app.Logger), app.Config.Embedding.Model)
	})
}

// session 打印横幅后进入交互循环；首个提示之前不发出任何查询
func session(ctx context.Context, repl *console.REPL, model string) error {
	repl.Printer().Header(model)
	return repl.Run(ctx)
}
