package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/truthengine/backend-go/app/bootstrap"
	apperrors "github.com/truthengine/backend-go/internal/errors"
)

var rootCmd = &cobra.Command{
	Use:   "truthctl",
	Short: "Operate the community notes truth engine",
	Long: `truthctl manages the community notes store: schema migrations,
dataset ingestion, semantic keyword filters and the HTTP search API.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// initApp 测试中可替换
var initApp = bootstrap.Init

// Execute 执行命令并返回进程退出码
func Execute(ctx context.Context) int {
	rootCmd.SetOut(os.Stdout)
	err := rootCmd.ExecuteContext(ctx)
	return exitCode(rootCmd.ErrOrStderr(), err)
}

// exitCode 非致命错误打印警告并以 0 退出
func exitCode(w io.Writer, err error) int {
	if err == nil {
		return 0
	}

	code := apperrors.GetAppError(err).ExitCode()
	if code == 0 {
		fmt.Fprintf(w, "Warning: %v\n", err)
	} else {
		fmt.Fprintf(w, "Error: %v\n", err)
	}
	return code
}

// withApp 初始化应用，命令结束后释放所有资源
func withApp(cmd *cobra.Command, fn func(ctx context.Context, app *bootstrap.App) error) error {
	ctx := cmd.Context()
	app, err := initApp(ctx)
	if err != nil {
		return err
	}
	defer app.Shutdown()

	if err := fn(ctx, app); err != nil {
		apperrors.NewErrorLogger(app.Logger).LogError(err, zap.String("command", cmd.CommandPath()))
		return err
	}
	return nil
}
