package console

import (
	"bufio"
	"context"
	"io"
	"strings"

	"go.uber.org/zap"

	apperrors "github.com/truthengine/backend-go/internal/errors"
	"github.com/truthengine/backend-go/internal/knowledge"
)

const maxLineSize = 1 << 20

// QueryEngine 检索引擎的两个阶段
type QueryEngine interface {
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
	SearchVector(ctx context.Context, query string, vec []float32) (*knowledge.SearchResult, error)
}

// REPL check_truth 的交互循环
type REPL struct {
	engine   QueryEngine
	in       io.Reader
	printer  *Printer
	logger   *zap.Logger
	errs     *apperrors.ErrorLogger
	state    State
	observer func(from, to State)
}

func NewREPL(engine QueryEngine, in io.Reader, out io.Writer, logger *zap.Logger) *REPL {
	return &REPL{
		engine:  engine,
		in:      in,
		printer: NewPrinter(out),
		logger:  logger,
		errs:    apperrors.NewErrorLogger(logger),
		state:   AwaitingInput,
	}
}

// Printer 供调用方输出横幅等信息
func (r *REPL) Printer() *Printer {
	return r.printer
}

// OnStateChange 注册状态变更回调
func (r *REPL) OnStateChange(fn func(from, to State)) {
	r.observer = fn
}

func (r *REPL) State() State {
	return r.state
}

func (r *REPL) setState(to State) {
	from := r.state
	r.state = to
	if r.observer != nil {
		r.observer(from, to)
	}
}

// Run 在输入结束、收到退出命令或 ctx 取消时返回。
// 单次查询失败只打印错误，循环继续。
func (r *REPL) Run(ctx context.Context) error {
	lines, done := r.readLines()
	defer close(done)

	for {
		r.setState(AwaitingInput)
		r.printer.Prompt()

		var (
			line string
			ok   bool
		)
		select {
		case <-ctx.Done():
			return r.exit()
		case line, ok = <-lines:
			if !ok {
				return r.exit()
			}
		}

		input := strings.TrimSpace(line)
		if isQuit(input) {
			return r.exit()
		}
		if input == "" {
			continue
		}

		r.setState(Embedding)
		vec, err := r.engine.EmbedQuery(ctx, input)
		if err != nil {
			r.fail(err)
			continue
		}

		r.setState(Querying)
		result, err := r.engine.SearchVector(ctx, input, vec)
		if err != nil {
			r.fail(err)
			continue
		}

		r.setState(Displaying)
		r.printer.Result(result)
	}
}

func (r *REPL) fail(err error) {
	r.errs.LogError(err, zap.String("state", r.state.String()))
	r.printer.Error(err)
}

func (r *REPL) exit() error {
	r.setState(Exited)
	r.printer.Goodbye()
	return nil
}

// readLines 在独立 goroutine 中读取输入，使 ctx 取消不必等待阻塞的读
func (r *REPL) readLines() (<-chan string, chan struct{}) {
	lines := make(chan string)
	done := make(chan struct{})

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r.in)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
		if err := scanner.Err(); err != nil {
			r.logger.Warn("failed to read input", zap.Error(err))
		}
	}()
	return lines, done
}

func isQuit(input string) bool {
	switch strings.ToLower(input) {
	case "q", "quit", "exit":
		return true
	}
	return false
}
