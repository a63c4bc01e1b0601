package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eventflow/eventflow/config"
	"github.com/eventflow/eventflow/internal/app"
)

const prompt = "eventflow> "

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Dial(cfg.Client, os.Stdout, logger)
	if err != nil {
		logger.Fatal("failed to build client", zap.Error(err))
	}
	defer a.Close()

	if err := a.Start(ctx); err != nil {
		logger.Fatal("failed to start", zap.Error(err))
	}

	// eventflow open /events runs one command and exits
	if len(os.Args) > 1 {
		_ = a.Exec(ctx, quoteArgs(os.Args[1:]))
		return
	}

	fmt.Printf("EventFlow shell connected to %s. Type help for commands.\n", cfg.Client.APIBaseURL)
	a.Navigate(ctx, "/")
	repl(ctx, a)
}

// repl reads commands until EOF, quit or an interrupt.
func repl(ctx context.Context, a *app.App) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		fmt.Print(prompt)
		select {
		case <-ctx.Done():
			fmt.Println()
			return
		case line, ok := <-lines:
			if !ok {
				fmt.Println()
				return
			}
			if err := a.Exec(ctx, line); errors.Is(err, app.ErrQuit) {
				return
			}
		}
	}
}

// quoteArgs rebuilds a command line from os.Args so arguments with spaces or shell operators survive.
func quoteArgs(args []string) string {
	quoted := make([]string, len(args))
	for i, arg := range args {
		if arg == "" || strings.ContainsAny(arg, " \t\"\\'`&;|<>()") {
			arg = `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(arg) + `"`
		}
		quoted[i] = arg
	}
	return strings.Join(quoted, " ")
}

// newLogger writes warnings and errors to stderr so they stay out of the page output.
func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	config.OutputPaths = []string{"stderr"}
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if os.Getenv("EVENTFLOW_DEBUG") != "" {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, _ := config.Build()
	return logger
}
