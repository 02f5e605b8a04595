// Command ragagent answers questions about a research paper with a
// retrieval-augmented reasoning agent.
//
// Usage:
//
//	ragagent [-config config.yaml] serve
//	ragagent [-config config.yaml] chat
//	ragagent [-config config.yaml] ask "question"
//	ragagent [-config config.yaml] search "query"
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/0xcro3dile/ragagent/internal/config"
	httpserver "github.com/0xcro3dile/ragagent/internal/infrastructure/http"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "config.yaml", "Path to YAML config file (defaults apply when missing)")
	flag.Usage = usage
	flag.Parse()

	cmd := flag.Arg(0)
	if cmd == "" {
		cmd = "serve"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cmd, flag.Args(), cfg, logger); err != nil {
		logger.Error("fatal", "command", cmd, "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd string, args []string, cfg *config.AppConfig, logger *slog.Logger) error {
	switch cmd {
	case "serve", "chat", "ask", "search":
	default:
		usage()
		return fmt.Errorf("unknown command %q", cmd)
	}

	app, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	var rest string
	if len(args) > 1 {
		rest = strings.TrimSpace(strings.Join(args[1:], " "))
	}
	switch cmd {
	case "serve":
		if cfg.Watch {
			if err := app.watchSource(ctx); err != nil {
				return err
			}
		}
		return httpserver.NewServer(app.query, cfg.Server.Addr, logger).Start(ctx)
	case "chat":
		return runChat(ctx, app, os.Stdin, os.Stdout)
	case "ask":
		if rest == "" {
			return fmt.Errorf("ask needs a question")
		}
		fmt.Println(app.query.Ask(ctx, rest))
		return nil
	default:
		if rest == "" {
			return fmt.Errorf("search needs a query")
		}
		return printSearch(ctx, app, rest, os.Stdout)
	}
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: ragagent [-config config.yaml] <command> [args]

Commands:
  serve            start the HTTP server (default)
  chat             interactive question answering in the terminal
  ask QUESTION     answer one question and exit
  search QUERY     print the chunks retrieved for QUERY

Flags:
`)
	flag.PrintDefaults()
}
