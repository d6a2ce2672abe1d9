package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/pag-surface/config"
)

func main() {
	var (
		configFile  = flag.String("config", "", "Path to YAML config file")
		engineKind  = flag.String("engine", "", "Engine to use: wasm or software (overrides config)")
		moduleFile  = flag.String("module", "", "Path to compiled engine module (overrides config)")
		targetSpec  = flag.String("target", "texture:1:100x200", "Target: canvas:<name>[:WxH], texture:<id>:WxH[:flip], framebuffer:<id>:WxH[:flip]")
		ops         = flag.String("ops", "size,clear,clear,free,size,destroy", "Comma-separated operations to run")
		writeConfig = flag.String("write-config", "", "Write the effective config to this path and exit")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	cfg, err := loadConfig(*configFile, *engineKind, *moduleFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *writeConfig != "" {
		if err := config.Save(cfg, *writeConfig); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *interactive && !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "stdout is not a terminal, running -ops instead of the TUI")
		*interactive = false
	}

	if err := run(cfg, *targetSpec, *ops, *interactive, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads the config file and applies command line overrides.
func loadConfig(path, engineKind, module string) (*config.Config, error) {
	var overrides []config.Override
	if engineKind != "" {
		overrides = append(overrides, func(c *config.Config) { c.Engine = engineKind })
	}
	if module != "" {
		overrides = append(overrides, func(c *config.Config) { c.Module = module })
	}
	return config.Load(path, overrides...)
}

func run(cfg *config.Config, targetSpec, ops string, interactive bool, out io.Writer) error {
	ctx := context.Background()

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()

	shutdown, err := setupTracing(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(ctx); err != nil {
			logger.Warn("flush traces", zap.Error(err))
		}
	}()

	desc, err := parseTarget(targetSpec)
	if err != nil {
		return err
	}

	targets := cfg.Registry()
	eng, err := openEngine(ctx, cfg, targets)
	if err != nil {
		return err
	}
	defer eng.Close(ctx)

	sess, err := openSession(ctx, eng, targets, desc)
	if err != nil {
		return err
	}
	defer sess.close()

	logger.Info("surface ready",
		zap.String("engine", cfg.Engine),
		zap.Stringer("kind", desc.Kind),
		zap.String("target", desc.Key()))

	if interactive {
		return runInteractive(sess, cfg.Engine)
	}
	return runScript(ctx, sess, strings.Split(ops, ","), out)
}

// runScript applies ops in order, stopping at the first failure.
func runScript(ctx context.Context, sess *session, ops []string, out io.Writer) error {
	for _, op := range ops {
		if strings.TrimSpace(op) == "" {
			continue
		}
		msg, err := sess.apply(ctx, op)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		fmt.Fprintf(out, "%-12s %s\n", op, msg)
	}
	return nil
}
