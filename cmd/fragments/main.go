package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/l1jgo/fragments/internal/app"
	"github.com/l1jgo/fragments/internal/config"
	"github.com/l1jgo/fragments/internal/layout"
	"github.com/l1jgo/fragments/internal/persist"
	"github.com/l1jgo/fragments/internal/render"
	"github.com/l1jgo/fragments/internal/scripting"
	"github.com/l1jgo/fragments/internal/widget"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config
	cfg, err := config.LoadOrDefault(config.Path())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Optional change journal
	var opts []app.Option
	if cfg.Journal.Enabled {
		journal, closeDB, err := openJournal(ctx, cfg.Journal, log)
		if err != nil {
			return fmt.Errorf("journal: %w", err)
		}
		defer closeDB()
		opts = append(opts, app.WithChangeTracking(), app.WithSystem(journal))

		jctx, stop := context.WithCancel(context.Background())
		drained := make(chan struct{})
		go func() {
			defer close(drained)
			journal.Run(jctx)
		}()
		defer func() {
			stop()
			<-drained
			log.Info("journal closed", zap.Int64("records", journal.Written()), zap.Int64("dropped", journal.Dropped()))
		}()
	}

	a := app.New(log, opts...)

	// 4. Widget tree
	tree, err := buildTree(cfg, log)
	if err != nil {
		return err
	}

	// 5. Terminal
	var screen tcell.Screen
	if cfg.Render.Enabled {
		screen, err = tcell.NewScreen()
		if err != nil {
			return fmt.Errorf("create screen: %w", err)
		}
		if err := screen.Init(); err != nil {
			return fmt.Errorf("init screen: %w", err)
		}
		defer screen.Fini()
		a.Register(render.NewRenderer(screen, a.Handle(), log, cfg.Render.MinInterval))
	}

	// 6. Signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			log.Info("signal received", zap.Stringer("signal", sig))
			_ = a.Handle().Exit()
		case <-ctx.Done():
		}
	}()

	// 7. Run
	log.Info("starting", zap.String("app", cfg.App.Name), zap.Bool("render", screen != nil), zap.Bool("journal", cfg.Journal.Enabled))
	start := time.Now()
	_, err = app.Run(ctx, a, root{tree: tree, screen: screen, exitOnTree: cfg.App.ExitOnRoot})
	log.Info("stopped", zap.Duration("uptime", time.Since(start)))
	if errors.Is(err, app.ErrExited) {
		return nil
	}
	return err
}

// root mounts the widget tree and the input pump side by side.
type root struct {
	tree       app.Widget[struct{}]
	screen     tcell.Screen
	exitOnTree bool
}

func (r root) Mount(ctx context.Context, f *app.Fragment) (struct{}, error) {
	if r.screen != nil {
		if _, err := app.Attach(ctx, f, render.Input{Screen: r.screen}); err != nil {
			return struct{}{}, err
		}
	}
	tree, err := app.Attach(ctx, f, r.tree)
	if err != nil {
		return struct{}{}, err
	}
	if _, err := tree.Await(ctx); err != nil || r.exitOnTree {
		return struct{}{}, err
	}
	<-ctx.Done()
	return struct{}{}, nil
}

func buildTree(cfg *config.Config, log *zap.Logger) (app.Widget[struct{}], error) {
	engine, err := scripting.NewEngine(cfg.Scripts.Dir, log)
	if err != nil {
		return nil, fmt.Errorf("scripts: %w", err)
	}
	if n := len(engine.Names()); n > 0 {
		log.Info("scripts loaded", zap.Int("count", n), zap.String("dir", cfg.Scripts.Dir))
	}

	if cfg.Layout.File == "" {
		return demoTree(cfg.App.Name), nil
	}
	l, err := layout.Load(cfg.Layout.File)
	if err != nil {
		return nil, err
	}
	if l.Name == "" {
		l.Name = cfg.App.Name
	}
	return l.Widget(engine.Widget)
}

func demoTree(name string) app.Widget[struct{}] {
	return widget.Named{Name: name, Child: widget.Column(1,
		widget.Row(2, widget.Text{Value: name}, widget.Clock{}),
		render.LastKey{Prompt: "last key: "},
		widget.Text{Value: "press q to quit"},
	)}
}

func openJournal(ctx context.Context, cfg config.JournalConfig, log *zap.Logger) (*persist.Journal, func(), error) {
	dialCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	db, err := persist.NewDB(dialCtx, cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("database: %w", err)
	}
	version, err := persist.RunMigrations(dialCtx, db.Pool, log)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}
	log.Info("journal ready", zap.Int64("schema", version))

	j := persist.NewJournal(persist.NewJournalRepo(db), log, cfg.BatchSize, 0).Ignore(app.EventHook.ID())
	return j, db.Close, nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	if cfg.File != "" {
		if cfg.Format != "json" {
			zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		}
		zapCfg.OutputPaths = []string{cfg.File}
		zapCfg.ErrorOutputPaths = []string{cfg.File}
	}

	return zapCfg.Build()
}
