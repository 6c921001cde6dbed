// worldstate runs a session over a directory of level files: it starts a new
// game or loads a saved one, ticks the world, follows level changes and
// autosaves into the configured store.
//
// Usage:
//
//	worldstate [-config path] [-load name] [-save name] [-ticks n]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/l1jgo/worldstate/internal/config"
	coresys "github.com/l1jgo/worldstate/internal/core/system"
	"github.com/l1jgo/worldstate/internal/data"
	"github.com/l1jgo/worldstate/internal/kinds"
	"github.com/l1jgo/worldstate/internal/persist"
	"github.com/l1jgo/worldstate/internal/scripting"
	"github.com/l1jgo/worldstate/internal/session"
	"github.com/l1jgo/worldstate/internal/system"
	"github.com/l1jgo/worldstate/internal/world"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(name string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m              worldstate  v0.1.0           \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1msession:\033[0m %s\n\n", name)
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main loop ─────────────────────────────────────────────────────

func run() error {
	cfgPath := flag.String("config", config.Path(), "config file")
	loadName := flag.String("load", "", "saved game to load instead of starting a new one")
	saveName := flag.String("save", "", "save the game under this name on exit")
	ticks := flag.Int("ticks", -1, "stop after n ticks (overrides session.ticks)")
	flag.Parse()

	// 1. Load config
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *ticks >= 0 {
		cfg.Session.Ticks = *ticks
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Session.Name)

	// 3. Open the save store
	printSection("store")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := persist.Open(ctx, cfg.Store, log.Named("persist"))
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer store.Close()
	printOK(fmt.Sprintf("%s store ready", cfg.Store.Backend))
	fmt.Println()

	// 4. Levels, kinds and scripts
	printSection("data")
	levels, err := data.LoadLevels(cfg.Data.LevelsDir)
	if err != nil {
		return fmt.Errorf("load levels: %w", err)
	}
	printStat("levels", levels.Count())

	w := world.New(cfg.Session.SlotCapacity, log.Named("world"))
	if err := kinds.Register(w); err != nil {
		return err
	}
	printStat("entity kinds", len(w.Kinds()))

	luaEngine, err := scripting.NewEngine(cfg.Scripting.Dir, w, log.Named("lua"))
	if err != nil {
		return fmt.Errorf("lua engine: %w", err)
	}
	defer luaEngine.Close()
	printStat("script functions", len(luaEngine.Funcs()))
	printStat("entity functions", len(w.FuncNames()))
	fmt.Println()

	// 5. Session
	sess, err := session.New(w, levels, store, cfg.Session, log.Named("session"))
	if err != nil {
		return err
	}
	printSection("session")
	if *loadName != "" {
		if err := sess.LoadGame(ctx, *loadName); err != nil {
			return err
		}
		printOK(fmt.Sprintf("loaded %q", *loadName))
	} else {
		if err := sess.NewGame(ctx, cfg.Session.StartLevel); err != nil {
			return err
		}
		printOK("new game")
	}
	printStat("entities", w.Count())
	printStat("global records", w.Globals.Len())
	fmt.Println()

	// 6. Systems
	runner := coresys.NewRunner()
	autosave := system.Register(runner, sess, cfg.Session.AutosaveTicks, log)

	// 7. Loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Session.TickRate)
	defer ticker.Stop()

	printSection("running")
	printReady(fmt.Sprintf("level %s (tick: %s)", w.Level, cfg.Session.TickRate))
	fmt.Println()

	shutdown := func() error {
		autosave.Save()
		if *saveName != "" {
			sctx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer scancel()
			if err := sess.SaveGame(sctx, *saveName); err != nil {
				return err
			}
		}
		log.Info("session stopped",
			zap.String("level", w.Level),
			zap.Float64("time", w.Time),
			zap.Int("entities", w.Count()))
		return nil
	}

	tickCount := 0
	for {
		select {
		case <-ticker.C:
			runner.Tick(cfg.Session.TickRate)
			tickCount++
			if cfg.Session.Ticks > 0 && tickCount >= cfg.Session.Ticks {
				return shutdown()
			}
		case sig := <-shutdownCh:
			log.Info("shutdown signal", zap.String("signal", sig.String()))
			return shutdown()
		}
	}
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

	return zapCfg.Build()
}
