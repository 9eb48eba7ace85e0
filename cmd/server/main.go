package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/mattn/go-isatty"

	persistlog "github.com/AaroAskala/Suomidle-sub000/internal/persistence/log"
	"github.com/AaroAskala/Suomidle-sub000/internal/persistence/save"
	"github.com/AaroAskala/Suomidle-sub000/internal/persistence/slots"
	"github.com/AaroAskala/Suomidle-sub000/internal/sim/catalogs"
	"github.com/AaroAskala/Suomidle-sub000/internal/sim/store"
	"github.com/AaroAskala/Suomidle-sub000/internal/sim/telemetry"
	"github.com/AaroAskala/Suomidle-sub000/internal/sim/tuning"
)

// Config is read from the process environment; command-line flags override it.
type Config struct {
	Namespace string `env:"SUOMIDLE_SAVE_NAMESPACE" envDefault:"local"`
	Slot      string `env:"SUOMIDLE_SLOT" envDefault:"main"`
	DataDir   string `env:"SUOMIDLE_DATA_DIR" envDefault:"./data"`
	ConfigDir string `env:"SUOMIDLE_CONFIG_DIR" envDefault:"./configs"`
	// TuningPath defaults to <ConfigDir>/tuning.yaml.
	TuningPath string `env:"SUOMIDLE_TUNING"`
	// ResetTZ overrides the daily task catalog's reset timezone.
	ResetTZ     string        `env:"SUOMIDLE_RESET_TZ"`
	Headless    bool          `env:"SUOMIDLE_HEADLESS"`
	StatusEvery time.Duration `env:"SUOMIDLE_STATUS_EVERY" envDefault:"30s"`
	Telemetry   bool          `env:"SUOMIDLE_TELEMETRY" envDefault:"true"`
}

// parseConfig reads the environment, then lets flags in args override it.
func parseConfig(args []string) (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, err
	}
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.StringVar(&cfg.Namespace, "ns", cfg.Namespace, "save namespace")
	fs.StringVar(&cfg.Slot, "slot", cfg.Slot, "save slot")
	fs.StringVar(&cfg.DataDir, "data", cfg.DataDir, "runtime data directory")
	fs.StringVar(&cfg.ConfigDir, "configs", cfg.ConfigDir, "catalog directory")
	fs.StringVar(&cfg.TuningPath, "tuning", cfg.TuningPath, "tuning yaml (default <configs>/tuning.yaml)")
	fs.StringVar(&cfg.ResetTZ, "reset_tz", cfg.ResetTZ, "daily reset timezone override")
	fs.BoolVar(&cfg.Headless, "headless", cfg.Headless, "never prompt on stdin")
	fs.DurationVar(&cfg.StatusEvery, "status_every", cfg.StatusEvery, "status line interval (0 disables)")
	fs.BoolVar(&cfg.Telemetry, "telemetry", cfg.Telemetry, "write telemetry under <data>/telemetry")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if fs.NArg() > 0 {
		return Config{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return cfg, nil
}

func main() {
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := parseConfig(os.Args[1:])
	if err != nil {
		logger.Fatalf("config: %v", err)
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Fatalf("data dir: %v", err)
	}
	slogger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cats, err := catalogs.Load(cfg.ConfigDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}
	if tz := strings.TrimSpace(cfg.ResetTZ); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			logger.Fatalf("reset timezone %q: %v", tz, err)
		}
		cats.DailyTasks.ResetTimezone = tz
		cats.DailyTasks.Location = loc
	}

	tp := strings.TrimSpace(cfg.TuningPath)
	if tp == "" {
		tp = filepath.Join(cfg.ConfigDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}

	db, err := slots.Open(filepath.Join(cfg.DataDir, "saves.sqlite"), cfg.Namespace)
	if err != nil {
		logger.Fatalf("open save slots: %v", err)
	}
	defer db.Close()

	interactive := !cfg.Headless && (isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()))
	in := bufio.NewReader(os.Stdin)

	hooks := &telemetry.Hooks{Bus: telemetry.NewBus(), Logger: slogger}
	if cfg.Telemetry {
		tlog := persistlog.NewTelemetryLog(cfg.DataDir)
		defer tlog.Close()
		hooks.Sink = telemetry.Multi{tlog}
	}
	subscribeNotifications(hooks.Bus, logger)

	gate := save.EraGate{CurrentMajor: tune.MajorVersion}
	if interactive {
		gate.Prompter = stdinPrompter(in, os.Stdout)
	}

	st, err := store.New(store.Config{
		Catalogs:  cats,
		Tuning:    tune,
		Hooks:     hooks,
		Logger:    slogger,
		Backend:   db,
		Namespace: cfg.Namespace,
		Slot:      cfg.Slot,
		DataDir:   cfg.DataDir,
		EraGate:   gate,
	})
	if err != nil {
		logger.Fatalf("store: %v", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	rep, err := st.Load(ctx, time.Now())
	if err != nil {
		logger.Fatalf("load %s: %v", save.StorageKey(cfg.Namespace, cfg.Slot), err)
	}
	logger.Printf("%s", loadLine(rep))

	var lines <-chan string
	if interactive {
		lines = readLines(ctx, in)
		logger.Printf("type 'help' for commands")
	} else {
		st.SetForeground(false)
	}

	runLoop(ctx, st, tune, cfg.StatusEvery, lines, os.Stdout, logger)

	saveCtx, cancelSave := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelSave()
	if err := st.Save(saveCtx, time.Now()); err != nil {
		logger.Printf("final save: %v", err)
		return
	}
	logger.Printf("saved %s", save.StorageKey(cfg.Namespace, cfg.Slot))
}

// runLoop ticks the store at the tuned rate until ctx is done, autosaving
// every AutosaveEveryTicks ticks and applying player commands in between.
func runLoop(ctx context.Context, st *store.Store, tune tuning.Tuning, statusEvery time.Duration, lines <-chan string, out io.Writer, logger *log.Logger) {
	ticker := time.NewTicker(time.Duration(tune.TickDuration() * float64(time.Second)))
	defer ticker.Stop()

	var status <-chan time.Time
	if statusEvery > 0 {
		t := time.NewTicker(statusEvery)
		defer t.Stop()
		status = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			st.Tick(now)
			if n := st.Ticks(); tune.AutosaveEveryTicks > 0 && n%uint64(tune.AutosaveEveryTicks) == 0 {
				if err := st.Save(ctx, now); err != nil {
					logger.Printf("autosave: %v", err)
				}
			}
		case <-status:
			logger.Printf("%s", statusLine(st, time.Now()))
		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			if err := runCommand(ctx, st, line, time.Now(), out); err != nil {
				if errors.Is(err, errQuit) {
					return
				}
				_, _ = io.WriteString(out, err.Error()+"\n")
			}
		}
	}
}

func readLines(ctx context.Context, in *bufio.Reader) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case ch <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

func subscribeNotifications(bus *telemetry.Bus, logger *log.Logger) {
	bus.On(telemetry.TaskCompleted, func(n telemetry.Notification) {
		logger.Printf("daily task complete: %s (claim with 'claim %s')", n.TaskID, n.TaskID)
	})
	bus.On(telemetry.RewardClaimed, func(n telemetry.Notification) {
		logger.Printf("reward claimed: %s -> %s", n.TaskID, n.RewardID)
	})
	bus.On(telemetry.BuffStarted, func(n telemetry.Notification) {
		if n.Buff != nil {
			logger.Printf("buff started: x%.2f until %s", n.Buff.Value, time.UnixMilli(n.Buff.EndsAt).Format(time.TimeOnly))
		}
	})
	bus.On(telemetry.BuffExpired, func(n telemetry.Notification) {
		logger.Printf("buff expired: %s", n.TaskID)
	})
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
