package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/l1jgo/worldbuild/internal/component"
	"github.com/l1jgo/worldbuild/internal/config"
	"github.com/l1jgo/worldbuild/internal/data"
	"github.com/l1jgo/worldbuild/internal/persist"
	"github.com/l1jgo/worldbuild/internal/scene"
	"github.com/l1jgo/worldbuild/internal/scripting"
	"github.com/l1jgo/worldbuild/internal/system"
)

type runOptions struct {
	ticks      int
	save       bool
	restore    bool
	profileDir string
}

func newRunCmd() *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Load a scene, run its scripts and tick it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("config")
			return run(cmd.Context(), config.Path(path), opts)
		},
	}
	f := cmd.Flags()
	f.IntVar(&opts.ticks, "ticks", 0, "stop after this many ticks (0 = until interrupted)")
	f.BoolVar(&opts.save, "save", false, "save a snapshot on exit (needs [database] dsn)")
	f.BoolVar(&opts.restore, "restore", false, "start from the latest snapshot of the scene")
	f.StringVar(&opts.profileDir, "profile", "", "write a CPU profile into this directory")
	return cmd
}

func run(ctx context.Context, cfgPath string, opts runOptions) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	if (opts.save || opts.restore || cfg.Scene.AutosaveTicks > 0) && !cfg.Database.Enabled() {
		return errors.New("saving and restoring need [database] dsn")
	}
	if opts.profileDir != "" {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(opts.profileDir), profile.NoShutdownHook).Stop()
	}

	printBanner(cfg.Scene.Name)

	printSection("Scene")
	sc, err := scene.New(cfg.World, cfg.Scene, log)
	if err != nil {
		return err
	}
	if err := component.Register(sc.World()); err != nil {
		return fmt.Errorf("register components: %w", err)
	}
	kinds := data.NewKinds()
	if err := component.RegisterKinds(kinds); err != nil {
		return fmt.Errorf("register kinds: %w", err)
	}
	printStat("Kinds", len(kinds.Names()))

	var prefabs *data.PrefabTable
	if cfg.Data.PrefabFile != "" {
		prefabs, err = data.LoadPrefabTable(cfg.Data.PrefabFile, kinds)
		if err != nil {
			return err
		}
		printStat("Prefabs", prefabs.Count())
	}

	var repo *persist.SceneRepo
	if cfg.Database.Enabled() {
		printSection("Database")
		db, err := persist.NewDB(ctx, cfg.Database, log)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := persist.RunMigrations(ctx, db.Pool); err != nil {
			return err
		}
		printOK("Migrations applied")
		repo = persist.NewSceneRepo(db)
	}

	if opts.restore {
		snap, err := repo.Latest(ctx, cfg.Scene.Name)
		if err != nil {
			return err
		}
		ids, err := persist.Restore(sc.World(), kinds, snap)
		if err != nil {
			return err
		}
		printStat("Restored entities", len(ids))
	}

	var saver *system.PersistenceSystem
	if repo != nil {
		saver = system.NewPersistenceSystem(sc.World(), kinds, repo, cfg.Scene.Name, log, cfg.Scene.AutosaveTicks)
		if cfg.Scene.AutosaveTicks > 0 {
			sc.Register(saver)
		}
	}

	printSection("Scripts")
	engine := scripting.NewEngine(sc, kinds, prefabs, log.Named("lua"))
	defer engine.Close()
	n, err := engine.LoadDir(cfg.Data.ScriptsDir)
	if err != nil {
		return err
	}
	printStat("Scripts", n)
	sc.Register(scripting.NewHookSystem(engine))
	printStat("Entities", sc.World().Len())

	fmt.Println()
	printReady(fmt.Sprintf("Ticking every %s", sc.TickRate()))
	fmt.Println()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := sc.Run(ctx, opts.ticks); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("scene stopped",
		zap.Uint64("ticks", sc.Ticks()),
		zap.Int("entities", sc.World().Len()),
	)

	if opts.save {
		// The run context may already be cancelled by the signal.
		if err := saver.SaveNow(context.WithoutCancel(ctx)); err != nil {
			return fmt.Errorf("save scene: %w", err)
		}
	}
	return nil
}
