package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/l1jgo/worldbuild/internal/config"
	"github.com/l1jgo/worldbuild/internal/persist"
)

func newScenesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scenes",
		Short: "List saved scene snapshots",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("config")
			return listScenes(cmd.Context(), config.Path(path))
		},
	}
}

func listScenes(ctx context.Context, cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if !cfg.Database.Enabled() {
		return errors.New("listing scenes needs [database] dsn")
	}
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	db, err := persist.NewDB(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := persist.RunMigrations(ctx, db.Pool); err != nil {
		return err
	}

	infos, err := persist.NewSceneRepo(db).List(ctx)
	if err != nil {
		return err
	}
	for _, s := range infos {
		fmt.Printf("%s  %-20s  %s  %d entities\n", s.ID, s.Name, s.TakenAt.Local().Format("2006-01-02 15:04:05"), s.EntityCount)
	}
	return nil
}
