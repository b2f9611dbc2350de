package main

import (
	"context"
	"log"
	"os"

	"crusade/internal/container"
	"crusade/internal/datastore"
	"crusade/internal/services"

	"github.com/hiendaovinh/toolkit/pkg/env"
	"github.com/joho/godotenv"
	"github.com/samber/do"
	"github.com/uptrace/bun"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func init() {
	// for development
	//nolint:errcheck
	godotenv.Load("../../.env")

	// for production
	//nolint:errcheck
	godotenv.Load("./.env")
}

func main() {
	vs, err := env.EnvsRequired(
		"JWT_SECRET",
		"DB_DSN",
	)
	if err != nil {
		log.Fatal(err)
	}
	for _, key := range container.OptionalEnvs {
		vs[key] = os.Getenv(key)
	}

	injector := container.NewContainer(vs)
	app := &cli.App{
		Name: "migrate",
		Commands: []*cli.Command{
			commandMigration(injector),
			commandConfigMigration(injector),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func commandMigration(injector *do.Injector) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "create tables and apply additive column changes",
		Action: func(c *cli.Context) error {
			db, err := do.Invoke[*bun.DB](injector)
			if err != nil {
				return err
			}
			logger := do.MustInvoke[*zap.Logger](injector)

			if err := datastore.CreateTables(context.Background(), db); err != nil {
				return err
			}
			logger.Info("tables ready")
			return nil
		},
	}
}

func commandConfigMigration(injector *do.Injector) *cli.Command {
	return &cli.Command{
		Name:  "seed-config",
		Usage: "insert default runtime config, keeping existing values",
		Action: func(c *cli.Context) error {
			serviceConfig, err := do.Invoke[*services.ServiceConfig](injector)
			if err != nil {
				return err
			}
			logger := do.MustInvoke[*zap.Logger](injector)

			inserted, err := serviceConfig.SeedDefaults(context.Background())
			if err != nil {
				return err
			}
			logger.Info("config seeded", zap.Int64("inserted", inserted))
			return nil
		},
	}
}
