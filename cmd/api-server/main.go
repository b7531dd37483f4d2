package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/fisker/salesflow/internal/app"
	"github.com/fisker/salesflow/internal/model"
	"github.com/fisker/salesflow/internal/repository"
	"github.com/fisker/salesflow/pkg/config"
	"github.com/fisker/salesflow/pkg/database"
	"github.com/fisker/salesflow/pkg/logger"
	pkgredis "github.com/fisker/salesflow/pkg/redis"
)

var configFlag = &cli.StringFlag{
	Name:    "config",
	Aliases: []string{"c"},
	EnvVars: []string{"SALESFLOW_CONFIG"},
	Usage:   "Load configuration from `FILE`",
}

func main() {
	cliApp := &cli.App{
		Name:   "salesflow",
		Usage:  "multi-approver approval service for sales and purchase documents",
		Flags:  []cli.Flag{configFlag},
		Action: runServer,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "start the HTTP API server",
				Action: runServer,
			},
			{
				Name:   "migrate",
				Usage:  "create or update approval tables",
				Action: runMigrate,
			},
			{
				Name:  "issue-token",
				Usage: "sign a bearer token for an existing user",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "user-id", Usage: "user id"},
					&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Usage: "username"},
				},
				Action: runIssueToken,
			},
			{
				Name:      "invalidate-forms",
				Usage:     "drop cached form ids after editing form configuration",
				ArgsUsage: "[FORM_NAME...]",
				Action:    runInvalidateForms,
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServer(ctx *cli.Context) error {
	application, err := app.Initialize(ctx.String("config"))
	if err != nil {
		return err
	}
	return application.Run(ctx.Context, ctx.String("config"))
}

// openDatabase 命令行子命令只需要配置和数据库
func openDatabase(ctx *cli.Context) (*config.Config, error) {
	cfg, err := app.LoadConfig(ctx.String("config"))
	if err != nil {
		return nil, err
	}
	if err := database.Init(&cfg.Database); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return cfg, nil
}

func runMigrate(ctx *cli.Context) error {
	if _, err := openDatabase(ctx); err != nil {
		return err
	}
	defer database.Close()

	if err := database.Migrate(database.DB); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	logger.Infof("Migration complete")
	return nil
}

func runIssueToken(ctx *cli.Context) error {
	userID, username := ctx.Int64("user-id"), ctx.String("username")
	if userID <= 0 && username == "" {
		return fmt.Errorf("either --user-id or --username is required")
	}

	cfg, err := openDatabase(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	users := repository.NewUserRepository(database.DB)
	var user *model.User
	if userID > 0 {
		user, err = users.FindUserByID(ctx.Context, userID)
	} else {
		user, err = users.FindUserByUsername(ctx.Context, username)
	}
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}

	token, err := app.NewTokenService(&cfg.Security).GenerateToken(user)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}
	fmt.Println(token)
	return nil
}

func runInvalidateForms(ctx *cli.Context) error {
	cfg, err := app.LoadConfig(ctx.String("config"))
	if err != nil {
		return err
	}
	if !cfg.Redis.Enabled {
		logger.Infof("Redis is disabled, nothing to invalidate")
		return nil
	}
	if err := pkgredis.Init(&cfg.Redis); err != nil {
		return fmt.Errorf("failed to initialize redis: %w", err)
	}
	defer pkgredis.Close()

	cache := repository.NewFormCache(pkgredis.Client, cfg.Approval.CacheTTL())
	if err := cache.Invalidate(context.Background(), ctx.Args().Slice()...); err != nil {
		return fmt.Errorf("invalidate form cache: %w", err)
	}
	logger.Infof("Form cache invalidated: %v", ctx.Args().Slice())
	return nil
}
