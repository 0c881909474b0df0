package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"winzone/config"
	"winzone/database"
	"winzone/jobs"
	"winzone/logger"
	"winzone/rng"
	"winzone/routes"
	"winzone/settlement"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"github.com/urfave/cli"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

func main() {
	app := cli.NewApp()
	app.Name = "winzone"
	app.Usage = "timed draw settlement server"
	app.Action = serve
	app.Commands = []cli.Command{
		{
			Name:   "serve",
			Usage:  "run the HTTP API and the draw scheduler",
			Action: serve,
		},
		{
			Name:   "migrate",
			Usage:  "create or update database tables and exit",
			Action: migrate,
		},
		{
			Name:  "settle",
			Usage: "run one settlement pass and exit",
			Flags: []cli.Flag{
				cli.IntFlag{Name: "mode", Usage: "draw interval in minutes; 0 runs every configured mode"},
			},
			Action: settle,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal("❌ ", err)
	}
}

// bootstrap loads .env and config, then builds the logger and the database.
func bootstrap() (*config.Config, *gorm.DB, error) {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := logger.Init(cfg.LogLevel); err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	if envErr != nil {
		logger.Log.Warn("⚠️  no .env file loaded, using environment only", zap.Error(envErr))
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}

func newEngine(cfg *config.Config, db *gorm.DB) (*settlement.Engine, *settlement.GormStore) {
	store := settlement.NewGormStore(db)
	engine := settlement.NewEngine(store, rng.Crypto{}, logger.Log,
		settlement.WithLookback(cfg.Draw.LookbackSlots),
		settlement.WithModes(cfg.Draw.Modes...),
	)
	return engine, store
}

func serve(_ *cli.Context) error {
	cfg, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Log.Sync()

	engine, store := newEngine(cfg, db)
	scheduler := jobs.NewScheduler(engine, logger.Log, cfg.Draw.Modes, cfg.Draw.Tick)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	routes.Setup(app, routes.NewDeps(engine, store, cfg.AdminSecret))
	if cfg.AdminSecret == "" {
		logger.Log.Warn("⚠️  ADMIN_SECRET is empty, admin routes are disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		addr := cfg.Server.Addr()
		logger.Log.Info("🚀 Server running", zap.String("addr", addr))
		return app.Listen(addr)
	})

	g.Go(func() error {
		if err := scheduler.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		scheduler.Stop()
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Log.Info("Gracefully shutting down...")
		return app.Shutdown()
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Log.Info("Server exited cleanly")
	return nil
}

func migrate(_ *cli.Context) error {
	_, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Log.Sync()
	return database.Migrate(db)
}

func settle(c *cli.Context) error {
	cfg, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Log.Sync()

	modes := cfg.Draw.Modes
	if m := c.Int("mode"); m != 0 {
		if modes, err = config.ParseModes(fmt.Sprint(m)); err != nil {
			return err
		}
	}

	engine, _ := newEngine(cfg, db)
	scheduler := jobs.NewScheduler(engine, logger.Log, modes, cfg.Draw.Tick)
	return scheduler.RunOnce(context.Background())
}
