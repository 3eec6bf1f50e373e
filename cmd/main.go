package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/suwandre/arbwatch/api"
	"github.com/suwandre/arbwatch/config"
	"github.com/suwandre/arbwatch/internal/aggregator"
	"github.com/suwandre/arbwatch/internal/cache"
	"github.com/suwandre/arbwatch/internal/exchange"
	"github.com/suwandre/arbwatch/internal/fees"
	"github.com/suwandre/arbwatch/internal/history"
	"github.com/suwandre/arbwatch/internal/models"
	"github.com/suwandre/arbwatch/internal/presenter"
	"github.com/suwandre/arbwatch/internal/scanner"
	"github.com/suwandre/arbwatch/internal/scheduler"
	"github.com/suwandre/arbwatch/internal/stream"
	"github.com/suwandre/arbwatch/internal/util"
	"github.com/urfave/cli"
	"golang.org/x/sync/errgroup"
)

const (
	connectAttempts = 5
	shutdownTimeout = 10 * time.Second
)

type options struct {
	configPath string
	logLevel   string
	once       bool
}

func main() {
	// ── 1. Logger setup
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var opts options

	app := cli.NewApp()
	app.Name = "arbwatch"
	app.Usage = "watch spot venues for cross-exchange arbitrage"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:        "config, c",
			Usage:       "path to a TOML config file",
			EnvVar:      "ARBWATCH_CONFIG",
			Destination: &opts.configPath,
		},
		cli.StringFlag{
			Name:        "log-level",
			Usage:       "overrides LOG_LEVEL (debug, info, warn, error)",
			Destination: &opts.logLevel,
		},
		cli.BoolFlag{
			Name:        "once",
			Usage:       "run a single round, print it and exit",
			Destination: &opts.once,
		},
	}
	app.Action = func(c *cli.Context) error {
		return run(opts)
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("arbwatch exited with error")
	}
}

func run(opts options) error {
	// ── 2. Root context setup
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ── 3. Config
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	zerolog.SetGlobalLevel(level)
	log.Info().Str("symbol", cfg.Symbol).Strs("exchanges", cfg.Exchanges).Msg("config loaded")

	// ── 4. Exchange adapters
	exchanges := make([]exchange.Exchange, 0, len(cfg.Exchanges))
	for _, name := range cfg.Exchanges {
		ex, err := exchange.New(name, cfg.CredentialsFor(name))
		if err != nil {
			return err
		}
		exchanges = append(exchanges, ex)
	}
	log.Info().Int("count", len(exchanges)).Msg("exchange adapters initialized")

	// ── 5. Fees, aggregator, scanner
	feeCache := fees.NewCache(models.FeeSchedule{
		Maker: cfg.DefaultMakerFee,
		Taker: cfg.DefaultTakerFee,
	}, cfg.FeeRefresh.Duration)
	agg := aggregator.NewAggregator(exchanges, feeCache, cfg.VenueTimeout.Duration)
	sc := scanner.NewScanner(cfg.Capital)

	// ── 6. History sinks
	recorder, err := openRecorder(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := recorder.Close(); err != nil {
			log.Error().Err(err).Msg("error closing history sinks")
		}
	}()

	// ── 7. Scheduler + listeners
	sched := scheduler.NewScheduler(agg, sc, recorder, scheduler.Config{
		Symbol:   cfg.Symbol,
		Interval: cfg.PollInterval.Duration,
	})

	if cfg.ConsoleTable || opts.once {
		sched.AddListener(presenter.NewConsole(os.Stdout))
	}

	if opts.once {
		if sched.RunOnce(ctx) == nil {
			return errors.New("round was interrupted")
		}
		return nil
	}

	if cfg.Redis.Addr != "" {
		publisher, err := openPublisher(ctx, cfg)
		if err != nil {
			return err
		}
		defer publisher.Close()
		sched.AddListener(publisher)
	}

	var hub *stream.Hub
	if cfg.StreamPort != "" {
		hub = stream.NewHub()
		sched.AddListener(hub)
	}

	g, gctx := errgroup.WithContext(ctx)

	sched.Start(gctx)
	g.Go(func() error {
		<-sched.Done()
		return nil
	})

	// ── 8. Round stream
	if hub != nil {
		g.Go(func() error { return hub.Run(gctx) })

		srv := &http.Server{
			Addr:              ":" + cfg.StreamPort,
			Handler:           hub.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			log.Info().Str("port", cfg.StreamPort).Msg("starting round stream")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("stream server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	// ── 9. Fiber app
	if cfg.AppPort != "" {
		app := fiber.New(fiber.Config{
			AppName:      "arbwatch",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		})
		api.SetupRoutes(app, sched)

		g.Go(func() error {
			log.Info().Str("port", cfg.AppPort).Msg("starting server")
			if err := app.Listen(":"+cfg.AppPort, fiber.ListenConfig{DisableStartupMessage: true}); err != nil {
				return fmt.Errorf("api server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			log.Info().Msg("shutdown signal received")
			return app.ShutdownWithTimeout(shutdownTimeout)
		})
	}

	err = g.Wait()
	sched.Stop()
	<-sched.Done()
	log.Info().Uint64("skipped_rounds", sched.Skipped()).Msg("arbwatch stopped")
	return err
}

func openRecorder(ctx context.Context, cfg *config.Config) (_ *history.Multi, err error) {
	var sinks []history.Recorder
	defer func() {
		if err != nil {
			_ = history.NewMulti(sinks...).Close()
		}
	}()

	for _, sink := range cfg.History.Sinks {
		switch sink {
		case config.SinkCSV:
			rec, err := history.NewCSVRecorder(cfg.History.CSVPath)
			if err != nil {
				return nil, err
			}
			sinks = append(sinks, rec)

		case config.SinkPostgres:
			var rec *history.PostgresRecorder
			err = util.Retry(ctx, "postgres", connectAttempts, func(ctx context.Context) error {
				var err error
				rec, err = history.NewPostgresRecorder(ctx, cfg.History.PostgresDSN)
				return err
			})
			if err != nil {
				return nil, err
			}
			sinks = append(sinks, rec)

		case config.SinkS3:
			s3 := cfg.History.S3
			rec, err := history.NewS3Recorder(ctx, history.S3Config{
				Bucket:         s3.Bucket,
				Region:         s3.Region,
				Endpoint:       s3.Endpoint,
				Prefix:         s3.Prefix,
				AccessKey:      s3.AccessKey,
				SecretKey:      s3.SecretKey,
				ForcePathStyle: s3.ForcePathStyle,
			})
			if err != nil {
				return nil, err
			}
			sinks = append(sinks, rec)
		}
		log.Info().Str("sink", sink).Msg("history sink ready")
	}

	recorder := history.NewMulti(sinks...)
	if recorder.Len() == 0 {
		log.Warn().Msg("no history sinks configured, opportunities will not be persisted")
	} else {
		log.Info().Int("sinks", recorder.Len()).Msg("history recorder ready")
	}
	return recorder, nil
}

func openPublisher(ctx context.Context, cfg *config.Config) (*cache.RoundPublisher, error) {
	var publisher *cache.RoundPublisher
	err := util.Retry(ctx, "redis", connectAttempts, func(ctx context.Context) error {
		var err error
		publisher, err = cache.NewRoundPublisher(ctx, cache.ClientConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Channel:  cfg.Redis.Channel,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("addr", cfg.Redis.Addr).Str("channel", cfg.Redis.Channel).Msg("redis publisher ready")
	return publisher, nil
}
