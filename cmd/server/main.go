package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-netmap/internal/config"
	"go-netmap/internal/db"
	"go-netmap/internal/logging"
	"go-netmap/internal/notify"
	"go-netmap/internal/poller"
	"go-netmap/internal/store"
	"go-netmap/internal/web"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
)

func main() {
	flags := pflag.NewFlagSet("netmap-server", pflag.ExitOnError)
	flags.String("web-host", "0.0.0.0", "address to listen on")
	flags.String("web-port", "8080", "port to listen on")
	flags.String("db-driver", "sqlite", "database driver (sqlite or postgres)")
	flags.String("db-path", "/tmp/netmap.db", "sqlite database file")
	flags.String("db-dsn", "", "postgres connection URL")
	flags.Bool("seed", true, "insert demo sites into an empty database")
	flags.Int("poll-interval", 600, "seconds between polling cycles, 0 disables polling")
	flags.String("mqtt-broker", "", "MQTT broker URL for status events")
	flags.String("log-level", "info", "log level")
	_ = flags.Parse(os.Args[1:])

	cfg, err := config.Load(flags)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	logging.Configure(cfg.LogLevel, cfg.LogFormat)

	// Initialize database
	conn, err := db.Open(cfg.DBDriver, cfg.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("database unavailable")
	}
	defer db.Close(conn)
	log.Info().Str("driver", cfg.DBDriver).Msg("database ready")

	st := store.New(conn)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Seed {
		seeded, err := st.Seed(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("seeding failed")
		}
		if seeded {
			log.Info().Msg("demo sites inserted")
		}
	}

	var publisher notify.Publisher = notify.Nop{}
	if cfg.MQTTBroker != "" {
		p, err := notify.NewMQTT(cfg.MQTTBroker, cfg.MQTTTopicPrefix, "netmap-server")
		if err != nil {
			log.Error().Err(err).Msg("status events disabled")
		} else {
			publisher = p
		}
	}
	defer publisher.Close()

	// Start background SNMP poller
	if cfg.PollInterval > 0 {
		prober := poller.SNMPProber{
			Community: cfg.SNMPCommunity,
			Port:      cfg.SNMPPort,
			Timeout:   cfg.SNMPTimeout,
			Retries:   1,
		}
		p := poller.New(st, prober, publisher, cfg.PollWorkers)
		go p.Run(ctx, cfg.PollInterval)
		log.Info().Dur("interval", cfg.PollInterval).Int("workers", cfg.PollWorkers).Msg("poller started")
	}

	app := web.NewApp(st)

	go func() {
		<-ctx.Done()
		if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
			log.Error().Err(err).Msg("shutdown failed")
		}
	}()

	log.Info().Str("addr", cfg.Addr()).Msg("server running")
	if err := app.Listen(cfg.Addr()); err != nil {
		log.Error().Err(err).Msg("server stopped")
	}
}
