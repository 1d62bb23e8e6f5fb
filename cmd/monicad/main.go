// Command monicad serves the open-monica ASCII monitor interface.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	monica "github.com/NicholasRalph243/open-monica"
	"github.com/NicholasRalph243/open-monica/bat"
	"github.com/NicholasRalph243/open-monica/memstore"
	"github.com/NicholasRalph243/open-monica/sqlstore"
)

func main() {
	var (
		configPath = pflag.StringP("config", "c", "", "path to TOML config file")
		listen     = pflag.StringP("listen", "l", "", "listen address (overrides config)")
		verbose    = pflag.BoolP("verbose", "v", false, "enable debug logging")
	)
	pflag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		errLog := initLogger("error")
		errLog.Fatal().Err(err).Msg("configuration error")
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *verbose {
		cfg.LogLevel = "debug"
	}

	log := initLogger(cfg.LogLevel)

	alarmStore := memstore.New()
	pointStore, archive := buildPointStore(cfg, alarmStore, log)

	listener, err := monica.ListenTCP(cfg.Listen)
	if err != nil {
		log.Fatal().Err(err).Str("listen", cfg.Listen).Msg("cannot bind server port")
	}

	server := monica.NewServer(
		monica.WithListener(listener),
		monica.WithPointStore(pointStore),
		monica.WithAlarmStore(alarmStore),
		monica.WithVerifier(monica.StaticVerifier(cfg.Users)),
		monica.WithLogger(log),
		monica.WithAcceptTimeout(cfg.acceptTimeout()),
		monica.WithAuthFailureDelay(cfg.authFailDelay()),
		monica.WithSessionKeyBits(cfg.SessionKeyBits),
	)

	if archive != nil && cfg.RetentionDays > 0 {
		scheduler := cron.New()
		_, err := scheduler.AddFunc(cfg.PruneSchedule, func() {
			cutoff := bat.FromTime(time.Now().Add(-cfg.retention()))
			removed, err := archive.PruneBefore(cutoff)
			if err != nil {
				log.Error().Err(err).Msg("archive prune failed")
				return
			}
			log.Info().Int64("removed", removed).Msg("archive pruned")
		})
		if err != nil {
			log.Fatal().Err(err).Str("schedule", cfg.PruneSchedule).Msg("bad prune schedule")
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Info().Str("listen", cfg.Listen).Int("points", len(cfg.Points)).Msg("monicad started")
	if err := server.Serve(); err != nil {
		log.Error().Err(err).Msg("server failed")
	}
	log.Info().Msg("monicad stopped")
}

// buildPointStore assembles the point store from configuration: the SQLite
// archive when a DSN is configured, the in-memory buffer otherwise. Alarm
// points are registered with the in-memory alarm registry either way.
func buildPointStore(cfg config, alarms *memstore.Store, log zerolog.Logger) (monica.PointStore, *sqlstore.Store) {
	registerAlarms(cfg, alarms)

	if cfg.ArchiveDSN != "" {
		archive, err := sqlstore.Open(cfg.ArchiveDSN)
		if err != nil {
			log.Fatal().Err(err).Str("dsn", cfg.ArchiveDSN).Msg("cannot open archive")
		}
		for _, p := range cfg.Points {
			if err := archive.AddPoint(pointDetail(p)); err != nil {
				log.Fatal().Err(err).Str("point", p.Name).Msg("cannot register point")
			}
		}
		return archive, archive
	}

	mem := memstore.New()
	for _, p := range cfg.Points {
		mem.AddPoint(pointDetail(p))
	}
	return mem, nil
}

func registerAlarms(cfg config, alarms *memstore.Store) {
	for _, p := range cfg.Points {
		if !p.Alarm {
			continue
		}
		alarms.AddAlarm(monica.Alarm{
			Point:    p.Name,
			Priority: p.Priority,
			Guidance: p.Guidance,
		})
	}
}

func pointDetail(p pointConfig) monica.PointDetail {
	return monica.PointDetail{
		Name:        p.Name,
		Units:       p.Units,
		Description: p.Description,
		Period:      time.Duration(p.PeriodMS) * time.Millisecond,
	}
}

func initLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(output).Level(lvl).With().Timestamp().Str("app", "monicad").Logger()
}
