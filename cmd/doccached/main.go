// Command doccached hosts a document cache and binds its cleanup worker to
// the process lifecycle, reporting sweeps to the configured sinks.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"github.com/illmade-knight/go-doccache/pkg/doccache"
	"github.com/illmade-knight/go-doccache/pkg/microservice"
	"github.com/illmade-knight/go-doccache/pkg/sweepsink"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

// searchIndex maps terms to chunk positions.
type searchIndex map[string][]int

func main() {
	cfg, err := LoadConfigFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration.")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("log_level", cfg.LogLevel).Msg("Invalid log level, defaulting to info.")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	logger := zerolog.New(os.Stderr).With().Timestamp().Str("service", cfg.ServiceName).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := microservice.NewBaseServer(logger, cfg.HTTPPort)

	reporter, err := buildReporters(ctx, cfg, server, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to set up sweep reporters.")
	}

	cache := doccache.New[searchIndex, string](&cfg.Cache, reporter, logger)
	server.OnShutdown(cache.StopCleanup)
	server.AddHealthCheck("doccache", func() error {
		if !cache.Running() {
			return errors.New("cleanup worker is not running")
		}
		return nil
	})

	if err := server.Start(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start server.")
	}
	logger.Info().Str("addr", server.Addr()).Msg("Document cache host started.")

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Shutdown finished with errors.")
		os.Exit(1)
	}
}

// buildReporters creates a reporter for every configured sink, always
// including the log reporter. Client teardown is registered on server.
func buildReporters(ctx context.Context, cfg *Config, server *microservice.BaseServer, logger zerolog.Logger) (doccache.Reporter, error) {
	name := cfg.ServiceName
	reporters := doccache.MultiReporter{doccache.NewLogReporter(logger)}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	if cfg.Redis.Addr != "" {
		client, err := sweepsink.NewRedisClient(ctx, &cfg.Redis, logger)
		if err != nil {
			return nil, err
		}
		server.OnShutdown(func(context.Context) error { return client.Close() })
		r, err := sweepsink.NewRedisReporter(client, &cfg.Redis, name, logger)
		if err != nil {
			return nil, err
		}
		reporters = append(reporters, r)
	}

	if cfg.PubSub.TopicID != "" {
		client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID, opts...)
		if err != nil {
			return nil, err
		}
		server.OnShutdown(func(context.Context) error { return client.Close() })
		publisher, err := sweepsink.NewGooglePublisher(ctx, client, cfg.PubSub.TopicID, logger)
		if err != nil {
			return nil, err
		}
		r, err := sweepsink.NewPubSubReporter(publisher, name, logger)
		if err != nil {
			return nil, err
		}
		server.OnShutdown(r.Close)
		reporters = append(reporters, r)
	}

	if cfg.BigQuery.DatasetID != "" {
		client, err := sweepsink.NewBigQueryClient(ctx, &cfg.BigQuery, logger)
		if err != nil {
			return nil, err
		}
		server.OnShutdown(func(context.Context) error { return client.Close() })
		inserter, err := sweepsink.NewBigQueryInserter[sweepsink.SweepRecord](ctx, client, &cfg.BigQuery, logger)
		if err != nil {
			return nil, err
		}
		r, err := sweepsink.NewBigQueryReporter(inserter, name)
		if err != nil {
			return nil, err
		}
		reporters = append(reporters, r)
	}

	if cfg.Firestore.CollectionName != "" {
		client, err := firestore.NewClient(ctx, cfg.Firestore.ProjectID, opts...)
		if err != nil {
			return nil, err
		}
		server.OnShutdown(func(context.Context) error { return client.Close() })
		r, err := sweepsink.NewFirestoreReporter(sweepsink.NewFirestoreDocumentStore(client), &cfg.Firestore, name, logger)
		if err != nil {
			return nil, err
		}
		if last, err := r.LastSweep(ctx); err != nil {
			logger.Warn().Err(err).Msg("Could not read last sweep from Firestore.")
		} else if last != nil {
			logger.Info().Str("sweep_id", last.SweepID).Time("finished_at", last.FinishedAt).Msg("Previous sweep found.")
		}
		reporters = append(reporters, r)
	}

	if cfg.GCS.BucketName != "" {
		client, err := storage.NewClient(ctx, opts...)
		if err != nil {
			return nil, err
		}
		server.OnShutdown(func(context.Context) error { return client.Close() })
		r, err := sweepsink.NewGCSReporter(sweepsink.NewGCSClientAdapter(client), cfg.GCS, name, logger)
		if err != nil {
			return nil, err
		}
		reporters = append(reporters, r)
	}

	logger.Info().Int("reporters", len(reporters)).Msg("Sweep reporters configured.")
	return reporters, nil
}
