package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/illmade-knight/go-doccache/pkg/doccache"
	"github.com/illmade-knight/go-doccache/pkg/microservice"
	"github.com/illmade-knight/go-doccache/pkg/sweepsink"
)

// Config is the host configuration. Each sweep sink is enabled only when its
// required settings are present.
type Config struct {
	microservice.BaseConfig

	Cache     doccache.Config
	Redis     sweepsink.RedisConfig
	PubSub    sweepsink.PubSubConfig
	BigQuery  sweepsink.BigQueryConfig
	Firestore sweepsink.FirestoreConfig
	GCS       sweepsink.GCSConfig
}

// LoadConfigFromEnv builds a Config from environment variables.
func LoadConfigFromEnv() (*Config, error) {
	cfg := &Config{
		BaseConfig: microservice.BaseConfig{
			LogLevel:        getenv("LOG_LEVEL", "info"),
			HTTPPort:        getenv("HTTP_PORT", ":8080"),
			ProjectID:       os.Getenv("GCP_PROJECT_ID"),
			CredentialsFile: os.Getenv("GCP_CREDENTIALS_FILE"),
			ServiceName:     getenv("SERVICE_NAME", "doccache"),
		},
		Redis: sweepsink.RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			Key:      os.Getenv("REDIS_SWEEP_KEY"),
		},
		PubSub: sweepsink.PubSubConfig{
			TopicID: os.Getenv("SWEEP_PUBSUB_TOPIC"),
		},
		BigQuery: sweepsink.BigQueryConfig{
			DatasetID: os.Getenv("SWEEP_BQ_DATASET_ID"),
			TableID:   getenv("SWEEP_BQ_TABLE_ID", "doccache_sweeps"),
		},
		Firestore: sweepsink.FirestoreConfig{
			CollectionName: os.Getenv("SWEEP_FIRESTORE_COLLECTION"),
		},
		GCS: sweepsink.GCSConfig{
			BucketName:   os.Getenv("SWEEP_GCS_BUCKET"),
			ObjectPrefix: getenv("SWEEP_GCS_PREFIX", "doccache-sweeps"),
		},
	}
	cfg.PubSub.ProjectID = cfg.ProjectID
	cfg.BigQuery.ProjectID = cfg.ProjectID
	cfg.BigQuery.CredentialsFile = cfg.CredentialsFile
	cfg.Firestore.ProjectID = cfg.ProjectID

	var err error
	if cfg.Cache.RetentionWindow, err = durationEnv("CACHE_RETENTION_WINDOW"); err != nil {
		return nil, err
	}
	if cfg.Cache.StopTimeout, err = durationEnv("CACHE_STOP_TIMEOUT"); err != nil {
		return nil, err
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if cfg.Redis.DB, err = strconv.Atoi(v); err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB %q: %w", v, err)
		}
	}
	if cfg.usesGCP() && cfg.ProjectID == "" {
		return nil, errors.New("GCP_PROJECT_ID is required when a Google Cloud sweep sink is configured")
	}
	return cfg, nil
}

func (c *Config) usesGCP() bool {
	return c.PubSub.TopicID != "" || c.BigQuery.DatasetID != "" || c.Firestore.CollectionName != "" || c.GCS.BucketName != ""
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}
