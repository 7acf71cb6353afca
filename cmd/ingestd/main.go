// Package main provides the entrypoint for the aqstream ingest daemon: it
// subscribes to the sensor topics, runs the smoothing pipeline, and fans
// emissions out to the configured sinks.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/aqstream/aqstream/internal/config"
	"github.com/aqstream/aqstream/internal/database"
	"github.com/aqstream/aqstream/internal/ingest"
	"github.com/aqstream/aqstream/internal/pipeline"
	"github.com/aqstream/aqstream/internal/publish"
	"github.com/aqstream/aqstream/internal/reading"
	"github.com/aqstream/aqstream/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "aqstream-ingestd"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting aqstream ingest daemon")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()

	// Initialize OpenTelemetry
	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.OTelEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	metrics, err := pipeline.NewMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize pipeline metrics")
	}

	// Emission sinks. Every enabled sink hangs off one fanout; a failing
	// sink is logged and skipped, never stalls the pipeline.
	fanout := publish.NewFanout(log)

	// MQTT state topics, always on: this is what the dashboards watch.
	pubClient, err := connectMQTTPublisher(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect mqtt publisher")
	}
	mqttSink := publish.NewMQTTPublisher(pubClient, publish.MQTTPublisherConfig{
		TopicPrefix: cfg.MQTTTopicPrefix,
		Retain:      true,
	})
	if err := mqttSink.Announce(ctx); err != nil {
		log.Error().Err(err).Msg("discovery announce failed")
	}
	fanout.Add("mqtt", mqttSink)

	// Postgres observation store, behind the reading service so the API
	// daemon and this one share one schema.
	if cfg.PostgresEnabled {
		pool, err := database.Connect(ctx, database.ConfigFromEnv())
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()

		readingService := reading.NewService(reading.ServiceConfig{
			Repository: reading.NewPostgresRepository(pool),
			Logger:     log,
		})
		fanout.Add("postgres", reading.NewRecorder(readingService))
		log.Info().Msg("postgres observation store enabled")
	}

	if cfg.InfluxURL != "" {
		fanout.Add("influxdb", publish.NewInfluxPublisher(publish.InfluxPublisherConfig{
			URL:    cfg.InfluxURL,
			Token:  cfg.InfluxToken,
			Org:    cfg.InfluxOrg,
			Bucket: cfg.InfluxBucket,
			Device: cfg.InfluxDevice,
		}))
		log.Info().Str("url", cfg.InfluxURL).Msg("influxdb sink enabled")
	}

	if cfg.PubSubProjectID != "" {
		pubsubSink, err := publish.NewPubSubPublisher(ctx, publish.PubSubPublisherConfig{
			ProjectID: cfg.PubSubProjectID,
			TopicName: cfg.PubSubTopic,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create pubsub publisher")
		}
		fanout.Add("pubsub", pubsubSink)
		log.Info().Str("topic", cfg.PubSubTopic).Msg("pubsub sink enabled")
	}

	// The pipeline itself
	pipe, err := pipeline.New(pipeline.Config{
		WindowSize:    cfg.WindowSize,
		PM10Corrected: cfg.PM10Corrected,
		Publisher:     fanout,
		Logger:        log,
		Metrics:       metrics,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create pipeline")
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	pipe.Start(runCtx)
	log.Info().
		Int("window_size", cfg.WindowSize).
		Bool("pm10_corrected", cfg.PM10Corrected).
		Msg("pipeline started")

	// Sensor ingress
	subscriber := ingest.NewSubscriber(ingest.SubscriberConfig{
		BrokerURL:   cfg.MQTTBrokerURL,
		Username:    cfg.MQTTUsername,
		Password:    cfg.MQTTPassword,
		SampleTopic: cfg.MQTTSampleTopic,
		FrameTopic:  cfg.MQTTFrameTopic,
	}, pipe, log)
	if err := subscriber.Start(runCtx); err != nil {
		log.Fatal().Err(err).Msg("failed to start mqtt subscriber")
	}

	// Minimal health endpoint for the orchestrator
	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      healthMux(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("health server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down ingest daemon")

	// Stop ingress first so the pipeline can drain complete windows.
	if err := subscriber.Close(); err != nil {
		log.Error().Err(err).Msg("subscriber close failed")
	}
	pipe.Close()
	if err := fanout.Close(); err != nil {
		log.Error().Err(err).Msg("sink close failed")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("ingest daemon stopped")
}

// connectMQTTPublisher dials the broker with a publisher-side client,
// separate from the subscriber's so a slow publish never backpressures
// message delivery.
func connectMQTTPublisher(cfg config.Config, log zerolog.Logger) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBrokerURL).
		SetClientID("aqstream-publisher").
		SetUsername(cfg.MQTTUsername).
		SetPassword(cfg.MQTTPassword).
		SetAutoReconnect(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Msg("publisher mqtt connection lost")
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to broker: %w", token.Error())
	}
	return client, nil
}

func healthMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"ok","version":%q}`, Version)
	})
	return mux
}
