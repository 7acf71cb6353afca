// Package config centralizes environment configuration for the aqstream
// binaries. A .env file in the working directory is honored for local
// development; real deployments set the environment directly.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the full service configuration.
type Config struct {
	// Environment is the deployment environment name.
	Environment string

	// APIPort is the HTTP listen port for the read API and health endpoints.
	APIPort string

	// WindowSize is the smoothing window (samples per emission),
	// the aqi_window_size of the device configuration layer.
	WindowSize int

	// PM10Corrected selects the corrected PM10 breakpoint table.
	PM10Corrected bool

	// MQTT broker settings, shared by ingest and publication.
	MQTTBrokerURL   string
	MQTTUsername    string
	MQTTPassword    string
	MQTTSampleTopic string
	MQTTFrameTopic  string
	MQTTTopicPrefix string

	// PostgresEnabled toggles the Postgres observation store.
	PostgresEnabled bool

	// InfluxDB sink. Empty URL disables it.
	InfluxURL    string
	InfluxToken  string
	InfluxOrg    string
	InfluxBucket string
	InfluxDevice string

	// Pub/Sub emission events. Empty project disables it.
	PubSubProjectID string
	PubSubTopic     string

	// OpsJWTSigningKey guards the authenticated ops endpoints.
	OpsJWTSigningKey string

	// Telemetry.
	OTelEnabled  bool
	OTLPEndpoint string
}

// Load reads configuration from the environment, after loading a .env file
// if one exists.
func Load() (Config, error) {
	// Missing .env is the normal production case.
	_ = godotenv.Load()

	windowSize, err := intEnv("AQI_WINDOW_SIZE", 30)
	if err != nil {
		return Config{}, err
	}
	if windowSize <= 0 {
		return Config{}, fmt.Errorf("AQI_WINDOW_SIZE must be positive, got %d", windowSize)
	}

	return Config{
		Environment:      getEnvOrDefault("APP_ENV", "development"),
		APIPort:          getEnvOrDefault("APP_PORT", "8080"),
		WindowSize:       windowSize,
		PM10Corrected:    boolEnv("AQI_PM10_CORRECTED"),
		MQTTBrokerURL:    getEnvOrDefault("MQTT_BROKER_URL", "tcp://localhost:1883"),
		MQTTUsername:     os.Getenv("MQTT_USERNAME"),
		MQTTPassword:     os.Getenv("MQTT_PASSWORD"),
		MQTTSampleTopic:  getEnvOrDefault("MQTT_SAMPLE_TOPIC", "aqstream/samples"),
		MQTTFrameTopic:   getEnvOrDefault("MQTT_FRAME_TOPIC", "aqstream/frames"),
		MQTTTopicPrefix:  getEnvOrDefault("MQTT_TOPIC_PREFIX", "aqstream"),
		PostgresEnabled:  boolEnv("DB_ENABLED"),
		InfluxURL:        os.Getenv("INFLUX_URL"),
		InfluxToken:      os.Getenv("INFLUX_TOKEN"),
		InfluxOrg:        getEnvOrDefault("INFLUX_ORG", "aqstream"),
		InfluxBucket:     getEnvOrDefault("INFLUX_BUCKET", "particulates"),
		InfluxDevice:     getEnvOrDefault("INFLUX_DEVICE", "pmsx003"),
		PubSubProjectID:  os.Getenv("PUBSUB_PROJECT_ID"),
		PubSubTopic:      getEnvOrDefault("PUBSUB_TOPIC", "aqstream-emissions"),
		OpsJWTSigningKey: os.Getenv("OPS_JWT_SIGNING_KEY"),
		OTelEnabled:      boolEnv("OTEL_ENABLED"),
		OTLPEndpoint:     getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func intEnv(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func boolEnv(key string) bool {
	return os.Getenv(key) == "true"
}
