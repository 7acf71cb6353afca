package publish

import (
	"context"
	"fmt"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/aqstream/aqstream/internal/publish/resilience"
)

// InfluxPublisherConfig holds configuration for the InfluxDB sink.
type InfluxPublisherConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string

	// Device tags every point so multiple sensors can share a bucket.
	Device string

	// Sink overrides the resilience settings. If nil, defaults are used.
	Sink *resilience.SinkConfig
}

// InfluxPublisher writes emissions as time-series points. Writes go through
// a circuit breaker with retries; a down InfluxDB degrades to dropped points
// rather than a stalled pipeline.
type InfluxPublisher struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	device   string
	sink     *resilience.Sink
}

// NewInfluxPublisher creates the InfluxDB sink.
func NewInfluxPublisher(cfg InfluxPublisherConfig) *InfluxPublisher {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)

	sinkCfg := resilience.DefaultSinkConfig("influxdb")
	if cfg.Sink != nil {
		sinkCfg = *cfg.Sink
	}

	return &InfluxPublisher{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		device:   cfg.Device,
		sink:     resilience.NewSink(sinkCfg),
	}
}

// Publish writes one "particulates" point per emission.
func (p *InfluxPublisher) Publish(ctx context.Context, e Emission) error {
	fields := map[string]interface{}{
		"mean":        e.Mean,
		"window_size": e.WindowSize,
	}
	if e.AQI != nil {
		fields["aqi"] = *e.AQI
		fields["aqi_in_range"] = e.AQIInRange
	}

	point := influxdb2.NewPoint(
		"particulates",
		map[string]string{
			"channel": string(e.Channel),
			"device":  p.device,
		},
		fields,
		e.At,
	)

	err := p.sink.Execute(ctx, func(ctx context.Context) error {
		return p.writeAPI.WritePoint(ctx, point)
	})
	if err != nil {
		return fmt.Errorf("write point: %w", err)
	}
	return nil
}

// Close shuts down the underlying client.
func (p *InfluxPublisher) Close() error {
	p.client.Close()
	return nil
}
