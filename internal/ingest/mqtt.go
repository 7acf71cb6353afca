// Package ingest consumes raw sensor traffic from the MQTT bus and feeds
// the pipeline: JSON samples from firmware that decodes on-device, and raw
// PMSX003 frames from firmware that just bridges the UART.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/aqstream/aqstream/internal/sensor"
	"github.com/aqstream/aqstream/internal/sensor/pmsx003"
)

// Ingester accepts samples; satisfied by pipeline.Pipeline.
type Ingester interface {
	Ingest(ctx context.Context, s sensor.Sample) error
}

// SubscriberConfig holds configuration for the MQTT subscriber.
type SubscriberConfig struct {
	// BrokerURL is the MQTT broker, e.g. "tcp://localhost:1883".
	BrokerURL string

	// ClientID identifies this subscriber to the broker.
	ClientID string

	// Username and Password are optional broker credentials.
	Username string
	Password string

	// SampleTopic carries JSON-encoded samples. Default "aqstream/samples".
	SampleTopic string

	// FrameTopic carries raw 32-byte PMSX003 frames.
	// Default "aqstream/frames".
	FrameTopic string

	// QoS for subscriptions. Default 0.
	QoS byte
}

// samplePayload is the JSON wire format on the sample topic.
type samplePayload struct {
	Channel string    `json:"channel"`
	Value   float64   `json:"value"`
	At      time.Time `json:"at,omitempty"`
}

// ParseSample decodes one JSON sample payload. A missing timestamp gets the
// receive time; an unknown channel is an error.
func ParseSample(data []byte, received time.Time) (sensor.Sample, error) {
	var p samplePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return sensor.Sample{}, fmt.Errorf("decode sample payload: %w", err)
	}

	ch := sensor.Channel(p.Channel)
	if !sensor.ValidChannel(ch) {
		return sensor.Sample{}, fmt.Errorf("unknown channel %q", p.Channel)
	}

	at := p.At
	if at.IsZero() {
		at = received
	}
	return sensor.Sample{Channel: ch, Value: p.Value, At: at}, nil
}

// FrameSamples decodes a raw PMSX003 frame into the three atmospheric
// concentration samples the pipeline consumes.
func FrameSamples(frame []byte, received time.Time) ([]sensor.Sample, error) {
	r, err := pmsx003.Decode(frame)
	if err != nil {
		return nil, err
	}
	return []sensor.Sample{
		{Channel: sensor.ChannelPM1, Value: r.PM1, At: received},
		{Channel: sensor.ChannelPM25, Value: r.PM25, At: received},
		{Channel: sensor.ChannelPM10, Value: r.PM10, At: received},
	}, nil
}

// Subscriber feeds MQTT traffic into the pipeline.
type Subscriber struct {
	cfg      SubscriberConfig
	client   mqtt.Client
	ingester Ingester
	logger   zerolog.Logger
}

// NewSubscriber creates a subscriber. Connect happens in Start.
func NewSubscriber(cfg SubscriberConfig, ingester Ingester, logger zerolog.Logger) *Subscriber {
	if cfg.SampleTopic == "" {
		cfg.SampleTopic = "aqstream/samples"
	}
	if cfg.FrameTopic == "" {
		cfg.FrameTopic = "aqstream/frames"
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "aqstream-ingestd"
	}

	s := &Subscriber{cfg: cfg, ingester: ingester, logger: logger}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetAutoReconnect(true).
		SetCleanSession(true)

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn().Err(err).Msg("mqtt connection lost")
	})
	// Resubscribe on every (re)connect; subscriptions do not survive a
	// clean-session reconnect.
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		logger.Info().Str("broker", cfg.BrokerURL).Msg("mqtt connected")
		s.subscribe(client)
	})

	s.client = mqtt.NewClient(opts)
	return s
}

// Start connects to the broker. Message handling runs on paho's goroutines
// until Close.
func (s *Subscriber) Start(_ context.Context) error {
	if token := s.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("connect to broker: %w", token.Error())
	}
	return nil
}

// Close disconnects from the broker.
func (s *Subscriber) Close() error {
	s.client.Disconnect(250)
	return nil
}

func (s *Subscriber) subscribe(client mqtt.Client) {
	if token := client.Subscribe(s.cfg.SampleTopic, s.cfg.QoS, s.handleSample); token.Wait() && token.Error() != nil {
		s.logger.Error().Err(token.Error()).Str("topic", s.cfg.SampleTopic).Msg("subscribe failed")
	}
	if token := client.Subscribe(s.cfg.FrameTopic, s.cfg.QoS, s.handleFrame); token.Wait() && token.Error() != nil {
		s.logger.Error().Err(token.Error()).Str("topic", s.cfg.FrameTopic).Msg("subscribe failed")
	}
}

func (s *Subscriber) handleSample(_ mqtt.Client, msg mqtt.Message) {
	sample, err := ParseSample(msg.Payload(), time.Now())
	if err != nil {
		s.logger.Warn().Err(err).Str("topic", msg.Topic()).Msg("dropping malformed sample")
		return
	}
	if err := s.ingester.Ingest(context.Background(), sample); err != nil {
		s.logger.Error().Err(err).Str("channel", string(sample.Channel)).Msg("ingest failed")
	}
}

func (s *Subscriber) handleFrame(_ mqtt.Client, msg mqtt.Message) {
	samples, err := FrameSamples(msg.Payload(), time.Now())
	if err != nil {
		s.logger.Warn().Err(err).Str("topic", msg.Topic()).Msg("dropping malformed frame")
		return
	}
	for _, sample := range samples {
		if err := s.ingester.Ingest(context.Background(), sample); err != nil {
			s.logger.Error().Err(err).Str("channel", string(sample.Channel)).Msg("ingest failed")
		}
	}
}
