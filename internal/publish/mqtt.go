package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/aqstream/aqstream/internal/sensor"
)

// Friendly names for the AQI output channels, as rendered by dashboards.
const (
	NamePM25AQI = "PM 2.5 AQI"
	NamePM10AQI = "PM 10 AQI"
)

// channelMeta describes one channel's topic slug and display names.
type channelMeta struct {
	slug string
	name string
	// aqiName is empty for channels without a breakpoint table.
	aqiName string
}

var channels = map[sensor.Channel]channelMeta{
	sensor.ChannelPM1:  {slug: "pm_1_0", name: "PM 1.0"},
	sensor.ChannelPM25: {slug: "pm_2_5", name: "PM 2.5", aqiName: NamePM25AQI},
	sensor.ChannelPM10: {slug: "pm_10", name: "PM 10", aqiName: NamePM10AQI},
}

// MQTTPublisherConfig holds configuration for the MQTT publisher.
type MQTTPublisherConfig struct {
	// TopicPrefix is prepended to all state topics, e.g. "aqstream/livingroom".
	TopicPrefix string

	// QoS for published messages. Default 0, matching the firmware bus.
	QoS byte

	// Retain marks state topics retained so late subscribers see the last
	// value immediately.
	Retain bool

	// DiscoveryPrefix is the Home Assistant discovery topic root used by
	// Announce. Default "homeassistant".
	DiscoveryPrefix string
}

// MQTTPublisher republishes emissions on the home-automation bus: the
// smoothed concentration on <prefix>/sensor/<channel>/state and the AQI
// string on <prefix>/sensor/<channel>_aqi/state.
type MQTTPublisher struct {
	client mqtt.Client
	cfg    MQTTPublisherConfig
}

// NewMQTTPublisher creates a publisher on an already-connected client.
func NewMQTTPublisher(client mqtt.Client, cfg MQTTPublisherConfig) *MQTTPublisher {
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = "aqstream"
	}
	if cfg.DiscoveryPrefix == "" {
		cfg.DiscoveryPrefix = "homeassistant"
	}
	return &MQTTPublisher{client: client, cfg: cfg}
}

// discoveryConfig is the Home Assistant MQTT discovery payload.
type discoveryConfig struct {
	Name       string `json:"name"`
	StateTopic string `json:"state_topic"`
	UniqueID   string `json:"unique_id"`
	Unit       string `json:"unit_of_measurement,omitempty"`
}

// Announce publishes retained discovery configs so Home Assistant picks up
// the concentration and AQI sensors without manual configuration.
func (p *MQTTPublisher) Announce(_ context.Context) error {
	for _, meta := range channels {
		entities := []discoveryConfig{{
			Name:       meta.name,
			StateTopic: p.stateTopic(meta.slug),
			UniqueID:   "aqstream_" + meta.slug,
			Unit:       "µg/m³",
		}}
		if meta.aqiName != "" {
			entities = append(entities, discoveryConfig{
				Name:       meta.aqiName,
				StateTopic: p.stateTopic(meta.slug + "_aqi"),
				UniqueID:   "aqstream_" + meta.slug + "_aqi",
			})
		}

		for _, entity := range entities {
			payload, err := json.Marshal(entity)
			if err != nil {
				return fmt.Errorf("encode discovery config: %w", err)
			}
			topic := p.cfg.DiscoveryPrefix + "/sensor/" + entity.UniqueID + "/config"
			token := p.client.Publish(topic, p.cfg.QoS, true, string(payload))
			token.Wait()
			if err := token.Error(); err != nil {
				return fmt.Errorf("announce %s: %w", topic, err)
			}
		}
	}
	return nil
}

// Publish sends the smoothed concentration and, when present, the AQI value.
func (p *MQTTPublisher) Publish(_ context.Context, e Emission) error {
	meta, ok := channels[e.Channel]
	if !ok {
		return fmt.Errorf("unknown channel %q", e.Channel)
	}

	conc := strconv.FormatFloat(e.Mean, 'f', 1, 64)
	if err := p.send(p.stateTopic(meta.slug), conc); err != nil {
		return err
	}

	if e.AQI != nil {
		if err := p.send(p.stateTopic(meta.slug+"_aqi"), e.AQIString()); err != nil {
			return err
		}
	}
	return nil
}

// Close is a no-op; the shared client is owned by the caller.
func (p *MQTTPublisher) Close() error {
	return nil
}

func (p *MQTTPublisher) stateTopic(slug string) string {
	return p.cfg.TopicPrefix + "/sensor/" + slug + "/state"
}

func (p *MQTTPublisher) send(topic, payload string) error {
	token := p.client.Publish(topic, p.cfg.QoS, p.cfg.Retain, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}
