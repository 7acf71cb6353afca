package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/aqstream/aqstream/internal/api/models"
	"github.com/aqstream/aqstream/internal/api/response"
	"github.com/aqstream/aqstream/internal/reading"
	"github.com/aqstream/aqstream/internal/sensor"
)

// History limits.
const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// ReadingsHandler serves the smoothed observations.
type ReadingsHandler struct {
	readings *reading.Service
}

// NewReadingsHandler creates a new ReadingsHandler.
func NewReadingsHandler(readings *reading.Service) *ReadingsHandler {
	return &ReadingsHandler{readings: readings}
}

// Latest handles GET /v1/readings/latest - most recent observation per channel.
func (h *ReadingsHandler) Latest(w http.ResponseWriter, r *http.Request) {
	observations := h.readings.LatestAll(r.Context())

	list := models.ReadingList{Readings: make([]models.Reading, 0, len(observations))}
	for _, o := range observations {
		list.Readings = append(list.Readings, toReading(o))
	}

	response.JSON(w, r, http.StatusOK, list)
}

// LatestByChannel handles GET /v1/readings/{channel}/latest.
func (h *ReadingsHandler) LatestByChannel(w http.ResponseWriter, r *http.Request) {
	ch, ok := parseChannel(chi.URLParam(r, "channel"))
	if !ok {
		response.BadRequest(w, r, "unknown channel", []models.FieldError{
			{Field: "channel", Message: "must be one of pm1, pm25, pm10"},
		})
		return
	}

	o, err := h.readings.Latest(r.Context(), ch)
	if err != nil {
		if errors.Is(err, reading.ErrNoObservations) {
			response.NotFound(w, r, "no observations for channel")
			return
		}
		response.Internal(w, r, "failed to load observation")
		return
	}

	response.JSON(w, r, http.StatusOK, toReading(o))
}

// History handles GET /v1/readings/{channel}/history?limit=N.
func (h *ReadingsHandler) History(w http.ResponseWriter, r *http.Request) {
	ch, ok := parseChannel(chi.URLParam(r, "channel"))
	if !ok {
		response.BadRequest(w, r, "unknown channel", []models.FieldError{
			{Field: "channel", Message: "must be one of pm1, pm25, pm10"},
		})
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			response.BadRequest(w, r, "invalid limit", []models.FieldError{
				{Field: "limit", Message: "must be a positive integer"},
			})
			return
		}
		if n > maxHistoryLimit {
			n = maxHistoryLimit
		}
		limit = n
	}

	observations, err := h.readings.History(r.Context(), ch, limit)
	if err != nil {
		if errors.Is(err, reading.ErrNoObservations) {
			response.NotFound(w, r, "no observations for channel")
			return
		}
		response.Internal(w, r, "failed to load history")
		return
	}

	list := models.ReadingList{Readings: make([]models.Reading, 0, len(observations))}
	for _, o := range observations {
		list.Readings = append(list.Readings, toReading(o))
	}

	response.JSON(w, r, http.StatusOK, list)
}

// parseChannel maps a URL channel slug to a sensor channel.
func parseChannel(raw string) (sensor.Channel, bool) {
	switch strings.ToLower(raw) {
	case "pm1", "pm1.0", "pm_1_0":
		return sensor.ChannelPM1, true
	case "pm25", "pm2.5", "pm_2_5":
		return sensor.ChannelPM25, true
	case "pm10", "pm_10":
		return sensor.ChannelPM10, true
	}
	return "", false
}

// toReading converts a stored observation to its wire form.
func toReading(o *reading.Observation) models.Reading {
	out := models.Reading{
		Channel:    string(o.Channel),
		Mean:       o.Mean,
		WindowSize: o.WindowSize,
		At:         o.At,
	}
	if o.AQI != nil {
		s := strconv.Itoa(*o.AQI)
		out.AQI = &s
		inRange := o.AQIInRange
		out.AQIInRange = &inRange
	}
	return out
}
