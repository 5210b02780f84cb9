// Package notify announces written series on a Redis stream so downstream
// consumers can pick up fresh forecasts without polling the database.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"

	"flo2d/internal/models"
)

// Event describes one horizon bucket written to the store
type Event struct {
	SeriesID string             `json:"series_id"`
	Run      models.RunIdentity `json:"run"`
	Rows     int                `json:"rows"`
	Start    string             `json:"start"`
	End      string             `json:"end"`
}

// NewEvent builds the event for a written bucket
func NewEvent(seriesID string, run models.RunIdentity, points models.Series, rows int) Event {
	e := Event{SeriesID: seriesID, Run: run, Rows: rows}
	if len(points) > 0 {
		e.Start = points[0].Time.Format(models.TimestampFormat)
		e.End = points[len(points)-1].Time.Format(models.TimestampFormat)
	}
	return e
}

type streamWriter interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// RedisPublisher writes events to a Redis stream. Failures are logged and never
// interrupt the run.
type RedisPublisher struct {
	client  streamWriter
	stream  string
	timeout time.Duration
	logger  *slog.Logger
}

// NewRedisPublisher wraps a go-redis client
func NewRedisPublisher(client *redis.Client, stream string, logger *slog.Logger) *RedisPublisher {
	return newPublisher(client, stream, logger)
}

func newPublisher(client streamWriter, stream string, logger *slog.Logger) *RedisPublisher {
	return &RedisPublisher{client: client, stream: stream, timeout: 5 * time.Second, logger: logger}
}

// Publish serializes the event and appends it to the stream
func (p *RedisPublisher) Publish(ctx context.Context, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn("failed to serialize event", "series_id", event.SeriesID, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{"data": string(data)},
	}).Err()
	if err != nil {
		p.logger.Warn("failed to publish to redis", "stream", p.stream, "station", event.Run.Station, "error", err)
		return
	}
	p.logger.Debug("published series event", "stream", p.stream, "station", event.Run.Station, "type", event.Run.Horizon)
}

// Nop discards events
type Nop struct{}

// Publish does nothing
func (Nop) Publish(context.Context, Event) {}

