package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	TypeRetention    = "retention"
	TypeEnergyRollup = "energy-rollup"
)

// Maintenance is the work the processor dispatches to.
type Maintenance interface {
	PurgeReadings(ctx context.Context) (int64, error)
	RollupEnergy(ctx context.Context) (int, error)
}

type TaskPayload struct {
	Type        string `json:"type"`
	RequestedAt string `json:"requestedAt"`
}

// NewPayload stamps a task with the time it was requested.
func NewPayload(taskType string, at time.Time) TaskPayload {
	return TaskPayload{Type: taskType, RequestedAt: at.UTC().Format(time.RFC3339)}
}

// Values renders the payload as stream fields.
func (p TaskPayload) Values() map[string]any {
	return map[string]any{"type": p.Type, "requestedAt": p.RequestedAt}
}

type Processor struct {
	logger      zerolog.Logger
	maintenance Maintenance
}

func NewProcessor(logger zerolog.Logger, maintenance Maintenance) *Processor {
	return &Processor{
		logger:      logger.With().Str("component", "tasks").Logger(),
		maintenance: maintenance,
	}
}

func (p *Processor) Handle(ctx context.Context, msg redis.XMessage) error {
	var payload TaskPayload
	if err := decodePayload(msg.Values, &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return p.Run(ctx, payload)
}

// Run executes one task. Unknown types are logged and skipped so they get acknowledged.
func (p *Processor) Run(ctx context.Context, payload TaskPayload) error {
	switch payload.Type {
	case TypeRetention:
		deleted, err := p.maintenance.PurgeReadings(ctx)
		if err != nil {
			return err
		}
		p.logger.Info().Int64("deleted", deleted).Str("requested_at", payload.RequestedAt).Msg("retention task done")
		return nil
	case TypeEnergyRollup:
		recorded, err := p.maintenance.RollupEnergy(ctx)
		if err != nil {
			return err
		}
		p.logger.Info().Int("devices", recorded).Str("requested_at", payload.RequestedAt).Msg("energy rollup task done")
		return nil
	default:
		p.logger.Warn().Str("type", payload.Type).Msg("unknown task type")
		return nil
	}
}

func decodePayload(values map[string]interface{}, out *TaskPayload) error {
	bytes, err := json.Marshal(values)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, out)
}
