// Package notify delivers appointment creation events to the notification
// subsystem. Delivery is best effort: a failed publish is logged and never
// rolls back the creation it announces.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/juliherms/petAgendamentos/internal/scheduling"
)

// RedisPublisher pushes creation events onto a Redis pub/sub channel consumed
// by the out-of-process notifier.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel}
}

func (p *RedisPublisher) AppointmentCreated(ctx context.Context, event scheduling.AppointmentCreatedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal creation event: %w", err)
	}

	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish creation event: %w", err)
	}

	return nil
}

// LogPublisher writes the event to the process log. Used where no Redis is
// available and as the seed for local debugging.
type LogPublisher struct{}

func (LogPublisher) AppointmentCreated(_ context.Context, event scheduling.AppointmentCreatedEvent) error {
	log.Printf("[NOTIFY] appointment=%s pet=%s service=%s provider=%s date=%s slot=%s-%s",
		event.AppointmentID, event.PetID, event.ServiceID, event.ProviderID,
		event.Date, event.StartTime, event.EndTime)
	return nil
}
