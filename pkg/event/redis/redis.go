package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/igolaizola/sigtrack/pkg/signal"
	"github.com/redis/go-redis/v9"
)

// Publisher sends resolutions as JSON on a redis pub/sub channel.
type Publisher struct {
	client  redis.Cmdable
	channel string
}

func New(client redis.Cmdable, channel string) *Publisher {
	return &Publisher{
		client:  client,
		channel: channel,
	}
}

type message struct {
	ID         string `json:"id"`
	Instrument string `json:"pair"`
	Direction  string `json:"direction"`
	Status     string `json:"status"`
	Price      string `json:"price"`
	TakeProfit string `json:"tp_price"`
	StopLoss   string `json:"sl_price"`
	Time       int64  `json:"time"`
}

func encode(r signal.Resolution) ([]byte, error) {
	return json.Marshal(message{
		ID:         r.Signal.ID,
		Instrument: r.Signal.Instrument,
		Direction:  string(r.Signal.Direction),
		Status:     string(r.Status),
		Price:      r.Price.String(),
		TakeProfit: r.Signal.TakeProfit,
		StopLoss:   r.Signal.StopLoss,
		Time:       r.Time.UnixMilli(),
	})
}

func (p *Publisher) Publish(ctx context.Context, r signal.Resolution) error {
	data, err := encode(r)
	if err != nil {
		return fmt.Errorf("redis: couldn't encode resolution %s: %w", r.Signal.ID, err)
	}
	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("redis: couldn't publish resolution %s: %w", r.Signal.ID, err)
	}
	return nil
}
