package inventory

import (
	"context"
	"errors"
	"fmt"
	kafkax "github.com/ariefcatur/clinic-orders/internal/kafka"
	"github.com/ariefcatur/clinic-orders/internal/orders"
	"github.com/ariefcatur/clinic-orders/internal/redisx"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
)

type Publisher interface {
	PublishEvent(key string, env orders.Envelope) bool
}

// Service watches stock levels reported by administrations and deliveries
// and raises StockLow when a medicine drops into a worse state.
type Service struct {
	Redis       redis.Cmdable
	Alerts      Publisher
	ServiceName string
	Log         zerolog.Logger
}

// HandleMessage is installed as the consumer handler for both the committed
// and restocked topics.
func (s *Service) HandleMessage(ctx context.Context, m kafkago.Message) error {
	env, err := kafkax.UnmarshalEnvelope(m.Value)
	if err != nil {
		return err
	}

	var levels []orders.StockLevel
	switch env.EventType {
	case orders.EventAdministrationCommitted:
		p, err := kafkax.UnwrapPayload[orders.AdministrationCommittedPayload](env.Payload)
		if err != nil {
			return err
		}
		levels = p.Remaining
	case orders.EventStockRestocked:
		p, err := kafkax.UnwrapPayload[orders.StockRestockedPayload](env.Payload)
		if err != nil {
			return err
		}
		levels = p.Levels
	default:
		return nil
	}

	dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
	first, err := redisx.MarkOnce(ctx, s.Redis, dkey, redisx.TTLDedup)
	if err != nil {
		return err
	}
	if !first {
		s.Log.Debug().Str("event_id", env.EventID).Msg("duplicate event skipped")
		return nil
	}

	for _, lv := range levels {
		if err := s.apply(ctx, lv, env.TraceID); err != nil {
			// let a redelivery try again
			_ = s.Redis.Del(ctx, dkey).Err()
			return fmt.Errorf("medicine %s: %w", lv.MedicineID, err)
		}
	}
	return nil
}

func (s *Service) apply(ctx context.Context, lv orders.StockLevel, trace string) error {
	prev, err := s.Redis.HGet(ctx, redisx.KeyStockStatus, lv.MedicineID).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	from := orders.StockStatus(prev)
	if from == "" {
		from = orders.StockOK
	}
	to := orders.StockStatusOf(lv.Stock, lv.LowStockThreshold)

	_, err = s.Redis.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, redisx.KeyStockStatus, lv.MedicineID, string(to))
		if to == orders.StockOK {
			p.SRem(ctx, redisx.KeyStockLow, lv.MedicineID)
		} else {
			p.SAdd(ctx, redisx.KeyStockLow, lv.MedicineID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if !orders.NeedsRestock(from, to) {
		return nil
	}
	threshold := orders.DefaultLowStockThreshold
	if lv.LowStockThreshold != nil {
		threshold = *lv.LowStockThreshold
	}
	ev := kafkax.NewEvent(orders.EventStockLow, s.ServiceName, trace, lv.MedicineID, orders.StockLowPayload{
		MedicineID: lv.MedicineID,
		Name:       lv.Name,
		Stock:      lv.Stock,
		Threshold:  threshold,
		Status:     to,
	})
	s.Alerts.PublishEvent(lv.MedicineID, ev)
	s.Log.Info().Str("medicine_id", lv.MedicineID).Str("name", lv.Name).
		Int("stock", lv.Stock).Str("status", string(to)).Msg("low stock")
	return nil
}

// LowStock lists medicine ids currently at or below their threshold.
func (s *Service) LowStock(ctx context.Context) ([]string, error) {
	return s.Redis.SMembers(ctx, redisx.KeyStockLow).Result()
}
