package writer

import (
	"context"
	"encoding/json"
	"fmt"

	kafka "github.com/segmentio/kafka-go"

	appconfig "reconflow/config"
	"reconflow/logger"
	"reconflow/models"
)

// MismatchPublisher emits post-normalization mismatches to a Kafka topic for
// downstream alerting. Publishing is best-effort and never gates the run.
type MismatchPublisher struct {
	writer *kafka.Writer
	log    *logger.Log
}

// MismatchMessage is the per-pair payload written to the topic.
type MismatchMessage struct {
	RunID           string   `json:"run_id"`
	Address         string   `json:"address"`
	Date            string   `json:"date"`
	ArtemisValue    float64  `json:"artemis_value"`
	NormalizedValue float64  `json:"normalized_value"`
	PctDiff         float64  `json:"pct_diff"`
	FlowAdjustment  *float64 `json:"flow_adjustment,omitempty"`
	EventsInGap     *int     `json:"events_in_gap,omitempty"`
}

func NewMismatchPublisher(cfg *appconfig.Config) (*MismatchPublisher, error) {
	if len(cfg.Export.Kafka.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers not configured")
	}
	p := &MismatchPublisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(cfg.Export.Kafka.Brokers...),
			Topic:    cfg.Export.Kafka.Topic,
			Balancer: &kafka.LeastBytes{},
		},
		log: logger.GetLogger(),
	}
	p.log.WithComponent("kafka_publisher").WithFields(logger.Fields{
		"brokers": cfg.Export.Kafka.Brokers,
		"topic":   cfg.Export.Kafka.Topic,
	}).Debug("kafka publisher initialized")
	return p, nil
}

// Publish writes one message per pair that is still a mismatch after
// normalization (falling back to the raw diff for pairs never normalized).
// Missing pairs are not mismatches and are skipped.
func (p *MismatchPublisher) Publish(ctx context.Context, cmp *models.Comparison, runID string) error {
	var messages []kafka.Message

	for _, addr := range cmp.Addresses {
		for _, day := range addr.Series {
			diff := day.Diff
			if day.DiffNormalized != nil {
				diff = *day.DiffNormalized
			}
			match, ok := diff.Match()
			if !ok || match {
				continue
			}

			artValue, _ := day.Artemis.Value()
			value, _ := day.Hyperliquid.Value()
			msg := MismatchMessage{
				RunID:        runID,
				Address:      addr.Address,
				Date:         day.Date,
				ArtemisValue: artValue,
			}
			if norm := day.HyperliquidNormalized; norm != nil {
				if v, present := norm.Side.Value(); present {
					value = v
				}
				adj := norm.FlowAdjustment
				events := norm.EventsInGap
				msg.FlowAdjustment = &adj
				msg.EventsInGap = &events
			}
			msg.NormalizedValue = value
			if pct, present := diff.Pct(); present {
				msg.PctDiff = pct
			}

			data, err := json.Marshal(msg)
			if err != nil {
				p.log.WithComponent("kafka_publisher").WithError(err).Warn("failed to marshal mismatch")
				continue
			}
			messages = append(messages, kafka.Message{
				Key:   []byte(addr.Address),
				Value: data,
			})
		}
	}

	if len(messages) == 0 {
		return nil
	}
	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		return fmt.Errorf("write mismatch messages: %w", err)
	}

	p.log.WithComponent("kafka_publisher").WithFields(logger.Fields{
		"mismatches": len(messages),
	}).Info("mismatches published")
	return nil
}

func (p *MismatchPublisher) Close() error {
	return p.writer.Close()
}
