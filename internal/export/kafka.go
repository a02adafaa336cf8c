package export

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"soratop/internal/config"
	"soratop/internal/engine"
)

// Exporter publishes each aggregated snapshot to a Kafka topic so the live
// numbers can feed dashboards alongside the terminal view. Publishing is
// fire-and-forget: the poll loop is never blocked and a full queue drops
// the oldest snapshot first.
type Exporter struct {
	writer sender
	queue  chan *engine.View
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

type sender interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

func NewKafka(cfg config.KafkaConfig) (*Exporter, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers not configured")
	}
	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers:      cfg.Brokers,
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: int(kafka.RequireOne),
	})
	return newExporter(writer), nil
}

func newExporter(writer sender) *Exporter {
	ctx, cancel := context.WithCancel(context.Background())
	return &Exporter{
		writer: writer,
		queue:  make(chan *engine.View, 64),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start launches the background send loop. Call once.
func (e *Exporter) Start() {
	e.wg.Add(1)
	go e.loop()
	log.Info().Msg("kafka exporter started")
}

// Publish enqueues a view. Non-blocking: if the queue is full the oldest
// entry is dropped.
func (e *Exporter) Publish(v *engine.View) {
	select {
	case e.queue <- v:
	default:
		select {
		case <-e.queue:
		default:
		}
		select {
		case e.queue <- v:
		default:
			log.Warn().Msg("snapshot export dropped: queue full")
		}
	}
}

// Shutdown stops the send loop and closes the writer, bounded by ctx.
func (e *Exporter) Shutdown(ctx context.Context) {
	e.cancel()
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		log.Warn().Msg("kafka exporter shutdown timeout")
	}
	if err := e.writer.Close(); err != nil {
		log.Warn().Err(err).Msg("kafka writer close failed")
	}
}

func (e *Exporter) loop() {
	defer e.wg.Done()
	for {
		select {
		case <-e.ctx.Done():
			return
		case v := <-e.queue:
			e.send(v)
		}
	}
}

func (e *Exporter) send(v *engine.View) {
	payload, err := json.Marshal(encodeView(v))
	if err != nil {
		log.Error().Err(err).Msg("marshal snapshot failed")
		return
	}
	err = e.writer.WriteMessages(e.ctx, kafka.Message{
		Key:   []byte(uuid.NewString()),
		Value: payload,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Warn().Err(err).Msg("snapshot export failed")
	}
}

type fieldPayload struct {
	Sum         *float64 `json:"sum,omitempty"`
	DeltaPerSec *float64 `json:"delta_per_sec,omitempty"`
}

type snapshotPayload struct {
	Time        time.Time               `json:"time"`
	Connections int                     `json:"connections"`
	Fields      map[string]fieldPayload `json:"fields"`
}

func encodeView(v *engine.View) snapshotPayload {
	fields := make(map[string]fieldPayload, len(v.Aggregated.Fields))
	for key, agg := range v.Aggregated.Fields {
		fp := fieldPayload{}
		if sum, ok := agg.Sum.Float(); ok {
			fp.Sum = &sum
		}
		if fd, ok := v.Delta.Fields[key]; ok {
			if d, ok := fd.Sum.Float(); ok {
				fp.DeltaPerSec = &d
			}
		}
		fields[key] = fp
	}
	return snapshotPayload{
		Time:        v.Time,
		Connections: v.Aggregated.ConnectionCount,
		Fields:      fields,
	}
}
