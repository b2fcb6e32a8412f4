// Package events implements the best-effort offload-event publisher
// SPEC_FULL.md §4.N describes: every successful flow_put, flow_del, and
// fanout partial-failure is published to a Kafka topic so an external
// monitoring component can track offload coverage without polling.
// Grounded on the teacher's kafka/sarama_client.go producer wrapper
// (SaramaClient.Send's marshal-then-Input()-then-wait-for-result
// shape), rebuilt fire-and-forget: a bounded queue feeds the producer
// from its own goroutine so a slow or unreachable broker can never
// block flow_put/flow_del, and a full queue drops the oldest pending
// event rather than applying backpressure (SPEC_FULL.md §8).
package events

import (
	"encoding/json"

	"github.com/IBM/sarama"

	"github.com/flowcore/nicoffload/internal/corelog"
	"github.com/flowcore/nicoffload/pkg/offload"
)

var logger = corelog.AddPackage("events")

// Outcome tags what happened to the flow the event describes.
type Outcome string

const (
	OutcomeInstalled Outcome = "installed"
	OutcomeDeleted   Outcome = "deleted"
	OutcomePartial   Outcome = "partial"
	OutcomeFailed    Outcome = "failed"
)

// Event is the small struct published for every flow_put/flow_del,
// matching SPEC_FULL.md §4.N's "flow-id, port, table, outcome".
type Event struct {
	FlowID  string         `json:"flow_id"`
	DpPort  uint32         `json:"dp_port"`
	Table   offload.TableID `json:"table"`
	Outcome Outcome        `json:"outcome"`
}

// Publisher is a fire-and-forget Kafka event publisher. The zero value
// is not usable; a nil *Publisher is, and Publish on it is a no-op —
// the same disabled-subsystem contract internal/snapshot.Store uses.
type Publisher struct {
	producer sarama.AsyncProducer
	topic    string
	queue    chan Event
	done     chan struct{}
}

// New dials brokers and starts the background publish loop. queueSize
// bounds how many events may be pending before the oldest is dropped.
func New(brokers []string, topic string, queueSize int) (*Publisher, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = false
	cfg.Producer.Return.Errors = true

	producer, err := sarama.NewAsyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}

	p := &Publisher{
		producer: producer,
		topic:    topic,
		queue:    make(chan Event, queueSize),
		done:     make(chan struct{}),
	}
	go p.drainErrors()
	go p.loop()
	return p, nil
}

// Publish enqueues e for publication, dropping the oldest queued event
// if the queue is full rather than blocking the caller.
func (p *Publisher) Publish(e Event) {
	if p == nil {
		return
	}
	select {
	case p.queue <- e:
		return
	default:
	}

	select {
	case <-p.queue:
		logger.Warnw("events-queue-full-dropped-oldest", corelog.Fields{"topic": p.topic})
	default:
	}
	select {
	case p.queue <- e:
	default:
	}
}

func (p *Publisher) loop() {
	for {
		select {
		case e := <-p.queue:
			data, err := json.Marshal(e)
			if err != nil {
				logger.Warnw("events-marshal-failed", corelog.Fields{"error": err.Error()})
				continue
			}
			msg := &sarama.ProducerMessage{
				Topic: p.topic,
				Key:   sarama.StringEncoder(e.FlowID),
				Value: sarama.ByteEncoder(data),
			}
			select {
			case p.producer.Input() <- msg:
			case <-p.done:
				return
			}
		case <-p.done:
			return
		}
	}
}

func (p *Publisher) drainErrors() {
	for err := range p.producer.Errors() {
		logger.Warnw("events-publish-failed", corelog.Fields{"error": err.Error()})
	}
}

// Close stops the publish loop and closes the underlying producer. Any
// events still queued are dropped.
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	close(p.done)
	_ = p.producer.Close()
}
