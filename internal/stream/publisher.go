// Package stream publishes simulation events to NATS so external
// consumers can follow a run in real time.
package stream

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"airline_recovery/internal/model"
)

// Config holds NATS connection settings.
type Config struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// DefaultConfig returns settings for a local NATS server.
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		SubjectPrefix: "recovery.events",
	}
}

// Publisher forwards simulation events to NATS. It implements
// model.Observer so it can be attached to an engine directly.
type Publisher struct {
	nc     *nats.Conn
	prefix string
	runID  string
	err    error
}

// Connect dials the NATS server. Events for the given run are
// published under "<prefix>.<run_id>.<event_type>".
func Connect(cfg Config, runID string) (*Publisher, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.Name("recoverysim"),
		nats.MaxReconnects(10),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Publisher{nc: nc, prefix: cfg.SubjectPrefix, runID: runID}, nil
}

type wireEvent struct {
	RunID string      `json:"run_id"`
	Event model.Event `json:"event"`
}

// OnEvent publishes one event. Publishing is best effort during a
// run; the first failure is kept and surfaced by Close.
func (p *Publisher) OnEvent(ev model.Event) {
	payload, err := json.Marshal(wireEvent{RunID: p.runID, Event: ev})
	if err != nil {
		p.setErr(fmt.Errorf("marshal event: %w", err))
		return
	}
	subject := fmt.Sprintf("%s.%s.%s", p.prefix, p.runID, ev.Type)
	if err := p.nc.Publish(subject, payload); err != nil {
		p.setErr(fmt.Errorf("publish %s: %w", subject, err))
	}
}

func (p *Publisher) setErr(err error) {
	if p.err == nil {
		p.err = err
	}
}

// Close flushes pending publishes and closes the connection. It
// returns the first publish failure seen during the run, if any.
func (p *Publisher) Close() error {
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
		return fmt.Errorf("drain nats: %w", err)
	}
	return p.err
}
