// Package events publishes notifications about completed bridge runs.
package events

import (
	"context"
	"time"
)

// TypeBridgeCompleted is the type of the event emitted after a bridge run
// committed all of its wheels.
const TypeBridgeCompleted = "bridge.completed"

// Artifact summarizes one committed wheel inside an event.
type Artifact struct {
	Filename string `json:"filename"`
	SHA256   string `json:"sha256"`
	Size     int64  `json:"size"`
}

// Event describes a finished bridge run.
type Event struct {
	Type      string        `json:"type"`
	RunID     string        `json:"run_id"`
	Root      string        `json:"root"`
	Range     string        `json:"range"`
	Version   string        `json:"version"`
	Nodes     int           `json:"nodes"`
	Artifacts []Artifact    `json:"artifacts"`
	Duration  time.Duration `json:"duration_ns"`
	Time      time.Time     `json:"time"`
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// NullPublisher drops every event.
type NullPublisher struct{}

// NewNullPublisher returns a publisher that does nothing.
func NewNullPublisher() NullPublisher { return NullPublisher{} }

func (NullPublisher) Publish(context.Context, Event) error { return nil }
func (NullPublisher) Close() error                         { return nil }
