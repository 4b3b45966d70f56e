package socket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

// Loader produces the full current result set of a topic.
type Loader func(ctx context.Context) (any, error)

// Snapshot is the message pushed to subscribers.
type Snapshot struct {
	Topic string    `json:"topic"`
	Data  any       `json:"data"`
	At    time.Time `json:"at"`
}

// Feed keeps topic snapshots in the Hub up to date. Local writes call Notify; change
// streams cover writes made by other server instances.
type Feed struct {
	hub *Hub
	log *slog.Logger

	mu      sync.Mutex
	loaders map[string]Loader
	dirty   map[string]bool
	wake    chan struct{}
}

func NewFeed(hub *Hub, log *slog.Logger) *Feed {
	return &Feed{
		hub:     hub,
		log:     log,
		loaders: make(map[string]Loader),
		dirty:   make(map[string]bool),
		wake:    make(chan struct{}, 1),
	}
}

// Register adds a topic. Topic keys may carry a variant after a colon, e.g.
// "returnForms:pending"; Notify("returnForms") refreshes all of them.
func (f *Feed) Register(topic string, loader Loader) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loaders[topic] = loader
}

// Has reports whether topic is registered.
func (f *Feed) Has(topic string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.loaders[topic]
	return ok
}

// Topics lists the registered topics.
func (f *Feed) Topics() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.loaders))
	for t := range f.loaders {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Notify marks every topic of the family dirty without blocking the caller.
func (f *Feed) Notify(family string) {
	f.mu.Lock()
	for t := range f.loaders {
		if t == family || strings.HasPrefix(t, family+":") {
			f.dirty[t] = true
		}
	}
	f.mu.Unlock()

	select {
	case f.wake <- struct{}{}:
	default:
	}
}

// Refresh loads the topic and publishes the snapshot.
func (f *Feed) Refresh(ctx context.Context, topic string) error {
	f.mu.Lock()
	loader, ok := f.loaders[topic]
	f.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown topic %q", topic)
	}

	data, err := loader(ctx)
	if err != nil {
		return fmt.Errorf("load %s: %w", topic, err)
	}
	msg, err := json.Marshal(Snapshot{Topic: topic, Data: data, At: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("encode %s: %w", topic, err)
	}
	f.hub.Publish(topic, msg)
	return nil
}

// Run refreshes dirty topics until ctx is done. Every topic is loaded once at start.
func (f *Feed) Run(ctx context.Context) {
	for _, t := range f.Topics() {
		f.mu.Lock()
		f.dirty[t] = true
		f.mu.Unlock()
	}
	f.flush(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-f.wake:
			f.flush(ctx)
		}
	}
}

func (f *Feed) flush(ctx context.Context) {
	f.mu.Lock()
	topics := make([]string, 0, len(f.dirty))
	for t := range f.dirty {
		topics = append(topics, t)
	}
	f.dirty = make(map[string]bool)
	f.mu.Unlock()

	for _, t := range topics {
		if err := f.Refresh(ctx, t); err != nil && ctx.Err() == nil {
			f.log.Error("live feed refresh failed", "topic", t, "error", err)
		}
	}
}

// Watch follows the collection's change stream and notifies family on every change.
// Standalone servers have no change streams; then only local writes refresh the feed.
func (f *Feed) Watch(ctx context.Context, coll *mongo.Collection, family string) {
	stream, err := coll.Watch(ctx, mongo.Pipeline{})
	if err != nil {
		f.log.Warn("change stream unavailable, live updates limited to this instance",
			"collection", coll.Name(), "error", err)
		return
	}
	defer stream.Close(context.Background())

	f.log.Info("watching collection", "collection", coll.Name(), "topic", family)
	for stream.Next(ctx) {
		f.Notify(family)
	}
	if err := stream.Err(); err != nil && ctx.Err() == nil {
		f.log.Error("change stream stopped", "collection", coll.Name(), "error", err)
	}
}
