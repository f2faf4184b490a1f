package logger

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Publisher ships one batch of aggregated entries to a topic.
type Publisher interface {
	PublishMessage(ctx context.Context, topic string, payload interface{}) error
}

// CollectionConfig tunes batching of collected error logs.
type CollectionConfig struct {
	TimeInterval   time.Duration // flush interval
	CountThreshold int           // distinct entries that force an early flush
	Topic          string
	Publisher      Publisher
}

// AggregatedLogEntry is one deduplicated log line with occurrence counts.
// Identical messages from the same call site collapse into a single entry;
// the fields of the first occurrence are kept.
type AggregatedLogEntry struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields"`
	Caller    string                 `json:"caller"`
	Count     int                    `json:"count"`
	FirstSeen time.Time              `json:"first_seen"`
	LastSeen  time.Time              `json:"last_seen"`
}

// LogCollector batches error logs and flushes them to the publisher either
// periodically or when the distinct-entry threshold is hit.
type LogCollector struct {
	config  *CollectionConfig
	mu      sync.Mutex
	entries map[string]*AggregatedLogEntry
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewLogCollector starts the flush loop.
func NewLogCollector(config *CollectionConfig) *LogCollector {
	ctx, cancel := context.WithCancel(context.Background())
	lc := &LogCollector{
		config:  config,
		entries: make(map[string]*AggregatedLogEntry),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go lc.run(ctx)
	return lc
}

// AddLog records one occurrence.
func (lc *LogCollector) AddLog(level, message string, fields map[string]interface{}, caller string) {
	now := time.Now()
	key := level + "|" + message + "|" + caller

	lc.mu.Lock()
	defer lc.mu.Unlock()

	if entry, ok := lc.entries[key]; ok {
		entry.Count++
		entry.LastSeen = now
	} else {
		lc.entries[key] = &AggregatedLogEntry{
			Level:     level,
			Message:   message,
			Fields:    fields,
			Caller:    caller,
			Count:     1,
			FirstSeen: now,
			LastSeen:  now,
		}
	}

	if len(lc.entries) >= lc.config.CountThreshold {
		lc.flushLocked()
	}
}

// Close flushes whatever is pending and stops the loop.
func (lc *LogCollector) Close() {
	lc.cancel()
	<-lc.done
}

func (lc *LogCollector) run(ctx context.Context) {
	defer close(lc.done)

	ticker := time.NewTicker(lc.config.TimeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			lc.mu.Lock()
			lc.flushLocked()
			lc.mu.Unlock()
		case <-ctx.Done():
			lc.mu.Lock()
			lc.flushLocked()
			lc.mu.Unlock()
			return
		}
	}
}

// flushLocked requires lc.mu held. Publishing happens off the hot path.
func (lc *LogCollector) flushLocked() {
	if len(lc.entries) == 0 {
		return
	}

	batch := make([]AggregatedLogEntry, 0, len(lc.entries))
	for _, entry := range lc.entries {
		batch = append(batch, *entry)
	}
	lc.entries = make(map[string]*AggregatedLogEntry)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := lc.config.Publisher.PublishMessage(ctx, lc.config.Topic, batch); err != nil {
			fmt.Printf("failed to ship aggregated logs: %v\n", err)
		}
	}()
}
