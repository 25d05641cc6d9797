// Package storage records the session log using NATS KV.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
)

// SessionBucket is the KV bucket holding session log entries.
const SessionBucket = "COMPANION_SESSION"

// sessionTTL expires entries so stale sessions do not accumulate.
const sessionTTL = 24 * time.Hour

// EntryKind classifies a session log entry.
type EntryKind string

const (
	KindPhaseChange       EntryKind = "phase_change"
	KindChecklistComplete EntryKind = "checklist_complete"
	KindReset             EntryKind = "reset"
	KindPlanLoaded        EntryKind = "plan_loaded"
)

// Entry is one session log record.
type Entry struct {
	ID     string    `json:"id"`
	Kind   EntryKind `json:"kind"`
	Phase  string    `json:"phase,omitempty"`
	Detail string    `json:"detail,omitempty"`
	At     time.Time `json:"at"`
}

// SessionLog stores entries in a KV bucket and lists them chronologically.
type SessionLog struct {
	kv jetstream.KeyValue
}

// NewSessionLog opens (or creates) the session bucket.
func NewSessionLog(ctx context.Context, js jetstream.JetStream) (*SessionLog, error) {
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      SessionBucket,
		Description: "Companion session log",
		TTL:         sessionTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("create session bucket: %w", err)
	}
	return &SessionLog{kv: kv}, nil
}

// Append records an entry. The ID and timestamp are filled in here.
func (l *SessionLog) Append(ctx context.Context, kind EntryKind, phase, detail string) (*Entry, error) {
	entry := &Entry{
		ID:     uuid.New().String(),
		Kind:   kind,
		Phase:  phase,
		Detail: detail,
		At:     time.Now().UTC(),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("marshal session entry: %w", err)
	}
	if _, err := l.kv.Create(ctx, entry.ID, data); err != nil {
		return nil, fmt.Errorf("store session entry: %w", err)
	}
	return entry, nil
}

// List returns all entries in chronological order.
func (l *SessionLog) List(ctx context.Context) ([]*Entry, error) {
	keys, err := l.kv.Keys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("list session keys: %w", err)
	}

	entries := make([]*Entry, 0, len(keys))
	for _, key := range keys {
		kvEntry, err := l.kv.Get(ctx, key)
		if err != nil {
			continue // expired between Keys and Get
		}
		var e Entry
		if err := json.Unmarshal(kvEntry.Value(), &e); err != nil {
			continue
		}
		entries = append(entries, &e)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].At.Before(entries[j].At) })
	return entries, nil
}

// Clear removes every entry, starting a fresh session.
func (l *SessionLog) Clear(ctx context.Context) error {
	keys, err := l.kv.Keys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil
		}
		return fmt.Errorf("list session keys: %w", err)
	}
	for _, key := range keys {
		if err := l.kv.Delete(ctx, key); err != nil {
			return fmt.Errorf("delete session entry %s: %w", key, err)
		}
	}
	return nil
}
