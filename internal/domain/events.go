package domain

import (
	"encoding/json"
	"fmt"
)

// EventKind discriminates the per-session event stream.
type EventKind string

const (
	EventStarted     EventKind = "started"
	EventStopped     EventKind = "stopped"
	EventNewWord     EventKind = "newWord"
	EventWordUpdate  EventKind = "wordUpdate"
	EventBulkUpdate  EventKind = "bulkUpdate"
	EventWordDeleted EventKind = "wordDeleted"
)

// Event is the wire envelope for all inbound session events. Fields are
// populated according to Type; unused fields stay at their zero value and
// are omitted from JSON.
type Event struct {
	Type     EventKind   `json:"type"`
	Word     string      `json:"word,omitempty"`
	Count    int         `json:"count,omitempty"`
	NewCount int         `json:"newCount,omitempty"`
	Category Category    `json:"category,omitempty"`
	Words    []WordEntry `json:"words,omitempty"`
	// Final stats carried by stopped events.
	TotalInputs int `json:"totalInputs,omitempty"`
	UniqueWords int `json:"uniqueWords,omitempty"`
}

// NewWordEvent builds a first-occurrence event.
func NewWordEvent(entry WordEntry) Event {
	return Event{Type: EventNewWord, Word: entry.Word, Count: entry.Count, Category: entry.Category}
}

// WordUpdateEvent builds a count-change event for an existing word.
func WordUpdateEvent(word string, newCount int) Event {
	return Event{Type: EventWordUpdate, Word: word, NewCount: newCount}
}

// BulkUpdateEvent builds a batched update covering several words.
func BulkUpdateEvent(words []WordEntry) Event {
	return Event{Type: EventBulkUpdate, Words: words}
}

// WordDeletedEvent builds an explicit removal event.
func WordDeletedEvent(word string) Event {
	return Event{Type: EventWordDeleted, Word: word}
}

// StartedEvent signals that feedback collection opened.
func StartedEvent() Event {
	return Event{Type: EventStarted}
}

// StoppedEvent signals that collection closed, carrying the final stats.
func StoppedEvent(stats SessionStats) Event {
	return Event{Type: EventStopped, TotalInputs: stats.TotalInputs, UniqueWords: stats.UniqueWords}
}

// DecodeEvent parses a wire message into an Event, validating the kind.
func DecodeEvent(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("failed to decode event: %w", err)
	}
	switch ev.Type {
	case EventStarted, EventStopped, EventNewWord, EventWordUpdate, EventBulkUpdate, EventWordDeleted:
		return ev, nil
	default:
		return Event{}, fmt.Errorf("unknown event type %q", ev.Type)
	}
}

// ConnState is the realtime channel connection state as seen by a viewer.
type ConnState string

const (
	ConnConnected    ConnState = "connected"
	ConnDisconnected ConnState = "disconnected"
	// ConnOffline means the reconnect budget is exhausted; only a health
	// check can bring the channel back.
	ConnOffline ConnState = "offline"
)
