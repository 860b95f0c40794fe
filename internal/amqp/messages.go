package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"restobook/internal/core"
)

// EventOp is what happened to a record.
type EventOp string

const (
	OpCreated EventOp = "created"
	OpUpdated EventOp = "updated"
	OpDeleted EventOp = "deleted"
)

// RecordEvent is a lightweight notification about a record change.
// Consumers fetch the full row from the database by table and id.
type RecordEvent struct {
	Op        EventOp    `json:"op"`
	Table     core.Table `json:"table"`
	ID        int64      `json:"id"`
	Timestamp time.Time  `json:"timestamp"`
}

func NewRecordEvent(op EventOp, table core.Table, id int64) *RecordEvent {
	return &RecordEvent{
		Op:        op,
		Table:     table,
		ID:        id,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *RecordEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// RecordEventFromJSON decodes and sanity-checks an event.
func RecordEventFromJSON(data []byte) (*RecordEvent, error) {
	var ev RecordEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	switch ev.Op {
	case OpCreated, OpUpdated, OpDeleted:
	default:
		return nil, fmt.Errorf("unknown event op %q", ev.Op)
	}
	if ev.Table != core.TablePurchases && ev.Table != core.TableExpenses {
		return nil, fmt.Errorf("unknown event table %q", ev.Table)
	}
	if ev.ID <= 0 {
		return nil, fmt.Errorf("invalid record id %d", ev.ID)
	}
	return &ev, nil
}
