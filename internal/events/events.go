// Package events defines the event log record types the ledger and
// dealer subsystem emit (spec.md §6 "Artifact outputs"). Grounded on
// trader-go/internal/events/manager.go (EventType string consts, Event
// struct, Manager.Emit logging pattern) merged with internal/events/
// event_data.go's EventData interface (a typed payload per event kind
// instead of a bag of interface{}, since spec.md §6 requires kind-
// specific payload fields, not a free-form map).
package events

import "github.com/rs/zerolog"

// Type is the short string tag identifying an event kind.
type Type string

const (
	BeginDay                  Type = "BeginDay"
	PhaseA                    Type = "PhaseA"
	PhaseB                    Type = "PhaseB"
	SubphaseB1                Type = "SubphaseB1"
	SubphaseB2                Type = "SubphaseB2"
	PhaseC                    Type = "PhaseC"
	PayableCreated            Type = "PayableCreated"
	PayableSettled            Type = "PayableSettled"
	DefaultEvent              Type = "DefaultEvent"
	StockCreated              Type = "StockCreated"
	StockTransferred          Type = "StockTransferred"
	DeliveryObligationSettled Type = "DeliveryObligationSettled"
	ClientPayment             Type = "ClientPayment"
	InterbankCleared          Type = "InterbankCleared"
	ClaimTransferred          Type = "ClaimTransferred"
	DealerTrade               Type = "DealerTrade"
	DealerPassthrough         Type = "DealerPassthrough"
	DealerRebucket            Type = "DealerRebucket"
	VbtAnchorUpdate           Type = "VbtAnchorUpdate"
	DealerOrderRejected       Type = "DealerOrderRejected"
	DealerLiquidation         Type = "DealerLiquidation"
)

// Data is implemented by every per-kind payload type so that Event.Data
// is a typed value, not an untyped map — this lets external writers
// (out of core scope) type-switch on the concrete payload without a
// schema registry.
type Data interface {
	EventType() Type
}

// Event is one record in the ledger's ordered event log.
type Event struct {
	Kind  Type   `json:"kind"`
	Day   int    `json:"day"`
	Phase string `json:"phase"`
	Data  Data   `json:"data"`
}

// Log is the ordered, append-only event log for one simulation run.
// Appending is the sole mutation; nothing is ever removed except by a
// full atomic-scope rollback (see package ledger).
type Log struct {
	events []Event
	logger zerolog.Logger
}

// NewLog builds an empty Log that mirrors every appended event to logger
// at debug level, matching the teacher's Manager.Emit pattern.
func NewLog(logger zerolog.Logger) *Log {
	return &Log{logger: logger}
}

// Append records ev as the next entry in the log and mirrors it to the
// injected logger.
func (l *Log) Append(ev Event) {
	l.events = append(l.events, ev)
	l.logger.Debug().
		Str("kind", string(ev.Kind)).
		Int("day", ev.Day).
		Str("phase", ev.Phase).
		Interface("data", ev.Data).
		Msg("event")
}

// Len returns the number of events recorded so far.
func (l *Log) Len() int { return len(l.events) }

// Events returns the full ordered event slice. Callers must not mutate
// the returned slice; it is shared with the log's internal snapshot
// machinery used by the atomic scope.
func (l *Log) Events() []Event { return l.events }

// Truncate drops every event past n, used by the atomic scope to rewind
// the log on rollback (the log length at scope entry is part of the
// snapshot captured in package ledger).
func (l *Log) Truncate(n int) {
	l.events = l.events[:n]
}

// Slice returns a copy of events[from:] for incremental artifact export.
func (l *Log) Slice(from int) []Event {
	out := make([]Event, len(l.events)-from)
	copy(out, l.events[from:])
	return out
}
