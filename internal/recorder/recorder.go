package recorder

import (
	"time"

	"github.com/google/uuid"

	"CryptoBoard/internal/model"
)

// Snapshot is one successful refresh of the board.
type Snapshot struct {
	ID    uuid.UUID
	Time  time.Time
	Unit  model.Unit
	Table model.InstrumentTable
}

// NewSnapshot stamps t with a fresh run id. The snapshot time is the
// table's fetch time when set.
func NewSnapshot(t model.InstrumentTable) *Snapshot {
	ts := t.FetchedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	return &Snapshot{ID: uuid.New(), Time: ts, Unit: t.Unit, Table: t}
}

// Failure is a refresh that ended without a table.
type Failure struct {
	ID       uuid.UUID
	Time     time.Time
	Unit     model.Unit
	Kind     string // fetch error kind, "SchemaMismatch" or "Other"
	Attempts int
	Message  string
}

// Recorder persists board history for analysis.
type Recorder interface {
	RecordSnapshot(snap *Snapshot) error
	RecordFailure(evt *Failure) error
	Close() error
}
