// Package progress implements the live job-progress stream client for the
// Attune backend. One Client maintains a resilient WebSocket subscription to
// a single long-running job (a statement upload, a categorization batch) and
// surfaces each server-pushed event to its handler, reconnecting with
// exponential backoff when the transport drops.
package progress

import (
	"encoding/json"

	"github.com/attunefin/attune-go/errors"
)

// Status is the lifecycle marker carried by a progress event.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
	StatusConnected  Status = "connected"
)

// Stage is the coarse processing phase of a job. Informational only; the
// client never branches on it.
type Stage string

const (
	StageInitialization Stage = "initialization"
	StageValidation     Stage = "validation"
	StageScanning       Stage = "scanning"
	StageParsing        Stage = "parsing"
	StageDatabase       Stage = "database"
	StageCategorization Stage = "categorization"
)

// Event is one progress update pushed by the server for a job.
//
// Progress is expected to be monotonic non-decreasing but the client does
// not enforce that, and Details is passed through verbatim without
// validation. Timestamp is server-assigned ISO-8601 text, used for display
// only — the client never orders events by it.
type Event struct {
	JobID    string                 `json:"jobId"`
	Progress float64                `json:"progress"`
	Status   Status                 `json:"status"`
	Stage    Stage                  `json:"stage"`
	Message  string                 `json:"message"`
	Details  map[string]interface{} `json:"details,omitempty"`
	Error    string                 `json:"error,omitempty"`

	Timestamp string `json:"timestamp"`
}

// parseEvent decodes a server frame into an Event. The caller has already
// filtered out keepalive replies.
func parseEvent(data []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, errors.Wrap(err, "failed to parse progress event")
	}
	return &ev, nil
}
