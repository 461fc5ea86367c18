package websocket

import (
	"github.com/stemsi/exam-portal/internal/model"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing    Action = "ping"
	ActionRefresh Action = "refresh"
)

// RequestEnvelope is the only shape a monitor client sends.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventSnapshot Event = "snapshot"
	EventAttempt  Event = "attempt"
	EventPong     Event = "pong"
	EventError    Event = "error"
)

// SnapshotStats counts attempts by state.
type SnapshotStats struct {
	TotalJoined     int `json:"total_joined"`
	TotalInProgress int `json:"total_in_progress"`
	TotalCompleted  int `json:"total_completed"`
}

// SnapshotResponse is sent on connect and on a refresh action.
type SnapshotResponse struct {
	Event    Event                  `json:"event"`
	Exam     *model.Exam            `json:"exam"`
	Stats    SnapshotStats          `json:"stats"`
	Attempts []model.AttemptSummary `json:"attempts"`
}

// AttemptResponse forwards one attempt state change.
type AttemptResponse struct {
	Event   Event              `json:"event"`
	Attempt model.AttemptEvent `json:"attempt"`
}

type PongResponse struct {
	Event Event `json:"event"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

// NewSnapshot builds a snapshot and its counters from the attempt list.
func NewSnapshot(exam *model.Exam, attempts []model.AttemptSummary) SnapshotResponse {
	if attempts == nil {
		attempts = []model.AttemptSummary{}
	}
	stats := SnapshotStats{TotalJoined: len(attempts)}
	for i := range attempts {
		if attempts[i].Completed {
			stats.TotalCompleted++
		} else {
			stats.TotalInProgress++
		}
	}
	return SnapshotResponse{
		Event:    EventSnapshot,
		Exam:     exam,
		Stats:    stats,
		Attempts: attempts,
	}
}
