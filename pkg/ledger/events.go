package ledger

import "time"

// Stage identifies a step of the reveal pipeline. Stage transitions are
// delivered over an optional caller-supplied channel instead of a callback,
// so the caller owns cancellation and buffering.
type Stage string

const (
	StageRetrieve Stage = "retrieve"
	StageVerify   Stage = "verify"
	StageScore    Stage = "score"
	StagePersist  Stage = "persist"
)

type StageEvent struct {
	CommitmentID string    `json:"commitmentId"`
	Stage        Stage     `json:"stage"`
	At           time.Time `json:"at"`
}

// emit delivers a stage event without ever blocking the reveal: a full or
// nil channel drops the event.
func (l *Ledger) emit(events chan<- StageEvent, commitmentID string, stage Stage) {
	if events == nil {
		return
	}
	select {
	case events <- StageEvent{CommitmentID: commitmentID, Stage: stage, At: l.now()}:
	default:
	}
}
