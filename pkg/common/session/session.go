// Package session defines the two-party delayed-reveal session contract.
package session

import (
	"context"
	"errors"
	"time"
)

// State is the lifecycle position of a session. The happy path is
// AwaitingPartner -> SenderTagged -> DelayPending -> ReadyToReceive ->
// Scored; Scored is terminal. Sessions are persisted already awaiting a
// partner, so there is no stored pre-invite state.
type State string

const (
	StateAwaitingPartner State = "awaiting-partner"
	StateSenderTagged    State = "sender-tagged"
	StateDelayPending    State = "delay-pending"
	StateReadyToReceive  State = "ready-to-receive"
	StateScored          State = "scored"
)

var (
	ErrNotFound          = errors.New("session: not found")
	ErrInviteNotFound    = errors.New("session: invite code not found")
	ErrInvalidTransition = errors.New("session: operation not valid in current state")
	ErrNotParticipant    = errors.New("session: caller is not a participant")
	ErrDelayNotElapsed   = errors.New("session: minimum delay has not elapsed")
	ErrAlreadyScored     = errors.New("session: already scored")
)

// Record is the persisted session.
type Record struct {
	ID            string        `cbor:"id"`
	InviteCode    string        `cbor:"inviteCode"`
	SenderID      string        `cbor:"senderId"`
	ReceiverID    string        `cbor:"receiverId,omitempty"`
	State         State         `cbor:"state"`
	MinimumDelay  time.Duration `cbor:"minimumDelay"`
	DelayDeadline time.Time     `cbor:"delayDeadline,omitempty"`
	SenderTags    []string      `cbor:"senderTags,omitempty"`
	ReceiverTags  []string      `cbor:"receiverTags,omitempty"`
	Score         float64       `cbor:"score,omitempty"`
	ZScore        float64       `cbor:"zScore,omitempty"`
	CreatedAt     time.Time     `cbor:"createdAt"`
}

// Clone keeps stored state unreachable through returned pointers.
func (r *Record) Clone() *Record {
	out := *r
	out.SenderTags = append([]string(nil), r.SenderTags...)
	out.ReceiverTags = append([]string(nil), r.ReceiverTags...)
	return &out
}

// Store persists session records. Update runs fn under the store's lock so
// that read-modify-write transitions are atomic with respect to concurrent
// updates of the same session.
type Store interface {
	Import(ctx context.Context, record *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	GetByInvite(ctx context.Context, inviteCode string) (*Record, error)
	Update(ctx context.Context, id string, fn func(*Record) error) (*Record, error)
}
