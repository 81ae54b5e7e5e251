package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/psiforge/commit-lib/pkg/common/session"
)

// Role is a matchmaking queue role.
type Role string

const (
	RoleSender   Role = "sender"
	RoleReceiver Role = "receiver"
)

var ErrInvalidQueueEntry = errors.New("session: invalid matchmaking entry")

type queueEntry struct {
	participantID string
	role          Role
	minDelay      time.Duration
	maxDelay      time.Duration
}

// matchQueue holds unpaired participants. Claiming two compatible entries
// happens inside a single critical section, so no entry can be paired twice.
type matchQueue struct {
	mu      sync.Mutex
	entries []*queueEntry
}

func newMatchQueue() *matchQueue {
	return &matchQueue{}
}

// claim removes and returns a counterpart compatible with candidate, or
// enqueues candidate and returns nil. Compatibility is the opposite role, a
// distinct participant, and overlapping preferred-delay ranges.
func (q *matchQueue) claim(candidate *queueEntry) *queueEntry {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, entry := range q.entries {
		if entry.role == candidate.role || entry.participantID == candidate.participantID {
			continue
		}
		if entry.minDelay > candidate.maxDelay || candidate.minDelay > entry.maxDelay {
			continue
		}
		q.entries = append(q.entries[:i], q.entries[i+1:]...)
		return entry
	}

	q.entries = append(q.entries, candidate)
	return nil
}

// MatchResult reports the outcome of an enqueue: either an immediate pairing
// with a freshly created session, or a position in the queue.
type MatchResult struct {
	Matched bool            `json:"matched"`
	Session *session.Record `json:"session,omitempty"`
}

// EnqueueMatch registers a participant in the matchmaking queue. When a
// compatible counterpart is already waiting, both entries are claimed
// atomically and a paired session is created with the stricter of the two
// minimum delays.
func (c *Coordinator) EnqueueMatch(ctx context.Context, participantID string, role Role, minDelay, maxDelay time.Duration) (*MatchResult, error) {
	if participantID == "" || (role != RoleSender && role != RoleReceiver) {
		return nil, ErrInvalidQueueEntry
	}
	if minDelay <= 0 || maxDelay < minDelay {
		return nil, errors.WithMessage(ErrInvalidQueueEntry, "delay range must satisfy 0 < min <= max")
	}

	candidate := &queueEntry{
		participantID: participantID,
		role:          role,
		minDelay:      minDelay,
		maxDelay:      maxDelay,
	}
	counterpart := c.queue.claim(candidate)
	if counterpart == nil {
		return &MatchResult{Matched: false}, nil
	}

	sender, receiver := candidate, counterpart
	if sender.role != RoleSender {
		sender, receiver = counterpart, candidate
	}

	delay := sender.minDelay
	if receiver.minDelay > delay {
		delay = receiver.minDelay
	}

	record, err := c.CreateSession(ctx, sender.participantID, delay)
	if err != nil {
		return nil, err
	}
	record, err = c.JoinSession(ctx, record.InviteCode, receiver.participantID)
	if err != nil {
		return nil, err
	}

	c.log.Debug().Str("session", record.ID).
		Str("sender", sender.participantID).Str("receiver", receiver.participantID).
		Msg("matchmaking pair claimed")
	return &MatchResult{Matched: true, Session: record}, nil
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
