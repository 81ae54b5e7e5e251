// Package session implements the two-party delayed-reveal protocol: a
// sender describes a target, a mandatory delay passes, and only then may the
// receiver respond. The delay is a protocol guarantee enforced by deadline
// checks, never a blocking wait.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/psiforge/commit-lib/core/stats"
	"github.com/psiforge/commit-lib/pkg/common/session"
)

const (
	// tagChanceProbability is the chance baseline for a single tag match
	// against an open vocabulary; the conventional forced-choice baseline.
	tagChanceProbability = 0.25

	inviteCodeBytes = 5 // 8 base32 characters
)

type Coordinator struct {
	store session.Store
	queue *matchQueue
	log   zerolog.Logger
	now   func() time.Time
}

type Option func(*Coordinator)

func WithLogger(log zerolog.Logger) Option {
	return func(c *Coordinator) { c.log = log }
}

func NewCoordinator(store session.Store, opts ...Option) *Coordinator {
	c := &Coordinator{
		store: store,
		queue: newMatchQueue(),
		log:   zerolog.Nop(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateSession starts a session with the given minimum delay and returns it
// in the awaiting-partner state with a fresh invite code.
func (c *Coordinator) CreateSession(ctx context.Context, senderID string, minimumDelay time.Duration) (*session.Record, error) {
	if senderID == "" || minimumDelay <= 0 {
		return nil, errors.WithMessage(session.ErrInvalidTransition, "sender id and a positive delay are required")
	}

	invite, err := newInviteCode()
	if err != nil {
		return nil, err
	}

	record := &session.Record{
		ID:           uuid.New().String(),
		InviteCode:   invite,
		SenderID:     senderID,
		State:        session.StateAwaitingPartner,
		MinimumDelay: minimumDelay,
		CreatedAt:    c.now().UTC(),
	}
	if err := c.store.Import(ctx, record); err != nil {
		return nil, errors.WithMessage(err, "session: persist")
	}
	return record, nil
}

func newInviteCode() (string, error) {
	buf := make([]byte, inviteCodeBytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", errors.WithMessage(err, "session: generate invite code")
	}
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(buf), nil
}

// JoinSession attaches a receiver to a session via its invite code.
func (c *Coordinator) JoinSession(ctx context.Context, inviteCode, receiverID string) (*session.Record, error) {
	found, err := c.store.GetByInvite(ctx, inviteCode)
	if err != nil {
		return nil, err
	}

	return c.store.Update(ctx, found.ID, func(r *session.Record) error {
		if r.State != session.StateAwaitingPartner || r.ReceiverID != "" {
			return session.ErrInvalidTransition
		}
		if receiverID == "" || receiverID == r.SenderID {
			return errors.WithMessage(session.ErrInvalidTransition, "receiver must be a distinct participant")
		}
		r.ReceiverID = receiverID
		return nil
	})
}

// SubmitSenderTags stores the sender's descriptive tags and starts the delay
// timer. Valid only once, with a partner attached.
func (c *Coordinator) SubmitSenderTags(ctx context.Context, sessionID, senderID string, tags []string) (*session.Record, error) {
	return c.store.Update(ctx, sessionID, func(r *session.Record) error {
		if r.SenderID != senderID {
			return session.ErrNotParticipant
		}
		if r.State != session.StateAwaitingPartner || r.ReceiverID == "" {
			return session.ErrInvalidTransition
		}
		if len(tags) == 0 {
			return errors.WithMessage(session.ErrInvalidTransition, "at least one tag is required")
		}
		r.SenderTags = append([]string(nil), tags...)
		r.State = session.StateSenderTagged
		r.DelayDeadline = c.now().Add(r.MinimumDelay).UTC()
		return nil
	})
}

// DelayStatus is what polling receivers see. Target material is never
// included before the deadline.
type DelayStatus struct {
	State     session.State `json:"state"`
	Ready     bool          `json:"ready"`
	Remaining time.Duration `json:"remaining"`
}

// CheckDelay reports whether the delay has elapsed, advancing the state
// machine through delay-pending to ready-to-receive as a side effect. It
// never blocks for the delay duration.
func (c *Coordinator) CheckDelay(ctx context.Context, sessionID string) (*DelayStatus, error) {
	record, err := c.store.Update(ctx, sessionID, func(r *session.Record) error {
		switch r.State {
		case session.StateSenderTagged, session.StateDelayPending:
			if c.now().Before(r.DelayDeadline) {
				r.State = session.StateDelayPending
			} else {
				r.State = session.StateReadyToReceive
			}
			return nil
		case session.StateReadyToReceive, session.StateScored:
			return nil
		default:
			return session.ErrInvalidTransition
		}
	})
	if err != nil {
		return nil, err
	}

	status := &DelayStatus{State: record.State}
	if record.State == session.StateDelayPending {
		status.Remaining = record.DelayDeadline.Sub(c.now())
	} else {
		status.Ready = true
	}
	return status, nil
}

// SessionScore is the terminal outcome of a session.
type SessionScore struct {
	Matches int     `json:"matches"`
	Trials  int     `json:"trials"`
	Score   float64 `json:"score"`
	ZScore  float64 `json:"zScore"`
	PValue  float64 `json:"pValue"`
}

// SubmitReceiverResponse scores the receiver's tags against the sender's.
// It is rejected before the delay deadline and after the session has been
// scored; the score is computed exactly once.
func (c *Coordinator) SubmitReceiverResponse(ctx context.Context, sessionID, receiverID string, tags []string) (*SessionScore, error) {
	var score SessionScore
	_, err := c.store.Update(ctx, sessionID, func(r *session.Record) error {
		if r.ReceiverID != receiverID {
			return session.ErrNotParticipant
		}
		switch r.State {
		case session.StateScored:
			return session.ErrAlreadyScored
		case session.StateSenderTagged, session.StateDelayPending, session.StateReadyToReceive:
		default:
			return session.ErrInvalidTransition
		}
		if c.now().Before(r.DelayDeadline) {
			return session.ErrDelayNotElapsed
		}
		if len(tags) == 0 {
			return errors.WithMessage(session.ErrInvalidTransition, "at least one tag is required")
		}

		score = scoreTags(r.SenderTags, tags)
		r.ReceiverTags = append([]string(nil), tags...)
		r.Score = score.Score
		r.ZScore = score.ZScore
		r.State = session.StateScored
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.log.Debug().Str("session", sessionID).Float64("score", score.Score).Msg("session scored")
	return &score, nil
}

// scoreTags counts exact case-folded tag matches against the forced-choice
// chance baseline.
func scoreTags(senderTags, receiverTags []string) SessionScore {
	sender := make(map[string]struct{}, len(senderTags))
	for _, tag := range senderTags {
		sender[fold(tag)] = struct{}{}
	}

	matches := 0
	for _, tag := range receiverTags {
		if _, ok := sender[fold(tag)]; ok {
			matches++
		}
	}

	trials := len(receiverTags)
	if len(senderTags) > trials {
		trials = len(senderTags)
	}

	result := stats.BinomialZTest(matches, trials, tagChanceProbability)
	return SessionScore{
		Matches: matches,
		Trials:  trials,
		Score:   float64(matches) / float64(trials),
		ZScore:  result.ZScore,
		PValue:  result.PValue,
	}
}
