package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/psiforge/commit-lib/pkg/common/session"
)

func newTestCoordinator() (*Coordinator, *time.Time) {
	now := time.Date(2026, 2, 11, 9, 0, 0, 0, time.UTC)
	c := NewCoordinator(NewInMemorySessionStore())
	c.now = func() time.Time { return now }
	return c, &now
}

func pairedSession(t *testing.T, c *Coordinator) *session.Record {
	t.Helper()
	ctx := context.Background()

	record, err := c.CreateSession(ctx, "sender-1", time.Hour)
	require.NoError(t, err)
	require.Equal(t, session.StateAwaitingPartner, record.State)
	require.NotEmpty(t, record.InviteCode)

	record, err = c.JoinSession(ctx, record.InviteCode, "receiver-1")
	require.NoError(t, err)
	require.Equal(t, "receiver-1", record.ReceiverID)
	return record
}

func TestCreateSession_Validation(t *testing.T) {
	c, _ := newTestCoordinator()
	ctx := context.Background()

	_, err := c.CreateSession(ctx, "", time.Hour)
	assert.ErrorIs(t, err, session.ErrInvalidTransition)

	_, err = c.CreateSession(ctx, "sender-1", 0)
	assert.ErrorIs(t, err, session.ErrInvalidTransition)
}

func TestJoinSession(t *testing.T) {
	c, _ := newTestCoordinator()
	ctx := context.Background()
	record := pairedSession(t, c)

	// a second join is rejected
	_, err := c.JoinSession(ctx, record.InviteCode, "receiver-2")
	assert.ErrorIs(t, err, session.ErrInvalidTransition)

	// unknown invite
	_, err = c.JoinSession(ctx, "NOPE1234", "receiver-2")
	assert.ErrorIs(t, err, session.ErrInviteNotFound)
}

func TestJoinSession_SelfPairingRejected(t *testing.T) {
	c, _ := newTestCoordinator()
	ctx := context.Background()

	record, err := c.CreateSession(ctx, "sender-1", time.Hour)
	require.NoError(t, err)

	_, err = c.JoinSession(ctx, record.InviteCode, "sender-1")
	assert.ErrorIs(t, err, session.ErrInvalidTransition)
}

func TestSubmitSenderTags(t *testing.T) {
	c, _ := newTestCoordinator()
	ctx := context.Background()

	// tagging without a partner is rejected
	lone, err := c.CreateSession(ctx, "sender-1", time.Hour)
	require.NoError(t, err)
	_, err = c.SubmitSenderTags(ctx, lone.ID, "sender-1", []string{"water"})
	assert.ErrorIs(t, err, session.ErrInvalidTransition)

	record := pairedSession(t, c)
	record, err = c.SubmitSenderTags(ctx, record.ID, "sender-1", []string{"water", "stone", "cold"})
	require.NoError(t, err)
	assert.Equal(t, session.StateSenderTagged, record.State)
	assert.Equal(t, record.CreatedAt.Add(time.Hour), record.DelayDeadline)

	// only the sender may tag
	_, err = c.SubmitSenderTags(ctx, record.ID, "receiver-1", []string{"x"})
	assert.ErrorIs(t, err, session.ErrNotParticipant)
}

func TestDelayIsEnforced(t *testing.T) {
	c, now := newTestCoordinator()
	ctx := context.Background()

	record := pairedSession(t, c)
	_, err := c.SubmitSenderTags(ctx, record.ID, "sender-1", []string{"water", "stone"})
	require.NoError(t, err)

	// polling before the deadline reports the remaining wait
	*now = now.Add(20 * time.Minute)
	status, err := c.CheckDelay(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StateDelayPending, status.State)
	assert.False(t, status.Ready)
	assert.Equal(t, 40*time.Minute, status.Remaining)

	// responding early is a protocol violation, not a shortcut
	_, err = c.SubmitReceiverResponse(ctx, record.ID, "receiver-1", []string{"water"})
	assert.ErrorIs(t, err, session.ErrDelayNotElapsed)

	// once the deadline passes the session becomes receivable
	*now = now.Add(41 * time.Minute)
	status, err = c.CheckDelay(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StateReadyToReceive, status.State)
	assert.True(t, status.Ready)
	assert.Zero(t, status.Remaining)
}

func TestSubmitReceiverResponse_ScoresOnce(t *testing.T) {
	c, now := newTestCoordinator()
	ctx := context.Background()

	record := pairedSession(t, c)
	_, err := c.SubmitSenderTags(ctx, record.ID, "sender-1", []string{"Water", "stone", "cold", "round"})
	require.NoError(t, err)

	*now = now.Add(2 * time.Hour)

	score, err := c.SubmitReceiverResponse(ctx, record.ID, "receiver-1", []string{"water", "warm", "ROUND", "glass"})
	require.NoError(t, err)
	assert.Equal(t, 2, score.Matches)
	assert.Equal(t, 4, score.Trials)
	assert.InDelta(t, 0.5, score.Score, 1e-12)
	assert.Positive(t, score.ZScore)

	// terminal state: a second submission is rejected
	_, err = c.SubmitReceiverResponse(ctx, record.ID, "receiver-1", []string{"water"})
	assert.ErrorIs(t, err, session.ErrAlreadyScored)

	got, err := c.store.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StateScored, got.State)
}

func TestSubmitReceiverResponse_OnlyReceiver(t *testing.T) {
	c, now := newTestCoordinator()
	ctx := context.Background()

	record := pairedSession(t, c)
	_, err := c.SubmitSenderTags(ctx, record.ID, "sender-1", []string{"water"})
	require.NoError(t, err)
	*now = now.Add(2 * time.Hour)

	_, err = c.SubmitReceiverResponse(ctx, record.ID, "sender-1", []string{"water"})
	assert.ErrorIs(t, err, session.ErrNotParticipant)
}

func TestEnqueueMatch_PairsCompatibleEntries(t *testing.T) {
	c, _ := newTestCoordinator()
	ctx := context.Background()

	res, err := c.EnqueueMatch(ctx, "sender-1", RoleSender, 30*time.Minute, 2*time.Hour)
	require.NoError(t, err)
	assert.False(t, res.Matched)

	res, err = c.EnqueueMatch(ctx, "receiver-1", RoleReceiver, time.Hour, 3*time.Hour)
	require.NoError(t, err)
	require.True(t, res.Matched)
	assert.Equal(t, "sender-1", res.Session.SenderID)
	assert.Equal(t, "receiver-1", res.Session.ReceiverID)
	// the stricter of the two minimum delays wins
	assert.Equal(t, time.Hour, res.Session.MinimumDelay)
}

func TestEnqueueMatch_IncompatibleEntriesStayQueued(t *testing.T) {
	c, _ := newTestCoordinator()
	ctx := context.Background()

	_, err := c.EnqueueMatch(ctx, "sender-1", RoleSender, 10*time.Minute, 20*time.Minute)
	require.NoError(t, err)

	// same role never pairs
	res, err := c.EnqueueMatch(ctx, "sender-2", RoleSender, 10*time.Minute, 20*time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Matched)

	// disjoint delay ranges never pair
	res, err = c.EnqueueMatch(ctx, "receiver-1", RoleReceiver, time.Hour, 2*time.Hour)
	require.NoError(t, err)
	assert.False(t, res.Matched)

	_, err = c.EnqueueMatch(ctx, "", RoleSender, time.Minute, time.Hour)
	assert.ErrorIs(t, err, ErrInvalidQueueEntry)

	_, err = c.EnqueueMatch(ctx, "p", Role("observer"), time.Minute, time.Hour)
	assert.ErrorIs(t, err, ErrInvalidQueueEntry)

	_, err = c.EnqueueMatch(ctx, "p", RoleSender, time.Hour, time.Minute)
	assert.ErrorIs(t, err, ErrInvalidQueueEntry)
}

func TestEnqueueMatch_NoDoubleClaimUnderConcurrency(t *testing.T) {
	c, _ := newTestCoordinator()
	ctx := context.Background()

	const pairs = 8
	var mu sync.Mutex
	var sessions []*session.Record

	var g errgroup.Group
	for i := 0; i < pairs; i++ {
		i := i
		g.Go(func() error {
			res, err := c.EnqueueMatch(ctx, fmt.Sprintf("sender-%d", i), RoleSender, time.Minute, time.Hour)
			if err != nil {
				return err
			}
			if res.Matched {
				mu.Lock()
				sessions = append(sessions, res.Session)
				mu.Unlock()
			}
			return nil
		})
		g.Go(func() error {
			res, err := c.EnqueueMatch(ctx, fmt.Sprintf("receiver-%d", i), RoleReceiver, time.Minute, time.Hour)
			if err != nil {
				return err
			}
			if res.Matched {
				mu.Lock()
				sessions = append(sessions, res.Session)
				mu.Unlock()
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	// with equal numbers of senders and receivers and compatible ranges,
	// the serialized claim empties the queue completely
	require.Len(t, sessions, pairs)

	seen := make(map[string]struct{})
	for _, s := range sessions {
		for _, pid := range []string{s.SenderID, s.ReceiverID} {
			_, dup := seen[pid]
			assert.False(t, dup, "participant %s claimed twice", pid)
			seen[pid] = struct{}{}
		}
	}
	assert.Len(t, seen, 2*pairs)
}

func TestScoreTags(t *testing.T) {
	score := scoreTags([]string{"a", "b", "c", "d"}, []string{"a", "b", "c", "d"})
	assert.Equal(t, 4, score.Matches)
	assert.Equal(t, 1.0, score.Score)

	score = scoreTags([]string{"a", "b"}, []string{"x", "y", "z"})
	assert.Equal(t, 0, score.Matches)
	assert.Equal(t, 3, score.Trials)
	assert.Equal(t, 0.0, score.Score)
}
