package host

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AdMonitor/internal/shared/types"
)

type scripted struct {
	sent  []Command
	reply Reply
	err   error
}

func (s *scripted) Do(_ context.Context, cmd Command) (*Reply, error) {
	s.sent = append(s.sent, cmd)
	if s.err != nil {
		return nil, s.err
	}
	r := s.reply
	return &r, nil
}

func TestOverBuildsCommands(t *testing.T) {
	tr := &scripted{reply: Reply{
		Tab:      &Tab{ID: 5, MutedInfo: MutedInfo{Muted: true, Reason: ReasonUser}},
		Response: &types.Response{Success: true},
	}}
	bridge := Over(tr)
	ctx := context.Background()

	tab, err := bridge.GetTab(ctx, 5)
	require.NoError(t, err)
	assert.True(t, tab.MutedInfo.UserMuted())

	require.NoError(t, bridge.SetMuted(ctx, 5, false))

	resp, err := bridge.SendMessage(ctx, 5, types.Message{Task: types.TaskToggleDebug})
	require.NoError(t, err)
	assert.True(t, resp.Success)

	require.Len(t, tr.sent, 3)
	assert.Equal(t, MethodGetTab, tr.sent[0].Method)
	assert.Equal(t, MethodUpdate, tr.sent[1].Method)
	assert.False(t, *tr.sent[1].Muted)
	assert.Equal(t, MethodSendMessage, tr.sent[2].Method)
	assert.Equal(t, types.TaskToggleDebug, tr.sent[2].Message.Task)
}

func TestOverPropagatesFailures(t *testing.T) {
	boom := errors.New("socket closed")
	bridge := Over(&scripted{err: boom})

	_, err := bridge.GetTab(context.Background(), 1)
	assert.ErrorIs(t, err, boom)

	bridge = Over(&scripted{reply: Reply{NotFound: true}})
	assert.ErrorIs(t, bridge.SetMuted(context.Background(), 1, true), ErrEntityNotFound)

	_, err = Over(&scripted{}).SendMessage(context.Background(), 1, types.Message{Task: types.TaskLog})
	assert.ErrorIs(t, err, ErrNoResponse)
}
