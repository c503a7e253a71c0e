package host

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/GriffinCanCode/AdMonitor/internal/shared/types"
)

func TestMutedInfoUserMuted(t *testing.T) {
	assert.True(t, MutedInfo{Muted: true, Reason: ReasonUser}.UserMuted())
	assert.False(t, MutedInfo{Muted: true, Reason: ReasonExtension}.UserMuted())
	assert.False(t, MutedInfo{Muted: false, Reason: ReasonUser}.UserMuted())
}

func TestDecode(t *testing.T) {
	tab := &Tab{ID: 3}
	resp := &types.Response{Success: true}

	tests := []struct {
		name    string
		method  string
		reply   Reply
		wantTab *Tab
		wantRes *types.Response
		wantErr error
	}{
		{"tab found", MethodGetTab, Reply{Tab: tab}, tab, nil, nil},
		{"tab missing", MethodGetTab, Reply{}, nil, nil, ErrEntityNotFound},
		{"not found flag", MethodUpdate, Reply{NotFound: true}, nil, nil, ErrEntityNotFound},
		{"message answered", MethodSendMessage, Reply{Response: resp}, nil, resp, nil},
		{"message unanswered", MethodSendMessage, Reply{}, nil, nil, ErrNoResponse},
		{"update ok", MethodUpdate, Reply{}, nil, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotTab, gotRes, err := Decode(tt.method, &tt.reply)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.wantTab, gotTab)
			assert.Equal(t, tt.wantRes, gotRes)
		})
	}

	_, _, err := Decode(MethodUpdate, &Reply{Error: "boom"})
	assert.EqualError(t, err, "boom")
}
