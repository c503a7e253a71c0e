package id

import (
	"bytes"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandID(t *testing.T) {
	cmd := NewCommandID()
	assert.True(t, strings.HasPrefix(cmd.String(), "cmd_"))
	assert.True(t, cmd.IsValid())

	assert.False(t, CommandID("nope").IsValid())
	assert.False(t, CommandID("cmd_not-a-ulid").IsValid())
}

func TestCommandIDTimestamp(t *testing.T) {
	at := time.UnixMilli(1_700_000_000_123)
	g := NewGeneratorWithEntropy(bytes.NewReader(make([]byte, 64)), func() time.Time { return at })

	ts, err := g.CommandID().Timestamp()
	require.NoError(t, err)
	assert.True(t, at.Equal(ts))

	_, err = CommandID("cmd_bad").Timestamp()
	assert.Error(t, err)
}

func TestCommandIDsSortInIssueOrder(t *testing.T) {
	g := NewGenerator()
	ids := make([]string, 100)
	for i := range ids {
		ids[i] = g.CommandID().String()
	}
	assert.True(t, sort.StringsAreSorted(ids))
}

func TestConcurrentCommandIDsAreUnique(t *testing.T) {
	const workers, perWorker = 8, 100

	var (
		mu   sync.Mutex
		seen = make(map[CommandID]struct{})
		wg   sync.WaitGroup
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				cmd := NewCommandID()
				mu.Lock()
				seen[cmd] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, workers*perWorker)
}

func TestConnectionID(t *testing.T) {
	a, b := NewConnectionID(), NewConnectionID()
	assert.True(t, strings.HasPrefix(a.String(), "conn_"))
	assert.NotEqual(t, a, b)
}
