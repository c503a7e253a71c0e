// Package id provides ID generation for the backend.
//
// Two kinds of identifier are issued:
//   - CommandID: ULID correlating a bridge command with its reply. ULIDs
//     sort by issue time, so log lines for a tab read in order.
//   - ConnectionID: random UUID naming one browser bridge connection.
//
// Tab identifiers are owned by the browser and are not generated here.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// CommandID correlates a bridge command with its reply
type CommandID string

// ConnectionID identifies a browser bridge connection
type ConnectionID string

const (
	CommandPrefix    = "cmd"
	ConnectionPrefix = "conn"
)

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
	now       func() time.Time
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a new ULID generator with monotonic entropy, so IDs
// issued within the same millisecond still sort in issue order.
func NewGenerator() *Generator {
	return NewGeneratorWithEntropy(ulid.Monotonic(rand.Reader, 0), time.Now)
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source
// and clock. Useful for deterministic tests.
func NewGeneratorWithEntropy(entropy io.Reader, now func() time.Time) *Generator {
	return &Generator{entropy: entropy, now: now}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(g.now()), g.entropy)
}

// CommandID creates a prefixed command ID
func (g *Generator) CommandID() CommandID {
	return CommandID(fmt.Sprintf("%s_%s", CommandPrefix, g.Generate().String()))
}

// NewCommandID generates a command ID from the default generator
func NewCommandID() CommandID {
	return Default().CommandID()
}

// NewConnectionID generates a connection ID
func NewConnectionID() ConnectionID {
	return ConnectionID(fmt.Sprintf("%s_%s", ConnectionPrefix, uuid.NewString()))
}

func (id CommandID) String() string    { return string(id) }
func (id ConnectionID) String() string { return string(id) }

// Timestamp extracts the issue time from a command ID
func (id CommandID) Timestamp() (time.Time, error) {
	raw := strings.TrimPrefix(string(id), CommandPrefix+"_")
	parsed, err := ulid.Parse(raw)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}

// IsValid checks that a command ID carries the command prefix and a ULID
func (id CommandID) IsValid() bool {
	raw, ok := strings.CutPrefix(string(id), CommandPrefix+"_")
	if !ok {
		return false
	}
	_, err := ulid.Parse(raw)
	return err == nil
}
