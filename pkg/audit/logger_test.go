package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	event := NewEvent(EventUserCreated, "User created with single sign-on")
	assert.NotEmpty(t, event.ID)
	assert.False(t, event.Timestamp.IsZero())
	assert.Equal(t, EventUserCreated, event.Type)

	other := NewEvent(EventUserProfile, "profile")
	assert.NotEqual(t, event.ID, other.ID)
}

func TestFileLogger_AppendsJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "audit.log")
	logger, err := NewFileLogger(path)
	require.NoError(t, err)

	first := NewEvent(EventUserCreated, "User created with single sign-on")
	first.Username = "alice"
	first.OrgID = "org-1"
	require.NoError(t, logger.Log(context.Background(), first))

	second := NewEvent(EventUserProfile, "User profile viewed from single sign-on")
	require.NoError(t, logger.Log(context.Background(), second))
	require.NoError(t, logger.Close())

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var events []Event
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var e Event
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		events = append(events, e)
	}
	require.NoError(t, scanner.Err())

	require.Len(t, events, 2)
	assert.Equal(t, EventUserCreated, events[0].Type)
	assert.Equal(t, "alice", events[0].Username)
	assert.Equal(t, "org-1", events[0].OrgID)
	assert.Equal(t, EventUserProfile, events[1].Type)
}

func TestFileLogger_ReopenAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")

	logger, err := NewFileLogger(path)
	require.NoError(t, err)
	require.NoError(t, logger.Log(context.Background(), NewEvent(EventUserCreated, "first")))
	require.NoError(t, logger.Close())

	logger, err = NewFileLogger(path)
	require.NoError(t, err)
	require.NoError(t, logger.Log(context.Background(), NewEvent(EventUserCreated, "second")))
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "first")
	assert.Contains(t, string(data), "second")
}

type failingLogger struct {
	err error
}

func (f *failingLogger) Log(context.Context, *Event) error { return f.err }

func (f *failingLogger) Close() error { return f.err }

func TestMultiLogger_DeliversToAllSinks(t *testing.T) {
	a := NewMemoryLogger()
	b := NewMemoryLogger()
	failing := &failingLogger{err: errors.New("sink down")}
	multi := NewMultiLogger(a, failing, b)

	err := multi.Log(context.Background(), NewEvent(EventLoginRejected, "rejected"))
	assert.Error(t, err)

	// The failing sink does not stop delivery to the others.
	assert.Len(t, a.Events(), 1)
	assert.Len(t, b.Events(), 1)
}

func TestMemoryLogger_EventsReturnsCopy(t *testing.T) {
	m := NewMemoryLogger()
	require.NoError(t, m.Log(context.Background(), NewEvent(EventUserCreated, "one")))

	events := m.Events()
	require.Len(t, events, 1)
	events[0] = nil

	assert.NotNil(t, m.Events()[0])
}
