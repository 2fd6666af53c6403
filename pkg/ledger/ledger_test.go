package ledger

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igsaved/pkg/logger"
)

func TestOpenEmpty(t *testing.T) {
	dir := t.TempDir()

	l, err := Open(dir, logger.NewTestLogger())
	require.NoError(t, err)

	assert.Equal(t, 0, l.Len())
	assert.False(t, l.Contains("123"))
}

func TestOpenCreatesDataDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")

	_, err := Open(dir, logger.NewTestLogger())
	require.NoError(t, err)

	_, err = os.Stat(dir)
	assert.NoError(t, err)
}

func TestMarkDoneAndPersist(t *testing.T) {
	dir := t.TempDir()
	log := logger.NewTestLogger()

	l, err := Open(dir, log)
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Second)
	l.MarkDone("111", now)
	l.MarkDone("222", now)
	require.NoError(t, l.Persist())

	// A fresh open sees the same entries.
	reopened, err := Open(dir, log)
	require.NoError(t, err)
	assert.True(t, reopened.Contains("111"))
	assert.True(t, reopened.Contains("222"))
	assert.Equal(t, 2, reopened.Len())
}

func TestMarkDoneIdempotent(t *testing.T) {
	dir := t.TempDir()

	l, err := Open(dir, logger.NewTestLogger())
	require.NoError(t, err)

	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.MarkDone("111", first)
	l.MarkDone("111", first.Add(time.Hour))

	assert.Equal(t, 1, l.Len())
	require.NoError(t, l.Persist())

	// The original timestamp survives the duplicate mark.
	data, err := os.ReadFile(filepath.Join(dir, "downloaded.json"))
	require.NoError(t, err)

	var ff struct {
		Downloaded map[string]time.Time `json:"downloaded"`
	}
	require.NoError(t, json.Unmarshal(data, &ff))
	require.Len(t, ff.Downloaded, 1)
	assert.True(t, ff.Downloaded["111"].Equal(first))
}

func TestPersistSkipsCleanLedger(t *testing.T) {
	dir := t.TempDir()

	l, err := Open(dir, logger.NewTestLogger())
	require.NoError(t, err)

	require.NoError(t, l.Persist())
	_, err = os.Stat(filepath.Join(dir, "downloaded.json"))
	assert.True(t, os.IsNotExist(err), "clean ledger should not be written")
}

func TestPersistLeavesValidFile(t *testing.T) {
	dir := t.TempDir()

	l, err := Open(dir, logger.NewTestLogger())
	require.NoError(t, err)

	l.MarkDone("111", time.Now())
	require.NoError(t, l.Persist())

	data, err := os.ReadFile(filepath.Join(dir, "downloaded.json"))
	require.NoError(t, err)
	assert.True(t, json.Valid(data))

	// No temp file left behind.
	_, err = os.Stat(filepath.Join(dir, "downloaded.json.tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestOpenRejectsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "downloaded.json"), []byte("{not json"), 0644))

	_, err := Open(dir, logger.NewTestLogger())
	assert.Error(t, err)
}

func TestPKsSorted(t *testing.T) {
	dir := t.TempDir()

	l, err := Open(dir, logger.NewTestLogger())
	require.NoError(t, err)

	now := time.Now()
	l.MarkDone("30", now)
	l.MarkDone("10", now)
	l.MarkDone("20", now)

	assert.Equal(t, []string{"10", "20", "30"}, l.PKs())
}

func TestConcurrentMarkDone(t *testing.T) {
	dir := t.TempDir()

	l, err := Open(dir, logger.NewTestLogger())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			pk := string(rune('a' + n))
			l.MarkDone(pk, time.Now())
			l.Contains(pk)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, l.Len())
}
