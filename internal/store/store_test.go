package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calagent/internal/model"
)

func tempCalendar(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "calendar.json")
}

func TestOpenMissingFileIsEmpty(t *testing.T) {
	st, err := Open(tempCalendar(t))
	require.NoError(t, err)
	assert.Equal(t, 0, st.Len())
	assert.Empty(t, st.Events())
}

func TestOpenRejectsMalformedFile(t *testing.T) {
	path := tempCalendar(t)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := Open(path)
	assert.Error(t, err)
}

func TestRoundTripPreservesOrder(t *testing.T) {
	path := tempCalendar(t)
	st, err := Open(path)
	require.NoError(t, err)

	events := []model.Event{
		{Title: "standup", Date: "2024-04-15", Time: "09:30"},
		{Title: "lunch", Date: "2024-04-15", Time: "12:00", Description: "with mia"},
		{Title: "standup", Date: "2024-04-16", Time: "09:30"},
	}
	for _, ev := range events {
		require.NoError(t, st.Add(ev))
	}

	reloaded, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, events, reloaded.Events())
}

func TestAddValidation(t *testing.T) {
	tests := []struct {
		name    string
		event   model.Event
		wantErr bool
	}{
		{
			name:  "complete event",
			event: model.Event{Title: "review", Date: "2024-04-20", Time: "14:00"},
		},
		{
			name:    "missing title",
			event:   model.Event{Date: "2024-04-20", Time: "14:00"},
			wantErr: true,
		},
		{
			name:    "missing date",
			event:   model.Event{Title: "review", Time: "14:00"},
			wantErr: true,
		},
		{
			name:    "missing time",
			event:   model.Event{Title: "review", Date: "2024-04-20"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := Open(tempCalendar(t))
			require.NoError(t, err)

			err = st.Add(tt.event)
			if tt.wantErr {
				assert.ErrorIs(t, err, model.ErrInvalidEvent)
				assert.Equal(t, 0, st.Len(), "failed add must not mutate the store")
				return
			}
			require.NoError(t, err)
			assert.Contains(t, st.EventsOn(tt.event.Date), tt.event)
		})
	}
}

func TestAddValidationDoesNotTouchFile(t *testing.T) {
	path := tempCalendar(t)
	st, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, st.Add(model.Event{Title: "keep", Date: "2024-01-01", Time: "10:00"}))

	require.Error(t, st.Add(model.Event{Title: "broken"}))

	reloaded, err := Open(path)
	require.NoError(t, err)
	require.Equal(t, 1, reloaded.Len())
	assert.Equal(t, "keep", reloaded.Events()[0].Title)
}

func TestRemove(t *testing.T) {
	st, err := Open(tempCalendar(t))
	require.NoError(t, err)

	// Duplicate titles are allowed; remove deletes all exact matches.
	require.NoError(t, st.Add(model.Event{Title: "sync", Date: "2024-04-15", Time: "10:00"}))
	require.NoError(t, st.Add(model.Event{Title: "sync", Date: "2024-04-16", Time: "10:00"}))
	require.NoError(t, st.Add(model.Event{Title: "Sync", Date: "2024-04-15", Time: "11:00"}))

	n, err := st.Remove("sync")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Matching is case-sensitive, so "Sync" survives.
	require.Equal(t, 1, st.Len())
	assert.Equal(t, "Sync", st.Events()[0].Title)

	// Removing an absent title is not an error.
	n, err = st.Remove("no such event")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestEventsOnFiltersByExactDate(t *testing.T) {
	st, err := Open(tempCalendar(t))
	require.NoError(t, err)

	require.NoError(t, st.Add(model.Event{Title: "a", Date: "2024-04-15", Time: "08:00"}))
	require.NoError(t, st.Add(model.Event{Title: "b", Date: "2024-04-16", Time: "08:00"}))
	require.NoError(t, st.Add(model.Event{Title: "c", Date: "2024-04-15", Time: "23:00"}))

	got := st.EventsOn("2024-04-15")
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Title)
	assert.Equal(t, "c", got[1].Title)

	assert.Empty(t, st.EventsOn("2024-04-17"))
	// String equality only; differently formatted dates do not match.
	assert.Empty(t, st.EventsOn("2024-4-15"))
}

func TestConcurrentAddAndRead(t *testing.T) {
	st, err := Open(tempCalendar(t))
	require.NoError(t, err)

	// The store is shared between request goroutines and the reminder
	// loop; writers and readers must be safe to run together. Run with
	// -race to catch regressions.
	const (
		writers       = 4
		addsPerWriter = 25
	)

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < addsPerWriter; i++ {
				ev := model.Event{
					Title: fmt.Sprintf("writer-%d-%d", w, i),
					Date:  "2024-04-15",
					Time:  "10:00",
				}
				assert.NoError(t, st.Add(ev))
			}
		}(w)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			_ = st.EventsOn("2024-04-15")
			_ = st.Events()
			_ = st.Len()
		}
	}()

	wg.Wait()
	<-done

	assert.Equal(t, writers*addsPerWriter, st.Len())
	assert.Len(t, st.EventsOn("2024-04-15"), writers*addsPerWriter)
}

func TestConcurrentRemove(t *testing.T) {
	st, err := Open(tempCalendar(t))
	require.NoError(t, err)

	const n = 40
	for i := 0; i < n; i++ {
		require.NoError(t, st.Add(model.Event{Title: "dup", Date: "2024-04-15", Time: "10:00"}))
	}

	// Concurrent removers must see a consistent list; the total removed
	// across both goroutines is exactly the number of stored duplicates.
	counts := make(chan int, 2)
	for i := 0; i < 2; i++ {
		go func() {
			removed, rerr := st.Remove("dup")
			assert.NoError(t, rerr)
			counts <- removed
		}()
	}

	total := <-counts + <-counts
	assert.Equal(t, n, total)
	assert.Equal(t, 0, st.Len())
}

func TestTeamMeetingScenario(t *testing.T) {
	st, err := Open(tempCalendar(t))
	require.NoError(t, err)

	require.NoError(t, st.Add(model.Event{
		Title:       "Team Meeting",
		Date:        "2024-04-15",
		Time:        "10:00",
		Description: "Quarterly review",
	}))

	got := st.EventsOn("2024-04-15")
	require.Len(t, got, 1)
	assert.Equal(t, "Team Meeting", got[0].Title)
}
