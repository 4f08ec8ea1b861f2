package ports

import (
	"context"
	"testing"
	"time"

	"github.com/newcast-health/intakeflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunCalendarContract runs a suite of tests to verify that a Calendar implementation
// adheres to the defined interface contract. The calendar must start empty.
func RunCalendarContract(t *testing.T, cal Calendar) {
	ctx := context.Background()
	day := time.Date(2031, time.March, 4, 0, 0, 0, 0, time.UTC)
	at := func(h, m int) time.Time { return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute) }

	t.Run("Empty Day", func(t *testing.T) {
		busy, err := cal.ListBusyIntervals(ctx, at(9, 0), at(17, 0))
		require.NoError(t, err)
		assert.Empty(t, busy)
	})

	t.Run("Create and List", func(t *testing.T) {
		id, err := cal.CreateEvent(ctx, domain.CalendarEvent{
			Summary:   "Appointment with Jane Doe",
			Start:     at(10, 0),
			End:       at(10, 30),
			TimeZone:  "UTC",
			Attendees: []string{"jane@example.com"},
		})
		require.NoError(t, err)
		assert.NotEmpty(t, id)

		busy, err := cal.ListBusyIntervals(ctx, at(9, 0), at(17, 0))
		require.NoError(t, err)
		require.Len(t, busy, 1)
		assert.True(t, busy[0].Start.Equal(at(10, 0)), "start mismatch: %v", busy[0].Start)
		assert.True(t, busy[0].End.Equal(at(10, 30)), "end mismatch: %v", busy[0].End)
	})

	t.Run("Range Excludes Touching Events", func(t *testing.T) {
		busy, err := cal.ListBusyIntervals(ctx, at(10, 30), at(12, 0))
		require.NoError(t, err)
		assert.Empty(t, busy)

		busy, err = cal.ListBusyIntervals(ctx, at(9, 0), at(10, 0))
		require.NoError(t, err)
		assert.Empty(t, busy)
	})

	t.Run("Other Day Not Listed", func(t *testing.T) {
		busy, err := cal.ListBusyIntervals(ctx, at(24+9, 0), at(24+17, 0))
		require.NoError(t, err)
		assert.Empty(t, busy)
	})

	t.Run("Ordered By Start", func(t *testing.T) {
		_, err := cal.CreateEvent(ctx, domain.CalendarEvent{Summary: "early", Start: at(9, 0), End: at(9, 30)})
		require.NoError(t, err)

		busy, err := cal.ListBusyIntervals(ctx, at(9, 0), at(17, 0))
		require.NoError(t, err)
		require.Len(t, busy, 2)
		assert.True(t, busy[0].Start.Before(busy[1].Start))
	})
}

// RunSlotLockerContract verifies mutual exclusion and release semantics of a SlotLocker.
func RunSlotLockerContract(t *testing.T, locker SlotLocker) {
	ctx := context.Background()
	key := "2031-03-04T10:00"

	t.Run("Exclusive", func(t *testing.T) {
		unlock, err := locker.Lock(ctx, key, 5*time.Second)
		require.NoError(t, err)

		waitCtx, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
		defer cancel()
		_, err = locker.Lock(waitCtx, key, 5*time.Second)
		assert.ErrorIs(t, err, context.DeadlineExceeded, "second holder must wait")

		require.NoError(t, unlock(ctx))
	})

	t.Run("Reacquire After Unlock", func(t *testing.T) {
		unlock, err := locker.Lock(ctx, key, 5*time.Second)
		require.NoError(t, err)
		require.NoError(t, unlock(ctx))

		unlock, err = locker.Lock(ctx, key, 5*time.Second)
		require.NoError(t, err)
		require.NoError(t, unlock(ctx))
	})

	t.Run("Independent Keys", func(t *testing.T) {
		a, err := locker.Lock(ctx, key, 5*time.Second)
		require.NoError(t, err)
		b, err := locker.Lock(ctx, key+"-other", 5*time.Second)
		require.NoError(t, err)
		require.NoError(t, b(ctx))
		require.NoError(t, a(ctx))
	})
}

// RunSessionArchiveContract verifies a SessionArchive implementation. The archive must start empty.
func RunSessionArchiveContract(t *testing.T, archive SessionArchive) {
	ctx := context.Background()
	sessionID := "contract-session"

	snapshot := domain.NewFlowContext()
	snapshot.CurrentNodeID = "verify"
	snapshot.Status = domain.StatusActive
	snapshot.History = []string{"collect_info", "verify"}
	snapshot.Messages = append(snapshot.Messages, domain.Message{Role: domain.RoleUser, Content: "hello"})
	snapshot.Facts[domain.FactPatientName] = "Jane Doe"

	t.Run("Load Missing", func(t *testing.T) {
		_, err := archive.Load(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Save and Load", func(t *testing.T) {
		require.NoError(t, archive.Save(ctx, sessionID, snapshot))

		loaded, err := archive.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, "verify", loaded.CurrentNodeID)
		assert.Equal(t, domain.StatusActive, loaded.Status)
		assert.Equal(t, []string{"collect_info", "verify"}, loaded.History)
		assert.Equal(t, snapshot.Messages, loaded.Messages)
		assert.Equal(t, "Jane Doe", loaded.Facts[domain.FactPatientName])
	})

	t.Run("Save Replaces", func(t *testing.T) {
		next := snapshot.Clone()
		next.Status = domain.StatusEnded
		require.NoError(t, archive.Save(ctx, sessionID, next))

		loaded, err := archive.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusEnded, loaded.Status)
	})

	t.Run("List", func(t *testing.T) {
		ids, err := archive.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, sessionID)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, archive.Delete(ctx, sessionID))
		_, err := archive.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)

		ids, err := archive.List(ctx)
		require.NoError(t, err)
		assert.NotContains(t, ids, sessionID)

		assert.NoError(t, archive.Delete(ctx, sessionID), "deleting twice is not an error")
	})
}
