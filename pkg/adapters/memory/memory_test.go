package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/newcast-health/intakeflow/pkg/adapters/memory"
	"github.com/newcast-health/intakeflow/pkg/domain"
	"github.com/newcast-health/intakeflow/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalendar_Contract(t *testing.T) {
	ports.RunCalendarContract(t, memory.NewCalendar())
}

func TestLocker_Contract(t *testing.T) {
	ports.RunSlotLockerContract(t, memory.NewLocker())
}

func TestArchive_Contract(t *testing.T) {
	ports.RunSessionArchiveContract(t, memory.NewArchive())
}

func TestArchive_IsolatesCopies(t *testing.T) {
	a := memory.NewArchive()
	ctx := context.Background()
	fc := domain.NewFlowContext()
	fc.Facts["k"] = "v"
	require.NoError(t, a.Save(ctx, "s", fc))

	fc.Facts["k"] = "changed"
	loaded, err := a.Load(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, "v", loaded.Facts["k"])
}

func TestCalendar_FailureInjection(t *testing.T) {
	cal := memory.NewCalendar()
	ctx := context.Background()
	boom := errors.New("backend down")

	cal.FailList(boom)
	_, err := cal.ListBusyIntervals(ctx, time.Now(), time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, boom)

	cal.FailCreate(boom)
	_, err = cal.CreateEvent(ctx, domain.CalendarEvent{})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, cal.Events())

	list, create := cal.Calls()
	assert.Equal(t, 1, list)
	assert.Equal(t, 1, create)

	cal.FailList(nil)
	_, err = cal.ListBusyIntervals(ctx, time.Now(), time.Now().Add(time.Hour))
	assert.NoError(t, err)
}

func TestLoader_NewFromNodes(t *testing.T) {
	loader, err := memory.NewFromNodes("a", domain.Node{ID: "a"}, domain.Node{ID: "b"})
	require.NoError(t, err)

	flow, err := loader.LoadFlow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a", flow.InitialNode)
	assert.Len(t, flow.Nodes, 2)

	_, err = memory.NewFromNodes("a", domain.Node{})
	assert.Error(t, err)
	_, err = memory.NewFromNodes("a", domain.Node{ID: "a"}, domain.Node{ID: "a"})
	assert.Error(t, err)
}
