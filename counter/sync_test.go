package counter

import (
	"context"
	"testing"
	"time"

	c "github.com/d0ngw/blogviews/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordPersist struct {
	*MemoryStore
	merged []Views
}

func (p *recordPersist) Merge(ctx context.Context, views Views) error {
	p.merged = append(p.merged, views.Clone())
	return p.MemoryStore.Merge(ctx, views)
}

func TestSyncOnce(t *testing.T) {
	ctx := context.Background()
	source := NewMemoryStore()
	persist := &recordPersist{MemoryStore: NewMemoryStore()}

	schedule, err := NewSyncSchedule("sync", source, persist, time.Minute)
	require.NoError(t, err)

	n, err := schedule.SyncOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	source.Incr(ctx, "a")
	source.Incr(ctx, "a")
	source.Incr(ctx, "b")
	n, err = schedule.SyncOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	source.Incr(ctx, "b")
	n, err = schedule.SyncOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []Views{{"a": 2, "b": 1}, {"b": 2}}, persist.merged)

	views, err := persist.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, Views{"a": 2, "b": 2}, views)
}

func TestSyncReplaceAll(t *testing.T) {
	ctx := context.Background()
	source := NewMemoryStore()
	persist := &recordPersist{MemoryStore: NewMemoryStore()}

	schedule, err := NewSyncSchedule("sync", source, persist, time.Minute)
	require.NoError(t, err)
	require.NoError(t, source.ReplaceAll(ctx, Views{"a": 40, "b": 3}))
	_, err = schedule.SyncOnce(ctx)
	require.NoError(t, err)

	require.NoError(t, schedule.ReplaceAll(ctx, Views{"a": 5, "b": 3}))
	n, err := schedule.SyncOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	// 替换后的增加需要同步
	source.Incr(ctx, "a")
	n, err = schedule.SyncOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, Views{"a": 6}, persist.merged[len(persist.merged)-1])

	assert.Error(t, schedule.ReplaceAll(ctx, Views{"a": -1}))
}

func TestSyncScheduleService(t *testing.T) {
	ctx := context.Background()
	source := NewMemoryStore()
	persist := NewMemoryStore()

	schedule, err := NewSyncSchedule("sync", source, persist, time.Hour)
	require.NoError(t, err)

	services := c.NewServices(schedule)
	require.True(t, services.Init())
	require.True(t, services.Start())

	source.Incr(ctx, "intro-to-go")
	require.True(t, services.Stop())

	views, err := persist.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, Views{"intro-to-go": 1}, views)
}

func TestNewSyncScheduleInvalid(t *testing.T) {
	_, err := NewSyncSchedule("sync", nil, NewMemoryStore(), time.Second)
	assert.Error(t, err)
	_, err = NewSyncSchedule("sync", NewMemoryStore(), NewMemoryStore(), 0)
	assert.Error(t, err)
}
