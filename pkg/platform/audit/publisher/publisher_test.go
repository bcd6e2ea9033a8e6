package publisher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "securitypassport/pkg/domain"
	audit "securitypassport/pkg/platform/audit"
	"securitypassport/pkg/platform/audit/store/memory"
)

func exportEvent(tenantID id.TenantID) audit.Event {
	return audit.Event{
		TenantID:   tenantID,
		Action:     string(audit.ActionPassportExportZip),
		ObjectType: audit.ObjectTemplate,
		ObjectID:   "iso27001",
	}
}

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	tenantID := id.TenantID(uuid.New())
	require.NoError(t, pub.Emit(context.Background(), exportEvent(tenantID)))

	events, err := store.ListByTenant(context.Background(), tenantID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.ActionPassportExportZip), events[0].Action)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	tenantID := id.TenantID(uuid.New())
	for range 10 {
		require.NoError(t, pub.Emit(context.Background(), exportEvent(tenantID)))
	}
	pub.Close()

	events, err := store.ListByTenant(context.Background(), tenantID)
	require.NoError(t, err)
	assert.Len(t, events, 10, "all events should be drained on close")
}

func TestPublisher_AsyncKeepsEventsWhenRequestAlreadyEnded(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tenantID := id.TenantID(uuid.New())
	for range 50 {
		require.NoError(t, pub.Emit(ctx, exportEvent(tenantID)))
	}
	pub.Close()

	events, err := store.ListByTenant(context.Background(), tenantID)
	require.NoError(t, err)
	assert.Len(t, events, 50)
}

func TestPublisher_BufferFullNeverBlocks(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(1))
	defer pub.Close()

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := pub.Emit(context.Background(), exportEvent(id.TenantID(uuid.New())))
			if err != nil {
				assert.ErrorIs(t, err, ErrBufferFull)
			}
		}()
	}
	wg.Wait()
}

func TestPublisher_SetsTimestamp(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	tenantID := id.TenantID(uuid.New())
	before := time.Now()
	require.NoError(t, pub.Emit(context.Background(), exportEvent(tenantID)))
	after := time.Now()

	events, err := store.ListByTenant(context.Background(), tenantID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.False(t, events[0].Timestamp.Before(before))
	assert.False(t, events[0].Timestamp.After(after))
}

type failingStore struct{}

func (failingStore) Append(context.Context, audit.Event) error { return errors.New("db down") }

func TestPublisher_AsyncStoreFailureIsSwallowed(t *testing.T) {
	pub := NewPublisher(failingStore{}, WithAsyncBuffer(4))
	assert.NoError(t, pub.Emit(context.Background(), exportEvent(id.TenantID(uuid.New()))))
	pub.Close()
}

func TestFanout_ContinuesPastFailingSink(t *testing.T) {
	store := memory.NewInMemoryStore()
	tenantID := id.TenantID(uuid.New())

	err := audit.Fanout{failingStore{}, store}.Append(context.Background(), exportEvent(tenantID))
	require.Error(t, err)

	events, _ := store.ListByTenant(context.Background(), tenantID)
	assert.Len(t, events, 1)
}
