package storage_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/davazp/iredb/effects"
	"github.com/davazp/iredb/effects/log"
	"github.com/davazp/iredb/effects/storage"
	"github.com/davazp/iredb/serial"
	"github.com/davazp/iredb/store"
	"github.com/davazp/iredb/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *store.Store {
	t.Helper()
	b, err := store.NewFileBackend(t.TempDir())
	require.NoError(t, err)
	return store.New(b)
}

func withStorage(t *testing.T, numWorkers int) context.Context {
	t.Helper()
	ctx, endOfLogHandler := log.WithTestEffectHandler(context.Background())
	ctx, endOfStorageHandler := storage.WithEffectHandler(ctx, effects.NewEffectScopeConfig(8, numWorkers), newStore(t))
	t.Cleanup(func() {
		endOfStorageHandler()
		endOfLogHandler()
	})
	return ctx
}

func TestStorageEffect_StoreAndFetch(t *testing.T) {
	ctx := withStorage(t, 4)

	v := value.MustOf(map[string]any{"b": 2, "a": 1})
	key, err := storage.EffectStoreValue(ctx, v)
	require.NoError(t, err)
	assert.Equal(t, store.KeyOf([]byte(`{"a":1,"b":2}`), serial.TagJSON), key)

	got, err := storage.EffectFetchValue(ctx, key)
	require.NoError(t, err)
	assert.True(t, value.Equal(v, got))

	raw, err := storage.EffectGet(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1,"b":2}`, string(raw))
}

func TestStorageEffect_Errors(t *testing.T) {
	ctx := withStorage(t, 2)

	_, err := storage.EffectFetchValue(ctx, "abc")
	require.ErrorIs(t, err, store.ErrMalformedKey)

	_, err = storage.EffectGet(ctx, store.KeyOf([]byte("absent"), serial.TagBinary))
	require.ErrorIs(t, err, store.ErrNotFound)

	key, err := storage.EffectPut(ctx, []byte("<a/>"), "xml")
	require.NoError(t, err)
	_, err = storage.EffectFetchValue(ctx, key)
	require.ErrorIs(t, err, store.ErrUnsupportedType)
}

func TestStorageEffect_LinkAndResolve(t *testing.T) {
	ctx := withStorage(t, 4)

	in, err := storage.EffectStoreValue(ctx, value.MustOf("input"))
	require.NoError(t, err)
	out1, err := storage.EffectStoreValue(ctx, value.MustOf(1))
	require.NoError(t, err)
	out2, err := storage.EffectStoreValue(ctx, value.MustOf(2))
	require.NoError(t, err)

	from := store.IndirectionOf(in)
	_, err = storage.EffectResolve(ctx, from)
	require.ErrorIs(t, err, store.ErrNotFound)

	res, err := storage.EffectLink(ctx, from, out1)
	require.NoError(t, err)
	assert.Equal(t, storage.LinkResult{Recorded: out1, Inserted: true}, res)

	res, err = storage.EffectLink(ctx, from, out2)
	require.NoError(t, err)
	assert.Equal(t, storage.LinkResult{Recorded: out1, Inserted: false}, res)

	target, err := storage.EffectResolve(ctx, from)
	require.NoError(t, err)
	assert.Equal(t, out1, target)

	v, err := storage.EffectFetchValue(ctx, from)
	require.NoError(t, err)
	assert.True(t, value.Equal(value.MustOf(1), v))
}

func TestStorageEffect_ConcurrentInsertsOfOneKey(t *testing.T) {
	ctx := withStorage(t, 4)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		inserted int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := storage.EffectInsert(ctx, []byte("same"), serial.TagBinary)
			assert.NoError(t, err)
			if res.Inserted {
				mu.Lock()
				inserted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, inserted)
}

func TestStorageEffect_Source(t *testing.T) {
	ctx := context.Background()
	ctx, endOfStorageHandler := storage.WithEffectHandler(ctx, effects.NewEffectScopeConfig(8, 2), newStore(t))

	events, err := storage.EffectSource(ctx)
	require.NoError(t, err)

	in, err := storage.EffectStoreValue(ctx, value.MustOf("in"))
	require.NoError(t, err)
	out, err := storage.EffectStoreValue(ctx, value.MustOf("out"))
	require.NoError(t, err)
	_, err = storage.EffectLink(ctx, store.IndirectionOf(in), out)
	require.NoError(t, err)
	_, err = storage.EffectFetchValue(ctx, out) // reads are not published
	require.NoError(t, err)

	endOfStorageHandler()

	var got []storage.Event
	for ev := range events {
		got = append(got, ev)
	}
	require.Len(t, got, 3)

	assert.Equal(t, storage.OpPut, got[0].Op)
	assert.Equal(t, in, got[0].Key)
	assert.True(t, got[0].Inserted)

	assert.Equal(t, storage.OpLink, got[2].Op)
	assert.Equal(t, store.IndirectionOf(in), got[2].Key)
	assert.Equal(t, out, got[2].Target)
	assert.False(t, got[2].End().Before(got[2].Start()))
	assert.WithinDuration(t, time.Now(), got[2].End(), time.Minute)
}

func TestStorageEffect_CancelledContext(t *testing.T) {
	ctx := withStorage(t, 1)
	ctx, cancel := context.WithCancel(ctx)
	cancel()

	_, err := storage.EffectPut(ctx, []byte("x"), serial.TagBinary)
	require.ErrorIs(t, err, context.Canceled)
}

func TestStorageEffect_PanicsWithoutHandler(t *testing.T) {
	assert.Panics(t, func() {
		_, _ = storage.EffectGet(context.Background(), "abc-json")
	})
}

func TestPut_PartitionKeyWithoutConstructor(t *testing.T) {
	raw := []byte("partitioned")
	want := string(store.KeyOf(raw, serial.TagBinary))

	assert.Equal(t, want, storage.NewPut(raw, serial.TagBinary).PartitionKey())
	assert.Equal(t, want, storage.Put{Raw: raw, Tag: serial.TagBinary}.PartitionKey())
	assert.NotEqual(t,
		storage.Put{Raw: []byte("a"), Tag: serial.TagBinary}.PartitionKey(),
		storage.Put{Raw: []byte("b"), Tag: serial.TagBinary}.PartitionKey(),
	)
}

func TestEffectStoreValue_RejectsInvalidUTF8(t *testing.T) {
	ctx := withStorage(t, 2)

	_, err := storage.EffectStoreValue(ctx, value.NewStructured(value.String("\xff")))
	require.ErrorIs(t, err, value.ErrUnsupportedGoType)
}
