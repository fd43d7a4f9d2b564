package natskv

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/require"
)

type fakeEntry struct {
	jetstream.KeyValueEntry
	value []byte
}

func (e fakeEntry) Value() []byte { return e.value }

// fakeKV implements the subset of jetstream.KeyValue the cache uses.
type fakeKV struct {
	jetstream.KeyValue
	data map[string][]byte
}

func (f *fakeKV) Get(_ context.Context, key string) (jetstream.KeyValueEntry, error) {
	v, ok := f.data[key]
	if !ok {
		return nil, jetstream.ErrKeyNotFound
	}
	return fakeEntry{value: v}, nil
}

func (f *fakeKV) Put(_ context.Context, key string, value []byte) (uint64, error) {
	f.data[key] = value
	return uint64(len(f.data)), nil
}

func (f *fakeKV) Delete(_ context.Context, key string, _ ...jetstream.KVDeleteOpt) error {
	if _, ok := f.data[key]; !ok {
		return jetstream.ErrKeyNotFound
	}
	delete(f.data, key)
	return nil
}

func TestCache_RoundTripWithEncodedKeys(t *testing.T) {
	kv := &fakeKV{data: map[string][]byte{}}
	c := New(kv)
	ctx := context.Background()
	key := "news:newsapi:general:24h:world:1:30:climate+change%21"

	_, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.Set(ctx, key, []byte("payload"), time.Minute))
	for k := range kv.data {
		require.Regexp(t, `^[A-Za-z0-9_-]+$`, k)
	}

	val, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("payload"), val)

	require.NoError(t, c.Delete(ctx, key))
	require.NoError(t, c.Delete(ctx, key))
}
