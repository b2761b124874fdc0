package memory

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfolkeseth/sink-gcs/errs"
)

func TestPutGetRoundTrip(t *testing.T) {
	d := New()
	ctx := context.Background()

	info, err := d.Put(ctx, "a/b", strings.NewReader("payload"), -1, "text/plain")
	require.NoError(t, err)
	assert.Equal(t, int64(7), info.Size)
	assert.NotEmpty(t, info.ETag)

	obj, err := d.Get(ctx, "a/b")
	require.NoError(t, err)
	data, err := io.ReadAll(obj)
	require.NoError(t, err)
	require.NoError(t, obj.Close())

	assert.Equal(t, "payload", string(data))
	assert.Equal(t, "text/plain", obj.Info().ContentType)
	assert.Equal(t, info.ETag, obj.Info().ETag)
}

func TestGetStat_NotFound(t *testing.T) {
	d := New()
	ctx := context.Background()

	_, err := d.Get(ctx, "missing")
	assert.True(t, errs.IsNotFound(err))

	_, err = d.Stat(ctx, "missing")
	assert.True(t, errs.IsNotFound(err))
}

func TestList_Prefix(t *testing.T) {
	d := New()
	ctx := context.Background()

	for _, key := range []string{"dir/a", "dir/b", "other"} {
		_, err := d.Put(ctx, key, strings.NewReader("x"), -1, "text/plain")
		require.NoError(t, err)
	}

	infos, err := d.List(ctx, "dir/")
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "dir/a", infos[0].Key)
	assert.Equal(t, "dir/b", infos[1].Key)
}

func TestRemove_Idempotent(t *testing.T) {
	d := New()
	ctx := context.Background()

	_, err := d.Put(ctx, "k", strings.NewReader("x"), -1, "text/plain")
	require.NoError(t, err)

	assert.NoError(t, d.Remove(ctx, "k"))
	assert.NoError(t, d.Remove(ctx, "k"))
}
