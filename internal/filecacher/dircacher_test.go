package filecacher

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutThenGetRoundTrips(t *testing.T) {
	c, err := NewDirCacher(t.TempDir())
	require.NoError(t, err)

	digest, err := c.Put(strings.NewReader("hello sandbox"), "test blob")
	require.NoError(t, err)
	assert.Len(t, digest, 64)

	data, err := c.Get(digest)
	require.NoError(t, err)
	assert.Equal(t, "hello sandbox", string(data))
}

func TestPutIsContentAddressed(t *testing.T) {
	c, err := NewDirCacher(t.TempDir())
	require.NoError(t, err)

	d1, err := c.Put(strings.NewReader("same content"), "a")
	require.NoError(t, err)
	d2, err := c.Put(strings.NewReader("same content"), "b")
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
}

func TestGetToWriter(t *testing.T) {
	c, err := NewDirCacher(t.TempDir())
	require.NoError(t, err)
	digest, err := c.Put(strings.NewReader("streamed"), "")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, c.GetToWriter(digest, &buf))
	assert.Equal(t, "streamed", buf.String())
}

func TestGetMissingDigestErrors(t *testing.T) {
	c, err := NewDirCacher(t.TempDir())
	require.NoError(t, err)
	_, err = c.Get("0000000000000000000000000000000000000000000000000000000000000000")
	assert.Error(t, err)
}
