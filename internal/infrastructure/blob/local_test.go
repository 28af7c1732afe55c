package blob

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanName(t *testing.T) {
	cases := map[string]string{
		"a.png":              "a.png",
		"/folder//a.png":     "folder/a.png",
		`folder\sub\a.png`:   "folder/sub/a.png",
		"./folder/./a.png":   "folder/a.png",
		" spaced/name.jpg  ": "spaced/name.jpg",
	}
	for in, want := range cases {
		got, err := CleanName(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"", "/", "../etc/passwd", "a/../../b"} {
		_, err := CleanName(bad)
		assert.ErrorIs(t, err, ErrInvalidName, bad)
	}
}

func TestValidContainer(t *testing.T) {
	assert.True(t, ValidContainer("artwork"))
	assert.True(t, ValidContainer("guild-uploads-2"))
	assert.False(t, ValidContainer("ab"))
	assert.False(t, ValidContainer("Artwork"))
	assert.False(t, ValidContainer("double--dash"))
	assert.False(t, ValidContainer("../up"))
}

func TestLocalRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	l := NewLocal(dir, "/media")

	names, err := l.ListContainers(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)

	obj, err := l.Put(ctx, "artwork", "folder/my file.png", strings.NewReader("pixels"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "folder/my file.png", obj.Name)
	assert.Equal(t, "/media/artwork/folder/my%20file.png", obj.URL)
	assert.EqualValues(t, 6, obj.Size)

	data, err := os.ReadFile(filepath.Join(dir, "artwork", "folder", "my file.png"))
	require.NoError(t, err)
	assert.Equal(t, "pixels", string(data))

	names, err = l.ListContainers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"artwork"}, names)

	objects, err := l.List(ctx, "artwork")
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, "folder/my file.png", objects[0].Name)
	assert.Equal(t, "image/png", objects[0].ContentType)

	require.NoError(t, l.Delete(ctx, "artwork", "folder/my file.png"))
	require.NoError(t, l.Delete(ctx, "artwork", "folder/my file.png"), "deleting twice is fine")

	_, err = l.List(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = l.Put(ctx, "BAD", "a.png", strings.NewReader("x"), "")
	assert.ErrorIs(t, err, ErrInvalidContainer)
	_, err = l.Put(ctx, "artwork", "../escape.png", strings.NewReader("x"), "")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestJoinURL(t *testing.T) {
	assert.Equal(t, "https://acct.blob.core.windows.net/art/a%23b/c.png",
		joinURL("https://acct.blob.core.windows.net/", "art", "a#b/c.png"))
}
