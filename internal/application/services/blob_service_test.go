package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/blob"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/media"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, x%h, color.RGBA{B: 180, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func memFile(name, contentType string, data []byte) UploadFile {
	return UploadFile{
		Filename:    name,
		ContentType: contentType,
		Size:        int64(len(data)),
		Open:        func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil },
	}
}

func newBlobs(t *testing.T, maxBytes int64) (*BlobService, string) {
	t.Helper()
	dir := t.TempDir()
	return NewBlobService(blob.NewLocal(dir, "/media"), media.NewImageProcessor(), maxBytes, "uploads", testLogger), dir
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "my-photo.png", SanitizeFilename("../../my photo.png"))
	assert.Equal(t, "evil.sh", SanitizeFilename(`C:\temp\evil.sh`))
	assert.Equal(t, "file", SanitizeFilename("..."))
	long := SanitizeFilename(strings.Repeat("a", 300) + ".jpeg")
	assert.Len(t, long, 120)
	assert.True(t, strings.HasSuffix(long, ".jpeg"))
}

func TestUploadImageWithThumbnail(t *testing.T) {
	svc, dir := newBlobs(t, 1<<20)
	ctx := context.Background()

	out, err := svc.Upload(ctx, "", "artists/7", []UploadFile{
		memFile("portrait.png", "image/png", testPNG(t, 900, 600)),
		memFile("notes.txt", "text/plain", []byte("hello")),
	})
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.True(t, strings.HasPrefix(out[0].URL, "/media/uploads/artists/7/"))
	assert.True(t, strings.HasSuffix(out[0].Name, "-portrait.png"))
	assert.True(t, strings.HasSuffix(out[0].ThumbnailURL, "-portrait-thumb.webp"))
	assert.Empty(t, out[1].ThumbnailURL)

	_, err = os.Stat(filepath.Join(dir, "uploads", filepath.FromSlash(media.ThumbnailName(out[0].Name))))
	assert.NoError(t, err)

	objects, err := svc.List(ctx, "uploads")
	require.NoError(t, err)
	assert.Len(t, objects, 3)

	containers, err := svc.ListContainers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"uploads"}, containers)
}

func TestUploadRejectsOversize(t *testing.T) {
	svc, dir := newBlobs(t, 10)
	big := memFile("big.txt", "text/plain", []byte("more than ten bytes"))
	_, err := svc.Upload(context.Background(), "", "", []UploadFile{memFile("ok.txt", "text/plain", []byte("ok")), big})
	assert.ErrorIs(t, err, ErrTooLarge)

	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries, "nothing is written when any file is too large")

	// An understated size is caught while reading.
	big.Size = 1
	_, err = svc.Upload(context.Background(), "", "", []UploadFile{big})
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestUploadValidatesInput(t *testing.T) {
	svc, _ := newBlobs(t, 1<<20)
	var verr *ValidationError

	_, err := svc.Upload(context.Background(), "Bad_Container", "", []UploadFile{memFile("a.txt", "", []byte("a"))})
	assert.ErrorAs(t, err, &verr)
	_, err = svc.Upload(context.Background(), "", "", nil)
	assert.ErrorAs(t, err, &verr)
	_, err = svc.List(context.Background(), "x")
	assert.ErrorAs(t, err, &verr)
}

func TestUploadDataURL(t *testing.T) {
	svc, _ := newBlobs(t, 1<<20)
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(testPNG(t, 20, 20))

	out, err := svc.UploadDataURL(context.Background(), "forms/profile", dataURL)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out.Name, "-image.png"))
	assert.NotEmpty(t, out.ThumbnailURL)

	_, err = svc.UploadDataURL(context.Background(), "", "data:text/plain,hi")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}
