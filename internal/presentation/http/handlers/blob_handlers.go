package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/TwistedArtistsGuild/tag-web/internal/application/services"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/observability/logging"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/observability/performance"
)

// uploadMemory is the in-memory part of a multipart upload; the rest spills
// to temp files.
const uploadMemory = 32 << 20

// BlobHandlers lists and uploads stored files.
type BlobHandlers struct {
	blobs       *services.BlobService
	maxUpload   int64
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewBlobHandlers creates blob handlers with injected dependencies
func NewBlobHandlers(blobs *services.BlobService, maxUpload int64, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *BlobHandlers {
	return &BlobHandlers{blobs: blobs, maxUpload: maxUpload, logger: logger, perfTracker: perfTracker}
}

// GetContainers handles GET /api/blob/containers.
func (h *BlobHandlers) GetContainers(c *gin.Context) {
	h.logger.Storage().Debug("Received list containers request", "method", c.Request.Method, "path", c.Request.URL.Path)
	marker := h.perfTracker.StartOperation("list_containers_request", "storage")
	defer marker.Complete()

	containers, err := h.blobs.ListContainers(c.Request.Context())
	if err != nil {
		marker.SetError(err)
		abortWithErr(c, err)
		return
	}
	marker.SetSuccess(true)
	c.JSON(http.StatusOK, gin.H{"containers": containers})
}

// GetBlobs handles GET /api/blob/containers/:container.
func (h *BlobHandlers) GetBlobs(c *gin.Context) {
	container := c.Param("container")
	h.logger.Storage().Debug("Received list blobs request", "method", c.Request.Method, "path", c.Request.URL.Path, "container", container)
	marker := h.perfTracker.StartOperation("list_blobs_request", container)
	defer marker.Complete()

	objects, err := h.blobs.List(c.Request.Context(), container)
	if err != nil {
		marker.SetError(err)
		abortWithErr(c, err)
		return
	}
	marker.SetSuccess(true)
	c.JSON(http.StatusOK, gin.H{"container": container, "blobs": objects, "count": len(objects)})
}

// PostUpload handles POST /api/blob/upload: multipart container, folder and
// files[].
func (h *BlobHandlers) PostUpload(c *gin.Context) {
	start := time.Now()
	h.logger.Storage().Debug("Received upload request", "method", c.Request.Method, "path", c.Request.URL.Path)
	marker := h.perfTracker.StartOperation("upload_request", "storage")
	defer marker.Complete()

	form, err := c.MultipartForm()
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "expected a multipart form")
		return
	}
	headers := form.File["files[]"]
	if len(headers) == 0 {
		headers = form.File["files"]
	}
	if len(headers) == 0 {
		abortWithError(c, http.StatusBadRequest, "no files were uploaded")
		return
	}

	files := make([]services.UploadFile, 0, len(headers))
	for _, fh := range headers {
		files = append(files, uploadFile(fh))
	}

	uploaded, err := h.blobs.Upload(c.Request.Context(), c.PostForm("container"), c.PostForm("folder"), files)
	if err != nil {
		marker.SetError(err)
		h.logger.Storage().Warn("Upload request failed", "files", len(files), "error", err.Error(), "duration", time.Since(start))
		abortWithErr(c, err)
		return
	}

	h.logger.Storage().Info("Upload request completed", "files", len(uploaded), "duration", time.Since(start))
	marker.SetSuccess(true)
	h.logger.Perf().Info("Performance for PostUpload request", "duration", marker.Duration, "files", len(uploaded), "success", true)
	c.JSON(http.StatusOK, gin.H{"files": uploaded})
}

// LimitUploads caps request bodies at the per-file limit times count plus
// form overhead, before gin parses them.
func (h *BlobHandlers) LimitUploads(maxFiles int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload*maxFiles+uploadMemory)
		c.Next()
	}
}
