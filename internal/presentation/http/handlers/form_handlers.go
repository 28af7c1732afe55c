package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/TwistedArtistsGuild/tag-web/internal/application/services"
	"github.com/TwistedArtistsGuild/tag-web/internal/domain/entities/forms"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/observability/logging"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/observability/performance"
	"github.com/TwistedArtistsGuild/tag-web/internal/presentation/templates"
)

const formMemory = 8 << 20

// FormHandlers renders and submits the API's metadata-driven forms.
type FormHandlers struct {
	forms       *services.FormService
	renderer    *Renderer
	maxUpload   int64
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewFormHandlers creates form handlers with injected dependencies
func NewFormHandlers(formService *services.FormService, renderer *Renderer, maxUpload int64, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *FormHandlers {
	return &FormHandlers{
		forms:       formService,
		renderer:    renderer,
		maxUpload:   maxUpload,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

func (h *FormHandlers) render(c *gin.Context, status int, props templates.FormProps) {
	title := props.Schema.Title
	if title == "" {
		title = props.Schema.Name
	}
	h.renderer.Render(c, Page{
		Status: status,
		Nav:    "dashboard",
		SEO:    templates.SEO{Title: title, NoIndex: true},
		Body:   templates.FormPage(props),
	})
}

// Show renders GET /forms/:name[?id=].
func (h *FormHandlers) Show(c *gin.Context) {
	start := time.Now()
	name := c.Param("name")
	h.logger.Content().Debug("Received form page request", "method", c.Request.Method, "path", c.Request.URL.Path, "form", name)
	marker := h.perfTracker.StartOperation("form_page_request", name)
	defer marker.Complete()

	schema, err := h.forms.Schema(c.Request.Context(), name)
	if err != nil {
		marker.SetError(err)
		h.renderer.RenderError(c, "dashboard", err, "/dashboard")
		return
	}

	notice := ""
	if c.Query("saved") != "" {
		notice = "Saved."
	}
	h.render(c, http.StatusOK, templates.FormProps{Schema: schema, ID: c.Query("id"), Notice: notice})

	marker.SetSuccess(true)
	h.logger.Content().Info("Form page request completed", "form", name, "fields", len(schema.Fields), "duration", time.Since(start))
}

// Submit handles POST /forms/:name[?id=]. Rejected values re-render the form
// with field errors; success redirects back with a notice.
func (h *FormHandlers) Submit(c *gin.Context) {
	start := time.Now()
	name := c.Param("name")
	id := c.Query("id")
	h.logger.Content().Debug("Received form submission", "method", c.Request.Method, "path", c.Request.URL.Path, "form", name)
	marker := h.perfTracker.StartOperation("form_submit_request", name)
	defer marker.Complete()

	ctx := c.Request.Context()
	schema, err := h.forms.Schema(ctx, name)
	if err != nil {
		marker.SetError(err)
		h.renderer.RenderError(c, "dashboard", err, "/dashboard")
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload+formMemory)
	if err := c.Request.ParseMultipartForm(formMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		marker.SetError(err)
		h.render(c, http.StatusBadRequest, templates.FormProps{
			Schema: schema, ID: id,
			Errors: forms.FieldErrors{"": "the submission could not be read"},
		})
		return
	}

	values := make(map[string]string, len(schema.Fields))
	fileErrs := forms.FieldErrors{}
	for _, f := range schema.Fields {
		if _, ok := c.Request.PostForm[f.Name]; ok {
			values[f.Name] = c.Request.PostForm.Get(f.Name)
		}
		if f.Kind != forms.KindImage || c.Request.MultipartForm == nil {
			continue
		}
		headers := c.Request.MultipartForm.File[f.Name+"__file"]
		if len(headers) == 0 || headers[0].Size == 0 {
			continue
		}
		fileURL, err := h.forms.AttachFile(ctx, name, uploadFile(headers[0]))
		if err != nil {
			h.logger.Content().Warn("Form file rejected", "form", name, "field", f.Name, "error", err.Error())
			fileErrs[f.Name] = messageFor(err)
			continue
		}
		values[f.Name] = fileURL
	}
	if len(fileErrs) > 0 {
		marker.SetError(fileErrs)
		h.render(c, http.StatusBadRequest, templates.FormProps{Schema: schema, ID: id, Values: values, Errors: fileErrs})
		return
	}

	result, err := h.forms.Submit(ctx, name, id, values)
	if err != nil {
		marker.SetError(err)
		h.logger.Content().Error("Form submission failed", "form", name, "error", err.Error(), "duration", time.Since(start))
		h.renderer.RenderError(c, "dashboard", err, c.Request.URL.RequestURI())
		return
	}
	if len(result.Errors) > 0 {
		marker.SetError(result.Errors)
		h.logger.Content().Info("Form submission rejected", "form", name, "errors", len(result.Errors))
		h.render(c, http.StatusBadRequest, templates.FormProps{Schema: schema, ID: id, Values: values, Errors: result.Errors})
		return
	}

	marker.SetSuccess(true)
	h.logger.Content().Info("Form submission completed", "form", name, "duration", time.Since(start))
	h.logger.Perf().Info("Performance for FormSubmit request", "duration", marker.Duration, "form", name, "success", true)

	q := url.Values{"saved": {"1"}}
	if id != "" {
		q.Set("id", id)
	}
	c.Redirect(http.StatusSeeOther, "/forms/"+url.PathEscape(name)+"?"+q.Encode())
}

func uploadFile(fh *multipart.FileHeader) services.UploadFile {
	return services.UploadFile{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Open:        func() (io.ReadCloser, error) { return fh.Open() },
	}
}
