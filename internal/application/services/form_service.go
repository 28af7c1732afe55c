package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/TwistedArtistsGuild/tag-web/internal/domain/entities/forms"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/caching/stores"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/media"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/observability/logging"
)

const pendingUpload = "/uploads/pending"

// FormSource loads form metadata and accepts submissions.
type FormSource interface {
	FormSchema(ctx context.Context, name string) (*forms.Schema, error)
	Submit(ctx context.Context, method, path string, payload map[string]any) (json.RawMessage, error)
}

// SubmitResult is the outcome of a form post. Errors is set when the values
// were rejected before anything was sent.
type SubmitResult struct {
	Schema   *forms.Schema
	Values   map[string]string
	Errors   forms.FieldErrors
	Response json.RawMessage
}

// FormService renders and submits the API's metadata-driven forms.
type FormService struct {
	api     FormSource
	schemas *stores.TTLStore[*forms.Schema]
	blobs   *BlobService
	policy  *bluemonday.Policy
	logger  *logging.ChanneledLogger
}

// NewFormService creates the form service. blobs may be nil, which rejects
// inline image uploads.
func NewFormService(source FormSource, schemas *stores.TTLStore[*forms.Schema], blobs *BlobService, logger *logging.ChanneledLogger) *FormService {
	return &FormService{
		api:     source,
		schemas: schemas,
		blobs:   blobs,
		policy:  bluemonday.UGCPolicy(),
		logger:  logger,
	}
}

// Schema returns the decoded metadata for name.
func (s *FormService) Schema(ctx context.Context, name string) (*forms.Schema, error) {
	if schema, ok := s.schemas.Get(name); ok {
		return schema, nil
	}
	start := time.Now()
	schema, err := s.api.FormSchema(ctx, name)
	if err != nil {
		s.logger.Content().Error("Form metadata load failed", "form", name, "error", err.Error())
		return nil, err
	}
	s.schemas.Set(name, schema)
	s.logger.Content().Debug("Form metadata loaded", "form", name, "fields", len(schema.Fields), "duration", time.Since(start))
	return schema, nil
}

// AttachFile stores a file posted for an image field and returns its URL.
func (s *FormService) AttachFile(ctx context.Context, formName string, file UploadFile) (string, error) {
	if s.blobs == nil {
		return "", errors.New("uploads are not configured")
	}
	uploaded, err := s.blobs.Upload(ctx, "", "forms/"+formName, []UploadFile{file})
	if err != nil {
		return "", err
	}
	return uploaded[0].URL, nil
}

// Submit validates values against the form, uploads inline images,
// sanitizes rich text and sends the payload to the form's endpoint. id
// fills an {id} placeholder for edit forms.
func (s *FormService) Submit(ctx context.Context, name, id string, values map[string]string) (*SubmitResult, error) {
	schema, err := s.Schema(ctx, name)
	if err != nil {
		return nil, err
	}
	result := &SubmitResult{Schema: schema, Values: values}

	// Inline images validate as links; the upload happens only once every
	// field passed.
	inline := map[string]string{}
	checked := make(map[string]string, len(values))
	for k, v := range values {
		checked[k] = v
	}
	for _, f := range schema.Fields {
		if f.Kind == forms.KindImage && media.IsDataURL(values[f.Name]) {
			inline[f.Name] = values[f.Name]
			checked[f.Name] = pendingUpload
		}
	}

	payload, fieldErrs := schema.Validate(checked)
	if len(fieldErrs) > 0 {
		result.Errors = fieldErrs
		return result, nil
	}

	for field, dataURL := range inline {
		if s.blobs == nil {
			result.Errors = forms.FieldErrors{field: "image uploads are not available"}
			return result, nil
		}
		uploaded, err := s.blobs.UploadDataURL(ctx, "forms/"+name, dataURL)
		if err != nil {
			var verr *ValidationError
			if errors.As(err, &verr) || errors.Is(err, ErrTooLarge) {
				result.Errors = forms.FieldErrors{field: err.Error()}
				return result, nil
			}
			return nil, fmt.Errorf("failed to upload %s: %w", field, err)
		}
		payload[field] = uploaded.URL
	}

	for _, f := range schema.Fields {
		if f.Kind == forms.KindRichText {
			if v, ok := payload[f.Name].(string); ok {
				payload[f.Name] = s.policy.Sanitize(v)
			}
		}
	}

	path, err := schema.ResolveURL(id)
	if err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}

	start := time.Now()
	resp, err := s.api.Submit(ctx, schema.Method, path, payload)
	if err != nil {
		s.logger.Content().Error("Form submission failed", "form", name, "path", path, "error", err.Error())
		return nil, err
	}
	result.Response = resp
	s.logger.Content().Info("Form submitted", "form", name, "method", schema.Method, "path", path, "duration", time.Since(start))
	return result, nil
}
