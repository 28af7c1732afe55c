package forms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listingForm = `{
	"name": "listing",
	"title": "Edit listing",
	"apiUrl": "listings/{id}/",
	"method": "put",
	"fields": [
		{"name": "title", "type": "string", "required": true, "maxLength": 20},
		{"name": "price", "type": "decimal", "min": 0},
		{"name": "category", "type": "choice", "options": ["print", "sculpture"]},
		{"name": "featured", "type": "boolean"},
		{"name": "contact_email", "type": "email"},
		{"name": "size", "type": "select", "options": [{"value": 1, "label": "Small"}, {"value": 2}]}
	]
}`

func TestDecodeResolvesKinds(t *testing.T) {
	s, err := Decode([]byte(listingForm))
	require.NoError(t, err)

	assert.Equal(t, "PUT", s.Method)
	kinds := make([]Kind, len(s.Fields))
	for i, f := range s.Fields {
		kinds[i] = f.Kind
	}
	assert.Equal(t, []Kind{KindText, KindNumber, KindSelect, KindCheckbox, KindEmail, KindSelect}, kinds)
	assert.Equal(t, "Contact email", s.Fields[4].Label)
	assert.Equal(t, []Option{{Value: "1", Label: "Small"}, {Value: "2", Label: "2"}}, s.Fields[5].Options)
}

func TestDecodeRejectsBadMetadata(t *testing.T) {
	_, err := Decode([]byte(`{"apiUrl": "x/", "fields": [{"name": "a", "type": "hologram"}]}`))
	assert.ErrorIs(t, err, ErrUnknownKind)

	_, err = Decode([]byte(`{"fields": []}`))
	assert.Error(t, err)

	_, err = Decode([]byte(`{"apiUrl": "x/", "method": "DELETE"}`))
	assert.Error(t, err)

	_, err = Decode([]byte(`{"apiUrl": "x/", "fields": [{"name": "a", "type": "select"}]}`))
	assert.Error(t, err)

	_, err = Decode([]byte(`{"apiUrl": "x/", "fields": [{"name": "a", "type": "text"}, {"name": "a", "type": "text"}]}`))
	assert.Error(t, err)
}

func TestResolveURL(t *testing.T) {
	s := &Schema{Name: "listing", APIURL: "listings/{id}/"}
	got, err := s.ResolveURL("42")
	require.NoError(t, err)
	assert.Equal(t, "listings/42/", got)

	_, err = s.ResolveURL("")
	assert.Error(t, err)

	s.APIURL = "listings/"
	got, err = s.ResolveURL("")
	require.NoError(t, err)
	assert.Equal(t, "listings/", got)
}

func TestValidate(t *testing.T) {
	s, err := Decode([]byte(listingForm))
	require.NoError(t, err)

	payload, errs := s.Validate(map[string]string{
		"title":    "  Harbor at dusk ",
		"price":    "120.5",
		"category": "print",
		"featured": "on",
		"size":     "2",
	})
	require.Empty(t, errs)
	assert.Equal(t, map[string]any{
		"title":    "Harbor at dusk",
		"price":    120.5,
		"category": "print",
		"featured": true,
		"size":     "2",
	}, payload)

	_, errs = s.Validate(map[string]string{
		"price":         "-3",
		"category":      "painting",
		"contact_email": "not-an-address",
	})
	assert.Equal(t, FieldErrors{
		"title":         "is required",
		"price":         "must be at least 0",
		"category":      "is not one of the choices",
		"contact_email": "must be an email address",
	}, errs)
	assert.Contains(t, errs.Error(), "category: is not one of the choices")

	_, errs = s.Validate(map[string]string{"title": "this title is far too long to fit"})
	assert.Equal(t, "must be at most 20 characters", errs["title"])
}
