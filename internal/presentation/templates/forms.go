package templates

import (
	"net/url"
	"strconv"

	"github.com/TwistedArtistsGuild/tag-web/internal/domain/entities/forms"
)

const formTemplates = `
{{define "field"}}<div class="form-control{{if .Error}} has-error{{end}}">
  {{if eq .Kind "hidden"}}<input type="hidden" name="{{.Name}}" value="{{.Value}}">
  {{else if eq .Kind "checkbox"}}<label class="label cursor-pointer"><input type="checkbox" id="f-{{.Name}}" name="{{.Name}}" value="true"{{if .Checked}} checked{{end}}> {{.Label}}{{if .Required}} *{{end}}</label>
  {{else}}<label class="label" for="f-{{.Name}}">{{.Label}}{{if .Required}} *{{end}}</label>
  {{if eq .Kind "textarea"}}<textarea id="f-{{.Name}}" name="{{.Name}}" placeholder="{{.Placeholder}}"{{if .MaxLength}} maxlength="{{.MaxLength}}"{{end}}{{if .Required}} required{{end}}>{{.Value}}</textarea>
  {{else if eq .Kind "richtext"}}<textarea id="f-{{.Name}}" name="{{.Name}}" class="richtext" data-richtext placeholder="{{.Placeholder}}"{{if .Required}} required{{end}}>{{.Value}}</textarea>
  {{else if eq .Kind "select"}}<select id="f-{{.Name}}" name="{{.Name}}"{{if .Required}} required{{end}}>
    {{if not .Required}}<option value="">&mdash;</option>{{end}}
    {{range .Options}}<option value="{{.Value}}"{{if eq .Value $.Value}} selected{{end}}>{{.Label}}</option>
    {{end}}</select>
  {{else if eq .Kind "image"}}{{if .Value}}<img class="preview" src="{{.Value}}" alt="">{{end}}
  <input type="hidden" name="{{.Name}}" value="{{.Value}}">
  <input type="file" id="f-{{.Name}}" name="{{.Name}}__file" accept="image/*">
  {{else}}<input type="{{.InputType}}" id="f-{{.Name}}" name="{{.Name}}" value="{{.Value}}" placeholder="{{.Placeholder}}"{{if .Min}} min="{{.Min}}"{{end}}{{if .Max}} max="{{.Max}}"{{end}}{{if .MaxLength}} maxlength="{{.MaxLength}}"{{end}}{{if .Required}} required{{end}}>
  {{end}}{{end}}
  {{if .Help}}<p class="help">{{.Help}}</p>{{end}}
  {{if .Error}}<p class="error">{{.Label}} {{.Error}}</p>{{end}}
</div>{{end}}

{{define "form"}}<h1>{{.Title}}</h1>
{{if .Notice}}<div class="alert alert-success">{{.Notice}}</div>{{end}}
{{if .Errors}}<div class="alert alert-error" role="alert">Please correct the highlighted fields.</div>{{end}}
<form class="api-form" action="{{.Action}}" method="post" enctype="multipart/form-data">
  {{range .Fields}}{{template "field" .}}{{end}}
  <button type="submit" class="btn btn-primary">Save</button>
</form>{{end}}
`

type fieldView struct {
	forms.Field
	Value     string
	Checked   bool
	Error     string
	InputType string
	Min       string
	Max       string
}

var inputTypes = map[forms.Kind]string{
	forms.KindText:   "text",
	forms.KindNumber: "number",
	forms.KindEmail:  "email",
	forms.KindURL:    "url",
	forms.KindDate:   "date",
}

// FormProps is a metadata-driven form with the values and errors of the last
// submission.
type FormProps struct {
	Schema *forms.Schema
	ID     string
	Values map[string]string
	Errors forms.FieldErrors
	Notice string
}

// FormPage renders every field of props.Schema by kind. Values fall back to
// field defaults.
func FormPage(props FormProps) string {
	s := props.Schema
	action := "/forms/" + s.Name
	if props.ID != "" {
		action += "?id=" + url.QueryEscape(props.ID)
	}

	fields := make([]fieldView, 0, len(s.Fields))
	for _, f := range s.Fields {
		v, ok := props.Values[f.Name]
		if !ok {
			v = f.Default
		}
		fv := fieldView{
			Field:     f,
			Value:     v,
			Checked:   v == "true" || v == "on" || v == "1",
			Error:     props.Errors[f.Name],
			InputType: inputTypes[f.Kind],
		}
		if fv.InputType == "" {
			fv.InputType = "text"
		}
		if f.Min != nil {
			fv.Min = strconv.FormatFloat(*f.Min, 'f', -1, 64)
		}
		if f.Max != nil {
			fv.Max = strconv.FormatFloat(*f.Max, 'f', -1, 64)
		}
		fields = append(fields, fv)
	}

	title := s.Title
	if title == "" {
		title = s.Name
	}
	data := struct {
		Title  string
		Action string
		Notice string
		Errors forms.FieldErrors
		Fields []fieldView
	}{title, action, props.Notice, props.Errors, fields}
	return execute(views, "form", data)
}
