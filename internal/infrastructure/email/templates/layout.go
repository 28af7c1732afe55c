package templates

import (
	"bytes"
	"html/template"
	"log/slog"
)

type EmailLayoutProps struct {
	Title      string
	Preheader  string
	Content    string
	FooterText string
	SiteURL    string
}

type emailTemplateData struct {
	Title      string
	Preheader  string
	Content    template.HTML
	FooterText string
	SiteURL    string
}

var emailLayoutTemplate = template.Must(template.New("emailLayout").Parse(`<!doctype html>
<html lang="en">
  <head>
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <meta http-equiv="Content-Type" content="text/html; charset=UTF-8">
    <title>{{.Title}}</title>
    <style media="all" type="text/css">
      @media only screen and (max-width: 640px) {
        .main p, .main td, .main span { font-size: 16px !important; }
        .wrapper { padding: 8px !important; }
        .container { padding: 0 !important; padding-top: 8px !important; width: 100% !important; }
        .main { border-left-width: 0 !important; border-radius: 0 !important; border-right-width: 0 !important; }
      }
    </style>
  </head>
  <body style="font-family: Helvetica, sans-serif; font-size: 16px; line-height: 1.3; background-color: #f4f5f6; margin: 0; padding: 0;">
    <span class="preheader" style="color: transparent; display: none; height: 0; max-height: 0; max-width: 0; opacity: 0; overflow: hidden; visibility: hidden; width: 0;">{{.Preheader}}</span>
    <table role="presentation" border="0" cellpadding="0" cellspacing="0" class="body" style="border-collapse: separate; background-color: #f4f5f6; width: 100%;" width="100%" bgcolor="#f4f5f6">
      <tr>
        <td>&nbsp;</td>
        <td class="container" style="vertical-align: top; max-width: 600px; padding: 0; padding-top: 24px; width: 600px; margin: 0 auto;" width="600" valign="top">
          <div class="content" style="box-sizing: border-box; display: block; margin: 0 auto; max-width: 600px; padding: 0;">
            <table role="presentation" border="0" cellpadding="0" cellspacing="0" class="main" style="border-collapse: separate; background: #ffffff; border: 1px solid #eaebed; border-radius: 16px; width: 100%;" width="100%">
              <tr>
                <td class="wrapper" style="vertical-align: top; box-sizing: border-box; padding: 24px;" valign="top">
                  {{.Content}}
                </td>
              </tr>
            </table>
            <div class="footer" style="clear: both; padding-top: 24px; text-align: center; width: 100%;">
              <p style="color: #9a9ea6; font-size: 14px; text-align: center;">
                {{.FooterText}}<br>
                <a href="{{.SiteURL}}" style="color: #9a9ea6; text-decoration: underline;">{{.SiteURL}}</a>
              </p>
            </div>
          </div>
        </td>
        <td>&nbsp;</td>
      </tr>
    </table>
  </body>
</html>`))

// GetEmailLayout wraps content in the guild email shell. Content must
// already be safe HTML.
func GetEmailLayout(props EmailLayoutProps) string {
	data := emailTemplateData{
		Title:      props.Title,
		Preheader:  props.Preheader,
		Content:    template.HTML(props.Content),
		FooterText: props.FooterText,
		SiteURL:    props.SiteURL,
	}
	if data.Title == "" {
		data.Title = "Twisted Artists Guild"
	}
	if data.FooterText == "" {
		data.FooterText = "Twisted Artists Guild, a home for independent artists"
	}
	if data.SiteURL == "" {
		data.SiteURL = "https://twistedartistsguild.com"
	}

	var buf bytes.Buffer
	if err := emailLayoutTemplate.Execute(&buf, data); err != nil {
		slog.Error("Error executing email layout template", "error", err)
		return "<html><body>" + props.Content + "</body></html>"
	}
	return buf.String()
}
