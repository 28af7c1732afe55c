// Package templates renders the HTML bodies of guild emails.
package templates

import (
	"bytes"
	"fmt"
	"html/template"
	"log/slog"
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

type ButtonProps struct {
	Text            string
	URL             string
	BackgroundColor string
	TextColor       string
}

var (
	buttonTemplate = template.Must(template.New("emailButton").Parse(`
    <table role="presentation" border="0" cellpadding="0" cellspacing="0" class="btn btn-primary" style="border-collapse: separate; box-sizing: border-box; width: 100%; min-width: 100%;" width="100%">
      <tbody>
        <tr>
          <td align="left" style="font-family: Helvetica, sans-serif; font-size: 16px; vertical-align: top; padding-bottom: 16px;" valign="top">
            <table role="presentation" border="0" cellpadding="0" cellspacing="0" style="border-collapse: separate; width: auto;">
              <tbody>
                <tr>
                  <td style="border-radius: 4px; text-align: center; background-color: {{.BackgroundColor}};" valign="top" align="center" bgcolor="{{.BackgroundColor}}">
                    <a href="{{.URL}}" target="_blank" style="border: solid 2px {{.BackgroundColor}}; border-radius: 4px; display: inline-block; font-size: 16px; font-weight: bold; margin: 0; padding: 12px 24px; text-decoration: none; background-color: {{.BackgroundColor}}; color: {{.TextColor}};">{{.Text}}</a>
                  </td>
                </tr>
              </tbody>
            </table>
          </td>
        </tr>
      </tbody>
    </table>`))

	paragraphTemplate = template.Must(template.New("emailParagraph").Parse(`<p style="font-family: Helvetica, sans-serif; font-size: 16px; font-weight: normal; margin: 0; margin-bottom: 16px;">{{.}}</p>`))

	quoteTemplate = template.Must(template.New("emailQuote").Parse(`<blockquote style="margin: 0 0 16px 0; padding: 12px 16px; border-left: 4px solid #7c3aed; background: #f7f3ff; font-size: 15px;">{{.}}</blockquote>`))
)

// bodyPolicy keeps the formatting tags a forwarded message or rich-text
// submission may use and drops scripts, handlers and unsafe URLs.
var bodyPolicy = func() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowURLSchemes("http", "https", "mailto")
	p.RequireNoFollowOnLinks(true)
	p.AllowAttrs("style").OnElements("span", "p", "strong", "em", "b", "i", "td")
	return p
}()

// SanitizeHTML strips unsafe markup from untrusted HTML.
func SanitizeHTML(input string) string {
	return bodyPolicy.Sanitize(input)
}

func GetButton(props ButtonProps) string {
	backgroundColor := sanitizeColor(props.BackgroundColor, "#7c3aed")
	textColor := sanitizeColor(props.TextColor, "#ffffff")

	link := sanitizeEmailURL(props.URL)
	if link == "" {
		return GetParagraph(props.Text)
	}

	var buf bytes.Buffer
	err := buttonTemplate.Execute(&buf, map[string]any{
		"BackgroundColor": template.CSS(backgroundColor),
		"TextColor":       template.CSS(textColor),
		"URL":             template.URL(link),
		"Text":            props.Text,
	})
	if err != nil {
		slog.Error("Error executing email button template", "error", err)
		return ""
	}
	return buf.String()
}

// GetParagraph renders escaped text.
func GetParagraph(text string) string {
	var buf bytes.Buffer
	if err := paragraphTemplate.Execute(&buf, text); err != nil {
		slog.Error("Error executing email paragraph template", "error", err)
		return ""
	}
	return buf.String()
}

// GetParagraphWithHTML renders sanitized HTML.
func GetParagraphWithHTML(html string) string {
	var buf bytes.Buffer
	if err := paragraphTemplate.Execute(&buf, template.HTML(SanitizeHTML(html))); err != nil {
		slog.Error("Error executing email paragraph template", "error", err)
		return ""
	}
	return buf.String()
}

// GetQuote renders a block of quoted content; html is sanitized first.
func GetQuote(html string) string {
	var buf bytes.Buffer
	if err := quoteTemplate.Execute(&buf, template.HTML(SanitizeHTML(html))); err != nil {
		slog.Error("Error executing email quote template", "error", err)
		return ""
	}
	return buf.String()
}

// TextToHTML escapes plain text and keeps its line breaks.
func TextToHTML(text string) string {
	escaped := template.HTMLEscapeString(strings.TrimSpace(text))
	return strings.ReplaceAll(escaped, "\n", "<br>")
}

// SignInEmailProps feeds the magic link email.
type SignInEmailProps struct {
	SiteName  string
	SignInURL string
	ExpiresIn string
}

// GetSignInEmailContent is the body of the passwordless sign-in email.
func GetSignInEmailContent(props SignInEmailProps) string {
	var b strings.Builder
	b.WriteString(GetParagraph(fmt.Sprintf("Sign in to %s", props.SiteName)))
	b.WriteString(GetParagraph("Click the button below to finish signing in. The link works once."))
	b.WriteString(GetButton(ButtonProps{Text: "Sign in", URL: props.SignInURL}))
	if props.ExpiresIn != "" {
		b.WriteString(GetParagraph("This link expires in " + props.ExpiresIn + "."))
	}
	b.WriteString(GetParagraph("If you did not request this email you can safely ignore it."))
	return b.String()
}

// ForwardedEmailProps feeds the inbound-forward email.
type ForwardedEmailProps struct {
	From      string
	Recipient string
	Subject   string
	Text      string
	HTML      string
}

// GetForwardedEmailContent wraps an inbound message for the admin inbox.
func GetForwardedEmailContent(props ForwardedEmailProps) string {
	var b strings.Builder
	b.WriteString(GetParagraph("New message from " + props.From))
	if props.Recipient != "" {
		b.WriteString(GetParagraph("Sent to " + props.Recipient))
	}
	if props.Subject != "" {
		b.WriteString(GetParagraph("Subject: " + props.Subject))
	}
	body := props.HTML
	if strings.TrimSpace(body) == "" {
		body = TextToHTML(props.Text)
	}
	b.WriteString(GetQuote(body))
	b.WriteString(GetParagraph("Reply to this email to answer the sender directly."))
	return b.String()
}

func sanitizeEmailURL(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	scheme := strings.ToLower(parsedURL.Scheme)
	if scheme != "http" && scheme != "https" && scheme != "mailto" {
		return ""
	}
	return parsedURL.String()
}

func sanitizeColor(color, fallback string) string {
	color = strings.TrimSpace(color)
	if !strings.HasPrefix(color, "#") {
		return fallback
	}
	hex := color[1:]
	if len(hex) != 3 && len(hex) != 6 {
		return fallback
	}
	for _, char := range hex {
		if !((char >= '0' && char <= '9') || (char >= 'a' && char <= 'f') || (char >= 'A' && char <= 'F')) {
			return fallback
		}
	}
	return color
}
