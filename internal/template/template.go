package template

import (
	"bytes"
	"embed"
	"fmt"
	"html"
	"strings"
	"text/template"
	"time"

	"github.com/smartbrew/outreach/internal/config"
	"github.com/smartbrew/outreach/internal/roster"
)

//go:embed templates/*.tmpl
var embeddedTemplates embed.FS

// EmailData contains all data available to email templates
type EmailData struct {
	// Recipient
	Name       string
	Email      string
	Salutation string // "Dear <name>," or "Dear Ma'am," when the name is unknown

	// Executive signing the message
	ExecutiveName   string
	ExecutiveNumber string

	// Organization
	OrgName         string
	OrgAbout        string
	OrgWebsite      string
	OrgRegistration string

	// Metadata
	Date     string
	Year     int
	Template string
}

// Email represents a rendered email ready to send
type Email struct {
	Subject  string
	Body     string
	HTMLBody string
}

// Engine handles email template rendering
type Engine struct {
	templates map[string]*template.Template
}

// NewEngine creates a new template engine
func NewEngine() (*Engine, error) {
	e := &Engine{
		templates: make(map[string]*template.Template),
	}

	templateNames := []string{"intro", "followup", "followup2", "pricing", "generic"}
	for _, name := range templateNames {
		content, err := embeddedTemplates.ReadFile("templates/" + name + ".tmpl")
		if err != nil {
			return nil, fmt.Errorf("failed to read embedded template %s: %w", name, err)
		}

		tmpl, err := template.New(name).Parse(string(content))
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}

		e.templates[name] = tmpl
	}

	return e, nil
}

// Render generates an email from a template
func (e *Engine) Render(templateName string, recipient roster.Recipient, exec roster.Executive, org config.Organization) (*Email, error) {
	tmpl, ok := e.templates[templateName]
	if !ok {
		return nil, fmt.Errorf("unknown template: %s", templateName)
	}

	now := time.Now()
	data := EmailData{
		Name:            recipient.Name,
		Email:           recipient.Email,
		Salutation:      Salutation(recipient.Name),
		ExecutiveName:   exec.Name,
		ExecutiveNumber: exec.Phone,
		OrgName:         org.Name,
		OrgAbout:        org.About,
		OrgWebsite:      org.Website,
		OrgRegistration: org.Registration,
		Date:            now.Format("January 2, 2006"),
		Year:            now.Year(),
		Template:        templateName,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render template: %w", err)
	}

	body := buf.String() + footer(recipient.Email, org)
	subject := e.getSubject(templateName, org.Name)

	return &Email{
		Subject:  subject,
		Body:     body,
		HTMLBody: HTMLWrap(subject, body),
	}, nil
}

// Salutation builds the greeting line. Recipient lists routinely carry
// "Unknown" as a placeholder name, so it gets the anonymous form too.
func Salutation(name string) string {
	if name == "" || strings.EqualFold(name, "unknown") {
		return "Dear Ma'am,"
	}
	return fmt.Sprintf("Dear %s,", name)
}

// footer appends the organization block and unsubscribe notice. A real
// postal identity and an opt-out path measurably lower spam scoring.
func footer(recipientEmail string, org config.Organization) string {
	var b strings.Builder
	b.WriteString("\n\n--\n")
	if org.Name != "" && org.About != "" {
		fmt.Fprintf(&b, "About %s:\n%s\n\n", org.Name, org.About)
	}
	if org.Website != "" {
		fmt.Fprintf(&b, "Kindly have a look at our website at %s, we will be more than happy to assist you or provide any further information if required.\n\n", org.Website)
	}
	if org.Registration != "" {
		fmt.Fprintf(&b, "Registration Number: %s\n\n", org.Registration)
	}
	fmt.Fprintf(&b, "This email was sent to %s.\nTo unsubscribe, please reply with \"Unsubscribe\" in the subject line.\n", recipientEmail)
	return b.String()
}

// HTMLWrap produces the HTML alternative of a plain-text body.
func HTMLWrap(subject, body string) string {
	escaped := strings.ReplaceAll(html.EscapeString(body), "\n", "<br>\n")
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>%s</title>
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto;">
    <div style="padding: 20px;">
        %s
    </div>
</body>
</html>`, html.EscapeString(subject), escaped)
}

func (e *Engine) getSubject(templateName, orgName string) string {
	switch templateName {
	case "intro":
		if orgName != "" {
			return fmt.Sprintf("Partnering with %s", orgName)
		}
		return "A Quick Introduction"
	case "followup":
		return "Re: Awaiting Response"
	case "followup2":
		return "Re: Still Confused"
	case "pricing":
		return "Re: Touchbase with You"
	default:
		return "Touching Base"
	}
}

// AvailableTemplates returns the list of available template names
func (e *Engine) AvailableTemplates() []string {
	templates := make([]string, 0, len(e.templates))
	for name := range e.templates {
		templates = append(templates, name)
	}
	return templates
}
