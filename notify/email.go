package notify

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"github.com/agrosite/agrosite/store"
)

type field struct {
	label string
	value string
}

// fieldsTable renders labelled values as a simple HTML email body.
func fieldsTable(heading string, fields []field, body string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<!DOCTYPE html><html><body style="font-family:sans-serif">`)
		b.WriteString(`<h2>` + templ.EscapeString(heading) + `</h2><table cellpadding="4">`)
		for _, f := range fields {
			if f.value == "" {
				continue
			}
			b.WriteString(`<tr><th align="left">` + templ.EscapeString(f.label) + `</th><td>` + templ.EscapeString(f.value) + `</td></tr>`)
		}
		b.WriteString(`</table>`)
		if body != "" {
			b.WriteString(`<p style="white-space:pre-wrap">` + templ.EscapeString(body) + `</p>`)
		}
		b.WriteString(`</body></html>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}

func plainText(heading string, fields []field, body string) string {
	var b strings.Builder
	b.WriteString(heading + "\n\n")
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", f.label, f.value)
	}
	if body != "" {
		b.WriteString("\n" + body + "\n")
	}
	return b.String()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefID(id *int64) string {
	if id == nil {
		return ""
	}
	return strconv.FormatInt(*id, 10)
}

func renderHTML(ctx context.Context, c templ.Component) (string, error) {
	var b strings.Builder
	if err := c.Render(ctx, &b); err != nil {
		return "", err
	}
	return b.String(), nil
}

// ContactEmail renders the operator notification for a contact message.
func ContactEmail(ctx context.Context, site string, m *store.ContactMessage) (Message, error) {
	heading := "New contact message"
	fields := []field{
		{"Name", m.Name},
		{"Email", m.Email},
		{"Phone", deref(m.Phone)},
		{"Subject", deref(m.Subject)},
		{"Product", derefID(m.ProductID)},
		{"Received", m.CreatedAt.Format("2006-01-02 15:04 MST")},
	}
	subject := fmt.Sprintf("[%s] %s from %s", site, heading, m.Name)
	if s := deref(m.Subject); s != "" {
		subject = fmt.Sprintf("[%s] %s", site, s)
	}
	html, err := renderHTML(ctx, fieldsTable(heading, fields, m.Message))
	if err != nil {
		return Message{}, err
	}
	return Message{
		ReplyTo: m.Email,
		Subject: subject,
		Text:    plainText(heading, fields, m.Message),
		HTML:    html,
	}, nil
}

// JobApplicationEmail renders the operator notification for a job application.
func JobApplicationEmail(ctx context.Context, site string, a *store.JobApplication) (Message, error) {
	heading := "New job application"
	fields := []field{
		{"Name", a.Name},
		{"Email", a.Email},
		{"Area of interest", a.AreaOfInterest},
		{"Resume", deref(a.ResumeURL)},
		{"Received", a.CreatedAt.Format("2006-01-02 15:04 MST")},
	}
	html, err := renderHTML(ctx, fieldsTable(heading, fields, deref(a.Message)))
	if err != nil {
		return Message{}, err
	}
	return Message{
		ReplyTo: a.Email,
		Subject: fmt.Sprintf("[%s] %s: %s (%s)", site, heading, a.Name, a.AreaOfInterest),
		Text:    plainText(heading, fields, deref(a.Message)),
		HTML:    html,
	}, nil
}
