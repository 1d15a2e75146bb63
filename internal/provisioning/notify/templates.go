package notify

import (
	"bytes"
	"fmt"
	"text/template"
)

// Kind names a notification template.
type Kind string

const (
	KindAdminWelcome    Kind = "admin_welcome"
	KindCustomerWelcome Kind = "customer_welcome"
)

type welcomeData struct {
	FirstName    string
	CompanyName  string
	BusinessID   string
	Email        string
	Password     string
	Role         string
	TrialEnd     string
	LoginURL     string
	ExistingUser bool
}

type messageTemplate struct {
	subject *template.Template
	body    *template.Template
}

var templates = map[Kind]messageTemplate{
	KindAdminWelcome: {
		subject: template.Must(template.New("admin_subject").Parse(
			`Your company {{.CompanyName}} is ready`)),
		body: template.Must(template.New("admin_body").Parse(
			`Hello{{if .FirstName}} {{.FirstName}}{{end}},

{{.CompanyName}} has been created with company ID {{.BusinessID}}.
You are its administrator ({{.Role}}).
{{if .ExistingUser}}
Sign in with your existing password using {{.Email}}.
{{else}}
Email: {{.Email}}
Password: {{.Password}}
{{end}}
Your free trial runs until {{.TrialEnd}}.
{{if .LoginURL}}Sign in at {{.LoginURL}}
{{end}}`)),
	},
	KindCustomerWelcome: {
		subject: template.Must(template.New("customer_subject").Parse(
			`Your {{.CompanyName}} account`)),
		body: template.Must(template.New("customer_body").Parse(
			`Hello{{if .FirstName}} {{.FirstName}}{{end}},

An account has been created for you at {{.CompanyName}}.

Email: {{.Email}}
Password: {{.Password}}
{{if .LoginURL}}
Sign in at {{.LoginURL}}
{{end}}`)),
	},
}

// renderWelcome produces the message for kind addressed to data.Email.
func renderWelcome(kind Kind, data welcomeData) (Message, error) {
	tpl, ok := templates[kind]
	if !ok {
		return Message{}, fmt.Errorf("unknown notification kind %q", kind)
	}

	var subject, body bytes.Buffer
	if err := tpl.subject.Execute(&subject, data); err != nil {
		return Message{}, fmt.Errorf("render subject: %w", err)
	}
	if err := tpl.body.Execute(&body, data); err != nil {
		return Message{}, fmt.Errorf("render body: %w", err)
	}

	return Message{
		Kind:       kind,
		BusinessID: data.BusinessID,
		To:         data.Email,
		Subject:    subject.String(),
		Body:       body.String(),
	}, nil
}
