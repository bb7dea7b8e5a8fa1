package email

import (
	"bytes"
	"fmt"
	"text/template"
)

// CredentialsMessage is the content of a credentials notification.
type CredentialsMessage struct {
	ClinicName string
	LoginURL   string
	Username   string
	Password   string
	// Reset marks a temporary secret issued by a credential reset.
	Reset bool
}

var credentialsBody = template.Must(template.New("credentials").Parse(
	`{{if .Reset}}Your password has been reset.{{else}}Your clinic registration has been approved!{{end}}

Clinic: {{.ClinicName}}
Login URL: {{.LoginURL}}
Username: {{.Username}}
Password: {{.Password}}

You must change your password after first login.
`))

func (m CredentialsMessage) Subject() string {
	return fmt.Sprintf("Your %s Clinic Credentials", m.ClinicName)
}

func (m CredentialsMessage) Body() (string, error) {
	var buf bytes.Buffer
	if err := credentialsBody.Execute(&buf, m); err != nil {
		return "", fmt.Errorf("failed to render credentials email: %w", err)
	}
	return buf.String(), nil
}
