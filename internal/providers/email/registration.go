package email

import (
	"bytes"
	"fmt"
	"html/template"
)

// RegistrationSubject is the subject line for registration link emails.
const RegistrationSubject = "Complete your Learn Sprout registration"

var registrationTmpl = template.Must(template.New("registration").Parse(`<!DOCTYPE html>
<html>
  <body style="font-family: sans-serif; color: #2d3a2e;">
    <h2>Welcome to Learn Sprout!</h2>
    <p>Thanks for your purchase. Your account is almost ready.</p>
    <p>
      <a href="{{.RegistrationURL}}"
         style="display: inline-block; padding: 12px 24px; background: #4caf50; color: #fff; text-decoration: none; border-radius: 6px;">
        Complete your registration
      </a>
    </p>
    <p>Or copy this link into your browser:</p>
    <p><a href="{{.RegistrationURL}}">{{.RegistrationURL}}</a></p>
    <p>This link can only be used once.</p>
  </body>
</html>
`))

// RenderRegistration renders the registration email body for the given link.
func RenderRegistration(registrationURL string) (string, error) {
	var body bytes.Buffer
	data := struct{ RegistrationURL string }{RegistrationURL: registrationURL}
	if err := registrationTmpl.Execute(&body, data); err != nil {
		return "", fmt.Errorf("render registration email: %w", err)
	}
	return body.String(), nil
}
