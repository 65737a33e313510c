package mail

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
)

type verificationData struct {
	Link string
}

type resetData struct {
	FirstName string
	Link      string
}

var (
	verificationText = texttemplate.Must(texttemplate.New("verification").Parse(
		`Welcome to CampusConnect!

Confirm your email address by opening the link below. It expires in one hour.

{{.Link}}

If you did not create an account, you can ignore this email.
`))

	verificationHTML = htmltemplate.Must(htmltemplate.New("verification").Parse(
		`<p>Welcome to CampusConnect!</p>
<p>Confirm your email address by clicking the button below. The link expires in one hour.</p>
<p><a href="{{.Link}}" style="padding:10px 16px;background:#d22030;color:#fff;text-decoration:none;border-radius:4px">Verify email</a></p>
<p>If you did not create an account, you can ignore this email.</p>
`))

	resetText = texttemplate.Must(texttemplate.New("reset").Parse(
		`Hi {{.FirstName}},

We received a request to reset your CampusConnect password. Open the link below to choose a new one. It expires in one hour and can be used once.

{{.Link}}

If you did not request a reset, you can ignore this email; your password stays the same.
`))

	resetHTML = htmltemplate.Must(htmltemplate.New("reset").Parse(
		`<p>Hi {{.FirstName}},</p>
<p>We received a request to reset your CampusConnect password. The link below expires in one hour and can be used once.</p>
<p><a href="{{.Link}}" style="padding:10px 16px;background:#d22030;color:#fff;text-decoration:none;border-radius:4px">Reset password</a></p>
<p>If you did not request a reset, you can ignore this email; your password stays the same.</p>
`))
)

func renderVerification(data verificationData) (string, string, error) {
	return render(verificationText, verificationHTML, data)
}

func renderPasswordReset(data resetData) (string, string, error) {
	return render(resetText, resetHTML, data)
}

func render(text *texttemplate.Template, html *htmltemplate.Template, data interface{}) (string, string, error) {
	var textBuf, htmlBuf bytes.Buffer
	if err := text.Execute(&textBuf, data); err != nil {
		return "", "", fmt.Errorf("render %s text: %w", text.Name(), err)
	}
	if err := html.Execute(&htmlBuf, data); err != nil {
		return "", "", fmt.Errorf("render %s html: %w", html.Name(), err)
	}
	return textBuf.String(), htmlBuf.String(), nil
}
