package mail

import (
	"bytes"
	htmltemplate "html/template"
	"math"
	texttemplate "text/template"
	"time"
)

const otpSubject = "Your Watchlist verification code"

var otpText = texttemplate.Must(texttemplate.New("otp.txt").Parse(
	`Your verification code is {{.Code}}.

It expires in {{.Minutes}} minutes. If you did not request it, ignore this e-mail.
`))

var otpHTML = htmltemplate.Must(htmltemplate.New("otp.html").Parse(
	`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif">
<p>Your verification code is</p>
<p style="font-size: 24px; letter-spacing: 4px"><strong>{{.Code}}</strong></p>
<p>It expires in {{.Minutes}} minutes. If you did not request it, ignore this e-mail.</p>
</body>
</html>
`))

type otpData struct {
	Code    string
	Minutes int
}

// RenderOTP builds the message carrying an OTP code valid for ttl.
func RenderOTP(to, code string, ttl time.Duration) (Message, error) {
	data := otpData{Code: code, Minutes: int(math.Ceil(ttl.Minutes()))}

	var text, html bytes.Buffer
	if err := otpText.Execute(&text, data); err != nil {
		return Message{}, err
	}
	if err := otpHTML.Execute(&html, data); err != nil {
		return Message{}, err
	}

	return Message{To: to, Subject: otpSubject, Text: text.String(), HTML: html.String()}, nil
}
