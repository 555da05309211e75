package mailer

import (
	"fmt"
	"html/template"
	"strings"
	"time"
)

const activationSubject = "Verify Your Email Address for Account Activation"

var activationTemplate = template.Must(template.New("activation").Parse(`
<div style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
  <p>Thank you for registering with us. To complete your account creation, please verify your email address using the
    One-Time Password (OTP) provided below.</p>
  <div style="background-color: #f2f2f2; padding: 10px; margin: 10px 0; border-radius: 5px; text-align: center;">
    <p style="font-size: 18px; font-weight: bold;">Your OTP is:</p>
    <p style="font-size: 34px; font-weight: bold; color: #FF5722; margin-top:-10px">{{.OTP}}</p>
  </div>
  <p>This OTP is valid for {{.Minutes}} minutes. Please enter it on the verification page to activate your account.</p>
  <p>If you did not request this, please ignore this email.</p>
  <p>Best regards,</p>
  <p>The Userval Team</p>
  <hr>
  <p style="font-size: 12px; color: #888;">If you have any questions, feel free to contact our support team.</p>
</div>
`))

// ActivationEmail renders the verification message for the given address.
// The stated validity matches the enforced OTP expiry window.
func ActivationEmail(to, otp string, validity time.Duration) (Email, error) {
	var b strings.Builder
	data := struct {
		OTP     string
		Minutes int
	}{
		OTP:     otp,
		Minutes: int(validity.Minutes()),
	}
	if err := activationTemplate.Execute(&b, data); err != nil {
		return Email{}, fmt.Errorf("render activation email: %w", err)
	}
	return Email{To: to, Subject: activationSubject, HTML: b.String()}, nil
}
