package service

import (
	"fmt"

	edomain "github.com/medeez/gate/internal/email/domain"
)

func verificationMessage(to, code string) edomain.Message {
	return edomain.Message{
		To:       to,
		Subject:  "Medeez - Verification Code",
		TextBody: verificationText(code),
		HTMLBody: verificationHTML(code),
	}
}

func verificationText(code string) string {
	return fmt.Sprintf("Your Medeez verification code is: %s\n\n"+
		"This code will expire in 10 minutes.\n\n"+
		"If you didn't request this code, please ignore this email.", code)
}

func verificationHTML(code string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Medeez Verification Code</title>
</head>
<body style="font-family: 'Segoe UI', Tahoma, sans-serif; color: #333333; background-color: #f8fafc; margin: 0; padding: 0;">
  <div style="max-width: 600px; margin: 0 auto; background-color: #ffffff; border-radius: 8px; overflow: hidden;">
    <div style="background: linear-gradient(135deg, #2563eb 0%%, #1d4ed8 100%%); color: white; padding: 30px 20px; text-align: center;">
      <h1 style="margin: 0; font-size: 28px;">Medeez</h1>
      <p style="margin: 8px 0 0 0; opacity: 0.9;">Healthcare Practice Management</p>
    </div>
    <div style="padding: 40px 30px;">
      <h2 style="color: #1e293b;">Security Verification Required</h2>
      <p>We received a request to sign in to your Medeez account. To complete the sign-in process, please use the verification code below:</p>
      <div style="background-color: #f1f5f9; border: 2px solid #e2e8f0; border-radius: 8px; padding: 25px; text-align: center; margin: 30px 0;">
        <p style="margin: 0 0 10px 0; font-weight: 600; color: #475569;">Your verification code is:</p>
        <div style="font-family: 'Courier New', monospace; font-size: 32px; font-weight: bold; color: #2563eb; letter-spacing: 4px;">%s</div>
        <p style="margin: 10px 0 0 0; font-size: 14px; color: #64748b;">Enter this code in your browser to continue</p>
      </div>
      <div style="background-color: #fef3c7; border-left: 4px solid #f59e0b; padding: 15px; margin: 20px 0; border-radius: 4px;">
        <p style="margin: 0; color: #92400e; font-size: 14px;"><strong>Security Notice:</strong> This code will expire in 10 minutes. If you didn't request this verification, please ignore this email and ensure your account is secure.</p>
      </div>
      <p style="margin-top: 30px; font-size: 14px; color: #64748b;">For your security, never share this code with anyone. Medeez support will never ask for your verification codes.</p>
    </div>
    <div style="background-color: #f8fafc; padding: 20px 30px; border-top: 1px solid #e2e8f0; text-align: center; font-size: 14px; color: #64748b;">
      <p>&copy; 2024 Medeez. All rights reserved.</p>
      <p>This email was sent for account security verification.</p>
    </div>
  </div>
</body>
</html>`, code)
}
