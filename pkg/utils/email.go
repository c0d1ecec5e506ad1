package utils

import (
	"fmt"
	"log"
	"net/smtp"
	"os"
	"strings"
)

var (
	emailFrom     = os.Getenv("EMAIL_FROM")
	emailPassword = os.Getenv("EMAIL_PASSWORD")
	smtpHost      = os.Getenv("SMTP_HOST")
	smtpPort      = os.Getenv("SMTP_PORT")
	companyName   = "BuildLink Limited"
	baseURL       = os.Getenv("BASE_URL")
)

// Common header template for all emails
const emailHeader = `
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333; margin: 0; padding: 0;">
	<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
		<div style="text-align: center; margin-bottom: 30px; background-color: #f9f9f9; padding: 20px;">
			<h2 style="color: #F2994A; margin: 0;">BuildLink</h2>
		</div>
`

// Common footer template for all emails
const emailFooter = `
		<div style="text-align: center; margin-top: 20px; font-size: 12px; color: #666; border-top: 1px solid #eee; padding-top: 20px;">
			<p>This is an automated message, please do not reply to this email.</p>
			<p>© 2025 BuildLink Limited. All rights reserved.</p>
		</div>
	</div>
</body>
</html>
`

func sendEmail(to []string, subject, body string) error {
	if emailFrom == "" || emailPassword == "" || smtpHost == "" || smtpPort == "" {
		return fmt.Errorf("email configuration not set")
	}

	// Headers
	headers := make(map[string]string)
	headers["From"] = fmt.Sprintf("%s <%s>", companyName, emailFrom)
	headers["To"] = strings.Join(to, ",")
	headers["Subject"] = subject
	headers["MIME-Version"] = "1.0"
	headers["Content-Type"] = "text/html; charset=UTF-8"
	headers["X-Mailer"] = "BuildLink-Mailer"

	// Build message
	message := ""
	for key, value := range headers {
		message += fmt.Sprintf("%s: %s\r\n", key, value)
	}
	message += "\r\n" + body

	auth := smtp.PlainAuth("", emailFrom, emailPassword, smtpHost)

	err := smtp.SendMail(smtpHost+":"+smtpPort, auth, emailFrom, to, []byte(message))
	if err != nil {
		log.Printf("Failed to send email: %v", err)
		return err
	}

	log.Printf("Successfully sent email to recipients: %v", to)
	return nil
}

func SendEmailVerificationOTP(email, otp string) error {
	subject := "Verify Your Email - BuildLink"
	body := fmt.Sprintf(emailHeader+`
				<div style="background-color: #f9f9f9; padding: 20px; border-radius: 5px;">
					<h1 style="color: #2c3e50; text-align: center;">Verify Your Email</h1>
					<p>Hello,</p>
					<p>Thank you for signing up with BuildLink. Use the code below to verify your email address:</p>
					<div style="text-align: center; margin: 30px 0;">
						<span style="font-size: 32px; font-weight: bold; letter-spacing: 8px; color: #F2994A;">%s</span>
					</div>
					<p>This code expires in 15 minutes.</p>
					<p>Best regards,<br>The BuildLink Team</p>
				</div>`+emailFooter,
		otp)

	return sendEmail([]string{email}, subject, body)
}

func SendPasswordResetEmail(email, otp string) error {
	subject := "Password Reset Code - BuildLink"
	body := fmt.Sprintf(emailHeader+`
				<div style="background-color: #f9f9f9; padding: 20px; border-radius: 5px;">
					<h1 style="color: #2c3e50; text-align: center;">Password Reset</h1>
					<p>Hello,</p>
					<p>We received a request to reset your password. Use the code below to continue:</p>
					<div style="text-align: center; margin: 30px 0;">
						<span style="font-size: 32px; font-weight: bold; letter-spacing: 8px; color: #F2994A;">%s</span>
					</div>
					<p>This code expires in 15 minutes. If you did not request a password reset, you can safely ignore this email.</p>
					<p>Best regards,<br>The BuildLink Team</p>
				</div>`+emailFooter,
		otp)

	return sendEmail([]string{email}, subject, body)
}

func SendNewOfferEmail(customerEmail, driverName string, price float64) error {
	subject := "New Offer on Your Booking - BuildLink"
	body := fmt.Sprintf(emailHeader+`
				<div style="background-color: #f9f9f9; padding: 20px; border-radius: 5px;">
					<h1 style="color: #2c3e50; text-align: center;">New Offer</h1>
					<p>Hello,</p>
					<p><strong>%s</strong> has offered <strong>GHS %.2f</strong> for your booking.</p>
					<p>Log in to your BuildLink account to review all offers and accept the one that works for you.</p>
					<div style="text-align: center; margin: 30px 0;">
						<a href="%s/bookings" style="background-color: #F2994A; color: white; padding: 12px 25px; text-decoration: none; border-radius: 5px;">View Offers</a>
					</div>
					<p>Best regards,<br>The BuildLink Team</p>
				</div>`+emailFooter,
		driverName, price, baseURL)

	return sendEmail([]string{customerEmail}, subject, body)
}

func SendOfferAcceptedEmail(driverEmail, location string, price float64) error {
	subject := "Your Offer Was Accepted - BuildLink"
	body := fmt.Sprintf(emailHeader+`
				<div style="background-color: #f9f9f9; padding: 20px; border-radius: 5px;">
					<h1 style="color: #2c3e50; text-align: center;">Offer Accepted</h1>
					<p>Hello,</p>
					<p>Great news! Your offer of <strong>GHS %.2f</strong> for the job at <strong>%s</strong> has been accepted.</p>
					<p>Log in to your BuildLink account to coordinate with the customer and start the job.</p>
					<div style="text-align: center; margin: 30px 0;">
						<a href="%s/jobs" style="background-color: #F2994A; color: white; padding: 12px 25px; text-decoration: none; border-radius: 5px;">View Job</a>
					</div>
					<p>Best regards,<br>The BuildLink Team</p>
				</div>`+emailFooter,
		price, location, baseURL)

	return sendEmail([]string{driverEmail}, subject, body)
}
