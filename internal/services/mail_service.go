package services

import (
	"bytes"
	"fmt"
	"html/template"
	"log"
	"net/smtp"
	"os"
	"strings"
)

// MailService sends transactional mail over plain SMTP. With no SMTP_*
// environment the service disables itself and every send becomes a no-op,
// so local setups work without a mail server.
type MailService struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	Enabled  bool
}

func NewMailService() *MailService {
	host := os.Getenv("SMTP_HOST")
	port := os.Getenv("SMTP_PORT")
	user := os.Getenv("SMTP_USER")
	pass := os.Getenv("SMTP_PASS")
	from := os.Getenv("SMTP_FROM")

	enabled := host != "" && port != "" && user != "" && pass != "" && from != ""
	if !enabled {
		log.Println("mail disabled: SMTP_* environment variables missing")
	}

	return &MailService{
		Host:     host,
		Port:     port,
		Username: user,
		Password: pass,
		From:     from,
		Enabled:  enabled,
	}
}

func (s *MailService) sendAsync(to []string, subject string, body string) {
	if !s.Enabled {
		return
	}

	go func() {
		auth := smtp.PlainAuth("", s.Username, s.Password, s.Host)
		addr := fmt.Sprintf("%s:%s", s.Host, s.Port)

		mime := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n\n"
		msg := []byte(fmt.Sprintf("To: %s\r\n"+
			"From: EmuHub <%s>\r\n"+
			"Subject: %s\r\n"+
			"%s\r\n%s", strings.Join(to, ","), s.From, subject, mime, body))

		if err := smtp.SendMail(addr, auth, s.From, to, msg); err != nil {
			log.Printf("failed to send email to %v: %v", to, err)
		} else {
			log.Printf("email sent to %v: %s", to, subject)
		}
	}()
}

// Templates are compiled in rather than read from disk: the server ships as
// a single binary with no template directory alongside it.
var (
	activationTmpl = template.Must(template.New("activation").Parse(`
<h2>Welcome to EmuHub!</h2>
<p>Enter this code to activate your account:</p>
<p style="font-size:24px;font-weight:bold;letter-spacing:4px">{{.Code}}</p>
<p>If you didn't sign up, you can ignore this email.</p>`))

	resetTmpl = template.Must(template.New("reset").Parse(`
<h2>Password reset requested</h2>
<p>Enter this code to reset your EmuHub password:</p>
<p style="font-size:24px;font-weight:bold;letter-spacing:4px">{{.Code}}</p>
<p>If this wasn't you, your account is still safe and no action is needed.</p>`))

	replyTmpl = template.Must(template.New("reply").Parse(`
<h2>{{.ActorName}} replied to you</h2>
<p>On the config for <strong>{{.ConfigTitle}}</strong>:</p>
<blockquote>{{.ReplyContent}}</blockquote>
<p><a href="{{.Link}}">View the conversation</a></p>`))
)

func renderMailTemplate(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render mail template %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}

// SendActivationEmail delivers the account activation code.
func (s *MailService) SendActivationEmail(email, code string) {
	body, err := renderMailTemplate(activationTmpl, map[string]string{"Code": code})
	if err != nil {
		log.Printf("activation email: %v", err)
		return
	}
	s.sendAsync([]string{email}, "Welcome to EmuHub - confirm your email", body)
}

// SendPasswordResetEmail delivers a password reset code.
func (s *MailService) SendPasswordResetEmail(email, code string) {
	body, err := renderMailTemplate(resetTmpl, map[string]string{"Code": code})
	if err != nil {
		log.Printf("reset email: %v", err)
		return
	}
	s.sendAsync([]string{email}, "EmuHub password reset code", body)
}

// SendReplyNotification tells a user someone answered their comment.
func (s *MailService) SendReplyNotification(email, actorName, configTitle, replyContent, link string) {
	body, err := renderMailTemplate(replyTmpl, map[string]string{
		"ActorName":    actorName,
		"ConfigTitle":  configTitle,
		"ReplyContent": replyContent,
		"Link":         link,
	})
	if err != nil {
		log.Printf("reply email: %v", err)
		return
	}
	s.sendAsync([]string{email}, actorName+" replied to your comment on EmuHub", body)
}
