package services

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"strconv"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// Mailer is the narrow surface NotifyService needs. Tests plug in a
// recording fake.
type Mailer interface {
	Enabled() bool
	SendWelcome(to, username string) error
	SendReplyNotification(to, actor, title, excerpt, link string) error
	SendHelpfulNotification(to, actor, title, link string) error
}

type MailService struct {
	host     string
	port     int
	username string
	password string
	from     string
	enabled  bool
	logger   *zap.Logger
}

func NewMailService(logger *zap.Logger) *MailService {
	host := os.Getenv("SMTP_HOST")
	port, _ := strconv.Atoi(os.Getenv("SMTP_PORT"))
	user := os.Getenv("SMTP_USER")
	pass := os.Getenv("SMTP_PASS")
	from := os.Getenv("SMTP_FROM")

	enabled := host != "" && port != 0 && user != "" && pass != "" && from != ""
	if !enabled {
		logger.Warn("mail service disabled: missing SMTP environment variables")
	}

	return &MailService{
		host:     host,
		port:     port,
		username: user,
		password: pass,
		from:     from,
		enabled:  enabled,
		logger:   logger,
	}
}

func (s *MailService) Enabled() bool { return s.enabled }

func (s *MailService) send(to, subject, body string) error {
	if !s.enabled {
		return nil
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", s.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	dialer := gomail.NewDialer(s.host, s.port, s.username, s.password)
	if err := dialer.DialAndSend(msg); err != nil {
		s.logger.Warn("failed to send email", zap.String("to", to), zap.Error(err))
		return err
	}
	s.logger.Info("email sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}

var (
	welcomeTmpl = template.Must(template.New("welcome").Parse(`
<p>Hi {{.Username}},</p>
<p>Welcome to Threadloom. Start a discussion or jump into one.</p>`))

	replyTmpl = template.Must(template.New("reply").Parse(`
<p><strong>{{.Actor}}</strong> replied to you in <em>{{.Title}}</em>:</p>
<blockquote>{{.Excerpt}}</blockquote>
<p><a href="{{.Link}}">Open the thread</a></p>`))

	helpfulTmpl = template.Must(template.New("helpful").Parse(`
<p><strong>{{.Actor}}</strong> found your contribution in <em>{{.Title}}</em> helpful.</p>
<p><a href="{{.Link}}">Open the thread</a></p>`))
)

func renderMail(t *template.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render mail template %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}

func (s *MailService) SendWelcome(to, username string) error {
	body, err := renderMail(welcomeTmpl, map[string]string{"Username": username})
	if err != nil {
		return err
	}
	return s.send(to, "Welcome to Threadloom", body)
}

func (s *MailService) SendReplyNotification(to, actor, title, excerpt, link string) error {
	body, err := renderMail(replyTmpl, map[string]string{
		"Actor": actor, "Title": title, "Excerpt": excerpt, "Link": link,
	})
	if err != nil {
		return err
	}
	return s.send(to, fmt.Sprintf("%s replied to you in %q", actor, title), body)
}

func (s *MailService) SendHelpfulNotification(to, actor, title, link string) error {
	body, err := renderMail(helpfulTmpl, map[string]string{
		"Actor": actor, "Title": title, "Link": link,
	})
	if err != nil {
		return err
	}
	return s.send(to, fmt.Sprintf("%s marked your post in %q as helpful", actor, title), body)
}
