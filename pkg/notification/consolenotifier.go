package notification

import (
	"bytes"
	"fmt"
	"io"
	"os"
	texttemplate "text/template"
)

// ConsoleNotifier simulates delivery by printing the notice to a writer.
// Used when no SMTP transport is configured, so the verification link is
// still reachable during local development.
type ConsoleNotifier struct {
	Out io.Writer
}

func NewConsoleNotifier() *ConsoleNotifier {
	return &ConsoleNotifier{Out: os.Stdout}
}

func (c *ConsoleNotifier) Send(noticeType NoticeType, notification NotificationData, noticeTemplate NoticeTemplate) error {
	if notification.To == "" {
		return fmt.Errorf("console notification requires 'To' address")
	}

	body := notification.Body
	if body == "" && noticeTemplate.Text != "" {
		tmpl, err := texttemplate.New("text").Parse(noticeTemplate.Text)
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, notification.Data); err != nil {
			return err
		}
		body = buf.String()
	}

	subject := noticeTemplate.Subject
	if notification.Subject != "" {
		subject = notification.Subject
	}

	fmt.Fprintf(c.Out, "\n=== SIMULATED EMAIL ===\n")
	fmt.Fprintf(c.Out, "To: %s\n", notification.To)
	fmt.Fprintf(c.Out, "Subject: %s\n", subject)
	if body != "" {
		fmt.Fprintf(c.Out, "%s\n", body)
	}
	if link, ok := notification.Data["VerificationLink"]; ok {
		fmt.Fprintf(c.Out, "Verification Link: %s\n", link)
	}
	fmt.Fprintf(c.Out, "===== END EMAIL =====\n\n")

	return nil
}
