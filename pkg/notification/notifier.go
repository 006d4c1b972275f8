package notification

// NotificationData carries the recipient and template values for one send.
type NotificationData struct {
	To      string            // Recipient identifier (e.g., email address)
	Subject string            // Optional: overrides the template subject
	Body    string            // Optional: pre-rendered content
	Data    map[string]string // Values interpolated into the template
}

// NoticeTemplate holds the subject line and body templates for a notice.
type NoticeTemplate struct {
	Subject string
	Text    string
	Html    string
}

type Notifier interface {
	Send(noticeType NoticeType, notification NotificationData, template NoticeTemplate) error
}
