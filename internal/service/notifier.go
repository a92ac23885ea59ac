package service

// NoticeLevel classifies a user-facing notification.
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

// Notifier shows transient messages to the user.
type Notifier interface {
	Notify(level NoticeLevel, message string)
}

// NoopNotifier drops every notification.
type NoopNotifier struct{}

func (NoopNotifier) Notify(NoticeLevel, string) {}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(level NoticeLevel, message string)

func (f NotifierFunc) Notify(level NoticeLevel, message string) { f(level, message) }
