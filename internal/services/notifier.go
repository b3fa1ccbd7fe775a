// Package services – Notifier
//
// The dashboard surfaces every failure path as a non-blocking toast rather
// than an error page. Notifier is the server-side stand-in for that channel:
// services emit user-facing notifications through it and never treat a
// notification as fatal. The default implementation writes structured logs;
// tests swap in a recording fake.
package services

import "github.com/rs/zerolog"

// Notification severities.
const (
	NoticeInfo    = "info"
	NoticeWarning = "warning"
	NoticeError   = "error"
)

// Notification is one user-facing message.
type Notification struct {
	Level   string
	Message string
}

// Notifier delivers user-facing notifications. Implementations must not
// block and must not fail the calling operation.
type Notifier interface {
	Notify(n Notification)
}

// LogNotifier writes notifications to a zerolog logger.
type LogNotifier struct {
	Log zerolog.Logger
}

// Notify implements Notifier.
func (l LogNotifier) Notify(n Notification) {
	ev := l.Log.Info()
	switch n.Level {
	case NoticeWarning:
		ev = l.Log.Warn()
	case NoticeError:
		ev = l.Log.Error()
	}
	ev.Str("notification", n.Level).Msg(n.Message)
}
