package models

import "time"

// NoticeLevel classifies a user-visible notice.
type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
	NoticeInfo    NoticeLevel = "info"
)

// DefaultNoticeDuration is how long a transient notice stays visible.
const DefaultNoticeDuration = 4 * time.Second

// Notice is a transient message for the user.
type Notice struct {
	Level    NoticeLevel   `json:"level"`
	Message  string        `json:"message"`
	Duration time.Duration `json:"duration"`
	Created  time.Time     `json:"created"`
}
