package domain

// NotificationLevel is the severity of a user-visible notification.
type NotificationLevel string

const (
	LevelInfo    NotificationLevel = "info"
	LevelSuccess NotificationLevel = "success"
	LevelWarning NotificationLevel = "warning"
	LevelError   NotificationLevel = "error"
)

// Actions a notification can offer.
const (
	ActionReset = "reset"
	ActionRetry = "retry"
)

// Notification is a dismissible message for the user.
type Notification struct {
	Level   NotificationLevel `json:"level"`
	Message string            `json:"message"`
	Action  string            `json:"action,omitempty"`
}
