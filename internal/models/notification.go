package models

// NotificationChannel identifies how a message reaches a parent.
type NotificationChannel string

// Supported channels.
const (
	ChannelWhatsApp NotificationChannel = "whatsapp"
	ChannelSMS      NotificationChannel = "sms"
)

// NotificationKind identifies the message template.
type NotificationKind string

// Supported templates.
const (
	NotificationReminder            NotificationKind = "reminder"
	NotificationPaymentConfirmation NotificationKind = "payment_confirmation"
	NotificationFeeUpdate           NotificationKind = "fee_update"
)

// Notification is a fully rendered message addressed to a student's parent.
type Notification struct {
	StudentID   string              `json:"student_id"`
	StudentName string              `json:"student_name"`
	Phone       string              `json:"phone"`
	Kind        NotificationKind    `json:"kind"`
	Channel     NotificationChannel `json:"channel"`
	Message     string              `json:"message"`
	URL         string              `json:"url"`
}
