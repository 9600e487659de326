package models

import "time"

// DeliveryCallback is the body the SMS gateway posts to the webhook.
type DeliveryCallback struct {
	MessageID   string     `json:"message_id" validate:"required,max=128"`
	Status      string     `json:"status" validate:"required,oneof=delivered failed"`
	DeliveredAt *time.Time `json:"delivered_at"`
	Error       string     `json:"error" validate:"max=500"`
}
