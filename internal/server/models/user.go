package models

import "time"

// User mirrors the identity directory rows the sharing engine needs:
// an opaque principal id plus the email addresses shares are issued to.
type User struct {
	ID        string
	Email     string
	FullName  string
	CreatedAt time.Time
}
