package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// SMSVerification holds the single active verification code for a phone.
type SMSVerification struct {
	bun.BaseModel `bun:"table:sms_verifications"`

	ID         int64     `bun:",pk,autoincrement"`
	Phone      string    `bun:"phone,notnull,unique"`
	Code       string    `bun:"code,notnull"`
	IsVerified bool      `bun:"is_verified,notnull"`
	ExpiresAt  time.Time `bun:"expires_at,notnull"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
}

// ActiveAt reports whether the code is still inside its validity window. A code
// expiring exactly at now is already expired.
func (v *SMSVerification) ActiveAt(now time.Time) bool {
	return v.ExpiresAt.After(now)
}
