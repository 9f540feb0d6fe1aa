package models

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

const (
	StatusActive              = "active"
	StatusBlocked             = "blocked"
	StatusSuspended           = "suspended"
	StatusPendingVerification = "pending_verification"
)

func ValidRole(r string) bool { return r == RoleUser || r == RoleAdmin }

type User struct {
	ID           string `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name         string `gorm:"not null" json:"name"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	Mobile       string `gorm:"not null" json:"mobile"`
	Role         string `gorm:"not null;default:user" json:"role"`
	PasswordHash string `gorm:"not null" json:"-"`

	Status          string     `gorm:"not null;default:active" json:"status"`
	IsEmailVerified bool       `gorm:"not null;default:false" json:"is_email_verified"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	LastLoginAt     *time.Time `json:"last_login_at,omitempty"`

	BlockedAt     *time.Time `json:"blocked_at,omitempty"`
	BlockedBy     *string    `gorm:"type:uuid" json:"-"`
	BlockedReason *string    `json:"blocked_reason,omitempty"`

	ResetTokenHash    *string    `gorm:"size:64" json:"-"`
	ResetTokenExpires *time.Time `json:"-"`

	EmailVerificationTokenHash *string    `gorm:"size:64" json:"-"`
	EmailVerificationExpires   *time.Time `json:"-"`
	VerificationLastSentAt     *time.Time `json:"-"`
}

// IsActive reports whether the account may authenticate.
func (u *User) IsActive() bool { return u.Status == StatusActive }

// IsBlocked covers both moderation states that lock an account out.
func (u *User) IsBlocked() bool {
	return u.Status == StatusBlocked || u.Status == StatusSuspended
}

// Session records one issued bearer token. Revocation lives here, not in the
// token itself, so the auth middleware must consult IsActive on every request.
type Session struct {
	ID         string     `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     string     `gorm:"type:uuid;index;not null" json:"user_id"`
	TokenID    string     `gorm:"uniqueIndex;size:64;not null" json:"token_id"`
	LoginTime  time.Time  `json:"login_time"`
	LogoutTime *time.Time `json:"logout_time,omitempty"`
	IPAddress  string     `json:"ip_address"`
	UserAgent  string     `json:"user_agent"`
	IsActive   bool       `gorm:"not null;default:true" json:"is_active"`
}

type AuditLog struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ActorID   *string   `gorm:"type:uuid" json:"actor_id,omitempty"`
	TargetID  *string   `gorm:"type:uuid" json:"target_id,omitempty"`
	Action    string    `gorm:"not null" json:"action"`
	Metadata  JSONB     `gorm:"type:jsonb;default:'{}'::jsonb" json:"metadata"`
	CreatedAt time.Time `json:"created_at"`
}
