package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// User is the persisted account record. PasswordHash must never leave the
// server; clients only ever see the PublicUser projection.
type User struct {
	ID           int64       `db:"id"`
	Email        string      `db:"email"`
	Name         string      `db:"name"`
	PasswordHash string      `db:"password_hash"`
	Preferences  Preferences `db:"preferences"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
}

// PublicUser is the client-safe view of an account.
type PublicUser struct {
	ID          int64       `json:"id"`
	Email       string      `json:"email"`
	Name        string      `json:"name"`
	Preferences Preferences `json:"preferences"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// Public returns the view of the user that is safe to serialize.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Preferences: u.Preferences,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

// Preferences is the accessibility settings bag attached to every account.
// Stored as a single JSONB column.
type Preferences struct {
	Theme         string `json:"theme"`
	FontSize      string `json:"fontSize"`
	HighContrast  bool   `json:"highContrast"`
	ReducedMotion bool   `json:"reducedMotion"`
	VoiceCommands bool   `json:"voiceCommands"`
}

// DefaultPreferences returns the settings assigned at registration.
func DefaultPreferences() Preferences {
	return Preferences{
		Theme:    "system",
		FontSize: "medium",
	}
}

// Value implements driver.Valuer for the JSONB column.
func (p Preferences) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan implements sql.Scanner for the JSONB column.
func (p *Preferences) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	case nil:
		*p = Preferences{}
		return nil
	default:
		return fmt.Errorf("unsupported preferences type %T", src)
	}
}

// PreferencesUpdate carries a partial preferences change. Nil fields are
// left untouched; the merge is key-by-key, never a wholesale replace.
// Marshalling omits nil fields so the result is exactly the patch to apply.
type PreferencesUpdate struct {
	Theme         *string `json:"theme,omitempty" binding:"omitempty,oneof=light dark system"`
	FontSize      *string `json:"fontSize,omitempty" binding:"omitempty,oneof=small medium large"`
	HighContrast  *bool   `json:"highContrast,omitempty"`
	ReducedMotion *bool   `json:"reducedMotion,omitempty"`
	VoiceCommands *bool   `json:"voiceCommands,omitempty"`
}

// ApplyTo merges the update into existing preferences.
func (u PreferencesUpdate) ApplyTo(p Preferences) Preferences {
	if u.Theme != nil {
		p.Theme = *u.Theme
	}
	if u.FontSize != nil {
		p.FontSize = *u.FontSize
	}
	if u.HighContrast != nil {
		p.HighContrast = *u.HighContrast
	}
	if u.ReducedMotion != nil {
		p.ReducedMotion = *u.ReducedMotion
	}
	if u.VoiceCommands != nil {
		p.VoiceCommands = *u.VoiceCommands
	}
	return p
}

// Claims defines the structure of the JWT claims. The uid claim is the
// canonical token payload; Subject is left unused.
type Claims struct {
	UserID int64 `json:"uid"`
	jwt.RegisteredClaims
}

// Identity is the resolved caller attached to the request context by the
// authentication middleware. It is set once and read-only afterwards.
type Identity struct {
	UserID int64
	User   *User
}
