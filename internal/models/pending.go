package models

import (
	"encoding/json"
	"time"
)

// VerifyChannel names an OTP delivery channel.
type VerifyChannel string

const (
	ChannelMobile VerifyChannel = "mobile"
	ChannelEmail  VerifyChannel = "email"
)

// Valid reports whether the channel is known.
func (c VerifyChannel) Valid() bool {
	return c == ChannelMobile || c == ChannelEmail
}

// OTPCredential is a keyed hash of a dispatched one-time code. The plaintext
// code is never stored.
type OTPCredential struct {
	Salt string `json:"salt"`
	Hash string `json:"hash"`
}

// PendingSubmission is a draft admission awaiting dual-channel OTP
// confirmation. Channel order is fixed: email may only be verified once the
// mobile channel is verified.
type PendingSubmission struct {
	ID             string          `json:"id"`
	Draft          json.RawMessage `json:"draft"`
	Mobile         string          `json:"mobile"`
	Email          string          `json:"email"`
	MobileOTP      OTPCredential   `json:"mobileOtp"`
	EmailOTP       OTPCredential   `json:"emailOtp"`
	MobileVerified bool            `json:"mobileVerified"`
	EmailVerified  bool            `json:"emailVerified"`
	Attempts       int             `json:"attempts"`
	CreatedAt      time.Time       `json:"createdAt"`
	ExpiresAt      time.Time       `json:"expiresAt"`
}

// Expired reports whether the entry's absolute TTL has elapsed.
func (p *PendingSubmission) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

// Credential returns the stored OTP credential for the channel.
func (p *PendingSubmission) Credential(channel VerifyChannel) OTPCredential {
	if channel == ChannelEmail {
		return p.EmailOTP
	}
	return p.MobileOTP
}

// Verified reports whether the channel has already been confirmed.
func (p *PendingSubmission) Verified(channel VerifyChannel) bool {
	if channel == ChannelEmail {
		return p.EmailVerified
	}
	return p.MobileVerified
}

// EditGrant is the single-use authorization window allowing a student to
// resubmit the listed sections and fields. Its existence is the sole gate for
// both edit prefill and edit apply; consuming it deletes it.
type EditGrant struct {
	AdmissionID string    `json:"admissionId"`
	Sections    []Section `json:"sections"`
	Fields      []string  `json:"fields"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Expired reports whether the grant TTL has elapsed.
func (g *EditGrant) Expired(now time.Time) bool {
	return !g.ExpiresAt.IsZero() && now.After(g.ExpiresAt)
}

// AllowsSection reports whether the named section is inside the window.
func (g *EditGrant) AllowsSection(s Section) bool {
	for _, allowed := range g.Sections {
		if allowed == s {
			return true
		}
	}
	return false
}

// IsFieldEditable implements the two-level permission model: a section granted
// with zero of its own field keys is fully open; a section granted with
// specific field keys opens only those keys.
func (g *EditGrant) IsFieldEditable(section Section, field string) bool {
	if !g.AllowsSection(section) {
		return false
	}
	if !section.SupportsFieldFlags() {
		return true
	}
	prefix := section.FieldPrefix()
	scoped := false
	for _, f := range g.Fields {
		if len(prefix) > 0 && len(f) >= len(prefix) && f[:len(prefix)] == prefix {
			scoped = true
			if f == field {
				return true
			}
		}
	}
	// No field keys scoped to this section: the whole section is open.
	return !scoped
}
