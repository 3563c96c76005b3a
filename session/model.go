package session

import "time"

// CurrentSchemaVersion is written into every encoded session.
const CurrentSchemaVersion uint8 = 1

// Session is the server-side record behind a session cookie. Identity, role
// and parent entity are snapshots taken at login; a changed role only takes
// effect after the subject logs in again.
type Session struct {
	SchemaVersion uint8 `cbor:"0,keyasint"`

	// ID is the Redis key suffix and is not part of the encoded blob.
	ID string `cbor:"-"`

	SubjectID string `cbor:"1,keyasint"`
	Role      string `cbor:"2,keyasint"`

	ParentEntityID   string `cbor:"3,keyasint,omitempty"`
	ParentEntityName string `cbor:"4,keyasint,omitempty"`

	FirstName string `cbor:"5,keyasint,omitempty"`
	LastName  string `cbor:"6,keyasint,omitempty"`
	Email     string `cbor:"7,keyasint,omitempty"`
	Phone     string `cbor:"8,keyasint,omitempty"`

	// CreatedAt is unix seconds.
	CreatedAt int64 `cbor:"9,keyasint"`
	Permanent bool  `cbor:"10,keyasint,omitempty"`
}

// Created returns CreatedAt as a time.Time.
func (s *Session) Created() time.Time {
	return time.Unix(s.CreatedAt, 0)
}

// Expired reports whether a permanent session is older than lifetime at now.
// Non-permanent sessions never expire by age.
func (s *Session) Expired(now time.Time, lifetime time.Duration) bool {
	if s == nil || !s.Permanent || lifetime <= 0 {
		return false
	}
	return now.Sub(s.Created()) > lifetime
}
