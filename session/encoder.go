package session

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var (
	// ErrUnsupportedSchema is returned for blobs written by an unknown encoder version.
	ErrUnsupportedSchema = errors.New("unsupported session schema version")
	// ErrCorruptSession is returned for blobs that decode but lack required fields.
	ErrCorruptSession = errors.New("corrupt session")
)

const maxFieldBytes = 255

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("session: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DupMapKey:       cbor.DupMapKeyEnforcedAPF,
		MaxNestedLevels: 4,
		MaxMapPairs:     32,
		IndefLength:     cbor.IndefLengthForbidden,
	}.DecMode()
	if err != nil {
		panic("session: CBOR decoder initialization failed: " + err.Error())
	}
}

// Encode serializes s with deterministic CBOR. The schema version is always
// stamped to CurrentSchemaVersion.
func Encode(s *Session) ([]byte, error) {
	if s == nil {
		return nil, errors.New("nil session")
	}
	if s.SubjectID == "" {
		return nil, errors.New("session subject is required")
	}

	if err := checkFieldLengths(s); err != nil {
		return nil, err
	}

	out := *s
	out.SchemaVersion = CurrentSchemaVersion
	return encMode.Marshal(&out)
}

// Decode parses a blob produced by Encode. ID is left empty; the store fills it
// from the key.
func Decode(data []byte) (*Session, error) {
	if len(data) == 0 {
		return nil, ErrCorruptSession
	}

	var s Session
	if err := decMode.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSession, err)
	}
	if s.SchemaVersion != CurrentSchemaVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedSchema, s.SchemaVersion)
	}
	if s.SubjectID == "" {
		return nil, ErrCorruptSession
	}
	if err := checkFieldLengths(&s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSession, err)
	}

	return &s, nil
}

func checkFieldLengths(s *Session) error {
	fields := [...]struct {
		name  string
		value string
	}{
		{"subjectID", s.SubjectID},
		{"role", s.Role},
		{"parentEntityID", s.ParentEntityID},
		{"parentEntityName", s.ParentEntityName},
		{"firstName", s.FirstName},
		{"lastName", s.LastName},
		{"email", s.Email},
		{"phone", s.Phone},
	}
	for _, f := range fields {
		if len(f.value) > maxFieldBytes {
			return fmt.Errorf("%s too long", f.name)
		}
	}
	return nil
}
