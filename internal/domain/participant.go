package domain

import (
	"errors"
	"strings"
)

const MaxNameLen = 50

var (
	ErrNameEmpty   = errors.New("name empty")
	ErrNameTooLong = errors.New("name too long")
	ErrIDEmpty     = errors.New("id empty")
	ErrBadRole     = errors.New("unknown role")
)

// Role groups participants for display and averaging. Empty means
// unspecified; unspecified sorts after the known roles.
type Role string

const (
	RoleDev  Role = "dev"
	RoleQA   Role = "qa"
	RoleNone Role = ""
)

func (r Role) Valid() bool {
	return r == RoleNone || r == RoleDev || r == RoleQA
}

// Priority is the group ordering key: dev < qa < unspecified.
func (r Role) Priority() int {
	switch r {
	case RoleDev:
		return 0
	case RoleQA:
		return 1
	default:
		return 2
	}
}

// Participant is one voting identity within a room. The ID is opaque,
// client-generated and stable across reconnects; it is unique per room.
type Participant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role,omitempty"`
	Vote *Vote  `json:"vote"`
}

// NewParticipant validates identity fields and trims the name. The vote
// always starts absent.
func NewParticipant(id, name string, role Role) (Participant, error) {
	id = strings.TrimSpace(id)
	name = strings.TrimSpace(name)
	if id == "" {
		return Participant{}, ErrIDEmpty
	}
	if name == "" {
		return Participant{}, ErrNameEmpty
	}
	if len(name) > MaxNameLen {
		return Participant{}, ErrNameTooLong
	}
	if !role.Valid() {
		return Participant{}, ErrBadRole
	}
	return Participant{ID: id, Name: name, Role: role}, nil
}
