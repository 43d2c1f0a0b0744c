// internal/models/player.go
package models

import (
	"fmt"

	"github.com/google/uuid"
)

// SeatKind tells whether a seat is driven by a person or by the bot policy.
type SeatKind uint8

const (
	SeatHuman SeatKind = iota
	SeatAutonomous
)

var seatKindNames = [...]string{"human", "autonomous"}

func (k SeatKind) String() string {
	if int(k) < len(seatKindNames) {
		return seatKindNames[k]
	}
	return fmt.Sprintf("SeatKind(%d)", uint8(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k SeatKind) MarshalText() ([]byte, error) {
	if int(k) >= len(seatKindNames) {
		return nil, fmt.Errorf("invalid seat kind %d", uint8(k))
	}
	return []byte(seatKindNames[k]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *SeatKind) UnmarshalText(b []byte) error {
	for i, name := range seatKindNames {
		if string(b) == name {
			*k = SeatKind(i)
			return nil
		}
	}
	return fmt.Errorf("invalid seat kind %q", b)
}

// User is the account behind a seat.
type User struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
}

// Player is one seat at a match table.
type Player struct {
	ID        uuid.UUID `json:"id"`
	Seat      int       `json:"seat"`
	Kind      SeatKind  `json:"kind"`
	Connected bool      `json:"connected"`
	User      *User     `json:"user,omitempty"`
}

// Autonomous reports whether the bot policy plays this seat.
func (p *Player) Autonomous() bool {
	return p != nil && p.Kind == SeatAutonomous
}

// Name returns the username, or a seat label for players without an account.
func (p *Player) Name() string {
	if p.User != nil && p.User.Username != "" {
		return p.User.Username
	}
	return fmt.Sprintf("seat-%d", p.Seat)
}
