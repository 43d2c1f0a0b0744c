package engine

import "fmt"

// Suit is one of the four suits, in enumeration order H, D, C, S.
type Suit uint8

// Suit constants, packed into the upper 4 bits of Card.
const (
	SuitHearts   Suit = 0
	SuitDiamonds Suit = 1
	SuitClubs    Suit = 2
	SuitSpades   Suit = 3

	NumSuits = 4
)

// NoSuit marks an unset trump or led suit.
const NoSuit Suit = 0x0F

// Rank is a card rank, ordered by face (7 lowest) rather than by trick power.
type Rank uint8

// Rank constants, packed into the lower 4 bits of Card.
const (
	RankSeven Rank = 0
	RankEight Rank = 1
	RankNine  Rank = 2
	RankTen   Rank = 3
	RankJack  Rank = 4
	RankQueen Rank = 5
	RankKing  Rank = 6
	RankAce   Rank = 7

	NumRanks = 8
)

// Suits lists the suits in enumeration order.
var Suits = [NumSuits]Suit{SuitHearts, SuitDiamonds, SuitClubs, SuitSpades}

// power is the trick-taking order J > 9 > A > 10 > K > Q > 8 > 7.
var power = [NumRanks]int8{
	RankSeven: 0,
	RankEight: 1,
	RankQueen: 2,
	RankKing:  3,
	RankTen:   4,
	RankAce:   5,
	RankNine:  6,
	RankJack:  7,
}

// points is the card-point value per rank; a full deal carries 28.
var points = [NumRanks]int8{
	RankJack: 3,
	RankNine: 2,
	RankAce:  1,
	RankTen:  1,
}

var suitNames = [NumSuits]string{"H", "D", "C", "S"}

var rankNames = [NumRanks]string{"7", "8", "9", "10", "J", "Q", "K", "A"}

func (s Suit) String() string {
	if s < NumSuits {
		return suitNames[s]
	}
	return "?"
}

// Valid reports whether s is one of the four playable suits.
func (s Suit) Valid() bool { return s < NumSuits }

// MarshalText encodes the suit letter; NoSuit encodes as "".
func (s Suit) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return []byte{}, nil
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes a suit letter; "" decodes as NoSuit.
func (s *Suit) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*s = NoSuit
		return nil
	}
	parsed, err := ParseSuit(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (r Rank) String() string {
	if r < NumRanks {
		return rankNames[r]
	}
	return "?"
}

// Card is a packed uint8: upper 4 bits = suit, lower 4 bits = rank.
type Card uint8

// EmptyCard represents the absence of a card.
const EmptyCard Card = 0xFF

// NewCard constructs a Card from suit and rank.
func NewCard(suit Suit, rank Rank) Card {
	return Card((uint8(suit) << 4) | (uint8(rank) & 0x0F))
}

// Suit returns the suit bits (upper 4).
func (c Card) Suit() Suit { return Suit(uint8(c) >> 4) }

// Rank returns the rank bits (lower 4).
func (c Card) Rank() Rank { return Rank(uint8(c) & 0x0F) }

// Valid reports whether c is one of the 32 deck cards.
func (c Card) Valid() bool {
	return c != EmptyCard && c.Suit() < NumSuits && c.Rank() < NumRanks
}

// Points returns the card-point value of the card.
func (c Card) Points() int {
	if !c.Valid() {
		return 0
	}
	return int(points[c.Rank()])
}

// Power returns the trick power of the card within its suit.
func (c Card) Power() int {
	if !c.Valid() {
		return -1
	}
	return int(power[c.Rank()])
}

// PointValue returns the card-point value of a rank.
func PointValue(r Rank) int {
	if r >= NumRanks {
		return 0
	}
	return int(points[r])
}

// Power returns the trick power of a rank.
func Power(r Rank) int {
	if r >= NumRanks {
		return -1
	}
	return int(power[r])
}

func (c Card) String() string {
	if !c.Valid() {
		return ""
	}
	return c.Rank().String() + c.Suit().String()
}

// MarshalText encodes the card as rank followed by suit, e.g. "JH" or "10S".
func (c Card) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText parses the MarshalText form. An empty string is EmptyCard.
func (c *Card) UnmarshalText(text []byte) error {
	parsed, err := ParseCard(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCard parses "JH", "10S", "7d". An empty string yields EmptyCard.
func ParseCard(s string) (Card, error) {
	if s == "" {
		return EmptyCard, nil
	}
	if len(s) < 2 {
		return EmptyCard, fmt.Errorf("invalid card %q", s)
	}
	suit, err := ParseSuit(s[len(s)-1:])
	if err != nil {
		return EmptyCard, fmt.Errorf("invalid card %q: %w", s, err)
	}
	rankStr := s[:len(s)-1]
	for r, name := range rankNames {
		if name == rankStr || (len(name) == 1 && len(rankStr) == 1 && name[0] == upper(rankStr[0])) {
			return NewCard(suit, Rank(r)), nil
		}
	}
	return EmptyCard, fmt.Errorf("invalid card %q: unknown rank", s)
}

// ParseSuit parses a single-letter suit (case-insensitive).
func ParseSuit(s string) (Suit, error) {
	if len(s) == 1 {
		for i, name := range suitNames {
			if name[0] == upper(s[0]) {
				return Suit(i), nil
			}
		}
	}
	return NoSuit, fmt.Errorf("invalid suit %q", s)
}

func upper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - 'a' + 'A'
	}
	return b
}

// NewDeck returns the 32-card deck in suit-major order.
func NewDeck() [DeckSize]Card {
	var deck [DeckSize]Card
	idx := 0
	for _, s := range Suits {
		for r := Rank(0); r < NumRanks; r++ {
			deck[idx] = NewCard(s, r)
			idx++
		}
	}
	return deck
}

// Phase is the coarse lifecycle stage of a round.
type Phase uint8

const (
	PhaseBidding   Phase = iota // 0
	PhasePlaying                // 1
	PhaseCompleted              // 2
)

var phaseNames = [...]string{"bidding", "playing", "completed"}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "unknown"
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// UnmarshalText decodes a phase name.
func (p *Phase) UnmarshalText(text []byte) error {
	for i, name := range phaseNames {
		if name == string(text) {
			*p = Phase(i)
			return nil
		}
	}
	return fmt.Errorf("invalid phase %q", text)
}

// BainPhase tracks the double/redouble escalation window.
type BainPhase uint8

const (
	BainNone           BainPhase = iota // window closed
	BainDoubleChance                    // non-bidding partnership may double
	BainRedoubleChance                  // bid winner may redouble
)

var bainNames = [...]string{"none", "double_chance", "redouble_chance"}

func (b BainPhase) String() string {
	if int(b) < len(bainNames) {
		return bainNames[b]
	}
	return "unknown"
}

// MarshalText encodes the bain phase by name.
func (b BainPhase) MarshalText() ([]byte, error) { return []byte(b.String()), nil }

// UnmarshalText decodes a bain phase name.
func (b *BainPhase) UnmarshalText(text []byte) error {
	for i, name := range bainNames {
		if name == string(text) {
			*b = BainPhase(i)
			return nil
		}
	}
	return fmt.Errorf("invalid bain phase %q", text)
}
