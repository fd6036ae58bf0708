package rules

import (
	"fmt"
	"strconv"
	"strings"
)

/*
	牌定义
*/

type Suit string

const (
	Hearts   Suit = "hearts"
	Diamonds Suit = "diamonds"
	Clubs    Suit = "clubs"
	Spades   Suit = "spades"
)

// Suits 固定顺序
var Suits = []Suit{Hearts, Diamonds, Clubs, Spades}

func (s Suit) Valid() bool {
	switch s {
	case Hearts, Diamonds, Clubs, Spades:
		return true
	default:
		return false
	}
}

func (s Suit) letter() string {
	return strings.ToUpper(string(s[0]))
}

type Rank int

const (
	Two   Rank = 2
	Six   Rank = 6
	Seven Rank = 7
	Eight Rank = 8
	Ten   Rank = 10
	Jack  Rank = 11
	Queen Rank = 12
	King  Rank = 13
	Ace   Rank = 14
)

func (r Rank) String() string {
	switch r {
	case Jack:
		return "J"
	case Queen:
		return "Q"
	case King:
		return "K"
	case Ace:
		return "A"
	default:
		return strconv.Itoa(int(r))
	}
}

func (r Rank) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Rank) UnmarshalText(b []byte) error {
	v, err := parseRank(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

func parseRank(s string) (Rank, error) {
	switch strings.ToUpper(s) {
	case "J":
		return Jack, nil
	case "Q":
		return Queen, nil
	case "K":
		return King, nil
	case "A":
		return Ace, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 2 || n > 10 {
		return 0, fmt.Errorf("invalid rank %q", s)
	}
	return Rank(n), nil
}

// Card 不可变, ID 在一副牌内唯一, 例如 "10H" "QS"
type Card struct {
	ID   string `json:"id"`
	Rank Rank   `json:"rank"`
	Suit Suit   `json:"suit"`
}

func NewCard(rank Rank, suit Suit) Card {
	return Card{ID: rank.String() + suit.letter(), Rank: rank, Suit: suit}
}

// ParseCard 解析牌ID
func ParseCard(id string) (Card, error) {
	if len(id) < 2 {
		return Card{}, fmt.Errorf("invalid card id %q", id)
	}
	rank, err := parseRank(id[:len(id)-1])
	if err != nil {
		return Card{}, fmt.Errorf("invalid card id %q: %w", id, err)
	}
	for _, s := range Suits {
		if s.letter() == strings.ToUpper(id[len(id)-1:]) {
			return NewCard(rank, s), nil
		}
	}
	return Card{}, fmt.Errorf("invalid card id %q: unknown suit", id)
}

func (c Card) String() string { return c.ID }

func (c Card) IsZero() bool { return c.ID == "" }

// FullSet 一副完整的牌, 36张为 6..A, 52张为 2..A
func FullSet(deckSize int) []Card {
	low := Two
	if deckSize == 36 {
		low = Six
	}
	cards := make([]Card, 0, deckSize)
	for _, s := range Suits {
		for r := low; r <= Ace; r++ {
			cards = append(cards, NewCard(r, s))
		}
	}
	return cards
}

func ValidDeckSize(size int) bool {
	return size == 36 || size == 52
}

func indexOf(hand []Card, id string) int {
	for i, c := range hand {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func removeAt(hand []Card, i int) []Card {
	out := make([]Card, 0, len(hand)-1)
	out = append(out, hand[:i]...)
	return append(out, hand[i+1:]...)
}
