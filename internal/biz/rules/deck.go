package rules

import (
	"errors"
	"math/rand"
)

// ErrDeckExhausted 摸牌堆为空且弃牌堆不足以重洗
var ErrDeckExhausted = errors.New("deck exhausted")

// Deck 摸牌堆 + 弃牌堆, 末尾为顶部
type Deck struct {
	Size        int    `json:"size"`
	DrawPile    []Card `json:"draw_pile"`
	DiscardPile []Card `json:"discard_pile"`

	rng *rand.Rand
}

func NewDeck(size int, rng *rand.Rand) *Deck {
	return &Deck{Size: size, rng: rng}
}

// Bind 反序列化后重新绑定随机源
func (d *Deck) Bind(rng *rand.Rand) {
	d.rng = rng
}

// Shuffle 用全新的一副牌重置并洗牌
func (d *Deck) Shuffle() {
	d.DrawPile = FullSet(d.Size)
	d.DiscardPile = nil
	d.shuffle(d.DrawPile)
}

func (d *Deck) shuffle(cards []Card) {
	d.rng.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
}

// CanDraw 摸牌堆非空或可由弃牌堆重洗
func (d *Deck) CanDraw() bool {
	return len(d.DrawPile) > 0 || len(d.DiscardPile) >= 2
}

// Draw 摸一张; shuffled 表示本次先把弃牌堆(除顶牌)洗回了摸牌堆
func (d *Deck) Draw() (card Card, shuffled bool, err error) {
	if len(d.DrawPile) == 0 {
		if len(d.DiscardPile) < 2 {
			return Card{}, false, ErrDeckExhausted
		}
		top := d.DiscardPile[len(d.DiscardPile)-1]
		d.DrawPile = append([]Card(nil), d.DiscardPile[:len(d.DiscardPile)-1]...)
		d.DiscardPile = []Card{top}
		d.shuffle(d.DrawPile)
		shuffled = true
	}
	n := len(d.DrawPile) - 1
	card = d.DrawPile[n]
	d.DrawPile = d.DrawPile[:n]
	return card, shuffled, nil
}

func (d *Deck) Discard(c Card) {
	d.DiscardPile = append(d.DiscardPile, c)
}

// Top 顶牌, 弃牌堆为空时返回零值
func (d *Deck) Top() Card {
	if len(d.DiscardPile) == 0 {
		return Card{}
	}
	return d.DiscardPile[len(d.DiscardPile)-1]
}

func (d *Deck) DrawCount() int { return len(d.DrawPile) }

func (d *Deck) DiscardCount() int { return len(d.DiscardPile) }
