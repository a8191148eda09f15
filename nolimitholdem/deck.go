package nolimitholdem

import (
	"math/rand"

	"github.com/idsulik/go-collections/v3/queue"
)

type Deck struct {
	rand *rand.Rand
	q    *queue.Queue[Card]
}

func NewDeck(rand *rand.Rand) *Deck {
	h := &Deck{
		rand: rand,
	}
	h.Reset()
	return h
}

func (h *Deck) Reset() {
	h.q = queue.New[Card](DECK_SIZE)
	for _, v := range h.rand.Perm(DECK_SIZE) {
		h.q.Enqueue(Card(v))
	}
}

func (h *Deck) Get() Card {
	val, ex := h.q.Dequeue()
	if !ex {
		panic("deck is empty")
	}
	return val
}

func (h *Deck) DeepCopy() *Deck {
	if h == nil {
		return nil
	}
	cp := &Deck{
		rand: h.rand,
		q:    queue.New[Card](DECK_SIZE),
	}
	if h.q != nil {
		h.q.ForEach(func(c Card) {
			cp.q.Enqueue(c)
		})
	}
	return cp
}
