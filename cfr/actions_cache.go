package cfr

import (
	"holdemcfr/common/defaultmap"
	"holdemcfr/common/safemap"
	"holdemcfr/nolimitholdem"
)

type Defaultmap[K comparable, V any] = defaultmap.DefaultSafemap[K, V]
type Safemap[K comparable, V any] = safemap.Safemap[K, V]

// StrategyCache memoizes regret-matched strategies per player within
// one training cycle. The network only changes at retrain boundaries,
// so entries stay valid until the cache is cleared there.
type StrategyCache struct {
	perPlayer Defaultmap[int, Safemap[uint64, nolimitholdem.Strategy]]
}

func NewStrategyCache() *StrategyCache {
	return &StrategyCache{
		perPlayer: defaultmap.New[int](func() Safemap[uint64, nolimitholdem.Strategy] {
			return safemap.New[uint64, nolimitholdem.Strategy]()
		}),
	}
}

func (h *StrategyCache) Get(player int, keyHash uint64) (nolimitholdem.Strategy, bool) {
	return h.perPlayer.Get(player).Get(keyHash)
}

func (h *StrategyCache) Put(player int, keyHash uint64, strategy nolimitholdem.Strategy) {
	h.perPlayer.Get(player).Set(keyHash, strategy)
}

// Clear drops every player's entries.
func (h *StrategyCache) Clear() {
	players := make([]int, 0)
	h.perPlayer.Foreach(func(p int, _ Safemap[uint64, nolimitholdem.Strategy]) bool {
		players = append(players, p)
		return true
	})
	for _, p := range players {
		h.perPlayer.Delete(p)
	}
}

// AdvantageActor derives the acting policy from a Predictor by regret
// matching, memoized through the shared cache.
type AdvantageActor struct {
	player int
	pred   Predictor
	cache  *StrategyCache
}

func NewAdvantageActor(player int, pred Predictor, cache *StrategyCache) *AdvantageActor {
	return &AdvantageActor{player: player, pred: pred, cache: cache}
}

// GetStrategy implements Actor.
func (h *AdvantageActor) GetStrategy(is *InfoSet) (nolimitholdem.Strategy, error) {
	hash := is.Key.Hash()
	if h.cache != nil {
		if strategy, ok := h.cache.Get(h.player, hash); ok {
			return strategy, nil
		}
	}
	strategy := RegretMatch(h.pred.Predict(is), is.Legal)
	if h.cache != nil {
		h.cache.Put(h.player, hash, strategy)
	}
	return strategy, nil
}
