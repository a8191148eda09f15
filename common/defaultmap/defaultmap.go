// Package defaultmap is a thread safe map that materialises missing
// values through a constructor on first access.
package defaultmap

import "sync"

type DefaultSafemap[K comparable, V any] interface {
	Get(key K) V
	Delete(key K)
	Count() int
	Foreach(it func(K, V) bool)
}

type defaultmapImpl[K comparable, V any] struct {
	data        map[K]V
	mutex       sync.RWMutex
	defaultFunc func() V
}

func New[K comparable, V any](defaultFunc func() V) DefaultSafemap[K, V] {
	return &defaultmapImpl[K, V]{
		data:        make(map[K]V),
		defaultFunc: defaultFunc,
	}
}

func (h *defaultmapImpl[K, V]) Get(key K) V {
	h.mutex.RLock()
	v, ex := h.data[key]
	h.mutex.RUnlock()
	if ex {
		return v
	}
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if v, ex := h.data[key]; ex {
		return v
	}
	v = h.defaultFunc()
	h.data[key] = v
	return v
}

func (h *defaultmapImpl[K, V]) Delete(key K) {
	h.mutex.Lock()
	delete(h.data, key)
	h.mutex.Unlock()
}

func (h *defaultmapImpl[K, V]) Count() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.data)
}

func (h *defaultmapImpl[K, V]) Foreach(it func(K, V) bool) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	for k, v := range h.data {
		if !it(k, v) {
			break
		}
	}
}
