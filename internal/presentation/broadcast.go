// Package presentation lleva los resultados del pipeline a cualquier número de
// observadores. Cada flujo repite su último valor a quien se suscribe tarde.
package presentation

import "sync"

// Broadcast es un flujo con varios suscriptores que recuerda su último valor.
//
// Publish y Subscribe comparten el mismo lock: un suscriptor ve primero el valor
// repetido y después cada valor nuevo una sola vez, en orden de publicación.
// Los callbacks corren en el goroutine que publica y no pueden publicar en el
// mismo Broadcast.
type Broadcast[T any] struct {
	mu     sync.Mutex
	latest T
	has    bool
	nextID int
	subs   map[int]func(T)
	order  []int
}

func NewBroadcast[T any]() *Broadcast[T] {
	return &Broadcast[T]{subs: make(map[int]func(T))}
}

// Publish guarda v como último valor y lo entrega a todos los suscriptores
func (b *Broadcast[T]) Publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.latest = v
	b.has = true
	for _, id := range b.order {
		if fn, ok := b.subs[id]; ok {
			fn(v)
		}
	}
}

// Subscribe registra fn. Si ya hubo un valor, fn lo recibe antes de que
// Subscribe retorne. La función devuelta quita fn; después de llamarla no
// llega nada más.
func (b *Broadcast[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	return b.SubscribeWithReplay(fn, fn)
}

// SubscribeWithReplay es Subscribe con el valor repetido enviado a replay y
// los valores nuevos a live. replay puede ser nil.
func (b *Broadcast[T]) SubscribeWithReplay(replay, live func(T)) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.subs[id] = live
	b.order = append(b.order, id)

	if b.has && replay != nil {
		replay(b.latest)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			for i, v := range b.order {
				if v == id {
					b.order = append(b.order[:i:i], b.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Latest devuelve el último valor publicado, si lo hay
func (b *Broadcast[T]) Latest() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.latest, b.has
}

// Subscribers cuenta los callbacks registrados
func (b *Broadcast[T]) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
