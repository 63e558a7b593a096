package worker

import (
	"context"

	"go.uber.org/zap"
)

// Loop es el único goroutine de publicación. Las tareas corren una a una en
// el orden en que se publicaron.
type Loop struct {
	tasks chan func()
	done  chan struct{}
}

func NewLoop(buffer int) *Loop {
	if buffer <= 0 {
		buffer = 1024
	}
	return &Loop{
		tasks: make(chan func(), buffer),
		done:  make(chan struct{}),
	}
}

// Run procesa tareas hasta que ctx termina
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-l.tasks:
			l.exec(fn)
		}
	}
}

// Post encola fn. Devuelve false si el loop ya terminó.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}

	select {
	case <-l.done:
		return false
	case l.tasks <- fn:
		return true
	}
}

// Sync espera a que todo lo publicado antes de la llamada se haya ejecutado
func (l *Loop) Sync(ctx context.Context) error {
	flushed := make(chan struct{})
	if !l.Post(func() { close(flushed) }) {
		return context.Canceled
	}
	select {
	case <-flushed:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do ejecuta fn en el loop y espera a que termine. Si el loop ya no corre,
// fn se ejecuta en el goroutine que llama. No llamar desde una tarea del loop.
func (l *Loop) Do(fn func()) {
	ran := make(chan struct{})
	if !l.Post(func() {
		defer close(ran)
		fn()
	}) {
		fn()
		return
	}

	select {
	case <-ran:
	case <-l.done:
		// el loop terminó con la tarea todavía en cola
		select {
		case <-ran:
		default:
			fn()
		}
	}
}

func (l *Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("panic en tarea del loop", zap.Any("panic", r))
		}
	}()
	fn()
}
