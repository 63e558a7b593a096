package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Job es una tarea de fondo (llamadas de red, entrega al cashier)
type Job func(ctx context.Context)

// WorkerPool ejecuta Jobs en un número fijo de goroutines
type WorkerPool struct {
	jobs      chan Job
	workers   int
	done      chan struct{}
	startOnce sync.Once
	wg        sync.WaitGroup
}

func NewWorkerPool(workers, queue int) *WorkerPool {
	if workers <= 0 {
		workers = 4
	}
	if queue <= 0 {
		queue = 1024
	}

	return &WorkerPool{
		jobs:    make(chan Job, queue),
		workers: workers,
		done:    make(chan struct{}),
	}
}

// Start arranca los workers; llamadas repetidas no hacen nada
func (wp *WorkerPool) Start(ctx context.Context) {
	wp.startOnce.Do(func() {
		for i := 0; i < wp.workers; i++ {
			wp.wg.Add(1)
			go wp.worker(ctx, i)
		}
		go func() {
			<-ctx.Done()
			close(wp.done)
		}()
	})
}

// Run arranca el pool y bloquea hasta que todos los workers terminan
func (wp *WorkerPool) Run(ctx context.Context) error {
	wp.Start(ctx)
	wp.wg.Wait()
	return nil
}

// Submit encola un Job. Devuelve false si el pool ya se apagó.
func (wp *WorkerPool) Submit(job Job) bool {
	select {
	case <-wp.done:
		return false
	default:
	}

	select {
	case <-wp.done:
		return false
	case wp.jobs <- job:
		return true
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	defer wp.wg.Done()
	zap.L().Debug("worker iniciado", zap.Int("id", id))

	for {
		select {
		case <-ctx.Done():
			zap.L().Debug("worker apagado", zap.Int("id", id))
			return

		case job := <-wp.jobs:
			run(ctx, id, job)
		}
	}
}

func run(ctx context.Context, id int, job Job) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("panic en job de fondo", zap.Int("worker", id), zap.Any("panic", r))
		}
	}()
	job(ctx)
}
