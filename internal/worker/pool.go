package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueEtiquetas = "jobs:etiquetas"
	JobEtiqueta    = "etiqueta"

	// MaxIntentos is how many times a job runs before it lands in the DLQ.
	MaxIntentos = 3
)

// ErrPermanente marks failures that another attempt cannot fix. Such jobs go
// straight to the DLQ.
var ErrPermanente = errors.New("fallo permanente")

// Job is the generic envelope for all async tasks.
type Job struct {
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
}

// Handler processes the payload of one job type.
type Handler interface {
	Process(ctx context.Context, payload json.RawMessage) error
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EncolarEtiqueta queues the label of a product to be mailed to email.
func (d *Dispatcher) EncolarEtiqueta(ctx context.Context, productoID uuid.UUID, email string) error {
	return d.enqueue(ctx, QueueEtiquetas, JobEtiqueta, EtiquetaJob{ProductoID: productoID, Email: email})
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return push(ctx, d.rdb, queue, Job{Type: jobType, Payload: data})
}

func push(ctx context.Context, rdb *redis.Client, queue string, job Job) error {
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return rdb.LPush(ctx, queue, encoded).Err()
}

// ── Pool ──────────────────────────────────────────────────────────────────────

// accion is what the pool does with a job after running it.
type accion int

const (
	accionHecho accion = iota
	accionReintentar
	accionDLQ
)

// Pool runs Handlers for the jobs of one Redis list.
type Pool struct {
	rdb      *redis.Client
	queue    string
	handlers map[string]Handler
	backoff  func(intento int) time.Duration
	wg       sync.WaitGroup
}

func NewPool(rdb *redis.Client, queue string, handlers map[string]Handler) *Pool {
	return &Pool{rdb: rdb, queue: queue, handlers: handlers, backoff: backoffExponencial}
}

// backoffExponencial waits 10s, 20s, 40s... between attempts.
func backoffExponencial(intento int) time.Duration {
	return 10 * time.Second << (intento - 1)
}

// Start launches numWorkers goroutines blocking on BRPOP plus the retry
// scheduler. All of them stop when ctx is cancelled; Wait blocks until then.
func (p *Pool) Start(ctx context.Context, numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		p.wg.Add(1)
		go p.runWorker(ctx, i)
	}
	p.wg.Add(1)
	go p.runRetries(ctx)
	log.Info().Str("queue", p.queue).Msgf("worker pool started with %d workers", numWorkers)
}

func (p *Pool) Wait() { p.wg.Wait() }

func (p *Pool) runWorker(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop: waits up to 5s then loops to check ctx
			result, err := p.rdb.BRPop(ctx, 5*time.Second, p.queue).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
					log.Warn().Err(err).Str("queue", p.queue).Msg("brpop failed")
					time.Sleep(time.Second)
				}
				continue
			}
			if len(result) < 2 {
				continue
			}
			p.procesar(ctx, result[1])
		}
	}
}

func (p *Pool) procesar(ctx context.Context, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", p.queue).Err(err).Msg("failed to unmarshal job")
		SendToDLQ(ctx, p.rdb, p.queue, "desconocido", json.RawMessage(raw), "json invalido", 0)
		return
	}

	acc, err := p.ejecutar(ctx, &job)
	switch acc {
	case accionHecho:
		log.Info().Str("type", job.Type).Int("attempt", job.Attempts).Msg("job done")
	case accionReintentar:
		espera := p.backoff(job.Attempts)
		log.Warn().Err(err).Str("type", job.Type).Int("attempt", job.Attempts).Dur("retry_in", espera).Msg("job failed, retry scheduled")
		if perr := programarReintento(ctx, p.rdb, p.queue, job, time.Now().Add(espera)); perr != nil {
			log.Error().Err(perr).Str("type", job.Type).Msg("could not schedule retry")
			SendToDLQ(ctx, p.rdb, p.queue, job.Type, job.Payload, err.Error(), job.Attempts)
		}
	case accionDLQ:
		SendToDLQ(ctx, p.rdb, p.queue, job.Type, job.Payload, err.Error(), job.Attempts)
	}
}

// ejecutar runs the handler for job, bumping its attempt counter, and
// decides what happens next.
func (p *Pool) ejecutar(ctx context.Context, job *Job) (accion, error) {
	h, ok := p.handlers[job.Type]
	if !ok {
		return accionDLQ, errors.New("tipo de job desconocido: " + job.Type)
	}
	job.Attempts++
	err := h.Process(ctx, job.Payload)
	switch {
	case err == nil:
		return accionHecho, nil
	case errors.Is(err, ErrPermanente), job.Attempts >= MaxIntentos:
		return accionDLQ, err
	default:
		return accionReintentar, err
	}
}
