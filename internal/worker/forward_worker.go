package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"quicktable/internal/metrics"
	"quicktable/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Snapshot is the reservation state captured when a task was enqueued.
type Snapshot struct {
	Reservation    models.Reservation `json:"reservation"`
	RestaurantName string             `json:"restaurant_name"`
}

// Sink delivers snapshots to one downstream system. kind is one of the
// models.Forward* constants.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, kind string, snap Snapshot) error
}

// ForwardQueue persists tasks so they survive restarts.
type ForwardQueue interface {
	CreateForwardTask(ctx context.Context, task *models.ForwardTask) error
	GetForwardTask(ctx context.Context, id int64) (*models.ForwardTask, error)
	GetPendingForwardTasks(ctx context.Context, limit int) ([]models.ForwardTask, error)
	UpdateForwardTaskStatus(ctx context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error
}

// ForwardWorker fans reservation changes out to every registered sink, one
// persisted task per sink so each retries independently.
type ForwardWorker struct {
	db            ForwardQueue
	sinks         map[string]Sink
	redis         *redis.Client
	retryPolicy   RetryPolicy
	queue         chan models.ForwardTask
	redisQueueKey string
	deadLetterKey string
	pollInterval  time.Duration
	batchSize     int
	logger        *zerolog.Logger
}

func NewForwardWorker(db ForwardQueue, redisClient *redis.Client, retry RetryPolicy, pollInterval time.Duration, logger *zerolog.Logger, sinks ...Sink) *ForwardWorker {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 5
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 2 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = time.Minute
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	w := &ForwardWorker{
		db:            db,
		sinks:         make(map[string]Sink, len(sinks)),
		redis:         redisClient,
		retryPolicy:   retry,
		queue:         make(chan models.ForwardTask, models.WorkerQueueSize),
		redisQueueKey: "qt:forward:queue",
		deadLetterKey: "qt:forward:deadletter",
		pollInterval:  pollInterval,
		batchSize:     20,
		logger:        logger,
	}
	for _, s := range sinks {
		w.sinks[s.Name()] = s
	}
	return w
}

// AddSink registers s after construction. Call it before Start.
func (w *ForwardWorker) AddSink(s Sink) {
	w.sinks[s.Name()] = s
}

// Sinks lists the registered sink names.
func (w *ForwardWorker) Sinks() []string {
	names := make([]string, 0, len(w.sinks))
	for name := range w.sinks {
		names = append(names, name)
	}
	return names
}

func taskType(sink, kind string) string {
	return sink + ":" + kind
}

func splitTaskType(t string) (sink, kind string, ok bool) {
	return strings.Cut(t, ":")
}

// EnqueueTask persists one task per sink and schedules it via redis or the
// in-memory queue. Tasks that fit neither are picked up by polling.
func (w *ForwardWorker) EnqueueTask(ctx context.Context, kind string, reservation *models.Reservation, restaurantName string) error {
	if kind == "" {
		return errors.New("task kind is required")
	}
	if reservation == nil || reservation.ID == "" {
		return errors.New("reservation id is required")
	}

	payload, err := json.Marshal(Snapshot{Reservation: *reservation, RestaurantName: restaurantName})
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	var errs []error
	for name := range w.sinks {
		task := models.ForwardTask{
			TaskType:      taskType(name, kind),
			ReservationID: reservation.ID,
			Payload:       string(payload),
			Status:        models.TaskStatusPending,
		}
		if err := w.db.CreateForwardTask(ctx, &task); err != nil {
			errs = append(errs, fmt.Errorf("persist %s task: %w", name, err))
			continue
		}
		w.schedule(ctx, task)
	}
	return errors.Join(errs...)
}

func (w *ForwardWorker) schedule(ctx context.Context, task models.ForwardTask) {
	if w.redis != nil {
		if err := w.pushRedis(ctx, w.redisQueueKey, task); err != nil {
			w.logger.Warn().Err(err).Int64("task_id", task.ID).Msg("redis push failed, falling back to memory queue")
		} else {
			return
		}
	}

	select {
	case w.queue <- task:
	default:
		w.logger.Warn().Int64("task_id", task.ID).Msg("in-memory queue full, task left to polling")
	}
}

// Start runs the delivery loop until ctx is done.
func (w *ForwardWorker) Start(ctx context.Context) {
	w.logger.Info().Strs("sinks", w.Sinks()).Msg("forward worker started")
	defer w.logger.Info().Msg("forward worker stopped")

	for {
		if ctx.Err() != nil {
			return
		}

		if t, ok := w.tryLocalQueue(); ok {
			w.processQueued(ctx, &t)
			continue
		}
		if t, ok := w.tryRedis(ctx); ok {
			w.processQueued(ctx, &t)
			continue
		}

		n, err := w.ProcessPending(ctx)
		if err != nil {
			w.logger.Error().Err(err).Msg("fetch pending forward tasks")
		}
		if err != nil || n == 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.pollInterval):
			}
		}
	}
}

// ProcessPending delivers one batch of due tasks from the database and
// returns how many it attempted.
func (w *ForwardWorker) ProcessPending(ctx context.Context) (int, error) {
	tasks, err := w.db.GetPendingForwardTasks(ctx, w.batchSize)
	if err != nil {
		return 0, err
	}
	for i := range tasks {
		w.processTask(ctx, &tasks[i])
	}
	return len(tasks), nil
}

func (w *ForwardWorker) tryLocalQueue() (models.ForwardTask, bool) {
	select {
	case t := <-w.queue:
		return t, true
	default:
		return models.ForwardTask{}, false
	}
}

func (w *ForwardWorker) tryRedis(ctx context.Context) (models.ForwardTask, bool) {
	if w.redis == nil {
		return models.ForwardTask{}, false
	}
	res, err := w.redis.BRPop(ctx, time.Second, w.redisQueueKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			w.logger.Warn().Err(err).Msg("redis BRPOP error")
		}
		return models.ForwardTask{}, false
	}
	if len(res) != 2 {
		return models.ForwardTask{}, false
	}
	var task models.ForwardTask
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		w.logger.Error().Err(err).Msg("decode redis task")
		return models.ForwardTask{}, false
	}
	return task, true
}

// processQueued skips tasks that polling already settled.
func (w *ForwardWorker) processQueued(ctx context.Context, task *models.ForwardTask) {
	current, err := w.db.GetForwardTask(ctx, task.ID)
	if err != nil {
		w.logger.Warn().Err(err).Int64("task_id", task.ID).Msg("queued task lookup failed")
		return
	}
	if current.Status == models.TaskStatusCompleted || current.Status == models.TaskStatusFailed {
		return
	}
	w.processTask(ctx, current)
}

func (w *ForwardWorker) processTask(ctx context.Context, task *models.ForwardTask) {
	log := w.logger.With().Int64("task_id", task.ID).Str("task_type", task.TaskType).Str("reservation_id", task.ReservationID).Logger()

	sinkName, kind, ok := splitTaskType(task.TaskType)
	sink, found := w.sinks[sinkName]
	if !ok || !found {
		w.failTask(ctx, task, fmt.Errorf("no sink for task type %q", task.TaskType))
		return
	}

	var snap Snapshot
	if err := json.Unmarshal([]byte(task.Payload), &snap); err != nil {
		w.failTask(ctx, task, fmt.Errorf("decode payload: %w", err))
		return
	}

	if err := sink.Deliver(ctx, kind, snap); err != nil {
		log.Warn().Err(err).Int("attempt", task.RetryCount+1).Msg("forward delivery failed")
		w.retryOrFail(ctx, task, err)
		return
	}

	metrics.IncForwardTask(task.TaskType, models.TaskStatusCompleted)
	if err := w.db.UpdateForwardTaskStatus(ctx, task.ID, models.TaskStatusCompleted, "", nil); err != nil {
		log.Error().Err(err).Msg("mark completed")
	}
}

func (w *ForwardWorker) retryOrFail(ctx context.Context, task *models.ForwardTask, cause error) {
	attempt := task.RetryCount + 1
	if attempt >= w.retryPolicy.MaxRetries {
		w.failTask(ctx, task, cause)
		return
	}

	metrics.IncForwardTask(task.TaskType, models.TaskStatusRetry)
	next := time.Now().Add(w.retryPolicy.NextDelay(attempt))
	if err := w.db.UpdateForwardTaskStatus(ctx, task.ID, models.TaskStatusRetry, cause.Error(), &next); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("mark retry")
	}
}

func (w *ForwardWorker) failTask(ctx context.Context, task *models.ForwardTask, cause error) {
	metrics.IncForwardTask(task.TaskType, models.TaskStatusFailed)
	w.logger.Error().Err(cause).Int64("task_id", task.ID).Str("task_type", task.TaskType).Msg("forward task failed permanently")
	if err := w.db.UpdateForwardTaskStatus(ctx, task.ID, models.TaskStatusFailed, cause.Error(), nil); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("mark failed")
	}
	if w.redis != nil {
		if err := w.pushRedis(ctx, w.deadLetterKey, *task); err != nil {
			w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("deadletter push")
		}
	}
}

func (w *ForwardWorker) pushRedis(ctx context.Context, key string, task models.ForwardTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return w.redis.LPush(ctx, key, data).Err()
}
