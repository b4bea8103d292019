package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/VitorRandrade/omnibot-hub-api/internal/usecases"
)

const (
	TaskDeliverMessage = "delivery:send"
	deliveryQueue      = "delivery"
	deliveryMaxRetry   = 5
)

// QueueClient enqueues outbound delivery jobs. Satisfies the ingestion
// side's DeliveryQueue port.
type QueueClient struct {
	client *asynq.Client
}

func NewQueueClient(redisURL string) (*QueueClient, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis uri: %w", err)
	}
	return &QueueClient{client: asynq.NewClient(opt)}, nil
}

func (q *QueueClient) EnqueueDelivery(ctx context.Context, job usecases.DeliveryJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal delivery job: %w", err)
	}
	task := asynq.NewTask(TaskDeliverMessage, payload,
		asynq.Queue(deliveryQueue),
		asynq.MaxRetry(deliveryMaxRetry),
	)
	if _, err := q.client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("enqueue delivery: %w", err)
	}
	return nil
}

func (q *QueueClient) Close() error {
	return q.client.Close()
}

// QueueServer runs the background worker that drains the delivery queue.
type QueueServer struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	log    zerolog.Logger
}

func NewQueueServer(redisURL string, concurrency int, log zerolog.Logger) (*QueueServer, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis uri: %w", err)
	}
	if concurrency <= 0 {
		concurrency = 5
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{deliveryQueue: 10},
	})
	return &QueueServer{
		server: server,
		mux:    asynq.NewServeMux(),
		log:    log.With().Str("component", "queue").Logger(),
	}, nil
}

// RegisterDeliveryHandler wires the delivery usecase as the consumer of
// delivery:send tasks.
func (s *QueueServer) RegisterDeliveryHandler(delivery *usecases.DeliveryUsecase) {
	s.mux.HandleFunc(TaskDeliverMessage, func(ctx context.Context, t *asynq.Task) error {
		var job usecases.DeliveryJob
		if err := json.Unmarshal(t.Payload(), &job); err != nil {
			// Malformed payloads never become valid; skip retries.
			s.log.Error().Err(err).Msg("dropping malformed delivery task")
			return nil
		}
		return delivery.Deliver(ctx, job)
	})
}

// Run blocks processing tasks until ctx is cancelled, then shuts down
// gracefully.
func (s *QueueServer) Run(ctx context.Context) error {
	if err := s.server.Start(s.mux); err != nil {
		return fmt.Errorf("start queue server: %w", err)
	}
	<-ctx.Done()
	s.server.Shutdown()
	return nil
}
