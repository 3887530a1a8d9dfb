package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/npspulse/backend/internal/apperr"
	"github.com/npspulse/backend/internal/channel"
	"github.com/npspulse/backend/internal/metrics"
	"github.com/npspulse/backend/internal/models"
	"github.com/npspulse/backend/internal/queue"
	"github.com/npspulse/backend/internal/store"
	"github.com/npspulse/backend/internal/survey"
)

// maxRequeueDelay caps how far a single deferral can push a scheduled
// batch; batches scheduled further out hop through the queue in steps.
const maxRequeueDelay = 15 * time.Minute

// lockTTL bounds how long a (batch, recipient) delivery lock is held when
// the worker dies mid-flight.
const lockTTL = 10 * time.Minute

// Requeuer re-enqueues a batch that is not due yet.
type Requeuer interface {
	EnqueueSurveySend(payload queue.SurveySendPayload, delay time.Duration) error
}

// Locker takes short-lived delivery locks so a redelivered batch cannot
// double-send a recipient that is currently in flight.
type Locker interface {
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)
}

// SendWorker processes survey delivery batches. One task covers a whole
// batch; recipients are handled sequentially and a single recipient's
// failure never fails the batch.
type SendWorker struct {
	store    store.Store
	surveys  *survey.Service
	queue    Requeuer
	adapters map[string]channel.Adapter
	locks    Locker
}

func NewSendWorker(st store.Store, surveys *survey.Service, q Requeuer, adapters map[string]channel.Adapter, locks Locker) *SendWorker {
	return &SendWorker{
		store:    st,
		surveys:  surveys,
		queue:    q,
		adapters: adapters,
		locks:    locks,
	}
}

func sendPK(batchID uuid.UUID) string { return "SEND#" + batchID.String() }
func recipientSK(addr string) string  { return "RECIPIENT#" + addr }

func (w *SendWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.SurveySendPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal survey send payload: %v: %w", err, asynq.SkipRetry)
	}

	log := slog.With("send_id", payload.SendID, "survey_id", payload.SurveyID, "tenant_id", payload.TenantID)

	sv, err := w.surveys.Get(ctx, payload.TenantID, payload.SurveyID)
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) && appErr.Code == "SURVEY_NOT_FOUND" {
			log.Error("survey gone, dropping send batch")
			return fmt.Errorf("survey %s not found: %w", payload.SurveyID, asynq.SkipRetry)
		}
		return fmt.Errorf("load survey: %w", err)
	}

	if delay := time.Until(payload.ScheduledAt); delay > 0 {
		if delay > maxRequeueDelay {
			delay = maxRequeueDelay
		}
		log.Info("send batch not due yet, deferring", "delay", delay)
		return w.queue.EnqueueSurveySend(payload, delay)
	}

	adapter, ok := w.adapters[payload.Channel]
	if !ok {
		log.Error("no adapter for channel", "channel", payload.Channel)
		return fmt.Errorf("unknown channel %q: %w", payload.Channel, asynq.SkipRetry)
	}

	for _, r := range payload.Recipients {
		w.deliver(ctx, log, sv, payload, adapter, r)
	}
	return nil
}

// deliver handles a single recipient. All failure paths log and return;
// the batch loop always moves on.
func (w *SendWorker) deliver(ctx context.Context, log *slog.Logger, sv *models.Survey, payload queue.SurveySendPayload, adapter channel.Adapter, r models.Recipient) {
	log = log.With("recipient", r.ID())

	send, err := w.loadSend(ctx, payload.SendID, r.ID())
	if err != nil {
		log.Error("load send record failed", "error", err)
		return
	}
	if models.SendStatusTerminal(send.Status) {
		log.Info("recipient already in terminal state, skipping", "status", send.Status)
		return
	}

	lockKey := fmt.Sprintf("send:lock:%s:%s", payload.SendID, r.ID())
	locked, err := w.locks.SetNX(ctx, lockKey, "1", lockTTL)
	if err != nil {
		log.Error("delivery lock failed", "error", err)
		return
	}
	if !locked {
		log.Info("delivery already in flight, skipping")
		return
	}

	if err := w.updateSend(ctx, payload.SendID, r.ID(), func(s *models.Send) {
		now := time.Now().UTC()
		s.Status = models.SendStatusSent
		s.SentAt = &now
	}); err != nil {
		log.Error("mark send in progress failed", "error", err)
		return
	}

	to := r.Email
	if payload.Channel == models.ChannelWhatsApp {
		to = r.Phone
	}

	timer := prometheus.NewTimer(metrics.SendDuration.WithLabelValues(payload.Channel))
	result, err := adapter.SendSurvey(ctx, channel.SendRequest{
		To:     to,
		Name:   r.Name,
		Survey: sv,
		SendID: payload.SendID,
	})
	timer.ObserveDuration()

	if err != nil {
		metrics.SendsAttemptedTotal.WithLabelValues(payload.Channel, "failed").Inc()
		log.Error("delivery failed", "error", err)
		if uerr := w.updateSend(ctx, payload.SendID, r.ID(), func(s *models.Send) {
			now := time.Now().UTC()
			s.Status = models.SendStatusFailed
			s.FailedAt = &now
			s.ErrorMessage = err.Error()
		}); uerr != nil {
			log.Error("mark send failed failed", "error", uerr)
		}
		return
	}

	metrics.SendsAttemptedTotal.WithLabelValues(payload.Channel, "delivered").Inc()
	if err := w.updateSend(ctx, payload.SendID, r.ID(), func(s *models.Send) {
		now := time.Now().UTC()
		s.Status = models.SendStatusDelivered
		s.DeliveredAt = &now
		s.MessageID = result.MessageID
	}); err != nil {
		log.Error("mark send delivered failed", "error", err)
		return
	}
	log.Info("delivered", "message_id", result.MessageID)
}

func (w *SendWorker) loadSend(ctx context.Context, batchID uuid.UUID, recipientID string) (*models.Send, error) {
	rec, err := w.store.Get(ctx, sendPK(batchID), recipientSK(recipientID))
	if err != nil {
		return nil, err
	}
	var send models.Send
	if err := json.Unmarshal(rec.Data, &send); err != nil {
		return nil, fmt.Errorf("decode send record: %w", err)
	}
	return &send, nil
}

func (w *SendWorker) updateSend(ctx context.Context, batchID uuid.UUID, recipientID string, mutate func(*models.Send)) error {
	_, err := w.store.Update(ctx, sendPK(batchID), recipientSK(recipientID), func(rec *store.Record) error {
		var send models.Send
		if err := json.Unmarshal(rec.Data, &send); err != nil {
			return fmt.Errorf("decode send record: %w", err)
		}
		mutate(&send)
		send.UpdatedAt = time.Now().UTC()
		data, err := json.Marshal(send)
		if err != nil {
			return fmt.Errorf("encode send record: %w", err)
		}
		rec.Data = data
		return nil
	})
	return err
}
