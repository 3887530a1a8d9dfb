package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/npspulse/backend/internal/channel"
	"github.com/npspulse/backend/internal/dispatch"
	"github.com/npspulse/backend/internal/models"
	"github.com/npspulse/backend/internal/queue"
	"github.com/npspulse/backend/internal/store"
	"github.com/npspulse/backend/internal/survey"
)

type fakeAdapter struct {
	calls []channel.SendRequest
	err   error
}

func (a *fakeAdapter) SendSurvey(ctx context.Context, req channel.SendRequest) (*channel.SendResult, error) {
	a.calls = append(a.calls, req)
	if a.err != nil {
		return nil, a.err
	}
	return &channel.SendResult{MessageID: "msg-" + req.To}, nil
}

type fakeLocker struct {
	held map[string]bool
}

func (l *fakeLocker) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	if l.held[key] {
		return false, nil
	}
	if l.held == nil {
		l.held = map[string]bool{}
	}
	l.held[key] = true
	return true, nil
}

type fakeRequeuer struct {
	payloads []queue.SurveySendPayload
	delays   []time.Duration
}

func (r *fakeRequeuer) EnqueueSurveySend(payload queue.SurveySendPayload, delay time.Duration) error {
	r.payloads = append(r.payloads, payload)
	r.delays = append(r.delays, delay)
	return nil
}

type fixture struct {
	worker   *SendWorker
	store    store.Store
	adapter  *fakeAdapter
	requeue  *fakeRequeuer
	locker   *fakeLocker
	tenantID uuid.UUID
	survey   *models.Survey
	batch    queue.SurveySendPayload
}

func newFixture(t *testing.T, recipients []models.Recipient) *fixture {
	t.Helper()
	st := store.NewMemory()
	surveys := survey.NewService(st)
	adapter := &fakeAdapter{}
	requeue := &fakeRequeuer{}
	locker := &fakeLocker{}

	tenantID := uuid.New()
	sv, err := surveys.Create(context.Background(), tenantID, uuid.New(), survey.CreateRequest{
		Title: "Suporte",
		Questions: []survey.QuestionInput{
			{Type: models.QuestionTypeNPS, Text: "Recomendaria?"},
		},
	})
	if err != nil {
		t.Fatalf("create survey: %v", err)
	}
	active := models.SurveyStatusActive
	if sv, err = surveys.Update(context.Background(), tenantID, sv.ID, survey.UpdateRequest{Status: &active}); err != nil {
		t.Fatalf("activate: %v", err)
	}

	enq := &fakeRequeuer{}
	disp := dispatch.NewService(st, surveys, enq)
	_, err = disp.SendSurvey(context.Background(), tenantID, sv.ID, dispatch.SendRequest{Recipients: recipients})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	adapters := map[string]channel.Adapter{models.ChannelEmail: adapter}
	return &fixture{
		worker:   NewSendWorker(st, surveys, requeue, adapters, locker),
		store:    st,
		adapter:  adapter,
		requeue:  requeue,
		locker:   locker,
		tenantID: tenantID,
		survey:   sv,
		batch:    enq.payloads[0],
	}
}

func (f *fixture) task(t *testing.T, payload queue.SurveySendPayload) *asynq.Task {
	t.Helper()
	task, err := queue.NewSurveySendTask(payload)
	if err != nil {
		t.Fatalf("build task: %v", err)
	}
	return task
}

func (f *fixture) sendRecord(t *testing.T, recipientID string) *models.Send {
	t.Helper()
	rec, err := f.store.Get(context.Background(), "SEND#"+f.batch.SendID.String(), "RECIPIENT#"+recipientID)
	if err != nil {
		t.Fatalf("get send record: %v", err)
	}
	var send models.Send
	if err := json.Unmarshal(rec.Data, &send); err != nil {
		t.Fatalf("decode send record: %v", err)
	}
	return &send
}

func TestProcessTaskDeliversBatch(t *testing.T) {
	f := newFixture(t, []models.Recipient{
		{Email: "a@example.com", Name: "Ana"},
		{Email: "b@example.com"},
	})

	if err := f.worker.ProcessTask(context.Background(), f.task(t, f.batch)); err != nil {
		t.Fatalf("ProcessTask: %v", err)
	}
	if len(f.adapter.calls) != 2 {
		t.Fatalf("adapter called %d times, want 2", len(f.adapter.calls))
	}
	for _, addr := range []string{"a@example.com", "b@example.com"} {
		send := f.sendRecord(t, addr)
		if send.Status != models.SendStatusDelivered {
			t.Errorf("%s status = %q, want DELIVERED", addr, send.Status)
		}
		if send.MessageID != "msg-"+addr {
			t.Errorf("%s messageID = %q", addr, send.MessageID)
		}
		if send.DeliveredAt == nil || send.SentAt == nil {
			t.Errorf("%s missing sentAt/deliveredAt", addr)
		}
	}
}

func TestProcessTaskRecipientFailureDoesNotFailBatch(t *testing.T) {
	f := newFixture(t, []models.Recipient{
		{Email: "a@example.com"},
		{Email: "b@example.com"},
	})
	f.adapter.err = fmt.Errorf("provider rejected")

	if err := f.worker.ProcessTask(context.Background(), f.task(t, f.batch)); err != nil {
		t.Fatalf("ProcessTask should swallow per-recipient failures, got %v", err)
	}
	if len(f.adapter.calls) != 2 {
		t.Fatalf("adapter called %d times, want 2 (loop must continue)", len(f.adapter.calls))
	}
	for _, addr := range []string{"a@example.com", "b@example.com"} {
		send := f.sendRecord(t, addr)
		if send.Status != models.SendStatusFailed {
			t.Errorf("%s status = %q, want FAILED", addr, send.Status)
		}
		if send.ErrorMessage == "" || send.FailedAt == nil {
			t.Errorf("%s missing failure details", addr)
		}
	}
}

func TestProcessTaskSkipsTerminalRecipients(t *testing.T) {
	f := newFixture(t, []models.Recipient{{Email: "a@example.com"}})

	if err := f.worker.updateSend(context.Background(), f.batch.SendID, "a@example.com", func(s *models.Send) {
		s.Status = models.SendStatusDelivered
	}); err != nil {
		t.Fatalf("pre-set delivered: %v", err)
	}

	if err := f.worker.ProcessTask(context.Background(), f.task(t, f.batch)); err != nil {
		t.Fatalf("ProcessTask: %v", err)
	}
	if len(f.adapter.calls) != 0 {
		t.Fatalf("adapter called for an already-delivered recipient")
	}
}

func TestProcessTaskSkipsLockedRecipients(t *testing.T) {
	f := newFixture(t, []models.Recipient{{Email: "a@example.com"}})
	lockKey := fmt.Sprintf("send:lock:%s:%s", f.batch.SendID, "a@example.com")
	f.locker.held = map[string]bool{lockKey: true}

	if err := f.worker.ProcessTask(context.Background(), f.task(t, f.batch)); err != nil {
		t.Fatalf("ProcessTask: %v", err)
	}
	if len(f.adapter.calls) != 0 {
		t.Fatal("adapter called while delivery lock was held")
	}
	if send := f.sendRecord(t, "a@example.com"); send.Status != models.SendStatusPending {
		t.Errorf("status = %q, want PENDING left untouched", send.Status)
	}
}

func TestProcessTaskDefersFutureBatch(t *testing.T) {
	f := newFixture(t, []models.Recipient{{Email: "a@example.com"}})

	payload := f.batch
	payload.ScheduledAt = time.Now().Add(time.Hour).UTC()
	if err := f.worker.ProcessTask(context.Background(), f.task(t, payload)); err != nil {
		t.Fatalf("ProcessTask: %v", err)
	}
	if len(f.adapter.calls) != 0 {
		t.Fatal("adapter called before the batch was due")
	}
	if len(f.requeue.payloads) != 1 {
		t.Fatalf("requeued %d times, want 1", len(f.requeue.payloads))
	}
	if d := f.requeue.delays[0]; d > maxRequeueDelay || d <= 0 {
		t.Errorf("requeue delay = %v, want (0, %v]", d, maxRequeueDelay)
	}
}

func TestProcessTaskMissingSurveySkipsRetry(t *testing.T) {
	f := newFixture(t, []models.Recipient{{Email: "a@example.com"}})

	payload := f.batch
	payload.SurveyID = uuid.New()
	err := f.worker.ProcessTask(context.Background(), f.task(t, payload))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("err = %v, want asynq.SkipRetry", err)
	}
}
