package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appErrors "github.com/unclebandit/nanis-backend/internal/errors"
	"github.com/unclebandit/nanis-backend/internal/model"
	"github.com/unclebandit/nanis-backend/internal/queue"
	"github.com/unclebandit/nanis-backend/internal/service"
)

func timePtr(t time.Time) *time.Time { return &t }

func TestEvaluateSchedule(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		status      string
		scheduledAt *time.Time
		wantDue     bool
		wantStatus  string
	}{
		{"scheduled without time sends now", model.CampaignStatusScheduled, nil, true, model.CampaignStatusSending},
		{"scheduled in the past", model.CampaignStatusScheduled, timePtr(now.Add(-time.Minute)), true, model.CampaignStatusSending},
		{"scheduled exactly now", model.CampaignStatusScheduled, timePtr(now), true, model.CampaignStatusSending},
		{"scheduled in the future", model.CampaignStatusScheduled, timePtr(now.Add(time.Second)), false, model.CampaignStatusScheduled},
		{"draft is ignored", model.CampaignStatusDraft, nil, false, model.CampaignStatusDraft},
		{"paused is ignored", model.CampaignStatusPaused, timePtr(now.Add(-time.Hour)), false, model.CampaignStatusPaused},
		{"sending is ignored", model.CampaignStatusSending, nil, false, model.CampaignStatusSending},
		{"sent is ignored", model.CampaignStatusSent, nil, false, model.CampaignStatusSent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &model.Campaign{ID: uuid.New(), Status: tt.status, ScheduledAt: tt.scheduledAt}
			got := service.EvaluateSchedule(c, now)
			assert.Equal(t, tt.wantDue, got.Due)
			assert.Equal(t, tt.wantStatus, got.Status)
		})
	}
}

func TestEvaluateScheduleLaterTick(t *testing.T) {
	start := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	c := &model.Campaign{Status: model.CampaignStatusScheduled, ScheduledAt: timePtr(start.Add(time.Hour))}

	assert.False(t, service.EvaluateSchedule(c, start).Due)
	assert.True(t, service.EvaluateSchedule(c, start.Add(2*time.Hour)).Due)
}

// fakeScheduleRepo keeps campaign statuses in memory and performs the same
// conditional update as the SQL repository.
type fakeScheduleRepo struct {
	mu        sync.Mutex
	campaigns map[uuid.UUID]*model.Campaign
	listGate  *sync.WaitGroup
	casErr    error
	afterGet  func()
}

func newFakeScheduleRepo(cs ...*model.Campaign) *fakeScheduleRepo {
	r := &fakeScheduleRepo{campaigns: map[uuid.UUID]*model.Campaign{}}
	for _, c := range cs {
		r.campaigns[c.ID] = c
	}
	return r
}

func (r *fakeScheduleRepo) status(id uuid.UUID) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.campaigns[id].Status
}

func (r *fakeScheduleRepo) ListDueScheduled(ctx context.Context, now time.Time, limit int) ([]*model.Campaign, error) {
	r.mu.Lock()
	out := []*model.Campaign{}
	for _, c := range r.campaigns {
		if c.Status == model.CampaignStatusScheduled && (c.ScheduledAt == nil || !c.ScheduledAt.After(now)) && len(out) < limit {
			cp := *c
			out = append(out, &cp)
		}
	}
	r.mu.Unlock()

	if r.listGate != nil {
		// every caller lists before anyone transitions
		r.listGate.Done()
		r.listGate.Wait()
	}
	return out, nil
}

func (r *fakeScheduleRepo) TransitionStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.casErr != nil {
		return false, r.casErr
	}
	c, ok := r.campaigns[id]
	if !ok || c.Status != from {
		return false, nil
	}
	c.Status = to
	return true, nil
}

func (r *fakeScheduleRepo) Create(ctx context.Context, c *model.Campaign) error { return nil }
func (r *fakeScheduleRepo) Update(ctx context.Context, c *model.Campaign, fromStatus string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.campaigns[c.ID]
	if !ok {
		return appErrors.NewCampaignNotFound(c.ID)
	}
	if existing.Status != fromStatus {
		return appErrors.NewConflict("campaign changed status while being edited")
	}
	*existing = *c
	return nil
}

// GetByID returns a copy, then runs afterGet so a test can interleave a
// scheduler tick between an edit's read and its write.
func (r *fakeScheduleRepo) GetByID(ctx context.Context, orgID, id uuid.UUID) (*model.Campaign, error) {
	r.mu.Lock()
	c, ok := r.campaigns[id]
	var cp model.Campaign
	if ok {
		cp = *c
	}
	r.mu.Unlock()
	if !ok || cp.OrganizationID != orgID {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	if r.afterGet != nil {
		hook := r.afterGet
		r.afterGet = nil
		hook()
	}
	return &cp, nil
}
func (r *fakeScheduleRepo) ListCampaigns(ctx context.Context, orgID uuid.UUID, offset, limit int, status string) ([]*model.Campaign, int, error) {
	return nil, 0, nil
}
func (r *fakeScheduleRepo) GetTargetRules(ctx context.Context, orgID, campaignID uuid.UUID) (*model.CampaignTargetRules, error) {
	return nil, nil
}
func (r *fakeScheduleRepo) UpsertTargetRules(ctx context.Context, rules *model.CampaignTargetRules) error {
	return nil
}
func (r *fakeScheduleRepo) GetCampaignStats(ctx context.Context, campaignID uuid.UUID) (map[string]int, error) {
	return map[string]int{}, nil
}

type recordingPipeline struct {
	mu   sync.Mutex
	msgs []queue.HandoffMessage
	err  error
}

func (p *recordingPipeline) Handoff(ctx context.Context, msg queue.HandoffMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *recordingPipeline) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.msgs)
}

func TestProcessDueHandsOffDueCampaigns(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	org := uuid.New()
	immediate := &model.Campaign{ID: uuid.New(), OrganizationID: org, Status: model.CampaignStatusScheduled}
	past := &model.Campaign{ID: uuid.New(), OrganizationID: org, Status: model.CampaignStatusScheduled, ScheduledAt: timePtr(now.Add(-time.Hour))}
	future := &model.Campaign{ID: uuid.New(), OrganizationID: org, Status: model.CampaignStatusScheduled, ScheduledAt: timePtr(now.Add(time.Hour))}
	draft := &model.Campaign{ID: uuid.New(), OrganizationID: org, Status: model.CampaignStatusDraft}

	repo := newFakeScheduleRepo(immediate, past, future, draft)
	pipeline := &recordingPipeline{}
	svc := service.NewScheduleService(repo, pipeline, zap.NewNop())

	res, err := svc.ProcessDue(context.Background(), now, 5)

	require.NoError(t, err)
	assert.Equal(t, 2, res.Evaluated)
	assert.Equal(t, 2, res.HandedOff)
	assert.ElementsMatch(t, []uuid.UUID{immediate.ID, past.ID}, res.CampaignIDs)
	assert.Equal(t, model.CampaignStatusSending, repo.status(immediate.ID))
	assert.Equal(t, model.CampaignStatusSending, repo.status(past.ID))
	assert.Equal(t, model.CampaignStatusScheduled, repo.status(future.ID))
	assert.Equal(t, model.CampaignStatusDraft, repo.status(draft.ID))

	require.Equal(t, 2, pipeline.count())
	for _, m := range pipeline.msgs {
		assert.Equal(t, org, m.OrganizationID)
		assert.Equal(t, now, m.HandedOffAt)
	}

	// a second run finds nothing left to do
	res, err = svc.ProcessDue(context.Background(), now, 5)
	require.NoError(t, err)
	assert.Zero(t, res.HandedOff)
	assert.Equal(t, 2, pipeline.count())
}

func TestProcessDueFutureCampaignFiresOnLaterRun(t *testing.T) {
	start := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	c := &model.Campaign{ID: uuid.New(), Status: model.CampaignStatusScheduled, ScheduledAt: timePtr(start.Add(time.Hour))}
	repo := newFakeScheduleRepo(c)
	pipeline := &recordingPipeline{}
	svc := service.NewScheduleService(repo, pipeline, nil)

	res, err := svc.ProcessDue(context.Background(), start, 5)
	require.NoError(t, err)
	assert.Zero(t, res.HandedOff)
	assert.Equal(t, model.CampaignStatusScheduled, repo.status(c.ID))

	res, err = svc.ProcessDue(context.Background(), start.Add(2*time.Hour), 5)
	require.NoError(t, err)
	assert.Equal(t, 1, res.HandedOff)
	assert.Equal(t, model.CampaignStatusSending, repo.status(c.ID))
}

func TestProcessDueConcurrentRunsHandOffOnce(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	c := &model.Campaign{ID: uuid.New(), OrganizationID: uuid.New(), Status: model.CampaignStatusScheduled}

	const runs = 8
	repo := newFakeScheduleRepo(c)
	repo.listGate = &sync.WaitGroup{}
	repo.listGate.Add(runs)
	pipeline := &recordingPipeline{}
	svc := service.NewScheduleService(repo, pipeline, zap.NewNop())

	var wg sync.WaitGroup
	results := make([]*service.ProcessResult, runs)
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := svc.ProcessDue(context.Background(), now, 5)
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, pipeline.count())
	handedOff, skipped := 0, 0
	for _, r := range results {
		handedOff += r.HandedOff
		skipped += r.Skipped
	}
	assert.Equal(t, 1, handedOff)
	assert.Equal(t, runs-1, skipped)
}

func TestProcessDueHandoffFailureIsNotRetried(t *testing.T) {
	now := time.Now()
	c := &model.Campaign{ID: uuid.New(), Status: model.CampaignStatusScheduled}
	repo := newFakeScheduleRepo(c)
	pipeline := &recordingPipeline{err: errors.New("broker down")}
	svc := service.NewScheduleService(repo, pipeline, zap.NewNop())

	res, err := svc.ProcessDue(context.Background(), now, 5)

	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, model.CampaignStatusSending, repo.status(c.ID))

	res, err = svc.ProcessDue(context.Background(), now, 5)
	require.NoError(t, err)
	assert.Zero(t, res.Evaluated)
}

func TestProcessDueTransitionError(t *testing.T) {
	c := &model.Campaign{ID: uuid.New(), Status: model.CampaignStatusScheduled}
	repo := newFakeScheduleRepo(c)
	repo.casErr = errors.New("deadlock detected")
	pipeline := &recordingPipeline{}
	svc := service.NewScheduleService(repo, pipeline, zap.NewNop())

	res, err := svc.ProcessDue(context.Background(), time.Now(), 5)

	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
	assert.Zero(t, pipeline.count())
}

func TestProcessDueCancelled(t *testing.T) {
	c := &model.Campaign{ID: uuid.New(), Status: model.CampaignStatusScheduled}
	repo := newFakeScheduleRepo(c)
	pipeline := &recordingPipeline{}
	svc := service.NewScheduleService(repo, pipeline, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.ProcessDue(ctx, time.Now(), 5)

	assert.True(t, appErrors.IsStorage(err))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, pipeline.count())
	assert.Equal(t, model.CampaignStatusScheduled, repo.status(c.ID))
}

func TestEditRacingTickHandsOffOnce(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	org := uuid.New()
	c := &model.Campaign{ID: uuid.New(), OrganizationID: org, Name: "Launch", Status: model.CampaignStatusScheduled}
	repo := newFakeScheduleRepo(c)
	pipeline := &recordingPipeline{}
	scheduler := service.NewScheduleService(repo, pipeline, zap.NewNop())
	campaigns := &service.CampaignService{CampaignRepo: repo}

	// the tick lands after the edit has read the campaign as scheduled
	repo.afterGet = func() {
		res, err := scheduler.ProcessDue(context.Background(), now, 5)
		require.NoError(t, err)
		require.Equal(t, 1, res.HandedOff)
	}

	_, err := campaigns.UpdateCampaign(context.Background(), org, c.ID, service.UpdateCampaignInput{
		Name:   strPtr("Launch v2"),
		Status: strPtr(model.CampaignStatusScheduled),
	})
	assert.True(t, appErrors.IsConflict(err))
	assert.Equal(t, model.CampaignStatusSending, repo.status(c.ID))

	res, err := scheduler.ProcessDue(context.Background(), now.Add(time.Minute), 5)
	require.NoError(t, err)
	assert.Zero(t, res.HandedOff)
	assert.Equal(t, 1, pipeline.count())
}
