// internal/service/schedule_evaluator.go
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/unclebandit/nanis-backend/internal/errors"
	"github.com/unclebandit/nanis-backend/internal/metrics"
	"github.com/unclebandit/nanis-backend/internal/model"
	"github.com/unclebandit/nanis-backend/internal/queue"
	"github.com/unclebandit/nanis-backend/internal/repository"
)

// ScheduleDecision is the outcome of evaluating one campaign at one instant.
type ScheduleDecision struct {
	Due    bool
	Status string
}

// EvaluateSchedule decides whether c should move to sending at now. Only
// scheduled campaigns are ever due; a nil scheduled_at means send immediately.
func EvaluateSchedule(c *model.Campaign, now time.Time) ScheduleDecision {
	if c.Status != model.CampaignStatusScheduled {
		return ScheduleDecision{Status: c.Status}
	}
	if c.ScheduledAt == nil || !c.ScheduledAt.After(now) {
		return ScheduleDecision{Due: true, Status: model.CampaignStatusSending}
	}
	return ScheduleDecision{Status: model.CampaignStatusScheduled}
}

// Handoff delivers a campaign that just entered sending to the send pipeline.
type Handoff interface {
	Handoff(ctx context.Context, msg queue.HandoffMessage) error
}

// ProcessResult summarizes one ProcessDue run.
type ProcessResult struct {
	Evaluated   int         `json:"processed"`
	HandedOff   int         `json:"handed_off"`
	Skipped     int         `json:"skipped"`
	Failed      int         `json:"failed"`
	CampaignIDs []uuid.UUID `json:"campaign_ids"`
}

type ScheduleService struct {
	CampaignRepo repository.CampaignRepositoryInterface
	Pipeline     Handoff
	Logger       *zap.Logger
}

func NewScheduleService(repo repository.CampaignRepositoryInterface, pipeline Handoff, log *zap.Logger) *ScheduleService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ScheduleService{CampaignRepo: repo, Pipeline: pipeline, Logger: log}
}

// ProcessDue evaluates up to maxCampaigns scheduled campaigns at now. A campaign is
// handed off only by the caller whose conditional update moved it out of
// scheduled, so overlapping runs never hand off the same campaign twice.
func (s *ScheduleService) ProcessDue(ctx context.Context, now time.Time, maxCampaigns int) (*ProcessResult, error) {
	metrics.SchedulerRuns.Inc()

	candidates, err := s.CampaignRepo.ListDueScheduled(ctx, now, maxCampaigns)
	if err != nil {
		return nil, appErrors.NewStorage("list scheduled campaigns", err)
	}

	res := &ProcessResult{CampaignIDs: []uuid.UUID{}}
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return res, appErrors.NewStorage("process scheduled campaigns", err)
		}
		res.Evaluated++
		log := s.Logger.With(zap.String("campaign_id", c.ID.String()), zap.String("organization_id", c.OrganizationID.String()))

		if !EvaluateSchedule(c, now).Due {
			res.Skipped++
			metrics.SchedulerCampaigns.WithLabelValues("not_due").Inc()
			continue
		}

		won, err := s.CampaignRepo.TransitionStatus(ctx, c.ID, model.CampaignStatusScheduled, model.CampaignStatusSending)
		if err != nil {
			res.Failed++
			metrics.SchedulerCampaigns.WithLabelValues("error").Inc()
			log.Error("failed to move campaign to sending", zap.Error(err))
			continue
		}
		if !won {
			res.Skipped++
			metrics.SchedulerCampaigns.WithLabelValues("lost_race").Inc()
			log.Debug("campaign already picked up by another run")
			continue
		}

		msg := queue.HandoffMessage{CampaignID: c.ID, OrganizationID: c.OrganizationID, HandedOffAt: now}
		if err := s.Pipeline.Handoff(ctx, msg); err != nil {
			// the campaign stays in sending; the pipeline owns recovery from here
			res.Failed++
			metrics.SchedulerCampaigns.WithLabelValues("handoff_failed").Inc()
			log.Error("campaign moved to sending but handoff failed", zap.Error(err))
			continue
		}

		res.HandedOff++
		res.CampaignIDs = append(res.CampaignIDs, c.ID)
		metrics.SchedulerCampaigns.WithLabelValues("handed_off").Inc()
		log.Info("campaign handed off to send pipeline")
	}

	return res, nil
}
