package services

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/wisecare-health/sos-gateway/pkg/metrics"
	"github.com/wisecare-health/sos-gateway/pkg/models"
)

// StatsSnapshot is the aggregate view behind the dashboards' analytics cards
type StatsSnapshot struct {
	Total             int                        `json:"total"`
	ByStatus          map[models.AlertStatus]int `json:"byStatus"`
	Active            int                        `json:"active"`
	AvgAssignSeconds  float64                    `json:"avgAssignSeconds"`
	AvgResolveSeconds float64                    `json:"avgResolveSeconds"`
	GeneratedAt       time.Time                  `json:"generatedAt"`
}

// StatsService recomputes the analytics snapshot on a cron schedule and
// mirrors the status partition sizes into Prometheus gauges.
type StatsService struct {
	triage *TriageService
	cron   *cron.Cron

	mu     sync.RWMutex
	latest StatsSnapshot
}

// NewStatsService creates a stats service refreshing on the given cron spec
func NewStatsService(triage *TriageService, schedule string) (*StatsService, error) {
	s := &StatsService{
		triage: triage,
		cron:   cron.New(),
	}
	if _, err := s.cron.AddFunc(schedule, s.Refresh); err != nil {
		return nil, err
	}
	return s, nil
}

// Start computes an initial snapshot and begins the schedule
func (s *StatsService) Start() {
	s.Refresh()
	s.cron.Start()
}

// Stop halts the schedule
func (s *StatsService) Stop() {
	s.cron.Stop()
}

// Latest returns the most recently computed snapshot
func (s *StatsService) Latest() StatsSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// Refresh recomputes the snapshot from the triage service's current alert set
func (s *StatsService) Refresh() {
	alerts := s.triage.AlertsSnapshot()

	snapshot := StatsSnapshot{
		ByStatus:    make(map[models.AlertStatus]int),
		GeneratedAt: time.Now(),
	}

	var assignTotal, resolveTotal time.Duration
	var assignCount, resolveCount int

	for i := range alerts {
		alert := &alerts[i]
		snapshot.Total++
		snapshot.ByStatus[alert.Status]++
		if alert.IsActive() {
			snapshot.Active++
		}
		if alert.AssignedAt != nil {
			assignTotal += alert.AssignedAt.Sub(alert.CreatedAt)
			assignCount++
		}
		if alert.ResolvedAt != nil && alert.AssignedAt != nil {
			resolveTotal += alert.ResolvedAt.Sub(*alert.AssignedAt)
			resolveCount++
		}
	}

	if assignCount > 0 {
		snapshot.AvgAssignSeconds = assignTotal.Seconds() / float64(assignCount)
	}
	if resolveCount > 0 {
		snapshot.AvgResolveSeconds = resolveTotal.Seconds() / float64(resolveCount)
	}

	for _, status := range []models.AlertStatus{
		models.AlertStatusPending,
		models.AlertStatusAssigned,
		models.AlertStatusResolved,
		models.AlertStatusCancelled,
	} {
		metrics.AlertsByStatus.WithLabelValues(string(status)).Set(float64(snapshot.ByStatus[status]))
	}

	s.mu.Lock()
	s.latest = snapshot
	s.mu.Unlock()

	logrus.Debugf("Stats snapshot refreshed: %d alerts, %d active", snapshot.Total, snapshot.Active)
}
