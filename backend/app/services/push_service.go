package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"fota-manager/backend/app/apperr"
	"fota-manager/backend/app/metrics"
	"fota-manager/backend/app/models"
	"fota-manager/backend/app/repo"
	"fota-manager/backend/global"

	"github.com/google/uuid"
)

type PushState string

const (
	PushPending    PushState = "Pending"
	PushInProgress PushState = "InProgress"
	PushCompleted  PushState = "Completed"
	PushFailed     PushState = "Failed"
)

func (s PushState) Terminal() bool { return s == PushCompleted || s == PushFailed }

// PushJob is a snapshot of one simulated firmware transfer.
type PushJob struct {
	ID          string    `json:"id"`
	TargetType  string    `json:"target"`
	VCUSerial   string    `json:"vcu_serial"`
	FromVersion string    `json:"from_version"`
	ToVersion   string    `json:"to_version"`
	State       PushState `json:"state"`
	Progress    float64   `json:"progress"`
	Error       string    `json:"error,omitempty"`
	RequestedBy string    `json:"requested_by,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at,omitempty"`
}

// PushHistory stores finished jobs.
type PushHistory interface {
	Create(rec *models.PushRecord) error
}

// pushDevices is the ledger access a transfer needs.
type pushDevices interface {
	Find(target, serial string) (*models.DeviceRecord, error)
	SetStatus(target, serial string, status models.UpdateStatus) (bool, error)
	RestoreStatus(target, serial string, status models.UpdateStatus) (bool, error)
	UpdateDevice(target, serial, version string) (bool, error)
}

type pushEntry struct {
	job PushJob
	// prevStatus is the ledger status before the row was marked Pending.
	prevStatus models.UpdateStatus
	done       chan struct{}
}

// maxFinishedJobs bounds how many terminal jobs stay queryable in memory.
const maxFinishedJobs = 500

// PushService runs simulated transfers. A started transfer cannot be
// cancelled; Shutdown waits for the running ones.
type PushService struct {
	devices   pushDevices
	inventory *InventoryService
	history   PushHistory
	steps     int
	interval  time.Duration
	now       func() time.Time

	mu   sync.RWMutex
	jobs map[string]*pushEntry
	wg   sync.WaitGroup
}

func NewPushService(devices *DeviceService, inventory *InventoryService, history PushHistory, steps int, interval time.Duration) *PushService {
	if steps <= 0 {
		steps = 100
	}
	if interval < 0 {
		interval = 0
	}
	return &PushService{
		devices:   devices,
		inventory: inventory,
		history:   history,
		steps:     steps,
		interval:  interval,
		now:       time.Now,
		jobs:      make(map[string]*pushEntry),
	}
}

// Start validates the request and launches the transfer. The returned job is
// already terminal when the device runs the requested version.
func (s *PushService) Start(ctx context.Context, target, serial, version, user string) (*PushJob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := repo.ValidateName("target type", target); err != nil {
		return nil, err
	}
	if err := repo.ValidateName("version", version); err != nil {
		return nil, err
	}
	dev, err := s.devices.Find(target, serial)
	if err != nil {
		return nil, err
	}
	ok, err := s.inventory.VersionExists(target, version)
	if err != nil {
		return nil, apperr.Internal("push", err)
	}
	if !ok {
		return nil, apperr.NotFound("push", "firmware version %q not found for %q", version, target)
	}

	e := &pushEntry{
		job: PushJob{
			ID:          uuid.NewString(),
			TargetType:  target,
			VCUSerial:   serial,
			FromVersion: dev.LastFirmwareVersion,
			ToVersion:   version,
			State:       PushPending,
			RequestedBy: user,
			StartedAt:   s.now(),
		},
		prevStatus: dev.UpdateStatus,
		done:       make(chan struct{}),
	}

	if dev.LastFirmwareVersion == version {
		if _, err := s.devices.SetStatus(target, serial, models.StatusUpToDate); err != nil {
			return nil, err
		}
		s.register(e)
		s.finish(e, nil)
		snap := s.snapshot(e)
		return &snap, nil
	}

	if _, err := s.devices.SetStatus(target, serial, models.StatusPending); err != nil {
		return nil, err
	}
	s.register(e)
	global.Logger.Info().Str("job", e.job.ID).Str("target", target).Str("serial", serial).
		Str("from", dev.LastFirmwareVersion).Str("to", version).Msg("push started")

	s.wg.Add(1)
	go s.run(e)
	snap := s.snapshot(e)
	return &snap, nil
}

// Push starts a transfer and blocks until it is terminal or ctx is done.
func (s *PushService) Push(ctx context.Context, target, serial, version, user string) (*PushJob, error) {
	job, err := s.Start(ctx, target, serial, version, user)
	if err != nil {
		return nil, err
	}
	return s.Wait(ctx, job.ID)
}

func (s *PushService) Get(id string) (*PushJob, error) {
	s.mu.RLock()
	e, ok := s.jobs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, apperr.NotFound("push job", "push job %q not found", id)
	}
	snap := s.snapshot(e)
	return &snap, nil
}

// List returns every known job, newest first.
func (s *PushService) List() []PushJob {
	s.mu.RLock()
	out := make([]PushJob, 0, len(s.jobs))
	for _, e := range s.jobs {
		out = append(out, e.job)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out
}

// Wait blocks until job id is terminal. Cancelling ctx stops the wait, not
// the transfer.
func (s *PushService) Wait(ctx context.Context, id string) (*PushJob, error) {
	s.mu.RLock()
	e, ok := s.jobs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, apperr.NotFound("push job", "push job %q not found", id)
	}
	select {
	case <-e.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	snap := s.snapshot(e)
	return &snap, nil
}

// Shutdown waits for running transfers or until ctx is done.
func (s *PushService) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *PushService) run(e *pushEntry) {
	defer s.wg.Done()
	metrics.PushInFlight.Inc()
	defer metrics.PushInFlight.Dec()

	s.mu.Lock()
	e.job.State = PushInProgress
	s.mu.Unlock()

	for i := 1; i <= s.steps; i++ {
		if s.interval > 0 {
			time.Sleep(s.interval)
		}
		s.mu.Lock()
		e.job.Progress = float64(i) / float64(s.steps)
		s.mu.Unlock()
	}

	matched, err := s.devices.UpdateDevice(e.job.TargetType, e.job.VCUSerial, e.job.ToVersion)
	if err == nil && !matched {
		err = apperr.NotFound("push", "device %q disappeared from the ledger", e.job.VCUSerial)
	}
	if err != nil {
		s.restoreStatus(e)
	}
	s.finish(e, err)
}

// restoreStatus undoes the Pending mark of a failed transfer.
func (s *PushService) restoreStatus(e *pushEntry) {
	if _, err := s.devices.RestoreStatus(e.job.TargetType, e.job.VCUSerial, e.prevStatus); err != nil {
		global.Logger.Warn().Err(err).Str("job", e.job.ID).Str("serial", e.job.VCUSerial).
			Msg("restore update status")
	}
}

func (s *PushService) register(e *pushEntry) {
	s.mu.Lock()
	s.jobs[e.job.ID] = e
	s.mu.Unlock()
}

func (s *PushService) finish(e *pushEntry, err error) {
	s.mu.Lock()
	e.job.FinishedAt = s.now()
	if err != nil {
		e.job.State = PushFailed
		e.job.Error = apperr.Message(err)
	} else {
		e.job.State = PushCompleted
		e.job.Progress = 1
	}
	job := e.job
	close(e.done)
	s.pruneLocked()
	s.mu.Unlock()

	took := job.FinishedAt.Sub(job.StartedAt)
	metrics.ObservePush(job.TargetType, string(job.State), took)
	ev := global.Logger.Info()
	if err != nil {
		ev = global.Logger.Error().Err(err)
	}
	ev.Str("job", job.ID).Str("target", job.TargetType).Str("serial", job.VCUSerial).
		Str("state", string(job.State)).Dur("took", took).Msg("push finished")

	if s.history == nil {
		return
	}
	rec := &models.PushRecord{
		JobID:       job.ID,
		TargetType:  job.TargetType,
		VCUSerial:   job.VCUSerial,
		FromVersion: job.FromVersion,
		ToVersion:   job.ToVersion,
		State:       string(job.State),
		Error:       job.Error,
		RequestedBy: job.RequestedBy,
		StartedAt:   job.StartedAt,
		FinishedAt:  job.FinishedAt,
	}
	if err := s.history.Create(rec); err != nil {
		global.Logger.Warn().Err(err).Str("job", job.ID).Msg("record push history")
	}
}

// pruneLocked forgets the oldest terminal jobs beyond maxFinishedJobs.
func (s *PushService) pruneLocked() {
	var finished []*pushEntry
	for _, e := range s.jobs {
		if e.job.State.Terminal() {
			finished = append(finished, e)
		}
	}
	if len(finished) <= maxFinishedJobs {
		return
	}
	sort.Slice(finished, func(i, j int) bool { return finished[i].job.FinishedAt.Before(finished[j].job.FinishedAt) })
	for _, e := range finished[:len(finished)-maxFinishedJobs] {
		delete(s.jobs, e.job.ID)
	}
}

func (s *PushService) snapshot(e *pushEntry) PushJob {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return e.job
}
