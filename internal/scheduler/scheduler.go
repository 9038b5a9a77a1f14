package scheduler

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/omarshaarawi/flagcoach/internal/config"
	"github.com/omarshaarawi/flagcoach/internal/service"
)

type Scheduler struct {
	s               gocron.Scheduler
	cfg             config.Schedule
	rotationService *service.RotationService
	sendMessage     func(string) error
}

func NewScheduler(cfg config.Schedule, rotationService *service.RotationService, sendMessage func(string) error) (*Scheduler, error) {
	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		slog.Error("Failed to load location", "error", err)
		location = time.Local
	}

	s, err := gocron.NewScheduler(
		gocron.WithLocation(location),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &Scheduler{
		s:               s,
		cfg:             cfg,
		rotationService: rotationService,
		sendMessage:     sendMessage,
	}, nil
}

func (s *Scheduler) Start() error {
	if err := s.register(); err != nil {
		return err
	}
	s.s.Start()
	return nil
}

func (s *Scheduler) register() error {
	// Attendance check before kickoff
	_, err := s.s.NewJob(
		gocron.CronJob(s.cfg.GameDay, false),
		gocron.NewTask(s.sendGameDayReport),
		gocron.WithName("gameday"),
	)
	if err != nil {
		return fmt.Errorf("failed to create game day job: %w", err)
	}

	// Retry snapshot writes that failed
	_, err = s.s.NewJob(
		gocron.DurationJob(s.cfg.AutosaveEvery),
		gocron.NewTask(s.autosave),
		gocron.WithName("autosave"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to create autosave job: %w", err)
	}
	return nil
}

func (s *Scheduler) Stop() error {
	if err := s.rotationService.Flush(); err != nil {
		slog.Error("Failed to flush snapshot on shutdown", "error", err)
	}
	return s.s.Shutdown()
}

func (s *Scheduler) sendGameDayReport() {
	if err := s.sendMessage(s.rotationService.GameDayReport()); err != nil {
		slog.Error("Failed to send game day report", "error", err)
	}
}

func (s *Scheduler) autosave() {
	if err := s.rotationService.Flush(); err != nil {
		slog.Error("Failed to autosave snapshot", "error", err)
	}
}
