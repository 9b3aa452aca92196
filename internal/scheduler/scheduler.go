package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"partnerapp/internal/infrastructure/logger"
	"partnerapp/internal/tracking"
	"partnerapp/internal/users"
)

var ErrSweepRunning = errors.New("проверка уже выполняется")

type Sweeper interface {
	Sweep(ctx context.Context, fetcher users.ProfileFetcher) (users.SweepReport, error)
}

type PromoCleaner interface {
	CleanupPromos(ctx context.Context, now time.Time) tracking.CleanupReport
}

// Report итог одной фоновой проверки
type Report struct {
	Users  users.SweepReport      `json:"users"`
	Promos tracking.CleanupReport `json:"promos"`
}

func (r Report) String() string {
	return fmt.Sprintf("пользователи: %s; промокоды: удалено %d, ждут %d, ошибок %d",
		r.Users, r.Promos.Deleted, r.Promos.Pending, r.Promos.Failed)
}

// Scheduler периодически перепроверяет пользователей и удаляет старые промокоды
type Scheduler struct {
	users    Sweeper
	fetcher  users.ProfileFetcher
	promos   PromoCleaner
	interval time.Duration
	now      func() time.Time

	running atomic.Bool
}

func New(sweeper Sweeper, fetcher users.ProfileFetcher, promos PromoCleaner, interval time.Duration) *Scheduler {
	return &Scheduler{
		users:    sweeper,
		fetcher:  fetcher,
		promos:   promos,
		interval: interval,
		now:      time.Now,
	}
}

// RunOnce одна проверка. Если предыдущая еще идет, сразу возвращает ErrSweepRunning
func (s *Scheduler) RunOnce(ctx context.Context) (Report, error) {
	if !s.running.CompareAndSwap(false, true) {
		return Report{}, ErrSweepRunning
	}
	defer s.running.Store(false)

	var report Report
	sweep, err := s.users.Sweep(ctx, s.fetcher)
	report.Users = sweep
	if err != nil {
		// Промокоды чистим даже если не удалось прочитать пользователей
		logger.Errorf("Проверка пользователей не выполнена: %v", err)
	}
	report.Promos = s.promos.CleanupPromos(ctx, s.now())

	logger.Infof("Фоновая проверка завершена: %s", report)
	return report, err
}

// Run запускает проверку каждые interval до отмены ctx. interval <= 0 - выключено
func (s *Scheduler) Run(ctx context.Context) {
	if s.interval <= 0 {
		logger.Info("Фоновая проверка отключена")
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	logger.Infof("Фоновая проверка каждые %s", s.interval)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); errors.Is(err, ErrSweepRunning) {
				logger.Warn("Пропуск фоновой проверки: предыдущая еще выполняется")
			}
		}
	}
}
