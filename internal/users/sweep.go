package users

import (
	"context"
	"fmt"

	"partnerapp/internal/infrastructure/logger"
	"partnerapp/internal/utils"

	"golang.org/x/time/rate"
)

// ProfileFetcher получает актуальный профиль пользователя из Telegram
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, chatID int64) (Profile, error)
}

// SweepReport итог проверки пользователей
type SweepReport struct {
	Checked  int `json:"checked"`
	Updated  int `json:"updated"`
	Archived int `json:"archived"`
	Failed   int `json:"failed"`
}

func (r SweepReport) String() string {
	return fmt.Sprintf("проверено %d, обновлено %d, в архив %d, ошибок %d", r.Checked, r.Updated, r.Archived, r.Failed)
}

// Sweep перепроверяет всех пользователей: обновляет изменившиеся имена,
// недоступных переносит в архив
func (s *Service) Sweep(ctx context.Context, fetcher ProfileFetcher) (SweepReport, error) {
	var report SweepReport

	members, err := s.Members(ctx)
	if err != nil {
		return report, err
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if s.sweepPause > 0 {
		limiter = rate.NewLimiter(rate.Every(s.sweepPause), 1)
	}

	today := utils.Date(s.now())
	var unreachable []Unreachable
	for _, m := range members {
		if err := limiter.Wait(ctx); err != nil {
			return report, err
		}
		report.Checked++

		profile, err := fetcher.FetchProfile(ctx, m.ChatID)
		if err != nil {
			if reason, ok := ClassifyDeliveryError(err); ok {
				unreachable = append(unreachable, Unreachable{ChatID: m.ChatID, Reason: reason})
				continue
			}
			report.Failed++
			logger.Warnf("Не удалось проверить пользователя %d: %v", m.ChatID, err)
			continue
		}

		updated := m.User
		if name := atUsername(profile.Username); name != "" {
			updated.Username = name
		}
		if profile.FirstName != "" {
			updated.FirstName = profile.FirstName
		}
		if updated.Username == m.Username && updated.FirstName == m.FirstName {
			continue
		}
		updated.LastActive = today
		if err := s.users.Update(ctx, m.Index, updated.Values()); err != nil {
			report.Failed++
			logger.Errorf("Не удалось обновить пользователя %d: %v", m.ChatID, err)
			continue
		}
		report.Updated++
	}

	report.Archived = s.Archive(ctx, unreachable)
	return report, nil
}
