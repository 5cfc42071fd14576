package monitoring

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"github.com/scribeapp/scribe-be/internal/services"
	"github.com/scribeapp/scribe-be/internal/storage"
)

// How old a file must be before the sweeper will touch it. Protects uploads
// staged or committed by an in-flight request.
const sweepMinAge = 1 * time.Hour

// Sweeper periodically removes upload files no post references: leftovers
// from failed requests and covers of deleted posts.
type Sweeper struct {
	uploads  *storage.UploadStore
	posts    services.PostServiceProvider
	schedule cron.Schedule
	ticker   *time.Ticker
	done     chan bool
}

// NewSweeper creates a sweeper running on the given cron schedule.
func NewSweeper(uploads *storage.UploadStore, posts services.PostServiceProvider, cronExpr string) (*Sweeper, error) {
	schedule, err := cron.ParseStandard(cronExpr)
	if err != nil {
		return nil, err
	}
	return &Sweeper{
		uploads:  uploads,
		posts:    posts,
		schedule: schedule,
		done:     make(chan bool),
	}, nil
}

// Run starts the sweeper's ticking loop.
func (s *Sweeper) Run() {
	log.Info().Msg("Starting upload sweeper")
	s.ticker = time.NewTicker(1 * time.Minute)
	defer s.ticker.Stop()

	nextRun := s.schedule.Next(time.Now())
	for {
		select {
		case <-s.done:
			log.Info().Msg("Stopping upload sweeper")
			return
		case now := <-s.ticker.C:
			if now.After(nextRun) {
				s.sweep()
				nextRun = s.schedule.Next(now)
			}
		}
	}
}

// Stop halts the sweeper.
func (s *Sweeper) Stop() {
	s.done <- true
}

func (s *Sweeper) sweep() {
	referenced, err := s.posts.CoverImagePaths()
	if err != nil {
		log.Error().Err(err).Msg("Sweeper: failed to list referenced cover images")
		return
	}

	removed, err := s.uploads.Sweep(referenced, sweepMinAge)
	if err != nil {
		log.Error().Err(err).Msg("Sweeper: sweep failed")
		return
	}
	if removed > 0 {
		log.Info().Int("removed", removed).Msg("Sweeper: removed orphaned uploads")
	}
}
