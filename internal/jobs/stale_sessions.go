package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// staleBatchSize bounds how many sessions one sweep cancels.
const staleBatchSize = 100

type StaleSessionCanceller interface {
	CancelStale(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

// StaleSessionJob cancels live sessions nobody has touched for maxIdle.
type StaleSessionJob struct {
	sessions StaleSessionCanceller
	maxIdle  time.Duration
	interval time.Duration
	now      func() time.Time
	done     chan struct{}
}

func NewStaleSessionJob(sessions StaleSessionCanceller, maxIdle, interval time.Duration) *StaleSessionJob {
	return &StaleSessionJob{
		sessions: sessions,
		maxIdle:  maxIdle,
		interval: interval,
		now:      time.Now,
		done:     make(chan struct{}),
	}
}

func (j *StaleSessionJob) Start() {
	go j.run()
	log.Info().
		Dur("interval", j.interval).
		Dur("maxIdle", j.maxIdle).
		Msg("stale session job started")
}

func (j *StaleSessionJob) Stop() {
	close(j.done)
	log.Info().Msg("stale session job stopped")
}

func (j *StaleSessionJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.sweep()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.sweep()
		}
	}
}

func (j *StaleSessionJob) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := j.now().Add(-j.maxIdle)
	count, err := j.sessions.CancelStale(ctx, cutoff, staleBatchSize)
	if err != nil {
		log.Error().Err(err).Msg("failed to cancel stale sessions")
	} else if count > 0 {
		log.Info().Int("count", count).Time("cutoff", cutoff).Msg("cancelled stale sessions")
	}
}
