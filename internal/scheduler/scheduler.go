// Package scheduler drives challenge lifecycle transitions. One goroutine
// sweeps all challenge rows on a fixed interval; running the sweep
// sequentially on a single goroutine rules out overlapping passes, and the
// filtered flag updates in the store make each transition fire at most once
// even across restarts.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"sanoqchi/entity"
	"sanoqchi/lib/clock"
	"sanoqchi/lib/sl"
)

// Store is the slice of storage the sweep needs.
type Store interface {
	ListChallenges(ctx context.Context) ([]entity.Challenge, error)
	TopInviters(ctx context.Context, chatId int64, limit int64) ([]entity.LeaderboardRow, error)
	MarkAnnounced(ctx context.Context, challenge entity.Challenge) (bool, error)
	MarkEnded(ctx context.Context, challenge entity.Challenge) (bool, error)
}

// Announcer delivers lifecycle announcements to the chat.
// Implemented by the bot package.
type Announcer interface {
	AnnounceStarted(chatId int64) error
	AnnounceEnded(chatId int64, top []entity.LeaderboardRow) error
}

type Scheduler struct {
	store     Store
	announcer Announcer
	log       *slog.Logger
	interval  time.Duration
	topSize   int64
	today     func() time.Time
	stopCh    chan struct{}
	done      chan struct{}
}

func New(store Store, announcer Announcer, log *slog.Logger, interval time.Duration, topSize int64) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	if topSize <= 0 {
		topSize = 10
	}
	return &Scheduler{
		store:     store,
		announcer: announcer,
		log:       log.With(sl.Module("scheduler")),
		interval:  interval,
		topSize:   topSize,
		today:     clock.Today,
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the sweep loop. The first pass runs immediately so a
// restart does not wait a full interval to catch up on due transitions.
func (s *Scheduler) Start() {
	go func() {
		defer close(s.done)
		s.Sweep(context.Background())
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Sweep(context.Background())
			case <-s.stopCh:
				return
			}
		}
	}()
}

// Stop terminates the loop and waits for an in-flight sweep to finish, so
// shutdown never cancels a transition mid-write.
func (s *Scheduler) Stop() {
	close(s.stopCh)
	<-s.done
	s.log.Info("scheduler stopped")
}

// Sweep runs one full pass over all challenges. A failure on one chat is
// logged and never blocks the rest of the pass.
func (s *Scheduler) Sweep(ctx context.Context) {
	challenges, err := s.store.ListChallenges(ctx)
	if err != nil {
		s.log.Warn("listing challenges", sl.Err(err))
		return
	}

	day := s.today()
	logger := s.log.With(slog.String("sweep", uuid.New().String()[:8]))
	for _, challenge := range challenges {
		s.transition(ctx, logger, challenge, day)
	}
}

// transition fires the due lifecycle steps for one challenge. Flags are set
// only after the announcement was delivered: a failed send leaves the flag
// clear so the next sweep retries, which is preferred over silently losing
// the announcement. A window entirely in the past fires both transitions in
// order within the same pass. The flag updates are pinned to the window this
// pass read, so a challenge replaced while the pass runs keeps its own
// lifecycle instead of inheriting a stale transition.
func (s *Scheduler) transition(ctx context.Context, logger *slog.Logger, challenge entity.Challenge, day time.Time) {
	logger = logger.With(slog.Int64("chat_id", challenge.ChatId))

	if challenge.DueToAnnounce(day) {
		err := s.announcer.AnnounceStarted(challenge.ChatId)
		if err != nil {
			logger.Warn("start announcement failed", sl.Err(err))
			return
		}
		done, err := s.store.MarkAnnounced(ctx, challenge)
		if err != nil {
			logger.Warn("marking announced", sl.Err(err))
			return
		}
		if done {
			logger.Info("challenge started")
		}
		challenge.Announced = true
	}

	if challenge.DueToEnd(day) {
		top, err := s.store.TopInviters(ctx, challenge.ChatId, s.topSize)
		if err != nil {
			logger.Warn("loading leaderboard", sl.Err(err))
			return
		}
		err = s.announcer.AnnounceEnded(challenge.ChatId, top)
		if err != nil {
			logger.Warn("end announcement failed", sl.Err(err))
			return
		}
		done, err := s.store.MarkEnded(ctx, challenge)
		if err != nil {
			logger.Warn("marking ended", sl.Err(err))
			return
		}
		if done {
			logger.With(slog.Int("participants", len(top))).Info("challenge ended")
		}
	}
}
