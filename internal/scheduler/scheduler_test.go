package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"sanoqchi/entity"
)

type fakeStore struct {
	mu         sync.Mutex
	challenges map[int64]*entity.Challenge
	top        map[int64][]entity.LeaderboardRow
}

func newFakeStore(challenges ...entity.Challenge) *fakeStore {
	s := &fakeStore{
		challenges: make(map[int64]*entity.Challenge),
		top:        make(map[int64][]entity.LeaderboardRow),
	}
	for i := range challenges {
		copied := challenges[i]
		s.challenges[copied.ChatId] = &copied
	}
	return s
}

func (s *fakeStore) ListChallenges(_ context.Context) ([]entity.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.Challenge
	for _, challenge := range s.challenges {
		out = append(out, *challenge)
	}
	return out, nil
}

func (s *fakeStore) TopInviters(_ context.Context, chatId int64, _ int64) ([]entity.LeaderboardRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.top[chatId], nil
}

// MarkAnnounced and MarkEnded mirror the store's filtered updates: the flag
// flips only on the row holding the exact window the caller read.

func (s *fakeStore) MarkAnnounced(_ context.Context, c entity.Challenge) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	challenge, ok := s.challenges[c.ChatId]
	if !ok || challenge.StartDate != c.StartDate || challenge.EndDate != c.EndDate {
		return false, nil
	}
	if challenge.Announced {
		return false, nil
	}
	challenge.Announced = true
	return true, nil
}

func (s *fakeStore) MarkEnded(_ context.Context, c entity.Challenge) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	challenge, ok := s.challenges[c.ChatId]
	if !ok || challenge.StartDate != c.StartDate || challenge.EndDate != c.EndDate {
		return false, nil
	}
	if !challenge.Announced || challenge.Ended {
		return false, nil
	}
	challenge.Ended = true
	return true, nil
}

func (s *fakeStore) replace(challenge entity.Challenge) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := challenge
	s.challenges[copied.ChatId] = &copied
}

func (s *fakeStore) flags(chatId int64) (bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	challenge := s.challenges[chatId]
	return challenge.Announced, challenge.Ended
}

type announcement struct {
	kind   string
	chatId int64
	top    []entity.LeaderboardRow
}

type fakeAnnouncer struct {
	mu       sync.Mutex
	sent     []announcement
	startErr error
	endErr   error
	onStart  func(chatId int64)
}

func (a *fakeAnnouncer) AnnounceStarted(chatId int64) error {
	a.mu.Lock()
	if a.startErr != nil {
		a.mu.Unlock()
		return a.startErr
	}
	a.sent = append(a.sent, announcement{kind: "start", chatId: chatId})
	hook := a.onStart
	a.mu.Unlock()
	if hook != nil {
		hook(chatId)
	}
	return nil
}

func (a *fakeAnnouncer) AnnounceEnded(chatId int64, top []entity.LeaderboardRow) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.endErr != nil {
		return a.endErr
	}
	a.sent = append(a.sent, announcement{kind: "end", chatId: chatId, top: top})
	return nil
}

func (a *fakeAnnouncer) calls() []announcement {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]announcement, len(a.sent))
	copy(out, a.sent)
	return out
}

func testScheduler(store Store, announcer Announcer, day string) *Scheduler {
	s := New(store, announcer, slog.New(slog.NewTextHandler(io.Discard, nil)), time.Minute, 10)
	s.today = func() time.Time {
		t, _ := time.Parse("2006-01-02", day)
		return t
	}
	return s
}

func TestSweep_StartTransitionFiresOnce(t *testing.T) {
	store := newFakeStore(entity.Challenge{
		ChatId: 100, StartDate: "2025-01-01", EndDate: "2025-01-31",
	})
	announcer := &fakeAnnouncer{}
	s := testScheduler(store, announcer, "2025-01-01")

	s.Sweep(context.Background())
	s.Sweep(context.Background())

	calls := announcer.calls()
	if len(calls) != 1 || calls[0].kind != "start" || calls[0].chatId != 100 {
		t.Fatalf("calls = %+v, want one start for chat 100", calls)
	}
	announced, ended := store.flags(100)
	if !announced || ended {
		t.Fatalf("flags = (%v, %v), want (true, false)", announced, ended)
	}
}

func TestSweep_NotYetDue(t *testing.T) {
	store := newFakeStore(entity.Challenge{
		ChatId: 100, StartDate: "2025-01-10", EndDate: "2025-01-31",
	})
	announcer := &fakeAnnouncer{}
	s := testScheduler(store, announcer, "2025-01-05")

	s.Sweep(context.Background())

	if calls := announcer.calls(); len(calls) != 0 {
		t.Fatalf("calls = %+v, want none before the window opens", calls)
	}
}

func TestSweep_EndTransition(t *testing.T) {
	store := newFakeStore(entity.Challenge{
		ChatId: 100, StartDate: "2025-01-01", EndDate: "2025-01-31",
		Announced: true,
	})
	store.top[100] = []entity.LeaderboardRow{{InviterId: 7, InviterName: "A", Count: 3}}
	announcer := &fakeAnnouncer{}
	s := testScheduler(store, announcer, "2025-02-01")

	s.Sweep(context.Background())

	calls := announcer.calls()
	if len(calls) != 1 || calls[0].kind != "end" {
		t.Fatalf("calls = %+v, want one end announcement", calls)
	}
	if len(calls[0].top) != 1 || calls[0].top[0].InviterName != "A" || calls[0].top[0].Count != 3 {
		t.Fatalf("top = %+v, want [(A, 3)]", calls[0].top)
	}

	// a later sweep emits nothing further
	s.today = func() time.Time {
		day, _ := time.Parse("2006-01-02", "2025-02-02")
		return day
	}
	s.Sweep(context.Background())
	if calls := announcer.calls(); len(calls) != 1 {
		t.Fatalf("calls = %+v, want no repeat after ended", calls)
	}
}

func TestSweep_EndWaitsForAnnounce(t *testing.T) {
	// end_date already passed but the start was never announced: both
	// transitions fire within the same pass, start first.
	store := newFakeStore(entity.Challenge{
		ChatId: 100, StartDate: "2025-01-01", EndDate: "2025-01-31",
	})
	announcer := &fakeAnnouncer{}
	s := testScheduler(store, announcer, "2025-02-05")

	s.Sweep(context.Background())

	calls := announcer.calls()
	if len(calls) != 2 || calls[0].kind != "start" || calls[1].kind != "end" {
		t.Fatalf("calls = %+v, want start then end", calls)
	}
	announced, ended := store.flags(100)
	if !announced || !ended {
		t.Fatalf("flags = (%v, %v), want both set", announced, ended)
	}
}

func TestSweep_DeliveryFailureLeavesFlagClear(t *testing.T) {
	store := newFakeStore(entity.Challenge{
		ChatId: 100, StartDate: "2025-01-01", EndDate: "2025-01-31",
	})
	announcer := &fakeAnnouncer{startErr: errors.New("chat unreachable")}
	s := testScheduler(store, announcer, "2025-01-01")

	s.Sweep(context.Background())

	announced, _ := store.flags(100)
	if announced {
		t.Fatal("announced flag must stay clear after a failed send")
	}

	// delivery recovers: the next sweep retries and completes
	announcer.mu.Lock()
	announcer.startErr = nil
	announcer.mu.Unlock()
	s.Sweep(context.Background())

	calls := announcer.calls()
	if len(calls) != 1 || calls[0].kind != "start" {
		t.Fatalf("calls = %+v, want one start after retry", calls)
	}
	announced, _ = store.flags(100)
	if !announced {
		t.Fatal("announced flag must be set after the retried send")
	}
}

func TestSweep_EndDeliveryFailureRetries(t *testing.T) {
	store := newFakeStore(entity.Challenge{
		ChatId: 100, StartDate: "2025-01-01", EndDate: "2025-01-31",
		Announced: true,
	})
	announcer := &fakeAnnouncer{endErr: errors.New("chat unreachable")}
	s := testScheduler(store, announcer, "2025-02-01")

	s.Sweep(context.Background())
	_, ended := store.flags(100)
	if ended {
		t.Fatal("ended flag must stay clear after a failed send")
	}

	announcer.mu.Lock()
	announcer.endErr = nil
	announcer.mu.Unlock()
	s.Sweep(context.Background())

	calls := announcer.calls()
	if len(calls) != 1 || calls[0].kind != "end" {
		t.Fatalf("calls = %+v, want one end after retry", calls)
	}
	_, ended = store.flags(100)
	if !ended {
		t.Fatal("ended flag must be set after the retried send")
	}
}

func TestSweep_EmptyLeaderboardStillAnnounced(t *testing.T) {
	store := newFakeStore(entity.Challenge{
		ChatId: 100, StartDate: "2025-01-01", EndDate: "2025-01-31",
		Announced: true,
	})
	announcer := &fakeAnnouncer{}
	s := testScheduler(store, announcer, "2025-02-01")

	s.Sweep(context.Background())

	calls := announcer.calls()
	if len(calls) != 1 || calls[0].kind != "end" || len(calls[0].top) != 0 {
		t.Fatalf("calls = %+v, want end with empty ranking", calls)
	}
}

func TestSweep_ReplaceDuringPassKeepsNewChallengeFresh(t *testing.T) {
	// an admin reconfigures the challenge while a pass is mid-transition:
	// the flag updates carry the window the pass read, so the replacement
	// row must stay unannounced and fire its own start when its window
	// opens, not inherit the old challenge's transition.
	store := newFakeStore(entity.Challenge{
		ChatId: 100, StartDate: "2025-01-01", EndDate: "2025-01-31",
	})
	announcer := &fakeAnnouncer{}
	announcer.onStart = func(chatId int64) {
		store.replace(entity.Challenge{
			ChatId: chatId, StartDate: "2025-06-01", EndDate: "2025-06-30",
		})
	}
	s := testScheduler(store, announcer, "2025-02-05")

	s.Sweep(context.Background())

	announced, ended := store.flags(100)
	if announced || ended {
		t.Fatalf("flags = (%v, %v), replacement row must stay untouched", announced, ended)
	}

	// the June window announces on its own schedule
	announcer.mu.Lock()
	announcer.onStart = nil
	announcer.mu.Unlock()
	s.today = func() time.Time {
		day, _ := time.Parse("2006-01-02", "2025-06-01")
		return day
	}
	s.Sweep(context.Background())

	announced, ended = store.flags(100)
	if !announced || ended {
		t.Fatalf("flags = (%v, %v), want the new window announced", announced, ended)
	}
}

func TestStartStop(t *testing.T) {
	store := newFakeStore()
	announcer := &fakeAnnouncer{}
	s := New(store, announcer, slog.New(slog.NewTextHandler(io.Discard, nil)), 10*time.Millisecond, 10)

	s.Start()
	time.Sleep(30 * time.Millisecond)
	s.Stop() // must not hang and must wait for the in-flight sweep
}
