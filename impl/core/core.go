// Package core implements the invite-challenge engine: classification of
// membership events, ledger accounting, challenge configuration and the
// leaderboard queries. It talks to storage through the Store interface so
// tests can run against an in-memory double.
package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"sanoqchi/entity"
	"sanoqchi/lib/clock"
	"sanoqchi/lib/sl"
)

var ErrInvalidRange = errors.New("start date is after end date")

// Store defines the storage operations the engine depends on.
// Implemented by internal/database/mongo.go.
type Store interface {
	GetChallenge(ctx context.Context, chatId int64) (*entity.Challenge, error)
	ListChallenges(ctx context.Context) ([]entity.Challenge, error)
	ReplaceChallenge(ctx context.Context, challenge *entity.Challenge) error
	RecordInvite(ctx context.Context, chatId, inviterId int64, inviterName string, at time.Time) error
	TopInviters(ctx context.Context, chatId int64, limit int64) ([]entity.LeaderboardRow, error)
	UserInviteTotal(ctx context.Context, userId int64) (int64, error)
	DistinctInviters(ctx context.Context) (int64, error)
	SaveBotUser(ctx context.Context, userId int64, at time.Time) error
	SaveBotGroup(ctx context.Context, chatId int64, title string, at time.Time) error
	CountBotUsers(ctx context.Context) (int64, error)
	CountBotGroups(ctx context.Context) (int64, error)
	CountChallenges(ctx context.Context) (int64, error)
	TotalInvites(ctx context.Context) (int64, error)
}

type Core struct {
	store      Store
	log        *slog.Logger
	today      func() time.Time
	ownerToken string
	ownerId    int64
}

func New(store Store, log *slog.Logger) *Core {
	if store == nil {
		panic("store is nil")
	}
	return &Core{
		store: store,
		log:   log.With(sl.Module("core")),
		today: clock.Today,
	}
}

// attributable applies the platform-side classification predicates, in
// order, without touching the store:
//  1. subject was not a member before (left or kicked);
//  2. subject became a plain member;
//  3. the join did not come through an invite link;
//  4. an acting user is identifiable.
func attributable(ev entity.MemberEvent) bool {
	if !ev.JoinedFromOutside() {
		return false
	}
	if ev.ViaInviteLink {
		return false
	}
	if !ev.HasActor() {
		return false
	}
	return true
}

// TrackMemberEvent classifies one membership event and, when it counts,
// credits the acting user with exactly one invite. Non-attributable events
// are dropped silently; only a store failure is returned to the caller.
func (c *Core) TrackMemberEvent(ctx context.Context, ev entity.MemberEvent) error {
	if !attributable(ev) {
		return nil
	}

	challenge, err := c.store.GetChallenge(ctx, ev.ChatId)
	if err != nil {
		return fmt.Errorf("get challenge: %w", err)
	}
	if challenge == nil || !challenge.ActiveOn(c.today()) {
		return nil
	}

	err = c.store.RecordInvite(ctx, ev.ChatId, ev.ActorId, ev.ActorName, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("record invite: %w", err)
	}
	c.log.With(
		slog.Int64("chat_id", ev.ChatId),
		slog.Int64("inviter_id", ev.ActorId),
	).Debug("invite counted")
	return nil
}

// ConfigureChallenge replaces the chat's challenge with a fresh window and
// wipes its invite ledger. Past dates are allowed; the only structural
// constraint is start <= end.
func (c *Core) ConfigureChallenge(ctx context.Context, chatId int64, startDate, endDate string) (*entity.Challenge, error) {
	start, err := clock.ParseDate(startDate)
	if err != nil {
		return nil, err
	}
	end, err := clock.ParseDate(endDate)
	if err != nil {
		return nil, err
	}
	if start.After(end) {
		return nil, ErrInvalidRange
	}

	challenge := &entity.Challenge{
		ChatId:    chatId,
		StartDate: clock.FormatDate(start),
		EndDate:   clock.FormatDate(end),
	}
	err = c.store.ReplaceChallenge(ctx, challenge)
	if err != nil {
		return nil, fmt.Errorf("replace challenge: %w", err)
	}
	c.log.With(
		slog.Int64("chat_id", chatId),
		slog.String("start", challenge.StartDate),
		slog.String("end", challenge.EndDate),
	).Info("challenge configured")
	return challenge, nil
}

// ActiveWindow returns the chat's challenge when today falls inside its
// window, nil otherwise.
func (c *Core) ActiveWindow(ctx context.Context, chatId int64) (*entity.Challenge, error) {
	challenge, err := c.store.GetChallenge(ctx, chatId)
	if err != nil {
		return nil, err
	}
	if challenge == nil || !challenge.ActiveOn(c.today()) {
		return nil, nil
	}
	return challenge, nil
}

// AnyActiveChallenge returns the first challenge active today across all
// chats, nil when there is none.
func (c *Core) AnyActiveChallenge(ctx context.Context) (*entity.Challenge, error) {
	challenges, err := c.store.ListChallenges(ctx)
	if err != nil {
		return nil, err
	}
	day := c.today()
	for i := range challenges {
		if challenges[i].ActiveOn(day) {
			return &challenges[i], nil
		}
	}
	return nil, nil
}

// HasAnnouncedChallenge reports whether any challenge has been announced.
func (c *Core) HasAnnouncedChallenge(ctx context.Context) (bool, error) {
	challenges, err := c.store.ListChallenges(ctx)
	if err != nil {
		return false, err
	}
	for _, challenge := range challenges {
		if challenge.Announced {
			return true, nil
		}
	}
	return false, nil
}

// ChatLeaderboard returns the chat's inviters ranked by count. An empty
// ledger yields an empty list, not an error.
func (c *Core) ChatLeaderboard(ctx context.Context, chatId int64, limit int64) ([]entity.LeaderboardRow, error) {
	if limit <= 0 {
		limit = 10
	}
	return c.store.TopInviters(ctx, chatId, limit)
}

// UserStats returns the user's cross-chat invite total and the global
// distinct participant count. Unknown users get zero values.
func (c *Core) UserStats(ctx context.Context, userId int64) (entity.UserStats, error) {
	total, err := c.store.UserInviteTotal(ctx, userId)
	if err != nil {
		return entity.UserStats{}, err
	}
	participants, err := c.store.DistinctInviters(ctx)
	if err != nil {
		return entity.UserStats{}, err
	}
	return entity.UserStats{
		UserId:       userId,
		TotalInvited: total,
		Participants: participants,
	}, nil
}

// RegisterBotUser stores the first sighting of a private-chat user.
func (c *Core) RegisterBotUser(ctx context.Context, userId int64) error {
	return c.store.SaveBotUser(ctx, userId, time.Now().UTC())
}

// RegisterBotGroup stores the first sighting of a group chat.
func (c *Core) RegisterBotGroup(ctx context.Context, chatId int64, title string) error {
	return c.store.SaveBotGroup(ctx, chatId, title, time.Now().UTC())
}

// BotStats aggregates the owner-only global summary.
func (c *Core) BotStats(ctx context.Context) (entity.BotStats, error) {
	users, err := c.store.CountBotUsers(ctx)
	if err != nil {
		return entity.BotStats{}, err
	}
	groups, err := c.store.CountBotGroups(ctx)
	if err != nil {
		return entity.BotStats{}, err
	}
	challenges, err := c.store.CountChallenges(ctx)
	if err != nil {
		return entity.BotStats{}, err
	}
	invites, err := c.store.TotalInvites(ctx)
	if err != nil {
		return entity.BotStats{}, err
	}
	return entity.BotStats{
		Users:      users,
		Groups:     groups,
		Challenges: challenges,
		Invites:    invites,
	}, nil
}
