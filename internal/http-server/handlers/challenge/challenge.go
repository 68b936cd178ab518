package challenge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"sanoqchi/entity"
	"sanoqchi/impl/core"
	"sanoqchi/lib/api/response"
	"sanoqchi/lib/sl"
	"sanoqchi/lib/validate"
)

type Core interface {
	ConfigureChallenge(ctx context.Context, chatId int64, startDate, endDate string) (*entity.Challenge, error)
	ActiveWindow(ctx context.Context, chatId int64) (*entity.Challenge, error)
	ChatLeaderboard(ctx context.Context, chatId int64, limit int64) ([]entity.LeaderboardRow, error)
}

// ConfigureRequest is the owner-issued replace operation: a new window for
// the chat, wiping any previous counters.
type ConfigureRequest struct {
	ChatId    int64  `json:"chat_id" validate:"required"`
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"required,datetime=2006-01-02"`
}

func (c *ConfigureRequest) Bind(_ *http.Request) error {
	return validate.Struct(c)
}

func Configure(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.challenge")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req ConfigureRequest
		if err := render.Bind(r, &req); err != nil {
			logger.Error("bind request", sl.Err(err))
			render.Status(r, 400)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}
		logger = logger.With(
			slog.Int64("chat_id", req.ChatId),
			slog.String("start", req.StartDate),
			slog.String("end", req.EndDate),
		)

		result, err := handler.ConfigureChallenge(r.Context(), req.ChatId, req.StartDate, req.EndDate)
		if errors.Is(err, core.ErrInvalidRange) {
			logger.Debug("invalid range")
			render.Status(r, 400)
			render.JSON(w, r, response.Error("Start date must not be after the end date"))
			return
		}
		if err != nil {
			logger.Error("configure challenge", sl.Err(err))
			render.Status(r, 400)
			render.JSON(w, r, response.Error(fmt.Sprintf("Configure: %v", err)))
			return
		}
		logger.Debug("challenge configured")

		render.JSON(w, r, response.Ok(result))
	}
}

func Window(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.challenge")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		chatId, err := chatIdParam(r)
		if err != nil {
			render.Status(r, 400)
			render.JSON(w, r, response.Error("Invalid chat id"))
			return
		}

		window, err := handler.ActiveWindow(r.Context(), chatId)
		if err != nil {
			logger.Error("get active window", sl.Err(err))
			render.Status(r, 500)
			render.JSON(w, r, response.Error("Storage unavailable"))
			return
		}

		// no active challenge is a normal empty result, not an error
		render.JSON(w, r, response.Ok(window))
	}
}

func Top(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.challenge")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		chatId, err := chatIdParam(r)
		if err != nil {
			render.Status(r, 400)
			render.JSON(w, r, response.Error("Invalid chat id"))
			return
		}

		var limit int64 = 10
		if q := r.URL.Query().Get("limit"); q != "" {
			limit, err = strconv.ParseInt(q, 10, 64)
			if err != nil || limit <= 0 {
				render.Status(r, 400)
				render.JSON(w, r, response.Error("Invalid limit"))
				return
			}
		}

		top, err := handler.ChatLeaderboard(r.Context(), chatId, limit)
		if err != nil {
			logger.Error("get leaderboard", sl.Err(err))
			render.Status(r, 500)
			render.JSON(w, r, response.Error("Storage unavailable"))
			return
		}
		if top == nil {
			top = []entity.LeaderboardRow{}
		}

		render.JSON(w, r, response.Ok(top))
	}
}

func chatIdParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "chatID"), 10, 64)
}
