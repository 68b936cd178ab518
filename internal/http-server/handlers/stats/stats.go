package stats

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"sanoqchi/entity"
	"sanoqchi/lib/api/response"
	"sanoqchi/lib/sl"
)

type Core interface {
	UserStats(ctx context.Context, userId int64) (entity.UserStats, error)
}

// User returns the cross-chat aggregate for one inviter. Unknown users get
// zero values, never an error.
func User(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.stats")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		userId, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
		if err != nil {
			render.Status(r, 400)
			render.JSON(w, r, response.Error("Invalid user id"))
			return
		}

		result, err := handler.UserStats(r.Context(), userId)
		if err != nil {
			logger.Error("get user stats", sl.Err(err))
			render.Status(r, 500)
			render.JSON(w, r, response.Error("Storage unavailable"))
			return
		}

		render.JSON(w, r, response.Ok(result))
	}
}
