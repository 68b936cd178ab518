package errors

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"sanoqchi/lib/api/response"
)

func NotFound(_ *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.Status(r, 404)
		render.JSON(w, r, response.Error("Requested resource not found"))
	}
}
