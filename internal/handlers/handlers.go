package handlers

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sweetshop/backend/internal/logging"
	"github.com/sweetshop/backend/internal/models"
	"github.com/sweetshop/backend/internal/mykafka"
	"github.com/sweetshop/backend/internal/search"
)

const (
	TopicUserEvents  = "user_events"
	TopicSweetEvents = "sweet_events"
)

func errorResponse(c echo.Context, code int, msg string) error {
	return c.JSON(code, echo.Map{"error": msg})
}

// publishEvent is best-effort: a broker failure is logged and never fails
// the originating request.
func publishEvent(c echo.Context, p *mykafka.Producer, topic, key string, event map[string]interface{}) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := p.PublishEvent(ctx, topic, key, event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka publish failed", "topic", topic, "err", err)
	}
}

// mirrorSweet keeps the optional search index in step with the catalog,
// best-effort like publishEvent.
func mirrorSweet(c echo.Context, ix *search.Indexer, sweet *models.Sweet) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := ix.IndexSweet(ctx, sweet); err != nil {
		logging.FromContext(c.Request().Context()).Error("index sweet failed", "id", sweet.ID, "err", err)
	}
}

func unindexSweet(c echo.Context, ix *search.Indexer, id uint) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := ix.DeleteSweet(ctx, id); err != nil {
		logging.FromContext(c.Request().Context()).Error("unindex sweet failed", "id", id, "err", err)
	}
}
