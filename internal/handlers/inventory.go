package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/sweetshop/backend/internal/models"
	"github.com/sweetshop/backend/internal/mykafka"
	"github.com/sweetshop/backend/internal/search"
)

type InventoryHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
	Index    *search.Indexer
}

// bindQuantity reads the optional quantity field, defaulting to 1 when the
// body omits it.
func bindQuantity(c echo.Context) (uint, error) {
	var req struct {
		Quantity *int `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return 0, fmt.Errorf("invalid request body")
	}
	if req.Quantity == nil {
		return 1, nil
	}
	if *req.Quantity < 1 {
		return 0, fmt.Errorf("quantity must be a positive integer")
	}
	return uint(*req.Quantity), nil
}

func (h *InventoryHandler) PurchaseSweet(c echo.Context) error {
	id, err := parseSweetID(c)
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, "Invalid sweet ID")
	}

	quantity, err := bindQuantity(c)
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, "Quantity must be a positive integer")
	}

	var sweet models.Sweet
	if err := h.DB.First(&sweet, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorResponse(c, http.StatusNotFound, "Sweet not found")
		}
		return fmt.Errorf("lookup sweet: %w", err)
	}

	// The decrement is guarded in the UPDATE itself, so concurrent purchases
	// can never drive the quantity below zero.
	res := h.DB.Model(&models.Sweet{}).
		Where("id = ? AND quantity >= ?", id, quantity).
		UpdateColumn("quantity", gorm.Expr("quantity - ?", quantity))
	if res.Error != nil {
		return fmt.Errorf("purchase sweet: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return errorResponse(c, http.StatusBadRequest, "Insufficient quantity in stock")
	}

	if err := h.DB.First(&sweet, id).Error; err != nil {
		return fmt.Errorf("reload sweet: %w", err)
	}

	mirrorSweet(c, h.Index, &sweet)
	publishEvent(c, h.Producer, TopicSweetEvents, fmt.Sprint(sweet.ID), map[string]interface{}{
		"type":     "sweet_purchased",
		"sweetID":  sweet.ID,
		"quantity": quantity,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"message": fmt.Sprintf("Purchased %d %s(s)", quantity, sweet.Name),
		"sweet":   sweet,
	})
}

func (h *InventoryHandler) RestockSweet(c echo.Context) error {
	id, err := parseSweetID(c)
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, "Invalid sweet ID")
	}

	quantity, err := bindQuantity(c)
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, "Quantity must be a positive integer")
	}

	var sweet models.Sweet
	if err := h.DB.First(&sweet, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorResponse(c, http.StatusNotFound, "Sweet not found")
		}
		return fmt.Errorf("lookup sweet: %w", err)
	}

	res := h.DB.Model(&models.Sweet{}).
		Where("id = ?", id).
		UpdateColumn("quantity", gorm.Expr("quantity + ?", quantity))
	if res.Error != nil {
		return fmt.Errorf("restock sweet: %w", res.Error)
	}

	if err := h.DB.First(&sweet, id).Error; err != nil {
		return fmt.Errorf("reload sweet: %w", err)
	}

	mirrorSweet(c, h.Index, &sweet)
	publishEvent(c, h.Producer, TopicSweetEvents, fmt.Sprint(sweet.ID), map[string]interface{}{
		"type":     "sweet_restocked",
		"sweetID":  sweet.ID,
		"quantity": quantity,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"message": fmt.Sprintf("Restocked %d %s(s)", quantity, sweet.Name),
		"sweet":   sweet,
	})
}
