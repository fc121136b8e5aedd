package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/sweetshop/backend/internal/models"
	"github.com/sweetshop/backend/internal/mykafka"
	"github.com/sweetshop/backend/internal/search"
)

type SweetHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
	Index    *search.Indexer
}

func parseSweetID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid sweet id %q", c.Param("id"))
	}
	return uint(id), nil
}

func (h *SweetHandler) CreateSweet(c echo.Context) error {
	var req struct {
		Name     string  `json:"name"`
		Category string  `json:"category"`
		Price    float64 `json:"price"`
		Quantity uint    `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "Invalid request body")
	}

	if req.Name == "" || req.Category == "" {
		return errorResponse(c, http.StatusBadRequest, "Please fill all required fields.")
	}
	if req.Price < 0 {
		return errorResponse(c, http.StatusBadRequest, "Price cannot be negative")
	}

	var existing models.Sweet
	err := h.DB.Where("name = ?", req.Name).First(&existing).Error
	if err == nil {
		return errorResponse(c, http.StatusBadRequest, "Sweet already exists")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("lookup sweet: %w", err)
	}

	sweet := models.Sweet{
		Name:     req.Name,
		Category: req.Category,
		Price:    req.Price,
		Quantity: req.Quantity,
	}
	if err := h.DB.Create(&sweet).Error; err != nil {
		return fmt.Errorf("create sweet: %w", err)
	}

	mirrorSweet(c, h.Index, &sweet)
	publishEvent(c, h.Producer, TopicSweetEvents, fmt.Sprint(sweet.ID), map[string]interface{}{
		"type":    "sweet_created",
		"sweetID": sweet.ID,
		"name":    sweet.Name,
	})

	return c.JSON(http.StatusCreated, sweet)
}

func (h *SweetHandler) GetSweets(c echo.Context) error {
	sweets := []models.Sweet{}
	if err := h.DB.Find(&sweets).Error; err != nil {
		return fmt.Errorf("list sweets: %w", err)
	}
	return c.JSON(http.StatusOK, sweets)
}

// SearchSweets filters by case-insensitive substring on name and category,
// ANDed when both are present. An optional q parameter runs a fuzzy search
// against the Elasticsearch mirror when one is configured.
func (h *SweetHandler) SearchSweets(c echo.Context) error {
	if q := c.QueryParam("q"); q != "" && h.Index.Enabled() {
		sweets, err := h.Index.Search(c.Request().Context(), q)
		if err != nil {
			return fmt.Errorf("search index: %w", err)
		}
		return c.JSON(http.StatusOK, sweets)
	}

	tx := h.DB.Model(&models.Sweet{})
	if name := c.QueryParam("name"); name != "" {
		tx = tx.Where("LOWER(name) LIKE ?", search.LikePattern(name))
	}
	if category := c.QueryParam("category"); category != "" {
		tx = tx.Where("LOWER(category) LIKE ?", search.LikePattern(category))
	}

	sweets := []models.Sweet{}
	if err := tx.Find(&sweets).Error; err != nil {
		return fmt.Errorf("search sweets: %w", err)
	}
	return c.JSON(http.StatusOK, sweets)
}

func (h *SweetHandler) UpdateSweet(c echo.Context) error {
	id, err := parseSweetID(c)
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, "Invalid sweet ID")
	}

	var req struct {
		Name     *string  `json:"name"`
		Category *string  `json:"category"`
		Price    *float64 `json:"price"`
		Quantity *uint    `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "Invalid request body")
	}

	var sweet models.Sweet
	if err := h.DB.First(&sweet, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorResponse(c, http.StatusNotFound, "Sweet not found")
		}
		return fmt.Errorf("lookup sweet: %w", err)
	}

	if req.Name != nil {
		sweet.Name = *req.Name
	}
	if req.Category != nil {
		sweet.Category = *req.Category
	}
	if req.Price != nil {
		if *req.Price < 0 {
			return errorResponse(c, http.StatusBadRequest, "Price cannot be negative")
		}
		sweet.Price = *req.Price
	}
	if req.Quantity != nil {
		sweet.Quantity = *req.Quantity
	}

	if err := h.DB.Save(&sweet).Error; err != nil {
		return fmt.Errorf("update sweet: %w", err)
	}

	mirrorSweet(c, h.Index, &sweet)
	publishEvent(c, h.Producer, TopicSweetEvents, fmt.Sprint(sweet.ID), map[string]interface{}{
		"type":    "sweet_updated",
		"sweetID": sweet.ID,
		"name":    sweet.Name,
	})

	return c.JSON(http.StatusOK, sweet)
}

func (h *SweetHandler) DeleteSweet(c echo.Context) error {
	// Malformed ids are rejected before any database access.
	id, err := parseSweetID(c)
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, "Invalid sweet ID")
	}

	var sweet models.Sweet
	if err := h.DB.First(&sweet, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorResponse(c, http.StatusNotFound, "Sweet not found")
		}
		return fmt.Errorf("lookup sweet: %w", err)
	}

	if err := h.DB.Delete(&models.Sweet{}, id).Error; err != nil {
		return fmt.Errorf("delete sweet: %w", err)
	}

	unindexSweet(c, h.Index, id)
	publishEvent(c, h.Producer, TopicSweetEvents, fmt.Sprint(id), map[string]interface{}{
		"type":    "sweet_deleted",
		"sweetID": id,
	})

	return c.JSON(http.StatusOK, echo.Map{"message": "Sweet deleted successfully"})
}
