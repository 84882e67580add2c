package handler

import (
	"net/http"

	"github.com/HiteshriGautam/Store-Rating-System/internal/middleware"
	"github.com/HiteshriGautam/Store-Rating-System/internal/service"
	"github.com/gin-gonic/gin"
)

type RatingHandler struct {
	ratings *service.RatingService
}

func NewRatingHandler(ratings *service.RatingService) *RatingHandler {
	return &RatingHandler{
		ratings: ratings,
	}
}

// SubmitRatingRequest accepts the score as either value or rating.
type SubmitRatingRequest struct {
	StoreID string   `json:"storeId" binding:"required"`
	UserID  string   `json:"userId"`
	Value   *float64 `json:"value"`
	Rating  *float64 `json:"rating"`
	Comment *string  `json:"comment" binding:"omitempty,max=500"`
}

// Submit creates or replaces the caller's rating for a store.
// POST /ratings
func (h *RatingHandler) Submit(c *gin.Context) {
	var req SubmitRatingRequest
	if !bindJSON(c, &req) {
		return
	}

	value := req.Value
	if value == nil {
		value = req.Rating
	}
	if value == nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "Validation failed",
			"fields": gin.H{"value": "value is required"},
		})
		return
	}

	rating, created, err := h.ratings.SubmitRating(
		c.Request.Context(),
		middleware.ActorFrom(c),
		req.UserID,
		req.StoreID,
		*value,
		req.Comment,
	)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{
		"rating":  rating,
		"created": created,
	})
}

// List
// GET /ratings?storeId=&userId=
func (h *RatingHandler) List(c *gin.Context) {
	ratings, err := h.ratings.ListRatingsFiltered(c.Request.Context(), middleware.ActorFrom(c), service.RatingFilter{
		StoreID: c.Query("storeId"),
		UserID:  c.Query("userId"),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ratings": ratings,
	})
}

// DELETE /ratings/:id
func (h *RatingHandler) Delete(c *gin.Context) {
	if err := h.ratings.DeleteRating(c.Request.Context(), middleware.ActorFrom(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Rating deleted",
	})
}
