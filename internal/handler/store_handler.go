package handler

import (
	"net/http"

	"github.com/HiteshriGautam/Store-Rating-System/internal/middleware"
	"github.com/HiteshriGautam/Store-Rating-System/internal/service"
	"github.com/gin-gonic/gin"
)

type StoreHandler struct {
	stores  *service.StoreService
	ratings *service.RatingService
}

func NewStoreHandler(stores *service.StoreService, ratings *service.RatingService) *StoreHandler {
	return &StoreHandler{
		stores:  stores,
		ratings: ratings,
	}
}

type CreateStoreRequest struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required"`
	Address string `json:"address" binding:"required"`
	OwnerID string `json:"owner" binding:"required"`
}

type UpdateStoreRequest struct {
	Name    *string `json:"name"`
	Email   *string `json:"email"`
	Address *string `json:"address"`
	OwnerID *string `json:"owner"`
}

// List
// GET /stores?name=&address=&search=&sort=&order=
func (h *StoreHandler) List(c *gin.Context) {
	stores, err := h.stores.ListStores(c.Request.Context(), middleware.ActorFrom(c), service.StoreFilter{
		Name:    c.Query("name"),
		Address: c.Query("address"),
		Search:  c.Query("search"),
		Sort:    c.Query("sort"),
		Order:   c.Query("order"),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stores": stores,
	})
}

// GET /stores/:id
func (h *StoreHandler) Get(c *gin.Context) {
	store, err := h.stores.GetStore(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"store": store,
	})
}

// POST /stores
func (h *StoreHandler) Create(c *gin.Context) {
	var req CreateStoreRequest
	if !bindJSON(c, &req) {
		return
	}

	store, err := h.stores.CreateStore(c.Request.Context(), middleware.ActorFrom(c), service.CreateStoreInput(req))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"store": store,
	})
}

// PUT /stores/:id
func (h *StoreHandler) Update(c *gin.Context) {
	var req UpdateStoreRequest
	if !bindJSON(c, &req) {
		return
	}

	store, err := h.stores.UpdateStore(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), service.StorePatch(req))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"store": store,
	})
}

// DELETE /stores/:id
func (h *StoreHandler) Delete(c *gin.Context) {
	if err := h.stores.DeleteStore(c.Request.Context(), middleware.ActorFrom(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Store deleted",
	})
}

// Ratings lists the ratings of one store.
// GET /stores/:id/ratings
func (h *StoreHandler) Ratings(c *gin.Context) {
	ratings, err := h.ratings.ListRatingsForStore(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ratings": ratings,
	})
}

// Owned lists the caller's own stores.
// GET /owner/stores
func (h *StoreHandler) Owned(c *gin.Context) {
	actor := middleware.ActorFrom(c)
	stores, err := h.stores.ListStoresByOwner(c.Request.Context(), actor, actor.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stores": stores,
	})
}
