package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"axiom-server/internal/models"
	"axiom-server/internal/service"
)

// Эндпоинты списка будущих художников повторяют эндпоинты заказов.

func (h *Handler) listFutureArtists(c *gin.Context) {
	filter := service.FutureArtistFilter{
		Priority: queryParam(c, "priority"),
		Status:   queryParam(c, "status"),
		Platform: queryParam(c, "platform"),
	}
	if !isAdmin(c) {
		public := true
		filter.IsPublic = &public
	}
	c.JSON(http.StatusOK, h.store.FilterFutureArtists(filter))
}

func (h *Handler) getFutureArtist(c *gin.Context) {
	rec, ok := h.store.GetFutureArtist(c.Param("id"))
	if !ok || (!rec.IsPublic && !isAdmin(c)) {
		c.JSON(http.StatusNotFound, APIError{Message: "future artist not found"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *Handler) createFutureArtist(c *gin.Context) {
	var data models.FutureArtistData
	if err := c.ShouldBindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, APIError{Message: "invalid request body"})
		return
	}
	rec := h.store.AddFutureArtist(c.Request.Context(), data)
	artistWritesTotal.WithLabelValues("add").Inc()
	c.JSON(http.StatusCreated, rec)
}

func (h *Handler) updateFutureArtist(c *gin.Context) {
	var data models.FutureArtistData
	if err := c.ShouldBindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, APIError{Message: "invalid request body"})
		return
	}
	rec, ok := h.store.UpdateFutureArtist(c.Request.Context(), c.Param("id"), data)
	if !ok {
		c.JSON(http.StatusNotFound, APIError{Message: "future artist not found"})
		return
	}
	artistWritesTotal.WithLabelValues("update").Inc()
	c.JSON(http.StatusOK, rec)
}

func (h *Handler) deleteFutureArtist(c *gin.Context) {
	if !h.store.DeleteFutureArtist(c.Request.Context(), c.Param("id")) {
		c.JSON(http.StatusNotFound, APIError{Message: "future artist not found"})
		return
	}
	artistWritesTotal.WithLabelValues("delete").Inc()
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (h *Handler) searchFutureArtists(c *gin.Context) {
	results := h.store.SearchFutureArtists(c.Query("q"))
	if !isAdmin(c) {
		filtered := make([]models.FutureArtistRecord, 0, len(results))
		for _, rec := range results {
			if rec.IsPublic {
				filtered = append(filtered, rec)
			}
		}
		results = filtered
	}
	c.JSON(http.StatusOK, results)
}

func (h *Handler) exportFutureArtists(c *gin.Context) {
	data, err := h.store.ExportFutureArtists()
	if err != nil {
		h.logger.Error("Ошибка экспорта художников", zap.Error(err))
		c.JSON(http.StatusInternalServerError, APIError{Message: "export failed"})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="future-artists.json"`)
	c.Data(http.StatusOK, "application/json", []byte(data))
}

func (h *Handler) importFutureArtists(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportSize))
	if err != nil {
		c.JSON(http.StatusBadRequest, APIError{Message: "failed to read request body"})
		return
	}
	count, err := h.store.ImportFutureArtists(c.Request.Context(), string(body))
	if err != nil {
		if errors.Is(err, models.ErrInvalidImport) {
			c.JSON(http.StatusBadRequest, APIError{Message: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, APIError{Message: "import failed"})
		return
	}
	importsTotal.Inc()
	c.JSON(http.StatusOK, gin.H{"imported": count})
}
