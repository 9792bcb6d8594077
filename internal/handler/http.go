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

// APIError представляет стандартизированный ответ об ошибке.
type APIError struct {
	Message string `json:"message"`
}

// maxImportSize ограничивает размер тела импортируемого файла (5 МБ,
// как лимит вложенных изображений в исходной системе).
const maxImportSize = 5 << 20

// Handler обрабатывает HTTP запросы к хранилищам.
type Handler struct {
	store       *service.CommissionStore
	comments    *service.CommentStore
	hub         *Hub
	adminSecret string
	logger      *zap.Logger
}

// NewHandler создает обработчик для всех эндпоинтов сервера.
func NewHandler(store *service.CommissionStore, comments *service.CommentStore, hub *Hub, adminSecret string, logger *zap.Logger) *Handler {
	return &Handler{
		store:       store,
		comments:    comments,
		hub:         hub,
		adminSecret: adminSecret,
		logger:      logger.Named("handler"),
	}
}

// RegisterRoutes вешает маршруты на роутер. rateLimiter применяется только
// к публикации комментариев — единственному публичному эндпоинту записи.
func (h *Handler) RegisterRoutes(router *gin.Engine, rateLimiter gin.HandlerFunc) {
	admin := RequireAdmin(h.adminSecret, h.logger)

	api := router.Group("/api")
	api.Use(AdminDetect(h.adminSecret, h.logger))
	{
		api.GET("/commissions", h.listCommissions)
		api.GET("/commissions/stats", h.commissionStats)
		api.GET("/commissions/search", h.searchCommissions)
		api.GET("/commissions/export", admin, h.exportCommissions)
		api.POST("/commissions/import", admin, h.importCommissions)
		api.GET("/commissions/:id", h.getCommission)
		api.POST("/commissions", admin, h.createCommission)
		api.PUT("/commissions/:id", admin, h.updateCommission)
		api.DELETE("/commissions/:id", admin, h.deleteCommission)

		api.GET("/future-artists", h.listFutureArtists)
		api.GET("/future-artists/search", h.searchFutureArtists)
		api.GET("/future-artists/export", admin, h.exportFutureArtists)
		api.POST("/future-artists/import", admin, h.importFutureArtists)
		api.GET("/future-artists/:id", h.getFutureArtist)
		api.POST("/future-artists", admin, h.createFutureArtist)
		api.PUT("/future-artists/:id", admin, h.updateFutureArtist)
		api.DELETE("/future-artists/:id", admin, h.deleteFutureArtist)

		api.GET("/characters/:characterId/comments", h.listComments)
		if rateLimiter != nil {
			api.POST("/characters/:characterId/comments", rateLimiter, h.createComment)
		} else {
			api.POST("/characters/:characterId/comments", h.createComment)
		}
		api.DELETE("/comments/:id", admin, h.deleteComment)
	}

	router.GET("/ws", h.ServeWS)
}

// --- Заказы ---

// listCommissions возвращает публичные заказы; владельцу с админским
// токеном — все, с опциональной фильтрацией по query-параметрам.
func (h *Handler) listCommissions(c *gin.Context) {
	filter := service.CommissionFilter{
		Status:    queryParam(c, "status"),
		Character: queryParam(c, "character"),
		Artist:    queryParam(c, "artist"),
		Type:      queryParam(c, "type"),
	}
	if !isAdmin(c) {
		public := true
		filter.IsPublic = &public
	}
	c.JSON(http.StatusOK, h.store.FilterCommissions(filter))
}

func (h *Handler) getCommission(c *gin.Context) {
	rec, ok := h.store.GetCommission(c.Param("id"))
	if !ok || (!rec.IsPublic && !isAdmin(c)) {
		c.JSON(http.StatusNotFound, APIError{Message: "commission not found"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *Handler) createCommission(c *gin.Context) {
	var data models.CommissionData
	if err := c.ShouldBindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, APIError{Message: "invalid request body"})
		return
	}
	rec := h.store.AddCommission(c.Request.Context(), data)
	commissionWritesTotal.WithLabelValues("add").Inc()
	c.JSON(http.StatusCreated, rec)
}

func (h *Handler) updateCommission(c *gin.Context) {
	var data models.CommissionData
	if err := c.ShouldBindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, APIError{Message: "invalid request body"})
		return
	}
	rec, ok := h.store.UpdateCommission(c.Request.Context(), c.Param("id"), data)
	if !ok {
		c.JSON(http.StatusNotFound, APIError{Message: "commission not found"})
		return
	}
	commissionWritesTotal.WithLabelValues("update").Inc()
	c.JSON(http.StatusOK, rec)
}

func (h *Handler) deleteCommission(c *gin.Context) {
	if !h.store.DeleteCommission(c.Request.Context(), c.Param("id")) {
		c.JSON(http.StatusNotFound, APIError{Message: "commission not found"})
		return
	}
	commissionWritesTotal.WithLabelValues("delete").Inc()
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (h *Handler) searchCommissions(c *gin.Context) {
	results := h.store.SearchCommissions(c.Query("q"))
	if !isAdmin(c) {
		results = filterPublicCommissions(results)
	}
	c.JSON(http.StatusOK, results)
}

func (h *Handler) commissionStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Stats())
}

func (h *Handler) exportCommissions(c *gin.Context) {
	data, err := h.store.ExportCommissions()
	if err != nil {
		h.logger.Error("Ошибка экспорта заказов", zap.Error(err))
		c.JSON(http.StatusInternalServerError, APIError{Message: "export failed"})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="commissions.json"`)
	c.Data(http.StatusOK, "application/json", []byte(data))
}

func (h *Handler) importCommissions(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportSize))
	if err != nil {
		c.JSON(http.StatusBadRequest, APIError{Message: "failed to read request body"})
		return
	}
	count, err := h.store.ImportCommissions(c.Request.Context(), string(body))
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

// --- Вспомогательные функции ---

// queryParam возвращает указатель на значение query-параметра или nil,
// если параметр не передан.
func queryParam(c *gin.Context, name string) *string {
	if value, ok := c.GetQuery(name); ok {
		return &value
	}
	return nil
}

func filterPublicCommissions(records []models.CommissionRecord) []models.CommissionRecord {
	out := make([]models.CommissionRecord, 0, len(records))
	for _, rec := range records {
		if rec.IsPublic {
			out = append(out, rec)
		}
	}
	return out
}
