package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"axiom-server/internal/models"
)

// commentRequest — тело запроса на публикацию комментария. Имя и
// идентификатор пользователя опциональны: гостям сервер выдает
// анонимное имя сам.
type commentRequest struct {
	Text     string `json:"text"`
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

func (h *Handler) listComments(c *gin.Context) {
	c.JSON(http.StatusOK, h.comments.ListComments(c.Param("characterId")))
}

func (h *Handler) createComment(c *gin.Context) {
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, APIError{Message: "invalid request body"})
		return
	}

	comment, err := h.comments.AddComment(c.Request.Context(), c.Param("characterId"), req.UserID, req.UserName, req.Text)
	if err != nil {
		if errors.Is(err, models.ErrEmptyComment) {
			c.JSON(http.StatusBadRequest, APIError{Message: "comment text is empty"})
			return
		}
		c.JSON(http.StatusInternalServerError, APIError{Message: "failed to post comment"})
		return
	}
	commentsPostedTotal.Inc()
	c.JSON(http.StatusCreated, comment)
}

func (h *Handler) deleteComment(c *gin.Context) {
	if !h.comments.DeleteComment(c.Request.Context(), c.Param("id")) {
		c.JSON(http.StatusNotFound, APIError{Message: "comment not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
