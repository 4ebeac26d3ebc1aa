package handler

import (
    "errors"

    "github.com/gin-gonic/gin"

    "github.com/d60-Lab/home-timeline/internal/repository"
    "github.com/d60-Lab/home-timeline/pkg/response"
)

type createPostRequest struct {
    UserID    string   `json:"user_id" binding:"required"`
    Text      string   `json:"text" binding:"required,max=280"`
    MediaURLs []string `json:"media_urls" binding:"omitempty,max=4,dive,url"`
}

// CreatePost 发帖（薄适配：落地 post store 后发布 ingest 事件）
// @Summary 发帖
// @Tags 帖子
// @Accept json
// @Produce json
// @Param request body createPostRequest true "帖子内容"
// @Success 200 {object} response.Response{data=map[string]string}
// @Failure 400 {object} response.Response
// @Failure 503 {object} response.Response
// @Router /api/v1/posts [post]
func (h *Handler) CreatePost(c *gin.Context) {
    var req createPostRequest
    if err := c.ShouldBindJSON(&req); err != nil {
        response.BadRequest(c, err.Error())
        return
    }
    postID, err := h.publisher.Publish(c.Request.Context(), req.UserID, req.Text, req.MediaURLs)
    if err != nil {
        if errors.Is(err, repository.ErrPostStoreUnavailable) {
            response.Unavailable(c, "post store unavailable")
            return
        }
        response.InternalError(c, err)
        return
    }
    response.Success(c, gin.H{"post_id": postID})
}
