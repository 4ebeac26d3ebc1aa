package handler

import (
    "errors"
    "strconv"

    "github.com/gin-gonic/gin"

    "github.com/d60-Lab/home-timeline/internal/model"
    "github.com/d60-Lab/home-timeline/internal/service"
    "github.com/d60-Lab/home-timeline/pkg/response"
)

const (
    defaultPageLimit = 20
    maxPageLimit     = 200
)

// HomeTimeline 主时间线分页读取
// @Summary 主时间线
// @Tags 时间线
// @Param user_id path string true "用户ID"
// @Param limit query int false "每页数量" default(20)
// @Param cursor query string false "分页游标（上一页返回的 next_cursor）"
// @Success 200 {object} response.Response{data=service.TimelinePage}
// @Failure 400 {object} response.Response
// @Failure 503 {object} response.Response
// @Router /api/v1/timeline/{user_id} [get]
func (h *Handler) HomeTimeline(c *gin.Context) {
    userID := c.Param("user_id")
    if userID == "" {
        response.BadRequest(c, "user_id is required")
        return
    }
    limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageLimit)))
    if err != nil || limit < 1 || limit > maxPageLimit {
        response.BadRequest(c, "limit must be in [1, 200]")
        return
    }
    cursor, err := model.DecodeCursor(c.Query("cursor"))
    if err != nil {
        response.BadRequest(c, "invalid cursor")
        return
    }

    page, err := h.assembler.HomeTimeline(c.Request.Context(), userID, limit, cursor)
    if err != nil {
        if errors.Is(err, service.ErrTimelineUnavailable) {
            response.Unavailable(c, "timeline temporarily unavailable")
            return
        }
        response.InternalError(c, err)
        return
    }
    if page.Partial {
        response.SuccessPartial(c, page)
        return
    }
    response.Success(c, page)
}
