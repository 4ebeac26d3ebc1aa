package handler

import (
    "errors"
    "strconv"

    "github.com/gin-gonic/gin"

    "github.com/d60-Lab/home-timeline/internal/service"
    "github.com/d60-Lab/home-timeline/pkg/response"
)

type relationRequest struct {
    FromUserID string `json:"from_user_id" binding:"required"`
    ToUserID   string `json:"to_user_id" binding:"required"`
}

const (
    defaultRelationPageSize = 10
    maxRelationPageSize     = 100
)

func relationPage(c *gin.Context) (int, int) {
    page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
    if page < 1 {
        page = 1
    }
    size, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(defaultRelationPageSize)))
    if size < 1 || size > maxRelationPageSize {
        size = defaultRelationPageSize
    }
    return page, size
}

// Follow 建立关注。粉丝冗余边与作者近期帖的时间线回填都异步收尾，
// 回填落地前新关注者的主页暂时看不到对方的历史帖。
// @Summary 关注作者（异步回填其近期帖子）
// @Tags 关系链
// @Accept json
// @Produce json
// @Param request body relationRequest true "关注双方"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /api/v1/relations/follow [post]
func (h *Handler) Follow(c *gin.Context) {
    var req relationRequest
    if err := c.ShouldBindJSON(&req); err != nil {
        response.BadRequest(c, err.Error())
        return
    }
    err := h.relService.Follow(c.Request.Context(), req.FromUserID, req.ToUserID)
    switch {
    case err == nil:
        response.Success(c, nil)
    case errors.Is(err, service.ErrFollowSelf):
        response.BadRequest(c, err.Error())
    default:
        response.InternalError(c, err)
    }
}

// Unfollow 取消关注。粉丝边移除与 cache 里该作者残留帖的清理异步完成，
// 清理前旧帖最多还能被看到一个清理周期。
// @Summary 取消关注（异步清理其缓存帖子）
// @Tags 关系链
// @Accept json
// @Produce json
// @Param request body relationRequest true "取消关注双方"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /api/v1/relations/unfollow [post]
func (h *Handler) Unfollow(c *gin.Context) {
    var req relationRequest
    if err := c.ShouldBindJSON(&req); err != nil {
        response.BadRequest(c, err.Error())
        return
    }
    if err := h.relService.Unfollow(c.Request.Context(), req.FromUserID, req.ToUserID); err != nil {
        response.InternalError(c, err)
        return
    }
    response.Success(c, nil)
}

// ListFollowing 查询某用户的关注集（主页装配按同一集合区分 push/pull 作者）
// @Summary 查询关注列表
// @Tags 关系链
// @Param user_id path string true "用户ID"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量，上限 100" default(10)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/relations/{user_id}/following [get]
func (h *Handler) ListFollowing(c *gin.Context) {
    userID := c.Param("user_id")
    page, pageSize := relationPage(c)
    list, err := h.relService.ListFollowing(c.Request.Context(), userID, page, pageSize)
    if err != nil {
        response.InternalError(c, err)
        return
    }
    response.Success(c, gin.H{"page": page, "page_size": pageSize, "list": list})
}

// ListFans 查询某作者的粉丝（扇出引擎按同一张冗余表枚举接收者）
// @Summary 查询粉丝列表
// @Tags 关系链
// @Param user_id path string true "用户ID"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量，上限 100" default(10)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/relations/{user_id}/fans [get]
func (h *Handler) ListFans(c *gin.Context) {
    userID := c.Param("user_id")
    page, pageSize := relationPage(c)
    list, err := h.relService.ListFans(c.Request.Context(), userID, page, pageSize)
    if err != nil {
        response.InternalError(c, err)
        return
    }
    response.Success(c, gin.H{"page": page, "page_size": pageSize, "list": list})
}
