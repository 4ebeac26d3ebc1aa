package response

import (
    "net/http"

    "github.com/gin-gonic/gin"
)

// Response 统一响应结构
type Response struct {
    Code    int         `json:"code"`
    Message string      `json:"message"`
    Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
    c.JSON(http.StatusOK, Response{Code: 0, Message: "ok", Data: data})
}

// SuccessPartial 部分成功：部分数据源不可用，但仍返回可用数据
func SuccessPartial(c *gin.Context, data interface{}) {
    c.JSON(http.StatusOK, Response{Code: 1, Message: "partial", Data: data})
}

func BadRequest(c *gin.Context, msg string) {
    c.JSON(http.StatusBadRequest, Response{Code: 400, Message: msg})
}

func InternalError(c *gin.Context, err error) {
    c.JSON(http.StatusInternalServerError, Response{Code: 500, Message: err.Error()})
}

// Unavailable 下游依赖不可用
func Unavailable(c *gin.Context, msg string) {
    c.JSON(http.StatusServiceUnavailable, Response{Code: 503, Message: msg})
}
