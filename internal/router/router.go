package router

import (
    "context"
    "net/http"
    "time"

    sentrygin "github.com/getsentry/sentry-go/gin"
    "github.com/gin-contrib/gzip"
    "github.com/gin-gonic/gin"
    "github.com/prometheus/client_golang/prometheus/promhttp"
    "go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

    "github.com/d60-Lab/home-timeline/config"
    "github.com/d60-Lab/home-timeline/internal/api/handler"
)

// New 装配 HTTP 路由与中间件
func New(cfg *config.Config, h *handler.Handler) *gin.Engine {
    if !cfg.Server.Debug {
        gin.SetMode(gin.ReleaseMode)
    }
    r := gin.New()
    r.Use(gin.Recovery())
    r.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
    r.Use(gzip.Gzip(gzip.DefaultCompression))
    r.Use(otelgin.Middleware("home-timeline"))
    r.Use(requestDeadline(cfg.Timeline.RequestDeadline))

    r.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
    r.GET("/metrics", gin.WrapH(promhttp.Handler()))

    v1 := r.Group("/api/v1")
    {
        v1.GET("/timeline/:user_id", h.HomeTimeline)
        v1.POST("/posts", h.CreatePost)

        rel := v1.Group("/relations")
        rel.POST("/follow", h.Follow)
        rel.POST("/unfollow", h.Unfollow)
        rel.GET("/:user_id/following", h.ListFollowing)
        rel.GET("/:user_id/fans", h.ListFans)
    }
    return r
}

// requestDeadline 给每个请求挂统一预算；下游调用各自再派生更短 deadline
func requestDeadline(d time.Duration) gin.HandlerFunc {
    if d <= 0 {
        d = 2 * time.Second
    }
    return func(c *gin.Context) {
        ctx, cancel := context.WithTimeout(c.Request.Context(), d)
        defer cancel()
        c.Request = c.Request.WithContext(ctx)
        c.Next()
    }
}
