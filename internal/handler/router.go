package handler

import (
	"pointsystem/internal/service"

	"github.com/gin-gonic/gin"
)

// SetupRouter 配置路由
func SetupRouter(pointService *service.PointService, guard RequestGuard) *gin.Engine {
	r := gin.New()

	// 注册中间件
	r.Use(RecoveryMiddleware())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware())

	h := NewHandler(pointService, guard)

	point := r.Group("/point")
	{
		point.GET("/:id", h.GetPoint)
		point.GET("/:id/histories", h.GetHistories)
		point.PATCH("/:id/charge", h.Charge)
		point.PATCH("/:id/use", h.Use)
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
