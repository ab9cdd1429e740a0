package api

import (
	"fmt"
	"time"

	"stratsim/internal/app"
	"stratsim/internal/logger"
	"stratsim/internal/repository"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type ApiHandler struct {
	BacktestHandler app.BacktestHandler
	PriceProvider   repository.PriceProvider
}

func (m ApiHandler) InitializeRouterEngine() *gin.Engine {
	router := gin.Default()
	router.Use(cors.Default())
	router.Use(m.logRequestMiddleware)

	router.GET("/", func(ctx *gin.Context) {
		ctx.JSON(200, map[string]string{"message": "welcome to stratsim"})
	})
	router.POST("/backtest", m.backtest)
	router.POST("/signals", m.signals)
	router.POST("/testStrategy", m.testStrategy)

	return router
}

func (m ApiHandler) StartApi(port int) error {
	router := m.InitializeRouterEngine()
	return router.Run(fmt.Sprintf(":%d", port))
}

func (m ApiHandler) logRequestMiddleware(c *gin.Context) {
	log := logger.New()
	start := time.Now()
	c.Set(logger.ContextKey, log)
	c.Next()
	log.Infow("handled request",
		"path", c.Request.URL.Path,
		"status", c.Writer.Status(),
		"elapsedMs", time.Since(start).Milliseconds(),
	)
}

func returnErrorJson(err error, c *gin.Context) {
	returnErrorJsonCode(err, c, 500)
}

func returnErrorJsonCode(err error, c *gin.Context, code int) {
	logger.FromContext(c).Error(err.Error())
	c.AbortWithStatusJSON(code, gin.H{
		"error": err.Error(),
	})
}
