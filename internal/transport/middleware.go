package transport

import (
	"net/http"
	"runtime/debug"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/avadispatch/internal/encoding"
	"github.com/vyrodovalexey/avadispatch/internal/observability"
)

var ginModeOnce sync.Once

// NewEngine returns a gin engine in release mode with Recovery installed.
func NewEngine(logger observability.Logger) *gin.Engine {
	ginModeOnce.Do(func() {
		gin.SetMode(gin.ReleaseMode)
	})

	engine := gin.New()
	engine.Use(Recovery(logger))
	return engine
}

// Recovery returns a gin middleware that turns a panic in the request
// goroutine into a 500. Handler panics never reach it: the dispatcher
// recovers those on the worker.
func Recovery(logger observability.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = observability.NopLogger()
	}

	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered",
					observability.Any("panic", r),
					observability.String("method", c.Request.Method),
					observability.String("path", c.Request.URL.Path),
					observability.String("client_ip", c.ClientIP()),
					observability.String("stack", string(debug.Stack())),
				)
				c.Header("Connection", "close")
				c.AbortWithStatusJSON(http.StatusInternalServerError,
					encoding.NewErrorBody(http.StatusText(http.StatusInternalServerError)))
			}
		}()

		c.Next()
	}
}
