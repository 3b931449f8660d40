package middleware

import (
	"log"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
)

// Recovery はハンドラーのパニックを回復するGinミドルウェアを返す。
// 回復時はスタックトレース付きでログを残し、クライアントには500を返す。
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			log.Printf("[Recovery] %s %s でパニックが発生: %v\n%s",
				c.Request.Method, c.Request.URL.Path, r, debug.Stack())
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "サーバー内部でエラーが発生しました",
			})
		}()
		c.Next()
	}
}
