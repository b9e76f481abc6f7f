package ssl

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/unrolled/secure"
)

// TlsHandler 将 http 请求重定向到 https，仅在开启 TLS 时挂载
func TlsHandler(host string, port int) gin.HandlerFunc {
	secureMiddleware := secure.New(secure.Options{
		SSLRedirect: true,
		SSLHost:     host + ":" + strconv.Itoa(port),
	})
	return func(c *gin.Context) {
		// Process 出错时已写入重定向响应，不要再调用 c.Abort 之外的写操作
		if err := secureMiddleware.Process(c.Writer, c.Request); err != nil {
			c.Abort()
			return
		}
		c.Next()
	}
}
