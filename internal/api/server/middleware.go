package server

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/amzilayoub/nft-marketplace/pkg/logger"
	"github.com/amzilayoub/nft-marketplace/pkg/marketapi"
	"github.com/amzilayoub/nft-marketplace/pkg/ratelimit"
)

const callerKey = "market.caller"

// requireCaller 解析 X-Caller-Address，写入 gin.Context
func requireCaller() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(marketapi.HeaderCaller)
		if !common.IsHexAddress(raw) {
			writeError(c, http.StatusUnauthorized, marketapi.CodeUnauthorized,
				fmt.Sprintf("missing or invalid %s header", marketapi.HeaderCaller))
			c.Abort()
			return
		}
		c.Set(callerKey, common.HexToAddress(raw))
		c.Next()
	}
}

func callerOf(c *gin.Context) common.Address {
	v, _ := c.Get(callerKey)
	addr, _ := v.(common.Address)
	return addr
}

// rateLimit 按调用方地址分桶，未带地址的请求按客户端 IP
func rateLimit(limiter *ratelimit.Keyed) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(marketapi.HeaderCaller)
		if common.IsHexAddress(key) {
			key = common.HexToAddress(key).Hex()
		} else {
			key = "ip:" + c.ClientIP()
		}
		bucket := limiter.Get(key)
		if !bucket.Allow() {
			retry := int(math.Ceil(bucket.RetryAfter().Seconds()))
			if retry < 1 {
				retry = 1
			}
			c.Header("Retry-After", fmt.Sprint(retry))
			writeError(c, http.StatusTooManyRequests, marketapi.CodeRateLimited, "rate limit exceeded")
			c.Abort()
			return
		}
		c.Header(marketapi.HeaderRateLimitRemaining, fmt.Sprint(bucket.Remaining()))
		c.Next()
	}
}

func (s *Server) timeout() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.Timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		entry := logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("[http] request failed")
		} else {
			entry.Debug("[http] request")
		}
	}
}
