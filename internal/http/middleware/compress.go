package middleware

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
)

// Compress gzips responses for clients that accept it. Care plans are long
// text, so the AI routes benefit most.
func Compress() gin.HandlerFunc {
	return gzip.Gzip(gzip.DefaultCompression)
}
