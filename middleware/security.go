package middleware

import (
	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
)

// SecurityHeaders sets the usual hardening headers on every response.
// HSTS is only sent in production.
func SecurityHeaders(production bool) gin.HandlerFunc {
	cfg := secure.Config{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		IENoOpen:              true,
		ReferrerPolicy:        "no-referrer",
		ContentSecurityPolicy: "default-src 'self'; frame-ancestors 'self'; object-src 'none'",
	}
	if production {
		cfg.STSSeconds = 15552000
		cfg.STSIncludeSubdomains = true
		cfg.SSLProxyHeaders = map[string]string{"X-Forwarded-Proto": "https"}
	}
	return secure.New(cfg)
}
