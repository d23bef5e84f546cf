package middleware

import (
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/gin-gonic/gin"
)

// SwaggerConfig holds configuration for Swagger endpoint protection
type SwaggerConfig struct {
	Enabled     bool     // Whether Swagger endpoint is enabled
	RequireAuth bool     // Require JWT authentication to access Swagger
	AllowedIPs  []string // IP whitelist (CIDR notation supported, empty = allow all)
}

// SwaggerProtection guards the API documentation endpoints. Disabled
// docs answer 404, an IP whitelist (single addresses or CIDR ranges)
// answers 403 for outsiders, and RequireAuth runs the JWT middleware
// before serving anything. Whitelist and auth can be combined.
func SwaggerProtection(cfg SwaggerConfig, jwtMiddleware gin.HandlerFunc) gin.HandlerFunc {
	// Parse whitelist entries once; malformed entries are ignored
	var allowedPrefixes []netip.Prefix
	var allowedAddrs []netip.Addr
	for _, entry := range cfg.AllowedIPs {
		if strings.Contains(entry, "/") {
			if prefix, err := netip.ParsePrefix(entry); err == nil {
				allowedPrefixes = append(allowedPrefixes, prefix)
			}
			continue
		}
		if addr, err := netip.ParseAddr(entry); err == nil {
			allowedAddrs = append(allowedAddrs, addr)
		}
	}

	return func(c *gin.Context) {
		if !cfg.Enabled {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "API documentation is not available",
			})
			return
		}

		if len(cfg.AllowedIPs) > 0 {
			clientIP, ok := clientAddr(c)
			if !ok || !isAddrAllowed(clientIP, allowedAddrs, allowedPrefixes) {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
					"error":   "forbidden",
					"message": "Access to API documentation is restricted",
				})
				return
			}
		}

		if cfg.RequireAuth && jwtMiddleware != nil {
			jwtMiddleware(c)
			if c.IsAborted() {
				return
			}
		}

		c.Next()
	}
}

// clientAddr resolves the caller's address, preferring Gin's ClientIP
// which honors the trusted proxy configuration.
func clientAddr(c *gin.Context) (netip.Addr, bool) {
	if ip := c.ClientIP(); ip != "" {
		if addr, err := netip.ParseAddr(ip); err == nil {
			return addr, true
		}
	}

	host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		host = c.Request.RemoteAddr
	}
	addr, err := netip.ParseAddr(host)
	return addr, err == nil
}

func isAddrAllowed(addr netip.Addr, allowed []netip.Addr, prefixes []netip.Prefix) bool {
	// Normalize so an IPv4 caller matches IPv4 whitelist entries even
	// when the listener reports a 4-in-6 address.
	addr = addr.Unmap()

	for _, a := range allowed {
		if a.Unmap() == addr {
			return true
		}
	}
	for _, p := range prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
