package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDocsRouter(cfg SwaggerConfig, jwtMiddleware gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/swagger/*any", SwaggerProtection(cfg, jwtMiddleware), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "docs"})
	})
	return router
}

func getDocs(router *gin.Engine, remoteAddr string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/swagger/index.html", nil)
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	router.ServeHTTP(w, req)
	return w
}

func TestSwaggerProtection_DisabledReturns404(t *testing.T) {
	router := newDocsRouter(SwaggerConfig{Enabled: false}, nil)

	w := getDocs(router, "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "not_found")
}

func TestSwaggerProtection_OpenAccess(t *testing.T) {
	router := newDocsRouter(SwaggerConfig{Enabled: true}, nil)

	w := getDocs(router, "")

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSwaggerProtection_Whitelist(t *testing.T) {
	tests := []struct {
		name       string
		allowedIPs []string
		remoteAddr string
		wantCode   int
	}{
		{"exact address allowed", []string{"127.0.0.1"}, "127.0.0.1:40000", http.StatusOK},
		{"address not listed", []string{"10.0.0.1"}, "192.168.1.1:40000", http.StatusForbidden},
		{"inside CIDR range", []string{"10.0.0.0/8"}, "10.50.100.200:40000", http.StatusOK},
		{"outside CIDR range", []string{"10.0.0.0/8"}, "192.168.1.1:40000", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newDocsRouter(SwaggerConfig{Enabled: true, AllowedIPs: tt.allowedIPs}, nil)

			w := getDocs(router, tt.remoteAddr)

			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantCode == http.StatusForbidden {
				assert.Contains(t, w.Body.String(), "forbidden")
			}
		})
	}
}

func TestSwaggerProtection_RequireAuth(t *testing.T) {
	deny := func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	}
	allow := func(c *gin.Context) {
		c.Set("business_id", "b-1")
		c.Next()
	}

	t.Run("rejected token", func(t *testing.T) {
		router := newDocsRouter(SwaggerConfig{Enabled: true, RequireAuth: true}, deny)

		w := getDocs(router, "")

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("accepted token", func(t *testing.T) {
		router := newDocsRouter(SwaggerConfig{Enabled: true, RequireAuth: true}, allow)

		w := getDocs(router, "")

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("whitelist checked before auth", func(t *testing.T) {
		cfg := SwaggerConfig{Enabled: true, RequireAuth: true, AllowedIPs: []string{"127.0.0.1"}}
		router := newDocsRouter(cfg, allow)

		assert.Equal(t, http.StatusOK, getDocs(router, "127.0.0.1:40000").Code)
		assert.Equal(t, http.StatusForbidden, getDocs(router, "192.168.1.1:40000").Code)
	})
}

func TestIsAddrAllowed(t *testing.T) {
	tests := []struct {
		name     string
		addr     string
		allowed  []string
		prefixes []string
		want     bool
	}{
		{"exact match", "192.168.1.1", []string{"192.168.1.1"}, nil, true},
		{"no match", "192.168.1.2", []string{"192.168.1.1"}, nil, false},
		{"prefix match", "10.0.0.5", nil, []string{"10.0.0.0/8"}, true},
		{"prefix no match", "11.0.0.5", nil, []string{"10.0.0.0/8"}, false},
		{"ipv6 loopback", "::1", []string{"::1"}, nil, true},
		{"mapped ipv4 caller", "::ffff:127.0.0.1", []string{"127.0.0.1"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var allowed []netip.Addr
			for _, s := range tt.allowed {
				allowed = append(allowed, netip.MustParseAddr(s))
			}
			var prefixes []netip.Prefix
			for _, s := range tt.prefixes {
				prefixes = append(prefixes, netip.MustParsePrefix(s))
			}

			addr, err := netip.ParseAddr(tt.addr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, isAddrAllowed(addr, allowed, prefixes))
		})
	}
}
