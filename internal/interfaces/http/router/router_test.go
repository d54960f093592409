package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestNewRouter(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	assert.NotNil(t, r)
	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.registrars)
}

func TestRouterWithAPIVersion(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine, WithAPIVersion("v2"))

	assert.Equal(t, "v2", r.apiVersion)
}

func TestRouterRegister(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	r.Register(NewDomainGroup("test", "/test"))

	assert.Len(t, r.registrars, 1)
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine, WithAPIVersion("v1"))

	group := NewDomainGroup("test", "/test")
	group.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	r.Register(group)
	r.Setup()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/test/ping", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
}

func TestRouterWithMiddleware(t *testing.T) {
	engine := gin.New()
	engine.GET("/outside", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("mark"))
	})

	r := NewRouter(engine, WithMiddleware(func(c *gin.Context) {
		c.Set("mark", "api")
		c.Next()
	}))
	group := NewDomainGroup("test", "/test")
	group.GET("/inside", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("mark"))
	})
	r.Register(group).Setup()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/test/inside", nil))
	assert.Equal(t, "api", w.Body.String())

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/outside", nil))
	assert.Equal(t, "", w.Body.String())
}

func TestDomainGroup_Methods(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	ok := func(c *gin.Context) { c.String(http.StatusOK, c.Request.Method) }
	group := NewDomainGroup("items", "/items")
	group.GET("", ok).
		POST("", ok).
		PUT("/:id", ok).
		DELETE("/:id", ok)

	r.Register(group).Setup()

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/items"},
		{http.MethodPost, "/api/v1/items"},
		{http.MethodPut, "/api/v1/items/1"},
		{http.MethodDelete, "/api/v1/items/1"},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.method, w.Body.String())
		})
	}

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, "/api/v1/items/1", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDomainGroup_MiddlewareAndSubgroups(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	var calls []string
	group := NewDomainGroup("parent", "/parent")
	group.Use(func(c *gin.Context) {
		calls = append(calls, "parent")
		c.Next()
	})
	child := group.Group("child", "/child")
	child.Use(func(c *gin.Context) {
		calls = append(calls, "child")
		c.Next()
	})
	child.GET("/leaf", func(c *gin.Context) {
		calls = append(calls, "handler")
		c.Status(http.StatusNoContent)
	})

	assert.Equal(t, "parent", group.Name())
	assert.Equal(t, "/parent", group.Prefix())
	assert.Equal(t, "child", child.Name())
	assert.Equal(t, "/child", child.Prefix())

	r.Register(group).Setup()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/parent/child/leaf", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{"parent", "child", "handler"}, calls)
}
