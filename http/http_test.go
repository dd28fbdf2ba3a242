package http

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockController struct {
	BaseController
}

func (p *MockController) Index(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		RenderText(w, "Error:"+err.Error())
		return
	}
	RenderText(w, fmt.Sprintf("method:%s, param id:%s, path id:%s", r.Method, r.FormValue("id"), r.PathValue("id")))
}

func (p *MockController) Panic(w http.ResponseWriter, r *http.Request) {
	panic("boom")
}

func (p *MockController) GetHandlers() (map[string]http.HandlerFunc, error) {
	return ReflectHandlers(p, p.PatternMethods)
}

func newMockConfig(t *testing.T, addr string) *Config {
	controller := &MockController{
		BaseController: BaseController{
			Name: "Mock",
			Path: "/",
			PatternMethods: map[string]string{
				"/{$}":          "Index",
				"/index/{id}":   "Index",
				"GET /panic":    "Panic",
				"POST /private": "Index",
			},
			HandlerMiddlewares: map[string][]Middleware{
				"POST /private": {&AuthMiddleware{Header: "X-Token", Auth: TokenAuth("secret")}},
			},
		},
	}

	conf := NewConfig(addr)
	require.NoError(t, conf.Parse())
	require.NoError(t, conf.RegMiddleware(&AccessLogMiddleware{}))
	require.NoError(t, conf.RegMiddleware(&RecoverMiddleware{}))
	require.NoError(t, conf.RegController(controller))
	return conf
}

func get(t *testing.T, url string) (int, string) {
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestHttpServer(t *testing.T) {
	svc := NewService("http", newMockConfig(t, "127.0.0.1:0"))
	require.NoError(t, svc.Init())
	require.True(t, svc.Start())
	defer svc.Stop()

	base := "http://" + svc.Addr().String()
	status, body := get(t, base)
	assert.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, "method:GET, param id:, path id:", body)

	_, body = get(t, base+"/index/id1?id=id2")
	assert.EqualValues(t, "method:GET, param id:id2, path id:id1", body)

	status, _ = get(t, base+"/none")
	assert.Equal(t, http.StatusNotFound, status)

	status, body = get(t, base+"/panic")
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Contains(t, body, `"success":false`)

	assert.True(t, svc.Stop())
	assert.Nil(t, svc.Addr())
}

func TestAuthMiddleware(t *testing.T) {
	handler, err := newMockConfig(t, "").Handler()
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodPost, "/private", strings.NewReader("id=1"))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.NotContains(t, w.Body.String(), "method:")

	r = httptest.NewRequest(http.MethodPost, "/private", strings.NewReader("id=1"))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.Header.Set("X-Token", "secret")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "method:POST, param id:1, path id:", w.Body.String())

	assert.Equal(t, errAuthDisabled, TokenAuth("").AuthToken(""))
	assert.Equal(t, errAuthFail, TokenAuth("a").AuthToken("b"))
}

func TestCORS(t *testing.T) {
	conf := newMockConfig(t, "")
	conf.CORS = &CORSConfig{AllowedOrigins: []string{"https://blog.example.com"}}
	handler, err := conf.Handler()
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/index/a", nil)
	r.Header.Set("Origin", "https://blog.example.com")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	assert.Equal(t, "https://blog.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	r = httptest.NewRequest(http.MethodGet, "/index/a", nil)
	r.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestConfigDuplicate(t *testing.T) {
	conf := NewConfig("")
	require.NoError(t, conf.RegHandleFunc("/a", func(w http.ResponseWriter, r *http.Request) {}))
	assert.Error(t, conf.RegHandleFunc("/a", func(w http.ResponseWriter, r *http.Request) {}))
	assert.Error(t, conf.RegHandleFunc("/b", nil))
	assert.Error(t, conf.RegMiddleware(nil))
	assert.Error(t, conf.RegController(nil))
	assert.Error(t, (&Config{ReadTimeout: -1}).Parse())
}
