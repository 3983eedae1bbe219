package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lustra-ai/lustra/engine/auth"
	"github.com/lustra-ai/lustra/engine/pipeline"
	"github.com/lustra-ai/lustra/pkg/config"
)

func newTestServer(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	authSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"u-1","email":"ada@example.com","plan":"studio","credits":42}`)
	}))
	t.Cleanup(authSrv.Close)

	engineSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/workflows/start":
			fmt.Fprint(w, `{"workflow_id":"wf-proxy-1"}`)
		case r.Method == http.MethodGet && r.URL.Path == "/workflows/wf-proxy-1/status":
			fmt.Fprint(w, `{"progress":{"state":"running","visited":["resize_image"]},"results":{}}`)
		case r.Method == http.MethodGet && r.URL.Path == "/workflows/wf-proxy-1/result":
			fmt.Fprint(w, `{"save_image":[{"image":"data:image/png;base64,aGk="}]}`)
		case r.Method == http.MethodPost && r.URL.Path == "/workflows/wf-proxy-1/cancel":
			w.WriteHeader(http.StatusAccepted)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(engineSrv.Close)

	cfg := config.Default()
	cfg.Server.RateLimit = 0
	if mutate != nil {
		mutate(cfg)
	}

	return New(
		cfg,
		pipeline.NewClient(pipeline.ClientConfig{BaseURL: engineSrv.URL, Timeout: 5 * time.Second}),
		auth.NewClient(auth.ClientConfig{BaseURL: authSrv.URL, Timeout: 5 * time.Second}),
	)
}

func doRequest(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func startForm(t *testing.T, variant string) (*bytes.Buffer, string) {
	t.Helper()
	body := new(bytes.Buffer)
	form := multipart.NewWriter(body)
	require.NoError(t, form.WriteField("workflow_name", variant))
	require.NoError(t, form.WriteField("overrides", `{"jewelry_type":"ring","prompt":"marble"}`))
	part, err := form.CreateFormFile("file", "ring.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("fake-bytes"))
	require.NoError(t, err)
	require.NoError(t, form.Close())
	return body, form.FormDataContentType()
}

func TestServer_Health(t *testing.T) {
	t.Run("Should answer health checks without auth", func(t *testing.T) {
		s := newTestServer(t, nil)
		rec := doRequest(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestServer_Auth(t *testing.T) {
	t.Run("Should reject generation requests without a token", func(t *testing.T) {
		s := newTestServer(t, nil)
		body, contentType := startForm(t, "flux-generation")
		req := httptest.NewRequest(http.MethodPost, "/api/v0/generations", body)
		req.Header.Set("Content-Type", contentType)

		rec := doRequest(s, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("Should reject invalid tokens", func(t *testing.T) {
		s := newTestServer(t, nil)
		body, contentType := startForm(t, "flux-generation")
		req := httptest.NewRequest(http.MethodPost, "/api/v0/generations", body)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", "Bearer wrong")

		rec := doRequest(s, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("Should proxy the user record for a valid token", func(t *testing.T) {
		s := newTestServer(t, nil)
		req := httptest.NewRequest(http.MethodGet, "/api/v0/users/me", nil)
		req.Header.Set("Authorization", "Bearer good-token")

		rec := doRequest(s, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Data auth.User `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "ada@example.com", resp.Data.Email)
		assert.Equal(t, 42, resp.Data.Credits)
	})
}

func TestServer_Generations(t *testing.T) {
	authed := func(req *http.Request) *http.Request {
		req.Header.Set("Authorization", "Bearer good-token")
		return req
	}

	t.Run("Should forward a start request and return the workflow id", func(t *testing.T) {
		s := newTestServer(t, nil)
		body, contentType := startForm(t, "flux-generation")
		req := authed(httptest.NewRequest(http.MethodPost, "/api/v0/generations", body))
		req.Header.Set("Content-Type", contentType)

		rec := doRequest(s, req)
		require.Equal(t, http.StatusAccepted, rec.Code)

		var resp struct {
			Data struct {
				WorkflowID string `json:"workflow_id"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "wf-proxy-1", resp.Data.WorkflowID)
	})

	t.Run("Should reject unknown workflow variants before forwarding", func(t *testing.T) {
		s := newTestServer(t, nil)
		body, contentType := startForm(t, "background-removal")
		req := authed(httptest.NewRequest(http.MethodPost, "/api/v0/generations", body))
		req.Header.Set("Content-Type", contentType)

		rec := doRequest(s, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Should proxy status snapshots", func(t *testing.T) {
		s := newTestServer(t, nil)
		req := authed(httptest.NewRequest(http.MethodGet, "/api/v0/generations/wf-proxy-1/status", nil))

		rec := doRequest(s, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"state":"running"`)
		assert.Contains(t, rec.Body.String(), "resize_image")
	})

	t.Run("Should proxy result payloads", func(t *testing.T) {
		s := newTestServer(t, nil)
		req := authed(httptest.NewRequest(http.MethodGet, "/api/v0/generations/wf-proxy-1/result", nil))

		rec := doRequest(s, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "save_image")
	})

	t.Run("Should forward cancellations", func(t *testing.T) {
		s := newTestServer(t, nil)
		req := authed(httptest.NewRequest(http.MethodPost, "/api/v0/generations/wf-proxy-1/cancel", nil))

		rec := doRequest(s, req)
		assert.Equal(t, http.StatusAccepted, rec.Code)
	})

	t.Run("Should surface engine failures as bad gateway", func(t *testing.T) {
		s := newTestServer(t, nil)
		req := authed(httptest.NewRequest(http.MethodGet, "/api/v0/generations/wf-unknown/status", nil))

		rec := doRequest(s, req)
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})
}

func TestServer_RateLimit(t *testing.T) {
	t.Run("Should throttle once the per-period limit is hit", func(t *testing.T) {
		s := newTestServer(t, func(cfg *config.Config) {
			cfg.Server.RateLimit = 2
			cfg.Server.RatePeriod = time.Minute
		})

		var codes []int
		for i := 0; i < 3; i++ {
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			req.RemoteAddr = "10.0.0.1:1234"
			codes = append(codes, doRequest(s, req).Code)
		}
		assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	})
}
