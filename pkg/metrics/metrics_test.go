package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/dropvault/pkg/configs"
	"github.com/yeisme/dropvault/pkg/metrics"
)

func TestMetricsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := configs.MetricsConfig{Enabled: true, Path: "/metrics"}
	if err := metrics.InitMetrics(cfg); err != nil {
		t.Fatal(err)
	}
	// 重复初始化不应 panic
	if err := metrics.InitMetrics(cfg); err != nil {
		t.Fatal(err)
	}

	metrics.UploadsTotal.WithLabelValues(metrics.ResultOK).Inc()
	metrics.DownloadsTotal.WithLabelValues("not_found").Inc()

	engine := gin.New()
	if err := metrics.StartMetricsServer(cfg, engine); err != nil {
		t.Fatal(err)
	}

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	body := w.Body.String()
	for _, name := range []string{`dropvault_uploads_total{result="ok"}`, `dropvault_downloads_total{result="not_found"}`} {
		if !strings.Contains(body, name) {
			t.Errorf("missing %s", name)
		}
	}
}

func TestMetricsDisabled(t *testing.T) {
	engine := gin.New()
	if err := metrics.StartMetricsServer(configs.MetricsConfig{}, engine); err != nil {
		t.Fatal(err)
	}

	if len(engine.Routes()) != 0 {
		t.Errorf("expected no routes, got %d", len(engine.Routes()))
	}
}

func TestMetricsRouteErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)

	engine := gin.New()
	engine.GET("/health/db", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"metrics", "/health/db"} {
		if err := metrics.StartMetricsServer(configs.MetricsConfig{Enabled: true, Path: path}, engine); err == nil {
			t.Errorf("expected error for path %q", path)
		}
	}
}
