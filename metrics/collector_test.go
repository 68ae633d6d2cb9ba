package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_RecordAnswer(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.RecordAnswer("faq_direct")
	c.RecordAnswer("faq_direct")
	c.RecordAnswer("llm_only")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.answersTotal.WithLabelValues("faq_direct")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.answersTotal.WithLabelValues("llm_only")))
}

func TestCollector_RecordCall(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.RecordCall("retrieval", "ok", 120*time.Millisecond)
	c.RecordCall("retrieval", "timeout", 30*time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.callsTotal.WithLabelValues("retrieval", "timeout")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.callDuration))
}

func TestCollector_RecordSnapshot(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.RecordSnapshot(nil, 14, 100)
	c.RecordSnapshot(errors.New("boom"), 0, 0)

	assert.Equal(t, 14.0, testutil.ToFloat64(c.corpusSize.WithLabelValues("regulations")))
	assert.Equal(t, 100.0, testutil.ToFloat64(c.corpusSize.WithLabelValues("faqs")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.snapshotLoads.WithLabelValues("error")))
}

func TestCollector_NilIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.RecordAnswer("x")
		c.RecordFallback("x")
		c.RecordCall("x", "ok", time.Second)
		c.RecordSnapshot(nil, 1, 1)
	})
}

func TestCollector_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c := NewCollector(prometheus.NewRegistry())

	r := gin.New()
	r.Use(c.Middleware())
	r.GET("/health", func(ctx *gin.Context) { ctx.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.httpRequestsTotal.WithLabelValues("GET", "/health", "200")))
}

func TestNewCollector_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewCollector(prometheus.NewRegistry())
		NewCollector(prometheus.NewRegistry())
	})
}
