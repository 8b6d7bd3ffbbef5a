package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_ObserveAPI(t *testing.T) {
	c := NewCollector()

	c.ObserveAPI("signin", nil, 10*time.Millisecond)
	c.ObserveAPI("signin", errors.New("boom"), 5*time.Millisecond)
	c.ObserveAPI("signin", nil, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.APIRequests.WithLabelValues("signin", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.APIRequests.WithLabelValues("signin", OutcomeError)))
	assert.Equal(t, 1, testutil.CollectAndCount(c.APIDuration))
}

func TestCollector_Counters(t *testing.T) {
	c := NewCollector()

	c.ObserveWrite(OutcomeOK)
	c.ObserveWrite(OutcomeDropped)
	c.ObserveFeedMutation("post")
	c.ObserveSession("authenticated")

	assert.Equal(t, 1.0, testutil.ToFloat64(c.StoreWrites.WithLabelValues(OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.StoreWrites.WithLabelValues(OutcomeDropped)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.FeedMutations.WithLabelValues("post")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.SessionTransitions.WithLabelValues("authenticated")))
}

func TestCollector_NilIsNoop(t *testing.T) {
	var c *Collector

	assert.NotPanics(t, func() {
		c.ObserveAPI("signin", nil, time.Second)
		c.ObserveWrite(OutcomeOK)
		c.ObserveFeedMutation("like")
		c.ObserveSession("anonymous")
	})
	assert.NoError(t, c.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")))
}

func TestCollector_WriteTextfile(t *testing.T) {
	c := NewCollector()
	c.ObserveFeedMutation("comment")

	path := filepath.Join(t.TempDir(), "classroom.prom")
	require.NoError(t, c.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `classroom_feed_mutations_total{kind="comment"} 1`)
}
