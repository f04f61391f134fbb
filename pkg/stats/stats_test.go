package stats

import (
	"bytes"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVWriter(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewCSVWriter(&buf)
	require.NoError(t, err)

	w.RecordTreeShape(13, 10)
	w.RecordOutcome(Observation{Result: ResultOK, NodeCount: 40, Depth: 14, Attempts: 1})
	w.RecordOutcome(Observation{Result: ResultDuplicate, NodeCount: 40, Depth: 14, Attempts: 1})
	w.RecordOutcome(Observation{Result: ResultError, NodeCount: 22, Depth: 12, Attempts: 3, Errors: 1})
	w.RecordOutcome(Observation{Result: ResultGenerationFailed, Attempts: 16})
	require.NoError(t, w.Close())

	assert.Equal(t, strings.Join([]string{
		"seq,nodes,depth,attempts,ok,errors",
		"1,13,10,,,",
		"2,40,14,1,true,0",
		"3,22,12,3,false,1",
		"",
	}, "\n"), buf.String())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestCSVWriter_KeepsFirstError(t *testing.T) {
	_, err := NewCSVWriter(failingWriter{})
	assert.Error(t, err)
}

func TestCreateCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shapes.csv")
	w, err := CreateCSV(path)
	require.NoError(t, err)
	w.RecordTreeShape(5, 4)
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "seq,nodes,depth,attempts,ok,errors\n1,5,4,,,\n", string(data))
}

func TestMetrics(t *testing.T) {
	m := NewMetrics()
	m.RecordOutcome(Observation{Result: ResultOK, NodeCount: 40, Depth: 14, Attempts: 1})
	m.RecordOutcome(Observation{Result: ResultOK, NodeCount: 20, Depth: 11, Attempts: 2})
	m.RecordOutcome(Observation{Result: ResultError, NodeCount: 22, Depth: 12, Attempts: 1, Errors: 1})
	m.RecordOutcome(Observation{Result: ResultGenerationFailed, Attempts: 16})
	m.RecordTreeShape(13, 10)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.queries.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.queries.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.queries.WithLabelValues("generation_failed")))
	assert.Equal(t, 3, testutil.CollectAndCount(m.queries))

	expected := `
# HELP cypherfuzz_ast_depth Depth of generated trees.
# TYPE cypherfuzz_ast_depth histogram
cypherfuzz_ast_depth_bucket{le="5"} 0
cypherfuzz_ast_depth_bucket{le="10"} 1
cypherfuzz_ast_depth_bucket{le="15"} 4
cypherfuzz_ast_depth_bucket{le="20"} 4
cypherfuzz_ast_depth_bucket{le="25"} 4
cypherfuzz_ast_depth_bucket{le="30"} 4
cypherfuzz_ast_depth_bucket{le="35"} 4
cypherfuzz_ast_depth_bucket{le="40"} 4
cypherfuzz_ast_depth_bucket{le="45"} 4
cypherfuzz_ast_depth_bucket{le="50"} 4
cypherfuzz_ast_depth_bucket{le="55"} 4
cypherfuzz_ast_depth_bucket{le="60"} 4
cypherfuzz_ast_depth_bucket{le="+Inf"} 4
cypherfuzz_ast_depth_sum 47
cypherfuzz_ast_depth_count 4
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "cypherfuzz_ast_depth"))
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics()
	Multi{m, Discard{}}.RecordOutcome(Observation{Result: ResultOK, NodeCount: 13, Depth: 10, Attempts: 1})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `cypherfuzz_queries_total{result="ok"} 1`)
	assert.Contains(t, rec.Body.String(), "cypherfuzz_generation_attempts_count 1")
}
