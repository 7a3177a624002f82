package storage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"trafficgen/generator"
	"trafficgen/query"
)

func openTestDB(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "outcomes.db"), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewSQLite() error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndQuery(t *testing.T) {
	s := openTestDB(t)
	fixed := time.Date(2024, 9, 15, 3, 30, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }
	ctx := context.Background()

	outcomes := []generator.Outcome{
		{Iteration: 2, Kind: generator.Failed, StatusCode: 503, Message: "try later", Latency: 3 * time.Millisecond},
		{Iteration: 1, Kind: generator.Success, StatusCode: 200, Body: map[string]any{}},
		{Iteration: 3, Kind: generator.Error, Fault: generator.FaultTransport, Err: errors.New("connection refused")},
	}
	for _, o := range outcomes {
		if err := s.Record(ctx, "run-a", o); err != nil {
			t.Fatalf("Record() error: %v", err)
		}
	}
	if err := s.Record(ctx, "run-b", generator.Outcome{Iteration: 1}); err != nil {
		t.Fatal(err)
	}

	got, err := s.Outcomes(ctx, "run-a")
	if err != nil {
		t.Fatalf("Outcomes() error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d rows, want 3", len(got))
	}

	if got[0].Iteration != 1 || got[0].Outcome != "Success" || got[0].StatusCode != 200 {
		t.Errorf("row 1 = %+v", got[0])
	}
	if got[1].Outcome != "Failed" || got[1].Message != "try later" || got[1].Latency != 3*time.Millisecond {
		t.Errorf("row 2 = %+v", got[1])
	}
	if got[2].Outcome != "Error" || got[2].Fault != "transport" || got[2].Message != "connection refused" {
		t.Errorf("row 3 = %+v", got[2])
	}
	if !got[0].Timestamp.Equal(fixed) {
		t.Errorf("timestamp = %s, want %s", got[0].Timestamp, fixed)
	}
}

func TestJournalGeneratorRun(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"success"}`))
	}))
	defer ts.Close()

	s := openTestDB(t)
	g := generator.New(ts.URL, query.Request{MetricName: "up"}, zaptest.NewLogger(t))
	g.Iterations = 3
	g.Delay = 0
	g.Out = &testWriter{t}
	g.Recorder = s

	sum, err := g.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	rows, err := s.Outcomes(context.Background(), sum.RunID)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("journal has %d rows, want 3", len(rows))
	}
	for i, r := range rows {
		if r.Iteration != i+1 || r.Outcome != "Success" {
			t.Errorf("row %d = %+v", i, r)
		}
	}
}

type testWriter struct{ t *testing.T }

func (w *testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}
