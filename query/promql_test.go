package query

import (
	"errors"
	"testing"
	"time"
)

func TestSelector(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want string
	}{
		{
			name: "no labels",
			req:  Request{MetricName: "up"},
			want: "up",
		},
		{
			name: "single label",
			req:  Request{MetricName: "up", Labels: map[string]string{"instance": "prometheus:9090"}},
			want: `up{instance="prometheus:9090"}`,
		},
		{
			name: "labels sorted",
			req: Request{MetricName: "node_cpu_seconds_total", Labels: map[string]string{
				"mode":     "idle",
				"instance": "node:9100",
			}},
			want: `node_cpu_seconds_total{instance="node:9100",mode="idle"}`,
		},
		{
			name: "quotes escaped",
			req:  Request{MetricName: "up", Labels: map[string]string{"job": `a"b`}},
			want: `up{job="a\"b"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.req.Selector(); got != tt.want {
				t.Errorf("Selector() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	ok := Request{MetricName: "up", Labels: map[string]string{"instance": "prometheus:9090"}}
	if err := ok.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error: %v", err)
	}

	invalid := []Request{
		{MetricName: ""},
		{MetricName: "a b", Labels: map[string]string{"instance": "x"}},
		{MetricName: "http.requests"},
		{MetricName: "up", Labels: map[string]string{"foo-bar": "x"}},
		{MetricName: "up", Labels: map[string]string{"1st": "x"}},
		{MetricName: "up", Labels: map[string]string{"": "x"}},
		{MetricName: "up", Labels: map[string]string{"job": "\xff"}},
	}
	for _, req := range invalid {
		if err := req.Validate(); err == nil {
			t.Errorf("Validate() accepted %+v (selector %s)", req, req.Selector())
		}
	}
}

func TestParseRange(t *testing.T) {
	req := Request{StartTime: "2024-09-15T03:30:00Z", EndTime: "2024-09-15T03:32:00Z"}
	rng, err := req.ParseRange()
	if err != nil {
		t.Fatalf("ParseRange() error: %v", err)
	}
	if got := rng.End.Sub(rng.Start); got != 2*time.Minute {
		t.Errorf("range length = %s, want 2m", got)
	}

	req.StartTime = "yesterday"
	if _, err := req.ParseRange(); !errors.Is(err, ErrInvalidStart) {
		t.Errorf("ParseRange() error = %v, want ErrInvalidStart", err)
	}

	req.StartTime = "2024-09-15T03:30:00Z"
	req.EndTime = "2024-09-15 03:32"
	if _, err := req.ParseRange(); !errors.Is(err, ErrInvalidEnd) {
		t.Errorf("ParseRange() error = %v, want ErrInvalidEnd", err)
	}
}
