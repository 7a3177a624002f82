package query

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/common/model"
)

var (
	// ErrInvalidStart and ErrInvalidEnd are returned by ParseRange.
	ErrInvalidStart = errors.New("invalid start time format")
	ErrInvalidEnd   = errors.New("invalid end time format")
)

// Validate checks the metric name and every label pair. Names must follow
// the legacy [a-zA-Z_:][a-zA-Z0-9_:]* rules because Selector writes them
// unquoted.
func (r Request) Validate() error {
	if !model.LegacyValidation.IsValidMetricName(r.MetricName) {
		return fmt.Errorf("invalid metric name %q", r.MetricName)
	}
	for k, v := range r.Labels {
		if !model.LegacyValidation.IsValidLabelName(k) {
			return fmt.Errorf("invalid labels: invalid name %q", k)
		}
		if !model.LabelValue(v).IsValid() {
			return fmt.Errorf("invalid labels: invalid value %q", v)
		}
	}
	return nil
}

// Selector renders the request as a PromQL instant vector selector, e.g.
// up{instance="prometheus:9090"}. Labels are emitted in sorted order.
func (r Request) Selector() string {
	if len(r.Labels) == 0 {
		return r.MetricName
	}

	names := make([]string, 0, len(r.Labels))
	for k := range r.Labels {
		names = append(names, k)
	}
	sort.Strings(names)

	matchers := make([]string, 0, len(names))
	for _, k := range names {
		matchers = append(matchers, fmt.Sprintf("%s=%q", k, r.Labels[k]))
	}
	return r.MetricName + "{" + strings.Join(matchers, ",") + "}"
}

// ParseRange parses StartTime and EndTime as RFC 3339 timestamps.
func (r Request) ParseRange() (Range, error) {
	start, err := time.Parse(time.RFC3339, r.StartTime)
	if err != nil {
		return Range{}, fmt.Errorf("%w: %v", ErrInvalidStart, err)
	}
	end, err := time.Parse(time.RFC3339, r.EndTime)
	if err != nil {
		return Range{}, fmt.Errorf("%w: %v", ErrInvalidEnd, err)
	}
	return Range{Start: start, End: end}, nil
}
