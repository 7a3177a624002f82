package query

import "time"

// Request is the JSON body accepted by the /query endpoint.
type Request struct {
	MetricName string            `json:"metric_name" mapstructure:"metric_name"`
	Labels     map[string]string `json:"labels" mapstructure:"labels"`
	StartTime  string            `json:"start_time" mapstructure:"start_time"` // RFC 3339, UTC
	EndTime    string            `json:"end_time" mapstructure:"end_time"`     // RFC 3339, UTC
}

// Range is the parsed time window of a Request.
type Range struct {
	Start time.Time
	End   time.Time
}
