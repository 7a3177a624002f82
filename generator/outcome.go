package generator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Kind classifies the result of one iteration.
type Kind int

const (
	Success Kind = iota // HTTP 200 with a JSON body
	Failed              // any other HTTP status
	Error               // no usable response, see FaultKind
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "Success"
	case Failed:
		return "Failed"
	case Error:
		return "Error"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// FaultKind tells why an iteration ended in Error.
type FaultKind int

const (
	FaultNone      FaultKind = iota
	FaultRequest             // payload encoding or request construction
	FaultTransport           // connection, timeout, reading the body
	FaultDecode              // 200 response that is not JSON
)

func (f FaultKind) String() string {
	switch f {
	case FaultNone:
		return "none"
	case FaultRequest:
		return "request"
	case FaultTransport:
		return "transport"
	case FaultDecode:
		return "decode"
	}
	return fmt.Sprintf("FaultKind(%d)", int(f))
}

// Outcome is the classified result of one iteration.
type Outcome struct {
	Iteration  int // 1-based
	Kind       Kind
	StatusCode int
	Body       any    // parsed JSON, Success only
	Message    string // raw response text, Failed only
	Fault      FaultKind
	Err        error
	Latency    time.Duration
}

// String renders the outcome the way it is printed to stdout. A Success
// spans two lines, the second carrying the response.
func (o Outcome) String() string {
	switch o.Kind {
	case Success:
		return fmt.Sprintf("Request %d: Success - Response received\nResponse: %s", o.Iteration, renderJSON(o.Body))
	case Failed:
		return fmt.Sprintf("Request %d: Failed - Status Code: %d, Message: %s", o.Iteration, o.StatusCode, o.Message)
	default:
		return fmt.Sprintf("Request %d: Error - %v", o.Iteration, o.Err)
	}
}

// renderJSON encodes v compactly without HTML escaping.
func renderJSON(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Sprint(v)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// Summary counts the outcomes of one run.
type Summary struct {
	RunID     string
	Succeeded int
	Failed    int
	Errored   int
	Elapsed   time.Duration
}

// Total is the number of iterations that produced an outcome.
func (s *Summary) Total() int {
	return s.Succeeded + s.Failed + s.Errored
}

func (s *Summary) add(o Outcome) {
	switch o.Kind {
	case Success:
		s.Succeeded++
	case Failed:
		s.Failed++
	default:
		s.Errored++
	}
}
