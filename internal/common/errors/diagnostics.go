// internal/common/errors/diagnostics.go
package errors

import (
	"fmt"
	"time"
)

// Diagnostic is a single non-fatal finding produced during a run.
type Diagnostic struct {
	Code      ErrorCode              `json:"code"`
	Stage     string                 `json:"stage"`
	Message   string                 `json:"message"`
	Path      string                 `json:"path,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Logger is the minimal logging surface the collector needs.
type Logger interface {
	Warn(msg string, fields map[string]interface{})
}

// Collector accumulates diagnostics for one pipeline run. It is not safe for
// concurrent use; each run owns its own collector.
type Collector struct {
	logger      Logger
	diagnostics []Diagnostic
}

func NewCollector(logger Logger) *Collector {
	return &Collector{logger: logger}
}

// Add records a diagnostic and logs it at warn level.
func (c *Collector) Add(code ErrorCode, stage, path, format string, args ...interface{}) {
	d := Diagnostic{
		Code:      code,
		Stage:     stage,
		Message:   fmt.Sprintf(format, args...),
		Path:      path,
		Timestamp: time.Now().UTC(),
	}
	c.diagnostics = append(c.diagnostics, d)

	if c.logger != nil {
		c.logger.Warn(d.Message, map[string]interface{}{
			"code":  string(code),
			"stage": stage,
			"path":  path,
		})
	}
}

// AddWithMetadata records a diagnostic carrying extra structured context.
func (c *Collector) AddWithMetadata(code ErrorCode, stage, path, message string, metadata map[string]interface{}) {
	d := Diagnostic{
		Code:      code,
		Stage:     stage,
		Message:   message,
		Path:      path,
		Metadata:  metadata,
		Timestamp: time.Now().UTC(),
	}
	c.diagnostics = append(c.diagnostics, d)

	if c.logger != nil {
		fields := map[string]interface{}{
			"code":  string(code),
			"stage": stage,
			"path":  path,
		}
		for k, v := range metadata {
			fields[k] = v
		}
		c.logger.Warn(message, fields)
	}
}

// All returns the accumulated diagnostics in insertion order.
func (c *Collector) All() []Diagnostic {
	return c.diagnostics
}

// CountByCode returns how many diagnostics carry the given code.
func (c *Collector) CountByCode(code ErrorCode) int {
	n := 0
	for _, d := range c.diagnostics {
		if d.Code == code {
			n++
		}
	}
	return n
}
