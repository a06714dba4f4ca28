package opts

import (
	"errors"
	"fmt"
	"strings"

	"github.com/reoring/goskema"
)

var (
	// ErrOptionKeyRequired indicates an option was declared without a key.
	ErrOptionKeyRequired = errors.New("opts: option key must not be empty")
	// ErrDuplicateOption indicates a key was registered twice in one collection.
	ErrDuplicateOption = errors.New("opts: option already registered")
	// ErrNilOption indicates Register received a nil option.
	ErrNilOption = errors.New("opts: option is nil")
)

// Severity classifies how an error affects a write.
type Severity string

const (
	// SeverityBlocking discards the attempted write.
	SeverityBlocking Severity = "blocking"
	// SeverityWarning accompanies a committed, repaired value.
	SeverityWarning Severity = "warning"
)

// Blocking reports whether s prevents a commit. Unknown and empty severities
// are blocking.
func (s Severity) Blocking() bool {
	return s != SeverityWarning
}

// Error is a single diagnostic attributed to one option.
type Error struct {
	Code     string         `json:"code"`
	Message  string         `json:"message"`
	Severity Severity       `json:"severity,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

func (e Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Errors is an ordered collection of option diagnostics.
type Errors []Error

func (errs Errors) Error() string {
	if len(errs) == 0 {
		return ""
	}
	parts := make([]string, len(errs))
	for i, err := range errs {
		parts[i] = err.Error()
	}
	return strings.Join(parts, "; ")
}

// HasBlocking reports whether any error prevents a commit.
func (errs Errors) HasBlocking() bool {
	for _, err := range errs {
		if err.Severity.Blocking() {
			return true
		}
	}
	return false
}

// Codes returns the error codes in order.
func (errs Errors) Codes() []string {
	if len(errs) == 0 {
		return nil
	}
	codes := make([]string, len(errs))
	for i, err := range errs {
		codes[i] = err.Code
	}
	return codes
}

// Has reports whether code is present.
func (errs Errors) Has(code string) bool {
	for _, err := range errs {
		if err.Code == code {
			return true
		}
	}
	return false
}

func (errs Errors) clone() Errors {
	if len(errs) == 0 {
		return nil
	}
	out := make(Errors, len(errs))
	for i, err := range errs {
		out[i] = err
		out[i].Data = copyMetadata(err.Data)
	}
	return out
}

// NamespacedCode rewrites a generic validator code so it is unique to key.
func NamespacedCode(code, key string) string {
	if key == "" || strings.HasSuffix(code, "_"+key) {
		return code
	}
	return code + "_" + key
}

// Report collects the diagnostics of one pipeline run for a single option.
type Report struct {
	key  string
	errs Errors
}

func newReport(key string) *Report {
	return &Report{key: key}
}

// Key returns the option key the report belongs to.
func (r *Report) Key() string {
	return r.key
}

// Block records a blocking error.
func (r *Report) Block(code, message string) {
	r.add(Error{Code: code, Message: message, Severity: SeverityBlocking})
}

// Warn records a non-blocking error.
func (r *Report) Warn(code, message string, data map[string]any) {
	r.add(Error{Code: code, Message: message, Severity: SeverityWarning, Data: copyMetadata(data)})
}

// AddIssues records generic validator issues with severity, namespacing each
// code with the option key and copying messages and params verbatim.
func (r *Report) AddIssues(issues goskema.Issues, severity Severity) {
	for _, issue := range issues {
		data := copyMetadata(issue.Params)
		if issue.Path != "" && issue.Path != "/" {
			if data == nil {
				data = map[string]any{}
			}
			data["path"] = issue.Path
		}
		r.add(Error{
			Code:     NamespacedCode(issue.Code, r.key),
			Message:  issue.Message,
			Severity: severity,
			Data:     data,
		})
	}
}

// Blocked reports whether a blocking error has been recorded.
func (r *Report) Blocked() bool {
	return r.errs.HasBlocking()
}

// Errors returns a copy of the collected errors.
func (r *Report) Errors() Errors {
	return r.errs.clone()
}

func (r *Report) add(err Error) {
	r.errs = append(r.errs, err)
}

func copyMetadata(origin map[string]any) map[string]any {
	if len(origin) == 0 {
		return nil
	}
	out := make(map[string]any, len(origin))
	for key, value := range origin {
		out[key] = value
	}
	return out
}
