package feed

import (
	"errors"
	"fmt"
	"strings"
)

// Feed error codes
const (
	ErrCodeFeedUnavailable    = "ERR_FEED_UNAVAILABLE"
	ErrCodeFeedEmpty          = "ERR_FEED_EMPTY"
	ErrCodeFeedMalformed      = "ERR_FEED_MALFORMED"
	ErrCodeFeedEncoding       = "ERR_FEED_ENCODING"
	ErrCodeNodeMissingID      = "ERR_NODE_MISSING_ID"
	ErrCodeNodeMissingName    = "ERR_NODE_MISSING_NAME"
	ErrCodeNodeInvalidPrice   = "ERR_NODE_INVALID_PRICE"
	ErrCodeRowMalformed       = "ERR_ROW_MALFORMED"
	ErrCodeRowMissingField    = "ERR_ROW_MISSING_FIELD"
	ErrCodeRowInvalidQuantity = "ERR_ROW_INVALID_QUANTITY"
)

// Common feed errors
var (
	// ErrEmptyFeed is returned when the feed body contains no data
	ErrEmptyFeed = errors.New("feed is empty")

	// ErrMissingHeader is returned when the offers feed has no header row
	ErrMissingHeader = errors.New("offers feed missing header row")

	// ErrInvalidEncoding is returned when the feed encoding cannot be decoded
	ErrInvalidEncoding = errors.New("invalid feed encoding")
)

// NodeError describes a problem with one feed node or row. The rest of the
// feed is still processed.
type NodeError struct {
	Line    int    `json:"line"`
	Node    string `json:"node"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// Error implements the error interface
func (e NodeError) Error() string {
	if e.Node != "" {
		return fmt.Sprintf("line %d, node '%s': %s", e.Line, e.Node, e.Message)
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// NewNodeError creates a new NodeError
func NewNodeError(line int, node, code, message string) NodeError {
	return NodeError{
		Line:    line,
		Node:    node,
		Code:    code,
		Message: message,
	}
}

// ErrorCollection accumulates per-node feed errors up to a cap
type ErrorCollection struct {
	errors     []NodeError
	maxErrors  int
	totalCount int
}

// NewErrorCollection creates a new ErrorCollection with a maximum error limit
func NewErrorCollection(maxErrors int) *ErrorCollection {
	if maxErrors <= 0 {
		maxErrors = 100 // Default limit
	}
	return &ErrorCollection{
		errors:    make([]NodeError, 0, maxErrors),
		maxErrors: maxErrors,
	}
}

// Add adds an error to the collection
func (ec *ErrorCollection) Add(err NodeError) {
	ec.totalCount++
	if len(ec.errors) < ec.maxErrors {
		ec.errors = append(ec.errors, err)
	}
}

// Errors returns the collected errors
func (ec *ErrorCollection) Errors() []NodeError {
	return ec.errors
}

// Count returns the number of collected errors (up to maxErrors)
func (ec *ErrorCollection) Count() int {
	return len(ec.errors)
}

// TotalCount returns the total number of errors including those not collected
func (ec *ErrorCollection) TotalCount() int {
	return ec.totalCount
}

// HasErrors returns true if there are any errors
func (ec *ErrorCollection) HasErrors() bool {
	return ec.totalCount > 0
}

// IsTruncated returns true if some errors were not collected due to the limit
func (ec *ErrorCollection) IsTruncated() bool {
	return ec.totalCount > ec.maxErrors
}

// String returns a string representation of all errors
func (ec *ErrorCollection) String() string {
	if !ec.HasErrors() {
		return "no errors"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d error(s) found", ec.totalCount))
	if ec.IsTruncated() {
		sb.WriteString(fmt.Sprintf(" (showing first %d)", ec.maxErrors))
	}
	sb.WriteString(":\n")

	for _, err := range ec.errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}

	return sb.String()
}
