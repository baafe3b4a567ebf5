// Package dbfile implements the LambdaMOO/ToastStunt database file codec:
// Load parses the line-oriented textual format into a Database, and Dump
// serializes a Database back to the same format.
package dbfile

import "fmt"

// ParseError reports a fatal failure encountered while reading a database
// file. Parsing never attempts to resynchronize after one of these; the
// first failure aborts the Load.
type ParseError struct {
	Filename string
	Line     int
	Message  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.Filename, e.Line, e.Message)
}

func parseErrorf(filename string, line int, format string, args ...any) *ParseError {
	return &ParseError{Filename: filename, Line: line, Message: fmt.Sprintf(format, args...)}
}
