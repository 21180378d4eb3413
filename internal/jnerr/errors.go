// Package jnerr implements the error taxonomy: one typed,
// wrapped error per component so every message carries its originating
// component name and callers can branch on kind with errors.As.
//
// Follows a sentinel-kind-plus-Unwrap shape (ParseError, ValidationError,
// ExecutionError, PluginError), one kind per failing component.
package jnerr

import "fmt"

// AddressError reports a malformed address string.
type AddressError struct {
	Raw     string
	Message string
	Err     error
}

func NewAddressError(raw, message string, err error) error {
	return &AddressError{Raw: raw, Message: message, Err: err}
}

func (e *AddressError) Error() string {
	return fmt.Sprintf("address error: %q: %s", e.Raw, e.Message)
}

func (e *AddressError) Unwrap() error { return e.Err }

// ProfileError covers missing references, missing env vars, circular
// references, and schema mismatches.
type ProfileError struct {
	Ref     string
	Message string
	Err     error
}

func NewProfileError(ref, message string, err error) error {
	return &ProfileError{Ref: ref, Message: message, Err: err}
}

func (e *ProfileError) Error() string {
	if e.Ref != "" {
		return fmt.Sprintf("profile error [%s]: %s", e.Ref, e.Message)
	}
	return fmt.Sprintf("profile error: %s", e.Message)
}

func (e *ProfileError) Unwrap() error { return e.Err }

// DiscoveryError covers plugin metadata parse failures, unreadable
// directories, and cache corruption. Callers decide
// whether to warn-and-continue or abort based on Fatal.
type DiscoveryError struct {
	Path    string
	Message string
	Fatal   bool
	Err     error
}

func NewDiscoveryError(path, message string, fatal bool, err error) error {
	return &DiscoveryError{Path: path, Message: message, Fatal: fatal, Err: err}
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discovery error [%s]: %s", e.Path, e.Message)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// PlannerError covers "no plugin matches" and I/O-shape incompatibility
// between adjacent stages.
type PlannerError struct {
	Stage   string
	Message string
	Err     error
}

func NewPlannerError(stage, message string, err error) error {
	return &PlannerError{Stage: stage, Message: message, Err: err}
}

func (e *PlannerError) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("planner error [%s]: %s", e.Stage, e.Message)
	}
	return fmt.Sprintf("planner error: %s", e.Message)
}

func (e *PlannerError) Unwrap() error { return e.Err }

// ExecError covers spawn failures and non-zero exits at the process
// pipeline executor.
type ExecError struct {
	StageIndex int
	Command    string
	Stderr     string
	Err        error
}

func NewExecError(stageIndex int, command, stderr string, err error) error {
	return &ExecError{StageIndex: stageIndex, Command: command, Stderr: stderr, Err: err}
}

func (e *ExecError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("exec error: stage %d (%s): %v: %s", e.StageIndex, e.Command, e.Err, e.Stderr)
	}
	return fmt.Sprintf("exec error: stage %d (%s): %v", e.StageIndex, e.Command, e.Err)
}

func (e *ExecError) Unwrap() error { return e.Err }

// ExprParseError reports a syntax error in a query with the offending
// expression and position.
type ExprParseError struct {
	Expr    string
	Pos     int
	Message string
}

func NewExprParseError(expr string, pos int, message string) error {
	return &ExprParseError{Expr: expr, Pos: pos, Message: message}
}

func (e *ExprParseError) Error() string {
	return fmt.Sprintf("parse error at %d in %q: %s", e.Pos, e.Expr, e.Message)
}

// UnsupportedFeatureError names an unsupported jq construct and a
// suggested replacement.
type UnsupportedFeatureError struct {
	Feature    string
	Suggestion string
}

func NewUnsupportedFeatureError(feature, suggestion string) error {
	return &UnsupportedFeatureError{Feature: feature, Suggestion: suggestion}
}

func (e *UnsupportedFeatureError) Error() string {
	return fmt.Sprintf("unsupported feature %q: %s", e.Feature, e.Suggestion)
}

// DepthExceededError reports that parsing depth exceeded the configured
// maximum.
type DepthExceededError struct {
	Limit int
}

func NewDepthExceededError(limit int) error {
	return &DepthExceededError{Limit: limit}
}

func (e *DepthExceededError) Error() string {
	return fmt.Sprintf("expression parse depth exceeded limit of %d", e.Limit)
}

// JoinError covers an oversized right source and unknown aggregation
// functions.
type JoinError struct {
	Message string
	Err     error
}

func NewJoinError(message string, err error) error {
	return &JoinError{Message: message, Err: err}
}

func (e *JoinError) Error() string {
	return fmt.Sprintf("join error: %s", e.Message)
}

func (e *JoinError) Unwrap() error { return e.Err }

// Exit codes: parser/planner errors exit 2 before any
// child is spawned; executor errors mirror the failing child's code;
// broken pipe exits 141.
const (
	ExitUsageOrPlan = 2
	ExitGeneric     = 1
	ExitSIGPIPE     = 141
)
