package engine

// Error codes surfaced to clients. The transport layer adds
// out_of_order / not_found / forbidden for session-level failures.
const (
	CodeInvalid    = "invalid"
	CodeIllegal    = "illegal"
	CodePending    = "pending_action"
	CodeGameOver   = "game_over"
	CodeOutOfOrder = "out_of_order"
	CodeNotFound   = "not_found"
	CodeForbidden  = "forbidden"
)

// RuleError rejects a command without mutating state. Code is stable and
// machine-readable; Detail carries command-specific context.
type RuleError struct {
	Code    string
	Message string
	Detail  map[string]any
}

func (e *RuleError) Error() string {
	return e.Code + ": " + e.Message
}

func errInvalid(msg string) *RuleError {
	return &RuleError{Code: CodeInvalid, Message: msg}
}

func errIllegal(msg string) *RuleError {
	return &RuleError{Code: CodeIllegal, Message: msg}
}

func errPending(msg string) *RuleError {
	return &RuleError{Code: CodePending, Message: msg}
}

func errGameOver() *RuleError {
	return &RuleError{Code: CodeGameOver, Message: "game over"}
}

// MapError rejects a map definition before any game state is built.
type MapError struct {
	Message string
	Detail  map[string]any
}

func (e *MapError) Error() string { return "map: " + e.Message }

func mapErr(msg string, detail map[string]any) *MapError {
	return &MapError{Message: msg, Detail: detail}
}
