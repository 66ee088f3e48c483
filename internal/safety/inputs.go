package safety

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/boshu2/pipetrack/internal/audit"
	"github.com/boshu2/pipetrack/internal/types"
)

// AgentNameMaxLength is the maximum agent name length in code points.
const AgentNameMaxLength = 255

var agentNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// inputValidate is the validator instance for boundary inputs, with custom
// rules registered once at package init.
var inputValidate *validator.Validate

func init() {
	inputValidate = validator.New()

	// agentname: syntactic agent-name rule. Set membership is a separate
	// semantic check in the tracker.
	mustRegister("agentname", func(fl validator.FieldLevel) bool {
		return agentNamePattern.MatchString(fl.Field().String())
	})

	// maxbytes: byte-length limit measured on the UTF-8 encoding, since
	// rune-based max tags undercount multi-byte input.
	mustRegister("maxbytes", func(fl validator.FieldLevel) bool {
		limit, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return len(fl.Field().String()) <= limit
	})
}

func mustRegister(tag string, fn validator.Func) {
	if err := inputValidate.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("safety: register %s validator: %v", tag, err))
	}
}

// ValidateAgentName checks a candidate agent name: non-empty, at most 255
// code points, matching [A-Za-z0-9_-]+, no NUL bytes. Returns the name
// unchanged on success.
func ValidateAgentName(log *audit.Logger, name string) (string, error) {
	if err := checkAgentName(name); err != nil {
		log.Emit(audit.EventInputValidation, audit.ResultBlocked, "validate_agent_name", map[string]any{
			"identifier": truncateForAudit(name),
			"reason":     err.Error(),
		})
		return "", err
	}
	return name, nil
}

func checkAgentName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: agent name is empty", types.ErrInvalidInput)
	}
	if strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: agent name contains NUL byte", types.ErrInvalidInput)
	}
	if utf8.RuneCountInString(name) > AgentNameMaxLength {
		return fmt.Errorf("%w: agent name exceeds %d characters", types.ErrInvalidInput, AgentNameMaxLength)
	}
	if err := inputValidate.Var(name, "required,agentname"); err != nil {
		return fmt.Errorf("%w: agent name %q must match [A-Za-z0-9_-]+", types.ErrInvalidInput, name)
	}
	return nil
}

// ValidateMessage checks a free-form message against a byte limit (the
// default 10,000 when limit is zero or negative) and rejects ASCII control
// characters other than tab, newline, and carriage return.
func ValidateMessage(log *audit.Logger, message string, limit int) (string, error) {
	if limit <= 0 {
		limit = types.MessageMaxBytes
	}
	if err := checkMessage(message, limit); err != nil {
		log.Emit(audit.EventInputValidation, audit.ResultBlocked, "validate_message", map[string]any{
			"length": len(message),
			"reason": err.Error(),
		})
		return "", err
	}
	return message, nil
}

func checkMessage(message string, limit int) error {
	if err := inputValidate.Var(message, fmt.Sprintf("maxbytes=%d", limit)); err != nil {
		return fmt.Errorf("%w: message exceeds %d bytes", types.ErrInvalidInput, limit)
	}
	for _, r := range message {
		if r == '\t' || r == '\n' || r == '\r' {
			continue
		}
		if r < 0x20 || r == 0x7f {
			return fmt.Errorf("%w: message contains control character %#x", types.ErrInvalidInput, r)
		}
	}
	return nil
}

// ValidateIssueNumber checks a GitHub issue number against [1, 999999].
func ValidateIssueNumber(log *audit.Logger, n int) error {
	if err := inputValidate.Var(n, fmt.Sprintf("min=%d,max=%d", types.IssueMin, types.IssueMax)); err != nil {
		wrapped := fmt.Errorf("%w: issue number %d out of range [%d, %d]",
			types.ErrInvalidInput, n, types.IssueMin, types.IssueMax)
		log.Emit(audit.EventInputValidation, audit.ResultBlocked, "validate_issue_number", map[string]any{
			"identifier": n,
			"reason":     wrapped.Error(),
		})
		return wrapped
	}
	return nil
}

// truncateForAudit bounds identifiers embedded in audit context.
func truncateForAudit(s string) string {
	const max = 120
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
