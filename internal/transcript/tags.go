package transcript

import (
	"encoding/json"
	"fmt"
	"strings"
)

// =============================================================================
// STRUCTURAL TAGS
// =============================================================================

// Kind identifies what a transcript entry is for. It is a closed enumeration:
// consumers switch on Kind instead of sniffing message text.
type Kind int

const (
	KindSystemIntro Kind = iota
	KindEnvInfo
	KindSpecialEnvInfo
	KindStrategyRequest
	KindStrategyReply
	KindCodeRequest
	KindCodeAttempt
	KindRegenRequest
	KindStrategyRegenRequest
)

func (k Kind) String() string {
	switch k {
	case KindSystemIntro:
		return "system_intro"
	case KindEnvInfo:
		return "env_info"
	case KindSpecialEnvInfo:
		return "special_env_info"
	case KindStrategyRequest:
		return "strategy_request"
	case KindStrategyReply:
		return "strategy_reply"
	case KindCodeRequest:
		return "code_request"
	case KindCodeAttempt:
		return "code_attempt"
	case KindRegenRequest:
		return "regen_request"
	case KindStrategyRegenRequest:
		return "strategy_regen_request"
	default:
		return fmt.Sprintf("kind_%d", int(k))
	}
}

// Outcome records how a tagged attempt ended. OutcomeNone is for entries that
// carry no verdict (requests, env info).
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeSuccess
	OutcomeFailed
	OutcomeASTFail
	OutcomeCompileFail
	OutcomeContainerFail
	OutcomeDeletionFail
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNone:
		return ""
	case OutcomeSuccess:
		return "success"
	case OutcomeFailed:
		return "failed"
	case OutcomeASTFail:
		return "ast_fail"
	case OutcomeCompileFail:
		return "compile_fail"
	case OutcomeContainerFail:
		return "container_fail"
	case OutcomeDeletionFail:
		return "deletion_fail"
	default:
		return fmt.Sprintf("outcome_%d", int(o))
	}
}

// IsFailure reports whether the outcome is any of the failure verdicts.
func (o Outcome) IsFailure() bool {
	switch o {
	case OutcomeFailed, OutcomeASTFail, OutcomeCompileFail, OutcomeContainerFail, OutcomeDeletionFail:
		return true
	default:
		return false
	}
}

// Tag is the structural label attached to every transcript entry.
type Tag struct {
	Kind    Kind
	Outcome Outcome
}

// String renders the tag in its persisted form, e.g. "code_attempt(ast_fail)"
// or "env_info" when there is no outcome.
func (t Tag) String() string {
	if t.Outcome == OutcomeNone {
		return t.Kind.String()
	}
	return fmt.Sprintf("%s(%s)", t.Kind, t.Outcome)
}

var kindNames = map[string]Kind{
	"system_intro":           KindSystemIntro,
	"env_info":               KindEnvInfo,
	"special_env_info":       KindSpecialEnvInfo,
	"strategy_request":       KindStrategyRequest,
	"strategy_reply":         KindStrategyReply,
	"code_request":           KindCodeRequest,
	"code_attempt":           KindCodeAttempt,
	"regen_request":          KindRegenRequest,
	"strategy_regen_request": KindStrategyRegenRequest,
}

var outcomeNames = map[string]Outcome{
	"success":        OutcomeSuccess,
	"failed":         OutcomeFailed,
	"ast_fail":       OutcomeASTFail,
	"compile_fail":   OutcomeCompileFail,
	"container_fail": OutcomeContainerFail,
	"deletion_fail":  OutcomeDeletionFail,
}

// ParseTag parses the persisted tag form. Unknown kinds or outcomes are an
// error so malformed records fail at the load boundary, not mid-pipeline.
func ParseTag(s string) (Tag, error) {
	s = strings.TrimSpace(s)
	name := s
	outcome := ""
	if i := strings.IndexByte(s, '('); i >= 0 {
		if !strings.HasSuffix(s, ")") {
			return Tag{}, fmt.Errorf("malformed tag %q", s)
		}
		name = s[:i]
		outcome = s[i+1 : len(s)-1]
	}

	kind, ok := kindNames[name]
	if !ok {
		return Tag{}, fmt.Errorf("unknown tag kind %q", name)
	}

	tag := Tag{Kind: kind}
	if outcome != "" {
		o, ok := outcomeNames[outcome]
		if !ok {
			return Tag{}, fmt.Errorf("unknown tag outcome %q in %q", outcome, s)
		}
		tag.Outcome = o
	}
	return tag, nil
}

// MarshalJSON persists the tag as its string form.
func (t Tag) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON parses the persisted string form.
func (t *Tag) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTag(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
