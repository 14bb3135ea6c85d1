// Package prompts builds the tagged chat turns the agent sends to the
// completion backend. Keeping every template here keeps the transcript
// grammar in one place.
package prompts

import (
	"fmt"
	"regexp"
	"strings"

	"reclaim/internal/envinfo"
	"reclaim/internal/transcript"
)

const systemTemplate = `You are an autonomous system maintenance agent operating inside a sandboxed
Linux container. Your goal is to free disk space safely.

Rules:
- You may only touch files under %s.
- Never remove anything required for the system to keep running.
- When asked for code, reply with a single self-contained Go program in a
  fenced code block. The program must print a short summary of what it did.
- When asked for strategies, reply with a JSON array of short strategy
  descriptions.`

// System builds the opening system turn.
func System(workPath string) transcript.Tagged {
	return transcript.Tagged{
		Message: transcript.Message{
			Role:    transcript.RoleSystem,
			Content: fmt.Sprintf(systemTemplate, workPath),
		},
		Tag: transcript.Tag{Kind: transcript.KindSystemIntro},
	}
}

// EnvInfo builds the environment report turn. The orchestrator appends it as
// a refreshable slot and rewrites it with fresh snapshots between runs.
func EnvInfo(history *envinfo.History) transcript.Tagged {
	return transcript.Tagged{
		Message: transcript.Message{
			Role:    transcript.RoleUser,
			Content: EnvInfoContent(history),
		},
		Tag: transcript.Tag{Kind: transcript.KindEnvInfo},
	}
}

// EnvInfoContent renders the environment report body on its own so slot
// refreshes reuse the exact same format.
func EnvInfoContent(history *envinfo.History) string {
	return "Current environment measurements (most recent last):\n\n" + history.Render()
}

// SpecialEnvInfo embeds the outputs of extra inspection commands.
func SpecialEnvInfo(outputs []string) transcript.Tagged {
	return transcript.Tagged{
		Message: transcript.Message{
			Role:    transcript.RoleUser,
			Content: "Additional inspection results:\n\n" + strings.Join(outputs, "\n\n"),
		},
		Tag: transcript.Tag{Kind: transcript.KindSpecialEnvInfo},
	}
}

// StrategyRequest asks for n strategies, excluding ones already tried.
func StrategyRequest(n int, previous []string) transcript.Tagged {
	var b strings.Builder
	fmt.Fprintf(&b, "Based on the environment above, propose %d distinct strategies to free disk space.", n)
	if len(previous) > 0 {
		b.WriteString(" Do not repeat any of these already-attempted strategies:\n")
		for _, p := range previous {
			fmt.Fprintf(&b, "- %s\n", p)
		}
	}
	b.WriteString("\nReply with a JSON array of strategy descriptions.")
	return transcript.Tagged{
		Message: transcript.Message{Role: transcript.RoleUser, Content: b.String()},
		Tag:     transcript.Tag{Kind: transcript.KindStrategyRequest},
	}
}

// StrategyReply wraps the model's strategy answer with its verdict.
func StrategyReply(raw string, outcome transcript.Outcome) transcript.Tagged {
	return transcript.Tagged{
		Message: transcript.Message{Role: transcript.RoleAssistant, Content: raw},
		Tag:     transcript.Tag{Kind: transcript.KindStrategyReply, Outcome: outcome},
	}
}

// taskPhrase is the fixed sentence embedded in every code request. The miner
// re-extracts the strategy text from it, so the format and the pattern below
// must stay in lockstep.
const taskPhrase = `generate Go code to complete the following task: "%s"`

var taskPattern = regexp.MustCompile(`generate Go code to complete the following task: "(.*?)"`)

// CodeRequest asks for a program implementing one strategy.
func CodeRequest(strategy string) transcript.Tagged {
	content := fmt.Sprintf(
		"Given the environment above, "+taskPhrase+". Reply with one fenced Go code block.",
		strategy,
	)
	return transcript.Tagged{
		Message: transcript.Message{Role: transcript.RoleUser, Content: content},
		Tag:     transcript.Tag{Kind: transcript.KindCodeRequest},
	}
}

// ExtractTask recovers the strategy text from a code-request turn.
func ExtractTask(content string) (string, bool) {
	m := taskPattern.FindStringSubmatch(content)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// CodeAttempt wraps a candidate program with its verdict.
func CodeAttempt(code string, outcome transcript.Outcome) transcript.Tagged {
	return transcript.Tagged{
		Message: transcript.Message{Role: transcript.RoleAssistant, Content: code},
		Tag:     transcript.Tag{Kind: transcript.KindCodeAttempt, Outcome: outcome},
	}
}

// Regen asks for a corrected program after a failed attempt. runContext names
// what rejected the code ("the Go parser", "the sandbox", ...).
func Regen(errText, runContext string) transcript.Tagged {
	content := fmt.Sprintf(
		"The previous program was rejected by %s with:\n\n%s\n\nFix the problem and reply with a corrected Go program in one fenced code block.",
		runContext, strings.TrimSpace(errText),
	)
	return transcript.Tagged{
		Message: transcript.Message{Role: transcript.RoleUser, Content: content},
		Tag:     transcript.Tag{Kind: transcript.KindRegenRequest},
	}
}

// StrategyRegen asks for a corrected strategy list.
func StrategyRegen(problems []string) transcript.Tagged {
	var b strings.Builder
	b.WriteString("Your strategy list could not be used:\n")
	for _, p := range problems {
		fmt.Fprintf(&b, "- %s\n", p)
	}
	b.WriteString("\nReply again with a JSON array of strategy descriptions.")
	return transcript.Tagged{
		Message: transcript.Message{Role: transcript.RoleUser, Content: b.String()},
		Tag:     transcript.Tag{Kind: transcript.KindStrategyRegenRequest},
	}
}
