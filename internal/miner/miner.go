// Package miner turns persisted exploration records into preference pairs
// for offline training. Every pair is (prompt, chosen, rejected); only
// complete triples are emitted.
package miner

import (
	"reclaim/internal/logging"
	"reclaim/internal/prompts"
	"reclaim/internal/session"
	"reclaim/internal/transcript"
)

// Pair is one preference triple.
type Pair struct {
	Prompt   string `json:"prompt"`
	Chosen   string `json:"chosen"`
	Rejected string `json:"rejected"`
}

// Stats counts what happened during a mining run. Skips are counted, never
// raised: a malformed session costs its own data and nothing else.
type Stats struct {
	Records         int
	Transcripts     int
	SkippedSessions int
	SkippedTurns    int
	StrategyPairs   int
	CodePairs       int
	Borrowed        int
	DroppedPartials int
	Emitted         int
}

// partial is a pair still missing its chosen side; augmentation may borrow
// one from another session that ran the same task.
type partial struct {
	prompt   string
	rejected string
	task     string
}

// Miner mines preference pairs from exploration records.
type Miner struct {
	stats    Stats
	pairs    []Pair
	partials []partial
	seen     map[[3]string]bool
}

// Mine processes the records in order and returns the complete pairs plus
// run statistics. Output order is deterministic for a given record order.
func Mine(records []*session.Record) ([]Pair, Stats) {
	m := &Miner{seen: make(map[[3]string]bool)}

	for _, rec := range records {
		m.stats.Records++
		m.mineTranscript(rec.Exploration, 0, false, scopeExploration)
		for _, exec := range rec.Executions {
			m.mineTranscript(exec.Transcript, exec.SpaceFreed, exec.Succeeded, scopeExecution)
		}
	}

	m.augment(records)

	logging.Get(logging.CategoryMiner).Infow("mining finished",
		"records", m.stats.Records,
		"pairs", m.stats.Emitted,
		"borrowed", m.stats.Borrowed,
		"skipped_sessions", m.stats.SkippedSessions,
		"dropped_partials", m.stats.DroppedPartials)
	return m.pairs, m.stats
}

// scope selects which request kinds a transcript is mined for. Execution
// transcripts are clones of the exploration prefix with a refreshed env
// slot, so mining their strategy turns would re-emit near-duplicate pairs
// differing only in env text; strategy pairing belongs to the exploration
// transcript alone.
type scope int

const (
	scopeExploration scope = iota
	scopeExecution
)

// mineTranscript extracts pairs from one tagged transcript.
func (m *Miner) mineTranscript(entries []transcript.Tagged, spaceFreed float64, succeeded bool, sc scope) {
	m.stats.Transcripts++

	msgs, ok := normalize(entries)
	if !ok {
		m.stats.SkippedSessions++
		return
	}

	for i, e := range msgs {
		if e.Role != transcript.RoleUser {
			continue
		}
		switch e.Tag.Kind {
		case transcript.KindStrategyRequest:
			if sc == scopeExploration {
				m.mineStrategyTurn(msgs, i)
			}
		case transcript.KindCodeRequest:
			if sc == scopeExecution {
				m.mineCodeTurn(msgs, i, spaceFreed, succeeded)
			}
		}
	}
}

// normalize drops a leading system intro and every other system-role turn.
// A transcript without user turns is unusable.
func normalize(entries []transcript.Tagged) ([]transcript.Tagged, bool) {
	out := make([]transcript.Tagged, 0, len(entries))
	for i, e := range entries {
		if i == 0 && e.Tag.Kind == transcript.KindSystemIntro {
			continue
		}
		if e.Role == transcript.RoleSystem {
			continue
		}
		out = append(out, e)
	}
	for _, e := range out {
		if e.Role == transcript.RoleUser {
			return out, true
		}
	}
	return nil, false
}

// contextVariants builds the prompt contexts for the user turn at index i:
// the lone turn plus every suffix window ending at i, deduped and ordered
// by ascending length.
func contextVariants(msgs []transcript.Tagged, i int) [][]transcript.Message {
	var variants [][]transcript.Message
	seen := make(map[string]bool)

	// Suffix windows [s..i]; s == i is the lone turn.
	for s := i; s >= 0; s-- {
		window := make([]transcript.Message, 0, i-s+1)
		for _, e := range msgs[s : i+1] {
			window = append(window, e.Message)
		}
		key := transcript.RenderPrompt(window)
		if seen[key] {
			continue
		}
		seen[key] = true
		variants = append(variants, window)
	}

	// Built shortest-first already; keep ascending length stable.
	return variants
}

// mineStrategyTurn pairs a strategy request with its retry block: the first
// successful reply is chosen, the first failed reply rejected. Without both
// sides there is no contrast and nothing is emitted (a one-sided candidate
// could never be completed, so this matches dropping it at the end).
func (m *Miner) mineStrategyTurn(msgs []transcript.Tagged, i int) {
	var chosen, rejected string
	for j := i + 1; j < len(msgs); j++ {
		e := msgs[j]
		if e.Role == transcript.RoleUser && e.Tag.Kind != transcript.KindStrategyRegenRequest {
			break
		}
		if e.Role != transcript.RoleAssistant || e.Tag.Kind != transcript.KindStrategyReply {
			continue
		}
		switch e.Tag.Outcome {
		case transcript.OutcomeSuccess:
			if chosen == "" {
				chosen = e.Content
			}
		case transcript.OutcomeFailed:
			if rejected == "" {
				rejected = e.Content
			}
		}
	}
	if chosen == "" || rejected == "" || chosen == rejected {
		return
	}

	for _, variant := range contextVariants(msgs, i) {
		if m.emit(Pair{Prompt: transcript.RenderPrompt(variant), Chosen: chosen, Rejected: rejected}) {
			m.stats.StrategyPairs++
		}
	}
}

// codeAttempt is one candidate program inside an attempt block. A following
// regeneration request marks the attempt explicitly rejected regardless of
// its own outcome tag: the user asked for a redo, so even a success-tagged
// program was not good enough.
type codeAttempt struct {
	content        string
	outcome        transcript.Outcome
	explicitReject bool
}

// mineCodeTurn pairs a code request with its attempt block. Last successful
// attempt wins as chosen; each distinct rejected attempt — failure-tagged or
// explicitly rejected by a regen request — becomes a rejected. Sessions with
// no success leave partials for augmentation.
func (m *Miner) mineCodeTurn(msgs []transcript.Tagged, i int, spaceFreed float64, succeeded bool) {
	task, ok := prompts.ExtractTask(msgs[i].Content)
	if !ok {
		m.stats.SkippedTurns++
		return
	}

	var attempts []codeAttempt
	for j := i + 1; j < len(msgs); j++ {
		e := msgs[j]
		if e.Role == transcript.RoleUser {
			if e.Tag.Kind != transcript.KindRegenRequest {
				break
			}
			if len(attempts) > 0 {
				attempts[len(attempts)-1].explicitReject = true
			}
			continue
		}
		if e.Role == transcript.RoleAssistant && e.Tag.Kind == transcript.KindCodeAttempt {
			attempts = append(attempts, codeAttempt{content: e.Content, outcome: e.Tag.Outcome})
		}
	}
	if len(attempts) == 0 {
		return
	}

	var chosen string
	var rejectedSet []string
	seenRejected := make(map[string]bool)
	for _, a := range attempts {
		if a.outcome == transcript.OutcomeSuccess {
			chosen = a.content
		}
		if a.outcome.IsFailure() || a.explicitReject {
			if !seenRejected[a.content] {
				seenRejected[a.content] = true
				rejectedSet = append(rejectedSet, a.content)
			}
		}
	}

	overallSuccess := succeeded && spaceFreed > 0 && chosen != ""
	variants := contextVariants(msgs, i)

	if overallSuccess {
		for _, r := range rejectedSet {
			if r == chosen {
				continue
			}
			for _, variant := range variants {
				if m.emit(Pair{Prompt: transcript.RenderPrompt(variant), Chosen: chosen, Rejected: r}) {
					m.stats.CodePairs++
				}
			}
		}
		return
	}

	// Failed session: rejected is the last rejected attempt, falling back
	// to the first attempt of any verdict.
	rejected := ""
	if len(rejectedSet) > 0 {
		rejected = rejectedSet[len(rejectedSet)-1]
	} else {
		rejected = attempts[0].content
	}
	if rejected == "" {
		return
	}
	for _, variant := range variants {
		m.partials = append(m.partials, partial{
			prompt:   transcript.RenderPrompt(variant),
			rejected: rejected,
			task:     task,
		})
	}
}

// augment borrows chosen programs across sessions: for every task the
// corpus solved, the solution from the execution that freed the most space
// completes partial pairs for the same task.
func (m *Miner) augment(records []*session.Record) {
	best := make(map[string]struct {
		code  string
		freed float64
	})

	for _, rec := range records {
		for _, exec := range rec.Executions {
			if !exec.Succeeded || exec.SpaceFreed <= 0 {
				continue
			}
			code := lastSuccessfulAttempt(exec.Transcript)
			if code == "" {
				continue
			}
			// Strictly-greater keeps the earliest winner on ties, so output
			// is stable across runs.
			if cur, ok := best[exec.Strategy]; !ok || exec.SpaceFreed > cur.freed {
				best[exec.Strategy] = struct {
					code  string
					freed float64
				}{code, exec.SpaceFreed}
			}
		}
	}

	for _, p := range m.partials {
		b, ok := best[p.task]
		if !ok {
			m.stats.DroppedPartials++
			continue
		}
		// Emitted even when the borrowed code equals the rejected side:
		// downstream filtering is the consumer's call, not the miner's.
		if m.emit(Pair{Prompt: p.prompt, Chosen: b.code, Rejected: p.rejected}) {
			m.stats.Borrowed++
		}
	}
}

func lastSuccessfulAttempt(entries []transcript.Tagged) string {
	code := ""
	for _, e := range entries {
		if e.Tag.Kind == transcript.KindCodeAttempt && e.Tag.Outcome == transcript.OutcomeSuccess {
			code = e.Content
		}
	}
	return code
}

// emit appends a pair unless an identical triple was already produced.
func (m *Miner) emit(p Pair) bool {
	key := [3]string{p.Prompt, p.Chosen, p.Rejected}
	if m.seen[key] {
		return false
	}
	m.seen[key] = true
	m.pairs = append(m.pairs, p)
	m.stats.Emitted++
	return true
}
