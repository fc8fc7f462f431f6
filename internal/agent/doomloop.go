package agent

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// doomLoopThreshold is the number of consecutive identical tool calls that
// triggers a doom_loop_detected stop. Matches DOOM_LOOP_THRESHOLD in the
// reference implementation.
const doomLoopThreshold = 3

// hashToolCall returns a stable digest of (name, canonical_json(args)).
// encoding/json sorts map keys when marshaling a map[string]interface{},
// so two calls with the same arguments in different key order hash equal —
// this gives equal-argument calls a stable digest regardless of key order.
func hashToolCall(name string, args map[string]interface{}) string {
	b, _ := json.Marshal(args)
	sum := sha256.Sum256(append([]byte(name+"\x00"), b...))
	return hex.EncodeToString(sum[:])
}

// toolLoopState is a length-capped ring buffer of recent tool-call hashes.
// The reference Rust detector (original_source/src/agent/core.rs) grows its
// Vec<u64> unbounded; this implementation caps it at doomLoopThreshold
// entries — only the most recent threshold-worth of calls matter to
// detect N-in-a-row repetition, so capping bounds memory with no change in
// observable behavior.
type toolLoopState struct {
	recent []string // ring buffer, oldest first, len <= doomLoopThreshold
}

// record hashes and appends a tool call, evicting the oldest entry once the
// buffer is at capacity. Returns the computed hash for later use by
// recordResult/detect.
func (s *toolLoopState) record(name string, args map[string]interface{}) string {
	h := hashToolCall(name, args)
	s.recent = append(s.recent, h)
	if len(s.recent) > doomLoopThreshold {
		s.recent = s.recent[len(s.recent)-doomLoopThreshold:]
	}
	return h
}

// recordResult is a hook point for result-aware loop detection (e.g. future
// variants that also compare tool output, not just arguments). The current
// detector only needs the call hash, so this is a no-op; kept as a named
// method so call sites read the same as the reference implementation.
func (s *toolLoopState) recordResult(hash, _ string) {}

// detect reports whether the last doomLoopThreshold recorded calls are all
// identical to hash. level is "critical" once the threshold is reached, ""
// otherwise — this detector has no separate "warning" tier because the
// capped buffer only ever holds up to threshold entries.
func (s *toolLoopState) detect(_ string, hash string) (level string, msg string) {
	if len(s.recent) < doomLoopThreshold {
		return "", ""
	}
	for _, h := range s.recent {
		if h != hash {
			return "", ""
		}
	}
	return "critical", "doom loop: repeated identical tool call detected"
}

// reset clears recorded history, used when the model's response text
// indicates a topic change the caller wants to forget prior calls for.
func (s *toolLoopState) reset() {
	s.recent = s.recent[:0]
}
