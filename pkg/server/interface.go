/*
Package server exposes the analysis engine over msgpack IPC and HTTP.

# IPC

The IPC server reads a stream of msgpack maps from stdin and writes one
response map per request to stdout. Each request names its operation:

	{"id": "a1", "op": "analyze", "text": "The dog barks."}
	{"id": "s1", "op": "synthesize", "lemma": "run", "tag": "VBD"}
	{"id": "s2", "op": "synthesize", "lemma": "run", "patterns": ["VB[DZ]", "NNS"]}
	{"id": "c1", "op": "score", "reqs": [{"text": "...", "start": 4, "end": 7, "candidates": ["bark", "park"]}]}
	{"id": "h1", "op": "health"}

Analysis responses carry one entry per sentence with document offsets, and
every token with its candidate readings:

	{"id": "a1", "s": [{"o": 0, "x": "The dog barks.", "k": [{"s": "The", "o": 0, "r": [{"l": "the", "t": "DT"}]}, ...]}], "c": 1, "t": 145}

Failures are reported as {"id": ..., "e": message, "c": code}. Requests are
processed synchronously in arrival order; timings are in microseconds.

# HTTP

The HTTP front serves the same operations as POST /analyze, /synthesize and
/score plus GET /health. Bodies are JSON unless the request Content-Type is
application/msgpack.
*/
package server

import "github.com/bastiangx/grammarserve/pkg/scoring"

// Operations understood by the IPC server.
const (
	OpAnalyze    = "analyze"
	OpSynthesize = "synthesize"
	OpScore      = "score"
	OpHealth     = "health"
)

// Request is the envelope of every IPC request. Fields not used by Op are ignored.
type Request struct {
	ID       string            `msgpack:"id" json:"id,omitempty"`
	Op       string            `msgpack:"op" json:"op,omitempty"`
	Text     string            `msgpack:"text,omitempty" json:"text,omitempty"`
	Lemma    string            `msgpack:"lemma,omitempty" json:"lemma,omitempty"`
	Tag      string            `msgpack:"tag,omitempty" json:"tag,omitempty"`
	Pattern  string            `msgpack:"pattern,omitempty" json:"pattern,omitempty"`
	Patterns []string          `msgpack:"patterns,omitempty" json:"patterns,omitempty"`
	Scoring  []scoring.Request `msgpack:"reqs,omitempty" json:"reqs,omitempty"`
}

// ReadingResult is one candidate analysis of a token.
type ReadingResult struct {
	Lemma string `msgpack:"l" json:"lemma"`
	Tag   string `msgpack:"t" json:"tag"`
}

// TokenResult is one position of an analyzed sentence.
type TokenResult struct {
	Surface          string          `msgpack:"s" json:"surface"`
	Offset           int             `msgpack:"o" json:"offset"`
	WhitespaceBefore bool            `msgpack:"w,omitempty" json:"whitespace_before,omitempty"`
	Readings         []ReadingResult `msgpack:"r" json:"readings"`
	Chunks           []string        `msgpack:"ch,omitempty" json:"chunks,omitempty"`
	Immunized        bool            `msgpack:"im,omitempty" json:"immunized,omitempty"`
}

// SentenceResult is an analyzed sentence; offsets are relative to the request text.
type SentenceResult struct {
	Offset int           `msgpack:"o" json:"offset"`
	Text   string        `msgpack:"x" json:"text"`
	Tokens []TokenResult `msgpack:"k" json:"tokens"`
}

// AnalyzeResponse answers an analyze request.
type AnalyzeResponse struct {
	ID        string           `msgpack:"id" json:"id,omitempty"`
	Sentences []SentenceResult `msgpack:"s" json:"sentences"`
	Count     int              `msgpack:"c" json:"count"`
	TimeTaken int64            `msgpack:"t" json:"time_us"`
}

// SynthesizeResponse answers a synthesize request.
type SynthesizeResponse struct {
	ID        string   `msgpack:"id" json:"id,omitempty"`
	Forms     []string `msgpack:"f" json:"forms"`
	Count     int      `msgpack:"c" json:"count"`
	TimeTaken int64    `msgpack:"t" json:"time_us"`
}

// ScoreResponse answers a score request, one score list per scoring request.
type ScoreResponse struct {
	ID        string      `msgpack:"id" json:"id,omitempty"`
	Scores    [][]float64 `msgpack:"sc" json:"scores"`
	TimeTaken int64       `msgpack:"t" json:"time_us"`
}

// StatusResponse answers health requests and announces readiness.
type StatusResponse struct {
	ID      string `msgpack:"id,omitempty" json:"id,omitempty"`
	Status  string `msgpack:"status" json:"status"`
	Scoring bool   `msgpack:"scoring,omitempty" json:"scoring,omitempty"`
}

// ErrorResponse holds basic error information for a failed request.
type ErrorResponse struct {
	ID    string `msgpack:"id,omitempty" json:"id,omitempty"`
	Error string `msgpack:"e" json:"error"`
	Code  int    `msgpack:"c" json:"code"`
}
