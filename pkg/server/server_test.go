package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/bastiangx/grammarserve/internal/logger"
	"github.com/bastiangx/grammarserve/pkg/config"
	"github.com/bastiangx/grammarserve/pkg/model"
	"github.com/bastiangx/grammarserve/pkg/scoring"
	"github.com/vmihailenco/msgpack/v5"
)

func init() {
	logger.Quiet()
}

// fakeEngine splits sentences on ". " and words on single spaces.
type fakeEngine struct {
	scorer     bool
	analyzeErr error
}

func (f *fakeEngine) Analyze(ctx context.Context, text string) ([]*model.Sentence, error) {
	if f.analyzeErr != nil {
		return nil, f.analyzeErr
	}
	var out []*model.Sentence
	for _, part := range strings.SplitAfter(text, ". ") {
		if part == "" {
			continue
		}
		var tokens []string
		for i, w := range strings.Split(part, " ") {
			if i > 0 {
				tokens = append(tokens, " ")
			}
			if w != "" {
				tokens = append(tokens, w)
			}
		}
		readings := make([]model.Reading, len(tokens))
		for i, tok := range tokens {
			if tok == " " || tok == "zzz" {
				readings[i] = model.UnknownReading(tok)
				continue
			}
			readings[i] = model.NewReading(model.NewToken(tok, strings.ToLower(tok), "X"))
		}
		s, err := model.NewSentence(part, tokens, readings)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeEngine) Synthesize(lemma, tag string) ([]string, error) {
	if tag == "FAIL" {
		return nil, errors.New("dictionary unavailable")
	}
	return []string{lemma + "-" + tag}, nil
}

func (f *fakeEngine) SynthesizePattern(lemma, pattern string) ([]string, error) {
	return nil, nil
}

func (f *fakeEngine) SynthesizeAll(lemma string, patterns []string) ([]string, error) {
	out := make([]string, len(patterns))
	for i, p := range patterns {
		out[i] = lemma + "~" + p
	}
	return out, nil
}

func (f *fakeEngine) Score(ctx context.Context, reqs []scoring.Request) ([][]float64, error) {
	out := make([][]float64, len(reqs))
	for i, r := range reqs {
		for _, c := range r.Candidates {
			out[i] = append(out[i], float64(len(c)))
		}
	}
	return out, nil
}

func (f *fakeEngine) HasScorer() bool { return f.scorer }

// wireResponse decodes any response of the protocol.
type wireResponse struct {
	ID        string           `msgpack:"id"`
	Status    string           `msgpack:"status"`
	Sentences []SentenceResult `msgpack:"s"`
	Forms     []string         `msgpack:"f"`
	Scores    [][]float64      `msgpack:"sc"`
	Error     string           `msgpack:"e"`
	Code      int              `msgpack:"c"`
}

func runIPC(t *testing.T, engine Engine, reqs ...any) []wireResponse {
	t.Helper()
	var in bytes.Buffer
	enc := msgpack.NewEncoder(&in)
	for _, r := range reqs {
		if err := enc.Encode(r); err != nil {
			t.Fatal(err)
		}
	}
	var out bytes.Buffer
	srv := NewServer(engine, config.ServerConfig{MaxTextLength: 50}, &in, &out)
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	var responses []wireResponse
	dec := msgpack.NewDecoder(&out)
	for out.Len() > 0 {
		var m wireResponse
		if err := dec.Decode(&m); err != nil {
			t.Fatal(err)
		}
		responses = append(responses, m)
	}
	return responses
}

func TestIPCRequests(t *testing.T) {
	resps := runIPC(t, &fakeEngine{scorer: true},
		Request{ID: "h", Op: OpHealth},
		Request{ID: "a", Op: OpAnalyze, Text: "The dog. It runs"},
		Request{ID: "s", Op: OpSynthesize, Lemma: "run", Tag: "VBD"},
		Request{ID: "p", Op: OpSynthesize, Lemma: "run", Patterns: []string{"A", "B"}},
		Request{ID: "c", Op: OpScore, Scoring: []scoring.Request{{Text: "a b", Start: 2, End: 3, Candidates: []string{"bb", "b"}}}},
		Request{ID: "x", Op: "dance"},
	)
	if len(resps) != 7 {
		t.Fatalf("got %d responses, want 7 (ready + 6)", len(resps))
	}
	if resps[0].Status != "ready" {
		t.Errorf("first response must announce readiness, got %+v", resps[0])
	}

	testCases := []struct {
		got, expected any
		description   string
	}{
		{resps[1].Status, "ok", "health"},
		{resps[2].ID, "a", "analyze echoes id"},
		{len(resps[2].Sentences), 2, "analyze sentence count"},
		{resps[3].Forms, []string{"run-VBD"}, "exact synthesis"},
		{resps[4].Forms, []string{"run~A", "run~B"}, "pattern list synthesis"},
		{resps[5].Scores, [][]float64{{2, 1}}, "scores"},
		{resps[6].Error, "unknown op: dance", "unknown op"},
		{resps[6].Code, 400, "unknown op code"},
	}
	for _, tc := range testCases {
		if !reflect.DeepEqual(tc.got, tc.expected) {
			t.Errorf("%s: got %#v, want %#v", tc.description, tc.got, tc.expected)
		}
	}
}

func TestIPCErrors(t *testing.T) {
	resps := runIPC(t, &fakeEngine{},
		Request{ID: "1", Op: OpScore, Scoring: []scoring.Request{{Text: "x"}}},
		Request{ID: "2", Op: OpSynthesize, Tag: "X"},
		Request{ID: "3", Op: OpSynthesize, Lemma: "run"},
		Request{ID: "4", Op: OpSynthesize, Lemma: "run", Tag: "FAIL"},
		Request{ID: "5", Op: OpAnalyze, Text: strings.Repeat("a", 51)},
		Request{ID: "6"},
	)
	wantCodes := []int{503, 400, 400, 500, 413, 400}
	for i, code := range wantCodes {
		r := resps[i+1]
		if r.Code != code || r.Error == "" {
			t.Errorf("request %d: response %+v, want error code %d", i+1, r, code)
		}
	}
}

func TestIPCInvalidStream(t *testing.T) {
	in := bytes.NewReader([]byte{0xc1})
	var out bytes.Buffer
	srv := NewServer(&fakeEngine{}, config.ServerConfig{}, in, &out)
	if err := srv.Start(context.Background()); err == nil {
		t.Error("expected decode error")
	}
}

func TestToSentenceResults(t *testing.T) {
	sentences, _ := (&fakeEngine{}).Analyze(context.Background(), "The dog. zzz runs")
	results := ToSentenceResults(sentences)
	if len(results) != 2 {
		t.Fatalf("got %d sentences", len(results))
	}
	if results[1].Offset != len("The dog. ") {
		t.Errorf("second sentence offset = %d", results[1].Offset)
	}
	second := results[1].Tokens
	if second[0].Surface != "zzz" || len(second[0].Readings) != 0 {
		t.Errorf("unknown token = %+v", second[0])
	}
	if second[2].Offset != len("The dog. zzz ") || !second[2].WhitespaceBefore {
		t.Errorf("runs token = %+v", second[2])
	}
	var joined strings.Builder
	for _, s := range results {
		for _, tok := range s.Tokens {
			joined.WriteString(tok.Surface)
		}
	}
	if joined.String() != "The dog. zzz runs" {
		t.Errorf("tokens do not cover the text: %q", joined.String())
	}
}

func TestHTTPHandler(t *testing.T) {
	h := NewHTTPHandler(&fakeEngine{scorer: true}, config.ServerConfig{CORSOrigins: []string{"https://example.org"}, MaxTextLength: 100})
	srv := httptest.NewServer(h)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/analyze", "application/json", strings.NewReader(`{"id":"q","text":"The dog"}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var ar AnalyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		t.Fatal(err)
	}
	if ar.ID != "q" || ar.Count != 1 || len(ar.Sentences[0].Tokens) != 3 {
		t.Errorf("analyze response = %+v", ar)
	}

	body, _ := msgpack.Marshal(Request{Lemma: "run", Tag: "VBD"})
	resp2, err := http.Post(srv.URL+"/synthesize", MsgpackContentType, bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp2.Body.Close()
	var sr SynthesizeResponse
	if err := msgpack.NewDecoder(resp2.Body).Decode(&sr); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(sr.Forms, []string{"run-VBD"}) {
		t.Errorf("synthesize forms = %v", sr.Forms)
	}

	resp3, err := http.Post(srv.URL+"/analyze", "application/json", strings.NewReader(`{not json`))
	if err != nil {
		t.Fatal(err)
	}
	resp3.Body.Close()
	if resp3.StatusCode != http.StatusBadRequest {
		t.Errorf("bad body status = %d", resp3.StatusCode)
	}
}

func TestHTTPCORS(t *testing.T) {
	h := NewHTTPHandler(&fakeEngine{}, config.ServerConfig{CORSOrigins: []string{"https://example.org"}})

	testCases := []struct {
		origin      string
		allowed     bool
		description string
	}{
		{"https://example.org", true, "configured origin"},
		{"https://evil.example", false, "other origin"},
	}
	for _, tc := range testCases {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", tc.origin)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		got := rec.Header().Get("Access-Control-Allow-Origin") == tc.origin
		if got != tc.allowed {
			t.Errorf("%s: allow-origin header %q", tc.description, rec.Header().Get("Access-Control-Allow-Origin"))
		}
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status %d", tc.description, rec.Code)
		}
	}
}
