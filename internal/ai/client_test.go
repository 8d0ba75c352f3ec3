package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"syscall"
	"testing"
	"time"
)

type ipv4Server struct {
	URL string
	srv *http.Server
	ln  net.Listener
}

func newIPv4Server(t *testing.T, handler http.Handler) *ipv4Server {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		if errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM) {
			t.Skipf("skipping test: cannot open local listener (%v)", err)
		}
		t.Fatalf("listen tcp4: %v", err)
	}
	srv := &http.Server{Handler: handler}
	s := &ipv4Server{
		URL: "http://" + ln.Addr().String(),
		srv: srv,
		ln:  ln,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			panic(fmt.Sprintf("test server serve: %v", err))
		}
	}()
	return s
}

func (s *ipv4Server) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = s.srv.Shutdown(ctx)
}

const testModelPath = "/models/test-model:generateContent"

func okResponse(text string) GenerateResponse {
	return GenerateResponse{Candidates: []Candidate{{Content: &Content{Role: "model", Parts: []Part{{Text: text}}}}}}
}

func testServerSequence(t *testing.T, statuses []int, headers []http.Header, bodyOK any) (*ipv4Server, *int32) {
	t.Helper()
	var idx int32
	return newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != testModelPath {
			http.NotFound(w, r)
			return
		}
		i := int(atomic.AddInt32(&idx, 1)) - 1
		if i >= len(statuses) {
			i = len(statuses) - 1
		}
		st := statuses[i]
		if headers != nil && i < len(headers) && headers[i] != nil {
			for k, vals := range headers[i] {
				for _, v := range vals {
					w.Header().Add(k, v)
				}
			}
		}
		if st >= 200 && st < 300 {
			w.WriteHeader(st)
			_ = json.NewEncoder(w).Encode(bodyOK)
			return
		}
		w.WriteHeader(st)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"code": st, "message": "failed", "status": "UNAVAILABLE"}})
	})), &idx
}

func TestSolveSendsPromptAndConfig(t *testing.T) {
	var got GenerateRequest
	var key string
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != testModelPath {
			http.NotFound(w, r)
			return
		}
		key = r.URL.Query().Get("key")
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(okResponse("x = 2"))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("secret", "test-model", 0, 1, 0, 0, srv.URL)
	out, err := c.Solve(context.Background(), "Solve 2x = 4")
	if err != nil {
		t.Fatalf("Solve returned error: %v", err)
	}
	if out != "x = 2" {
		t.Fatalf("unexpected text: %q", out)
	}
	if key != "secret" {
		t.Fatalf("expected api key in query, got %q", key)
	}
	if len(got.Contents) != 1 || len(got.Contents[0].Parts) != 1 {
		t.Fatalf("unexpected contents: %+v", got.Contents)
	}
	prompt := got.Contents[0].Parts[0].Text
	if !strings.Contains(prompt, "**Problem:** Solve 2x = 4") || strings.Contains(prompt, "{PROBLEM}") {
		t.Fatalf("problem not substituted into prompt: %q", prompt[:120])
	}
	if got.GenerationConfig != DefaultGenerationConfig() {
		t.Fatalf("unexpected generation config: %+v", got.GenerationConfig)
	}
	if len(got.SafetySettings) != 4 {
		t.Fatalf("expected 4 safety settings, got %d", len(got.SafetySettings))
	}
	for _, s := range got.SafetySettings {
		if s.Threshold != "BLOCK_MEDIUM_AND_ABOVE" {
			t.Fatalf("unexpected threshold for %s: %s", s.Category, s.Threshold)
		}
	}
}

func TestBuildPromptReplacesOnce(t *testing.T) {
	p := BuildPrompt("find {PROBLEM}")
	if strings.Count(p, "find {PROBLEM}") != 1 {
		t.Fatalf("expected literal placeholder in problem to survive")
	}
}

func TestMissingAPIKeyIsConfigurationError(t *testing.T) {
	for _, key := range []string{"", PlaceholderAPIKey} {
		c := NewGeminiClient(key)
		_, err := c.Solve(context.Background(), "1+1")
		var cfgErr *ConfigurationError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("key %q: expected ConfigurationError, got %T %v", key, err, err)
		}
	}
}

func TestGenerateRetriesOn429(t *testing.T) {
	srv, calls := testServerSequence(t, []int{429, 200}, []http.Header{{"Retry-After": {"0"}}, {}}, okResponse("ok"))
	defer srv.Close()

	c := NewClientWithBaseURL("test", "test-model", 2*time.Second, 3, 10*time.Millisecond, 100*time.Millisecond, srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	out, err := c.Solve(ctx, "hi")
	if err != nil {
		t.Fatalf("Solve returned error: %v", err)
	}
	if out != "ok" {
		t.Fatalf("unexpected response: %q", out)
	}
	if n := atomic.LoadInt32(calls); n != 2 {
		t.Fatalf("expected 2 calls, got %d", n)
	}
}

func TestDefaultClientDoesNotRetry(t *testing.T) {
	srv, calls := testServerSequence(t, []int{503, 200}, nil, okResponse("ok"))
	defer srv.Close()

	c := NewClientWithBaseURL("test", "test-model", 0, 0, 0, 0, srv.URL)
	_, err := c.Solve(context.Background(), "hi")
	var srvErr *ServerError
	if !errors.As(err, &srvErr) {
		t.Fatalf("expected ServerError, got %T %v", err, err)
	}
	if n := atomic.LoadInt32(calls); n != 1 {
		t.Fatalf("expected a single attempt, got %d", n)
	}
}

func TestRetryAfterHonored(t *testing.T) {
	srv, _ := testServerSequence(t, []int{429, 200}, []http.Header{{"Retry-After": {"1"}}, {}}, okResponse("ok"))
	defer srv.Close()

	c := NewClientWithBaseURL("test", "test-model", 5*time.Second, 3, 0, 0, srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	start := time.Now()
	if _, err := c.Solve(ctx, "hi"); err != nil {
		t.Fatalf("Solve returned error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 900*time.Millisecond {
		t.Fatalf("expected at least ~1s delay due to Retry-After, got %v", elapsed)
	}
}

func TestStatusClassification(t *testing.T) {
	cases := []struct {
		status int
		check  func(error) bool
		msg    string
	}{
		{400, func(err error) bool { var e *BadRequestError; return errors.As(err, &e) }, "Invalid request. Please check your input and try again."},
		{401, func(err error) bool { var e *AuthError; return errors.As(err, &e) }, "API key is invalid or expired. Please check your configuration."},
		{403, func(err error) bool { var e *AuthError; return errors.As(err, &e) && e.Forbidden() }, "Access denied. Please check your API permissions."},
		{429, func(err error) bool { var e *RateLimitError; return errors.As(err, &e) }, "Rate limit exceeded. Please wait a moment and try again."},
		{500, func(err error) bool { var e *ServerError; return errors.As(err, &e) }, "Server error. Please try again later."},
		{404, func(err error) bool { var e *APIError; return errors.As(err, &e) && e.StatusCode == 404 }, "API request failed with status 404"},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprint(tc.status), func(t *testing.T) {
			srv, _ := testServerSequence(t, []int{tc.status}, nil, nil)
			defer srv.Close()
			c := NewClientWithBaseURL("test", "test-model", 0, 1, 0, 0, srv.URL)
			_, err := c.Solve(context.Background(), "hi")
			if !tc.check(err) {
				t.Fatalf("unexpected error type %T: %v", err, err)
			}
			if got := UserMessage(err); got != tc.msg {
				t.Fatalf("UserMessage = %q, want %q", got, tc.msg)
			}
		})
	}
}

func TestErrorIncludesRequestID(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Request-Id", "req_test_123")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "bad req", "code": 400, "status": "INVALID_ARGUMENT"}})
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test", "test-model", 2*time.Second, 1, 0, 0, srv.URL)
	_, err := c.Solve(context.Background(), "hi")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "req_test_123") || !strings.Contains(err.Error(), "INVALID_ARGUMENT") {
		t.Fatalf("expected request id and status in error, got: %v", err)
	}
}

func TestNetworkErrorClassified(t *testing.T) {
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping test: cannot open local listener (%v)", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	c := NewClientWithBaseURL("test", "test-model", time.Second, 1, 0, 0, "http://"+addr)
	_, err = c.Solve(context.Background(), "hi")
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected NetworkError, got %T %v", err, err)
	}
	if got := UserMessage(err); got != "Network error. Please check your internet connection and try again." {
		t.Fatalf("unexpected message: %q", got)
	}
}

func TestExtractText(t *testing.T) {
	cases := []struct {
		name string
		resp *GenerateResponse
		want string
		msg  string
	}{
		{"text", &GenerateResponse{Candidates: []Candidate{{Content: &Content{Parts: []Part{{Text: "ans"}}}}}}, "ans", ""},
		{"safety", &GenerateResponse{FinishReason: "SAFETY"}, "", "Response blocked by safety filters. Please rephrase your question."},
		{"recitation", &GenerateResponse{FinishReason: "RECITATION"}, "", "Response blocked due to content policy. Please try a different approach."},
		{"prompt blocked", &GenerateResponse{PromptFeedback: &PromptFeedback{BlockReason: "SAFETY"}}, "", "Response blocked by safety filters. Please rephrase your question."},
		{"no candidates", &GenerateResponse{}, "", "No response generated. Please try rephrasing your question."},
		{"no parts", &GenerateResponse{Candidates: []Candidate{{}}}, "", "Empty response from AI. Please try again."},
		{"candidate safety", &GenerateResponse{Candidates: []Candidate{{FinishReason: "SAFETY"}}}, "", "Response blocked by safety filters. Please rephrase your question."},
		{"blank", &GenerateResponse{Candidates: []Candidate{{Content: &Content{Parts: []Part{{Text: "  \n"}}}}}}, "", "Empty response from AI. Please try rephrasing your question."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ExtractText(tc.resp)
			if tc.msg == "" {
				if err != nil || got != tc.want {
					t.Fatalf("got %q, %v", got, err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error, got %q", got)
			}
			if m := UserMessage(err); m != tc.msg {
				t.Fatalf("UserMessage = %q, want %q", m, tc.msg)
			}
		})
	}
}

func TestContextCancelStopsRetry(t *testing.T) {
	srv, _ := testServerSequence(t, []int{503}, []http.Header{{"Retry-After": {"30"}}}, nil)
	defer srv.Close()

	c := NewClientWithBaseURL("test", "test-model", 0, 3, 0, 0, srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := c.Solve(ctx, "hi")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatalf("retry sleep ignored cancellation")
	}
}
