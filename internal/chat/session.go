package chat

import (
	"context"
	"errors"
	"html"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KaramelBytes/mathmatrix/internal/ai"
	"github.com/KaramelBytes/mathmatrix/internal/markup"
	"github.com/KaramelBytes/mathmatrix/internal/metrics"
)

// WelcomeMessage opens every transcript.
const WelcomeMessage = "Welcome to MathMatrix AI! Type your math problem or use the keyboard to get started."

var (
	// ErrEmptyInput is returned for blank submissions.
	ErrEmptyInput = errors.New("empty input")
	// ErrBusy is returned while another submission is in flight.
	ErrBusy = errors.New("a problem is already being solved")
)

type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// Message is one transcript entry. HTML is ready to insert into the page.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	HTML      string    `json:"html"`
	Raw       string    `json:"raw,omitempty"`
	Error     string    `json:"error,omitempty"`
	ElapsedMs int64     `json:"elapsed_ms,omitempty"`
	At        time.Time `json:"at"`
}

// Options configures a Session.
type Options struct {
	Runtime  ai.Runtime
	Provider string
	// Sanitize escapes user text and model output before markup is added.
	Sanitize bool
	Logger   *zap.Logger
}

// Session is one conversation with the solver. Only one submission runs at
// a time; concurrent callers get ErrBusy rather than queueing.
type Session struct {
	runtime  ai.Runtime
	provider string
	sanitize bool
	pipeline *markup.Pipeline
	log      *zap.Logger

	busy atomic.Bool

	mu         sync.RWMutex
	transcript []Message
}

// NewSession returns a session whose transcript holds the welcome message.
func NewSession(opt Options) *Session {
	log := opt.Logger
	if log == nil {
		log = zap.NewNop()
	}
	s := &Session{
		runtime:  opt.Runtime,
		provider: opt.Provider,
		sanitize: opt.Sanitize,
		pipeline: markup.NewPipeline(markup.Options{EscapeHTML: opt.Sanitize}),
		log:      log,
	}
	s.Clear()
	return s
}

// Busy reports whether a submission is in flight.
func (s *Session) Busy() bool { return s.busy.Load() }

// Submit sends input to the runtime and appends both sides of the exchange
// to the transcript. Solver failures become an "Error: ..." bot message and
// are not returned as errors.
func (s *Session) Submit(ctx context.Context, input string) (Message, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return Message{}, ErrEmptyInput
	}
	if !s.busy.CompareAndSwap(false, true) {
		return Message{}, ErrBusy
	}
	defer s.busy.Store(false)

	s.append(s.userMessage(input))

	start := time.Now()
	answer, err := s.solve(ctx, input)
	elapsed := time.Since(start)
	metrics.SolveDuration.WithLabelValues(s.provider).Observe(elapsed.Seconds())

	var reply Message
	if err != nil {
		metrics.SolveTotal.WithLabelValues("error").Inc()
		msg := ai.UserMessage(err)
		s.log.Warn("Solve failed", zap.Error(err), zap.Duration("elapsed", elapsed))
		reply = newMessage(RoleBot, "Error: "+msg)
		if s.sanitize {
			reply.HTML = "Error: " + html.EscapeString(msg)
		}
		reply.Error = msg
	} else {
		metrics.SolveTotal.WithLabelValues("ok").Inc()
		s.log.Info("Response received", zap.Duration("response_time", elapsed), zap.Int("chars", len(answer)))
		reply = newMessage(RoleBot, s.pipeline.Run(answer))
		reply.Raw = answer
	}
	reply.ElapsedMs = elapsed.Milliseconds()
	s.append(reply)
	return reply, nil
}

func (s *Session) solve(ctx context.Context, input string) (string, error) {
	if s.runtime == nil {
		return "", &ai.ConfigurationError{Setting: "provider", Reason: "no runtime configured"}
	}
	return s.runtime.Solve(ctx, input)
}

func (s *Session) userMessage(input string) Message {
	text := input
	if s.sanitize {
		text = html.EscapeString(text)
	}
	m := newMessage(RoleUser, `<div class="user-text">`+strings.ReplaceAll(text, "\n", "<br>")+`</div>`)
	m.Raw = input
	return m
}

// Transcript returns a copy of the conversation so far.
func (s *Session) Transcript() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Message, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// Clear empties the transcript and re-adds the welcome message.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript = []Message{newMessage(RoleBot, WelcomeMessage)}
}

func (s *Session) append(m Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript = append(s.transcript, m)
}

func newMessage(role Role, htmlText string) Message {
	return Message{ID: uuid.NewString(), Role: role, HTML: htmlText, At: time.Now().UTC()}
}
