package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/NicoEspin/chatbot-portfolio/config"
	apperrors "github.com/NicoEspin/chatbot-portfolio/errors"
	"github.com/NicoEspin/chatbot-portfolio/llmclient"
	"github.com/NicoEspin/chatbot-portfolio/web/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Outbound event vocabulary.
const (
	eventReady = "ready"
	eventDelta = "delta"
	eventError = "error"
	eventDone  = "done"
)

// doneSentinel is the literal payload marking normal end of the upstream
// stream, forwarded verbatim on the terminal done event.
const doneSentinel = "[DONE]"

type deltaPayload struct {
	Delta string `json:"delta"`
}

type errorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// session holds the mutable state of one in-flight relay. Every exit path
// funnels into close(), which runs its body exactly once: it cancels the
// upstream call, stops the keep-alive and deadline timers, and marks the
// outbound sink closed so no later write can touch it.
type session struct {
	mu      sync.Mutex
	closed  bool
	w       http.ResponseWriter
	flusher http.Flusher
	cancel  context.CancelFunc
	done    chan struct{}
	logger  *zap.Logger
}

func newSession(w http.ResponseWriter, flusher http.Flusher, cancel context.CancelFunc, logger *zap.Logger) *session {
	return &session{
		w:       w,
		flusher: flusher,
		cancel:  cancel,
		done:    make(chan struct{}),
		logger:  logger,
	}
}

// write sends raw bytes to the client unless the session is closed. Writes
// and the closed flag share one mutex, so nothing is written after close.
func (s *session) write(raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if _, err := fmt.Fprint(s.w, raw); err != nil {
		return
	}
	s.flusher.Flush()
}

func (s *session) writeEvent(event string, payload any) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("Failed to marshal SSE payload", zap.Error(err))
		return
	}
	s.write(fmt.Sprintf("event: %s\ndata: %s\n\n", event, jsonData))
}

func (s *session) writeReady() {
	s.write(fmt.Sprintf("event: %s\ndata: {}\n\n", eventReady))
}

func (s *session) writePing() {
	s.write(": ping\n\n")
}

// finish emits the terminal done frame and closes the session in one step.
// The frame is written inside the same critical section that flips the
// closed flag, so concurrent terminal paths cannot double-emit done or
// slip a delta in behind it.
func (s *session) finish(reason string) {
	s.closeWith(reason, fmt.Sprintf("event: %s\ndata: %s\n\n", eventDone, doneSentinel))
}

// close ends the session without a terminal frame, for exits where the
// client is already gone. Idempotent under concurrent callers.
func (s *session) close(reason string) {
	s.closeWith(reason, "")
}

func (s *session) closeWith(reason, finalFrame string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if finalFrame != "" {
		if _, err := fmt.Fprint(s.w, finalFrame); err == nil {
			s.flusher.Flush()
		}
	}
	s.closed = true
	s.mu.Unlock()

	s.logger.Info("Closing stream", zap.String("reason", reason))
	if s.cancel != nil {
		s.cancel()
	}
	close(s.done)
}

func (s *session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// RelayService owns the streaming chat lifecycle: it opens the upstream
// completion call and re-frames its event stream to the client while running
// keep-alives, a hard deadline, and cancellation concurrently with the reads.
type RelayService struct {
	cfg    *config.Config
	llm    *llmclient.Client
	logger *zap.Logger
}

func NewRelayService(cfg *config.Config, llm *llmclient.Client, logger *zap.Logger) *RelayService {
	return &RelayService{
		cfg:    cfg,
		llm:    llm,
		logger: logger,
	}
}

// Relay streams the completion for messages (system prompt already prepended)
// to w as Server-Sent Events. It never returns a value: every outcome,
// including upstream failure, is written to the stream, and every path ends
// in exactly one session close.
func (rs *RelayService) Relay(reqCtx context.Context, w http.ResponseWriter, messages []types.ChatMessage) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		// Cannot stream through this writer; plain error response instead.
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":"streaming unsupported"}`)
		return
	}

	upstreamCtx, cancel := context.WithCancel(reqCtx)
	logger := rs.logger.With(zap.String("stream_id", uuid.New().String()))
	sess := newSession(w, flusher, cancel, logger)

	header := w.Header()
	header.Set("Content-Type", "text/event-stream; charset=utf-8")
	header.Set("Cache-Control", "no-cache, no-transform")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	// Immediate confirmation so the client can tell "connected, thinking"
	// from "connection never established".
	sess.writeReady()

	// Client went away: cancel the upstream call right away, nothing more
	// gets written.
	go func() {
		select {
		case <-reqCtx.Done():
			sess.close("client_disconnected")
		case <-sess.done:
		}
	}()

	// Periodic comment frames defeat intermediary proxy idle timeouts.
	go func() {
		ticker := time.NewTicker(rs.cfg.KeepAliveInterval)
		defer ticker.Stop()
		for {
			select {
			case <-sess.done:
				return
			case <-ticker.C:
				sess.writePing()
			}
		}
	}()

	// Absolute ceiling on the whole session; it does not reset on progress.
	deadline := time.AfterFunc(rs.cfg.StreamHardTimeout, func() {
		logger.Warn("Hard timeout reached, aborting upstream",
			zap.Duration("timeout", rs.cfg.StreamHardTimeout))
		sess.finish("hard_timeout")
	})
	defer deadline.Stop()

	resp, err := rs.llm.OpenStream(upstreamCtx, messages)
	if err != nil {
		if upstreamCtx.Err() != nil {
			// Deliberate cancellation, not an error.
			sess.close("canceled_before_upstream")
			return
		}
		logger.Error("Upstream request failed", zap.Error(err))
		sess.writeEvent(eventError, errorPayload{
			Error:   "server_error",
			Message: "could not reach completions API",
		})
		sess.finish("upstream_unreachable")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		logger.Error("Upstream rejected stream request",
			zap.Int("status", resp.StatusCode),
			zap.String("body", llmclient.Truncate(string(errBody), 300)))
		sess.writeEvent(eventError, errorPayload{
			Error:   "upstream_error",
			Message: fmt.Sprintf("Groq upstream HTTP %d", resp.StatusCode),
			Details: llmclient.Truncate(string(errBody), 500),
		})
		sess.finish("upstream_not_ok")
		return
	}

	if resp.Body == nil || resp.Body == http.NoBody {
		logger.Error("Upstream accepted the stream but sent no body",
			zap.Error(apperrors.ErrNoUpstreamBody))
		sess.writeEvent(eventError, errorPayload{
			Error:   "no_upstream_body",
			Message: "Groq returned no body for streaming",
		})
		sess.finish("no_upstream_body")
		return
	}

	rs.pump(upstreamCtx, sess, resp.Body, logger)
}

// pump is the STREAMING state: it reads upstream bytes incrementally and
// re-frames every recovered data payload as an outbound event, in order.
func (rs *RelayService) pump(ctx context.Context, sess *session, body io.Reader, logger *zap.Logger) {
	parser := &frameParser{}
	buf := make([]byte, 4096)
	deltaCount := 0

	for !sess.isClosed() {
		n, readErr := body.Read(buf)
		if n > 0 {
			for _, payload := range parser.feed(buf[:n]) {
				if payload == doneSentinel {
					logger.Debug("Upstream sent [DONE]", zap.Int("deltas", deltaCount))
					sess.finish("done")
					return
				}

				var chunk llmclient.StreamChunk
				if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
					// Forward the raw payload rather than dropping content:
					// upstream framing variations must not lose text.
					logger.Warn("Non-JSON upstream payload, forwarding raw",
						zap.String("sample", llmclient.Truncate(payload, 60)))
					deltaCount++
					sess.writeEvent(eventDelta, deltaPayload{Delta: payload})
					continue
				}

				if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
					deltaCount++
					sess.writeEvent(eventDelta, deltaPayload{Delta: chunk.Choices[0].Delta.Content})
				}
			}
		}

		if readErr == nil {
			continue
		}

		if errors.Is(readErr, io.EOF) {
			// Upstream closed without the sentinel; a done event still goes
			// out so the client never hangs in a "typing" state.
			logger.Warn("Upstream ended without [DONE]", zap.Int("deltas", deltaCount))
			sess.finish("eof_without_done")
			return
		}

		if ctx.Err() != nil || errors.Is(readErr, context.Canceled) {
			// Our own abort surfacing through the read; clean close.
			sess.close("canceled_during_read")
			return
		}

		logger.Error("Upstream read failed", zap.Error(readErr))
		sess.writeEvent(eventError, errorPayload{
			Error:   "server_error",
			Message: "upstream read failed",
		})
		sess.finish("upstream_read_error")
		return
	}
}
