package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/desertthunder/hyde/internal/services"
	"github.com/desertthunder/hyde/internal/sessions"
	"github.com/desertthunder/hyde/internal/shared"
)

// streamChunkBytes is the smallest chunk forwarded to SSE clients; shorter model chunks are buffered.
const streamChunkBytes = 3

const streamErrorMessage = "Sorry, something went wrong while generating a response."

type chatRequest struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
	HasImage  bool   `json:"has_image"`
	Image     string `json:"image"`
}

type chatResponse struct {
	SessionID string `json:"session_id"`
	User      string `json:"user"`
	Bot       string `json:"bot"`
}

type streamEvent struct {
	Chunk        string  `json:"chunk"`
	Done         bool    `json:"done"`
	FullResponse *string `json:"full_response,omitempty"`
	Error        string  `json:"error,omitempty"`
}

// image returns the base64 payload without any data URL prefix, or "" when no image was sent.
func (c chatRequest) image() string {
	if !c.HasImage {
		return ""
	}
	img := strings.TrimSpace(c.Image)
	if strings.HasPrefix(img, "data:") {
		if i := strings.IndexByte(img, ','); i >= 0 {
			img = img[i+1:]
		}
	}
	return img
}

func textPrompt(history, question string) string {
	var b strings.Builder
	b.WriteString("You are Hyde, a friendly assistant inside a music player. ")
	b.WriteString("Answer clearly and in a well structured way. Use the conversation so far when it is relevant.\n\n")
	if history != "" {
		b.WriteString("Conversation so far:\n")
		b.WriteString(history)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "User: %s\nBot:", question)
	return b.String()
}

func visionPrompt(history, question string) string {
	var b strings.Builder
	b.WriteString("You are Hyde, an assistant that can see images. Look at the attached image and answer the request.\n\n")
	if history != "" {
		b.WriteString("Conversation so far:\n")
		b.WriteString(history)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "User: %s\nBot:", question)
	return b.String()
}

// completions builds the model request for body. Image requests go to the vision model and also return a text
// request to fall back to.
func (s *Server) completions(sessionID string, body chatRequest) (services.Completion, *services.Completion) {
	history := s.deps.Sessions.Context(sessionID)
	question := strings.TrimSpace(body.Question)
	text := services.Completion{Model: s.cfg.Ollama.ChatModel, Prompt: textPrompt(history, question)}

	img := body.image()
	if img == "" {
		return text, nil
	}
	text.Prompt = textPrompt(history, "(The user attached an image that could not be analyzed.) "+question)
	vision := services.Completion{
		Model:  s.cfg.Ollama.VisionModel,
		Prompt: visionPrompt(history, question),
		Images: []string{img},
	}
	return vision, &text
}

// readChat decodes and validates a chat request body.
func (s *Server) readChat(w http.ResponseWriter, r *http.Request) (chatRequest, bool) {
	var body chatRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.fail(w, r, err)
		return body, false
	}
	if strings.TrimSpace(body.Question) == "" {
		writeError(w, http.StatusBadRequest, "no question provided")
		return body, false
	}
	if s.deps.Chat == nil {
		s.fail(w, r, fmt.Errorf("%w: no chat model configured", shared.ErrServiceUnavailable))
		return body, false
	}
	return body, true
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readChat(w, r)
	if !ok {
		return
	}
	sid := sessions.Key(body.SessionID)
	primary, fallback := s.completions(sid, body)

	answer, err := s.deps.Chat.Complete(r.Context(), primary)
	if err != nil && fallback != nil {
		s.logger.Warn("vision model failed, answering with text model", "model", primary.Model, "error", err)
		answer, err = s.deps.Chat.Complete(r.Context(), *fallback)
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}

	question := strings.TrimSpace(body.Question)
	s.deps.Sessions.Append(sid, question, answer)
	writeJSON(w, http.StatusOK, chatResponse{SessionID: sid, User: question, Bot: answer})
}

// sseWriter writes server-sent events, flushing after each one.
type sseWriter struct {
	w  http.ResponseWriter
	rc *http.ResponseController
}

func (e *sseWriter) send(ev streamEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(e.w, "data: %s\n\n", data); err != nil {
		return err
	}
	if err := e.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}
	return nil
}

// handleChatStream answers as a text/event-stream. Model chunks are coalesced to at least
// streamChunkBytes, and the final event carries the full response.
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readChat(w, r)
	if !ok {
		return
	}
	sid := sessions.Key(body.SessionID)
	primary, fallback := s.completions(sid, body)

	rc := http.NewResponseController(w)
	// Streams outlive the server write timeout.
	_ = rc.SetWriteDeadline(time.Time{})

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	sse := &sseWriter{w: w, rc: rc}

	var pending strings.Builder
	emitted := false
	emit := func(chunk string) error {
		pending.WriteString(chunk)
		if pending.Len() < streamChunkBytes {
			return nil
		}
		emitted = true
		ev := streamEvent{Chunk: pending.String()}
		pending.Reset()
		return sse.send(ev)
	}

	full, err := s.deps.Chat.Stream(r.Context(), primary, emit)
	if err != nil && fallback != nil && !emitted && r.Context().Err() == nil {
		s.logger.Warn("vision model failed, streaming text model", "model", primary.Model, "error", err)
		pending.Reset()
		full, err = s.deps.Chat.Stream(r.Context(), *fallback, emit)
	}
	if err != nil {
		if r.Context().Err() != nil {
			s.logger.Debug("chat stream client went away", "session", sid)
			return
		}
		s.logger.Error("chat stream failed", "session", sid, "request_id", RequestIDFrom(r.Context()), "error", err)
		_ = sse.send(streamEvent{Chunk: streamErrorMessage, Done: true, Error: shared.ErrUpstream.Error()})
		return
	}

	if pending.Len() > 0 {
		if err := sse.send(streamEvent{Chunk: pending.String()}); err != nil {
			return
		}
	}
	s.deps.Sessions.Append(sid, strings.TrimSpace(body.Question), full)
	_ = sse.send(streamEvent{Done: true, FullResponse: &full})
}

func (s *Server) handleClearSession(w http.ResponseWriter, r *http.Request) {
	cleared := s.deps.Sessions.Clear(r.PathValue("session"))
	writeJSON(w, http.StatusOK, map[string]bool{"success": true, "cleared": cleared})
}
