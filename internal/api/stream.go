package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vytor/realorai/internal/errors"
	"github.com/vytor/realorai/internal/events"
	"github.com/vytor/realorai/internal/logger"
)

const streamBuffer = 32

// StreamRegistry tracks the admin event streams open on this process. It is an
// events.Publisher, so the rest of the service never knows it exists.
type StreamRegistry struct {
	mu        sync.RWMutex
	streams   map[string]chan events.Event
	heartbeat time.Duration
	log       *logger.Logger
}

func NewStreamRegistry(heartbeat time.Duration) *StreamRegistry {
	if heartbeat <= 0 {
		heartbeat = 15 * time.Second
	}
	return &StreamRegistry{
		streams:   make(map[string]chan events.Event),
		heartbeat: heartbeat,
		log:       logger.Default().WithPrefix("streams"),
	}
}

// Register opens a stream and returns its id and event channel.
func (reg *StreamRegistry) Register() (string, <-chan events.Event) {
	id := uuid.NewString()
	ch := make(chan events.Event, streamBuffer)

	reg.mu.Lock()
	reg.streams[id] = ch
	n := len(reg.streams)
	reg.mu.Unlock()

	reg.log.Debug("stream %s registered (%d open)", id, n)
	return id, ch
}

// Deregister closes the stream. Unknown ids are ignored.
func (reg *StreamRegistry) Deregister(id string) {
	reg.mu.Lock()
	ch, ok := reg.streams[id]
	if ok {
		delete(reg.streams, id)
		close(ch)
	}
	n := len(reg.streams)
	reg.mu.Unlock()

	if ok {
		reg.log.Debug("stream %s deregistered (%d open)", id, n)
	}
}

// Len returns the number of open streams.
func (reg *StreamRegistry) Len() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.streams)
}

// Publish hands ev to every open stream. A stream whose buffer is full misses the event.
func (reg *StreamRegistry) Publish(_ context.Context, ev events.Event) error {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	for id, ch := range reg.streams {
		select {
		case ch <- ev:
		default:
			reg.log.Warn("stream %s is falling behind, dropping %s", id, ev.Type)
		}
	}
	return nil
}

// Close deregisters every stream.
func (reg *StreamRegistry) Close() {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	for id, ch := range reg.streams {
		delete(reg.streams, id)
		close(ch)
	}
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	flusher, ok := w.(http.Flusher)
	if !ok {
		handleError(w, r, errors.NewInternalError(fmt.Errorf("streaming unsupported")))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	id, stream := s.Streams.Register()
	defer s.Streams.Deregister(id)
	log.Info("event stream %s opened", id)

	ticker := time.NewTicker(s.Streams.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			log.Info("event stream %s closed by client", id)
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				log.Info("event stream %s heartbeat failed: %v", id, err)
				return
			}
			flusher.Flush()
		case ev, ok := <-stream:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				log.Error("failed to encode event: %v", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data); err != nil {
				log.Info("event stream %s write failed: %v", id, err)
				return
			}
			flusher.Flush()
		}
	}
}
