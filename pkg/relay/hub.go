package relay

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/voxrelay/voxrelay/internal/metrics"
)

// sendBuffer is the per-participant outbound queue depth. A participant whose
// queue fills up is considered too slow and is dropped.
const sendBuffer = 64

// Hub is the broadcast channel between participants. It owns the mapping from
// participant id to outbound queue and never delivers a frame back to its
// sender. Delivery is fire-and-forget: no acknowledgement, no retry, nothing
// is queued for participants that are not connected.
type Hub struct {
	registry *Registry
	logger   *slog.Logger

	mu      sync.Mutex
	clients map[string]chan Message
}

// NewHub creates a hub backed by the given registry.
func NewHub(registry *Registry, logger *slog.Logger) *Hub {
	return &Hub{
		registry: registry,
		logger:   logger.With("component", "relay.hub"),
		clients:  make(map[string]chan Message),
	}
}

// Registry returns the participant registry backing this hub.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Join registers a new participant and returns its assigned id together with
// the outbound queue the connection's write pump must drain. The queue is
// closed by the hub on Leave or when the participant is dropped as too slow.
func (h *Hub) Join() (string, chan Message) {
	id := uuid.NewString()
	ch := make(chan Message, sendBuffer)

	h.mu.Lock()
	h.clients[id] = ch
	h.mu.Unlock()

	h.registry.Register(id)
	metrics.ParticipantsConnected.Inc()
	h.logger.Info("participant connected", "participant", id, "total", h.registry.Count())
	return id, ch
}

// Leave removes a participant and closes its queue. Safe to call for ids that
// were already dropped.
func (h *Hub) Leave(id string) {
	h.mu.Lock()
	ch, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
		close(ch)
	}
	h.mu.Unlock()

	if !ok {
		return
	}
	h.registry.Unregister(id)
	metrics.ParticipantsConnected.Dec()
	h.logger.Info("participant disconnected", "participant", id, "remaining", h.registry.Count())
}

// SetLanguage updates the sender's language and announces it to every other
// participant so their UI can display the partner's language.
func (h *Hub) SetLanguage(id, code string) {
	if !h.registry.SetLanguage(id, code) {
		h.logger.Warn("language update for unknown participant", "participant", id)
		return
	}
	h.logger.Debug("language updated", "participant", id, "language", code)
	h.BroadcastControl(id, Control{Type: ControlLanguage, Language: code})
}

// SetVoice updates the sender's voice identity. Voice ids are looked up from
// the submitter's own session state at ingress time, so no broadcast is made.
func (h *Hub) SetVoice(id, voiceID string) {
	if !h.registry.SetVoice(id, voiceID) {
		h.logger.Warn("voice update for unknown participant", "participant", id)
		return
	}
	h.logger.Debug("voice updated", "participant", id, "voice", voiceID)
}

// BroadcastControl sends a control message to every participant except the
// sender. Returns the number of participants the frame was queued for.
func (h *Hub) BroadcastControl(senderID string, c Control) int {
	msg, err := ControlMessage(c)
	if err != nil {
		h.logger.Error("encode control message", "error", err)
		return 0
	}
	n := h.broadcast(senderID, msg)
	metrics.BroadcastFramesTotal.WithLabelValues("control").Add(float64(n))
	return n
}

// SendAudioFrom fans WAV audio out to every participant except the sender.
// Returns the number of participants the frame was queued for.
func (h *Hub) SendAudioFrom(senderID string, wav []byte) int {
	n := h.broadcast(senderID, AudioMessage(wav))
	metrics.BroadcastFramesTotal.WithLabelValues("audio").Add(float64(n))
	return n
}

// broadcast queues msg for all clients but the sender. Clients whose queue is
// full are dropped, matching the hub's fire-and-forget contract.
func (h *Hub) broadcast(senderID string, msg Message) int {
	var dropped []string
	sent := 0

	h.mu.Lock()
	for id, ch := range h.clients {
		if id == senderID {
			continue
		}
		select {
		case ch <- msg:
			sent++
		default:
			delete(h.clients, id)
			close(ch)
			dropped = append(dropped, id)
		}
	}
	h.mu.Unlock()

	for _, id := range dropped {
		h.registry.Unregister(id)
		metrics.ParticipantsConnected.Dec()
		h.logger.Warn("dropped slow participant", "participant", id)
	}
	return sent
}
