package voice

import (
	"log/slog"
	"sync"

	"github.com/benlarsendk/a320-checklist-companion/metrics"
	"github.com/benlarsendk/a320-checklist-companion/settings"
)

// EventType labels events emitted by the voice session.
type EventType string

const (
	EventChecklistAvailable    EventType = "checklist_available"
	EventChecklistComplete     EventType = "checklist_complete"
	EventItemChallenge         EventType = "item_challenge"
	EventItemResponseAccepted  EventType = "item_response_accepted"
	EventItemResponseRejected  EventType = "item_response_rejected"
	EventListeningStarted      EventType = "listening_started"
	EventListeningStopped      EventType = "listening_stopped"
	EventTranscriptionResult   EventType = "transcription_result"
)

// Event is one voice pipeline occurrence, forwarded to the bus and to
// WebSocket clients.
type Event struct {
	Type EventType      `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

// speechSettings is the playback tuning attached to every read command.
type speechSettings struct {
	Volume float64 `json:"volume"`
	Rate   float64 `json:"rate"`
}

// ReadCommand instructs the client to play a speech sequence.
type ReadCommand struct {
	Sequence        []SpeechCommand `json:"sequence"`
	Settings        speechSettings  `json:"settings"`
	ExpectResponse  bool            `json:"expect_response,omitempty"`
	AcceptedPhrases []string        `json:"accepted_phrases,omitempty"`
}

// ListenCommand instructs the client to start or stop recording.
type ListenCommand struct {
	Action string `json:"action"`
}

// Result is the outcome of processing a transcript.
type Result struct {
	Action          string   `json:"action"`
	ItemID          string   `json:"item_id,omitempty"`
	Spoken          string   `json:"spoken,omitempty"`
	Expected        string   `json:"expected,omitempty"`
	Confidence      float64  `json:"confidence,omitempty"`
	AutoAdvance     bool     `json:"auto_advance,omitempty"`
	AcceptedPhrases []string `json:"accepted_phrases,omitempty"`
}

// Status is the voice system snapshot served over REST.
type Status struct {
	Enabled     bool                   `json:"enabled"`
	AudioFiles  int                    `json:"audio_files_available"`
	IsListening bool                   `json:"is_listening"`
	CurrentItem string                 `json:"current_item,omitempty"`
	Settings    settings.VoiceSettings `json:"settings"`
}

// Session tracks the push-to-talk conversation: which item was last read and
// what response it expects. Safe for concurrent use.
type Session struct {
	engine   *Engine
	matcher  *Matcher
	settings *settings.Manager
	logger   *slog.Logger

	// onEvent, when set, receives every voice event. Set once during wiring,
	// before any traffic.
	onEvent func(Event)

	mu          sync.Mutex
	checklistID string
	itemID      string
	expected    string
	listening   bool
}

// NewSession creates a voice session around the TTS engine and matcher.
func NewSession(engine *Engine, matcher *Matcher, sm *settings.Manager, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{engine: engine, matcher: matcher, settings: sm, logger: logger}
}

// SetEventHandler registers the event sink. Must be called before Start.
func (s *Session) SetEventHandler(fn func(Event)) { s.onEvent = fn }

func (s *Session) emit(t EventType, data map[string]any) {
	if s.onEvent != nil {
		s.onEvent(Event{Type: t, Data: data})
	}
}

func (s *Session) speechSettings() speechSettings {
	v := s.settings.Get().Voice
	return speechSettings{Volume: v.Volume, Rate: v.SpeechRate}
}

// Status returns the current voice system snapshot.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg := s.settings.Get().Voice
	return Status{
		Enabled:     cfg.Enabled,
		AudioFiles:  s.engine.AudioCount(),
		IsListening: s.listening,
		CurrentItem: s.itemID,
		Settings:    cfg,
	}
}

// AnnounceChecklistAvailable builds the playback sequence announcing a newly
// active checklist.
func (s *Session) AnnounceChecklistAvailable(checklistID, title string) ReadCommand {
	s.mu.Lock()
	s.checklistID = checklistID
	s.mu.Unlock()

	s.emit(EventChecklistAvailable, map[string]any{
		"checklist_id":    checklistID,
		"checklist_title": title,
	})
	return ReadCommand{
		Sequence: []SpeechCommand{
			s.engine.Announcement("checklist_available"),
			s.engine.ChecklistAnnouncement(checklistID, title),
		},
		Settings: s.speechSettings(),
	}
}

// AnnounceChecklistComplete builds the completion announcement.
func (s *Session) AnnounceChecklistComplete(checklistID string) ReadCommand {
	s.emit(EventChecklistComplete, map[string]any{"checklist_id": checklistID})
	return ReadCommand{
		Sequence: []SpeechCommand{s.engine.Announcement("checklist_complete")},
		Settings: s.speechSettings(),
	}
}

// ReadChallenge reads an item challenge and records the expected response
// for the next transcript.
func (s *Session) ReadChallenge(itemID, challenge, expected string) ReadCommand {
	s.mu.Lock()
	s.itemID = itemID
	s.expected = expected
	s.mu.Unlock()

	accepted := s.matcher.AcceptedPhrases(expected)
	s.emit(EventItemChallenge, map[string]any{
		"item_id":           itemID,
		"challenge":         challenge,
		"expected_response": expected,
		"accepted_phrases":  accepted,
	})
	return ReadCommand{
		Sequence:        []SpeechCommand{s.engine.ItemChallenge(itemID, challenge)},
		Settings:        s.speechSettings(),
		ExpectResponse:  true,
		AcceptedPhrases: accepted,
	}
}

// StartListening marks PTT pressed.
func (s *Session) StartListening() ListenCommand {
	s.mu.Lock()
	s.listening = true
	itemID, expected := s.itemID, s.expected
	s.mu.Unlock()

	s.emit(EventListeningStarted, map[string]any{
		"item_id":           itemID,
		"expected_response": expected,
	})
	return ListenCommand{Action: "start_recording"}
}

// StopListening marks PTT released. The browser follows up with the
// transcript via ProcessTranscript.
func (s *Session) StopListening() ListenCommand {
	s.mu.Lock()
	s.listening = false
	s.mu.Unlock()

	s.emit(EventListeningStopped, nil)
	return ListenCommand{Action: "use_web_speech"}
}

// ProcessTranscript matches a browser transcript against the expected
// response recorded by the last ReadChallenge.
func (s *Session) ProcessTranscript(spoken string) Result {
	s.mu.Lock()
	itemID, expected := s.itemID, s.expected
	s.mu.Unlock()

	if expected == "" {
		return Result{Action: "no_expected_response", Spoken: spoken}
	}

	confidence, ok := s.matcher.Match(spoken, expected)
	s.emit(EventTranscriptionResult, map[string]any{
		"spoken":     spoken,
		"expected":   expected,
		"is_match":   ok,
		"confidence": confidence,
	})

	if !ok {
		metrics.VoiceMatches.WithLabelValues("rejected").Inc()
		s.logger.Info("Voice response rejected", "item", itemID, "spoken", spoken)
		s.emit(EventItemResponseRejected, map[string]any{
			"item_id":  itemID,
			"spoken":   spoken,
			"expected": expected,
		})
		return Result{
			Action:          "response_rejected",
			ItemID:          itemID,
			Spoken:          spoken,
			Expected:        expected,
			AcceptedPhrases: s.matcher.AcceptedPhrases(expected),
		}
	}

	metrics.VoiceMatches.WithLabelValues("accepted").Inc()
	s.logger.Info("Voice response accepted",
		"item", itemID, "spoken", spoken, "confidence", confidence)
	s.emit(EventItemResponseAccepted, map[string]any{
		"item_id":    itemID,
		"spoken":     spoken,
		"expected":   expected,
		"confidence": confidence,
	})
	return Result{
		Action:      "response_accepted",
		ItemID:      itemID,
		Spoken:      spoken,
		Expected:    expected,
		Confidence:  confidence,
		AutoAdvance: s.settings.Get().Voice.AutoAdvanceOnResponse,
	}
}
