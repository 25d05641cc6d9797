package voice

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// audioSubdirs are scanned for custom recordings, in this order. A file in a
// later directory wins when keys collide.
var audioSubdirs = []string{"announcements", "checklists", "items"}

// rescanDebounce batches bursts of file events into one cache rescan.
const rescanDebounce = 500 * time.Millisecond

// SpeechCommand tells the browser how to voice something: play a recorded
// file or synthesize the text.
type SpeechCommand struct {
	Type string `json:"type"` // "audio" or "tts"
	URL  string `json:"url,omitempty"`
	Text string `json:"text,omitempty"`
	Key  string `json:"key"`
}

// standardAnnouncements are the built-in announcement texts, keyed by type.
var standardAnnouncements = map[string]string{
	"checklist_available": "Checklist available",
	"checklist_complete":  "Checklist complete",
	"item_verified":       "Verified",
	"item_not_verified":   "Not verified",
}

// Engine resolves speech keys against the audio-file cache, preferring
// recorded audio over browser TTS. Safe for concurrent use.
type Engine struct {
	audioDir string
	logger   *slog.Logger

	mu    sync.RWMutex
	cache map[string]string // key -> path relative to audioDir
}

// NewEngine scans audioDir and returns a ready engine. A missing directory
// is not an error: the cache is simply empty and everything falls back to
// browser TTS.
func NewEngine(audioDir string, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{audioDir: audioDir, logger: logger}
	e.Rescan()
	return e
}

// Rescan rebuilds the audio cache from disk.
func (e *Engine) Rescan() {
	cache := make(map[string]string)
	for _, sub := range audioSubdirs {
		dir := filepath.Join(e.audioDir, sub)
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			name := entry.Name()
			ext := strings.ToLower(filepath.Ext(name))
			if ext != ".mp3" && ext != ".wav" {
				continue
			}
			key := strings.TrimSuffix(name, filepath.Ext(name))
			cache[key] = filepath.ToSlash(filepath.Join(sub, name))
		}
	}

	e.mu.Lock()
	e.cache = cache
	e.mu.Unlock()
	e.logger.Info("Audio cache scanned", "files", len(cache))
}

// AudioCount returns the number of cached audio files.
func (e *Engine) AudioCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.cache)
}

// HasAudio reports whether a recording exists for the key.
func (e *Engine) HasAudio(key string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.cache[key]
	return ok
}

// AudioURL returns the client-facing URL for a key's recording, or "".
func (e *Engine) AudioURL(key string) string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	rel, ok := e.cache[key]
	if !ok {
		return ""
	}
	return "/audio/" + rel
}

// SpeechFor builds the playback command for a key, falling back to
// synthesized text when no recording exists.
func (e *Engine) SpeechFor(key, text string) SpeechCommand {
	if url := e.AudioURL(key); url != "" {
		return SpeechCommand{Type: "audio", URL: url, Key: key}
	}
	return SpeechCommand{Type: "tts", Text: text, Key: key}
}

// ChecklistAnnouncement voices "<title> checklist" for a checklist id.
func (e *Engine) ChecklistAnnouncement(checklistID, title string) SpeechCommand {
	return e.SpeechFor(checklistID+"_title", title+" checklist")
}

// ItemChallenge voices an item challenge.
func (e *Engine) ItemChallenge(itemID, challenge string) SpeechCommand {
	return e.SpeechFor(itemID+"_challenge", challenge)
}

// Announcement voices one of the standard announcements. Unknown types are
// spoken literally.
func (e *Engine) Announcement(kind string) SpeechCommand {
	text, ok := standardAnnouncements[kind]
	if !ok {
		text = kind
	}
	return e.SpeechFor(kind, text)
}

// Watch rescans the cache whenever files under the audio directory change.
// Blocks until ctx is done.
func (e *Engine) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(e.audioDir); err != nil {
		e.logger.Warn("Audio directory not watchable", "dir", e.audioDir, "error", err)
		<-ctx.Done()
		return nil
	}
	for _, sub := range audioSubdirs {
		// Missing subdirs are fine, they may appear later.
		_ = watcher.Add(filepath.Join(e.audioDir, sub))
	}

	var timer *time.Timer
	var timerC <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if timer == nil {
				timer = time.NewTimer(rescanDebounce)
				timerC = timer.C
			} else {
				timer.Reset(rescanDebounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			e.logger.Error("Audio watcher error", "error", err)
		case <-timerC:
			e.Rescan()
		}
	}
}
