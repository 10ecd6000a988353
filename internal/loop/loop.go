// Package loop drives the assistant session: listen, route, optionally look
// at the screen, respond, speak, log, repeat.
package loop

import (
	"context"
	"errors"
	log "log/slog"
	"time"

	"github.com/google/uuid"

	"prometheus/internal/intent"
	"prometheus/internal/listen"
)

type State string

const (
	StateIdle       State = "idle"
	StateListening  State = "listening"
	StateRouting    State = "routing"
	StateCapturing  State = "capturing"
	StateResponding State = "responding"
	StateSpeaking   State = "speaking"
	StateLogging    State = "logging"
)

// Event is a status update for the presentation surface.
type Event struct {
	ExchangeID    string `json:"exchange_id,omitempty"`
	State         State  `json:"state"`
	UserText      string `json:"user_text,omitempty"`
	AssistantText string `json:"assistant_text,omitempty"`
	Detail        string `json:"detail,omitempty"`
}

type Router interface {
	Route(ctx context.Context, userText string) intent.Label
}

type Capturer interface {
	Capture() (string, error)
}

type Describer interface {
	Describe(ctx context.Context, prompt, imagePath string) (string, error)
}

type Responder interface {
	Reply(ctx context.Context, userText, visualContext string) (string, error)
}

type Speaker interface {
	Speak(ctx context.Context, text string) error
}

type Journal interface {
	Append(userText, assistantText string) error
}

type Notifier interface {
	Publish(Event)
}

// Loop runs exchanges strictly sequentially. Every provider failure degrades
// to skipping part of the exchange; nothing here is fatal to the process.
type Loop struct {
	listener  listen.Listener
	router    Router
	capturer  Capturer
	describer Describer
	responder Responder
	speaker   Speaker
	journal   Journal
	notifier  Notifier

	chime     func()
	idleDelay time.Duration
}

func New(
	listener listen.Listener,
	router Router,
	capturer Capturer,
	describer Describer,
	responder Responder,
	speaker Speaker,
	journal Journal,
	notifier Notifier,
	idleDelay time.Duration,
) *Loop {
	if idleDelay <= 0 {
		idleDelay = 100 * time.Millisecond
	}
	return &Loop{
		listener:  listener,
		router:    router,
		capturer:  capturer,
		describer: describer,
		responder: responder,
		speaker:   speaker,
		journal:   journal,
		notifier:  notifier,
		chime:     func() {},
		idleDelay: idleDelay,
	}
}

// SetChime installs the listening cue played before each utterance.
func (l *Loop) SetChime(f func()) {
	if f != nil {
		l.chime = f
	}
}

// Run blocks until ctx is cancelled or a scripted listener is exhausted.
func (l *Loop) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			l.publish(Event{State: StateIdle, Detail: "shutting down"})
			return nil
		}
		if done := l.runExchange(ctx); done {
			l.publish(Event{State: StateIdle, Detail: "shutting down"})
			return nil
		}
		if !l.sleep(ctx) {
			l.publish(Event{State: StateIdle, Detail: "shutting down"})
			return nil
		}
	}
}

// runExchange walks one exchange through the state machine. It reports true
// when the loop should stop.
func (l *Loop) runExchange(ctx context.Context) bool {
	l.publish(Event{State: StateListening})
	l.chime()

	userText, err := l.listener.Listen(ctx)
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded),
			errors.Is(err, listen.ErrExhausted):
			return true
		case errors.Is(err, listen.ErrUnintelligible):
			log.Debug("Utterance not understood, listening again")
		default:
			log.Warn("Transcription failed", "err", err)
		}
		return false
	}

	id := uuid.NewString()
	log.Info("Heard utterance", "exchange", id, "text", userText)

	l.publish(Event{ExchangeID: id, State: StateRouting, UserText: userText})
	visualContext := ""
	if l.router.Route(ctx, userText) == intent.LabelTakeScreenshot {
		visualContext = l.gatherVisualContext(ctx, id, userText)
	}

	l.publish(Event{ExchangeID: id, State: StateResponding, UserText: userText})
	reply, err := l.responder.Reply(ctx, userText, visualContext)
	if err != nil {
		// Chat provider failure skips the exchange; the loop keeps going.
		log.Warn("Chat provider failed, skipping exchange", "exchange", id, "err", err)
		l.publish(Event{ExchangeID: id, State: StateListening, Detail: "chat provider failed"})
		return false
	}

	log.Info("Assistant reply", "exchange", id, "text", reply)

	l.publish(Event{ExchangeID: id, State: StateSpeaking, UserText: userText, AssistantText: reply})
	if err := l.speaker.Speak(ctx, reply); err != nil {
		// The record must survive a synthesis failure; the user just does
		// not hear this reply.
		log.Warn("Speech synthesis failed", "exchange", id, "err", err)
	}

	l.publish(Event{ExchangeID: id, State: StateLogging, UserText: userText, AssistantText: reply})
	if err := l.journal.Append(userText, reply); err != nil {
		log.Warn("Journal append failed", "exchange", id, "err", err)
	}

	return false
}

// gatherVisualContext degrades to "" on any capture or vision failure; the
// exchange proceeds without visual context rather than aborting.
func (l *Loop) gatherVisualContext(ctx context.Context, id, userText string) string {
	l.publish(Event{ExchangeID: id, State: StateCapturing, UserText: userText})

	path, err := l.capturer.Capture()
	if err != nil {
		log.Warn("Screen capture failed, continuing without visual context", "exchange", id, "err", err)
		return ""
	}

	desc, err := l.describer.Describe(ctx, userText, path)
	if err != nil {
		log.Warn("Vision describe failed, continuing without visual context", "exchange", id, "err", err)
		return ""
	}
	return desc
}

func (l *Loop) publish(evt Event) {
	if l.notifier != nil {
		l.notifier.Publish(evt)
	}
}

func (l *Loop) sleep(ctx context.Context) bool {
	t := time.NewTimer(l.idleDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
