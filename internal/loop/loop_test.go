package loop

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"prometheus/internal/intent"
	"prometheus/internal/listen"
)

type scriptedListener struct {
	results []listenResult
	next    int
}

type listenResult struct {
	text string
	err  error
}

func (s *scriptedListener) Listen(context.Context) (string, error) {
	if s.next >= len(s.results) {
		return "", listen.ErrExhausted
	}
	r := s.results[s.next]
	s.next++
	return r.text, r.err
}

type mockRouter struct {
	label intent.Label
}

func (m *mockRouter) Route(context.Context, string) intent.Label { return m.label }

type mockCapturer struct {
	path  string
	err   error
	calls int
}

func (m *mockCapturer) Capture() (string, error) {
	m.calls++
	return m.path, m.err
}

type mockDescriber struct {
	desc  string
	err   error
	calls int
}

func (m *mockDescriber) Describe(_ context.Context, _, _ string) (string, error) {
	m.calls++
	return m.desc, m.err
}

type replyCall struct {
	userText      string
	visualContext string
}

type mockResponder struct {
	reply     string
	err       error
	failFirst bool
	calls     []replyCall
}

func (m *mockResponder) Reply(_ context.Context, userText, visualContext string) (string, error) {
	m.calls = append(m.calls, replyCall{userText: userText, visualContext: visualContext})
	if m.failFirst && len(m.calls) == 1 {
		return "", errors.New("provider down")
	}
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

type mockSpeaker struct {
	err   error
	calls int
}

func (m *mockSpeaker) Speak(context.Context, string) error {
	m.calls++
	return m.err
}

type journalRecord struct {
	user      string
	assistant string
}

type mockJournal struct {
	records []journalRecord
	err     error
}

func (m *mockJournal) Append(userText, assistantText string) error {
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, journalRecord{user: userText, assistant: assistantText})
	return nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingNotifier) Publish(evt Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *recordingNotifier) states() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]State, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.State)
	}
	return out
}

type fixture struct {
	listener  *scriptedListener
	router    *mockRouter
	capturer  *mockCapturer
	describer *mockDescriber
	responder *mockResponder
	speaker   *mockSpeaker
	journal   *mockJournal
	notifier  *recordingNotifier
}

func newFixture() *fixture {
	return &fixture{
		listener:  &scriptedListener{},
		router:    &mockRouter{label: intent.LabelNone},
		capturer:  &mockCapturer{path: "screenshot.jpg"},
		describer: &mockDescriber{desc: "a code editor"},
		responder: &mockResponder{reply: "the answer"},
		speaker:   &mockSpeaker{},
		journal:   &mockJournal{},
		notifier:  &recordingNotifier{},
	}
}

func (f *fixture) loop() *Loop {
	return New(f.listener, f.router, f.capturer, f.describer, f.responder,
		f.speaker, f.journal, f.notifier, time.Millisecond)
}

func TestPlainExchange(t *testing.T) {
	f := newFixture()
	f.listener.results = []listenResult{{text: "What's the weather"}}

	if err := f.loop().Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(f.responder.calls) != 1 {
		t.Fatalf("responder calls = %d, want 1", len(f.responder.calls))
	}
	call := f.responder.calls[0]
	if call.userText != "What's the weather" || call.visualContext != "" {
		t.Fatalf("unexpected reply call: %+v", call)
	}
	if f.capturer.calls != 0 || f.describer.calls != 0 {
		t.Fatalf("capture path must not run without intent")
	}
	if f.speaker.calls != 1 {
		t.Fatalf("speaker calls = %d, want 1", f.speaker.calls)
	}
	if len(f.journal.records) != 1 || f.journal.records[0].user != "What's the weather" {
		t.Fatalf("unexpected journal: %+v", f.journal.records)
	}
}

func TestScreenshotIntentAddsVisualContext(t *testing.T) {
	f := newFixture()
	f.listener.results = []listenResult{{text: "What's on my screen"}}
	f.router.label = intent.LabelTakeScreenshot

	if err := f.loop().Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if f.capturer.calls != 1 || f.describer.calls != 1 {
		t.Fatalf("capture=%d describe=%d, want 1/1", f.capturer.calls, f.describer.calls)
	}
	if got := f.responder.calls[0].visualContext; got != "a code editor" {
		t.Fatalf("visual context = %q", got)
	}
}

func TestCaptureFailureDegradesToNoVisualContext(t *testing.T) {
	f := newFixture()
	f.listener.results = []listenResult{{text: "What's on my screen"}}
	f.router.label = intent.LabelTakeScreenshot
	f.capturer.err = errors.New("no display")

	if err := f.loop().Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if f.describer.calls != 0 {
		t.Fatalf("describer must not run after capture failure")
	}
	if len(f.responder.calls) != 1 || f.responder.calls[0].visualContext != "" {
		t.Fatalf("exchange must proceed without visual context: %+v", f.responder.calls)
	}
	if len(f.journal.records) != 1 {
		t.Fatalf("exchange must still be journaled")
	}
}

func TestVisionFailureDegradesToNoVisualContext(t *testing.T) {
	f := newFixture()
	f.listener.results = []listenResult{{text: "What's on my screen"}}
	f.router.label = intent.LabelTakeScreenshot
	f.describer.err = errors.New("vision down")

	if err := f.loop().Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(f.responder.calls) != 1 || f.responder.calls[0].visualContext != "" {
		t.Fatalf("exchange must proceed without visual context: %+v", f.responder.calls)
	}
}

func TestUnintelligibleSkipsExchangeEntirely(t *testing.T) {
	f := newFixture()
	f.listener.results = []listenResult{
		{err: listen.ErrUnintelligible},
		{text: "hello"},
	}

	if err := f.loop().Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(f.responder.calls) != 1 {
		t.Fatalf("responder calls = %d, want 1", len(f.responder.calls))
	}
	if len(f.journal.records) != 1 {
		t.Fatalf("journal records = %d, want 1", len(f.journal.records))
	}
}

func TestTranscriptionProviderFailureKeepsLooping(t *testing.T) {
	f := newFixture()
	f.listener.results = []listenResult{
		{err: listen.ErrProviderUnavailable},
		{text: "still here"},
	}

	if err := f.loop().Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(f.journal.records) != 1 || f.journal.records[0].user != "still here" {
		t.Fatalf("unexpected journal: %+v", f.journal.records)
	}
}

func TestChatFailureSkipsExchangeButLoopContinues(t *testing.T) {
	f := newFixture()
	f.listener.results = []listenResult{{text: "first"}, {text: "second"}}
	f.responder.failFirst = true

	if err := f.loop().Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(f.responder.calls) != 2 {
		t.Fatalf("responder calls = %d, want 2", len(f.responder.calls))
	}
	if f.speaker.calls != 1 {
		t.Fatalf("speaker calls = %d, want 1 (failed exchange must not speak)", f.speaker.calls)
	}
	if len(f.journal.records) != 1 || f.journal.records[0].user != "second" {
		t.Fatalf("failed exchange must not be journaled: %+v", f.journal.records)
	}
}

func TestSynthesisFailureStillJournals(t *testing.T) {
	f := newFixture()
	f.listener.results = []listenResult{{text: "speak up"}}
	f.speaker.err = errors.New("no audio device")

	if err := f.loop().Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(f.journal.records) != 1 {
		t.Fatalf("synthesis failure must not lose the record: %+v", f.journal.records)
	}
}

func TestJournalOrderAcrossExchanges(t *testing.T) {
	f := newFixture()
	f.listener.results = []listenResult{{text: "one"}, {text: "two"}}

	if err := f.loop().Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(f.journal.records) != 2 ||
		f.journal.records[0].user != "one" || f.journal.records[1].user != "two" {
		t.Fatalf("records out of order: %+v", f.journal.records)
	}
}

func TestStateProgression(t *testing.T) {
	f := newFixture()
	f.listener.results = []listenResult{{text: "hello"}}
	f.router.label = intent.LabelTakeScreenshot

	if err := f.loop().Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []State{
		StateListening, StateRouting, StateCapturing, StateResponding,
		StateSpeaking, StateLogging,
		StateListening, // next cycle, exhausted
		StateIdle,
	}
	got := f.notifier.states()
	if len(got) != len(want) {
		t.Fatalf("states = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("state %d = %s, want %s (full: %v)", i, got[i], want[i], got)
		}
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	f.listener.results = []listenResult{{text: "hello"}}

	cancel()
	if err := f.loop().Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(f.responder.calls) != 0 {
		t.Fatalf("cancelled run must not start an exchange")
	}
}
