// Package listen adapts audio capture plus transcription into one blocking
// "give me the next utterance as text" call.
package listen

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strings"

	"prometheus/internal/audio"
	"prometheus/pkg/audioconv"
	"prometheus/pkg/stt"
)

// ErrUnintelligible means audio was captured but no text could be decoded
// from it. ErrProviderUnavailable means the device or the transcription
// engine failed. The loop treats both as skip-and-retry, never fatal.
var (
	ErrUnintelligible      = errors.New("could not understand audio")
	ErrProviderUnavailable = errors.New("transcription unavailable")

	// ErrExhausted is returned by scripted sources when no utterances remain;
	// the loop shuts down cleanly on it.
	ErrExhausted = errors.New("no more utterances")
)

// Listener blocks until an utterance boundary and returns its transcript.
type Listener interface {
	Listen(ctx context.Context) (string, error)
}

type recorder interface {
	RecordUtterance(ctx context.Context) ([]float32, error)
}

type transcriber interface {
	TranscribePCM(ctx context.Context, pcm []float32, opt stt.Options) (stt.Result, error)
}

// Mic captures from the microphone and transcribes locally.
type Mic struct {
	rec  recorder
	tr   transcriber
	opts stt.Options
}

func NewMic(rec *audio.Recorder, tr *stt.Transcriber) *Mic {
	return &Mic{
		rec: rec,
		tr:  tr,
		opts: stt.Options{
			Language: "auto",
		},
	}
}

func (m *Mic) Listen(ctx context.Context) (string, error) {
	pcm, err := m.rec.RecordUtterance(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		if errors.Is(err, audio.ErrNoSpeech) {
			return "", ErrUnintelligible
		}
		return "", fmt.Errorf("%w: record: %v", ErrProviderUnavailable, err)
	}

	log.Debug("Recorded utterance", "samples", len(pcm))

	res, err := m.tr.TranscribePCM(ctx, pcm, m.opts)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		return "", fmt.Errorf("%w: transcribe: %v", ErrProviderUnavailable, err)
	}

	text := strings.TrimSpace(res.Text)
	if text == "" {
		return "", ErrUnintelligible
	}

	return text, nil
}

// File plays back a scripted run: each Listen call decodes the next audio
// file and transcribes it. Used for dry runs and integration checks.
type File struct {
	tr     transcriber
	paths  []string
	next   int
	decode func(path string) ([]float32, error)
}

func NewFile(tr *stt.Transcriber, paths []string) *File {
	return &File{tr: tr, paths: paths, decode: audioconv.DecodeFile}
}

func (f *File) Listen(ctx context.Context) (string, error) {
	if f.next >= len(f.paths) {
		return "", ErrExhausted
	}
	path := f.paths[f.next]
	f.next++

	pcm, err := f.decode(path)
	if err != nil {
		return "", fmt.Errorf("%w: decode %s: %v", ErrProviderUnavailable, path, err)
	}
	if len(pcm) == 0 {
		return "", ErrUnintelligible
	}

	res, err := f.tr.TranscribePCM(ctx, pcm, stt.Options{Language: "auto"})
	if err != nil {
		return "", fmt.Errorf("%w: transcribe %s: %v", ErrProviderUnavailable, path, err)
	}

	text := strings.TrimSpace(res.Text)
	if text == "" {
		return "", ErrUnintelligible
	}
	return text, nil
}
