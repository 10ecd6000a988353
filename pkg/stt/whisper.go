package stt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

type Options struct {
	Language      string // e.g. "auto", "en", "ru"
	TranslateToEn bool   // if true, translate non-EN -> EN
	Threads       int    // <=0 => NumCPU()
	InitialPrompt string // optional prefix prompt
}

type Result struct {
	Text     string
	Language string // detected or forced
}

// Transcriber wraps a loaded whisper.cpp model. One model, many contexts.
type Transcriber struct {
	model whisper.Model // interface, not pointer
}

func NewTranscriber(modelPath string) (*Transcriber, error) {
	if modelPath == "" {
		return nil, errors.New("empty model path")
	}
	m, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	return &Transcriber{model: m}, nil
}

func (t *Transcriber) Close() error {
	if t.model == nil {
		return nil
	}
	return t.model.Close()
}

// TranscribePCM transcribes mono 16 kHz float32 samples in [-1, 1].
func (t *Transcriber) TranscribePCM(ctx context.Context, pcm16k []float32, opt Options) (Result, error) {
	if t.model == nil {
		return Result{}, errors.New("nil model")
	}
	if len(pcm16k) == 0 {
		return Result{}, errors.New("no audio samples provided")
	}

	wctx, err := t.model.NewContext()
	if err != nil {
		return Result{}, fmt.Errorf("new context: %w", err)
	}

	if opt.Language == "" {
		opt.Language = "auto"
	}
	if err := wctx.SetLanguage(opt.Language); err != nil {
		return Result{}, fmt.Errorf("set language: %w", err)
	}
	wctx.SetTranslate(opt.TranslateToEn)

	threads := opt.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	wctx.SetThreads(uint(threads))

	if opt.InitialPrompt != "" {
		wctx.SetInitialPrompt(opt.InitialPrompt)
	}

	if err := wctx.Process(pcm16k, nil, nil, nil); err != nil {
		return Result{}, fmt.Errorf("process: %w", err)
	}

	var parts []string
	for {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		default:
		}

		s, err := wctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Result{}, fmt.Errorf("next segment: %w", err)
		}
		parts = append(parts, s.Text)
	}

	lang := wctx.DetectedLanguage()
	if lang == "" {
		lang = wctx.Language()
	}

	return Result{
		Text:     strings.TrimSpace(strings.Join(parts, " ")),
		Language: lang,
	}, nil
}
