// Package tts synthesizes replies to a temporary audio artifact, plays it to
// completion, and guarantees the artifact is deleted on every exit path.
package tts

import (
	"context"
	"fmt"
	"io"
	log "log/slog"
	"os"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	openai "github.com/openai/openai-go/v3"
)

// Speaker converts text to speech and plays it back, blocking until playback
// finishes. The synth and play seams exist so failures can be exercised in
// tests without a sound card.
type Speaker struct {
	synth func(ctx context.Context, text string) ([]byte, error)
	play  func(ctx context.Context, path string) error
	dir   string // "" = system temp dir
}

func NewSpeaker(client openai.Client, model, voice string) *Speaker {
	return &Speaker{
		synth: func(ctx context.Context, text string) ([]byte, error) {
			return synthesize(ctx, client, model, voice, text)
		},
		play: playMP3,
	}
}

// Speak synthesizes text into a temp mp3, plays it, and removes the file
// whether synthesis or playback succeeded or not.
func (s *Speaker) Speak(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}

	data, err := s.synth(ctx, text)
	if err != nil {
		return fmt.Errorf("synthesize: %w", err)
	}

	f, err := os.CreateTemp(s.dir, "prometheus-speech-*.mp3")
	if err != nil {
		return fmt.Errorf("create temp audio: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write temp audio: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp audio: %w", err)
	}

	if err := s.play(ctx, path); err != nil {
		return fmt.Errorf("playback: %w", err)
	}

	log.Debug("Spoke reply", "bytes", len(data))
	return nil
}

func synthesize(ctx context.Context, client openai.Client, model, voice, text string) ([]byte, error) {
	res, err := client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model:          openai.SpeechModel(model),
		Voice:          openai.AudioSpeechNewParamsVoice(voice),
		Input:          text,
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read audio body: %w", err)
	}
	return data, nil
}

func playMP3(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}

	streamer, format, err := mp3.Decode(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("decode mp3: %w", err)
	}
	defer streamer.Close()

	if err := speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10)); err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(streamer, beep.Callback(func() {
		close(done)
	})))

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		speaker.Clear()
		return ctx.Err()
	}
}
