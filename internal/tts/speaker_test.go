package tts

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func listArtifacts(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "prometheus-speech-*"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	return matches
}

func TestSpeakRemovesArtifactOnSuccess(t *testing.T) {
	dir := t.TempDir()
	s := &Speaker{
		dir: dir,
		synth: func(context.Context, string) ([]byte, error) {
			return []byte("mp3-bytes"), nil
		},
		play: func(_ context.Context, path string) error {
			if _, err := os.Stat(path); err != nil {
				t.Fatalf("artifact missing during playback: %v", err)
			}
			return nil
		},
	}

	if err := s.Speak(context.Background(), "hello"); err != nil {
		t.Fatalf("Speak: %v", err)
	}
	if left := listArtifacts(t, dir); len(left) != 0 {
		t.Fatalf("artifacts left behind: %v", left)
	}
}

func TestSpeakRemovesArtifactOnPlaybackFailure(t *testing.T) {
	dir := t.TempDir()
	s := &Speaker{
		dir: dir,
		synth: func(context.Context, string) ([]byte, error) {
			return []byte("mp3-bytes"), nil
		},
		play: func(context.Context, string) error {
			return errors.New("no output device")
		},
	}

	if err := s.Speak(context.Background(), "hello"); err == nil {
		t.Fatalf("expected playback error")
	}
	if left := listArtifacts(t, dir); len(left) != 0 {
		t.Fatalf("artifacts left behind: %v", left)
	}
}

func TestSpeakSynthesisFailureLeavesNoArtifact(t *testing.T) {
	dir := t.TempDir()
	s := &Speaker{
		dir: dir,
		synth: func(context.Context, string) ([]byte, error) {
			return nil, errors.New("provider down")
		},
		play: func(context.Context, string) error {
			t.Fatalf("play must not run when synthesis fails")
			return nil
		},
	}

	if err := s.Speak(context.Background(), "hello"); err == nil {
		t.Fatalf("expected synthesis error")
	}
	if left := listArtifacts(t, dir); len(left) != 0 {
		t.Fatalf("artifacts left behind: %v", left)
	}
}

func TestSpeakEmptyTextIsNoop(t *testing.T) {
	s := &Speaker{
		synth: func(context.Context, string) ([]byte, error) {
			t.Fatalf("synth must not run for empty text")
			return nil, nil
		},
		play: func(context.Context, string) error { return nil },
	}

	if err := s.Speak(context.Background(), ""); err != nil {
		t.Fatalf("Speak: %v", err)
	}
}
