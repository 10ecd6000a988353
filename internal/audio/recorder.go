package audio

import (
	"context"
	"errors"
	log "log/slog"
	"math"
	"time"

	"github.com/gordonklaus/portaudio"
)

const (
	SampleRate = 16000

	frameSize        = 320 // 20ms
	frameMillis      = 20
	baseThreshRMS    = 0.015
	ambientFactor    = 2.5
	calibrateSeconds = 1
	silenceDuration  = 600 * time.Millisecond
	maxUtteranceSecs = 12
)

// ErrNoSpeech is returned when the utterance window closed without any frame
// crossing the speech threshold.
var ErrNoSpeech = errors.New("no speech detected")

// Recorder captures mono 16 kHz float32 PCM from the default input device.
type Recorder struct {
	thresholdRMS float64
}

func NewRecorder() *Recorder { return &Recorder{thresholdRMS: baseThreshRMS} }

func (r *Recorder) Init() error {
	return portaudio.Initialize()
}

func (r *Recorder) Close() {
	portaudio.Terminate()
}

// Calibrate samples ambient noise for about a second and raises the speech
// threshold above it, so a noisy room does not read as speech.
func (r *Recorder) Calibrate() error {
	buf := make([]float32, frameSize)

	stream, err := portaudio.OpenDefaultStream(1, 0, SampleRate, len(buf), buf)
	if err != nil {
		return err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return err
	}
	defer stream.Stop()

	var (
		sum    float64
		frames int
	)
	for i := 0; i < calibrateSeconds*SampleRate/frameSize; i++ {
		if err := stream.Read(); err != nil {
			return err
		}
		sum += frameRMS(buf)
		frames++
	}

	ambient := sum / float64(frames)
	r.thresholdRMS = math.Max(baseThreshRMS, ambient*ambientFactor)

	log.Debug("Calibrated ambient noise", "ambient_rms", ambient, "threshold_rms", r.thresholdRMS)
	return nil
}

// RecordUtterance blocks until a full utterance is captured: it waits for
// speech, then stops after silenceDuration of quiet or at the max length.
func (r *Recorder) RecordUtterance(ctx context.Context) ([]float32, error) {
	buf := make([]float32, frameSize)
	out := make([]float32, 0, SampleRate*3)

	stream, err := portaudio.OpenDefaultStream(1, 0, SampleRate, len(buf), buf)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, err
	}
	defer stream.Stop()

	var (
		speaking      bool
		silenceFrames int
	)

	maxFrames := maxUtteranceSecs * SampleRate / frameSize

	for i := 0; i < maxFrames; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if err := stream.Read(); err != nil {
			return nil, err
		}

		if frameRMS(buf) > r.thresholdRMS {
			speaking = true
			silenceFrames = 0
			out = append(out, buf...)
			continue
		}

		if speaking {
			silenceFrames++
			if time.Duration(silenceFrames*frameMillis)*time.Millisecond >= silenceDuration {
				break
			}
			out = append(out, buf...)
		}
	}

	if !speaking {
		return nil, ErrNoSpeech
	}

	return out, nil
}

func frameRMS(f []float32) float64 {
	var s float64
	for _, x := range f {
		s += float64(x * x)
	}
	return math.Sqrt(s / float64(len(f)))
}
