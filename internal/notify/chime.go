package notify

import (
	log "log/slog"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/generators"
	"github.com/faiface/beep/speaker"
)

const (
	chimeRate = beep.SampleRate(44100)
	chimeFreq = 880.0
	chimeLen  = 120 * time.Millisecond
)

// Chime plays a short tone so the user knows the assistant is listening.
// Best effort: a missing output device must not block the loop.
func Chime() {
	tone, err := generators.SineTone(chimeRate, chimeFreq)
	if err != nil {
		log.Warn("Chime tone unavailable", "err", err)
		return
	}

	if err := speaker.Init(chimeRate, chimeRate.N(time.Second/10)); err != nil {
		log.Warn("Chime speaker unavailable", "err", err)
		return
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(beep.Take(chimeRate.N(chimeLen), tone), beep.Callback(func() {
		close(done)
	})))
	<-done
}
