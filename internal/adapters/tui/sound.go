package tui

import (
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
)

const sampleRate = beep.SampleRate(44100)

// Beeper plays a short tone per discovery through the default audio device.
type Beeper struct {
	mu          sync.Mutex
	initialized bool
}

// NewBeeper initialises the speaker. Without an audio device the error is
// returned and the caller should fall back to a silent view.
func NewBeeper() (*Beeper, error) {
	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/10)); err != nil {
		return nil, err
	}
	return &Beeper{initialized: true}, nil
}

// Discovery plays one tone, or a rising pair for a rare place.
func (b *Beeper) Discovery(rare bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.initialized {
		return
	}
	if !rare {
		speaker.Play(tone(660, 80*time.Millisecond))
		return
	}
	speaker.Play(beep.Seq(tone(660, 80*time.Millisecond), tone(990, 120*time.Millisecond)))
}

// Close releases the audio device.
func (b *Beeper) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.initialized {
		speaker.Close()
		b.initialized = false
	}
}

func tone(freq float64, d time.Duration) beep.Streamer {
	sine, err := generators.SineTone(sampleRate, freq)
	if err != nil {
		return beep.Silence(0)
	}
	return beep.Take(sampleRate.N(d), sine)
}
