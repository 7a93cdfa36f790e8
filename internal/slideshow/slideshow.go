// Package slideshow sequences catalog images on a timer.
package slideshow

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/starford/albumen/internal/apperr"
	"github.com/starford/albumen/internal/catalog"
	"github.com/starford/albumen/internal/eventloop"
)

const (
	DefaultSpeed = 4 * time.Second
	DefaultTick  = 50 * time.Millisecond
	// MinSpeed is the shortest accepted advance interval.
	MinSpeed = 100 * time.Millisecond
)

// ErrEmpty is returned by Play when there is nothing to show.
var ErrEmpty = errors.New("slideshow: no images to play")

// State is the playback state.
type State string

const (
	Stopped State = "stopped"
	Playing State = "playing"
)

// Frame describes the image currently on screen.
type Frame struct {
	Filename string `json:"filename"`
	Position int    `json:"position"`
	Total    int    `json:"total"`
	ImageURL string `json:"image_url"`
}

// View is a point-in-time copy of the slideshow state.
type View struct {
	State    State         `json:"state"`
	Shuffle  bool          `json:"shuffle"`
	Speed    time.Duration `json:"-"`
	SpeedMS  int64         `json:"speed_ms"`
	Progress float64       `json:"progress"`
	Frame    *Frame        `json:"frame,omitempty"`
}

// Options tune a Slideshow. Zero values select the defaults.
type Options struct {
	Speed time.Duration
	Tick  time.Duration
	// Intn replaces the random source used for shuffling.
	Intn func(int) int
}

// Slideshow cycles through a fixed list of filenames. All state lives on
// its scheduler; exported methods hop onto it with Do and must not be
// called from a task already running there.
type Slideshow struct {
	sched   eventloop.Scheduler
	urls    catalog.URLs
	intn    func(int) int
	onFrame func(Frame)

	items   []string
	order   []int
	pos     int
	state   State
	shuffle bool
	speed   time.Duration
	tick    time.Duration
	ticks   int
	percent float64

	advanceTimer  eventloop.Timer
	progressTimer eventloop.Timer
}

// New builds a stopped slideshow over filenames. onFrame, if non-nil, is
// called on the scheduler each time a frame is shown.
func New(sched eventloop.Scheduler, filenames []string, urls catalog.URLs, opts Options, onFrame func(Frame)) *Slideshow {
	s := &Slideshow{
		sched:   sched,
		urls:    urls,
		intn:    opts.Intn,
		onFrame: onFrame,
		items:   append([]string(nil), filenames...),
		state:   Stopped,
		speed:   opts.Speed,
		tick:    opts.Tick,
	}
	if s.intn == nil {
		s.intn = rand.IntN
	}
	if s.speed <= 0 {
		s.speed = DefaultSpeed
	}
	if s.tick <= 0 {
		s.tick = DefaultTick
	}
	s.resetOrder()
	return s
}

// Play starts playback, showing the current frame immediately. It is a
// no-op when already playing.
func (s *Slideshow) Play() error {
	var err error
	s.sched.Do(func() { err = s.play() })
	return err
}

// Pause stops playback and resets progress.
func (s *Slideshow) Pause() {
	s.sched.Do(s.pause)
}

// Toggle flips between playing and paused.
func (s *Slideshow) Toggle() error {
	var err error
	s.sched.Do(func() {
		if s.state == Playing {
			s.pause()
			return
		}
		err = s.play()
	})
	return err
}

// SetShuffle switches between shuffled and catalog order, restarting from
// the first position.
func (s *Slideshow) SetShuffle(on bool) {
	s.sched.Do(func() {
		s.shuffle = on
		s.resetOrder()
		if s.state == Playing {
			s.stopTimers()
			s.start()
		}
	})
}

// CheckSpeed rejects advance intervals shorter than MinSpeed.
func CheckSpeed(d time.Duration) error {
	if d < MinSpeed {
		return fmt.Errorf("%w: speed must be at least %s", apperr.ErrValidation, MinSpeed)
	}
	return nil
}

// SetSpeed changes the advance interval. A running slideshow restarts its
// timers at the new interval.
func (s *Slideshow) SetSpeed(d time.Duration) error {
	if err := CheckSpeed(d); err != nil {
		return err
	}
	s.sched.Do(func() {
		s.speed = d
		if s.state == Playing {
			s.stopTimers()
			s.start()
		}
	})
	return nil
}

// Snapshot returns the current state.
func (s *Slideshow) Snapshot() View {
	var v View
	s.sched.Do(func() { v = s.view() })
	return v
}

// Close stops all timers and the scheduler if it can be stopped. The
// slideshow may not be restarted afterwards.
func (s *Slideshow) Close() {
	s.sched.Do(func() {
		s.stopTimers()
		s.state = Stopped
		s.items = nil
		s.order = nil
	})
	if c, ok := s.sched.(interface{ Close() }); ok {
		c.Close()
	}
}

func (s *Slideshow) play() error {
	if len(s.order) == 0 {
		return ErrEmpty
	}
	if s.state == Playing {
		return nil
	}
	s.state = Playing
	s.start()
	return nil
}

func (s *Slideshow) pause() {
	s.stopTimers()
	s.state = Stopped
	s.ticks = 0
	s.percent = 0
}

func (s *Slideshow) start() {
	s.show()
	s.advanceTimer = s.sched.Every(s.speed, s.advance)
	s.progressTimer = s.sched.Every(s.tick, s.progress)
}

func (s *Slideshow) stopTimers() {
	if s.advanceTimer != nil {
		s.advanceTimer.Stop()
		s.advanceTimer = nil
	}
	if s.progressTimer != nil {
		s.progressTimer.Stop()
		s.progressTimer = nil
	}
}

func (s *Slideshow) advance() {
	if len(s.order) == 0 {
		return
	}
	s.pos = (s.pos + 1) % len(s.order)
	if s.pos == 0 && s.shuffle {
		Shuffle(s.order, s.intn)
	}
	s.show()
}

func (s *Slideshow) progress() {
	if s.percent >= 100 {
		return
	}
	s.ticks++
	s.percent = min(float64(time.Duration(s.ticks)*s.tick*100)/float64(s.speed), 100)
}

func (s *Slideshow) show() {
	s.ticks = 0
	s.percent = 0
	if s.onFrame != nil {
		if f := s.frame(); f != nil {
			s.onFrame(*f)
		}
	}
}

func (s *Slideshow) resetOrder() {
	s.order = make([]int, len(s.items))
	for i := range s.order {
		s.order[i] = i
	}
	if s.shuffle {
		Shuffle(s.order, s.intn)
	}
	s.pos = 0
}

func (s *Slideshow) frame() *Frame {
	if len(s.order) == 0 {
		return nil
	}
	name := s.items[s.order[s.pos]]
	return &Frame{
		Filename: name,
		Position: s.pos,
		Total:    len(s.order),
		ImageURL: s.urls.Image(name),
	}
}

func (s *Slideshow) view() View {
	return View{
		State:    s.state,
		Shuffle:  s.shuffle,
		Speed:    s.speed,
		SpeedMS:  s.speed.Milliseconds(),
		Progress: s.percent,
		Frame:    s.frame(),
	}
}
