package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/fitflow/fitflow/internal/camera"
	"github.com/fitflow/fitflow/internal/models"
	"github.com/fitflow/fitflow/internal/stream"
)

// ErrCancelled is returned by Run when the session was abandoned before the
// plan completed. No result is produced.
var ErrCancelled = errors.New("session cancelled")

// StreamConn is an open trainer connection.
type StreamConn interface {
	Close() error
}

// StreamOpener opens one trainer connection per exercise.
type StreamOpener interface {
	Open(exerciseID string, frames stream.FrameSource, h stream.Handler) StreamConn
}

// DialerOpener adapts a *stream.Dialer to StreamOpener.
type DialerOpener struct {
	Dialer *stream.Dialer
}

func (o DialerOpener) Open(exerciseID string, frames stream.FrameSource, h stream.Handler) StreamConn {
	return o.Dialer.Open(exerciseID, frames, h)
}

// Cues are optional audio hooks. Nil fields are skipped.
type Cues struct {
	Rep    func()
	Rest   func()
	Finish func()
}

func fire(f func()) {
	if f != nil {
		f()
	}
}

// Snapshot is what a front-end needs to render the session.
type Snapshot struct {
	State     State           `json:"state"`
	Exercise  models.Exercise `json:"exercise"`
	Target    int             `json:"target"`
	TotalSets int             `json:"total_sets"`
	Count     int             `json:"count"`
	Status    string          `json:"status,omitempty"`
	Frame     string          `json:"-"`
	Calories  float64         `json:"calories"`
	Connected bool            `json:"connected"`
}

// Options configure a Controller.
type Options struct {
	Plan    models.WorkoutPlan
	BMR     float64 // 0 when unknown; no calories accrue
	Camera  camera.Source
	Streams StreamOpener
	Rules   Rules
	SetMode SetMode
	// TickInterval is one "second" of the session clock.
	TickInterval time.Duration
	Cues         Cues
	OnUpdate     func(Snapshot)
	Log          *slog.Logger
	Now          func() time.Time
}

// Controller owns one workout-plan attempt. All state is confined to the Run
// goroutine; the command methods only post to it.
type Controller struct {
	plan    models.WorkoutPlan
	bmr     float64
	source  camera.Source
	streams StreamOpener
	rules   Rules
	mode    SetMode
	tick    time.Duration
	cues    Cues
	update  func(Snapshot)
	log     *slog.Logger
	now     func() time.Time

	inbox chan any
	done  chan struct{}
	ctx   context.Context

	state     State
	cam       camera.Camera
	camGen    int
	conn      StreamConn
	sink      *streamSink
	streamGen int
	connected bool
	live      stream.Feedback
	counts    []int
	calories  float64
	startedAt time.Time
	finished  bool
	cancelled bool
	result    *models.SessionResult
}

// New validates the plan and creates an idle controller.
func New(opts Options) (*Controller, error) {
	if err := opts.Plan.Validate(); err != nil {
		return nil, err
	}
	if opts.Camera == nil {
		return nil, errors.New("session: camera source is required")
	}
	if opts.Streams == nil {
		return nil, errors.New("session: stream opener is required")
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.SetMode == "" {
		opts.SetMode = SetsCollapsed
	}
	return &Controller{
		plan:    opts.Plan,
		bmr:     opts.BMR,
		source:  opts.Camera,
		streams: opts.Streams,
		rules:   opts.Rules.withDefaults(),
		mode:    opts.SetMode,
		tick:    opts.TickInterval,
		cues:    opts.Cues,
		update:  opts.OnUpdate,
		log:     opts.Log.With("plan", opts.Plan.ID),
		now:     opts.Now,
		inbox:   make(chan any, 16),
		done:    make(chan struct{}),
		ctx:     context.Background(),
		state:   InitialState(),
		counts:  make([]int, len(opts.Plan.Exercises)),
	}, nil
}

type command int

const (
	cmdStart command = iota
	cmdPause
	cmdResume
	cmdRetry
	cmdCancel
)

// Start requests the camera and begins the countdown once it is ready.
func (c *Controller) Start() { c.post(cmdStart) }

// Pause suspends the session clock and closes the trainer stream.
func (c *Controller) Pause() { c.post(cmdPause) }

// Resume continues a paused session.
func (c *Controller) Resume() { c.post(cmdResume) }

// Retry re-acquires the camera after an error.
func (c *Controller) Retry() { c.post(cmdRetry) }

// Cancel abandons the session; Run returns ErrCancelled.
func (c *Controller) Cancel() { c.post(cmdCancel) }

func (c *Controller) post(msg any) bool {
	select {
	case c.inbox <- msg:
		return true
	case <-c.done:
		return false
	}
}

// Run drives the session until the plan completes, the session is cancelled,
// or ctx ends. The result is returned exactly once and not retained.
func (c *Controller) Run(ctx context.Context) (*models.SessionResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.ctx = ctx

	defer close(c.done)
	defer c.teardown()

	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case msg := <-c.inbox:
			c.handle(msg)
		case <-ticker.C:
			c.handle(Tick{})
		}
		if c.result != nil {
			res := c.result
			c.result = nil
			return res, nil
		}
		if c.cancelled {
			return nil, ErrCancelled
		}
	}
}

// State returns the current reducer state. Only safe from the Run goroutine
// or after Run has returned.
func (c *Controller) State() State { return c.state }

type (
	cameraResult struct {
		gen int
		cam camera.Camera
		err error
	}
	streamConnected struct{ gen int }
	streamFeedback  struct {
		gen int
		fb  stream.Feedback
	}
	streamLost struct {
		gen     int
		err     error
		retryIn time.Duration
	}
	captureFailed struct {
		gen int
		err error
	}
)

func (c *Controller) handle(msg any) {
	switch m := msg.(type) {
	case command:
		c.handleCommand(m)
	case Tick:
		c.apply(m)
	case cameraResult:
		c.handleCamera(m)
	case streamConnected:
		if m.gen != c.streamGen {
			return
		}
		c.connected = true
		c.apply(StreamRecovered{})
	case streamLost:
		if m.gen != c.streamGen {
			return
		}
		c.connected = false
		c.apply(StreamFailed{Message: fmt.Sprintf("Trainer connection lost, reconnecting in %s", m.retryIn.Round(100*time.Millisecond))})
	case streamFeedback:
		if m.gen != c.streamGen || c.state.Phase != PhaseExercising {
			return
		}
		c.handleFeedback(m.fb)
	case captureFailed:
		if m.gen != c.streamGen {
			return
		}
		if camera.Unavailable(m.err) {
			c.apply(CameraFailed{Message: camera.Describe(m.err)})
			return
		}
		c.log.Debug("frame capture failed", "error", m.err)
	}
}

func (c *Controller) handleCommand(cmd command) {
	switch cmd {
	case cmdStart:
		c.apply(StartRequested{})
	case cmdPause:
		c.apply(PauseRequested{})
	case cmdResume:
		c.apply(ResumeRequested{})
	case cmdRetry:
		c.apply(RetryRequested{})
	case cmdCancel:
		c.cancelled = true
		c.log.Info("session cancelled", "phase", c.state.Phase)
	}
}

func (c *Controller) handleCamera(m cameraResult) {
	if m.gen != c.camGen || c.state.Phase != PhaseStarting {
		if m.cam != nil {
			_ = m.cam.Close()
		}
		return
	}
	if m.err != nil {
		c.log.Warn("camera unavailable", "error", m.err)
		c.apply(CameraFailed{Message: camera.Describe(m.err)})
		return
	}
	c.cam = m.cam
	c.apply(CameraReady{})
}

func (c *Controller) handleFeedback(fb stream.Feedback) {
	// The trainer keeps one counter per process, so a reconnect continues the
	// same count. Lower values are stale and ignored.
	if fb.HasCount && fb.Count > c.live.Count {
		c.live.Count = fb.Count
		if !c.current().Timed() {
			fire(c.cues.Rep)
		}
	}
	if fb.Status != "" {
		c.live.Status = fb.Status
	}
	if fb.Frame != "" {
		c.live.Frame = fb.Frame
	}
	c.publish()
	c.checkTarget()
}

// apply runs the reducer and performs the effects of the transition. The
// stream is closed before a state that leaves exercising is stored.
func (c *Controller) apply(ev Event) {
	prev := c.state
	next := c.rules.Reduce(prev, ev)

	if prev.Phase == PhaseExercising && next.Phase != PhaseExercising {
		c.closeStream()
	}
	c.state = next

	if next.Phase == PhaseStarting && prev.Phase != PhaseStarting {
		c.acquireCamera()
	}
	if next.Phase == PhaseError && prev.Phase != PhaseError {
		c.releaseCamera()
	}
	if next.Phase == PhaseResting && prev.Phase != PhaseResting {
		fire(c.cues.Rest)
	}
	if next.ExerciseIndex != prev.ExerciseIndex || next.SetNumber != prev.SetNumber {
		c.live = stream.Feedback{}
	}
	if _, ok := ev.(Tick); ok && prev.Phase == PhaseExercising && next.Phase == PhaseExercising {
		c.accrue()
	}
	if next.Phase == PhaseExercising && prev.Phase != PhaseExercising {
		if c.startedAt.IsZero() {
			c.startedAt = c.now()
		}
		c.openStream()
	}
	if next.Phase != prev.Phase {
		c.log.Debug("phase", "from", prev.Phase, "to", next.Phase,
			"exercise", next.ExerciseIndex, "set", next.SetNumber)
	}
	c.publish()
}

func (c *Controller) accrue() {
	if c.bmr <= 0 {
		return
	}
	c.calories += c.current().MET * c.bmr / 86400
}

func (c *Controller) current() models.Exercise {
	return c.plan.Exercises[c.state.ExerciseIndex]
}

// checkTarget completes the current set once the live count reaches it.
func (c *Controller) checkTarget() {
	if c.finished || c.state.Phase != PhaseExercising {
		return
	}
	ex := c.current()
	if c.live.Count < c.mode.Target(ex) {
		return
	}
	c.counts[c.state.ExerciseIndex] += c.live.Count

	lastSet := c.state.SetNumber >= c.mode.TotalSets(ex)
	lastExercise := c.state.ExerciseIndex >= len(c.plan.Exercises)-1
	if lastSet && lastExercise {
		c.finish()
		return
	}
	c.apply(SetFinished{LastSet: lastSet, LastExercise: lastExercise})
}

func (c *Controller) finish() {
	c.finished = true
	c.closeStream()
	c.releaseCamera()
	fire(c.cues.Finish)

	res := &models.SessionResult{
		ID:          uuid.New(),
		PlanID:      c.plan.ID,
		PlanName:    c.plan.Name,
		Category:    c.plan.Category,
		DurationSec: c.state.ElapsedSeconds,
		Calories:    int(math.Round(c.calories)),
		StartedAt:   c.startedAt,
		CompletedAt: c.now(),
	}
	for i, ex := range c.plan.Exercises {
		if !ex.Timed() {
			res.Reps += c.counts[i]
		}
		res.Breakdown = append(res.Breakdown, models.BreakdownEntry{
			ID:    ex.ID,
			Name:  ex.Name,
			Value: fmt.Sprintf("%dx%s", c.mode.TotalSets(ex), ex.Unit(c.mode.Target(ex))),
		})
	}
	c.result = res
	c.log.Info("session complete", "reps", res.Reps, "duration_sec", res.DurationSec, "calories", res.Calories)
}

func (c *Controller) acquireCamera() {
	c.camGen++
	gen := c.camGen
	ctx := c.ctx
	go func() {
		cam, err := c.source.Acquire(ctx)
		if !c.post(cameraResult{gen: gen, cam: cam, err: err}) && cam != nil {
			_ = cam.Close()
		}
	}()
}

func (c *Controller) releaseCamera() {
	c.camGen++
	if c.cam != nil {
		_ = c.cam.Close()
		c.cam = nil
	}
}

func (c *Controller) openStream() {
	if c.cam == nil {
		return
	}
	c.streamGen++
	c.sink = &streamSink{c: c, gen: c.streamGen, closed: make(chan struct{})}
	c.conn = c.streams.Open(c.current().ID, c.cam, c.sink)
}

func (c *Controller) closeStream() {
	c.streamGen++
	c.connected = false
	if c.sink != nil {
		close(c.sink.closed)
		c.sink = nil
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			c.log.Warn("closing trainer stream", "error", err)
		}
		c.conn = nil
	}
}

func (c *Controller) teardown() {
	c.closeStream()
	c.releaseCamera()
}

func (c *Controller) publish() {
	if c.update == nil {
		return
	}
	ex := c.current()
	c.update(Snapshot{
		State:     c.state,
		Exercise:  ex,
		Target:    c.mode.Target(ex),
		TotalSets: c.mode.TotalSets(ex),
		Count:     c.live.Count,
		Status:    c.live.Status,
		Frame:     c.live.Frame,
		Calories:  c.calories,
		Connected: c.connected,
	})
}

// streamSink forwards stream callbacks into the controller loop, tagged with
// the generation they belong to. Once closed it drops everything so a
// connection shutting down never blocks on the loop.
type streamSink struct {
	c      *Controller
	gen    int
	closed chan struct{}
}

func (s *streamSink) send(msg any) {
	select {
	case s.c.inbox <- msg:
	case <-s.closed:
	case <-s.c.done:
	}
}

func (s *streamSink) Connected(string) { s.send(streamConnected{gen: s.gen}) }

func (s *streamSink) Feedback(fb stream.Feedback) { s.send(streamFeedback{gen: s.gen, fb: fb}) }

func (s *streamSink) Disconnected(err error, retryIn time.Duration) {
	s.send(streamLost{gen: s.gen, err: err, retryIn: retryIn})
}

func (s *streamSink) CaptureFailed(err error) { s.send(captureFailed{gen: s.gen, err: err}) }
