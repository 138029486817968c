package simulator

import (
	"context"
	"sync"
	"time"
)

// Server couples the single-threaded Timeline to the outside world: a tick
// loop that advances race time, an HTTP control surface, and a websocket hub
// pushing snapshots to render sinks. All timeline access is serialised
// through the server's mutex; the engine itself stays lock-free.
type Server struct {
	timeline *Timeline
	config   *ServerConfig
	logger   Logger

	hub  *snapshotHub
	http *HTTP

	cfn context.CancelFunc

	mutex sync.Mutex
	speed float64
}

func NewServer(config *ServerConfig, timeline *Timeline, logger Logger) *Server {
	server := &Server{
		timeline: timeline,
		config:   config,
		logger:   logger,
		hub:      newSnapshotHub(logger),
		speed:    config.Speed(),
	}

	server.http = NewHTTP(config.HTTPPort, server, logger)

	return server
}

// Run starts the hub, the HTTP server and the tick loop, blocking until the
// context is cancelled or Stop is called.
func (s *Server) Run(ctx context.Context) error {
	ctx, cfn := context.WithCancel(ctx)
	s.cfn = cfn

	go s.hub.run(ctx)

	if err := s.http.Listen(); err != nil {
		return err
	}

	s.loop(ctx)

	return s.http.Shutdown()
}

func (s *Server) Stop() {
	if s.cfn != nil {
		s.cfn()
	}
}

func (s *Server) loop(ctx context.Context) {
	tick := time.NewTicker(s.config.TickInterval())
	defer tick.Stop()

	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debugf("Stopping simulation loop")
			return
		case now := <-tick.C:
			dt := now.Sub(last)
			last = now

			s.mutex.Lock()

			if s.timeline.Status() == StatusRunning {
				s.timeline.Advance(time.Duration(float64(dt) * s.speed))
				ticksTotal.Inc()
			}

			snapshot := s.timeline.State()
			cursorSeconds.Set(snapshot.Cursor.Seconds())

			s.mutex.Unlock()

			s.hub.Send(snapshot)
		}
	}
}

func (s *Server) Pause() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.timeline.Pause()
	s.logger.Infof("Simulation paused at %s", s.timeline.Cursor())
}

func (s *Server) Resume() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.timeline.Resume()
	s.logger.Infof("Simulation resumed at %s", s.timeline.Cursor())
}

func (s *Server) SeekLap(lap int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.timeline.Seek(lap)
	seeksTotal.Inc()
}

func (s *Server) SeekTime(target time.Duration) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.timeline.SeekTime(target)
	seeksTotal.Inc()
}

func (s *Server) SetMode(mode DrivingMode) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.timeline.SetMode(mode)
}

func (s *Server) QueuePit(lap int, compound TyreCompound) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := s.timeline.QueuePit(lap, compound); err != nil {
		return err
	}

	pitRequestsTotal.Inc()

	return nil
}

func (s *Server) CancelPit(lap int) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.timeline.CancelPit(lap)
}

func (s *Server) ActivateRain() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.timeline.ActivateRain()
}

func (s *Server) ActivateDrying() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.timeline.ActivateDrying()
}

// SetSpeed changes the wall clock to race time multiplier for the tick loop.
func (s *Server) SetSpeed(speed float64) {
	if speed <= 0 {
		speed = 1.0
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.speed = speed
	s.logger.Infof("Simulation speed set to %.2fx", speed)
}

func (s *Server) Snapshot() RaceState {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.timeline.State()
}

func (s *Server) Timeline() *Timeline {
	return s.timeline
}
