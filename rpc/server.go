package rpc

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"path"
	"strconv"
	"sync"

	"consensusmc/checking"
	"consensusmc/event"
	"consensusmc/explorer"
	"consensusmc/failureManager"
	"consensusmc/metrics"
	"consensusmc/scheduler"
	"consensusmc/simulator"
	"consensusmc/state"
	"consensusmc/stateManager"

	"github.com/golang/protobuf/ptypes/empty"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// The bound on the distinct states of a Check request that does not set maxStates
const DefaultMaxStates = 1000000

var (
	errNoSession = errors.New("rpc: Unknown session")
	errViolated  = errors.New("rpc: The session stopped at a broken property")
)

// A single run driven by a client
type session struct {
	driver *simulator.Driver
	sch    scheduler.RunScheduler
	// The run so far, starting with the initial snapshot
	trace state.Trace
	// The first broken property of the run. Nil if all properties hold
	violation *checking.InvariantViolation
}

// Serves the Driver service.
//
// Every session holds one run. The snapshots of a session are only touched while holding the server lock.
type Server struct {
	mu       sync.Mutex
	sessions map[string]*session
	nextId   int

	metrics    *metrics.Metrics
	grpcServer *grpc.Server
	running    bool
}

// Create a new Server. m records the served requests and may be nil.
func NewServer(m *metrics.Metrics) *Server {
	return &Server{
		sessions: map[string]*session{},
		metrics:  m,
	}
}

// Serve the Driver service on the listener. Blocks until the server is stopped.
func (s *Server) Serve(lis net.Listener) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("rpc: server is already running")
	}
	s.grpcServer = grpc.NewServer(grpc.UnaryInterceptor(s.intercept))
	RegisterDriverServer(s.grpcServer, s)
	s.running = true
	grpcServer := s.grpcServer
	s.mu.Unlock()

	return grpcServer.Serve(lis)
}

// Listen on the address and serve the Driver service. Blocks until the server is stopped.
func (s *Server) Start(address string) error {
	lis, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("rpc: failed to listen on %s: %w", address, err)
	}
	return s.Serve(lis)
}

// Gracefully stop the server and drop all sessions.
func (s *Server) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	grpcServer := s.grpcServer
	s.sessions = map[string]*session{}
	s.metrics.UpdateSessions(0)
	s.mu.Unlock()

	grpcServer.GracefulStop()
}

func (s *Server) intercept(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	resp, err := handler(ctx, req)
	method := path.Base(info.FullMethod)
	code := status.Code(err)
	if err != nil {
		log.Printf("rpc: %v failed: %v", method, err)
	}
	s.metrics.RecordRequest(method, code.String())
	return resp, err
}

// Convert an error to a gRPC status error
func toStatus(err error) error {
	var violation *checking.InvariantViolation
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	case errors.Is(err, errBadRequest),
		errors.Is(err, simulator.ErrConfiguration),
		errors.Is(err, explorer.ErrConfiguration):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, errNoSession):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, simulator.ErrNotEnabled),
		errors.Is(err, simulator.ErrNoEnabledActions),
		errors.Is(err, scheduler.RunEndedError),
		errors.Is(err, errViolated),
		errors.As(err, &violation):
		return status.Error(codes.FailedPrecondition, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

func respond(fields map[string]interface{}) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// Select the named properties. Returns checking.Default() if no names are given.
func selectProperties(names []string) ([]checking.Property, error) {
	if len(names) == 0 {
		return checking.Default(), nil
	}
	known := map[string]checking.Property{}
	for _, prop := range checking.Default() {
		known[prop.Name] = prop
	}
	out := make([]checking.Property, 0, len(names))
	for _, name := range names {
		prop, ok := known[name]
		if !ok {
			return nil, fmt.Errorf("%w: unknown property %q", errBadRequest, name)
		}
		out = append(out, prop)
	}
	return out, nil
}

func decodeProperties(req *structpb.Struct) ([]checking.Property, error) {
	names, err := stringList(req, "properties")
	if err != nil {
		return nil, err
	}
	return selectProperties(names)
}

func decodeScheduler(req *structpb.Struct) (scheduler.GlobalScheduler, error) {
	kind, err := stringField(req, "scheduler", "random")
	if err != nil {
		return nil, err
	}
	switch kind {
	case "random":
		seed, err := intField(req, "seed", 0)
		if err != nil {
			return nil, err
		}
		return scheduler.NewRandom(int64(seed)), nil
	case "first":
		return scheduler.NewFirst(), nil
	}
	return nil, fmt.Errorf("%w: unknown scheduler %q", errBadRequest, kind)
}

// Must be called while holding the server lock
func (s *Server) session(req *structpb.Struct) (*session, string, error) {
	id, err := stringField(req, "session", "")
	if err != nil {
		return nil, "", err
	}
	sess, ok := s.sessions[id]
	if !ok {
		return nil, id, fmt.Errorf("%w: %q", errNoSession, id)
	}
	return sess, id, nil
}

// Append the snapshot to the run and check the properties of the session on it.
func (sess *session) add(gs state.GlobalState) {
	sess.trace = append(sess.trace, gs)
	if sess.violation != nil {
		return
	}
	err := checking.CheckState(sess.driver.Properties(), checking.NewState(sess.trace, false))
	var violation *checking.InvariantViolation
	if errors.As(err, &violation) {
		sess.violation = violation
	}
}

func (sess *session) snapshot(fields map[string]interface{}) map[string]interface{} {
	fields["state"] = encodeSystem(sess.trace.Last())
	fields["steps"] = len(sess.trace) - 1
	if sess.violation != nil {
		fields["violation"] = encodeViolation(sess.violation)
	}
	return fields
}

func (s *Server) Initialize(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sys, err := decodeSystem(req)
	if err != nil {
		return nil, toStatus(err)
	}
	props, err := decodeProperties(req)
	if err != nil {
		return nil, toStatus(err)
	}
	sch, err := decodeScheduler(req)
	if err != nil {
		return nil, toStatus(err)
	}
	rs := sch.GetRunScheduler()
	if err := rs.StartRun(); err != nil {
		return nil, toStatus(err)
	}

	sess := &session{
		driver: simulator.NewDriver(failureManager.NewFailStopManager(), props...),
		sch:    rs,
	}
	sess.add(state.New(sys, state.CreateEventRecord(nil)))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextId++
	id := strconv.Itoa(s.nextId)
	s.sessions[id] = sess
	s.metrics.UpdateSessions(len(s.sessions))
	return respond(sess.snapshot(map[string]interface{}{"session": id}))
}

func (s *Server) Enabled(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, _, err := s.session(req)
	if err != nil {
		return nil, toStatus(err)
	}
	return respond(map[string]interface{}{
		"events": encodeEnabled(sess.driver.Enabled(sess.trace.Last())),
	})
}

func (s *Server) Step(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, _, err := s.session(req)
	if err != nil {
		return nil, toStatus(err)
	}
	if sess.violation != nil {
		return nil, toStatus(errViolated)
	}
	next, evt, err := sess.driver.Step(sess.trace.Last(), sess.sch)
	if err != nil {
		return nil, toStatus(err)
	}
	sess.add(state.New(next, state.CreateEventRecord(evt)))
	return respond(sess.snapshot(map[string]interface{}{"event": string(evt.Id())}))
}

func (s *Server) Apply(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := stringField(req, "event", "")
	if err != nil {
		return nil, toStatus(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, _, err := s.session(req)
	if err != nil {
		return nil, toStatus(err)
	}
	if sess.violation != nil {
		return nil, toStatus(errViolated)
	}
	next, evt, err := sess.driver.Apply(sess.trace.Last(), event.EventId(id))
	if err != nil {
		return nil, toStatus(err)
	}
	sess.add(state.New(next, state.CreateEventRecord(evt)))
	return respond(sess.snapshot(map[string]interface{}{"event": string(evt.Id())}))
}

func (s *Server) Run(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	maxSteps, err := intField(req, "maxSteps", 0)
	if err != nil {
		return nil, toStatus(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, _, err := s.session(req)
	if err != nil {
		return nil, toStatus(err)
	}
	if sess.violation != nil {
		return nil, toStatus(errViolated)
	}

	applied := []interface{}{}
	for steps := 0; maxSteps < 1 || steps < maxSteps; steps++ {
		if err := ctx.Err(); err != nil {
			return nil, status.FromContextError(err).Err()
		}
		next, evt, err := sess.driver.Step(sess.trace.Last(), sess.sch)
		if errors.Is(err, simulator.ErrNoEnabledActions) || errors.Is(err, scheduler.RunEndedError) {
			break
		}
		if err != nil {
			return nil, toStatus(err)
		}
		sess.add(state.New(next, state.CreateEventRecord(evt)))
		applied = append(applied, string(evt.Id()))
		if sess.violation != nil {
			break
		}
	}
	return respond(sess.snapshot(map[string]interface{}{"events": applied}))
}

func (s *Server) Query(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, _, err := s.session(req)
	if err != nil {
		return nil, toStatus(err)
	}
	return respond(sess.snapshot(encodeResult(simulator.Query(sess.trace.Last()))))
}

// Check explores the whole state space of the system described by the request.
// The strategy, maxStates and maxDepth fields bound the search.
// A missing maxStates is DefaultMaxStates, a maxStates below one does not bound the search.
// The search stops when the request is cancelled.
func (s *Server) Check(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sys, err := decodeSystem(req)
	if err != nil {
		return nil, toStatus(err)
	}
	props, err := decodeProperties(req)
	if err != nil {
		return nil, toStatus(err)
	}
	name, err := stringField(req, "strategy", explorer.BreadthFirst.String())
	if err != nil {
		return nil, toStatus(err)
	}
	var strategy explorer.Strategy
	switch name {
	case explorer.BreadthFirst.String():
		strategy = explorer.BreadthFirst
	case explorer.DepthFirst.String():
		strategy = explorer.DepthFirst
	default:
		return nil, toStatus(fmt.Errorf("%w: unknown strategy %q", errBadRequest, name))
	}
	maxStates, err := intField(req, "maxStates", DefaultMaxStates)
	if err != nil {
		return nil, toStatus(err)
	}
	maxDepth, err := intField(req, "maxDepth", 0)
	if err != nil {
		return nil, toStatus(err)
	}

	e := explorer.NewExplorer(stateManager.NewTreeStateManager(), failureManager.NewFailStopManager(), s.metrics, strategy, maxStates, maxDepth, props...)
	report, err := e.ExploreContext(ctx, sys)
	if err != nil {
		return nil, toStatus(err)
	}

	violations := []interface{}{}
	for _, v := range report.Violations {
		violations = append(violations, encodeViolation(v))
	}
	witnesses := map[string]interface{}{}
	for name, trace := range report.Witnesses {
		witnesses[name] = eventIds(trace)
	}
	missing := []interface{}{}
	for _, name := range report.Missing() {
		missing = append(missing, name)
	}
	return respond(map[string]interface{}{
		"ok":          report.Ok(),
		"states":      report.States,
		"transitions": report.Transitions,
		"terminal":    report.Terminal,
		"maxDepth":    report.MaxDepth,
		"truncated":   report.Truncated,
		"stalls":      report.Stalls,
		"violations":  violations,
		"witnesses":   witnesses,
		"missing":     missing,
	})
}

func (s *Server) Close(ctx context.Context, req *structpb.Struct) (*empty.Empty, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, id, err := s.session(req)
	if err != nil {
		return nil, toStatus(err)
	}
	delete(s.sessions, id)
	s.metrics.UpdateSessions(len(s.sessions))
	return &empty.Empty{}, nil
}
