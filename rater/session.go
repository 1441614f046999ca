package rater

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrBusy is returned when a vote, undo or refresh is requested while
	// another round-trip is still in flight.
	ErrBusy = errors.New("operation in flight")

	// ErrNoPair is returned when a vote is requested while no pair is displayed.
	ErrNoPair = errors.New("no pair displayed")

	// ErrNoHistory is returned when an undo is requested with empty history.
	ErrNoHistory = errors.New("no vote to undo")

	sessionClosed = errors.New("session closed")

	tracer = otel.Tracer("rater")
)

// Side identifies one of the two displayed images.
type Side int

const (
	Left Side = iota
	Right
)

// Phase is the observable state of the session state machine.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseReady   Phase = "ready"
	PhaseVoting  Phase = "voting"
	PhaseUndoing Phase = "undoing"
)

// API is the remote rating service surface consumed by a Session.
type API interface {
	NextPair(ctx context.Context) (Pair, error)
	Vote(ctx context.Context, winner, loser string) error
	Undo(ctx context.Context) error
}

// Snapshot is a copy of the session state for display. Pair is nil before
// the first load and after a failed one; LoadFailed tells the frontend to
// show the error placeholder in both image slots.
type Snapshot struct {
	Phase       Phase `json:"phase"`
	Pair        *Pair `json:"pair,omitempty"`
	LoadFailed  bool  `json:"load_failed"`
	Votes       int   `json:"votes"`
	HistoryLen  int   `json:"history_len"`
	Busy        bool  `json:"busy"`
	UndoEnabled bool  `json:"undo_enabled"`
}

type cmdKind int

const (
	cmdVote cmdKind = iota
	cmdUndo
	cmdRefresh
)

type command struct {
	kind cmdKind
	side Side
	resp chan error
}

// result carries the outcome of an in-flight round-trip back into the loop.
// For votes, opErr is the vote acknowledgment and fetchErr the dependent
// pair fetch; for fetch and undo only opErr is set.
type result struct {
	op       cmdKind
	pair     Pair
	opErr    error
	fetchErr error
}

// voteStage is the provisional local effect of a vote: the pre-vote pair
// goes to history and the counter advances before the server acknowledges.
// A negative acknowledgment reverts exactly this effect.
type voteStage struct {
	prev Pair
}

func (v voteStage) apply(st *sessionState) {
	st.history = append(st.history, v.prev)
	st.votes++
}

func (v voteStage) revert(st *sessionState) {
	st.history = st.history[:len(st.history)-1]
	st.votes--
}

// sessionState is owned by the session loop goroutine. All reads and
// mutations happen there, so checking and setting the busy gate is a
// single step relative to incoming commands.
type sessionState struct {
	pair    *Pair
	failed  bool
	votes   int
	history []Pair
}

// Session is the vote orchestration state machine. A single loop goroutine
// owns all state; public methods submit commands over channels and at most
// one rating service round-trip is in flight at any time. The busy gate is
// held from command acceptance until the round-trip and any dependent
// re-fetch have settled.
type Session struct {
	ctx    context.Context
	cancel context.CancelCauseFunc

	api API
	pre Preloader

	timeout      time.Duration
	initialVotes int

	cmds    chan command
	results chan result
	snaps   chan chan Snapshot

	logger *log.Logger
}

type Option func(*Session)

// WithLogger sets the diagnostic logger. Failures are surfaced here and
// never crash the session.
func WithLogger(logger *log.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithTimeout bounds every rating service round-trip. Without a bound a
// stalled request would hold the busy gate forever.
func WithTimeout(timeout time.Duration) Option {
	return func(s *Session) {
		s.timeout = timeout
	}
}

// WithInitialVotes seeds the vote counter with a server-derived total.
func WithInitialVotes(votes int) Option {
	return func(s *Session) {
		s.initialVotes = votes
	}
}

// NewSession starts a session against the given rating service. The first
// pair fetch begins immediately. A nil preloader disables image
// preloading. Close releases the loop goroutine and cancels any in-flight
// round-trip.
func NewSession(ctx context.Context, api API, pre Preloader, opts ...Option) (*Session, error) {
	if api == nil {
		return nil, fmt.Errorf("api must be defined")
	}

	s := &Session{
		api:     api,
		pre:     pre,
		timeout: 10 * time.Second,
		cmds:    make(chan command),
		results: make(chan result, 1),
		snaps:   make(chan chan Snapshot),
		logger:  log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive")
	}
	if s.initialVotes < 0 {
		return nil, fmt.Errorf("initial votes < 0")
	}

	s.ctx, s.cancel = context.WithCancelCause(ctx)

	go func() {
		err := s.loop()
		s.logger.Printf("Session terminated: %v", err)
	}()

	return s, nil
}

// Vote submits a decision for the given side of the currently displayed
// pair and blocks until the vote and the dependent re-fetch settle.
// Returns ErrBusy while another round-trip is in flight and ErrNoPair if
// nothing is displayed. A returned error of kind KindFetchFailure means
// the vote itself was confirmed but the next pair could not be loaded.
func (s *Session) Vote(ctx context.Context, side Side) error {
	return s.submit(ctx, command{kind: cmdVote, side: side, resp: make(chan error, 1)})
}

// Undo requests reversal of the most recent vote and blocks until it
// settles. Returns ErrBusy while a round-trip is in flight and
// ErrNoHistory when there is nothing to undo.
func (s *Session) Undo(ctx context.Context) error {
	return s.submit(ctx, command{kind: cmdUndo, resp: make(chan error, 1)})
}

// Refresh fetches a new pair, replacing the displayed one. It is the
// manual retry path after a load failure.
func (s *Session) Refresh(ctx context.Context) error {
	return s.submit(ctx, command{kind: cmdRefresh, resp: make(chan error, 1)})
}

// Snapshot returns a copy of the current session state.
func (s *Session) Snapshot(ctx context.Context) (Snapshot, error) {
	respChan := make(chan Snapshot, 1)

	select {
	case <-s.ctx.Done():
		return Snapshot{}, context.Cause(s.ctx)
	case <-ctx.Done():
		return Snapshot{}, context.Cause(ctx)
	case s.snaps <- respChan:
	}

	select {
	case <-s.ctx.Done():
		return Snapshot{}, context.Cause(s.ctx)
	case snap := <-respChan:
		return snap, nil
	}
}

// Close terminates the session loop and cancels in-flight round-trips.
func (s *Session) Close() {
	s.cancel(sessionClosed)
}

func (s *Session) submit(ctx context.Context, cmd command) error {
	select {
	case <-s.ctx.Done():
		return context.Cause(s.ctx)
	case <-ctx.Done():
		return context.Cause(ctx)
	case s.cmds <- cmd:
	}

	select {
	case <-s.ctx.Done():
		return context.Cause(s.ctx)
	case err := <-cmd.resp:
		return err
	}
}

// loop is the single-writer core. Commands are rejected, not queued, while
// a round-trip is outstanding, so the observed vote order always matches
// the user confirmation order and no two calls ever overlap.
func (s *Session) loop() error {
	st := &sessionState{votes: s.initialVotes}

	var busy bool
	var inFlight cmdKind
	var pending chan error
	var staged *voteStage

	// Startup transition: fetch the first pair right away.
	busy = true
	inFlight = cmdRefresh
	s.startFetch()

	for {
		select {
		case <-s.ctx.Done():
			return context.Cause(s.ctx)

		case cmd := <-s.cmds:
			if busy {
				cmd.resp <- ErrBusy
				continue
			}

			switch cmd.kind {
			case cmdVote:
				if st.pair == nil {
					cmd.resp <- ErrNoPair
					continue
				}
				// Winner and loser are taken from the pair displayed at
				// acceptance time; the displayed pair changes asynchronously
				// afterwards.
				winner, loser := st.pair.pick(cmd.side)
				staged = &voteStage{prev: *st.pair}
				staged.apply(st)
				s.startVote(winner, loser)
			case cmdUndo:
				if len(st.history) == 0 {
					cmd.resp <- ErrNoHistory
					continue
				}
				s.startUndo()
			case cmdRefresh:
				s.startFetch()
			}

			busy = true
			inFlight = cmd.kind
			pending = cmd.resp

		case res := <-s.results:
			switch res.op {
			case cmdRefresh:
				s.applyFetch(st, res.opErr, res.pair)

			case cmdVote:
				if res.opErr != nil {
					// Rejected or lost in transport: revert the optimistic
					// history push, keep the displayed pair for a retry.
					staged.revert(st)
					staged = nil
					res.fetchErr = res.opErr
				} else {
					// Confirmed. The pre-vote pair stays in history and the
					// next pair replaces the retired one.
					staged = nil
					s.applyFetch(st, res.fetchErr, res.pair)
				}

			case cmdUndo:
				if res.opErr == nil {
					last := st.history[len(st.history)-1]
					st.history = st.history[:len(st.history)-1]
					st.votes--
					// Restore without re-fetch; the pair was displayed before.
					st.pair = &last
					st.failed = false
				}
			}

			busy = false
			if pending != nil {
				if res.op == cmdVote {
					pending <- res.fetchErr
				} else {
					pending <- res.opErr
				}
				pending = nil
			}

		case respChan := <-s.snaps:
			respChan <- snapshotOf(st, busy, inFlight)
		}
	}
}

// applyFetch publishes a fetched pair atomically, or replaces both image
// slots with the error placeholder. A failed load is terminal until the
// next refresh, vote or undo; no automatic retry happens.
func (s *Session) applyFetch(st *sessionState, err error, pair Pair) {
	if err != nil {
		st.pair = nil
		st.failed = true
		return
	}
	st.pair = &pair
	st.failed = false
}

func snapshotOf(st *sessionState, busy bool, inFlight cmdKind) Snapshot {
	snap := Snapshot{
		Phase:       phaseOf(st, busy, inFlight),
		LoadFailed:  st.failed,
		Votes:       st.votes,
		HistoryLen:  len(st.history),
		Busy:        busy,
		UndoEnabled: len(st.history) > 0 && !busy,
	}
	if st.pair != nil {
		pair := *st.pair
		snap.Pair = &pair
	}
	return snap
}

func phaseOf(st *sessionState, busy bool, inFlight cmdKind) Phase {
	if busy {
		switch inFlight {
		case cmdVote:
			return PhaseVoting
		case cmdUndo:
			return PhaseUndoing
		default:
			return PhaseLoading
		}
	}
	if st.pair != nil {
		return PhaseReady
	}
	if st.failed {
		return PhaseLoading
	}
	return PhaseIdle
}

func (p Pair) pick(side Side) (winner, loser string) {
	if side == Left {
		return p.ImageA.Name, p.ImageB.Name
	}
	return p.ImageB.Name, p.ImageA.Name
}

// startFetch requests and preloads the next pair off the loop goroutine.
func (s *Session) startFetch() {
	go func() {
		ctx, span := tracer.Start(s.ctx, "load_pair", trace.WithNewRoot())
		defer span.End()

		pair, err := s.fetchPair(ctx)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		s.deliver(result{op: cmdRefresh, pair: pair, opErr: err})
	}()
}

// startVote submits the vote and, only on confirmation, fetches the next
// pair within the same busy window. Releasing the gate between the two
// would let a second vote target a pair that is already retired.
func (s *Session) startVote(winner, loser string) {
	go func() {
		ctx, span := tracer.Start(s.ctx, "vote_round_trip", trace.WithNewRoot(),
			trace.WithAttributes(
				attribute.String("winner", winner),
				attribute.String("loser", loser),
			))
		defer span.End()

		res := result{op: cmdVote}

		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		start := time.Now()
		res.opErr = s.api.Vote(callCtx, winner, loser)
		cancel()
		observeOp("vote", time.Since(start), res.opErr == nil)

		if res.opErr != nil {
			span.SetStatus(codes.Error, res.opErr.Error())
			s.logger.Printf("Vote failed, rolling back: %v", res.opErr)
			s.deliver(res)
			return
		}

		span.AddEvent("vote confirmed")
		res.pair, res.fetchErr = s.fetchPair(ctx)
		if res.fetchErr != nil {
			span.SetStatus(codes.Error, res.fetchErr.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		s.deliver(res)
	}()
}

func (s *Session) startUndo() {
	go func() {
		ctx, span := tracer.Start(s.ctx, "undo_round_trip", trace.WithNewRoot())
		defer span.End()

		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		start := time.Now()
		err := s.api.Undo(callCtx)
		cancel()
		observeOp("undo", time.Since(start), err == nil)

		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			s.logger.Printf("Undo failed, history kept: %v", err)
		} else {
			span.SetStatus(codes.Ok, "")
		}
		s.deliver(result{op: cmdUndo, opErr: err})
	}()
}

// fetchPair retrieves the next pair and preloads both images so the
// displayed pair swaps atomically or not at all.
func (s *Session) fetchPair(ctx context.Context) (Pair, error) {
	ctx, span := tracer.Start(ctx, "fetch_pair")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	pair, err := s.api.NextPair(ctx)
	if err == nil && s.pre != nil {
		err = preloadPair(ctx, s.pre, pair)
	}
	observeOp("fetch", time.Since(start), err == nil)

	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.logger.Printf("Pair fetch failed: %v", err)
		return Pair{}, err
	}

	span.AddEvent("pair ready", trace.WithAttributes(
		attribute.String("image_a", pair.ImageA.Name),
		attribute.String("image_b", pair.ImageB.Name),
	))
	span.SetStatus(codes.Ok, "")
	return pair, nil
}

func (s *Session) deliver(res result) {
	select {
	case s.results <- res:
	case <-s.ctx.Done():
	}
}
