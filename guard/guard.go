package guard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rickchristie/loopguard"
	"github.com/rickchristie/loopguard/events"
	"github.com/rickchristie/loopguard/internal/buffer"
	"github.com/rickchristie/loopguard/repetition"
	"github.com/tmc/langchaingo/llms"
)

// ErrLoopDetected is matched (via errors.Is) by every error a Guard returns because
// of a detected loop.
var ErrLoopDetected = errors.New("loop detected")

// LoopDetectedError is returned when a fed event crossed a repetition threshold.
type LoopDetectedError struct {
	Detection loopguard.Detection
	TurnID    string
}

func (e *LoopDetectedError) Error() string {
	switch e.Detection.Kind {
	case loopguard.DetectionToolCall:
		return fmt.Sprintf("loop detected: tool %q called %d times with identical arguments",
			e.Detection.ToolName, e.Detection.Count)
	case loopguard.DetectionContent:
		return fmt.Sprintf("loop detected: sentence %q repeated %d times",
			e.Detection.Sentence, e.Detection.Count)
	default:
		return ErrLoopDetected.Error()
	}
}

// Is reports whether target is ErrLoopDetected.
func (e *LoopDetectedError) Is(target error) bool {
	return target == ErrLoopDetected
}

// Guard consumes a live generation stream and stops it when the agent loops.
//
// Guard owns a repetition.Engine and turns its boolean decision into an error that
// aborts the generation: LangChainGo stops streaming when the streaming function
// returns an error, and Consume returns it to its caller.
//
// Once a loop is detected the Guard is tripped: every later Feed returns the same error
// without analyzing anything, until Reset.
//
// Guard is meant to be driven by one goroutine. Only Detections may be read
// concurrently.
type Guard struct {
	engine     *repetition.Engine
	events     *events.Registry
	name       string
	turnID     string
	tripped    *LoopDetectedError

	// mu guards the detection queue, which is started by the first Detections call.
	// Until then detections are kept in backlog.
	mu         sync.Mutex
	closed     bool
	backlog    []loopguard.Detection
	detections *buffer.Unbounded[loopguard.Detection]
}

// Option configures a Guard.
type Option func(*Guard)

// WithEvents publishes LoopDetectedEvent and ResetEvent to the registry.
func WithEvents(registry *events.Registry) Option {
	return func(g *Guard) { g.events = registry }
}

// WithName sets the name reported in published events.
func WithName(name string) Option {
	return func(g *Guard) { g.name = name }
}

// New creates a Guard. Call Close when done to release the detection queue.
func New(cfg loopguard.Config, opts ...Option) *Guard {
	g := &Guard{
		engine: repetition.New(cfg),
		turnID: uuid.NewString(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Feed observes one generation event. It returns a *LoopDetectedError when the event
// crossed a threshold, or when the Guard was already tripped.
func (g *Guard) Feed(event loopguard.GenerationEvent) error {
	if g.tripped != nil {
		return g.tripped
	}

	detection := g.engine.Observe(event)
	if !detection.Detected {
		return nil
	}

	g.tripped = &LoopDetectedError{Detection: detection, TurnID: g.turnID}
	g.publish(detection)
	g.events.Dispatch(&loopguard.LoopDetectedEvent{
		Source:    loopguard.SourceStream,
		Name:      g.name,
		TurnID:    g.turnID,
		Detection: detection,
	})
	return g.tripped
}

// FeedToolCalls feeds LangChainGo tool calls in order, stopping at the first loop.
func (g *Guard) FeedToolCalls(calls []llms.ToolCall) error {
	for _, tc := range calls {
		if err := g.Feed(loopguard.ToolCallFromLangChain(tc)); err != nil {
			return err
		}
	}
	return nil
}

// FeedResponse feeds the tool calls of every choice of a LangChainGo response.
// Content is not fed: with streaming enabled it was already seen chunk by chunk.
func (g *Guard) FeedResponse(resp *llms.ContentResponse) error {
	if resp == nil {
		return nil
	}
	for _, choice := range resp.Choices {
		if choice == nil {
			continue
		}
		if err := g.FeedToolCalls(choice.ToolCalls); err != nil {
			return err
		}
	}
	return nil
}

// StreamingFunc returns a LangChainGo streaming function that feeds every chunk as a
// content delta. Returning the loop error makes LangChainGo abort the generation.
func (g *Guard) StreamingFunc() func(ctx context.Context, chunk []byte) error {
	return func(_ context.Context, chunk []byte) error {
		return g.Feed(loopguard.ContentDelta{Text: string(chunk)})
	}
}

// CallOption returns StreamingFunc wrapped as a call option:
//
//	resp, err := llm.GenerateContent(ctx, messages, g.CallOption())
//	if errors.Is(err, guard.ErrLoopDetected) {
//	    // generation was aborted
//	}
func (g *Guard) CallOption() llms.CallOption {
	return llms.WithStreamingFunc(g.StreamingFunc())
}

// Consume reads chunks until the channel is closed and feeds them to the engine.
//
// It returns nil when the channel is closed, ctx.Err() when the context is done, the
// chunk's error when a chunk carries one, or a *LoopDetectedError.
func (g *Guard) Consume(ctx context.Context, chunks <-chan loopguard.StreamChunk) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case chunk, ok := <-chunks:
			if !ok {
				return nil
			}
			for _, ev := range chunk.Events() {
				if se, isErr := ev.(loopguard.StreamError); isErr {
					return se.Err
				}
				if err := g.Feed(ev); err != nil {
					return err
				}
			}
		}
	}
}

// Reset clears detection state and untrips the Guard. Call it when a new, unrelated
// turn begins.
func (g *Guard) Reset() {
	g.engine.Reset()
	g.tripped = nil

	previous := g.turnID
	g.turnID = uuid.NewString()
	g.events.Dispatch(&loopguard.ResetEvent{
		Source:         loopguard.SourceStream,
		Name:           g.name,
		PreviousTurnID: previous,
		TurnID:         g.turnID,
	})
}

// OnTurnState resets the Guard when the turn becomes idle.
func (g *Guard) OnTurnState(state loopguard.TurnState) {
	if state == loopguard.TurnIdle {
		g.Reset()
	}
}

// Tripped returns the error that tripped the Guard, or nil.
func (g *Guard) Tripped() error {
	if g.tripped == nil {
		return nil
	}
	return g.tripped
}

// TurnID returns the identifier of the current turn.
func (g *Guard) TurnID() string {
	return g.turnID
}

// Engine returns the underlying engine, for inspection.
func (g *Guard) Engine() *repetition.Engine {
	return g.engine
}

func (g *Guard) publish(d loopguard.Detection) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.detections != nil {
		g.detections.Send(d)
		return
	}
	if !g.closed {
		g.backlog = append(g.backlog, d)
	}
}

// Detections returns a channel receiving every detection, in order, including those
// made before the first call. Sends never block the Guard, so a slow reader does not
// slow down generation.
//
// The delivery goroutine starts on the first call and exits once the channel is read
// until closed. A Guard whose Detections is never called starts no goroutine.
func (g *Guard) Detections() <-chan loopguard.Detection {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.detections == nil {
		g.detections = buffer.NewUnbounded[loopguard.Detection]()
		for _, d := range g.backlog {
			g.detections.Send(d)
		}
		g.backlog = nil
		if g.closed {
			g.detections.Close()
		}
	}
	return g.detections.Receive()
}

// Close closes the Detections channel after pending detections are delivered.
// Detections made after Close are not delivered.
func (g *Guard) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	if g.detections != nil {
		g.detections.Close()
	}
}

var _ loopguard.TurnObserver = (*Guard)(nil)
