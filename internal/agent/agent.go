package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/mahakaal/internal/conversation"
	"github.com/teemow/mahakaal/internal/events"
	"github.com/teemow/mahakaal/internal/instrumentation"
	"github.com/teemow/mahakaal/internal/llm"
	"github.com/teemow/mahakaal/internal/logging"
	"github.com/teemow/mahakaal/internal/tools"
)

// Event texts.
const (
	statusThinking     = "Thinking..."
	assistantToolCall  = "Assistant tool call"
	toolResultAppended = "Tool result"
)

// Dispatcher publishes tool definitions and executes tool calls. Dispatch
// must encode every failure in the returned string.
type Dispatcher interface {
	Definitions() []mcp.Tool
	Dispatch(ctx context.Context, name string, args map[string]any) string
}

// Agent runs the orchestration loop. It holds no per-request state and is
// safe for concurrent use.
type Agent struct {
	model             llm.Client
	registry          Dispatcher
	systemPrompt      string
	maxRounds         int
	maxIdenticalCalls int
	session           int64
	logger            *slog.Logger
	metrics           *instrumentation.Metrics
}

// New creates an Agent with the given model and tool registry.
func New(model llm.Client, registry Dispatcher, opts ...Option) *Agent {
	a := &Agent{
		model:             model,
		registry:          registry,
		systemPrompt:      DefaultSystemPrompt,
		maxRounds:         DefaultMaxRounds,
		maxIdenticalCalls: DefaultMaxIdenticalCalls,
		logger:            slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ForSession returns a copy of the agent that tags tool invocations and logs
// with the given chat session id.
func (a *Agent) ForSession(id int64) *Agent {
	cp := *a
	cp.session = id
	return &cp
}

// SystemPrompt returns the configured system prompt.
func (a *Agent) SystemPrompt() string {
	return a.systemPrompt
}

// run is the mutable state of one Run call.
type run struct {
	*Agent
	ctx    context.Context
	conv   *conversation.Conversation
	emit   events.Emitter
	state  State
	rounds int
	seen   map[string]int
	logger *slog.Logger

	// gone is set once the emitter failed; nothing is emitted afterwards.
	gone error
}

// Run executes one request. history is the caller's conversation without
// system instructions; any system messages in it are dropped. Run blocks
// until the model answers, a fatal error occurs or ctx is canceled.
func (a *Agent) Run(ctx context.Context, history []conversation.Message, emit events.Emitter) Result {
	logger := logging.WithOperation(a.logger, "agent.run")
	if a.session != 0 {
		logger = logging.WithSession(logger, a.session)
	}

	if emit == nil {
		emit = events.EmitterFunc(func(events.Event) error { return nil })
	}

	r := &run{
		Agent:  a,
		ctx:    ctx,
		conv:   conversation.New(a.systemPrompt, history),
		emit:   emit,
		state:  StateAwaitingModel,
		seen:   make(map[string]int),
		logger: logger,
	}
	start := r.conv.Len()

	res := r.loop()
	res.State = r.state
	res.Conversation = r.conv.Messages()
	res.Rounds = r.rounds
	res.appendedFrom = start

	a.metrics.RecordAgentRun(context.WithoutCancel(ctx), outcome(res), r.rounds)
	logger.Info("agent run finished",
		slog.String("state", string(res.State)),
		slog.Int("rounds", r.rounds),
		logging.Err(res.Err),
	)
	return res
}

func (r *run) loop() Result {
	definitions := r.registry.Definitions()

	for {
		if err := r.interrupted(); err != nil {
			return r.fail(err)
		}

		if r.rounds >= r.maxRounds {
			err := fmt.Errorf("%w: maximum of %d tool rounds exceeded", ErrRoundLimit, r.maxRounds)
			r.send(events.Error(fmt.Sprintf("maximum of %d tool rounds exceeded", r.maxRounds)))
			return r.fail(err)
		}

		r.send(events.Status(statusThinking))
		if err := r.interrupted(); err != nil {
			return r.fail(err)
		}

		r.rounds++
		resp, err := r.model.Complete(r.ctx, r.conv.Messages(), definitions)
		if err != nil {
			if cerr := r.ctx.Err(); cerr != nil {
				return r.fail(cerr)
			}
			r.logger.Error("model invocation failed", logging.Round(r.rounds), logging.Err(err))
			r.send(events.Error(err.Error()))
			return r.fail(err)
		}

		switch resp := resp.(type) {
		case llm.PlainAnswer:
			r.conv.Append(resp.Message())
			r.send(events.Answer(resp.Text))
			r.transition(StateDone)
			return Result{Answer: resp.Text}

		case llm.ToolRequest:
			r.transition(StateDispatchingTools)
			msg := resp.Message()
			r.conv.Append(msg)
			r.send(events.HistoryAppend(assistantToolCall, msg))

			r.dispatchAll(resp.Calls)
			r.transition(StateAwaitingModel)

		default:
			err := fmt.Errorf("unexpected model response %T", resp)
			r.send(events.Error(err.Error()))
			return r.fail(err)
		}
	}
}

// dispatchAll runs the calls in order and appends one tool message per call.
// Once the request is interrupted the remaining calls are not dispatched but
// still receive a tool message, so the conversation stays well formed.
func (r *run) dispatchAll(calls []conversation.ToolCall) {
	for _, call := range calls {
		if r.interrupted() != nil {
			r.conv.Append(conversation.ToolResult(call.ID, call.Name,
				"Error: request was canceled before this tool ran"))
			continue
		}

		r.send(events.Log("Using Skill: "+call.Name, call.Arguments))
		result := r.dispatch(call)
		r.send(events.Log("Skill Result: "+result, nil))

		msg := conversation.ToolResult(call.ID, call.Name, result)
		r.conv.Append(msg)
		r.send(events.HistoryAppend(toolResultAppended, msg))
	}
}

// dispatch executes one call unless the repeat guard blocks it. An issued
// dispatch is detached from request cancellation.
func (r *run) dispatch(call conversation.ToolCall) string {
	logger := r.logger.With(logging.Tool(call.Name), logging.CallID(call.ID), logging.Round(r.rounds))

	if r.maxIdenticalCalls > 0 {
		key := callKey(call)
		if r.seen[key] >= r.maxIdenticalCalls {
			logger.Warn("repeated tool call suppressed", slog.Int("previous_calls", r.seen[key]))
			r.metrics.RecordRepeatedCall(r.ctx, call.Name)
			return fmt.Sprintf("Error: tool '%s' was already called %d times with these arguments in this request. Use the earlier result instead of calling it again.",
				call.Name, r.seen[key])
		}
		r.seen[key]++
	}

	ctx := tools.WithCallInfo(context.WithoutCancel(r.ctx), tools.CallInfo{
		CallID:  call.ID,
		Session: r.session,
		Round:   r.rounds,
	})
	logger.Debug("dispatching tool call")
	return r.registry.Dispatch(ctx, call.Name, call.Arguments)
}

// send emits e unless the consumer is already gone.
func (r *run) send(e events.Event) {
	if r.gone != nil {
		return
	}
	if err := r.emit.Emit(e); err != nil {
		r.logger.Info("event consumer gone, stopping", logging.Err(err))
		r.gone = err
	}
}

// interrupted reports why the run cannot continue: a canceled context or a
// failed emitter.
func (r *run) interrupted() error {
	if err := r.ctx.Err(); err != nil {
		return err
	}
	return r.gone
}

func (r *run) fail(err error) Result {
	r.transition(StateFailed)
	return Result{Err: err}
}

// transition moves the state machine. An edge the machine does not define is
// a programming error and is logged rather than taken.
func (r *run) transition(to State) {
	if !r.state.CanTransition(to) {
		r.logger.Error("invalid state transition",
			slog.String("from", string(r.state)),
			slog.String("to", string(to)),
		)
		return
	}
	r.logger.Debug("state transition",
		slog.String("from", string(r.state)),
		slog.String("to", string(to)),
	)
	r.state = to
}

// callKey identifies a call by name and canonical arguments. encoding/json
// sorts map keys, which makes the encoding canonical.
func callKey(call conversation.ToolCall) string {
	args, err := json.Marshal(call.Arguments)
	if err != nil {
		return call.Name + "\x00" + fmt.Sprint(call.Arguments)
	}
	return call.Name + "\x00" + string(args)
}

func outcome(res Result) string {
	switch {
	case res.State == StateDone:
		return instrumentation.OutcomeAnswer
	case errors.Is(res.Err, ErrRoundLimit):
		return instrumentation.OutcomeRoundLimit
	case errors.Is(res.Err, context.Canceled), errors.Is(res.Err, context.DeadlineExceeded):
		return instrumentation.OutcomeCanceled
	default:
		return instrumentation.OutcomeError
	}
}
