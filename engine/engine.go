//
// Tencent is pleased to support the open source community by making trpc-docqa-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-docqa-go is licensed under the Apache License Version 2.0.
//
//

// Package engine orchestrates intent routing, retrieval and grounded
// generation into one streaming question-answering pipeline.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trpc.group/trpc-go/trpc-docqa-go/log"
	"trpc.group/trpc-go/trpc-docqa-go/model"
	"trpc.group/trpc-go/trpc-docqa-go/retrieval"
)

// qaSystemPrompt constrains generation to the supplied material. The wording
// is part of the grounding contract and must not drift. The trailing slot
// takes the assembled retrieval context.
const qaSystemPrompt = `你是一个基于文档的【总结与事实陈述】助手。

【核心任务】：
1. 根据【文档资料】内容，总结并回答用户的问题。
2. 如果资料中的描述与用户提问意思一致，请进行关联并给出事实总结。
3. 严禁提及资料中完全不存在的虚假事实。
4. 回答必须体现出是从资料中总结出来的（例如：根据资料显示...）。

【约束】：
- 如果资料里没有相关动作的描述，才回答“根据现有资料无法回答”。
- 不要使用任何外部常识。

【文档资料】：
%s`

// refusalAnswer is emitted when retrieval finds no supporting material.
// No generation call is made on this path.
const refusalAnswer = "🤷 抱歉，未在文档库中找到相关依据。"

const defaultEventBufferSize = 64

// ErrEmptyResponse indicates the model stream ended without a final message.
var ErrEmptyResponse = errors.New("engine: model returned no final response")

// Session carries the per-conversation state threaded through every turn.
type Session struct {
	// History holds alternating user and assistant messages of prior turns.
	History []model.Message

	// SourceFilter restricts retrieval to one uploaded file. Empty means
	// all files.
	SourceFilter string
}

// EventType discriminates the events emitted while answering one turn.
type EventType string

const (
	// EventTypeIntent reports the routing decision and the standalone query.
	EventTypeIntent EventType = "intent"

	// EventTypeDelta carries one incremental answer fragment.
	EventTypeDelta EventType = "delta"

	// EventTypeSources carries provenance for a grounded answer.
	EventTypeSources EventType = "sources"

	// EventTypeDone closes the turn with the final answer and metrics.
	EventTypeDone EventType = "done"

	// EventTypeError reports a pipeline failure. Terminal.
	EventTypeError EventType = "error"
)

// Metrics summarizes one answered turn for display.
type Metrics struct {
	// LLMCalls counts generation calls made during the turn.
	LLMCalls int

	// Elapsed is the wall time of the whole turn.
	Elapsed time.Duration

	// RetrievalElapsed covers recall plus reranking. Zero on chat turns.
	RetrievalElapsed time.Duration
}

// Event is one item of the answer stream.
type Event struct {
	Type EventType

	// Intent and Query are set on EventTypeIntent.
	Intent Intent
	Query  string

	// Delta is set on EventTypeDelta.
	Delta string

	// Sources is set on EventTypeSources.
	Sources []retrieval.ScoredChunk

	// Answer and Metrics are set on EventTypeDone.
	Answer  string
	Metrics *Metrics

	// Err is set on EventTypeError.
	Err error
}

// Engine wires the model and the retriever into the answering pipeline.
type Engine struct {
	model     model.Model
	retriever *retrieval.Retriever
	bufSize   int
}

// Option represents a functional option for configuring the Engine.
type Option func(*Engine)

// WithEventBufferSize sets the event channel buffer size.
func WithEventBufferSize(size int) Option {
	return func(e *Engine) {
		if size > 0 {
			e.bufSize = size
		}
	}
}

// New creates an engine over the given model and retriever.
func New(m model.Model, r *retrieval.Retriever, opts ...Option) *Engine {
	e := &Engine{
		model:     m,
		retriever: r,
		bufSize:   defaultEventBufferSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Ask answers one user turn, emitting events on the returned channel until a
// terminal done or error event, after which the channel is closed. On done,
// the user input and the final answer are appended to the session history.
func (e *Engine) Ask(ctx context.Context, session *Session, userInput string) (<-chan *Event, error) {
	if session == nil {
		return nil, errors.New("engine: session is required")
	}
	events := make(chan *Event, e.bufSize)
	go func() {
		defer close(events)
		e.run(ctx, session, userInput, events)
	}()
	return events, nil
}

// run drives the turn through classification, optional retrieval and
// generation, counting every model call along the way.
func (e *Engine) run(ctx context.Context, session *Session, userInput string, events chan<- *Event) {
	start := time.Now()
	metrics := &Metrics{}

	metrics.LLMCalls++
	intent, standalone, err := e.classify(ctx, session, userInput)
	if err != nil {
		e.fail(ctx, events, err)
		return
	}
	e.emit(ctx, events, &Event{Type: EventTypeIntent, Intent: intent, Query: standalone})

	var answer string
	if intent == IntentChat {
		metrics.LLMCalls++
		answer, err = e.answerDirect(ctx, userInput, events)
	} else {
		answer, err = e.answerGrounded(ctx, session, standalone, metrics, events)
	}
	if err != nil {
		e.fail(ctx, events, err)
		return
	}

	session.History = append(session.History,
		model.NewUserMessage(userInput),
		model.NewAssistantMessage(answer),
	)
	metrics.Elapsed = time.Since(start)
	log.Infof("turn answered: intent=%s calls=%d elapsed=%v", intent, metrics.LLMCalls, metrics.Elapsed)
	e.emit(ctx, events, &Event{Type: EventTypeDone, Answer: answer, Metrics: metrics})
}

// answerDirect streams a generation over the raw input with no injected
// context and no history.
func (e *Engine) answerDirect(ctx context.Context, userInput string, events chan<- *Event) (string, error) {
	req := &model.Request{
		Messages:         []model.Message{model.NewUserMessage(userInput)},
		GenerationConfig: model.GenerationConfig{Stream: true},
	}
	return e.streamGenerate(ctx, req, events)
}

// answerGrounded retrieves supporting material and, when any is found,
// streams a generation constrained to it. An empty context yields the fixed
// refusal without a generation call.
func (e *Engine) answerGrounded(
	ctx context.Context,
	session *Session,
	standalone string,
	metrics *Metrics,
	events chan<- *Event,
) (string, error) {
	result, err := e.retriever.Retrieve(ctx, standalone, session.SourceFilter)
	if err != nil {
		return "", err
	}
	metrics.RetrievalElapsed = result.Elapsed

	if result.Context == "" {
		return refusalAnswer, nil
	}
	e.emit(ctx, events, &Event{Type: EventTypeSources, Sources: result.Sources})

	messages := make([]model.Message, 0, len(session.History)+2)
	messages = append(messages, model.NewSystemMessage(fmt.Sprintf(qaSystemPrompt, result.Context)))
	messages = append(messages, session.History...)
	messages = append(messages, model.NewUserMessage(standalone))

	metrics.LLMCalls++
	req := &model.Request{
		Messages:         messages,
		GenerationConfig: model.GenerationConfig{Stream: true},
	}
	return e.streamGenerate(ctx, req, events)
}

// generate performs one blocking generation call and returns the full reply.
func (e *Engine) generate(ctx context.Context, req *model.Request) (string, error) {
	responses, err := e.model.GenerateContent(ctx, req)
	if err != nil {
		return "", err
	}
	for rsp := range responses {
		if rsp.Error != nil {
			return "", fmt.Errorf("model error: %s", rsp.Error.Message)
		}
		if rsp.Done && len(rsp.Choices) > 0 {
			return rsp.Choices[0].Message.Content, nil
		}
	}
	return "", ErrEmptyResponse
}

// streamGenerate forwards partial fragments as delta events and returns the
// accumulated final answer.
func (e *Engine) streamGenerate(ctx context.Context, req *model.Request, events chan<- *Event) (string, error) {
	responses, err := e.model.GenerateContent(ctx, req)
	if err != nil {
		return "", err
	}
	var final string
	var done bool
	for rsp := range responses {
		if rsp.Error != nil {
			return "", fmt.Errorf("model error: %s", rsp.Error.Message)
		}
		if len(rsp.Choices) == 0 {
			continue
		}
		if rsp.IsPartial {
			if delta := rsp.Choices[0].Delta.Content; delta != "" {
				e.emit(ctx, events, &Event{Type: EventTypeDelta, Delta: delta})
			}
			continue
		}
		if rsp.Done {
			final = rsp.Choices[0].Message.Content
			done = true
		}
	}
	if !done {
		return "", ErrEmptyResponse
	}
	return final, nil
}

func (e *Engine) emit(ctx context.Context, events chan<- *Event, event *Event) {
	select {
	case events <- event:
	case <-ctx.Done():
	}
}

func (e *Engine) fail(ctx context.Context, events chan<- *Event, err error) {
	log.Errorf("turn failed: %v", err)
	e.emit(ctx, events, &Event{Type: EventTypeError, Err: err})
}
