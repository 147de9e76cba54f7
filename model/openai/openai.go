//
// Tencent is pleased to support the open source community by making trpc-docqa-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-docqa-go is licensed under the Apache License Version 2.0.
//
//

// Package openai provides an OpenAI-compatible chat model implementation.
package openai

import (
	"context"
	"errors"
	"time"

	openai "github.com/openai/openai-go"
	openaiopt "github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"trpc.group/trpc-go/trpc-docqa-go/model"
)

// Verify that Model implements the model.Model interface.
var _ model.Model = (*Model)(nil)

const defaultChannelBufferSize = 256

// Model implements the model.Model interface over the OpenAI chat
// completions API or any compatible endpoint.
type Model struct {
	client            openai.Client
	name              string
	channelBufferSize int
}

type options struct {
	apiKey            string
	baseURL           string
	channelBufferSize int
	openaiOptions     []openaiopt.RequestOption
}

// Option represents a functional option for configuring the Model.
type Option func(*options)

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(o *options) {
		o.apiKey = key
	}
}

// WithBaseURL sets the base URL, for OpenAI-compatible APIs.
func WithBaseURL(url string) Option {
	return func(o *options) {
		o.baseURL = url
	}
}

// WithChannelBufferSize sets the buffer size of the response channel.
func WithChannelBufferSize(size int) Option {
	return func(o *options) {
		if size > 0 {
			o.channelBufferSize = size
		}
	}
}

// WithOpenAIOptions passes extra request options to the underlying client.
func WithOpenAIOptions(opts ...openaiopt.RequestOption) Option {
	return func(o *options) {
		o.openaiOptions = append(o.openaiOptions, opts...)
	}
}

// New creates a chat model that uses the given model name.
func New(name string, opts ...Option) *Model {
	o := &options{channelBufferSize: defaultChannelBufferSize}
	for _, opt := range opts {
		opt(o)
	}

	var clientOpts []openaiopt.RequestOption
	if o.apiKey != "" {
		clientOpts = append(clientOpts, openaiopt.WithAPIKey(o.apiKey))
	}
	if o.baseURL != "" {
		clientOpts = append(clientOpts, openaiopt.WithBaseURL(o.baseURL))
	}
	clientOpts = append(clientOpts, o.openaiOptions...)

	return &Model{
		client:            openai.NewClient(clientOpts...),
		name:              name,
		channelBufferSize: o.channelBufferSize,
	}
}

// Info implements the model.Model interface.
func (m *Model) Info() model.Info {
	return model.Info{Name: m.name}
}

// GenerateContent implements the model.Model interface.
func (m *Model) GenerateContent(
	ctx context.Context,
	request *model.Request,
) (<-chan *model.Response, error) {
	if request == nil {
		return nil, errors.New("request cannot be nil")
	}

	chatRequest := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(m.name),
		Messages: convertMessages(request.Messages),
	}
	if request.MaxTokens != nil {
		chatRequest.MaxCompletionTokens = openai.Int(int64(*request.MaxTokens))
	}
	if request.Temperature != nil {
		chatRequest.Temperature = openai.Float(*request.Temperature)
	}

	responseChan := make(chan *model.Response, m.channelBufferSize)
	go func() {
		defer close(responseChan)
		if request.Stream {
			m.handleStreamingResponse(ctx, chatRequest, responseChan)
		} else {
			m.handleNonStreamingResponse(ctx, chatRequest, responseChan)
		}
	}()
	return responseChan, nil
}

// handleStreamingResponse forwards deltas as partial responses and emits a
// final accumulated response when the stream ends.
func (m *Model) handleStreamingResponse(
	ctx context.Context,
	chatRequest openai.ChatCompletionNewParams,
	responseChan chan<- *model.Response,
) {
	stream := m.client.Chat.Completions.NewStreaming(ctx, chatRequest)
	defer stream.Close()

	acc := openai.ChatCompletionAccumulator{}
	for stream.Next() {
		chunk := stream.Current()
		acc.AddChunk(chunk)

		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}
		response := &model.Response{
			ID:        chunk.ID,
			Object:    model.ObjectTypeChatCompletionChunk,
			Model:     string(chunk.Model),
			Timestamp: time.Now(),
			IsPartial: true,
			Choices: []model.Choice{{
				Index: int(chunk.Choices[0].Index),
				Delta: model.Message{
					Role:    model.RoleAssistant,
					Content: chunk.Choices[0].Delta.Content,
				},
			}},
		}
		select {
		case responseChan <- response:
		case <-ctx.Done():
			return
		}
	}

	final := &model.Response{
		ID:        acc.ID,
		Object:    model.ObjectTypeChatCompletion,
		Model:     string(acc.Model),
		Timestamp: time.Now(),
		Done:      true,
	}
	if err := stream.Err(); err != nil {
		final.Error = &model.ResponseError{
			Message: err.Error(),
			Type:    model.ErrorTypeStreamError,
		}
	} else if len(acc.Choices) > 0 {
		finishReason := string(acc.Choices[0].FinishReason)
		final.Choices = []model.Choice{{
			Message: model.Message{
				Role:    model.RoleAssistant,
				Content: acc.Choices[0].Message.Content,
			},
			FinishReason: &finishReason,
		}}
	}
	select {
	case responseChan <- final:
	case <-ctx.Done():
	}
}

// handleNonStreamingResponse performs a blocking completion call and emits a
// single response.
func (m *Model) handleNonStreamingResponse(
	ctx context.Context,
	chatRequest openai.ChatCompletionNewParams,
	responseChan chan<- *model.Response,
) {
	completion, err := m.client.Chat.Completions.New(ctx, chatRequest)
	response := &model.Response{
		Object:    model.ObjectTypeChatCompletion,
		Timestamp: time.Now(),
		Done:      true,
	}
	if err != nil {
		response.Error = &model.ResponseError{
			Message: err.Error(),
			Type:    model.ErrorTypeAPIError,
		}
	} else {
		response.ID = completion.ID
		response.Model = string(completion.Model)
		for _, choice := range completion.Choices {
			finishReason := string(choice.FinishReason)
			response.Choices = append(response.Choices, model.Choice{
				Index: int(choice.Index),
				Message: model.Message{
					Role:    model.RoleAssistant,
					Content: choice.Message.Content,
				},
				FinishReason: &finishReason,
			})
		}
	}
	select {
	case responseChan <- response:
	case <-ctx.Done():
	}
}

// convertMessages converts our Message format to the OpenAI union type.
func convertMessages(messages []model.Message) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			result = append(result, openai.SystemMessage(msg.Content))
		case model.RoleAssistant:
			result = append(result, openai.AssistantMessage(msg.Content))
		default:
			result = append(result, openai.UserMessage(msg.Content))
		}
	}
	return result
}
