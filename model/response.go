//
// Tencent is pleased to support the open source community by making trpc-docqa-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-docqa-go is licensed under the Apache License Version 2.0.
//
//

package model

import "time"

// Error type constants for ResponseError.Type field.
const (
	ErrorTypeStreamError = "stream_error"
	ErrorTypeAPIError    = "api_error"
)

// Object type constants for Response.Object field.
const (
	// ObjectTypeChatCompletionChunk is the object type for chat completion chunk events.
	ObjectTypeChatCompletionChunk = "chat.completion.chunk"
	// ObjectTypeChatCompletion is the object type for chat completion events.
	ObjectTypeChatCompletion = "chat.completion"
)

// Choice represents a single completion choice.
type Choice struct {
	// Index is the index of the choice.
	Index int `json:"index"`

	// Message is the complete message content.
	Message Message `json:"message,omitempty"`

	// Delta is the incremental message content for streaming responses.
	Delta Message `json:"delta,omitempty"`

	// FinishReason is the reason the choice was finished ("stop", "length", ...).
	FinishReason *string `json:"finish_reason,omitempty"`
}

// ResponseError represents an API-level error delivered through the
// response channel after communication succeeded.
type ResponseError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Response is the response from the model.
type Response struct {
	// ID is the unique identifier for this response.
	ID string `json:"id"`

	// Object describes the type of object returned.
	Object string `json:"object"`

	// Model is the model used to generate the response.
	Model string `json:"model"`

	// Choices contains the completion choices.
	Choices []Choice `json:"choices"`

	// Error contains API-level error information if the request failed.
	Error *ResponseError `json:"error,omitempty"`

	// Timestamp when this response was received.
	Timestamp time.Time `json:"timestamp"`

	// Done indicates this is the final response of the stream.
	Done bool `json:"done"`

	// IsPartial indicates if this is a partial (delta) response.
	IsPartial bool `json:"is_partial"`
}
