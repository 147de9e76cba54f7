//
// Tencent is pleased to support the open source community by making trpc-docqa-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-docqa-go is licensed under the Apache License Version 2.0.
//
//

// Package model provides interfaces for working with LLMs.
package model

import "context"

// Model is the interface for all language models.
//
// Error handling uses two layers: a function-level error means the call could
// not be made at all (nil request, client misconfiguration), while API-level
// errors arrive through the Response.Error field on the returned channel.
type Model interface {
	// GenerateContent generates content from the given request.
	//
	// Returns a channel of Response objects. For streaming requests the
	// channel carries partial deltas followed by a final response; for
	// non-streaming requests it carries exactly one response. The channel is
	// closed when generation finishes or the context is cancelled.
	GenerateContent(ctx context.Context, request *Request) (<-chan *Response, error)

	// Info returns basic information about the model.
	Info() Info
}

// Info contains basic information about a Model.
type Info struct {
	Name string
}
