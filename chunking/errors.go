//
// Tencent is pleased to support the open source community by making trpc-docqa-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-docqa-go is licensed under the Apache License Version 2.0.
//
//

package chunking

import "errors"

var (
	// ErrEmptyDocument indicates that the document has no content to chunk.
	ErrEmptyDocument = errors.New("document content is empty")

	// ErrNilDocument indicates that a nil document was provided.
	ErrNilDocument = errors.New("document cannot be nil")
)
