//
// Tencent is pleased to support the open source community by making trpc-docqa-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-docqa-go is licensed under the Apache License Version 2.0.
//
//

package engine

import (
	"context"
	"fmt"
	"strings"

	"trpc.group/trpc-go/trpc-docqa-go/log"
	"trpc.group/trpc-go/trpc-docqa-go/model"
)

// Intent is the routing decision for one user turn.
type Intent string

const (
	// IntentChat routes the turn to direct generation without retrieval.
	IntentChat Intent = "CHAT"

	// IntentRAG routes the turn through retrieval and grounded generation.
	IntentRAG Intent = "RAG"
)

// intentSystemPrompt instructs the model to emit exactly two lines: the
// intent token and the standalone query. The wording is part of the
// classification contract and must not drift.
const intentSystemPrompt = `你是一个智能助手。请严格按照以下规则处理用户输入：
1. 如果是闲聊/无关问题，直接回复'CHAT'并在下一行输出原问题。
2. 如果是知识查询/需要检索的问题，回复'RAG'并在下一行输出优化后的检索语句（仅优化检索效率，不要添加外部信息）。
只输出两行：
第一行：意图（CHAT 或 RAG）
第二行：最终语句（原问题或优化后的检索语句）`

// classify runs the intent model over the user input plus history and parses
// the two-line reply. Consumes one generation call.
func (e *Engine) classify(ctx context.Context, session *Session, userInput string) (Intent, string, error) {
	messages := make([]model.Message, 0, len(session.History)+2)
	messages = append(messages, model.NewSystemMessage(intentSystemPrompt))
	messages = append(messages, session.History...)
	messages = append(messages, model.NewUserMessage(userInput))

	reply, err := e.generate(ctx, &model.Request{Messages: messages})
	if err != nil {
		return "", "", fmt.Errorf("classifying intent: %w", err)
	}

	intent, standalone := parseIntent(reply, userInput)
	log.Debugf("intent %s, standalone query %q", intent, standalone)
	return intent, standalone, nil
}

// parseIntent applies the two-line protocol with a fail-soft fallback: a
// malformed reply or any token other than RAG yields CHAT plus the original
// input unchanged.
func parseIntent(reply, userInput string) (Intent, string) {
	lines := strings.SplitN(strings.TrimSpace(reply), "\n", 2)
	if len(lines) < 2 {
		return IntentChat, userInput
	}
	token := strings.ToUpper(strings.TrimSpace(lines[0]))
	if token != string(IntentRAG) {
		return IntentChat, userInput
	}
	standalone := strings.TrimSpace(lines[1])
	if standalone == "" {
		return IntentChat, userInput
	}
	return IntentRAG, standalone
}
