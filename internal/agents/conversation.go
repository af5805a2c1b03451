package agents

import (
	"decisionflow/internal/a2a"
	"decisionflow/internal/adapters/ai"
)

// ConversationManager converts a task's message history into provider chat
// messages, keeping the total under a token budget. The oldest turns are
// dropped first; the system prompt always survives.
type ConversationManager struct {
	systemPrompt string
	maxTokens    int
}

// NewConversationManager creates a manager with the given budget. A budget
// of zero or less falls back to 50k tokens.
func NewConversationManager(systemPrompt string, maxTokens int) *ConversationManager {
	if maxTokens <= 0 {
		maxTokens = 50000
	}
	return &ConversationManager{systemPrompt: systemPrompt, maxTokens: maxTokens}
}

// BuildMessages assembles the chat request messages for the given task
// history. The incoming message is expected to be the last history entry.
func (cm *ConversationManager) BuildMessages(history []a2a.Message) []ai.Message {
	budget := cm.maxTokens - estimateTokens(cm.systemPrompt)

	// Walk backwards so the most recent turns are kept.
	start := len(history)
	for i := len(history) - 1; i >= 0; i-- {
		cost := estimateTokens(history[i].Text())
		if budget-cost < 0 && start < len(history) {
			break
		}
		budget -= cost
		start = i
	}

	messages := make([]ai.Message, 0, len(history)-start+1)
	messages = append(messages, ai.Message{Role: ai.RoleSystem, Content: cm.systemPrompt})
	for _, m := range history[start:] {
		role := ai.RoleUser
		if m.Role == a2a.RoleAgent {
			role = ai.RoleAssistant
		}
		text := m.Text()
		if text == "" {
			continue
		}
		messages = append(messages, ai.Message{Role: role, Content: text})
	}
	return messages
}

// estimateTokens approximates token count as chars/4, good enough for
// history trimming.
func estimateTokens(text string) int {
	return len(text) / 4
}
