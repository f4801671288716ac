package ai

import "fmt"

const commentTemplate = `You are an empathetic AI assistant. Read the following journal entry and provide a thoughtful, kind, and encouraging comment to support the writer's emotions and reflections:

Journal Entry:
"%s"

Please ensure the response is positive, uplifting, and human-like.`

const chatTemplate = `You are a thoughtful and understanding assistant. Your responses should reflect a deep understanding of the user's emotions. Be attentive to their feelings and provide genuine, human-like responses that are insightful and supportive.
User: %s
Response:`

// CommentPrompt embeds an entry verbatim in the comment instruction.
func CommentPrompt(entry string) string {
	return fmt.Sprintf(commentTemplate, entry)
}

// ChatPrompt frames a user chat message.
func ChatPrompt(message string) string {
	return fmt.Sprintf(chatTemplate, message)
}

// QuickPrompts are the canned chat openers offered on the chat page.
func QuickPrompts() []string {
	return []string{
		"Tell me a motivational quote",
		"How can I handle stress?",
	}
}
