package qa

import "fmt"

// FallbackAnswer is the exact string the model is instructed to return
// when the answer cannot be determined from the supplied context.
const FallbackAnswer = "I don't know based on the provided context."

// systemPrompt pins the model to the supplied context and the fallback
// contract. The single-quoted fallback keeps the instruction unambiguous
// inside the double-quoted sentence.
const systemPrompt = "You are a careful assistant. " +
	"Use ONLY the provided context to answer the user's question. " +
	"If the answer cannot be determined from the context, reply exactly: " +
	"'" + FallbackAnswer + "'"

// userPromptFormat renders the context passage and question into the user
// message.
const userPromptFormat = "Context:\n%s\n\nQuestion: %s\n\nAnswer concisely and directly:"

// buildUserPrompt renders the user message from normalized, clipped inputs.
func buildUserPrompt(question, context string) string {
	return fmt.Sprintf(userPromptFormat, context, question)
}
