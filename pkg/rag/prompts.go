package rag

import (
	"strconv"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/mbarlow/docchat/internal/models"
)

// rewriteInstruction asks the model to turn a conversational follow-up
// into a standalone similarity-search query.
const rewriteInstruction = "Based on the provided context and any relevant past conversations, " +
	"generate a concise vector store search query to look up in order to get " +
	"information relevant to the conversation."

// answerSystemTemplate is the grounding contract for answer synthesis:
// answer strictly from the supplied context, admit not knowing instead of
// fabricating, and structure the reply as markdown with a heading,
// subheadings, and a clearly separated direct answer.
const answerSystemTemplate = `You are an AI assistant answering questions about the user's uploaded documents.
Use the following pieces of context to answer the question at the end.
If you don't know the answer, state clearly that you don't know. DO NOT attempt to fabricate an answer.
If the question is not relevant to the provided context, politely indicate that your responses are limited to the given context.

<context>
%s
</context>

Make sure to extract and reference specific information from the provided context to answer the question. If the information is not directly found in the context, indicate that based on your review of the provided documents.

Your response should be thorough, precise, and structured in markdown format. Follow these guidelines for your response:

1. **Heading**: Provide a clear and relevant heading for the main topic.
2. **Subheadings**: Break down the response into logical sub-sections with subheadings.
3. **Content Style**: Use paragraphs for detailed explanations and bullet points for lists or key points, depending on what is most appropriate.
4. **Direct Answers**: Begin with the direct answer to the question if applicable.
5. **Additional Context**: Offer any additional relevant context or information following the direct answer.

Example Format:

# [Main Topic Heading]

## [Subheading]
[Paragraph with detailed explanation.]

## [Subheading]
- [Bullet Point 1]
- [Bullet Point 2]

Direct Answer: [Your precise answer]

Additional Context: [Any further relevant details]

Please proceed with your response below:`

// historyToContent converts conversation turns to model messages.
func historyToContent(history []models.Message) []llms.MessageContent {
	content := make([]llms.MessageContent, 0, len(history))
	for _, msg := range history {
		role := llms.ChatMessageTypeHuman
		if msg.Role == models.RoleAssistant {
			role = llms.ChatMessageTypeAI
		}
		content = append(content, llms.TextParts(role, msg.Content))
	}
	return content
}

// stuffContext joins retrieved chunks into the context block, in retrieval
// order, each prefixed with its source file and page.
func stuffContext(chunks []models.Chunk) string {
	var b strings.Builder
	for i, chunk := range chunks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("Source: ")
		b.WriteString(chunk.Metadata.FileName)
		b.WriteString(" (page ")
		b.WriteString(strconv.Itoa(chunk.Metadata.PageNumber))
		b.WriteString(")\n")
		b.WriteString(chunk.Text)
	}
	return b.String()
}
