// Package commentgen adapts the LLM client into the comment-generation
// collaborator the comment action depends on. It owns the prompt, the tone
// registers, and the cleanup of whatever the model hands back.
package commentgen

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/sockpuppet-cli/api/schemas"
)

const systemPromptTemplate = `You write Instagram comments. Reply with the comment text only: no quotes, no preamble, no explanations. Keep it to one or two short sentences in a natural human register. Do not use hashtags or @-mentions unless the post explicitly calls for them. Tone: %s.`

// toneInstructions expand each register into prompt language.
var toneInstructions = map[schemas.CommentTone]string{
	schemas.ToneCasual:       "relaxed and friendly, like a quick note to an acquaintance",
	schemas.ToneFunny:        "lighthearted and witty, a gentle joke but never mean-spirited",
	schemas.ToneSerious:      "thoughtful and sincere, engaging with the substance of the post",
	schemas.ToneSarcastic:    "dry and playfully ironic, teasing but clearly affectionate",
	schemas.ToneEnthusiastic: "energetic and warmly supportive, genuinely excited for the poster",
}

// maxCommentLength caps runaway generations. The site itself allows far
// more, but nothing human writes 500 characters under a photo.
const maxCommentLength = 300

// Generator implements schemas.CommentGenerator over an LLMClient.
type Generator struct {
	client      schemas.LLMClient
	logger      *zap.Logger
	temperature float64
}

var _ schemas.CommentGenerator = (*Generator)(nil)

// New builds a Generator. temperature <= 0 falls back to a mildly creative
// default.
func New(client schemas.LLMClient, temperature float64, logger *zap.Logger) *Generator {
	if temperature <= 0 {
		temperature = 0.9
	}
	return &Generator{
		client:      client,
		logger:      logger.Named("commentgen"),
		temperature: temperature,
	}
}

// Generate produces one comment for the post. Every failure surfaces as
// CommentGenerationFailed so the comment action aborts without posting.
func (g *Generator) Generate(ctx context.Context, post schemas.PostContext, tone schemas.CommentTone) (string, error) {
	if !tone.Valid() {
		tone = schemas.ToneCasual
	}

	req := schemas.GenerationRequest{
		SystemPrompt: SystemPrompt(tone),
		UserPrompt:   UserPrompt(post),
		Options: schemas.GenerationOptions{
			Temperature: g.temperature,
			MaxTokens:   120,
		},
	}

	raw, err := g.client.Generate(ctx, req)
	if err != nil {
		return "", schemas.NewActionError(schemas.CodeCommentGenerationFailed,
			"text generation failed", err)
	}

	comment := Sanitize(raw)
	if comment == "" {
		return "", schemas.NewActionError(schemas.CodeCommentGenerationFailed,
			"generation produced no usable text", nil)
	}

	g.logger.Debug("Comment generated.",
		zap.String("tone", string(tone)),
		zap.Int("length", len(comment)))
	return comment, nil
}

// SystemPrompt renders the system instruction for a tone.
func SystemPrompt(tone schemas.CommentTone) string {
	instruction, ok := toneInstructions[tone]
	if !ok {
		instruction = toneInstructions[schemas.ToneCasual]
	}
	return fmt.Sprintf(systemPromptTemplate, instruction)
}

// UserPrompt renders the post context the comment responds to.
func UserPrompt(post schemas.PostContext) string {
	var sb strings.Builder
	sb.WriteString("Write a comment for this post.\n")
	if caption := strings.TrimSpace(post.Caption); caption != "" {
		fmt.Fprintf(&sb, "Caption: %s\n", caption)
	} else {
		sb.WriteString("The post has no caption.\n")
	}
	if desc := strings.TrimSpace(post.ImageDescription); desc != "" {
		fmt.Fprintf(&sb, "The image shows: %s\n", desc)
	}
	return sb.String()
}

// Sanitize strips the framing models like to add: surrounding quotes,
// markdown emphasis, a "Comment:" prefix, and everything past the first
// blank line. Multi-line remainders are collapsed to one line.
func Sanitize(raw string) string {
	text := strings.TrimSpace(raw)

	// Keep only the first paragraph; anything after a blank line is
	// commentary about the comment.
	if idx := strings.Index(text, "\n\n"); idx >= 0 {
		text = text[:idx]
	}
	text = strings.Join(strings.Fields(text), " ")

	for _, prefix := range []string{"Comment:", "comment:"} {
		text = strings.TrimSpace(strings.TrimPrefix(text, prefix))
	}

	text = strings.Trim(text, "*_")
	for _, quote := range []byte{'"', '\''} {
		if len(text) >= 2 && text[0] == quote && text[len(text)-1] == quote {
			text = strings.TrimSpace(text[1 : len(text)-1])
		}
	}

	if len(text) > maxCommentLength {
		cut := text[:maxCommentLength]
		// Break on a word boundary when one is close enough.
		if idx := strings.LastIndex(cut, " "); idx > maxCommentLength/2 {
			cut = cut[:idx]
		}
		text = strings.TrimSpace(cut)
	}
	return text
}
