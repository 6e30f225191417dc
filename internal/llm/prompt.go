package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/voiced-app/voiced/internal/domain"
)

// DefaultSystemPrompt is the base persona used when the user has not stored
// an override.
const DefaultSystemPrompt = `You are a supportive, reflective AI companion inspired by Voiced. You provide emotional support through brief, personal conversations.

CONVERSATION STYLE:
- Keep responses SHORT (2-4 sentences max)
- Be conversational, like texting a close friend
- Focus on ONE thing at a time
- Ask ONE question per response, not multiple
- Use simple, natural language
- Avoid lengthy explanations or advice dumps

USING MEMORY:
- Reference things you know about the user when RELEVANT and helpful
- Only make connections that are natural and appropriate to the current topic
- Don't force memory references - if nothing in your memory relates to what they're saying, just respond to what they shared
- When you do reference memory, do it naturally: "Last time you mentioned..." or "I remember you said..."
- Build continuity across conversations, but stay focused on what they need right now

CORE APPROACH:
- Listen deeply, respond briefly
- Reflect what you hear in a sentence
- Ask ONE thoughtful follow-up question
- Be warm, empathetic, non-judgmental
- Help them explore feelings, not just solve problems
- Stay grounded in what they're actually talking about

BOUNDARIES - You are NOT:
- A coding assistant (decline code/technical requests)
- A general Q&A bot (decline factual queries unrelated to emotional wellbeing)
- A task helper (decline writing/summaries/translations)

If off-topic: "I'm here for emotional support and self-reflection. Want to talk about what's on your mind?"

Remember: BRIEF responses. ONE focus per message. Use memory when relevant, but don't force it.`

// ComposeSystemPrompt merges the base prompt with a rendered view of working
// memory. Pure: identical inputs produce identical output. Empty memory
// returns the base prompt unchanged.
func ComposeSystemPrompt(base string, mem domain.WorkingMemory) string {
	if mem.IsEmpty() {
		return base
	}

	var b strings.Builder
	b.WriteString(base)
	b.WriteString("\n\n=== WHAT YOU KNOW ABOUT THIS USER ===\n")
	b.WriteString("Use this information when it's naturally relevant to the conversation. Don't force connections.\n")

	if len(mem.Facts) > 0 {
		b.WriteString("\nPersonal Facts:\n")
		writeBullets(&b, mem.Facts)
	}
	if len(mem.Preferences) > 0 {
		b.WriteString("\nTheir Preferences & Values:\n")
		writeBullets(&b, mem.Preferences)
	}
	if len(mem.Topics) > 0 {
		b.WriteString("\nPast Conversation Topics:\n")
		writeBullets(&b, mem.Topics)
	}

	b.WriteString("\nReference these details only when they naturally relate to what the user is sharing right now.")
	return b.String()
}

func writeBullets(b *strings.Builder, items []string) {
	for _, item := range items {
		b.WriteString("- ")
		b.WriteString(item)
		b.WriteString("\n")
	}
}

// FormatTranscript renders ordered turns as role-prefixed plain text, one
// turn per paragraph, for use as model input.
func FormatTranscript(turns []domain.Turn) string {
	parts := make([]string, 0, len(turns))
	for _, t := range turns {
		role := "Assistant"
		if t.Role == domain.RoleUser {
			role = "User"
		}
		parts = append(parts, fmt.Sprintf("%s: %s", role, t.Content))
	}
	return strings.Join(parts, "\n\n")
}

// ExtractionSystemMessage primes the extraction call
const ExtractionSystemMessage = "You are an expert at extracting and organizing personal information from conversations. Always output valid JSON."

// BuildExtractionPrompt creates the prompt asking the model for genuinely new
// facts, preferences and topics absent from existing memory.
func BuildExtractionPrompt(transcript string, existing domain.WorkingMemory) string {
	existingJSON, err := json.MarshalIndent(existing, "", "  ")
	if err != nil {
		existingJSON = []byte("{}")
	}

	return fmt.Sprintf(`You are analyzing a conversation to extract key information about the user for future conversations.

CONVERSATION TRANSCRIPT:
%s

EXISTING MEMORY:
%s

Extract and return ONLY NEW information that isn't already in the existing memory:

{
  "facts": ["fact1", "fact2"],
  "preferences": ["preference1", "preference2"],
  "topics": ["topic1", "topic2"]
}

GUIDELINES:
- **Facts**: Concrete information about the user (job, location, relationships, hobbies, etc.)
- **Preferences**: What they like/dislike, values, how they prefer to handle things
- **Topics**: Main themes discussed (work stress, anxiety, relationships, health, etc.)
- Keep items concise (5-10 words max each)
- Only extract meaningful, relevant information
- Don't include generic statements
- Don't duplicate what's already in existing memory
- If nothing new, return empty arrays

Output ONLY valid JSON, no other text.`, transcript, existingJSON)
}

// SynthesisSystemMessage primes the end-of-conversation synthesis call
const SynthesisSystemMessage = "You are an expert at creating emotionally resonant, personalized end-of-conversation experiences. Always output valid JSON."

// BuildSynthesisPrompt creates the prompt producing the end-of-conversation
// screen for a finished conversation.
func BuildSynthesisPrompt(transcript, style string) string {
	if style == "" {
		style = "warm and supportive"
	}

	return fmt.Sprintf(`You are analyzing a conversation from Voiced, an emotional support app. The user just tapped "Done" to end their conversation.

Your task is to create a personalized end-of-conversation screen that:
1. **Validates** their emotional experience
2. **Reflects** on what was discussed
3. **Encourages** them to return

CONVERSATION TRANSCRIPT:
%s

Generate a JSON response with these fields:

{
  "validation": "A warm, empathetic statement that validates what they shared (1-2 sentences)",
  "reflection": "A gentle reflection on the conversation - what did they explore? (2-3 sentences)",
  "themes": ["theme1", "theme2", "theme3"],
  "encouragement": "An encouraging message that motivates them to return (1-2 sentences)",
  "keyMoment": "One particularly meaningful moment from the conversation (1 sentence, optional)",
  "emotionalTone": "One word: calm/hopeful/relieved/understood/lighter/clearer",
  "suggestedNextStep": "A gentle suggestion for when they return (1 sentence, optional)"
}

Style: %s

IMPORTANT:
- Be genuine and specific to their conversation
- Avoid generic platitudes
- Focus on emotional relief and feeling heard
- Make it feel personal, not templated
- Output ONLY valid JSON, no other text`, transcript, style)
}

// SentimentSystemMessage primes the sentiment analysis call
const SentimentSystemMessage = "You are an expert at analyzing emotional sentiment in conversations. Always output valid JSON."

// BuildSentimentPrompt creates the prompt classifying a conversation into one
// of four sentiment classes with a confidence score and short summary.
func BuildSentimentPrompt(transcript string) string {
	return fmt.Sprintf(`Analyze the emotional sentiment of this conversation and classify it into exactly ONE of these categories: positive, negative, neutral, or mixed.

CONVERSATION:
%s

Consider the overall emotional tone of the conversation, especially the user's messages. Look for:
- Positive: joy, excitement, gratitude, relief, accomplishment, hope
- Negative: sadness, disappointment, grief, loneliness, worry, anxiety, frustration, anger
- Neutral: matter-of-fact discussion without strong emotion either way
- Mixed: clearly both positive and negative emotions present

Respond with ONLY a JSON object in this exact format:
{
  "sentiment": "positive" | "negative" | "neutral" | "mixed",
  "confidence": 0.0-1.0,
  "summary": "One short sentence describing the emotional arc of the conversation"
}

Choose the sentiment that best represents the dominant emotional tone of the conversation.`, transcript)
}

// ExtractJSON extracts a JSON object from model output, tolerating markdown
// code fences and surrounding prose.
func ExtractJSON(content string) string {
	content = strings.TrimSpace(content)

	// Prefer fenced blocks when present.
	for _, marker := range []string{"```json", "```"} {
		if start := strings.Index(content, marker); start != -1 {
			inner := content[start+len(marker):]
			if end := strings.Index(inner, "```"); end != -1 {
				content = strings.TrimSpace(inner[:end])
				break
			}
		}
	}

	// Trim any prose around the outermost object.
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return content[start : end+1]
}
