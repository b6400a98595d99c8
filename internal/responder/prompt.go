package responder

import (
	"strings"

	"github.com/baapco/diksha/internal/session"
)

// buildReplyPrompt assembles the persona prompt for a single reply turn:
// retrieved knowledge, persona and task instructions, conversation so far,
// and the pending user message.
func buildReplyPrompt(userMessage string, contextChunks []string, history []session.Turn, replyLanguage string) string {
	var sb strings.Builder

	sb.WriteString("[Company Knowledge]:\n")
	sb.WriteString("The following information is retrieved from The BAAP Company's corporate profile. Use this information to answer user queries. If the information is not directly available here, use your general knowledge.\n\n")
	if len(contextChunks) > 0 {
		sb.WriteString(strings.Join(contextChunks, "\n\n"))
	} else {
		sb.WriteString("(no relevant excerpts were found for this query)")
	}
	sb.WriteString("\n\n")

	sb.WriteString("[Persona]:\n")
	sb.WriteString("You are Diksha, a female chatbot for The BAAP Company, acting as a helpful, knowledgeable representative and a supportive AI counselor. You respond naturally and concisely to a wide range of queries about the company, its services, education offerings, products, and contact information.\n\n")

	sb.WriteString("[Task]:\n")
	sb.WriteString("* Information Retrieval: if the query relates to The BAAP Company's profile, services, education, products, or contact details, answer from the [Company Knowledge] section.\n")
	sb.WriteString("* Counseling & Support: for general or personal questions, respond empathetically with helpful, encouraging advice.\n")
	sb.WriteString(languageInstruction(replyLanguage))
	sb.WriteString("* Service Promotion: where it fits naturally, suggest relevant BAAP Company services based on the user's needs.\n")
	sb.WriteString("* Tone & Style: helpful, friendly, short, and natural. Always be respectful when referring to individuals or company matters. Avoid sounding robotic or overly formal.\n")
	sb.WriteString("* Optional Button: include a 'button' object in your JSON response ONLY if (1) the user explicitly asks for a phone number, email, or website URL, or (2) you cannot answer fully from the knowledge and a website would help. The button must have 'type' (\"phone_number\" or \"url\"), 'label' (max 20 characters), and 'value' (the actual phone number or URL). Otherwise omit the 'button' key entirely.\n")
	sb.WriteString("* JSON Response Format: always respond in JSON with one mandatory key \"response_text\" and the optional key \"button\".\n\n")

	sb.WriteString("Example JSON format:\n```json\n{\n  \"response_text\": \"You can reach us at 9876543210 for inquiries.\",\n  \"button\": {\n    \"type\": \"phone_number\",\n    \"label\": \"Call Now\",\n    \"value\": \"9876543210\"\n  }\n}\n```\n\n")

	sb.WriteString("[Conversation]:\n")
	sb.WriteString(formatHistory(history))
	sb.WriteString("User: ")
	sb.WriteString(userMessage)
	sb.WriteString("\nDiksha: ")

	return sb.String()
}

// languageInstruction returns the response-language rule for the prompt.
func languageInstruction(replyLanguage string) string {
	if replyLanguage == "mirror" {
		return "* Language: respond in the exact language the user is speaking (e.g. English, Marathi, Hindi). Switch only when the user switches.\n"
	}
	return "* Language: STRICTLY respond in English by default. Only if the user explicitly writes in another language (e.g. Marathi or Hindi), respond in that language. Do not switch languages unless the user initiates it.\n"
}

// buildAnalysisPrompt asks the model to label a finished conversation with an
// intent from the closed set plus a short purpose summary.
func buildAnalysisPrompt(turns []session.Turn) string {
	var sb strings.Builder

	sb.WriteString("Analyze the following conversation history between a user and Diksha. Identify the primary 'intent' and provide a brief 'purpose' for the conversation.\n\n")

	sb.WriteString("[Allowed Intents]:\n")
	sb.WriteString("general_info, product_info, pricing_inquiry, appointment_booking, support_request, lead_capture, portfolio_showcase, smart_recommendation, offers_inquiry, career_or_partnership\n\n")

	sb.WriteString("[Conversation History]:\n")
	sb.WriteString(formatHistory(turns))
	sb.WriteString("\n")

	sb.WriteString("[Instructions]:\n")
	sb.WriteString("Choose the most relevant intent from the [Allowed Intents] list. If no specific intent clearly matches, use 'general_info'. Provide a concise 1-2 sentence summary as the 'purpose'.\n")
	sb.WriteString("Respond strictly in JSON format with two keys: \"intent\" and \"purpose\".\n\n")

	sb.WriteString("Example JSON format:\n```json\n{\n  \"intent\": \"product_info\",\n  \"purpose\": \"The user inquired about the features and benefits of a specific company product.\"\n}\n```\n")

	return sb.String()
}

// formatHistory renders turns oldest-first as "User:"/"Diksha:" lines.
func formatHistory(turns []session.Turn) string {
	var sb strings.Builder
	for _, t := range turns {
		if t.Role == session.RoleUser {
			sb.WriteString("User: ")
		} else {
			sb.WriteString("Diksha: ")
		}
		sb.WriteString(t.Text)
		sb.WriteString("\n")
	}
	return sb.String()
}
