package services

import (
	"fmt"
	"strings"

	"github.com/preceptorly/feedback-backend/internal/standards"
	"github.com/preceptorly/feedback-backend/internal/types"
)

// Assistant-facing copy. Every message the machine emits is assembled here so
// the conversation flow stays deterministic and testable.

func welcomeMessage(total int) string {
	return fmt.Sprintf("Welcome! I'm the Clinical Feedback Helper. "+
		"I'll walk you through the %d BCCNM practice standards and collect your feedback on the student's performance, "+
		"asking for specific examples along the way. "+
		"No names are needed - please refer to 'the student' and 'the patient' throughout.", total)
}

func standardIntroMessage(std standards.Standard, position, total int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Standard %d of %d: %s.\n\n%s\n\n", position, total, std.FullName, std.Description)
	fmt.Fprintf(&b, "How has the student performed in this area? Consider: %s.", strings.Join(std.KeyAreas, "; "))
	return b.String()
}

func nextStandardMessage(std standards.Standard, position, total int) string {
	return "Great! Let's move on.\n\n" + standardIntroMessage(std, position, total)
}

func probeMessage(std standards.Standard, quality types.FeedbackQuality) string {
	switch quality {
	case types.QualityVague:
		var hint string
		if len(std.ExampleQuestions) > 0 {
			hint = " For instance: " + std.ExampleQuestions[0]
		}
		return fmt.Sprintf("Could you tell me more? General impressions are a good start, "+
			"but specific details about the student's %s would make this feedback much more useful.%s",
			strings.ToLower(std.Name), hint)
	default:
		return "That's helpful detail. Could you describe a specific clinical situation where you observed this? " +
			"A concrete example makes the feedback far more actionable for the student."
	}
}

func confirmationMessage(std standards.Standard, summary, suggestion string) string {
	return fmt.Sprintf("Thank you for that detailed feedback. Based on our discussion, here is what I've captured:\n\n"+
		"Summary for %s:\n%s\n\n"+
		"Suggested Action for Student:\n%s\n\n"+
		"Does this accurately capture your feedback, or would you like to make any changes?",
		std.FullName, summary, suggestion)
}

func reviseAckMessage() string {
	return "I understand. Please provide the feedback you'd like me to capture instead, and I'll update the summary."
}

func ambiguousConfirmMessage() string {
	return "Just to confirm - does this summary accurately capture your feedback? " +
		"Please respond with 'yes' to continue, or let me know what you'd like to change."
}

func privacyWarningMessage(findings []string) string {
	var b strings.Builder
	b.WriteString("I noticed that your response may contain personally identifiable information")
	if len(findings) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(findings, ", "))
	}
	b.WriteString(".\n\nFor privacy reasons, please rephrase your feedback without including:\n")
	b.WriteString("- Specific names (patient or student)\n")
	b.WriteString("- Facility names or locations\n")
	b.WriteString("- Specific dates\n")
	b.WriteString("- Medical record numbers or room numbers\n\n")
	b.WriteString("You can refer to 'the student' and 'the patient' instead. Please provide your feedback again.")
	return b.String()
}

func emailRequestMessage() string {
	return "That completes all four standards - thank you for your time and detailed feedback. " +
		"Your responses will be compiled into a structured report. " +
		"Please share your health authority email address so I can send it to you."
}

func emailThanksMessage(email string) string {
	return fmt.Sprintf("Thank you! I've recorded your email as %s. "+
		"Your feedback report will be compiled and sent shortly.", email)
}

func emailRepromptMessage() string {
	return "I didn't spot an email address in that message. " +
		"Please share your health authority email address, and I'll send the report there."
}

func postCompletionAckMessage() string {
	return "Thank you for your time today. Your feedback has been recorded. " +
		"If you have any questions or need to make changes, please contact your program coordinator."
}

func capabilityRetryMessage() string {
	return "I'm having trouble processing that right now. Please send your message again in a moment."
}

func emptyInputPromptMessage() string {
	return "I didn't catch that - could you share your feedback again?"
}
