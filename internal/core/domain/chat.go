package domain

import "fmt"

type ChatStage string

const (
	ChatGreeting       ChatStage = "greeting"
	ChatExploring      ChatStage = "exploring"
	ChatBenefitFocus   ChatStage = "benefit_focus"
	ChatAwaitingReport ChatStage = "awaiting_report"
	ChatReportReviewed ChatStage = "report_reviewed"
)

type ChatAction string

const (
	ChatActionMessage         ChatAction = "message"
	ChatActionFocusBenefit    ChatAction = "focus_benefit"
	ChatActionRequestReport   ChatAction = "request_report"
	ChatActionReportProcessed ChatAction = "report_processed"
	ChatActionReset           ChatAction = "reset"
)

// ChatSession is the conversation state the client holds and sends back on every turn.
type ChatSession struct {
	Stage     ChatStage `json:"stage"`
	BenefitID string    `json:"benefit_id,omitempty"`
	Turns     int       `json:"turns"`
}

func NewChatSession() ChatSession {
	return ChatSession{Stage: ChatGreeting}
}

// Next applies an action and returns the following session state.
func (s ChatSession) Next(action ChatAction, benefitID string) (ChatSession, error) {
	if s.Stage == "" {
		s.Stage = ChatGreeting
	}
	next := s
	next.Turns = s.Turns + 1

	switch action {
	case ChatActionReset:
		return NewChatSession(), nil
	case ChatActionMessage, "":
		if s.Stage == ChatGreeting {
			next.Stage = ChatExploring
		}
	case ChatActionFocusBenefit:
		if benefitID == "" {
			return s, WrapError(ErrInvalidInput, "chat focus benefit", fmt.Errorf("benefit_id is required"))
		}
		next.Stage = ChatBenefitFocus
		next.BenefitID = benefitID
	case ChatActionRequestReport:
		next.Stage = ChatAwaitingReport
	case ChatActionReportProcessed:
		if s.Stage != ChatAwaitingReport {
			return s, WrapError(ErrInvalidInput, "chat report processed", fmt.Errorf("no report was requested in stage %q", s.Stage))
		}
		next.Stage = ChatReportReviewed
	default:
		return s, WrapError(ErrInvalidInput, "chat next", fmt.Errorf("unknown action %q", action))
	}
	return next, nil
}

type ChatRequest struct {
	Session   ChatSession `json:"session"`
	Action    ChatAction  `json:"action"`
	Message   string      `json:"message"`
	BenefitID string      `json:"benefit_id,omitempty"`
}

type ChatReply struct {
	Reply   string      `json:"reply"`
	Session ChatSession `json:"session"`
}
