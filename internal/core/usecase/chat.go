package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kirillkom/theo-assistant/internal/core/domain"
	"github.com/kirillkom/theo-assistant/internal/core/ports"
)

const (
	maxChatMessageRunes = 4000
	chatGreeting        = "Olá! Eu sou o Theo. Posso ajudar você a descobrir benefícios e direitos para a sua criança. Por onde quer começar?"
)

var chatFallbacks = map[domain.ChatStage]string{
	domain.ChatGreeting:       chatGreeting,
	domain.ChatExploring:      "Estou aqui para ajudar. Você pode me contar um pouco sobre a sua criança ou escolher um benefício para conhecer melhor.",
	domain.ChatBenefitFocus:   "Vamos ver esse benefício com calma. Posso mostrar os requisitos e o passo a passo para pedir.",
	domain.ChatAwaitingReport: "Quando puder, envie o laudo médico. Eu leio só o necessário e não guardo dados pessoais.",
	domain.ChatReportReviewed: "Já analisei o laudo. Se quiser, começamos pelo benefício de maior prioridade.",
}

// ChatUseCase answers one turn. The session travels with each request; nothing is stored.
type ChatUseCase struct {
	generator ports.TextGenerator
	catalog   ports.BenefitCatalog
	observer  ports.PipelineObserver
}

func NewChatUseCase(generator ports.TextGenerator, catalog ports.BenefitCatalog, observer ports.PipelineObserver) *ChatUseCase {
	return &ChatUseCase{generator: generator, catalog: catalog, observer: observerOrNoop(observer)}
}

func (uc *ChatUseCase) Respond(ctx context.Context, req domain.ChatRequest) (*domain.ChatReply, error) {
	if req.Action == domain.ChatActionFocusBenefit && req.BenefitID != "" && uc.catalog != nil {
		if _, ok := uc.catalog.Get(req.BenefitID); !ok {
			return nil, domain.WrapError(domain.ErrNotFound, "chat focus benefit", fmt.Errorf("benefit %q", req.BenefitID))
		}
	}
	next, err := req.Session.Next(req.Action, req.BenefitID)
	if err != nil {
		return nil, err
	}
	if req.Action == domain.ChatActionReset {
		return &domain.ChatReply{Reply: chatGreeting, Session: next}, nil
	}

	message := truncateRunes(strings.TrimSpace(req.Message), maxChatMessageRunes)
	reply, err := uc.generate(ctx, next, message)
	if err != nil {
		noteFallback(ctx, uc.observer, domain.FallbackChat, err)
		reply = chatFallbacks[next.Stage]
	}
	return &domain.ChatReply{Reply: reply, Session: next}, nil
}

func (uc *ChatUseCase) generate(ctx context.Context, session domain.ChatSession, message string) (string, error) {
	if uc.generator == nil {
		return "", missingGenerator("chat reply")
	}
	var focus *domain.BenefitDescriptor
	var entries []domain.BenefitDescriptor
	if uc.catalog != nil {
		if b, ok := uc.catalog.Get(session.BenefitID); ok {
			focus = &b
		}
		entries = uc.catalog.Entries()
	}
	text, err := uc.generator.Generate(ctx, domain.GenerationRequest{
		Task:   domain.TaskChat,
		System: systemAssistant,
		Prompt: buildChatPrompt(session, focus, message, entries),
	})
	if err != nil {
		return "", err
	}
	text = LimitEmphasis(strings.TrimSpace(text), maxEmphasisSpans)
	if text == "" {
		return "", errors.New("empty chat reply")
	}
	return text, nil
}
