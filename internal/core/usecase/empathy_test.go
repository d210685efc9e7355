package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kirillkom/theo-assistant/internal/core/domain"
)

func TestLimitEmphasis(t *testing.T) {
	in := "**um** e **dois** e **três** e **quatro** e **cinco**"
	out := LimitEmphasis(in, 3)
	assert.Equal(t, "**um** e **dois** e **três** e quatro e cinco", out)
	assert.Equal(t, "sem destaque", LimitEmphasis("sem destaque", 3))
}

func TestExplainLimitsEmphasis(t *testing.T) {
	gen := &fakeGenerator{respond: byTask(map[domain.GenerationTask]string{
		domain.TaskEmpathy: "**a** **b** **c** **d**",
	})}
	uc := NewEmpathyWriter(gen, nil)

	text := uc.Explain(context.Background(), benefit("x", domain.PriorityHigh), domain.EmptyFacts())
	assert.Equal(t, 6, strings.Count(text, "**"))
}

func TestEmpathyFallbacks(t *testing.T) {
	obs := newRecordingObserver()
	uc := NewEmpathyWriter(&fakeGenerator{}, obs)
	b := benefit("x", domain.PriorityHigh)

	explain := uc.Explain(context.Background(), b, domain.EmptyFacts())
	support := uc.SupportMessage(context.Background(), domain.EmptyFacts())

	assert.Equal(t, ExplainFallback(b), explain)
	assert.Contains(t, explain, b.Name)
	assert.NotEmpty(t, support)
	assert.Equal(t, 1, obs.fallbackCount(domain.FallbackExplain))
	assert.Equal(t, 1, obs.fallbackCount(domain.FallbackSupport))
}

func TestSupportMessageBlankOutputFallsBack(t *testing.T) {
	gen := &fakeGenerator{respond: byTask(map[domain.GenerationTask]string{domain.TaskEmpathy: "   "})}
	uc := NewEmpathyWriter(gen, nil)
	assert.NotEmpty(t, strings.TrimSpace(uc.SupportMessage(context.Background(), domain.EmptyFacts())))
}
