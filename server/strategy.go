package server

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
)

// Recognizer turns a captured circle into text.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// DefaultTexts is the word list the RotatingRecognizer cycles through.
var DefaultTexts = []string{
	"这是一个笔记",
	"重要任务",
	"会议记录",
	"创意想法",
	"待办事项",
	"项目计划",
	"联系人信息",
	"备忘录",
}

// RotatingRecognizer ignores the image and answers with the next entry of a
// fixed list. It stands in for a real OCR service.
type RotatingRecognizer struct {
	texts []string
	next  atomic.Uint64
}

// NewRotatingRecognizer cycles through texts, or DefaultTexts when empty.
func NewRotatingRecognizer(texts ...string) *RotatingRecognizer {
	if len(texts) == 0 {
		texts = DefaultTexts
	}
	return &RotatingRecognizer{texts: texts}
}

func (r *RotatingRecognizer) Recognize(_ context.Context, image []byte) (string, error) {
	if len(image) == 0 {
		return "", fmt.Errorf("recognize: empty image")
	}
	i := r.next.Add(1) - 1
	return r.texts[i%uint64(len(r.texts))], nil
}

// Assistant answers free-form chat and topic advice requests.
type Assistant interface {
	Chat(ctx context.Context, input string) (string, error)
	// Advice receives the active thoughts and solutions filed under topic.
	Advice(ctx context.Context, topic string, thoughts, solutions []string) (string, error)
}

// RuleAssistant is a canned responder: it reflects the user's words back as
// a question and summarizes a topic's notes.
type RuleAssistant struct{}

func (RuleAssistant) Chat(_ context.Context, input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "写下一个念头，我们从那里开始。", nil
	}
	return fmt.Sprintf("你提到了“%s”。它让你想到了什么？", input), nil
}

func (RuleAssistant) Advice(_ context.Context, topic string, thoughts, solutions []string) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "主题“%s”下有 %d 个思绪、%d 个方案。", topic, len(thoughts), len(solutions))
	switch {
	case len(thoughts) == 0 && len(solutions) == 0:
		b.WriteString("先写下第一个念头吧。")
	case len(solutions) == 0:
		fmt.Fprintf(&b, "从“%s”出发，能得出什么结论？", thoughts[len(thoughts)-1])
	default:
		fmt.Fprintf(&b, "最近的方案是“%s”，哪一步可以马上开始？", solutions[len(solutions)-1])
	}
	return b.String(), nil
}
