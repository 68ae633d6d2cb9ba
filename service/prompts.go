package service

import (
	"fmt"
	"strings"

	"policydesk-backend/models"
)

const systemInstruction = `당신은 대한민국 공무원으로서 민원인의 문의에 친절하고 전문적으로 답변하는 민원처리 전문가입니다.

다음 지침을 따라주세요:
1. 항상 정중하고 공손한 어투를 사용하세요
2. 관련 법령이나 규정을 인용할 때는 정확한 조항을 명시하세요
3. 민원인이 이해하기 쉽도록 전문용어는 풀어서 설명하세요
4. 필요한 서류나 절차를 구체적으로 안내하세요
5. 추가 문의사항이 있는지 확인하세요`

// suggestFailureText replaces the suggested reply when its generation fails.
const suggestFailureText = "답변 생성 중 오류가 발생했습니다."

const (
	primaryTemperature = 0.7
	suggestTemperature = 0.7
)

// groundedContext is everything a grounded generation call may cite.
type groundedContext struct {
	faq     *models.DirectAnswer
	records []models.RetrievalRecord
	laws    []models.RetrievalRecord
}

func (c groundedContext) count() int {
	n := len(c.records) + len(c.laws)
	if c.faq != nil {
		n++
	}
	return n
}

// buildGroundedPrompt renders the context block followed by the question.
func buildGroundedPrompt(question string, c groundedContext) string {
	var b strings.Builder
	b.WriteString("다음 참고 자료만을 근거로 민원인의 질문에 답변해주세요. 참고 자료에 없는 조항을 만들어내지 마세요.\n\n")

	if c.faq != nil {
		b.WriteString("[FAQ]\n")
		fmt.Fprintf(&b, "질문: %s\n답변: %s\n", c.faq.Question, c.faq.AnswerText)
		if c.faq.PolicyAnchor != "" {
			fmt.Fprintf(&b, "관련 법령: %s\n", c.faq.PolicyAnchor)
		}
		b.WriteString("\n")
	}

	if len(c.records) > 0 {
		b.WriteString("[참고 문서]\n")
		for i, r := range c.records {
			fmt.Fprintf(&b, "%d. (%s)\n%s\n", i+1, r.SourceDocumentName, strings.TrimSpace(r.Content))
		}
		b.WriteString("\n")
	}

	if len(c.laws) > 0 {
		b.WriteString("[관련 법령]\n")
		for _, l := range c.laws {
			fmt.Fprintf(&b, "- %s\n%s\n", l.SourceDocumentName, strings.TrimSpace(l.Content))
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "민원 문의: %s", question)
	return b.String()
}

func buildSuggestPrompt(question, answer string) string {
	return fmt.Sprintf(`다음 민원 문의와 답변을 바탕으로 공식적인 민원 답변서를 작성해주세요.

민원 문의: %s
초기 답변: %s

답변서는 다음 형식을 따라주세요:
1. 인사말
2. 민원 내용 확인
3. 구체적인 답변
4. 필요한 조치사항
5. 맺음말

공식적이고 정중한 어투로 작성해주세요.`, question, answer)
}

// stripCodeFences removes literal ``` markers, including any language tag
// right after an opening fence.
func stripCodeFences(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") && !strings.Contains(strings.TrimPrefix(trimmed, "```"), " ") {
			continue
		}
		out = append(out, strings.ReplaceAll(line, "```", ""))
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
