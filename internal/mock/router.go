package mock

import "strings"

// DefaultAgent handles messages that match no keyword.
const DefaultAgent = "CD"

// KeywordRule lists the keywords that route a message to Agent.
type KeywordRule struct {
	Agent    string
	Keywords []string
}

// DefaultRules returns the stock keyword table. Order breaks ties.
func DefaultRules() []KeywordRule {
	return []KeywordRule{
		{Agent: "CD", Keywords: []string{"철학", "방향", "브랜드", "비전", "미션", "승인", "전략", "가치", "본질", "정체성"}},
		{Agent: "TD", Keywords: []string{"코드", "버그", "서버", "API", "스크립트", "배포", "시스템", "아키텍처", "구현", "개발"}},
		{Agent: "AD", Keywords: []string{"디자인", "UI", "로고", "시각", "레이아웃", "폰트", "색상", "이미지", "비주얼"}},
		{Agent: "CE", Keywords: []string{"카피", "문구", "톤", "글", "콘텐츠", "에디토리얼", "매니페스토", "슬로건", "텍스트"}},
		{Agent: "SA", Keywords: []string{"트렌드", "분석", "데이터", "시장", "경쟁", "리서치", "인사이트", "통계", "조사"}},
	}
}

// Router picks the agent whose keywords appear most often in a message.
type Router struct {
	rules    []KeywordRule
	fallback string
}

func NewRouter(rules []KeywordRule, fallback string) *Router {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	if fallback == "" {
		fallback = DefaultAgent
	}
	return &Router{rules: rules, fallback: fallback}
}

// Route returns the chosen agent key and its keyword score. Each keyword
// counts once. Ties go to the earlier rule.
func (r *Router) Route(message string) (string, int) {
	best, bestScore := r.fallback, 0
	for _, rule := range r.rules {
		score := 0
		for _, kw := range rule.Keywords {
			if strings.Contains(message, kw) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = rule.Agent, score
		}
	}
	return best, bestScore
}
