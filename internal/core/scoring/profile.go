package scoring

import "strings"

// DefaultCategoryWeight applies to categories missing from the table.
const DefaultCategoryWeight = 0.3

var defaultCategoryWeights = map[string]float64{
	"금융":     1.0,
	"부동산":    1.0,
	"보험":     0.95,
	"자동차":    0.9,
	"교육":     0.8,
	"의료":     0.8,
	"여행":     0.75,
	"전자제품":   0.7,
	"쇼핑":     0.6,
	"뷰티":     0.55,
	"패션":     0.5,
	"음식":     0.45,
	"생활":     0.4,
	"엔터테인먼트": 0.35,
	"기타":     0.3,
}

var defaultHighIntentSignals = []string{
	"구매", "구입", "주문", "결제", "예약", "예매", "신청", "가입", "계약",
	"비교", "할인", "쿠폰", "최저가", "견적", "가격", "특가", "세일",
	"buy", "purchase", "order", "booking", "book", "compare", "discount", "coupon", "deal", "price",
}

var defaultMidIntentSignals = []string{
	"추천", "후기", "리뷰", "스펙", "사양", "성능", "장단점", "정보", "알아보", "조사", "차이",
	"review", "spec", "recommend", "research", "versus", "vs",
}

// Profile holds the immutable lookup tables used by the scorer.
type Profile struct {
	categoryWeights map[string]float64
	highSignals     []string
	midSignals      []string
}

// DefaultProfile returns the built-in category table and intent lexicons.
func DefaultProfile() Profile {
	return NewProfile(defaultCategoryWeights, defaultHighIntentSignals, defaultMidIntentSignals)
}

// NewProfile copies its inputs so later mutation by the caller has no effect.
// Weights are clamped to [0,1]; signals are lowercased and blank ones dropped.
func NewProfile(weights map[string]float64, high, mid []string) Profile {
	p := Profile{
		categoryWeights: make(map[string]float64, len(weights)),
		highSignals:     normalizeSignals(high),
		midSignals:      normalizeSignals(mid),
	}
	for category, w := range weights {
		p.categoryWeights[strings.TrimSpace(category)] = clamp01(w)
	}
	return p
}

// CategoryWeight returns the importance of category, or
// DefaultCategoryWeight when it is not in the table.
func (p Profile) CategoryWeight(category string) float64 {
	if w, ok := p.categoryWeights[category]; ok {
		return w
	}
	return DefaultCategoryWeight
}

func (p Profile) hasHighSignal(text string) bool { return containsAny(text, p.highSignals) }

func (p Profile) hasMidSignal(text string) bool { return containsAny(text, p.midSignals) }

func normalizeSignals(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func containsAny(text string, signals []string) bool {
	for _, s := range signals {
		if strings.Contains(text, s) {
			return true
		}
	}
	return false
}
