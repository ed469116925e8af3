// Package scoring ranks advertiser campaigns against a user's intent.
//
// The score is a weighted sum of four sub-scores, each in [0,1]:
//
//	category value     0.25
//	search intensity   0.25
//	site reliability   0.20
//	keyword relevance  0.30
//
// Scoring is pure: no I/O, no errors, missing fields contribute zero.
package scoring

import (
	"math"
	"strings"

	"github.com/kirillkom/intendex/internal/core/domain"
)

const (
	WeightCategory    = 0.25
	WeightIntensity   = 0.25
	WeightReliability = 0.20
	WeightRelevance   = 0.30
)

const (
	confidenceFactor = 0.4
	highSignalBonus  = 0.4
	midSignalBonus   = 0.2
	pointValueFactor = 0.2
	budgetFactor     = 0.5
	landingURLBonus  = 0.3
	siteNameBonus    = 0.2
	jaccardFactor    = 0.6
	partialHitFactor = 0.4
)

// Breakdown is the per-factor view of one score.
type Breakdown struct {
	Category    float64 `json:"category"`
	Intensity   float64 `json:"intensity"`
	Reliability float64 `json:"reliability"`
	Relevance   float64 `json:"relevance"`
	Total       float64 `json:"total"`
}

type Scorer struct {
	profile Profile
}

func NewScorer(profile Profile) *Scorer {
	return &Scorer{profile: profile}
}

// Score returns the relevance of campaign for intent in [0,1].
func (s *Scorer) Score(intent *domain.Intent, campaign *domain.Campaign) float64 {
	return s.Breakdown(intent, campaign).Total
}

func (s *Scorer) Breakdown(intent *domain.Intent, campaign *domain.Campaign) Breakdown {
	if intent == nil || campaign == nil {
		return Breakdown{}
	}
	b := Breakdown{
		Category:    s.categoryValue(intent, campaign),
		Intensity:   s.searchIntensity(intent),
		Reliability: siteReliability(campaign),
		Relevance:   keywordRelevance(intent, campaign),
	}
	b.Total = clamp01(WeightCategory*b.Category +
		WeightIntensity*b.Intensity +
		WeightReliability*b.Reliability +
		WeightRelevance*b.Relevance)
	return b
}

func (s *Scorer) categoryValue(intent *domain.Intent, campaign *domain.Campaign) float64 {
	if intent.Category == "" || intent.Category != campaign.Category {
		return 0
	}
	return s.profile.CategoryWeight(intent.Category)
}

func (s *Scorer) searchIntensity(intent *domain.Intent) float64 {
	if !intent.IsCommercial {
		return 0
	}
	score := confidenceFactor * clamp01(intent.Confidence)

	text := strings.ToLower(intent.Keyword + " " + intent.Description)
	switch {
	case s.profile.hasHighSignal(text):
		score += highSignalBonus
	case s.profile.hasMidSignal(text):
		score += midSignalBonus
	}

	score += pointValueFactor * clamp01(float64(intent.PointValue)/float64(domain.MaxPointValue))
	return clamp01(score)
}

func siteReliability(campaign *domain.Campaign) float64 {
	score := budgetFactor * campaign.RemainingBudgetRatio()
	if strings.TrimSpace(campaign.URL) != "" {
		score += landingURLBonus
	}
	if strings.TrimSpace(campaign.SiteName) != "" {
		score += siteNameBonus
	}
	return clamp01(score)
}

func keywordRelevance(intent *domain.Intent, campaign *domain.Campaign) float64 {
	if verbatimKeywordMatch(intent.Keyword, campaign.Keywords) {
		return 1.0
	}

	intentTokens := tokenSet(intent.Keyword, intent.Subcategory)
	campaignTokens := tokenSet(campaign.Keywords...)
	if len(intentTokens) == 0 || len(campaignTokens) == 0 {
		return 0
	}

	return clamp01(jaccardFactor*jaccard(intentTokens, campaignTokens) +
		partialHitFactor*partialHitRatio(intentTokens, campaignTokens))
}

// verbatimKeywordMatch reports whether any campaign keyword equals, contains
// or is contained by the intent keyword, ignoring case.
func verbatimKeywordMatch(keyword string, campaignKeywords []string) bool {
	kw := strings.ToLower(strings.TrimSpace(keyword))
	if kw == "" {
		return false
	}
	for _, ck := range campaignKeywords {
		ck = strings.ToLower(strings.TrimSpace(ck))
		if ck == "" {
			continue
		}
		if ck == kw || strings.Contains(ck, kw) || strings.Contains(kw, ck) {
			return true
		}
	}
	return false
}

func jaccard(a, b map[string]struct{}) float64 {
	intersection := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// partialHitRatio counts intent tokens that contain, or are contained by, at
// least one campaign token. Each intent token counts at most once.
func partialHitRatio(intentTokens, campaignTokens map[string]struct{}) float64 {
	hits := 0
	for it := range intentTokens {
		for ct := range campaignTokens {
			if strings.Contains(ct, it) || strings.Contains(it, ct) {
				hits++
				break
			}
		}
	}
	return float64(hits) / float64(len(intentTokens))
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
