package features

import "github.com/dvloznov/finance-insights/internal/domain"

// DefaultStressNormalized is used for annotations without a stress level.
const DefaultStressNormalized = 0.5

var emotionScores = map[domain.Emotion]int{
	domain.EmotionHappy:       1,
	domain.EmotionExcited:     2,
	domain.EmotionCelebratory: 3,
	domain.EmotionNeutral:     0,
	domain.EmotionPlanned:     0,
	domain.EmotionBored:       -1,
	domain.EmotionTired:       -1,
	domain.EmotionStressed:    -2,
	domain.EmotionAnxious:     -2,
	domain.EmotionFrustrated:  -2,
	domain.EmotionImpulsive:   -2,
	domain.EmotionSad:         -3,
	domain.EmotionGuilty:      -3,
}

var impulsiveEmotions = map[domain.Emotion]bool{
	domain.EmotionImpulsive: true,
	domain.EmotionBored:     true,
	domain.EmotionStressed:  true,
}

// EmotionScore maps an emotion onto its ordinal valence. Unknown emotions score 0.
func EmotionScore(e domain.Emotion) int {
	return emotionScores[e]
}

// EmotionalFeatures are the numeric features of one annotated transaction.
type EmotionalFeatures struct {
	TransactionID    string  `json:"transaction_id"`
	EmotionScore     int     `json:"emotion_score"`
	WasImpulsive     bool    `json:"was_impulsive"`
	StressNormalized float64 `json:"stress_normalized"`
}

// CreateEmotionalFeatures computes emotional features for every transaction.
// Transactions without an annotation get neutral defaults.
func CreateEmotionalFeatures(txns []domain.Transaction) []EmotionalFeatures {
	out := make([]EmotionalFeatures, len(txns))
	for i, t := range txns {
		f := EmotionalFeatures{TransactionID: t.ID, StressNormalized: DefaultStressNormalized}
		if a := t.Emotion; a != nil {
			f.EmotionScore = EmotionScore(a.PrimaryEmotion)
			f.WasImpulsive = impulsiveEmotions[a.PrimaryEmotion] || !a.WasNecessary
			if a.StressLevel != nil {
				f.StressNormalized = float64(*a.StressLevel) / 10
			}
		}
		out[i] = f
	}
	return out
}
