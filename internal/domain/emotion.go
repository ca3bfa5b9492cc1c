package domain

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Emotion is the primary emotion recorded against a purchase.
type Emotion string

const (
	EmotionHappy       Emotion = "happy"
	EmotionExcited     Emotion = "excited"
	EmotionCelebratory Emotion = "celebratory"
	EmotionNeutral     Emotion = "neutral"
	EmotionPlanned     Emotion = "planned"
	EmotionBored       Emotion = "bored"
	EmotionTired       Emotion = "tired"
	EmotionStressed    Emotion = "stressed"
	EmotionAnxious     Emotion = "anxious"
	EmotionFrustrated  Emotion = "frustrated"
	EmotionSad         Emotion = "sad"
	EmotionGuilty      Emotion = "guilty"
	EmotionImpulsive   Emotion = "impulsive"
)

// TimeOfDay buckets the moment a purchase happened.
type TimeOfDay string

const (
	TimeMorning   TimeOfDay = "morning"
	TimeAfternoon TimeOfDay = "afternoon"
	TimeEvening   TimeOfDay = "evening"
	TimeLateNight TimeOfDay = "late_night"
)

// DayType buckets the kind of day a purchase happened on.
type DayType string

const (
	DayWeekday  DayType = "weekday"
	DayWeekend  DayType = "weekend"
	DayHoliday  DayType = "holiday"
	DayExamWeek DayType = "exam_week"
)

// EmotionAnnotation is the emotional context a user attached to a purchase.
// The reflection fields (RegretLevel, BroughtJoy, WouldBuyAgain) are filled in
// later and are the only ones that change after creation.
type EmotionAnnotation struct {
	PrimaryEmotion Emotion `json:"primary_emotion" validate:"required,oneof=happy excited celebratory neutral planned bored tired stressed anxious frustrated sad guilty impulsive"`
	Intensity      int     `json:"intensity" validate:"omitempty,min=1,max=10"`
	StressLevel    *int    `json:"stress_level,omitempty" validate:"omitempty,min=1,max=10"`

	WasUrgent    bool `json:"was_urgent"`
	WasNecessary bool `json:"was_necessary"`
	IsAsset      bool `json:"is_asset"`

	Reason    string    `json:"reason,omitempty"`
	TimeOfDay TimeOfDay `json:"time_of_day,omitempty" validate:"omitempty,oneof=morning afternoon evening late_night"`
	DayType   DayType   `json:"day_type,omitempty" validate:"omitempty,oneof=weekday weekend holiday exam_week"`
	Trigger   string    `json:"trigger,omitempty"`

	RegretLevel   *int  `json:"regret_level,omitempty" validate:"omitempty,min=1,max=10"`
	BroughtJoy    *bool `json:"brought_joy,omitempty"`
	WouldBuyAgain *bool `json:"would_buy_again,omitempty"`
}

var validate = validator.New()

// Validate checks the annotation ranges and vocabularies.
func (a EmotionAnnotation) Validate() error {
	if err := validate.Struct(a); err != nil {
		return fmt.Errorf("emotion annotation: %w", err)
	}
	return nil
}
