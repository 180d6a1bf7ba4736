package engine

import (
	"fmt"

	"github.com/tatianab/dungeon-floor/internal/models"
	"github.com/tatianab/dungeon-floor/internal/prompt"
)

// Kind tags the variant of a Result.
type Kind int

const (
	// KindError is a recoverable rejection; the player should try again.
	KindError Kind = iota
	// KindSuggestedAction means the floor continues with new choices.
	KindSuggestedAction
	// KindEnd means the floor is over and the player may move on.
	KindEnd
	// KindDefeat means the player ran out of health.
	KindDefeat
)

func (k Kind) String() string {
	switch k {
	case KindError:
		return "error"
	case KindSuggestedAction:
		return "suggested_action"
	case KindEnd:
		return "end"
	case KindDefeat:
		return "defeat"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Rejection explains a KindError result.
type Rejection string

const (
	RejectTooShort     Rejection = "too short"
	RejectInconsistent Rejection = "not consistent with narrative"
	RejectUnknown      Rejection = "cannot classify"
	RejectNoItem       Rejection = "no usable item"
	RejectUnidentified Rejection = "cannot identify item"
	RejectFloorOver    Rejection = "floor is over"
)

// Outcome is how a floor ended.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	OutcomeSkipped   Outcome = "skipped"
)

// Reward is what the player received for completing a floor. Amount is the
// change that actually took effect after clamping.
type Reward struct {
	Type      prompt.RewardType `json:"type"`
	Attribute models.Attribute  `json:"attribute,omitempty"`
	Amount    int               `json:"amount"`
}

func (r Reward) String() string {
	switch r.Type {
	case prompt.RewardHeal:
		return fmt.Sprintf("You recover %d health.", r.Amount)
	case prompt.RewardMaxHealthIncrease:
		return fmt.Sprintf("Your maximum health increases by %d.", r.Amount)
	case prompt.RewardAttributeIncrease:
		if r.Amount == 0 {
			return fmt.Sprintf("Your %s cannot grow any further.", r.Attribute)
		}
		return fmt.Sprintf("Your %s increases by %d.", r.Attribute, r.Amount)
	}
	return string(r.Type)
}

// Result is the outcome of one floor call. Messages is the turn transcript
// shown to the player; the other fields depend on Kind.
type Result struct {
	Kind     Kind
	Messages []models.Entry

	// KindError
	Rejection Rejection
	// KindSuggestedAction
	SuggestedActions []string
	// KindEnd
	Outcome Outcome
	Reward  *Reward
}

func rejected(r Rejection) Result {
	return Result{Kind: KindError, Rejection: r}
}

// transcript collects the messages of a single turn.
type transcript []models.Entry

func (t *transcript) player(text string) {
	*t = append(*t, models.Entry{Role: models.PlayerRole, Content: text})
}

func (t *transcript) narrator(text string) {
	*t = append(*t, models.Entry{Role: models.Narrator, Content: text})
}

func (t *transcript) system(format string, args ...any) {
	*t = append(*t, models.Entry{Role: models.System, Content: fmt.Sprintf(format, args...)})
}
