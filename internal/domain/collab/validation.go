package collab

import (
	"fmt"
	"strings"

	"github.com/rpggio/rolecall/internal/apperr"
)

const (
	maxTitleLen        = 200
	maxTextLen         = 4000
	maxEvidenceRefs    = 20
	maxEvidenceRefLen  = 512
	maxSkills          = 30
	maxParticipantsCap = 100
)

// ValidateActor checks that an actor id was supplied.
func ValidateActor(actorID string) error {
	if strings.TrimSpace(actorID) == "" {
		return apperr.Validation("actor id is required")
	}
	return nil
}

// ValidateID checks that an entity id was supplied.
func ValidateID(name, id string) error {
	if strings.TrimSpace(id) == "" {
		return apperr.Validation(name + " is required")
	}
	return nil
}

// ValidateTitle checks a required, bounded title.
func ValidateTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return apperr.Validation("title is required")
	}
	if len(title) > maxTitleLen {
		return apperr.Validation(fmt.Sprintf("title exceeds %d characters", maxTitleLen))
	}
	return nil
}

// ValidateText bounds a free-text field.
func ValidateText(name, text string) error {
	if len(text) > maxTextLen {
		return apperr.Validation(fmt.Sprintf("%s exceeds %d characters", name, maxTextLen))
	}
	return nil
}

// ValidateEvidenceRefs checks opaque evidence references for shape only.
func ValidateEvidenceRefs(refs []string) error {
	if len(refs) > maxEvidenceRefs {
		return apperr.Validation(fmt.Sprintf("at most %d evidence refs are allowed", maxEvidenceRefs))
	}
	for _, ref := range refs {
		if strings.TrimSpace(ref) == "" {
			return apperr.Validation("evidence refs must not be empty")
		}
		if len(ref) > maxEvidenceRefLen {
			return apperr.Validation(fmt.Sprintf("evidence ref exceeds %d characters", maxEvidenceRefLen))
		}
	}
	return nil
}

// ValidateSkills checks skill names and levels.
func ValidateSkills(skills []Skill) error {
	if len(skills) > maxSkills {
		return apperr.Validation(fmt.Sprintf("at most %d skills are allowed", maxSkills))
	}
	for _, s := range skills {
		if strings.TrimSpace(s.Name) == "" {
			return apperr.Validation("skill name is required")
		}
		switch s.Level {
		case LevelBeginner, LevelIntermediate, LevelAdvanced, LevelExpert:
		default:
			return apperr.Validation(fmt.Sprintf("unknown skill level %q", s.Level))
		}
	}
	return nil
}

// ValidateMaxParticipants checks a seat count. Zero means the default of one.
func ValidateMaxParticipants(n int) error {
	if n < 0 || n > maxParticipantsCap {
		return apperr.Validation(fmt.Sprintf("max participants must be between 1 and %d", maxParticipantsCap))
	}
	return nil
}

// RequireCreator returns ErrNotCreator unless actorID created c.
func RequireCreator(c *Collaboration, actorID string) error {
	if !c.IsCreator(actorID) {
		return ErrNotCreator
	}
	return nil
}
