package role

import (
	"github.com/rpggio/rolecall/internal/apperr"
	"github.com/rpggio/rolecall/internal/domain/collab"
)

// ValidateDefinition validates fields required to create a role.
func ValidateDefinition(def Definition) error {
	if err := collab.ValidateTitle(def.Title); err != nil {
		return err
	}
	if err := collab.ValidateText("description", def.Description); err != nil {
		return err
	}
	if err := collab.ValidateSkills(def.RequiredSkills); err != nil {
		return err
	}
	if err := collab.ValidateSkills(def.PreferredSkills); err != nil {
		return err
	}
	return collab.ValidateMaxParticipants(def.MaxParticipants)
}

// ValidatePatch validates the fields present in an update.
func ValidatePatch(p Patch) error {
	if p.empty() {
		return apperr.Validation("update has no fields")
	}
	if p.Title != nil {
		if err := collab.ValidateTitle(*p.Title); err != nil {
			return err
		}
	}
	if p.Description != nil {
		if err := collab.ValidateText("description", *p.Description); err != nil {
			return err
		}
	}
	if p.RequiredSkills != nil {
		if err := collab.ValidateSkills(*p.RequiredSkills); err != nil {
			return err
		}
	}
	if p.PreferredSkills != nil {
		if err := collab.ValidateSkills(*p.PreferredSkills); err != nil {
			return err
		}
	}
	if p.MaxParticipants != nil {
		if *p.MaxParticipants < 1 {
			return apperr.Validation("max participants must be at least 1")
		}
		if err := collab.ValidateMaxParticipants(*p.MaxParticipants); err != nil {
			return err
		}
	}
	return nil
}
