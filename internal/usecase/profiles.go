package usecase

import (
	"fmt"

	"AutoTrader/internal/domain/models"
)

// Profiles indexes mode profiles for request lookups.
type Profiles []models.ModeProfile

func (p Profiles) Lookup(mode string) (models.ModeProfile, error) {
	m, err := models.ParseMode(mode)
	if err != nil {
		return models.ModeProfile{}, err
	}
	for _, prof := range p {
		if prof.Mode == m {
			return prof, nil
		}
	}
	return models.ModeProfile{}, fmt.Errorf("%w: %s is not configured", models.ErrUnknownMode, m.Key())
}
