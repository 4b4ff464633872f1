package availability

import "quicktable/internal/config"

// PolicyFromConfig maps the availability section onto a Policy. Unset
// switches keep their DefaultPolicy values.
func PolicyFromConfig(cfg config.AvailabilityConfig) Policy {
	p := DefaultPolicy()
	if cfg.LimitedThreshold > 0 {
		p.LimitedThreshold = cfg.LimitedThreshold
	}
	p.PartyHeadroom = cfg.PartyHeadroom
	if cfg.CountCancelled != nil {
		p.CountCancelled = *cfg.CountCancelled
	}
	if cfg.HonorBlockedDates != nil {
		p.HonorBlockedDates = *cfg.HonorBlockedDates
	}
	return p
}
