package monitoring

import (
	"fmt"

	"github.com/fermwise/farm-monitoring/internal/domain"
)

const outdatedSuffix = " Some sensor data is outdated."

func deviceSummary(name string, status domain.HealthStatus, t deviceTally) string {
	switch status {
	case domain.Critical:
		return fmt.Sprintf("Device \"%s\" has critical issues: %d critical alert(s) require immediate action.", name, t.critical)
	case domain.NeedsAttention:
		s := fmt.Sprintf("Device \"%s\" requires attention: %d warning(s) detected.", name, t.warning)
		if t.stale {
			s += outdatedSuffix
		}
		return s
	}
	return fmt.Sprintf("Device \"%s\" is operating normally with all parameters in optimal ranges.", name)
}

func farmSummary(status domain.HealthStatus, t deviceTally) string {
	switch status {
	case domain.Critical:
		return fmt.Sprintf("Critical issues detected: %d critical alert(s) require immediate action.", t.critical)
	case domain.NeedsAttention:
		s := fmt.Sprintf("Farm requires attention: %d warning(s) detected.", t.warning)
		if t.stale {
			s += outdatedSuffix
		}
		return s
	}
	return "All farm parameters are within optimal ranges."
}
