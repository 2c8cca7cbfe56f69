// Package expiry classifies credential expiration dates into lifecycle
// statuses and notification severities. All functions are pure and operate
// at day granularity; clock time within a day is ignored.
package expiry

import (
	"time"

	"github.com/caremesh/credentialing-api/internal/model"
)

// Day thresholds for classification. Boundaries are inclusive: exactly 30
// days out is still expiring_soon, exactly 90 is still renewal_required.
const (
	ExpiringSoonDays    = 30
	RenewalRequiredDays = 90
	CriticalDays        = 7
)

// StartOfDay truncates a timestamp to midnight UTC. Comparisons against
// expiration dates must use this boundary so the expiration day itself
// counts as day 0, not as already passed.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysUntil returns the whole-day difference between now and the expiration
// date. Negative once the date has passed.
func DaysUntil(expiration, now time.Time) int {
	return int(StartOfDay(expiration).Sub(StartOfDay(now)).Hours() / 24)
}

// Classify maps an expiration date to a credential status.
func Classify(expiration, now time.Time) model.CredentialStatus {
	days := DaysUntil(expiration, now)
	switch {
	case days < 0:
		return model.CredentialStatusExpired
	case days <= ExpiringSoonDays:
		return model.CredentialStatusExpiringSoon
	case days <= RenewalRequiredDays:
		return model.CredentialStatusRenewalRequired
	default:
		return model.CredentialStatusActive
	}
}

// ClassifyWithStatus applies the stored-status precedence rule: a row
// explicitly marked expired stays expired even if the date arithmetic
// disagrees.
func ClassifyWithStatus(stored model.CredentialStatus, expiration, now time.Time) model.CredentialStatus {
	if stored == model.CredentialStatusExpired {
		return model.CredentialStatusExpired
	}
	return Classify(expiration, now)
}

// Severity maps an expiration date to a notification severity: critical when
// expired or within CriticalDays, warning within ExpiringSoonDays, info
// otherwise.
func Severity(expiration, now time.Time) model.Severity {
	days := DaysUntil(expiration, now)
	switch {
	case days <= CriticalDays:
		return model.SeverityCritical
	case days <= ExpiringSoonDays:
		return model.SeverityWarning
	default:
		return model.SeverityInfo
	}
}
