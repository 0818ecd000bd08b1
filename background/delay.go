package background

import (
	"strings"
	"time"

	"expansion-evaluator/internal/types"
)

type platformDelay struct {
	keyword string
	delay   time.Duration
}

// platformDelays are checked in order against the domain
var platformDelays = []platformDelay{
	{"shopify", 45 * time.Second},
	{"bigcommerce", 60 * time.Second},
	{"woocommerce", 90 * time.Second},
	{"magento", 120 * time.Second},
}

var (
	regionalTLDs      = []string{".cn", ".ru", ".kr", ".jp"}
	protectionMarkers = []string{"cloudflare", "security", "bot-protection"}
)

const (
	regionalExtra   = 30 * time.Second
	protectionExtra = 60 * time.Second
)

// Delay computes how long to wait before retrying domain. Platform hints in
// the domain win outright, then regional TLDs, then protection markers.
func Delay(domain string, priority types.Priority, config types.BackgroundConfig) time.Duration {
	base := config.NormalDelay
	if priority == types.PriorityHigh {
		base = config.HighPriorityDelay
	}
	domain = strings.ToLower(domain)

	for _, p := range platformDelays {
		if strings.Contains(domain, p.keyword) {
			if p.delay > base {
				return p.delay
			}
			return base
		}
	}
	if containsAny(domain, regionalTLDs) {
		return base + regionalExtra
	}
	if containsAny(domain, protectionMarkers) {
		return base + protectionExtra
	}
	return base
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
