package knowledge

import (
	"sync"
	"time"

	"expansion-evaluator/internal/types"
)

// UpgradeStatus marks a domain whose inferred catalog was replaced by real data
const UpgradeStatus = "upgraded_from_inference"

// UpgradeLog is the audit trail of background upgrades, one record per domain
type UpgradeLog struct {
	path string
	Now  func() time.Time

	mu sync.Mutex
}

// NewUpgradeLog creates a log stored at path
func NewUpgradeLog(path string) *UpgradeLog {
	return &UpgradeLog{path: path, Now: time.Now}
}

// Record notes that domain was upgraded with productCount real products
func (u *UpgradeLog) Record(domain string, productCount int) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	records := make(map[string]types.UpgradeRecord)
	if err := readJSON(u.path, &records); err != nil {
		return err
	}
	now := u.Now()
	records[domain] = types.UpgradeRecord{
		Timestamp:    float64(now.UnixNano()) / float64(time.Second),
		ProductCount: productCount,
		Status:       UpgradeStatus,
	}
	return writeJSON(u.path, records)
}

// Records reads the whole log
func (u *UpgradeLog) Records() (map[string]types.UpgradeRecord, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	records := make(map[string]types.UpgradeRecord)
	if err := readJSON(u.path, &records); err != nil {
		return nil, err
	}
	return records, nil
}
