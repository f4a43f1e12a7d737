package config

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// FeatureFlags toggles optional parts of the gradebook at runtime.
type FeatureFlags struct {
	mu       sync.RWMutex
	features map[string]*Feature
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// Time-based activation, e.g. the reward machine only during the term.
	EnabledFrom  *time.Time
	EnabledUntil *time.Time
}

// Predefined feature flag names.
const (
	FeatureRewardDraws    = "rewards.draws"   // slot-machine draws
	FeatureRewardRedeem   = "rewards.redeem"  // marking prizes as handed over
	FeatureStandingsCache = "standings.cache" // Redis standings cache
	FeatureBulkAttendance = "attendance.bulk" // mark a list of students present at once
	FeatureGroupRankings  = "groups.rankings" // per-group ranked lists
	FeatureGradeHistory   = "grades.history"  // grade change log endpoint
)

// LoadFeatureFlags creates flags with defaults and applies FEATURE_* env overrides.
func LoadFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{features: make(map[string]*Feature)}
	ff.initializeDefaults()
	ff.loadFromEnvironment()
	return ff
}

func (ff *FeatureFlags) initializeDefaults() {
	defaults := []Feature{
		{Name: FeatureRewardDraws, Description: "Allow reward draws", Enabled: true},
		{Name: FeatureRewardRedeem, Description: "Allow prize redemption", Enabled: true},
		{Name: FeatureStandingsCache, Description: "Cache computed standings in Redis", Enabled: true},
		{Name: FeatureBulkAttendance, Description: "Bulk presence recording", Enabled: true},
		{Name: FeatureGroupRankings, Description: "Group ranking endpoint", Enabled: true},
		{Name: FeatureGradeHistory, Description: "Grade change history endpoint", Enabled: true},
	}
	for i := range defaults {
		f := defaults[i]
		ff.features[f.Name] = &f
	}
}

// loadFromEnvironment reads FEATURE_<NAME>=true|false.
// Example: FEATURE_REWARDS_DRAWS=false
func (ff *FeatureFlags) loadFromEnvironment() {
	for name, feature := range ff.features {
		if val := os.Getenv(featureNameToEnvKey(name)); val != "" {
			if b, err := strconv.ParseBool(val); err == nil {
				feature.Enabled = b
			}
		}
	}
}

// featureNameToEnvKey converts "rewards.draws" to "FEATURE_REWARDS_DRAWS".
func featureNameToEnvKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.ReplaceAll(key, ".", "_")
	return "FEATURE_" + key
}

// IsEnabled checks if a feature is on right now. Unknown features are off.
func (ff *FeatureFlags) IsEnabled(featureName string) bool {
	if ff == nil {
		return true
	}
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	feature, ok := ff.features[featureName]
	if !ok || !feature.Enabled {
		return false
	}

	now := time.Now()
	if feature.EnabledFrom != nil && now.Before(*feature.EnabledFrom) {
		return false
	}
	if feature.EnabledUntil != nil && now.After(*feature.EnabledUntil) {
		return false
	}
	return true
}

// SetEnabled flips a feature. Thread-safe for live updates.
func (ff *FeatureFlags) SetEnabled(featureName string, enabled bool) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return ErrFeatureNotFound
	}
	feature.Enabled = enabled
	return nil
}

// Snapshot reports, per feature name, whether IsEnabled holds right now.
func (ff *FeatureFlags) Snapshot() map[string]bool {
	if ff == nil {
		return map[string]bool{}
	}
	ff.mu.RLock()
	names := make([]string, 0, len(ff.features))
	for name := range ff.features {
		names = append(names, name)
	}
	ff.mu.RUnlock()

	result := make(map[string]bool, len(names))
	for _, name := range names {
		result[name] = ff.IsEnabled(name)
	}
	return result
}

// ErrFeatureNotFound is returned for unknown feature names.
var ErrFeatureNotFound = &FeatureFlagError{Message: "feature not found"}

// FeatureFlagError represents a feature flag error.
type FeatureFlagError struct {
	Message string
}

func (e *FeatureFlagError) Error() string {
	return e.Message
}
