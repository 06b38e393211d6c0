package cpu

import "sync"

// Features describes the counter-related capabilities of the running CPU.
type Features struct {
	// HasInvariantTSC reports a TSC that ticks at a constant rate across
	// P-, C- and T-state transitions. Without it, counter deltas follow the
	// current core frequency and calibration goes stale quickly.
	HasInvariantTSC bool

	HasSSE2 bool
	HasNEON bool

	// Signature is the vendor family/model signature where available.
	Signature string

	Architecture string

	// ForceGeneric pretends no hardware counter features are present.
	// Used by tests.
	ForceGeneric bool
}

var (
	detectOnce     sync.Once
	detected       Features
	forcedMu       sync.RWMutex
	forcedFeatures *Features
)

// DetectFeatures returns the CPU features of the running machine.
// Detection runs once; SetForcedFeatures overrides the result.
func DetectFeatures() Features {
	forcedMu.RLock()
	forced := forcedFeatures
	forcedMu.RUnlock()

	if forced != nil {
		if forced.ForceGeneric {
			return Features{ForceGeneric: true, Architecture: detectArchitecture()}
		}

		return *forced
	}

	detectOnce.Do(func() {
		detected = detectFeaturesImpl()
	})

	return detected
}

// SetForcedFeatures overrides detection until ResetDetection is called.
func SetForcedFeatures(f Features) {
	forcedMu.Lock()
	defer forcedMu.Unlock()

	forcedFeatures = &f
}

// ResetDetection drops any forced features.
func ResetDetection() {
	forcedMu.Lock()
	defer forcedMu.Unlock()

	forcedFeatures = nil
}
