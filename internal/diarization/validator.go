package diarization

// Defaults for the temporal validation guards.
const (
	DefaultMinSegmentDuration       = 0.3 // seconds
	DefaultMaxRapidSwitchTime       = 1.0 // seconds
	DefaultMinWordsForSpeakerChange = 2
)

// Guard names a temporal correction applied by the validator.
type Guard string

const (
	// GuardRapidSwitch overrode a proposal that would fragment the
	// transcript with an implausibly short speaker run.
	GuardRapidSwitch Guard = "rapid_switch"
	// GuardTimingPrior overrode a proposal contradicting the speaker's
	// historical segment duration.
	GuardTimingPrior Guard = "timing_prior"
	// GuardNone means the proposal was accepted unchanged.
	GuardNone Guard = "none"
)

// timingPriors looks up the historical timing profile for a speaker.
// Implemented by the Registry.
type timingPriors interface {
	Profile(speakerID int) (TimingProfile, bool)
}

// temporalValidator applies anti-fragmentation and anti-rapid-switch
// corrections to the vote scorer's proposals. Guards are evaluated in
// order; the first applicable correction wins.
type temporalValidator struct {
	minSegmentDuration float64
	maxRapidSwitchTime float64
	minWordsForChange  int
	priors             timingPriors
}

func newTemporalValidator(priors timingPriors, minSegDur, maxRapidSwitch float64, minWords int) *temporalValidator {
	if minSegDur <= 0 {
		minSegDur = DefaultMinSegmentDuration
	}
	if maxRapidSwitch <= 0 {
		maxRapidSwitch = DefaultMaxRapidSwitchTime
	}
	if minWords < 1 {
		minWords = DefaultMinWordsForSpeakerChange
	}
	return &temporalValidator{
		minSegmentDuration: minSegDur,
		maxRapidSwitchTime: maxRapidSwitch,
		minWordsForChange:  minWords,
		priors:             priors,
	}
}

// Validate decides the final speaker for batch[i] given the scorer's
// proposal. lastConfirmed is the anchor from the previous batch, nil on a
// fresh session; it is not advanced while a batch is in flight, so every
// word in the batch sees the same anchor.
func (v *temporalValidator) Validate(proposed int, batch []WordEvent, i int, lastConfirmed *int) (int, Guard) {
	word := batch[i]

	// Rapid-switch guard: a near-instant hand-off carrying a very short
	// word is suspicious only when it would also strand the proposed
	// speaker in a run shorter than the minimum.
	if i > 0 {
		gap := word.StartTime - batch[i-1].EndTime
		if gap < v.maxRapidSwitchTime && word.Duration() < v.minSegmentDuration {
			if v.wouldCreateShortRun(proposed, batch, i) {
				if lastConfirmed != nil {
					return *lastConfirmed, GuardRapidSwitch
				}
				return proposed, GuardNone
			}
		}
	}

	// Timing-prior guard: a word far shorter than the speaker's average
	// segment is resolved by local majority instead.
	if profile, ok := v.priors.Profile(proposed); ok {
		if word.Duration() < profile.AvgDuration*0.1 {
			return v.contextualSpeaker(batch, i, lastConfirmed), GuardTimingPrior
		}
	}

	return proposed, GuardNone
}

// wouldCreateShortRun counts, on the raw labels, how many consecutive
// words around position i would share the proposed speaker.
func (v *temporalValidator) wouldCreateShortRun(speakerID int, batch []WordEvent, i int) bool {
	run := 1
	for j := i - 1; j >= 0; j-- {
		if batch[j].RawSpeakerID != speakerID {
			break
		}
		run++
	}
	for j := i + 1; j < len(batch); j++ {
		if batch[j].RawSpeakerID != speakerID {
			break
		}
		run++
	}
	return run < v.minWordsForChange
}

// contextualSpeaker picks the majority raw speaker in a two-word window
// around position i, excluding the word itself. Ties and an empty
// context fall back to the last confirmed speaker, defaulting to 0.
func (v *temporalValidator) contextualSpeaker(batch []WordEvent, i int, lastConfirmed *int) int {
	const radius = 2
	lo := i - radius
	if lo < 0 {
		lo = 0
	}
	hi := i + radius + 1
	if hi > len(batch) {
		hi = len(batch)
	}

	counts := make(map[int]int)
	for j := lo; j < hi; j++ {
		if j == i {
			continue
		}
		counts[batch[j].RawSpeakerID]++
	}

	best, bestCount, tied := 0, 0, false
	for id, n := range counts {
		switch {
		case n > bestCount:
			best, bestCount, tied = id, n, false
		case n == bestCount:
			tied = true
		}
	}
	if bestCount > 0 && !tied {
		return best
	}
	if lastConfirmed != nil {
		return *lastConfirmed
	}
	return 0
}
