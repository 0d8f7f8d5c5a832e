package diarization

// Vote weights for the combined candidate score. Local dominance counts
// most; engine confidence and historical stability split the remainder.
const (
	countWeight      = 0.4
	confidenceWeight = 0.3
	historyWeight    = 0.3
)

// DefaultContextRadius is how many words on each side of the current
// word the scorer considers.
const DefaultContextRadius = 3

// voteScorer proposes a speaker for each word of a batch by scoring every
// candidate speaker seen in a local context window. A single mislabeled
// word should not flip the assignment: locally dominant, confident and
// historically stable speakers win.
type voteScorer struct {
	history *HistoryWindow
	radius  int
}

func newVoteScorer(history *HistoryWindow, radius int) *voteScorer {
	if radius < 1 {
		radius = DefaultContextRadius
	}
	return &voteScorer{history: history, radius: radius}
}

type candidate struct {
	speakerID int
	count     int
	confSum   float64
}

// Propose scores the candidates around batch[i] and returns the winning
// speaker id with its combined score. The word's own raw label is the
// incumbent: a challenger must strictly beat it, so ties keep the
// original assignment.
func (s *voteScorer) Propose(batch []WordEvent, i int) (int, float64) {
	lo := i - s.radius
	if lo < 0 {
		lo = 0
	}
	hi := i + s.radius + 1
	if hi > len(batch) {
		hi = len(batch)
	}

	// Candidates in first-appearance order for deterministic iteration.
	var candidates []candidate
	index := make(map[int]int)
	for j := lo; j < hi; j++ {
		id := batch[j].RawSpeakerID
		k, ok := index[id]
		if !ok {
			k = len(candidates)
			index[id] = k
			candidates = append(candidates, candidate{speakerID: id})
		}
		candidates[k].count++
		candidates[k].confSum += batch[j].Confidence
	}

	contextSize := hi - lo
	combined := func(c candidate) float64 {
		countScore := float64(c.count) / float64(contextSize)
		confScore := c.confSum / float64(c.count)
		historyScore := s.history.ConsistencyScore(c.speakerID)
		return countScore*countWeight + confScore*confidenceWeight + historyScore*historyWeight
	}

	best := batch[i].RawSpeakerID
	bestScore := 0.0
	if k, ok := index[best]; ok {
		bestScore = combined(candidates[k])
	}
	for _, c := range candidates {
		if c.speakerID == best {
			continue
		}
		if score := combined(c); score > bestScore {
			best = c.speakerID
			bestScore = score
		}
	}
	return best, bestScore
}
