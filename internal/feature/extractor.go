package feature

import (
	"math"
	"sort"

	"github.com/soniclens/taste-profile-service/internal/domain"
)

const (
	// neutralAttribute imputes a missing audio attribute on the [0,1] scale.
	neutralAttribute = 0.5

	// maxTempoBPM caps tempo normalization; values above it clamp to 1.0.
	maxTempoBPM = 200.0
)

// AudioDim is the number of audio attributes leading every track feature
// vector; the popularity component follows immediately after.
const AudioDim = 7

// Vocabulary is the fixed genre vocabulary built once at process start. Genres
// outside the vocabulary map to a trailing "other" bucket so the encoded
// dimensionality never changes mid-session.
type Vocabulary struct {
	index map[string]int
	names []string
}

func NewVocabulary(genres []string) *Vocabulary {
	uniq := make(map[string]struct{}, len(genres))
	for _, g := range genres {
		uniq[g] = struct{}{}
	}
	names := make([]string, 0, len(uniq))
	for g := range uniq {
		names = append(names, g)
	}
	sort.Strings(names)

	index := make(map[string]int, len(names))
	for i, g := range names {
		index[g] = i
	}
	return &Vocabulary{index: index, names: names}
}

// Size includes the "other" bucket.
func (v *Vocabulary) Size() int {
	return len(v.names) + 1
}

// Index returns the bucket for a genre; unknown genres land in the last bucket.
func (v *Vocabulary) Index(genre string) int {
	if i, ok := v.index[genre]; ok {
		return i
	}
	return len(v.names)
}

func (v *Vocabulary) Contains(genre string) bool {
	_, ok := v.index[genre]
	return ok
}

// Extractor maps a Track into a fixed-dimension numeric vector. It is a pure
// function of the track and the construction-time parameters: the same track
// always produces the same vector within one session.
type Extractor struct {
	vocab      *Vocabulary
	eraStart   int
	eraBucket  int
	eraBuckets int
}

// NewExtractor builds an extractor whose release-era bucketing spans decades
// from eraStartYear up to refYear in eraBucketSize-year steps.
func NewExtractor(vocab *Vocabulary, eraStartYear, eraBucketSize, refYear int) *Extractor {
	if eraBucketSize <= 0 {
		eraBucketSize = 10
	}
	buckets := (refYear-eraStartYear)/eraBucketSize + 1
	if buckets < 1 {
		buckets = 1
	}
	return &Extractor{
		vocab:      vocab,
		eraStart:   eraStartYear,
		eraBucket:  eraBucketSize,
		eraBuckets: buckets,
	}
}

// Dim is the constant output dimensionality: 7 audio attributes, popularity,
// genre membership over the vocabulary, and the release-era bucket.
func (e *Extractor) Dim() int {
	return AudioDim + 1 + e.vocab.Size() + 1
}

// Extract encodes a track. Missing audio attributes are imputed with the
// neutral midpoint; unknown genres go to the "other" bucket; an unknown
// release year maps to the neutral era value.
func (e *Extractor) Extract(track domain.Track) []float64 {
	out := make([]float64, 0, e.Dim())

	out = append(out, NormalizedAudio(track.Audio)...)
	out = append(out, float64(track.Popularity)/100.0)

	genres := make([]float64, e.vocab.Size())
	for _, g := range track.Genres {
		genres[e.vocab.Index(g)] = 1
	}
	out = append(out, genres...)

	out = append(out, e.eraValue(track.ReleaseYear))
	return out
}

// eraValue is a monotonic step function over release decades, scaled to [0,1].
func (e *Extractor) eraValue(year int) float64 {
	if year <= 0 {
		return neutralAttribute
	}
	bucket := (year - e.eraStart) / e.eraBucket
	if bucket < 0 {
		bucket = 0
	}
	if bucket >= e.eraBuckets {
		bucket = e.eraBuckets - 1
	}
	if e.eraBuckets == 1 {
		return 0
	}
	return float64(bucket) / float64(e.eraBuckets-1)
}

// NormalizedAudio returns the seven audio attributes on a [0,1] scale in
// canonical order. A nil attribute set or a negative component is treated as
// missing and imputed with the neutral midpoint.
func NormalizedAudio(a *domain.AudioAttributes) []float64 {
	if a == nil {
		return []float64{
			neutralAttribute, neutralAttribute, neutralAttribute, neutralAttribute,
			neutralAttribute, neutralAttribute, neutralAttribute,
		}
	}
	return []float64{
		imputed(a.Danceability),
		imputed(a.Energy),
		imputed(a.Valence),
		imputedTempo(a.Tempo),
		imputed(a.Acousticness),
		imputed(a.Instrumentalness),
		imputed(a.Speechiness),
	}
}

func imputed(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return neutralAttribute
	}
	return math.Min(v, 1)
}

func imputedTempo(bpm float64) float64 {
	if bpm < 0 || math.IsNaN(bpm) {
		return neutralAttribute
	}
	return math.Min(bpm/maxTempoBPM, 1)
}
