package service

import (
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/prolinq/messaging-backend/internal/model"
	"github.com/prolinq/messaging-backend/internal/repository"
)

// AdRotator assigns one active ad per recipient such that, within a batch,
// no ad's impression count differs from another's by more than one.
type AdRotator struct {
	AdRepo      repository.AdRepositoryInterface
	MetricsRepo repository.MetricsRepositoryInterface
	Log         zerolog.Logger

	// rndMu serializes rnd: batch assignment and the preview run on
	// different goroutines and rand.Rand is not safe for concurrent use.
	rndMu sync.Mutex
	rnd   *rand.Rand
	Now   func() time.Time
}

// NewAdRotator seeds the rotator's private RNG.
func NewAdRotator(adRepo repository.AdRepositoryInterface, metricsRepo repository.MetricsRepositoryInterface, log zerolog.Logger) *AdRotator {
	return &AdRotator{
		AdRepo:      adRepo,
		MetricsRepo: metricsRepo,
		Log:         log,
		rnd:         rand.New(rand.NewSource(time.Now().UnixNano())),
		Now:         time.Now,
	}
}

// AdShare is one ad's slice of a sample or batch.
type AdShare struct {
	AdID        int     `json:"ad_id"`
	Title       string  `json:"title"`
	Impressions int     `json:"impressions_in_sample"`
	Percentage  float64 `json:"percentage"`
}

// Distribution is the audit view surfaced to operators.
type Distribution struct {
	TotalActiveAds int       `json:"total_active_ads"`
	SampleSize     int       `json:"sample_size"`
	Summary        []AdShare `json:"impression_summary"`
}

// Assign picks one ad per recipient position for a batch of n. Positions get
// nil when there are no active ads, which is not an error. Impression
// counters are incremented exactly once per assignment.
func (r *AdRotator) Assign(n int) ([]*model.Ad, error) {
	out := make([]*model.Ad, n)
	if n == 0 {
		return out, nil
	}

	ads, err := r.AdRepo.ListActive()
	if err != nil {
		return nil, err
	}
	if len(ads) == 0 {
		return out, nil
	}

	picked := r.pick(ads, n)
	counts := make(map[int]int, len(ads))
	for i := range picked {
		out[i] = &picked[i]
		counts[picked[i].ID]++
		if err := r.AdRepo.RecordImpression(picked[i].ID, i); err != nil {
			r.Log.Warn().Err(err).Int("ad_id", picked[i].ID).Msg("failed to record ad impression")
		}
	}

	for adID, c := range counts {
		if err := r.AdRepo.AddImpressions(adID, c); err != nil {
			return nil, err
		}
	}
	if err := r.MetricsRepo.AddAdsShown(model.DayStart(r.Now()), n); err != nil {
		r.Log.Warn().Err(err).Msg("failed to update ads-shown metric")
	}

	return out, nil
}

// PreviewDistribution simulates an assignment for a sample batch and reports
// per-ad counts and percentages without mutating any counter.
func (r *AdRotator) PreviewDistribution(sampleSize int) (*Distribution, error) {
	if sampleSize <= 0 {
		sampleSize = 100
	}

	ads, err := r.AdRepo.ListActive()
	if err != nil {
		return nil, err
	}
	dist := &Distribution{TotalActiveAds: len(ads), SampleSize: sampleSize, Summary: []AdShare{}}
	if len(ads) == 0 {
		return dist, nil
	}

	counts := make(map[int]int, len(ads))
	for _, ad := range r.pick(ads, sampleSize) {
		counts[ad.ID]++
	}
	for _, ad := range ads {
		c := counts[ad.ID]
		dist.Summary = append(dist.Summary, AdShare{
			AdID:        ad.ID,
			Title:       ad.Title,
			Impressions: c,
			Percentage:  model.ReadPercentage(c, sampleSize),
		})
	}
	return dist, nil
}

// pick builds a fair batch: every ad appears floor(n/k) times, the remainder
// goes to a random distinct subset, and the whole list is shuffled so
// positions carry no bias. Within the batch, max-min <= 1 by construction.
func (r *AdRotator) pick(ads []model.Ad, n int) []model.Ad {
	k := len(ads)
	out := make([]model.Ad, 0, n)
	for i := 0; i < n/k; i++ {
		out = append(out, ads...)
	}
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	for _, idx := range r.rnd.Perm(k)[:n%k] {
		out = append(out, ads[idx])
	}
	r.rnd.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}
