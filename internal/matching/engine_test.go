package matching

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"jobpilot-backend/internal/postings"
	"jobpilot-backend/internal/profiles"
	"jobpilot-backend/internal/weights"
)

func testProfile() profiles.Profile {
	return profiles.Profile{
		UserID:           "user-1",
		Embedding:        []float64{1, 0, 0},
		Skills:           []string{"Go", "SQL", "Docker"},
		PreferredSectors: []string{"fintech"},
		PreferredCities:  []string{"Berlin"},
		SalaryMin:        50000,
		SalaryMax:        90000,
		RemotePreference: profiles.RemoteAny,
	}
}

func testPosting() postings.Posting {
	return postings.Posting{
		ID:           "posting-1",
		Title:        "Backend Engineer",
		Company:      "Acme",
		Embedding:    []float64{1, 0, 0},
		Sector:       "fintech",
		City:         "Berlin",
		Salary:       70000,
		Requirements: []string{"go", "sql"},
		Remote:       true,
		Active:       true,
		ScrapedAt:    time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestScorePerfectMatch(t *testing.T) {
	e := Engine{SimilarityFloor: 0.3}
	res, err := e.Score(testProfile(), testPosting(), weights.DefaultVector())
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if res.Score != 100 {
		t.Fatalf("expected 100 for perfect match, got %g", res.Score)
	}
	if len(res.SkillGaps) != 0 {
		t.Fatalf("expected no skill gaps, got %v", res.SkillGaps)
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	e := Engine{SimilarityFloor: 0.3}
	p := testProfile()
	post := testPosting()
	post.Requirements = []string{"go", "kubernetes", "terraform"}
	v := weights.DefaultVector()

	first, err := e.Score(p, post, v)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := e.Score(p, post, v)
		if err != nil {
			t.Fatalf("score %d: %v", i, err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("score not deterministic:\nfirst: %+v\nagain: %+v", first, again)
		}
	}
}

func TestScoreBounds(t *testing.T) {
	e := Engine{}
	p := testProfile()
	post := testPosting()
	// Worst case on every discrete signal.
	post.Sector = "logistics"
	post.City = "Tokyo"
	post.Salary = 10000
	post.Requirements = []string{"cobol", "fortran"}
	p.RemotePreference = profiles.RemoteOnly
	post.Remote = false
	post.Embedding = []float64{0, 1, 0}

	res, err := e.Score(p, post, weights.DefaultVector())
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if res.Score < 0 || res.Score > 100 {
		t.Fatalf("score out of bounds: %g", res.Score)
	}
	if res.Score != 0 {
		t.Fatalf("expected 0 for total mismatch, got %g", res.Score)
	}
}

func TestScoreBelowFloor(t *testing.T) {
	e := Engine{SimilarityFloor: 0.9}
	post := testPosting()
	post.Embedding = []float64{1, 1, 0} // cosine ~0.707

	_, err := e.Score(testProfile(), post, weights.DefaultVector())
	if !errors.Is(err, ErrBelowFloor) {
		t.Fatalf("expected ErrBelowFloor, got %v", err)
	}
}

func TestScoreBadEmbedding(t *testing.T) {
	e := Engine{}
	cases := [][]float64{
		nil,
		{},
		{1, 0},    // dimension mismatch
		{0, 0, 0}, // zero norm
	}
	for _, emb := range cases {
		post := testPosting()
		post.Embedding = emb
		if _, err := e.Score(testProfile(), post, weights.DefaultVector()); !errors.Is(err, ErrBadEmbedding) {
			t.Fatalf("embedding %v: expected ErrBadEmbedding, got %v", emb, err)
		}
	}
}

func TestScoreEmptyPreferencesAreNoConstraint(t *testing.T) {
	e := Engine{}
	p := testProfile()
	p.PreferredSectors = nil
	p.PreferredCities = nil
	post := testPosting()
	post.Sector = "anything"
	post.City = "anywhere"

	res, err := e.Score(p, post, weights.DefaultVector())
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if res.Signals[weights.FeatureSector] != 1 || res.Signals[weights.FeatureCity] != 1 {
		t.Fatalf("empty preferences should be neutral: %+v", res.Signals)
	}
}

func TestScoreUndisclosedSalaryIsNeutral(t *testing.T) {
	e := Engine{}
	post := testPosting()
	post.Salary = 0

	res, err := e.Score(testProfile(), post, weights.DefaultVector())
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if res.Signals[weights.FeatureSalary] != 0.5 {
		t.Fatalf("expected neutral salary signal, got %g", res.Signals[weights.FeatureSalary])
	}
}

func TestSkillGapsAreNormalizedAndSorted(t *testing.T) {
	e := Engine{}
	p := testProfile()
	post := testPosting()
	post.Requirements = []string{" Kubernetes ", "go", "TERRAFORM", "kubernetes", "Ansible"}

	res, err := e.Score(p, post, weights.DefaultVector())
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	want := []string{"ansible", "kubernetes", "terraform"}
	if !reflect.DeepEqual(res.SkillGaps, want) {
		t.Fatalf("gaps = %v, want %v", res.SkillGaps, want)
	}
}

func TestLessOrdering(t *testing.T) {
	early := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)

	a := Match{ID: "a", Score: 90, ScrapedAt: early}
	b := Match{ID: "b", Score: 85, ScrapedAt: late}
	if !Less(a, b) {
		t.Fatal("higher score must order first")
	}

	c := Match{ID: "c", Score: 90, ScrapedAt: late}
	if !Less(c, a) {
		t.Fatal("equal score: fresher posting must order first")
	}

	d := Match{ID: "d", Score: 90, ScrapedAt: early}
	if !Less(a, d) || Less(d, a) {
		t.Fatal("full tie must break by id ascending")
	}
}

func TestReasoningIsStable(t *testing.T) {
	e := Engine{}
	res1, err := e.Score(testProfile(), testPosting(), weights.DefaultVector())
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	res2, _ := e.Score(testProfile(), testPosting(), weights.DefaultVector())
	if res1.Reasoning == "" || res1.Reasoning != res2.Reasoning {
		t.Fatalf("reasoning unstable:\n%q\n%q", res1.Reasoning, res2.Reasoning)
	}
}
