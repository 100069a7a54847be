package service

import (
	"testing"
	"time"

	"github.com/BerniceZTT/crm_analytics/models"
)

func TestQuintileScores_BucketSizes(t *testing.T) {
	for n := 1; n <= 53; n++ {
		values := make([]float64, n)
		for i := range values {
			values[i] = float64(i * 3 % 17)
		}
		scores := QuintileScores(values, true)

		counts := make(map[int]int)
		for _, s := range scores {
			if s < 1 || s > 5 {
				t.Fatalf("n=%d: score %d out of range", n, s)
			}
			counts[s]++
		}
		if n < 5 {
			continue
		}
		min, max := n, 0
		for s := 1; s <= 5; s++ {
			if counts[s] < min {
				min = counts[s]
			}
			if counts[s] > max {
				max = counts[s]
			}
		}
		if max-min > 1 {
			t.Fatalf("n=%d: bucket sizes differ by %d: %v", n, max-min, counts)
		}
	}
}

func TestQuintileScores_Direction(t *testing.T) {
	values := []float64{3, 1, 5, 2, 4}

	up := QuintileScores(values, true)
	want := []int{3, 1, 5, 2, 4}
	for i := range want {
		if up[i] != want[i] {
			t.Fatalf("higherIsBetter: got %v, want %v", up, want)
		}
	}

	down := QuintileScores(values, false)
	wantDown := []int{3, 5, 1, 4, 2}
	for i := range wantDown {
		if down[i] != wantDown[i] {
			t.Fatalf("lowerIsBetter: got %v, want %v", down, wantDown)
		}
	}
}

func TestQuintileScores_Empty(t *testing.T) {
	if got := QuintileScores(nil, true); len(got) != 0 {
		t.Fatalf("expected no scores, got %v", got)
	}
}

func TestQuintileScores_SmallPopulation(t *testing.T) {
	if got := QuintileScores([]float64{42}, true); len(got) != 1 || got[0] != 1 {
		t.Fatalf("single value: %v", got)
	}
	got := QuintileScores([]float64{10, 20, 30}, true)
	want := []int{1, 2, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("three values: got %v, want %v", got, want)
		}
	}
}

func TestScoreCustomers_SingleCustomerIsLost(t *testing.T) {
	now := time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)
	aggs := []CustomerAggregate{
		{CustomerID: "only", LastOrderDate: now.AddDate(0, 0, -1), OrderCount: 50, TotalSpent: 100000},
	}

	scores := ScoreCustomers(aggs, models.DefaultAnalyticsSettings(), now, "run-1")
	if len(scores) != 1 {
		t.Fatalf("got %d scores", len(scores))
	}
	if scores[0].RFMCode != "1-1-1" || scores[0].Segment != models.SegmentLost {
		t.Fatalf("single customer: code %q segment %q", scores[0].RFMCode, scores[0].Segment)
	}
}

func TestScoreCustomers(t *testing.T) {
	now := time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)
	aggs := []CustomerAggregate{
		{CustomerID: "c1", LastOrderDate: now.AddDate(0, 0, -1), OrderCount: 10, TotalSpent: 5000},
		{CustomerID: "c2", LastOrderDate: now.AddDate(0, 0, -10), OrderCount: 8, TotalSpent: 4000, TotalLateDays: 2, Lateness: []int{2}},
		{CustomerID: "c3", LastOrderDate: now.AddDate(0, 0, -50), OrderCount: 5, TotalSpent: 3000, TotalLateDays: 10, Lateness: []int{10}},
		{CustomerID: "c4", LastOrderDate: now.AddDate(0, 0, -100), OrderCount: 3, TotalSpent: 2000, TotalLateDays: 40, Lateness: []int{20, 20}},
		{CustomerID: "c5", LastOrderDate: now.AddDate(0, 0, -300), OrderCount: 1, TotalSpent: 100, TotalLateDays: 90, Lateness: []int{90}},
	}

	scores := ScoreCustomers(aggs, models.DefaultAnalyticsSettings(), now, "run-1")
	if len(scores) != 5 {
		t.Fatalf("got %d scores", len(scores))
	}

	best, worst := scores[0], scores[4]
	if best.RecencyScore != 5 || best.FrequencyScore != 5 || best.MonetaryScore != 5 || best.PaymentScore != 5 {
		t.Fatalf("unexpected best scores: %+v", best)
	}
	if best.Segment != models.SegmentChampions || best.RFMCode != "5-5-5" {
		t.Fatalf("best: segment %q code %q", best.Segment, best.RFMCode)
	}
	if worst.Segment != models.SegmentLost || worst.RFMCode != "1-1-1" {
		t.Fatalf("worst: segment %q code %q", worst.Segment, worst.RFMCode)
	}
	if best.DaysSincePurchase != 1 || worst.DaysSincePurchase != 300 {
		t.Fatalf("days since purchase: %d, %d", best.DaysSincePurchase, worst.DaysSincePurchase)
	}
	if scores[3].AverageDaysLate != 20 {
		t.Fatalf("average days late: %v", scores[3].AverageDaysLate)
	}
	for _, s := range scores {
		if s.RunID != "run-1" || !s.LastCalculated.Equal(now) {
			t.Fatalf("run metadata missing: %+v", s)
		}
	}
}

func TestSegmenter_RFMMode(t *testing.T) {
	seg := NewSegmenter(models.SegmentModeRFM)
	cases := []struct {
		r, f, m int
		want    string
	}{
		{5, 5, 5, models.SegmentChampions},
		{4, 5, 5, models.SegmentLoyal},
		{5, 1, 1, models.SegmentNewCustomers},
		{4, 2, 1, models.SegmentPromising},
		{1, 5, 5, models.SegmentCantLose},
		{2, 4, 4, models.SegmentAtRisk},
		{1, 1, 1, models.SegmentLost},
		// 未命中规则表，按 R,F,M 平均分兜底
		{3, 4, 5, models.SegmentLoyal},
		{3, 1, 5, models.SegmentNeedAttention},
		{1, 3, 2, models.SegmentHibernating},
		{1, 1, 3, models.SegmentLost},
	}
	for _, tc := range cases {
		if got := seg.Assign(tc.r, tc.f, tc.m, 3); got != tc.want {
			t.Errorf("Assign(%d,%d,%d) = %q, want %q", tc.r, tc.f, tc.m, got, tc.want)
		}
	}
}

func TestSegmenter_AverageMode(t *testing.T) {
	seg := NewSegmenter(models.SegmentModeAverage)
	cases := []struct {
		r, f, m, p int
		want       string
	}{
		{5, 5, 5, 4, models.SegmentChampions},
		{4, 4, 4, 4, models.SegmentLoyal},
		{3, 3, 3, 4, models.SegmentNeedAttention},
		{2, 2, 2, 3, models.SegmentHibernating},
		{1, 1, 1, 1, models.SegmentLost},
	}
	for _, tc := range cases {
		if got := seg.Assign(tc.r, tc.f, tc.m, tc.p); got != tc.want {
			t.Errorf("Assign(%d,%d,%d,%d) = %q, want %q", tc.r, tc.f, tc.m, tc.p, got, tc.want)
		}
	}
}

func TestSegmentRank(t *testing.T) {
	if SegmentRank(models.SegmentChampions) <= SegmentRank(models.SegmentLoyal) {
		t.Fatal("Champions must rank above Loyal")
	}
	if SegmentRank(models.SegmentLost) != 0 {
		t.Fatal("Lost must rank lowest")
	}
	if SegmentRank("Unknown") != 5 {
		t.Fatal("unknown labels rank in the middle")
	}
}

func TestDetectSegmentChanges(t *testing.T) {
	now := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	earlier := now.AddDate(0, -1, 0)

	newScores := func() []models.CustomerScore {
		return []models.CustomerScore{
			{CustomerID: "up", Segment: models.SegmentChampions},
			{CustomerID: "down", Segment: models.SegmentLost},
			{CustomerID: "same", Segment: models.SegmentLoyal},
			{CustomerID: "new", Segment: models.SegmentNewCustomers},
		}
	}
	prior := map[string]models.SegmentState{
		"up":   {Segment: models.SegmentLoyal},
		"down": {Segment: models.SegmentChampions},
		"same": {Segment: models.SegmentLoyal, PreviousSegment: models.SegmentAtRisk, SegmentChangedOn: earlier},
	}

	scores := newScores()
	alerts := DetectSegmentChanges(scores, prior, true, now, "run-2")
	if len(alerts) != 2 {
		t.Fatalf("got %d alerts, want 2: %+v", len(alerts), alerts)
	}
	if alerts[0].CustomerID != "up" || alerts[0].AlertType != models.AlertTypeUpgrade {
		t.Fatalf("unexpected first alert: %+v", alerts[0])
	}
	if alerts[1].CustomerID != "down" || alerts[1].AlertType != models.AlertTypeDowngrade {
		t.Fatalf("unexpected second alert: %+v", alerts[1])
	}
	if alerts[0].PreviousSegment != models.SegmentLoyal || alerts[0].NewSegment != models.SegmentChampions || alerts[0].RunID != "run-2" {
		t.Fatalf("alert fields: %+v", alerts[0])
	}

	if scores[0].PreviousSegment != models.SegmentLoyal || !scores[0].SegmentChangedOn.Equal(now) {
		t.Fatalf("changed score not annotated: %+v", scores[0])
	}
	if scores[2].PreviousSegment != models.SegmentAtRisk || !scores[2].SegmentChangedOn.Equal(earlier) {
		t.Fatalf("unchanged score lost its history: %+v", scores[2])
	}
	if scores[3].PreviousSegment != "" {
		t.Fatalf("customer without history got previous segment: %+v", scores[3])
	}

	disabled := newScores()
	if got := DetectSegmentChanges(disabled, prior, false, now, "run-3"); len(got) != 0 {
		t.Fatalf("alerts disabled but got %d", len(got))
	}
	if disabled[0].PreviousSegment != models.SegmentLoyal {
		t.Fatal("segment change must still be recorded when alerts are disabled")
	}
}
