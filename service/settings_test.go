package service

import (
	"strings"
	"testing"

	"github.com/BerniceZTT/crm_analytics/models"
	"github.com/BerniceZTT/crm_analytics/utils"
)

func TestValidateSettings_Defaults(t *testing.T) {
	if err := ValidateSettings(models.DefaultAnalyticsSettings()); err != nil {
		t.Fatalf("defaults must be valid: %v", err)
	}
}

func TestValidateSettings_Invalid(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*models.AnalyticsSettings)
		field  string
	}{
		{"lookback", func(s *models.AnalyticsSettings) { s.LookbackDays = 0 }, "lookbackDays"},
		{"mode", func(s *models.AnalyticsSettings) { s.SegmentMode = "kmeans" }, "segmentMode"},
		{"abc order", func(s *models.AnalyticsSettings) { s.ABCCutoffA, s.ABCCutoffB = 90, 80 }, "abcCutoffB"},
		{"abc range", func(s *models.AnalyticsSettings) { s.ABCCutoffA = 0 }, "abcCutoffA"},
		{"xyz order", func(s *models.AnalyticsSettings) { s.XYZCutoffX, s.XYZCutoffY = 1, 0.5 }, "xyzCutoffY"},
		{"bucket", func(s *models.AnalyticsSettings) { s.XYZBucketDays = 400 }, "xyzBucketDays"},
		{"support", func(s *models.AnalyticsSettings) { s.BasketMinSupport = 101 }, "basketMinSupport"},
		{"top n", func(s *models.AnalyticsSettings) { s.BasketTopN = 0 }, "basketTopN"},
		{"max pairs", func(s *models.AnalyticsSettings) { s.BasketMaxPairs = 0 }, "basketMaxPairs"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := models.DefaultAnalyticsSettings()
			tc.mutate(&s)
			err := ValidateSettings(s)
			if !utils.IsKind(err, utils.KindInvalidSettings) {
				t.Fatalf("expected InvalidSettings, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.field) {
				t.Fatalf("error %q does not mention %s", err, tc.field)
			}
		})
	}
}

func TestValidateSettings_ReportsAllProblems(t *testing.T) {
	s := models.DefaultAnalyticsSettings()
	s.BasketTopN = 0
	s.BasketMaxPairs = 0
	err := ValidateSettings(s)
	if err == nil || !strings.Contains(err.Error(), "basketTopN") || !strings.Contains(err.Error(), "basketMaxPairs") {
		t.Fatalf("got %v", err)
	}
}
