package fitness

import (
	"morningbrief/internal/domain/briefing"
	"morningbrief/internal/infra/sources"
)

// dailySummary is the subset of the tracker's user summary we read. Every
// field is a pointer so a missing key stays distinguishable from zero.
type dailySummary struct {
	TotalSteps                       *float64 `json:"totalSteps"`
	DailyStepGoal                    *float64 `json:"dailyStepGoal"`
	TotalDistanceMeters              *float64 `json:"totalDistanceMeters"`
	ActiveKilocalories               *float64 `json:"activeKilocalories"`
	RestingHeartRate                 *float64 `json:"restingHeartRate"`
	MinHeartRate                     *float64 `json:"minHeartRate"`
	MaxHeartRate                     *float64 `json:"maxHeartRate"`
	LastSevenDaysAvgRestingHeartRate *float64 `json:"lastSevenDaysAvgRestingHeartRate"`
	AverageStressLevel               *float64 `json:"averageStressLevel"`
	MaxStressLevel                   *float64 `json:"maxStressLevel"`
	SleepingSeconds                  *float64 `json:"sleepingSeconds"`
	FloorsAscended                   *float64 `json:"floorsAscended"`
	SedentarySeconds                 *float64 `json:"sedentarySeconds"`

	AvgWakingRespirationValue *float64 `json:"avgWakingRespirationValue"`
	HighestRespirationValue   *float64 `json:"highestRespirationValue"`
	LowestRespirationValue    *float64 `json:"lowestRespirationValue"`
	LatestRespirationValue    *float64 `json:"latestRespirationValue"`

	StressQualifier               *string  `json:"stressQualifier"`
	StressPercentage              *float64 `json:"stressPercentage"`
	RestStressPercentage          *float64 `json:"restStressPercentage"`
	ActivityStressPercentage      *float64 `json:"activityStressPercentage"`
	UncategorizedStressPercentage *float64 `json:"uncategorizedStressPercentage"`
	LowStressPercentage           *float64 `json:"lowStressPercentage"`
	MediumStressPercentage        *float64 `json:"mediumStressPercentage"`
	HighStressPercentage          *float64 `json:"highStressPercentage"`
}

func (s dailySummary) normalize(day string) briefing.FitnessSnapshot {
	snapshot := briefing.FitnessSnapshot{
		Date:                            day,
		TotalSteps:                      s.TotalSteps,
		DailyStepsGoal:                  s.DailyStepGoal,
		TotalDistanceKilometers:         scaled(s.TotalDistanceMeters, 1000),
		ActiveKilocalories:              s.ActiveKilocalories,
		RestingHeartRate:                s.RestingHeartRate,
		MinHeartRate:                    s.MinHeartRate,
		MaxHeartRate:                    s.MaxHeartRate,
		SevenDayAverageRestingHeartRate: s.LastSevenDaysAvgRestingHeartRate,
		AverageStressLevel:              s.AverageStressLevel,
		MaxStressLevel:                  s.MaxStressLevel,
		SleepDurationHours:              scaled(s.SleepingSeconds, 3600),
		FloorsAscended:                  s.FloorsAscended,
		SedentaryMinutes:                scaled(s.SedentarySeconds, 60),
	}

	respiration := briefing.RespirationRates{
		Average: s.AvgWakingRespirationValue,
		Highest: s.HighestRespirationValue,
		Lowest:  s.LowestRespirationValue,
		Latest:  s.LatestRespirationValue,
	}
	if respiration != (briefing.RespirationRates{}) {
		snapshot.RespirationRate = &respiration
	}

	proportions := briefing.StressProportions{
		Rest:          s.RestStressPercentage,
		Activity:      s.ActivityStressPercentage,
		Uncategorized: s.UncategorizedStressPercentage,
		Low:           s.LowStressPercentage,
		Medium:        s.MediumStressPercentage,
		High:          s.HighStressPercentage,
	}
	stress := briefing.StressData{
		Qualifier:       s.StressQualifier,
		TotalPercentage: s.StressPercentage,
	}
	if proportions != (briefing.StressProportions{}) {
		stress.ProportionOfTotal = &proportions
	}
	if stress != (briefing.StressData{}) {
		snapshot.StressData = &stress
	}
	return snapshot
}

// scaled divides value by divisor and rounds to two decimals. A missing
// value stays missing.
func scaled(value *float64, divisor float64) *float64 {
	if value == nil {
		return nil
	}
	out := sources.Round2(*value / divisor)
	return &out
}
