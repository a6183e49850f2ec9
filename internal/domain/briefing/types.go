package briefing

import (
	"sort"
	"time"
)

// Item is one normalized schedule entry from the calendar or the planner.
type Item struct {
	Name            string     `json:"name" yaml:"name"`
	Description     *string    `json:"description,omitempty" yaml:"description,omitempty"`
	DurationMinutes *int       `json:"duration,omitempty" yaml:"duration,omitempty"`
	ScheduledStart  *time.Time `json:"scheduled_start,omitempty" yaml:"scheduled_start,omitempty"`
	ScheduledEnd    *time.Time `json:"scheduled_end,omitempty" yaml:"scheduled_end,omitempty"`
	DueDate         *time.Time `json:"due_date,omitempty" yaml:"due_date,omitempty"`
	Category        string     `json:"category,omitempty" yaml:"category,omitempty"`
	AllDay          bool       `json:"all_day,omitempty" yaml:"all_day,omitempty"`
	Source          string     `json:"-" yaml:"-"`
}

// SortItems orders items by scheduled start. Items without a start sort
// after every item that has one; ties keep their input order.
func SortItems(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].ScheduledStart, items[j].ScheduledStart
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
}

// Schedule pairs planner tasks with calendar events. Each list keeps its own
// source's order.
type Schedule struct {
	Tasks  []Item `json:"tasks" yaml:"tasks"`
	Events []Item `json:"events" yaml:"events"`
}

// RespirationRates groups the breathing-rate metrics of one day.
type RespirationRates struct {
	Average *float64 `json:"average,omitempty" yaml:"average,omitempty"`
	Highest *float64 `json:"highest,omitempty" yaml:"highest,omitempty"`
	Lowest  *float64 `json:"lowest,omitempty" yaml:"lowest,omitempty"`
	Latest  *float64 `json:"latest,omitempty" yaml:"latest,omitempty"`
}

// StressProportions breaks total stress down by band, in percent.
type StressProportions struct {
	Rest          *float64 `json:"rest_stress,omitempty" yaml:"rest_stress,omitempty"`
	Activity      *float64 `json:"activity_stress,omitempty" yaml:"activity_stress,omitempty"`
	Uncategorized *float64 `json:"uncategorized_stress,omitempty" yaml:"uncategorized_stress,omitempty"`
	Low           *float64 `json:"low_stress,omitempty" yaml:"low_stress,omitempty"`
	Medium        *float64 `json:"medium_stress,omitempty" yaml:"medium_stress,omitempty"`
	High          *float64 `json:"high_stress,omitempty" yaml:"high_stress,omitempty"`
}

// StressData summarizes the stress metrics of one day.
type StressData struct {
	Qualifier         *string            `json:"stress_qualifier,omitempty" yaml:"stress_qualifier,omitempty"`
	TotalPercentage   *float64           `json:"total_stress_percentage,omitempty" yaml:"total_stress_percentage,omitempty"`
	ProportionOfTotal *StressProportions `json:"proportion_of_total_stress,omitempty" yaml:"proportion_of_total_stress,omitempty"`
}

// FitnessSnapshot holds one day of fitness metrics. Missing upstream keys
// stay nil and are omitted when serialized; they are never zero-filled.
type FitnessSnapshot struct {
	Date                            string            `json:"date" yaml:"date"`
	TotalSteps                      *float64          `json:"total_steps,omitempty" yaml:"total_steps,omitempty"`
	DailyStepsGoal                  *float64          `json:"daily_steps_goals,omitempty" yaml:"daily_steps_goals,omitempty"`
	TotalDistanceKilometers         *float64          `json:"total_distance_kilometers,omitempty" yaml:"total_distance_kilometers,omitempty"`
	ActiveKilocalories              *float64          `json:"active_kilocalories,omitempty" yaml:"active_kilocalories,omitempty"`
	RestingHeartRate                *float64          `json:"resting_heart_rate,omitempty" yaml:"resting_heart_rate,omitempty"`
	MinHeartRate                    *float64          `json:"min_heart_rate,omitempty" yaml:"min_heart_rate,omitempty"`
	MaxHeartRate                    *float64          `json:"max_heart_rate,omitempty" yaml:"max_heart_rate,omitempty"`
	SevenDayAverageRestingHeartRate *float64          `json:"seven_day_average_resting_heart_rate,omitempty" yaml:"seven_day_average_resting_heart_rate,omitempty"`
	AverageStressLevel              *float64          `json:"average_stress_level,omitempty" yaml:"average_stress_level,omitempty"`
	MaxStressLevel                  *float64          `json:"max_stress_level,omitempty" yaml:"max_stress_level,omitempty"`
	SleepDurationHours              *float64          `json:"sleep_duration_hours,omitempty" yaml:"sleep_duration_hours,omitempty"`
	FloorsAscended                  *float64          `json:"floors_ascended,omitempty" yaml:"floors_ascended,omitempty"`
	SedentaryMinutes                *float64          `json:"sedentary_minutes,omitempty" yaml:"sedentary_minutes,omitempty"`
	RespirationRate                 *RespirationRates `json:"respiration_rate,omitempty" yaml:"respiration_rate,omitempty"`
	StressData                      *StressData       `json:"stress_data,omitempty" yaml:"stress_data,omitempty"`
}

// CurrentWeather is the formatted current-conditions block.
type CurrentWeather struct {
	Temperature string `json:"temperature" yaml:"temperature"`
	Description string `json:"description" yaml:"description"`
	Sunrise     string `json:"sunrise" yaml:"sunrise"`
	Sunset      string `json:"sunset" yaml:"sunset"`
	WindSpeed   string `json:"wind_speed" yaml:"wind_speed"`
	Humidity    string `json:"humidity" yaml:"humidity"`
}

// DailyForecast is today's formatted forecast.
type DailyForecast struct {
	MaxTemp    string `json:"max_temp" yaml:"max_temp"`
	MinTemp    string `json:"min_temp" yaml:"min_temp"`
	Conditions string `json:"conditions" yaml:"conditions"`
}

// WeatherAlert is one upstream weather alert.
type WeatherAlert struct {
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	Start       string `json:"start,omitempty" yaml:"start,omitempty"`
	End         string `json:"end,omitempty" yaml:"end,omitempty"`
}

// WeatherSnapshot is either fully formed or empty; a payload missing the
// current block or the daily forecast produces the zero value.
type WeatherSnapshot struct {
	Current *CurrentWeather `json:"current_weather,omitempty" yaml:"current_weather,omitempty"`
	Today   *DailyForecast  `json:"today_forecast,omitempty" yaml:"today_forecast,omitempty"`
	Alerts  []WeatherAlert  `json:"alerts,omitempty" yaml:"alerts,omitempty"`
}

// IsEmpty reports whether the snapshot carries no weather data.
func (w WeatherSnapshot) IsEmpty() bool {
	return w.Current == nil && w.Today == nil && len(w.Alerts) == 0
}

// Snapshot is everything fetched for one briefing run. It is built fresh
// per run and never persisted.
type Snapshot struct {
	Weather  WeatherSnapshot            `json:"weather" yaml:"weather"`
	Fitness  map[string]FitnessSnapshot `json:"fitness" yaml:"fitness"`
	Schedule Schedule                   `json:"schedule" yaml:"schedule"`
}

// EmptySnapshot returns a snapshot whose collections are non-nil and empty.
func EmptySnapshot() Snapshot {
	return Snapshot{
		Fitness:  map[string]FitnessSnapshot{},
		Schedule: Schedule{Tasks: []Item{}, Events: []Item{}},
	}
}
