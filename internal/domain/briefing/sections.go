package briefing

// Section is one extracted fragment. Present is false when the anchor was
// not found, which is distinct from a present but empty fragment.
type Section struct {
	ID      string `json:"id" yaml:"id"`
	Content string `json:"content,omitempty" yaml:"content,omitempty"`
	Present bool   `json:"present" yaml:"present"`
}

// SectionedResponse maps requested section ids to fragments, in request order.
type SectionedResponse struct {
	Sections []Section `json:"sections" yaml:"sections"`
}

// AllAbsent builds a response in which every id is absent.
func AllAbsent(ids []string) SectionedResponse {
	sections := make([]Section, 0, len(ids))
	for _, id := range ids {
		sections = append(sections, Section{ID: id})
	}
	return SectionedResponse{Sections: sections}
}

// Get returns the fragment for id and whether it was present.
func (r SectionedResponse) Get(id string) (string, bool) {
	for _, section := range r.Sections {
		if section.ID == id {
			return section.Content, section.Present
		}
	}
	return "", false
}

// Stage names, in execution order.
const (
	StageWeather  = "weather"
	StageFitness  = "fitness"
	StageSchedule = "schedule"
)

// Section anchors produced by each stage.
const (
	SectionWeatherOverview        = "weather_overview"
	SectionWeatherRecommendations = "weather_recommendations"
	SectionFitnessOverview        = "fitness_overview"
	SectionDailySchedule          = "daily_schedule"
	SectionSuggestions            = "suggestions"
)

// StageSections lists the anchors each stage extracts.
var StageSections = map[string][]string{
	StageWeather:  {SectionWeatherOverview, SectionWeatherRecommendations},
	StageFitness:  {SectionFitnessOverview},
	StageSchedule: {SectionDailySchedule, SectionSuggestions},
}

// SectionGroup is the sectioned output of one stage under a display title.
type SectionGroup struct {
	Stage    string            `json:"stage" yaml:"stage"`
	Title    string            `json:"title" yaml:"title"`
	Response SectionedResponse `json:"response" yaml:"response"`
}

// Briefing is the assembled output of a successful run.
type Briefing struct {
	Groups   []SectionGroup `json:"groups" yaml:"groups"`
	Snapshot Snapshot       `json:"snapshot" yaml:"snapshot"`
}

// Group returns the group produced by stage.
func (b Briefing) Group(stage string) (SectionGroup, bool) {
	for _, group := range b.Groups {
		if group.Stage == stage {
			return group, true
		}
	}
	return SectionGroup{}, false
}
