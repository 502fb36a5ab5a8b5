package domain

type FeedbackScore struct {
	Score   int    `json:"점수"`
	Comment string `json:"코멘트"`
}

// FeedbackReport mirrors the backend's scoring payload; the JSON keys are the
// backend's own field names.
type FeedbackReport struct {
	OverallScore   int            `json:"총점"`
	Logic          *FeedbackScore `json:"논리적_사고력,omitempty"`
	Evidence       *FeedbackScore `json:"근거와_증거_활용,omitempty"`
	Communication  *FeedbackScore `json:"의사소통_능력,omitempty"`
	Manners        *FeedbackScore `json:"토론_태도와_매너,omitempty"`
	Creativity     *FeedbackScore `json:"창의성과_통찰력,omitempty"`
	OverallComment string         `json:"종합_코멘트,omitempty"`
}

type FeedbackCategory struct {
	Name  string
	Score FeedbackScore
}

// Categories returns the five scored categories in display order. Missing
// categories are reported with a zero score.
func (f *FeedbackReport) Categories() []FeedbackCategory {
	pick := func(s *FeedbackScore) FeedbackScore {
		if s == nil {
			return FeedbackScore{}
		}
		return FeedbackScore{Score: clampScore(s.Score), Comment: s.Comment}
	}
	return []FeedbackCategory{
		{Name: "Logical thinking", Score: pick(f.Logic)},
		{Name: "Use of evidence", Score: pick(f.Evidence)},
		{Name: "Communication", Score: pick(f.Communication)},
		{Name: "Debate manners", Score: pick(f.Manners)},
		{Name: "Creativity & insight", Score: pick(f.Creativity)},
	}
}

func clampScore(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}
