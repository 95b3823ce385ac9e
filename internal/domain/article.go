package domain

import "time"

// FeedTimeLayout is the timestamp format used by the upstream rolling feed.
const FeedTimeLayout = "2006/01/02 15:04"

// RawArticle is a collected article as persisted by the collector.
// Story may be empty when body extraction failed; that is not an error.
type RawArticle struct {
	Date  string `json:"date"` // upstream format, e.g. "2025/11/08 14:32"
	Tag   string `json:"tag"`
	Href  string `json:"href"`
	Title string `json:"title"`
	Story string `json:"story"`
}

// PublishedAt parses the upstream feed timestamp.
func (a RawArticle) PublishedAt() (time.Time, error) {
	return time.Parse(FeedTimeLayout, a.Date)
}

// SafetyAssessment is a RawArticle enriched by the safety-summary stage.
// SafetyTags is empty exactly when IsSafe is true.
type SafetyAssessment struct {
	Index      int      `json:"idx"` // position in the collector artifact
	Date       string   `json:"date"`
	Tag        string   `json:"tag"`
	Href       string   `json:"href"`
	Title      string   `json:"title"`
	Brief      string   `json:"news_brief"`
	IsSafe     bool     `json:"is_safe"`
	SafetyTags []string `json:"safety_tags"`
}

// RelevanceAssessment extends a safety-cleared article with product-fit scores.
type RelevanceAssessment struct {
	SafetyAssessment
	Relevance      float64 `json:"relevance"`
	ViralPotential float64 `json:"viral_potential"`
	Score          float64 `json:"score"`
	Reasoning      string  `json:"reasoning"`
}

// RunConfig captures the analyzer settings a run was executed with.
type RunConfig struct {
	TargetProduct      string  `json:"target_product"`
	ProductDescription string  `json:"product_description"`
	ScoreThreshold     float64 `json:"score_threshold"`
	ModelID            string  `json:"model_id"`
	ConcurrencyLimit   int     `json:"concurrency_limit"`
}

// RunStats reconciles every article across the pipeline stages.
// TotalInput - Stage1Success articles failed the safety-summary call.
type RunStats struct {
	TotalInput     int `json:"total_input"`
	Stage1Success  int `json:"stage1_success"`
	SafeCount      int `json:"safe_count"`
	UnsafeCount    int `json:"unsafe_count"`
	Stage2Success  int `json:"stage2_success"`
	QualifiedCount int `json:"qualified_count"`
	FilteredCount  int `json:"filtered_count"`
}

// PipelineRun is the terminal artifact of one analyze invocation.
// Qualified is ordered by Score descending, stable on ties.
type PipelineRun struct {
	RunDate     string                `json:"run_date"`
	Config      RunConfig             `json:"config"`
	Stats       RunStats              `json:"stats"`
	Qualified   []RelevanceAssessment `json:"qualified"`
	FilteredOut []RelevanceAssessment `json:"filtered_out"`
	Unsafe      []SafetyAssessment    `json:"unsafe"`
}
