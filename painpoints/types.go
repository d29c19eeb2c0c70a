package painpoints

// Severity is how impactful a pain point is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Sentiment is the overall mood of the posts in one chunk.
type Sentiment string

const (
	SentimentVeryNegative Sentiment = "very_negative"
	SentimentNegative     Sentiment = "negative"
	SentimentNeutral      Sentiment = "neutral"
	SentimentPositive     Sentiment = "positive"
	SentimentVeryPositive Sentiment = "very_positive"
)

// Impact is the expected effect of shipping a feature idea.
type Impact string

const (
	ImpactLow    Impact = "low"
	ImpactMedium Impact = "medium"
	ImpactHigh   Impact = "high"
)

const (
	MaxExampleQuotes = 3
	MaxTopThemes     = 5
	MaxFeatureIdeas  = 10
	MinPriority      = 1
	MaxPriority      = 10
)

// PainPoint is one issue the model found in a chunk.
type PainPoint struct {
	Category    string   `json:"category" jsonschema_description:"Category of the pain point (e.g. Performance or UX or Features or Support)"`
	Description string   `json:"description" jsonschema_description:"Clear description of the pain point"`
	Severity    Severity `json:"severity" jsonschema:"enum=low,enum=medium,enum=high,enum=critical" jsonschema_description:"How severe or impactful this pain point is"`

	// Frequency is the model's estimate of how many analyzed posts mention the issue.
	// It is not a count and is never checked against the posts.
	Frequency int `json:"frequency" jsonschema:"minimum=1" jsonschema_description:"Estimated number of posts mentioning this issue in the chunk"`

	ExampleQuotes    []string `json:"exampleQuotes" jsonschema:"maxItems=3" jsonschema_description:"Up to 3 representative quotes from posts"`
	SuggestedFeature string   `json:"suggestedFeature" jsonschema_description:"A potential feature idea to address this pain point"`
}

// ChunkAnalysis is the persisted result for one chunk file.
type ChunkAnalysis struct {
	ChunkID string `json:"chunkId" jsonschema_description:"Identifier for this chunk"`

	// TotalPostsAnalyzed is the chunk's full row count, even when only a sample was shown to the model.
	TotalPostsAnalyzed int `json:"totalPostsAnalyzed" jsonschema:"minimum=0" jsonschema_description:"Number of posts in this chunk"`

	PainPoints       []PainPoint `json:"painPoints" jsonschema_description:"List of identified pain points"`
	TopThemes        []string    `json:"topThemes" jsonschema:"maxItems=5" jsonschema_description:"Top 5 recurring themes in user posts"`
	OverallSentiment Sentiment   `json:"overallSentiment" jsonschema:"enum=very_negative,enum=negative,enum=neutral,enum=positive,enum=very_positive" jsonschema_description:"Overall sentiment of posts in this chunk"`
}

// ConsolidatedPainPoint replaces every chunk-level pain point the model judged equivalent.
type ConsolidatedPainPoint struct {
	Category          string   `json:"category"`
	Description       string   `json:"description"`
	Severity          Severity `json:"severity" jsonschema:"enum=low,enum=medium,enum=high,enum=critical"`
	TotalMentions     int      `json:"totalMentions" jsonschema:"minimum=0" jsonschema_description:"Total mentions across all chunks"`
	SuggestedFeatures []string `json:"suggestedFeatures" jsonschema_description:"Consolidated feature suggestions"`
	Priority          int      `json:"priority" jsonschema:"minimum=1,maximum=10" jsonschema_description:"Priority score 1-10 based on severity and frequency"`
}

// FeatureIdea is a product idea proposed from the consolidated pain points.
type FeatureIdea struct {
	Name                string   `json:"name"`
	Description         string   `json:"description"`
	AddressesPainPoints []string `json:"addressesPainPoints"`
	EstimatedImpact     Impact   `json:"estimatedImpact" jsonschema:"enum=low,enum=medium,enum=high"`
}

// FinalAnalysis is the end artifact of the pipeline.
type FinalAnalysis struct {
	TotalPostsAnalyzed     int                     `json:"totalPostsAnalyzed" jsonschema:"minimum=0" jsonschema_description:"Total number of posts analyzed across all chunks"`
	ConsolidatedPainPoints []ConsolidatedPainPoint `json:"consolidatedPainPoints" jsonschema_description:"Consolidated pain points from all chunks"`
	TopFeatureIdeas        []FeatureIdea           `json:"topFeatureIdeas" jsonschema:"maxItems=10" jsonschema_description:"Top 10 feature ideas based on the analysis"`
	ExecutiveSummary       string                  `json:"executiveSummary" jsonschema_description:"Executive summary of findings"`
}
