package domain

type Recommendation struct {
	Track       Track   `json:"track"`
	Score       float64 `json:"score"`
	Rank        int     `json:"rank"`
	Explanation string  `json:"explanation"`
}

type RecommendationResult struct {
	Recommendations []Recommendation
	CacheHit        bool
}

// EvaluationResult holds top-K quality metrics, each in [0,1].
type EvaluationResult struct {
	PrecisionAtK   float64 `json:"precision_at_k"`
	RecallAtK      float64 `json:"recall_at_k"`
	F1AtK          float64 `json:"f1_at_k"`
	DiversityScore float64 `json:"diversity_score"`
	NoveltyScore   float64 `json:"novelty_score"`
	K              int     `json:"k"`
}

type BatchUserResult struct {
	UserID  string `json:"user_id"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

type BatchSummary struct {
	SuccessCount     int   `json:"success_count"`
	FailedCount      int   `json:"failed_count"`
	ProcessingTimeMs int64 `json:"processing_time_ms"`
}

type BatchResponse struct {
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	TotalUsers int               `json:"total_users"`
	Results    []BatchUserResult `json:"results"`
	Summary    BatchSummary      `json:"summary"`
	Metadata   BatchMeta         `json:"metadata"`
}

type BatchMeta struct {
	GeneratedAt string `json:"generated_at"`
}

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)
