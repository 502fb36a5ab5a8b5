package domain

// ArticleAnalysis is the backend's answer to a URL submission.
type ArticleAnalysis struct {
	SessionID string   `json:"sessionId"`
	Keywords  []string `json:"keywords"`
	Summary   string   `json:"summary"`
}

type GeneratedTopic struct {
	Topic       string `json:"topic"`
	Description string `json:"description"`
}

type DiscussionStart struct {
	AIPosition Position `json:"aiPosition"`
	AIMessage  string   `json:"aiMessage"`
}

// ArticlePreview is what the client scrapes from the article page itself
// before handing the URL to the backend.
type ArticlePreview struct {
	URL         string
	Title       string
	Description string
	SiteName    string
}
