package models

import "time"

type Plan string

const (
	PlanFree    Plan = "free"
	PlanPremium Plan = "premium"
)

// ParsePlan maps stored plan values onto the known tiers. Anything unknown is free.
func ParsePlan(v string) Plan {
	if Plan(v) == PlanPremium {
		return PlanPremium
	}
	return PlanFree
}

// TaskKind identifies one type of generation. The value doubles as the creation type tag.
type TaskKind string

const (
	KindArticle           TaskKind = "article"
	KindBlogTitle         TaskKind = "blog-title"
	KindImage             TaskKind = "image"
	KindRemoveBackground  TaskKind = "remove-background"
	KindRemoveObject      TaskKind = "remove-object"
	KindResumeReview      TaskKind = "resume-review"
	KindJobDiscovery      TaskKind = "job-discovery"
	KindJobSearch         TaskKind = "job-search"
	KindLearningResources TaskKind = "learning-resources"
)

// Kinds lists every task kind in a stable order.
var Kinds = []TaskKind{
	KindArticle, KindBlogTitle, KindImage, KindRemoveBackground, KindRemoveObject,
	KindResumeReview, KindJobDiscovery, KindJobSearch, KindLearningResources,
}

// ParseTaskKind reports whether v names a known kind.
func ParseTaskKind(v string) (TaskKind, bool) {
	for _, k := range Kinds {
		if string(k) == v {
			return k, true
		}
	}
	return "", false
}

// Metered kinds are available to free callers within their usage quota.
func (k TaskKind) Metered() bool {
	return k == KindArticle || k == KindBlogTitle
}

// Caller is the authenticated user with the plan and usage read for this request.
type Caller struct {
	UserID    string
	Plan      Plan
	FreeUsage int
}

func (c Caller) Premium() bool {
	return c.Plan == PlanPremium
}

type User struct {
	ID        string
	Plan      Plan
	FreeUsage int
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Creation struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Prompt    string    `json:"prompt"`
	Content   string    `json:"content"`
	Type      TaskKind  `json:"type"`
	Publish   bool      `json:"publish"`
	Likes     []string  `json:"likes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LikedBy reports whether userID is in the like-set.
func (c *Creation) LikedBy(userID string) bool {
	for _, id := range c.Likes {
		if id == userID {
			return true
		}
	}
	return false
}

// ToggleLike adds or removes userID from the like-set and reports whether it is now liked.
func (c *Creation) ToggleLike(userID string) bool {
	for i, id := range c.Likes {
		if id == userID {
			c.Likes = append(c.Likes[:i:i], c.Likes[i+1:]...)
			return false
		}
	}
	c.Likes = append(c.Likes, userID)
	return true
}

type JobSearchURLs struct {
	LinkedIn  string `json:"linkedin"`
	Indeed    string `json:"indeed"`
	Glassdoor string `json:"glassdoor"`
	Naukri    string `json:"naukri"`
	Google    string `json:"google"`
}

type JobSearch struct {
	Keywords []string      `json:"keywords"`
	Summary  string        `json:"summary"`
	URLs     JobSearchURLs `json:"urls"`
}

type LearningResource struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Kind        string `json:"kind"`
	Description string `json:"description"`
}
