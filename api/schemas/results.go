package schemas

// -- Action Result Schemas --

// Detail values surfaced on ActionResult. These are part of the caller
// contract: the outer layer pattern-matches on them to decide whether an
// account should be paused.
const (
	// DetailAlreadyLiked marks a LikePost that found the post already liked
	// and issued no toggle.
	DetailAlreadyLiked = "already liked"
	// DetailRateLimited marks an action cut short by a rate-limit or block
	// indicator. Any further automated activity on the account should stop.
	DetailRateLimited = "rate_limited"
	// DetailEndOfList marks a follower scrape that reached the natural end
	// of the list before MaxCount.
	DetailEndOfList = "end_of_list"
	// DetailMaxCount marks a follower scrape stopped by the requested cap.
	DetailMaxCount = "max_count"
)

// ActionResult is the uniform outcome of every executor operation.
type ActionResult struct {
	Success bool   `json:"success"`
	Detail  string `json:"detail,omitempty"`
	// RetriesUsed counts retry attempts consumed by the centralized retry
	// policy, not the initial attempt itself.
	RetriesUsed int `json:"retries_used"`
	// Followers is populated only by ScrapeFollowers, in scrape order. A
	// blocked scrape still carries everything collected before the block.
	Followers []FollowerRecord `json:"followers,omitempty"`
}
