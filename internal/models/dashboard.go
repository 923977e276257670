package models

// StatusCounts is the per-status breakdown of a set of complaints.
type StatusCounts struct {
	Total      int64 `json:"totalComplaints"`
	Pending    int64 `json:"pending"`
	Assigned   int64 `json:"assigned"`
	InProgress int64 `json:"inProgress"`
	Resolved   int64 `json:"resolved"`
	Rejected   int64 `json:"rejected"`
}

// Add counts n complaints in status s.
func (c *StatusCounts) Add(s Status, n int64) {
	c.Total += n
	switch s {
	case StatusPending:
		c.Pending += n
	case StatusAssigned:
		c.Assigned += n
	case StatusInProgress:
		c.InProgress += n
	case StatusResolved:
		c.Resolved += n
	case StatusRejected:
		c.Rejected += n
	}
}

// Bucket is one row of a histogram.
type Bucket struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

// ComplaintSummary is the trimmed complaint shape used in dashboard recent lists.
type ComplaintSummary struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Status   Status   `json:"status"`
	Category string   `json:"category"`
	Priority Priority `json:"priority"`
	City     string   `json:"city"`
	Created  string   `json:"createdAt"`
}

// CitizenDashboard summarises the complaints submitted by one citizen.
type CitizenDashboard struct {
	User              string             `json:"user"`
	Counts            StatusCounts       `json:"counts"`
	CategoryBreakdown []Bucket           `json:"categoryBreakdown"`
	PriorityBreakdown []Bucket           `json:"priorityBreakdown"`
	RecentComplaints  []ComplaintSummary `json:"recentComplaints"`
}

// AdminDashboard summarises the complaints visible to an admin or superadmin.
type AdminDashboard struct {
	Scope             string             `json:"scope"`
	Counts            StatusCounts       `json:"statistics"`
	TopCategories     []Bucket           `json:"topCategories"`
	PriorityBreakdown []Bucket           `json:"priorityBreakdown"`
	RecentComplaints  []ComplaintSummary `json:"recentComplaints"`
	LabourInScope     int64              `json:"labourInScope"`
}

// DashboardView is the role-dependent dashboard returned to an actor.
// Exactly one of Citizen, Admin or Labour is set.
type DashboardView struct {
	Citizen *CitizenDashboard `json:"citizen,omitempty"`
	Admin   *AdminDashboard   `json:"admin,omitempty"`
	Labour  *CitizenDashboard `json:"labour,omitempty"`
}
