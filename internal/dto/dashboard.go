package dto

// DashboardResponse is the message analytics overview for one teacher.
type DashboardResponse struct {
	From          string              `json:"from"`
	To            string              `json:"to"`
	Students      DashboardStudents   `json:"students"`
	Messages      DashboardMessages   `json:"messages"`
	DailyMessages []DailyMessagePoint `json:"dailyMessages"`
	TopStudents   []TopStudent        `json:"topStudents"`
}

// DashboardStudents summarises the roster.
type DashboardStudents struct {
	Total   int `json:"total"`
	Active  int `json:"active"`
	Engaged int `json:"engaged"`
}

// DashboardMessages summarises message volume in the range.
type DashboardMessages struct {
	Total    int `json:"total"`
	Inbound  int `json:"inbound"`
	Outbound int `json:"outbound"`
}

// DailyMessagePoint is one day of the message series.
type DailyMessagePoint struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// TopStudent ranks students by message volume.
type TopStudent struct {
	StudentID string `json:"studentId"`
	Name      string `json:"name"`
	Messages  int    `json:"messages"`
}
