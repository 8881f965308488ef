package ticket

// DayStat aggregates issuance and scans for one calendar day.
type DayStat struct {
	Date    string `json:"date"`
	Total   int    `json:"total"`
	Scanned int    `json:"scanned"`
}

// Analytics is the admin dashboard summary over all issued tickets.
type Analytics struct {
	TotalTickets   int       `json:"totalTickets"`
	ScannedTickets int       `json:"scannedTickets"`
	PendingTickets int       `json:"pendingTickets"`
	ScanRate       int       `json:"scanRate"`
	DailyStats     []DayStat `json:"dailyStats"`
	RecentTickets  []Stored  `json:"recentTickets"`
}
