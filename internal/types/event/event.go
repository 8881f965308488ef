package event

// Details is the single mutable event record stored at eventDetails.
// It is upserted by admins, never versioned.
type Details struct {
	EventName   string `json:"eventName"`
	EventDate   string `json:"eventDate"`
	EventTime   string `json:"eventTime"`
	Venue       string `json:"venue"`
	Price       string `json:"price"`
	Currency    string `json:"currency"`
	DressCode   string `json:"dressCode,omitempty"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"createdAt,omitempty"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
}

// Defaults returns the event record seeded on first read when no admin
// has configured the event yet.
func Defaults() Details {
	return Details{
		EventName:   "Freshers Welcome 2025",
		EventDate:   "Thursday, October 2, 2025",
		EventTime:   "12:00 PM - 6:00 PM",
		Venue:       "Mysterious Location",
		Price:       "300",
		Currency:    "INR",
		DressCode:   "Smart Casual",
		Description: "Join us for an unforgettable Freshers' Party! Dance, music, games, and lots of fun await you.",
	}
}
