package ticket

// Ticket is an issued event ticket, stored under tickets/{userID}/{pushKey}.
// The event fields are a snapshot taken at issuance time on purpose: a
// ticket keeps showing what the holder was promised even if the admin
// edits the event afterwards. ID doubles as the QR payload and the public
// verification URL slug.
type Ticket struct {
	ID           string `json:"id"`
	UserID       string `json:"userId"`
	UserName     string `json:"userName"`
	EventName    string `json:"eventName"`
	EventDate    string `json:"eventDate"`
	EventTime    string `json:"eventTime"`
	Venue        string `json:"venue"`
	Price        string `json:"price"`
	PurchaseDate string `json:"purchaseDate"`
	IsScanned    bool   `json:"isScanned"`
	ScannedAt    string `json:"scannedAt,omitempty"`
	ScannedBy    string `json:"scannedBy,omitempty"`
	ScanLocation string `json:"scanLocation,omitempty"`
}

// Stored is a Ticket together with its database key.
type Stored struct {
	Ticket
	FirebaseKey string `json:"firebaseKey"`
}
