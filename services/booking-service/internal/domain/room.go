package domain

type Room struct {
	ID          string
	HotelID     string
	Number      string
	Type        string
	NightlyRate float64
}

type Customer struct {
	ID    string
	Name  string
	Email string
	Phone string
}
