package domain

// Address is the free-form shipping address collected at checkout.
// FirstName, LastName, Street, City, PostalCode, Country and Phone are
// mandatory; the rest is optional.
type Address struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Company    string `json:"company,omitempty"`
	Street     string `json:"street"`
	Street2    string `json:"street2,omitempty"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	State      string `json:"state,omitempty"`
	Country    string `json:"country"`
	Phone      string `json:"phone"`
}
