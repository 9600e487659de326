package domain

// InstitutionProfile is the descriptive data the recommendation service sends
// alongside each candidate. It is not part of the aggregate.
type InstitutionProfile struct {
	InstitutionID string
	CenterName    string
	Address       string
	AverageRating float64
}
