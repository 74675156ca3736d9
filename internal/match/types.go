package match

// Vehicle is the optional vehicle sub-record attached to an extracted
// customer row. Every field is best-effort extraction output.
type Vehicle struct {
	Year     *int   `json:"year"`
	Make     string `json:"make"`
	Model    string `json:"model"`
	Trim     string `json:"trim"`
	TireSize string `json:"tire_size"`
	Plate    string `json:"plate"`
	VIN      string `json:"vin"`
}

// Candidate is one unverified customer row extracted from an uploaded file.
// Nothing in it is trusted as clean until commit-time sanitization.
type Candidate struct {
	Name    string   `json:"name"`
	Phone   string   `json:"phone"`
	Email   string   `json:"email"`
	Vehicle *Vehicle `json:"vehicle,omitempty"`
}

// Confidence names the signal that justified a candidate match. Phone and
// email are treated as identity-grade signals, name as low trust.
type Confidence string

const (
	ConfidencePhone Confidence = "phone"
	ConfidenceEmail Confidence = "email"
	ConfidenceName  Confidence = "name"
)

// Result describes the best match found for a candidate against a record set.
type Result struct {
	Index      int        `json:"index"`
	Confidence Confidence `json:"confidence"`
	Similarity float64    `json:"similarity"`
}
