package domain

// ============================================================
// Driver / Profile
// ============================================================

// DriverProfile is the customer record served by the Profile API.
// Only the fields the chat needs are mapped.
type DriverProfile struct {
	CustomerID        string   `json:"customer_id"`
	Name              string   `json:"name"`
	VehicleModel      string   `json:"vehicle_model,omitempty"`
	PreferredLocation string   `json:"preferred_location,omitempty"`
	PaymentMethods    []string `json:"payment_methods,omitempty"`
	MembershipTier    string   `json:"membership_tier,omitempty"`
}

// ============================================================
// Intent detection
// ============================================================

// IntentResult is what the Intent API returns for a message.
type IntentResult struct {
	Intent     string            `json:"intent"`
	Confidence float64           `json:"confidence"`
	Entities   map[string]string `json:"entities,omitempty"`
}
