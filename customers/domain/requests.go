package domain

type CreateCustomerRequest struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	Product    string `json:"product"`
	AssignedTo string `json:"assigned_to"`
	Status     string `json:"status"`
	Notes      string `json:"notes"`
}

// UpdateCustomerRequest only changes the fields that are present.
type UpdateCustomerRequest struct {
	FirstName  *string `json:"first_name"`
	LastName   *string `json:"last_name"`
	Phone      *string `json:"phone"`
	Email      *string `json:"email"`
	Product    *string `json:"product"`
	AssignedTo *string `json:"assigned_to"`
	Status     *string `json:"status"`
	Notes      *string `json:"notes"`
}

// Apply copies the present fields onto c.
func (r UpdateCustomerRequest) Apply(c *Customer) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&c.FirstName, r.FirstName)
	set(&c.LastName, r.LastName)
	set(&c.Phone, r.Phone)
	set(&c.Email, r.Email)
	set(&c.Product, r.Product)
	set(&c.AssignedTo, r.AssignedTo)
	set(&c.Notes, r.Notes)
	if r.Status != nil {
		c.Status = CustomerStatus(*r.Status)
	}
}

// Valid reports whether s is one of AllStatuses.
func (s CustomerStatus) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}
