package validator

// Validator is the entry point handed to services and handlers
type Validator struct {
	business *BusinessValidator
}

func New() *Validator {
	return &Validator{business: NewBusinessValidator()}
}

func (v *Validator) GetBusinessValidator() *BusinessValidator {
	return v.business
}

// Validate runs struct-tag validation
func (v *Validator) Validate(s interface{}) ValidationErrors {
	return v.business.Validate(s)
}
