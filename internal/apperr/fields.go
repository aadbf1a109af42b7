package apperr

// FieldErrors collects per-field validation failures.
type FieldErrors []FieldError

func (fe *FieldErrors) Add(field, message string) {
	*fe = append(*fe, FieldError{Field: field, Message: message})
}

// Check adds message for field when ok is false.
func (fe *FieldErrors) Check(ok bool, field, message string) {
	if !ok {
		fe.Add(field, message)
	}
}

// Err returns a validation error carrying the fields, or nil when empty.
func (fe FieldErrors) Err() error {
	if len(fe) == 0 {
		return nil
	}
	return Validation("Validation failed", fe...)
}
