package form

// Form tracks the state of one rendered form: current values, per-field
// error messages and which fields the user has visited. A Form belongs to a
// single request/rendering cycle and is not safe for concurrent use.
type Form struct {
	schema  Schema
	initial map[string]string

	values  map[string]string
	errors  map[string]string
	touched map[string]bool
}

// New creates a form over schema seeded with initial values. Fields absent
// from initial start empty.
func New(schema Schema, initial map[string]string) *Form {
	f := &Form{
		schema:  schema,
		initial: initial,
	}
	f.Reset()
	return f
}

// HandleChange records a new value for the field and clears any error shown
// for it; the field is not re-validated until it is blurred or the form is
// submitted. Fields whose equality rule references the changed field are
// re-validated when already touched, so a stale "Passwords must match" does
// not linger after the password is fixed.
func (f *Form) HandleChange(name, value string) {
	f.values[name] = value
	delete(f.errors, name)

	for _, field := range f.schema.Fields {
		if field.Name == name || !f.touched[field.Name] {
			continue
		}
		for _, rule := range field.Rules {
			if rule.Other == name {
				f.setError(field.Name, f.schema.ValidateField(field.Name, f.values))
				break
			}
		}
	}
}

// HandleBlur marks the field as touched and validates it in isolation.
func (f *Form) HandleBlur(name string) {
	f.touched[name] = true
	f.setError(name, f.schema.ValidateField(name, f.values))
}

// ValidateField validates a single field and reports whether it passed.
func (f *Form) ValidateField(name string) bool {
	msg := f.schema.ValidateField(name, f.values)
	f.setError(name, msg)
	return msg == ""
}

// Validate validates every field, replacing the error map wholesale, and
// reports whether the form may be submitted.
func (f *Form) Validate() bool {
	f.errors = f.schema.ValidateAll(f.values)
	return len(f.errors) == 0
}

// Reset restores initial values and clears all errors and touched flags.
func (f *Form) Reset() {
	f.values = make(map[string]string, len(f.initial))
	for name, value := range f.initial {
		f.values[name] = value
	}
	f.errors = make(map[string]string)
	f.touched = make(map[string]bool)
}

// SetValue sets a field value without touching error state, for values the
// application computes rather than the user types.
func (f *Form) SetValue(name, value string) {
	f.values[name] = value
}

// SetTouched marks or unmarks a field as visited.
func (f *Form) SetTouched(name string, touched bool) {
	f.touched[name] = touched
}

// Value returns the field's current value.
func (f *Form) Value(name string) string { return f.values[name] }

// Values returns a copy of all current values.
func (f *Form) Values() map[string]string {
	cp := make(map[string]string, len(f.values))
	for name, value := range f.values {
		cp[name] = value
	}
	return cp
}

// Error returns the message shown for the field, "" when there is none.
func (f *Form) Error(name string) string { return f.errors[name] }

// Errors returns a copy of all current field errors.
func (f *Form) Errors() map[string]string {
	cp := make(map[string]string, len(f.errors))
	for name, msg := range f.errors {
		cp[name] = msg
	}
	return cp
}

// Touched reports whether the user has visited the field.
func (f *Form) Touched(name string) bool { return f.touched[name] }

func (f *Form) setError(name, msg string) {
	if msg == "" {
		delete(f.errors, name)
		return
	}
	f.errors[name] = msg
}
