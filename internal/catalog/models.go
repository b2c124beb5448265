// Package catalog holds the administrator-maintained enumerations consulted
// at validation time: dropdown value sets and dynamic form field schemas.
//
// Catalogs are administrator-editable, so validation always reads live data.
// No catalog snapshot may outlive a single validation pass.
package catalog

// DropdownEntry is one selectable value within a category (industries,
// countries, membership tiers, ...).
type DropdownEntry struct {
	Category string
	Code     string
	Label    string
	Active   bool
}

// FieldType is the tagged variant describing how a dynamic field validates.
// Validation is an exhaustive switch over these values; adding a type without
// extending the rule engine is a compile-visible gap, not a silent pass.
type FieldType string

const (
	FieldText          FieldType = "text"
	FieldTextarea      FieldType = "textarea"
	FieldEmail         FieldType = "email"
	FieldURL           FieldType = "url"
	FieldPhone         FieldType = "phone"
	FieldDropdown      FieldType = "dropdown"
	FieldMultiDropdown FieldType = "multi_dropdown"
	FieldCheckbox      FieldType = "checkbox"
	FieldFileRef       FieldType = "file"
)

// FieldSchema describes one dynamic form field.
//
// DropdownCategory is only meaningful for FieldDropdown and FieldMultiDropdown;
// it names the DropdownEntry category whose active codes are the legal values.
type FieldSchema struct {
	Key              string
	Type             FieldType
	Section          string
	DisplayOrder     int
	Required         bool
	DropdownCategory string
}
