// internal/models/employee.go
package models

import "strings"

// Employee is the contact snapshot the engine needs to address a person.
// The full employee record lives outside this core.
type Employee struct {
	ID              string `json:"id"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email,omitempty"`
	Phone           string `json:"phone,omitempty"`
	ChatHandle      string `json:"chatHandle,omitempty"`
	PushEndpointARN string `json:"pushEndpointArn,omitempty"`
}

// FullName joins first and last name with a single space, trimming
// leading/trailing and collapsing inner whitespace.
func (e *Employee) FullName() string {
	if e == nil {
		return ""
	}
	return strings.Join(strings.Fields(e.FirstName+" "+e.LastName), " ")
}
