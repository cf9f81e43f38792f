package models

import "strings"

// DeviceContact is the shape handed to a native address-book exporter
type DeviceContact struct {
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Company    string `json:"company,omitempty"`
	JobTitle   string `json:"job_title,omitempty"`
	WorkPhone  string `json:"work_phone,omitempty"`
	WorkEmail  string `json:"work_email,omitempty"`
	WorkStreet string `json:"work_street,omitempty"`
	Note       string `json:"note,omitempty"`
}

// ToDeviceContact splits the full name on the first space and folds the
// website and notes into a single note.
func (c Contact) ToDeviceContact() DeviceContact {
	given, family := splitName(c.Name)

	var note []string
	if c.Website != "" {
		note = append(note, "Website: "+c.Website)
	}
	if c.Notes != "" {
		note = append(note, "Notes: "+c.Notes)
	}

	return DeviceContact{
		GivenName:  given,
		FamilyName: family,
		Company:    c.Company,
		JobTitle:   c.Title,
		WorkPhone:  c.Phone,
		WorkEmail:  c.Email,
		WorkStreet: c.Address,
		Note:       strings.Join(note, "\n"),
	}
}

func splitName(fullName string) (string, string) {
	parts := strings.Split(strings.TrimSpace(fullName), " ")
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
