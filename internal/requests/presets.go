package requests

import "strings"

// OtherCarrier selects a free-text carrier name on the dashboard.
const OtherCarrier = "Other"

// Carriers lists the carriers offered on the agent dashboard.
var Carriers = []string{
	"Nationwide",
	"National General",
	"Progressive",
	"Travelers",
	"NC Grange Mutual",
	"Alamance Farmers",
	"Foremost",
	"NCJUA",
	OtherCarrier,
}

// ResolveCarrier returns the custom name when the agent picked "Other".
func ResolveCarrier(selected, custom string) string {
	if strings.TrimSpace(selected) == OtherCarrier {
		return strings.TrimSpace(custom)
	}
	return strings.TrimSpace(selected)
}

var presets = []PhotoRequirement{
	{ID: "1", Label: "Front of House", Description: "Clear view of the entire front elevation.", IsMandatory: true},
	{ID: "2", Label: "Back of House", Description: "Clear view of the rear elevation.", IsMandatory: true},
	{ID: "3", Label: "Side of House (Left)", Description: "Full view of the left side.", IsMandatory: true},
	{ID: "4", Label: "Side of House (Right)", Description: "Full view of the right side.", IsMandatory: true},
	{ID: "5", Label: "Electrical Panel", Description: "Open door showing breakers and labels.", IsMandatory: true},
	{ID: "6", Label: "Roof Condition", Description: "View of roof surface from ground level.", IsMandatory: false},
	{ID: "7", Label: "HVAC Unit", Description: "Photo of the serial number tag on the unit.", IsMandatory: false},
	{ID: "8", Label: "Hot Water Heater", Description: "Full view of the water heater.", IsMandatory: false},
	{ID: "9", Label: "Under Kitchen Sink", Description: "Show plumbing connections.", IsMandatory: false},
	{ID: "10", Label: "Under Bathroom Sink", Description: "Show plumbing connections.", IsMandatory: false},
	{ID: "11", Label: "Outbuilding", Description: "Photo of shed or detached garage.", IsMandatory: false},
	{ID: "12", Label: "Pool", Description: "View of pool and fencing/gates.", IsMandatory: false},
}

// Presets returns a copy of the default requirement catalogue.
func Presets() []PhotoRequirement {
	out := make([]PhotoRequirement, len(presets))
	copy(out, presets)
	return out
}

// PresetByLabel finds a preset by its label.
func PresetByLabel(label string) (PhotoRequirement, bool) {
	for _, p := range presets {
		if p.Label == label {
			return p, true
		}
	}
	return PhotoRequirement{}, false
}
