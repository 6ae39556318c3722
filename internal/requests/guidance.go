package requests

import (
	"regexp"
	"strings"
)

// Guidance is the capture advice shown next to a requirement.
type Guidance struct {
	Kind        string `json:"kind"`
	Tip         string `json:"tip"`
	ExampleText string `json:"exampleText"`
	ExampleURL  string `json:"exampleUrl,omitempty"`
}

type guidanceRule struct {
	match    *regexp.Regexp
	guidance Guidance
}

// Rules are evaluated in order; the first match wins.
var guidanceRules = []guidanceRule{
	{
		match: regexp.MustCompile(`front|back|side|house|elevation|exterior`),
		guidance: Guidance{
			Kind:        "exterior",
			Tip:         "Stand back at least 20 feet. Fit the ground AND the roof in the frame.",
			ExampleText: "Show the whole house, not just a window.",
			ExampleURL:  "https://images.unsplash.com/photo-1568605114967-8130f3a36994?auto=format&fit=crop&w=800&q=80",
		},
	},
	{
		match: regexp.MustCompile(`panel|electric|breaker|fuse`),
		guidance: Guidance{
			Kind:        "electrical",
			Tip:         "Open the metal door first. Ensure the breaker labels are legible.",
			ExampleText: "Avoid glare/flash on the labels.",
			ExampleURL:  "https://images.unsplash.com/photo-1621905251189-08b45d6a269e?auto=format&fit=crop&w=800&q=80",
		},
	},
	{
		match: regexp.MustCompile(`sink|plumbing|pipe`),
		guidance: Guidance{
			Kind:        "plumbing",
			Tip:         "Open the cabinet doors completely. We need to see the pipes underneath.",
			ExampleText: "Use flash to light up the dark cabinet.",
			ExampleURL:  "https://images.unsplash.com/photo-1584622050111-993a426fbf0a?auto=format&fit=crop&w=800&q=80",
		},
	},
	{
		match: regexp.MustCompile(`roof|shingle`),
		guidance: Guidance{
			Kind:        "roof",
			Tip:         "Step back far enough to see the shingles/surface clearly.",
			ExampleText: "Don't climb a ladder. Ground view is fine.",
			ExampleURL:  "https://plus.unsplash.com/premium_photo-1661876490656-963c6310df62?auto=format&fit=crop&w=800&q=80",
		},
	},
	{
		match: regexp.MustCompile(`hvac|ac unit|furnace|air condition`),
		guidance: Guidance{
			Kind:        "hvac",
			Tip:         "Find the manufacturer sticker (data plate) on the side of the unit.",
			ExampleText: "Make sure the Serial Number is readable.",
			ExampleURL:  "https://plus.unsplash.com/premium_photo-1663090819777-6286df9c5365?auto=format&fit=crop&w=800&q=80",
		},
	},
	{
		match: regexp.MustCompile(`water heater|tank`),
		guidance: Guidance{
			Kind:        "water_heater",
			Tip:         "Take a full vertical shot of the tank. Include the pipe connections at the top.",
			ExampleText: "Ensure the area is well lit.",
			ExampleURL:  "https://images.unsplash.com/photo-1585233221943-7e4529367207?auto=format&fit=crop&w=800&q=80",
		},
	},
	{
		match: regexp.MustCompile(`pool|spa|hot tub`),
		guidance: Guidance{
			Kind:        "pool",
			Tip:         "Capture the pool and the surrounding fence/gates if present.",
			ExampleText: "Show the safety features.",
			ExampleURL:  "https://images.unsplash.com/photo-1576013551627-0cc20b96c2a7?auto=format&fit=crop&w=800&q=80",
		},
	},
}

var defaultGuidance = Guidance{
	Kind:        "general",
	Tip:         "Ensure the area is well-lit and hold your phone steady.",
	ExampleText: "Avoid blurry or dark photos.",
}

// GuidanceFor returns capture tips for a requirement label.
func GuidanceFor(label string) Guidance {
	l := strings.ToLower(label)
	for _, rule := range guidanceRules {
		if rule.match.MatchString(l) {
			return rule.guidance
		}
	}
	return defaultGuidance
}
