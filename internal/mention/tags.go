package mention

import "strings"

// Tags holds the enumerated accelerator and cohort strings.
type Tags struct {
	Accelerator []string `mapstructure:"accelerator" validate:"min=1,dive,required"`
	Cohort      []string `mapstructure:"cohort" validate:"min=1,dive,required"`
}

// DefaultTags returns the Y Combinator Summer 2025 tag sets.
func DefaultTags() Tags {
	return Tags{
		Accelerator: []string{"yc", "ycombinator", "y combinator"},
		Cohort:      []string{"s25", "summer 2025", "summer2025", "2025summer", "2025 summer"},
	}
}

func (t Tags) normalized() Tags {
	return Tags{
		Accelerator: lowerAll(t.Accelerator),
		Cohort:      lowerAll(t.Cohort),
	}
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
