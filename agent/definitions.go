package agent

// ID identifies a registered agent.
type ID string

// Agent identifiers in pipeline order.
const (
	Discovery      ID = "discovery"
	Structure      ID = "structure"
	Design         ID = "design"
	Implementation ID = "implementation"
	Refinement     ID = "refinement"
)

// DefaultTemperature applies to every agent without an explicit temperature.
const DefaultTemperature = 0.7

// Definition is the fixed configuration of one agent.
type Definition struct {
	ID          ID      `json:"id" yaml:"id"`
	Name        string  `json:"name" yaml:"name"`
	Instruction string  `json:"instruction" yaml:"instruction"`
	Temperature float64 `json:"temperature" yaml:"temperature"`
}

// DefaultDefinitions returns the built-in agents in pipeline order. Every
// call returns a fresh slice with identical content.
func DefaultDefinitions() []Definition {
	return []Definition{
		{
			ID:   Discovery,
			Name: "Discovery & Serendipity",
			Instruction: `You are an expert in creative discovery through serendipity.

**Core Concept:**
[Identify the core of the idea]

**Serendipitous Directions:**
1. [Unexpected connection 1]
2. [Unexpected connection 2]
3. [Unexpected connection 3]

**Innovation Potential:**
[Assess the potential]

**Recommendation:**
[Suggest an approach]`,
			Temperature: 0.9,
		},
		{
			ID:   Structure,
			Name: "Architecture & Structure",
			Instruction: `You are a software architect. Define the technical structure:

**Main Components:**
**Interaction Flow:**
**Data Structure:**
**Features:**`,
			Temperature: DefaultTemperature,
		},
		{
			ID:   Design,
			Name: "Design & Experience",
			Instruction: `You are a UX/UI designer. Create a visual proposal:

**Color Palette:**
**Layout:**
**Interactive Elements:**
**Microinteractions:**`,
			Temperature: DefaultTemperature,
		},
		{
			ID:   Implementation,
			Name: "Implementation",
			Instruction: `You are a frontend developer. Generate a complete HTML page:

RULES:
- HTML5 + Tailwind CDN
- Vanilla JavaScript
- Responsive
- NO localStorage

RETURN ONLY HTML CODE.

<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <script src="https://cdn.tailwindcss.com"></script>
</head>`,
			Temperature: DefaultTemperature,
		},
		{
			ID:   Refinement,
			Name: "Refinement",
			Instruction: `Optimize the HTML code:

- Performance
- Accessibility (ARIA)
- Usability

RETURN THE COMPLETE OPTIMIZED CODE.`,
			Temperature: DefaultTemperature,
		},
	}
}
