// internal/models/wizard.go
package models

// WizardStep identifies the client's position in the conference flow.
type WizardStep string

const (
	StepExpectedInputs WizardStep = "expected_inputs"
	StepSection        WizardStep = "section"
	StepSummary        WizardStep = "summary"
)

// WizardState is what the controller hands back after every navigation:
// where the client is, whether the current section is fully answered, and
// the running progress aggregate.
type WizardState struct {
	Step            WizardStep `json:"step"`
	SectionIndex    int        `json:"sectionIndex"`
	SectionKey      string     `json:"sectionKey,omitempty"`
	SectionTotal    int        `json:"sectionTotal"`
	SectionComplete bool       `json:"sectionComplete"`
	Progress        Progress   `json:"progress"`
}
