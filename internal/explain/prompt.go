package explain

import (
	"fmt"
	"strings"

	"github.com/ironsheep/medilabel-reader/internal/labels"
)

// SystemPrompt sets the assistant's role.
const SystemPrompt = "You are a helpful assistant that explains medical labels in plain English."

const userTemplate = `Here's some information from a medicine label:

%s

Please explain:
- What this medicine is made of
- What this medicine is used for
- How to take it safely
- Any important warnings or side effects someone should know`

// slotPrefixes label each field in the prompt, in record order.
var slotPrefixes = [...]struct {
	attr   labels.Attribute
	prefix string
}{
	{labels.MedicineName, "Medicine name: "},
	{labels.Composition, "Active ingredients: "},
	{labels.Uses, "Uses: "},
	{labels.DosageAmount, "Recommended dosage: "},
	{labels.DosageForm, "Form: "},
	{labels.Quantity, "Quantity: "},
}

// Slots is the record flattened into six labelled lines.
type Slots [6]string

// NewSlots flattens a record. Fields without text give an empty slot.
func NewSlots(record labels.LabelRecord) Slots {
	var s Slots
	for i, sp := range slotPrefixes {
		if text := record.Text(sp.attr); text != "" {
			s[i] = sp.prefix + text
		}
	}
	return s
}

// Context joins the slots with newlines. Empty slots still produce a line.
func (s Slots) Context() string {
	return strings.Join(s[:], "\n")
}

// Prompt is a system and user message pair.
type Prompt struct {
	System string
	User   string
}

// String renders the prompt as a single block for models without chat roles.
func (p Prompt) String() string {
	return fmt.Sprintf("<|system|>\n%s\n<|user|>\n%s\n\n<|assistant|>\n", p.System, p.User)
}

// BuildPrompt returns the chat prompt for the given slots.
func BuildPrompt(s Slots) Prompt {
	return Prompt{
		System: SystemPrompt,
		User:   fmt.Sprintf(userTemplate, s.Context()),
	}
}
