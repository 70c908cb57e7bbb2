// Package explain asks a language model for a plain-English explanation of
// an extracted medicine label.
//
// The record is flattened into six labelled lines (one per field, empty when
// the field is missing), placed into a fixed chat prompt and sent to a
// Generator. Two generators are provided: Gemini through the Google
// Generative AI SDK, and any OpenAI-compatible chat endpoint, which also
// covers locally hosted models.
package explain
