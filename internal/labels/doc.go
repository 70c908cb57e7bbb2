// Package labels turns detected medicine-label regions into a structured
// record of six label fields.
//
// The package has three parts, used in this order for every region:
//
//   - RotationScorer: recognizes a preprocessed region at each angle of a
//     Profile and picks the reading that looks most like real label text.
//   - Normalize: straightens quotes, collapses newlines and fixes a few
//     characteristic OCR misreads in dosages ("I2" -> "12", "5omg" -> "5 0mg").
//   - Aggregator: walks the detections in order and keeps, per field, the
//     non-empty reading with the highest detection confidence.
//
// # Scoring
//
// A reading at one angle scores
//
//	mean word confidence + 0.3 * number of ASCII letters
//
// Readings with five or fewer letters are discarded before scoring. The
// highest score wins and ties go to the angle listed first, so results do not
// depend on the order in which concurrent recognitions finish.
//
// # Records
//
// A LabelRecord always carries all six fields. Fields without a usable
// reading are nil and encode as JSON null. Deciding whether an all-empty
// record is an error is left to the caller.
package labels
