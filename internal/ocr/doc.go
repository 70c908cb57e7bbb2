// Package ocr provides Optical Character Recognition (OCR) functionality using Tesseract.
//
// This package wraps the Tesseract OCR engine (via gosseract/v2) behind a
// long-lived service value. A Tesseract owns a fixed pool of initialized
// gosseract clients; every call borrows one client for its duration, so the
// service is safe for concurrent use while no client is ever shared between
// goroutines.
//
// # Prerequisites
//
// Tesseract must be installed on the system together with the language data
// for every configured language:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-eng tesseract-ocr-fra
//   - macOS: brew install tesseract tesseract-lang
//
// A custom tessdata directory can be supplied through Config.TessdataPrefix.
//
// # Recognition Modes
//
// The service exposes two operations:
//
//   - Recognize: word-level recognition with per-word confidences, using the
//     configured page segmentation mode (single uniform block by default).
//   - RecognizeText: a single combined string using automatic page
//     segmentation. It is a fallback for regions where word-level recognition
//     found nothing usable.
//
// # Error Handling
//
// Errors are returned for images that cannot be encoded or handed to
// Tesseract, for failed recognition, and when the context is cancelled while
// waiting for a free client.
package ocr
