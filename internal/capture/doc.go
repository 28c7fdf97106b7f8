// Package capture resolves when a submitted photo was taken.
//
// Two strategies are provided and tried in order by a Resolver:
//
//  1. MetadataExtractor reads capture-time fields embedded in the image
//     container (EXIF). Cheap, and trustworthy when present.
//  2. OCRExtractor rasterises likely watermark regions, binarises them and
//     runs text recognition restricted to digits and date punctuation, then
//     parses the recognised text with ParseDateTime.
//
// OCR is a fallback, not a cross-check: it only runs when metadata yields
// nothing. A forged metadata field is therefore not caught here.
//
// Every strategy degrades failures to "not found". Decoding errors, engine
// start-up failures and per-region recognition errors never escape an
// extractor; they are logged and the next option is tried.
//
// Engines sit behind two capability interfaces, MetadataReader and
// TextRecognizer, each with one production implementation (ExifReader over
// goexif, TesseractRecognizer over gosseract).
package capture
