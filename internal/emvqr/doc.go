// Package emvqr encodes payment descriptors as EMV merchant-presented QR
// payloads (QR Ph profile): a flat run of tag-length-value fields, some of
// them templates holding nested fields, terminated by a CRC-16/CCITT
// checksum in tag 63.
//
// Lengths are two decimal digits counting characters, so no single value may
// exceed 99 characters. Fields caps every free-text value to keep templates
// inside that bound; Check reports the ones a caller should reject instead.
package emvqr
