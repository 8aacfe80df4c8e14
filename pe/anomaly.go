// Copyright 2021 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

// Anomalies this engine's own header parsers (dosheader.go, ntheader.go,
// file.go, helper.go) append to File.Anomalies as they go. The teacher's
// version additionally ran a post-hoc GetAnomalies sweep re-deriving a much
// larger catalogue (timestamp sanity, checksum mismatch, subsystem version
// range, COFF symbol counts, ...) for malware-triage purposes; nothing in a
// CIL interpreter consumes that catalogue. This file declares the two
// raised by dosheader.go and file.go; AnoImageBaseOverflow (ntheader.go) and
// the file/section alignment anomalies are declared in helper.go, and
// section.go builds its per-section messages inline.
var (
	// AnoPEHeaderOverlapDOSHeader is reported when the PE headers overlaps with the DOS header.
	AnoPEHeaderOverlapDOSHeader = "PE Header overlaps with DOS header"

	// AnoReservedDataDirectoryEntry is reported when the last data directory entry is not zero.
	AnoReservedDataDirectoryEntry = "Last data directory entry is a reserved field, must be set to zero"
)
