package dbfile

// Feature-version gates. ToastStunt's format grew new fields over time;
// rather than compare raw version integers scattered through the codec,
// every conditional compares against one of these names. Only format
// versions 4 and 17 are accepted at the top level (§4.8), but the v5+
// object/task codec is written generically against these thresholds so
// the gates stay meaningful rather than collapsing to dead branches.
const (
	DBVPrehistory  = 0
	DBVExceptions  = 1
	DBVBreakCont   = 2
	DBVFloat       = 3
	DBVBFBugFixed  = 4
	DBVNextGen     = 5
	DBVTaskLocal   = 6
	DBVMap         = 7
	DBVFileIO      = 8
	DBVExec        = 9
	DBVInterrupt   = 10
	DBVThis        = 11
	DBVIter        = 12
	DBVAnon        = 13
	DBVWaif        = 14
	DBVLastMove    = 15
	DBVThreaded    = 16
	DBVBool        = 17
)

const (
	// FormatVersion4 is the legacy LambdaMOO database layout.
	FormatVersion4 = 4
	// FormatVersion17 is the current ToastStunt layout; every DBV_*
	// feature gate above is satisfied once the top-level version is 17.
	FormatVersion17 = 17
)
