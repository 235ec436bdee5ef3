package ingest

// scanRecordStarts returns the byte offset of every record start in data,
// honoring RFC4180 quoting: a newline inside a quoted field is not a
// record boundary, and doubled quotes inside a quoted field toggle the
// quote state twice, which leaves it unchanged. The final record need not
// end with a newline.
//
// This single sequential pass is what lets the parallel stage hand each
// worker a byte range that begins exactly at an unquoted record boundary,
// so no record is parsed twice or dropped.
func scanRecordStarts(data []byte) []int64 {
	if len(data) == 0 {
		return nil
	}

	starts := make([]int64, 1, 64)
	starts[0] = 0

	inQuotes := false
	for i := 0; i < len(data); i++ {
		switch data[i] {
		case '"':
			inQuotes = !inQuotes
		case '\n':
			if !inQuotes && i+1 < len(data) {
				starts = append(starts, int64(i+1))
			}
		}
	}

	return starts
}
