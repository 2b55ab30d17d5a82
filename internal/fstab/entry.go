package fstab

import "strings"

// numFields is the field count of a standard mount table entry. Lines with
// any other shape are non-standard and pass through unprocessed.
const numFields = 6

// Entry is a single parsed mount table entry. Fields are kept as opaque
// strings and compared textually; no option normalization is done, so
// "rw,noatime" and "noatime,rw" are different values.
type Entry struct {
	Source   string
	Target   string
	FSType   string
	Options  string
	DumpFreq string
	PassNo   string
}

// line is one table line: either a parsed entry or an opaque raw line.
// Raw always holds the original bytes, terminator included, so lines the
// reconciler does not touch round-trip exactly.
type line struct {
	raw   string
	entry *Entry
}

// parseLine classifies a single table line. Blank lines, comments and lines
// without exactly six whitespace-separated fields stay opaque.
func parseLine(raw string) line {
	trim := strings.TrimSpace(raw)
	if trim == "" || strings.HasPrefix(trim, "#") {
		return line{raw: raw}
	}

	fields := strings.Fields(raw)
	if len(fields) != numFields {
		return line{raw: raw}
	}

	return line{
		raw: raw,
		entry: &Entry{
			Source:   fields[0],
			Target:   fields[1],
			FSType:   fields[2],
			Options:  fields[3],
			DumpFreq: fields[4],
			PassNo:   fields[5],
		},
	}
}

// Format renders the entry as a single table line, newline included. Field
// order and single-space separation match what fstab(5) readers expect.
func (e *Entry) Format() string {
	return strings.Join([]string{e.Source, e.Target, e.FSType, e.Options, e.DumpFreq, e.PassNo}, " ") + "\n"
}
