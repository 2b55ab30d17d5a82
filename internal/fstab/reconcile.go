package fstab

// Upsert reconciles the table so it holds exactly one entry for
// desired.Target with desired's field values. An existing entry at that
// target is rewritten in place and keeps its position; further duplicates
// for the same target are dropped. Without a match the entry is appended.
// Opaque lines are never touched. Reports whether the content changed.
//
// An entry whose fields already all match keeps its original raw bytes, so
// foreign formatting (tabs, extra spaces) survives a no-op reconciliation.
func (t *Table) Upsert(desired Entry) bool {
	out := make([]line, 0, len(t.lines)+1)
	exists := false
	changed := false

	for _, l := range t.lines {
		if l.entry == nil || l.entry.Target != desired.Target {
			out = append(out, l)
			continue
		}
		if exists {
			// Duplicate entry for the same mount point.
			changed = true
			continue
		}
		exists = true
		if *l.entry != desired {
			e := desired
			out = append(out, line{raw: e.Format(), entry: &e})
			changed = true
		} else {
			out = append(out, l)
		}
	}

	if !exists {
		e := desired
		out = append(out, line{raw: e.Format(), entry: &e})
		changed = true
	}

	t.lines = out
	return changed
}

// Remove drops every entry whose target matches, regardless of what its
// other fields hold. Opaque lines pass through in place. Reports whether
// anything was dropped.
func (t *Table) Remove(target string) bool {
	out := make([]line, 0, len(t.lines))
	changed := false

	for _, l := range t.lines {
		if l.entry != nil && l.entry.Target == target {
			changed = true
			continue
		}
		out = append(out, l)
	}

	t.lines = out
	return changed
}
