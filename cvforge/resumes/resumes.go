// Package resumes holds the CV form model and the partial-update merge applied
// after an AI enhancement.
package resumes

import "strings"

// returns a copy of the form with the enhancement applied. experience updates
// pointing outside the form's entries are ignored.
func Merge(form Form, enh Enhancement) Form {
	out := form.Clone()

	if enh.Objective != nil {
		out.Objective = *enh.Objective
	}

	if enh.Skills != nil {
		out.Skills = *enh.Skills
	}

	for _, upd := range enh.Experience {
		if upd.Index < 0 || upd.Index >= len(out.Experience) {
			continue
		}
		out.Experience[upd.Index].Description = upd.Description
	}

	return out
}

// deep copy; the slices are not shared with the receiver
func (f Form) Clone() Form {
	out := f

	if f.Experience != nil {
		out.Experience = make([]Experience, len(f.Experience))
		copy(out.Experience, f.Experience)
	}

	if f.Education != nil {
		out.Education = make([]Education, len(f.Education))
		copy(out.Education, f.Education)
	}

	return out
}

// true when the enhancement carries no field at all
func (e Enhancement) Empty() bool {
	return e.Objective == nil && e.Skills == nil && len(e.Experience) == 0
}

// true when at least one experience entry names both a company and a position
func (f Form) HasExperience() bool {
	for _, exp := range f.Experience {
		if strings.TrimSpace(exp.Company) != "" && strings.TrimSpace(exp.Position) != "" {
			return true
		}
	}

	return false
}

// comma separated skills, trimmed, empties dropped
func (f Form) SkillList() []string {
	var skills []string

	for s := range strings.SplitSeq(f.Skills, ",") {
		if s = strings.TrimSpace(s); s != "" {
			skills = append(skills, s)
		}
	}

	return skills
}

// helper for building enhancements
func String(s string) *string {
	return &s
}
