package resumes

import (
	"fmt"
	"strings"
)

// renders the form as a markdown document, used for previews and exports
func Markdown(f Form) string {
	var b strings.Builder

	name := strings.TrimSpace(f.FullName)
	if name == "" {
		name = "Untitled CV"
	}
	fmt.Fprintf(&b, "# %s\n\n", name)

	var contact []string
	for _, v := range []string{f.Email, f.Phone, f.Location} {
		if v = strings.TrimSpace(v); v != "" {
			contact = append(contact, v)
		}
	}
	if len(contact) > 0 {
		fmt.Fprintf(&b, "%s\n\n", strings.Join(contact, " · "))
	}

	if obj := strings.TrimSpace(f.Objective); obj != "" {
		fmt.Fprintf(&b, "## Objective\n\n%s\n\n", obj)
	}

	wroteHeader := false
	for _, exp := range f.Experience {
		if exp.Company == "" && exp.Position == "" {
			continue
		}
		if !wroteHeader {
			b.WriteString("## Experience\n\n")
			wroteHeader = true
		}

		fmt.Fprintf(&b, "### %s", exp.Position)
		if exp.Company != "" {
			fmt.Fprintf(&b, " at %s", exp.Company)
		}
		b.WriteString("\n\n")

		if exp.Period != "" {
			fmt.Fprintf(&b, "*%s*\n\n", exp.Period)
		}
		if exp.Description != "" {
			fmt.Fprintf(&b, "%s\n\n", exp.Description)
		}
	}

	wroteHeader = false
	for _, edu := range f.Education {
		if edu.Institution == "" && edu.Degree == "" {
			continue
		}
		if !wroteHeader {
			b.WriteString("## Education\n\n")
			wroteHeader = true
		}

		fmt.Fprintf(&b, "- **%s**", edu.Degree)
		if edu.Institution != "" {
			fmt.Fprintf(&b, ", %s", edu.Institution)
		}
		if edu.Period != "" {
			fmt.Fprintf(&b, " (%s)", edu.Period)
		}
		b.WriteString("\n")
	}
	if wroteHeader {
		b.WriteString("\n")
	}

	if skills := f.SkillList(); len(skills) > 0 {
		b.WriteString("## Skills\n\n")
		for _, s := range skills {
			fmt.Fprintf(&b, "- %s\n", s)
		}
	}

	return b.String()
}
