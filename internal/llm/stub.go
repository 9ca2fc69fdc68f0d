package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"codeberg.org/cvforge/server/cvforge/resumes"
)

// descriptions longer than this are considered already written
const minDescriptionLength = 50

var stubAchievements = []string{
	"Led strategic initiatives that significantly improved operational efficiency and customer satisfaction.",
	"Implemented innovative solutions that optimized key processes, cutting execution times by 30%.",
	"Worked with cross-functional teams to design and deliver strategies that exceeded their targets.",
	"Managed complex projects from concept to delivery, keeping them on schedule and on budget.",
}

var stubSkills = []string{
	"Team Leadership",
	"Project Management",
	"Effective Communication",
	"Problem Solving",
	"Analytical Thinking",
	"Teamwork",
	"Adaptability",
	"Results Orientation",
}

// deterministic enhancer used when no AI provider is configured
type StubEnhancer struct {
	delay time.Duration
}

// creates a stub enhancer that waits delay before answering
func NewStubEnhancer(delay time.Duration) *StubEnhancer {
	return &StubEnhancer{delay: delay}
}

func (s *StubEnhancer) Enhance(ctx context.Context, form resumes.Form, _ string) (resumes.Enhancement, error) {
	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return resumes.Enhancement{}, ctx.Err()
		case <-timer.C:
		}
	}

	enh := resumes.Enhancement{
		Objective: resumes.String(stubObjective(form)),
		Skills:    resumes.String(strings.Join(stubSkills[:6], ", ")),
	}

	for i, exp := range form.Experience {
		if exp.Company == "" && exp.Position == "" {
			continue
		}

		if strings.TrimSpace(exp.Description) != "" {
			continue
		}

		enh.Experience = append(enh.Experience, resumes.ExperienceEnhancement{
			Index:       i,
			Description: stubAchievements[i%len(stubAchievements)],
		})
	}

	return enh, nil
}

func stubObjective(form resumes.Form) string {
	years := "2"
	if form.HasExperience() {
		years = "5+"
	}

	if strings.TrimSpace(form.JobOffer) != "" {
		return fmt.Sprintf(
			"Highly motivated professional with %s years of experience, focused on delivering exceptional results. "+
				"I want to apply my technical and leadership skills to the organization's success, bringing "+
				"innovative solutions and a results-driven approach with measurable impact.",
			years,
		)
	}

	if obj := strings.TrimSpace(form.Objective); len(obj) > minDescriptionLength {
		return obj
	}

	return fmt.Sprintf(
		"Dynamic professional with %s years of proven experience in demanding environments. Committed to "+
			"operational excellence and continuous growth, looking for opportunities to contribute to "+
			"organizational growth through strategic solutions and collaborative work.",
		years,
	)
}
