package resumes

// the CV form as edited by the client
type Form struct {
	FullName   string       `json:"full_name" binding:"max=200"`
	Email      string       `json:"email" binding:"omitempty,email,max=254"`
	Phone      string       `json:"phone" binding:"max=50"`
	Location   string       `json:"location" binding:"max=200"`
	Objective  string       `json:"objective" binding:"max=4000"`
	Experience []Experience `json:"experience" binding:"max=50,dive"`
	Education  []Education  `json:"education" binding:"max=50,dive"`
	Skills     string       `json:"skills" binding:"max=2000"`
	JobOffer   string       `json:"job_offer" binding:"max=10000"`
}

type Experience struct {
	Company     string `json:"company" binding:"max=200"`
	Position    string `json:"position" binding:"max=200"`
	Period      string `json:"period" binding:"max=100"`
	Description string `json:"description" binding:"max=4000"`
}

type Education struct {
	Institution string `json:"institution" binding:"max=200"`
	Degree      string `json:"degree" binding:"max=200"`
	Period      string `json:"period" binding:"max=100"`
}

// fields an enhancer claims to have improved. nil or absent fields are left
// untouched by Merge.
type Enhancement struct {
	Objective  *string                 `json:"objective,omitempty"`
	Experience []ExperienceEnhancement `json:"experience,omitempty"`
	Skills     *string                 `json:"skills,omitempty"`
}

// replacement description for the experience entry at Index
type ExperienceEnhancement struct {
	Index       int    `json:"index"`
	Description string `json:"description"`
}
