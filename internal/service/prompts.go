package service

import "fmt"

func resumeReviewPrompt(resume string) string {
	return "Review the following resume and provide constructive feedback on its strengths, " +
		"weaknesses, and areas for improvement. Start with a line of the form " +
		"\"ATS SCORE: NN/100\" estimating how well it passes applicant tracking systems.\n\n" +
		"Resume Content:\n\n" + resume
}

func jobDiscoveryPrompt(resume string) string {
	return "Based on the resume below, suggest up to 10 job titles this candidate is a strong fit for. " +
		"Respond with a JSON array of strings only, no commentary.\n\nResume Content:\n\n" + resume
}

func jobSearchPrompt(title, location string) string {
	where := "any location"
	if location != "" {
		where = location
	}
	return fmt.Sprintf("A candidate is searching for %q jobs in %s. "+
		"Respond with a JSON object with fields \"keywords\" (array of search keywords) "+
		"and \"summary\" (two sentences on what to look for in these openings). No markdown.", title, where)
}

func learningResourcesPrompt(topic, level string) string {
	return fmt.Sprintf("Recommend 6 to 8 learning resources for a %s learner studying %q. "+
		"Respond with a JSON array of objects with fields \"title\", \"url\", \"kind\" "+
		"(course, article, video, book or documentation) and \"description\". No markdown.", level, topic)
}
