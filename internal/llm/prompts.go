package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

const noAnswerPlaceholder = "No answer provided."

// ParseResumePrompt asks for the identity fields of a resume.
func ParseResumePrompt(text string) string {
	return fmt.Sprintf(`Analyze the following resume text. Return a single valid JSON object with ONLY the keys: "name", "email", "phone", "skills". The "skills" key must be an array of relevant technical skills. If a value is not found, it must be null. Resume Text: --- %s`, text)
}

// GenerateQuestionsPrompt asks for six timed technical questions.
func GenerateQuestionsPrompt(skills []string) string {
	var tailor string
	if len(skills) > 0 {
		tailor = fmt.Sprintf(" Tailor some questions to these skills: %s.", strings.Join(skills, ", "))
	}
	return `You are an expert technical interviewer. Your response MUST be a single, valid JSON object with ONLY one key: "questions". ` +
		`The value of "questions" MUST be an array of exactly 6 UNIQUE AND VARIED TECHNICAL interview questions for a Full Stack (React/Node.js) role: 2 Easy, 2 Medium and 2 Hard. ` +
		`Each object must have "question", "difficulty", and "time" keys. The "time" key MUST be exactly 20 for Easy, 60 for Medium, and 120 for Hard. ` +
		`Do NOT ask behavioral questions.` + tailor
}

type evaluationItem struct {
	Question   string `json:"question"`
	Difficulty string `json:"difficulty"`
	Answer     string `json:"answer"`
}

// EvaluatePrompt asks for a strict scored evaluation of the answered questions.
func EvaluatePrompt(questions []Question, answers []string) (string, error) {
	items := make([]evaluationItem, 0, len(questions))
	for i, q := range questions {
		answer := noAnswerPlaceholder
		if i < len(answers) && strings.TrimSpace(answers[i]) != "" {
			answer = answers[i]
		}
		items = append(items, evaluationItem{Question: q.Question, Difficulty: q.Difficulty, Answer: answer})
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return "", err
	}
	return `You are a very strict, senior technical interviewer. Analyze the interview data below.
Your response MUST be a single, valid JSON object with ONLY these three keys: "detailedScores", "overallScore", "summary".

1. The value for "detailedScores" MUST be a JSON ARRAY of objects. Each object in the array must contain the original "question", "answer", and a "score" from 0-10 based on technical accuracy. A nonsensical answer like "ddd" MUST receive a score of 0.
2. The value for "overallScore" MUST be a single number from 0-100, calculated as a weighted average (Easy=1x, Medium=2x, Hard=3x).
3. The value for "summary" MUST be a concise, 3-4 sentence technical summary.

Interview Data:
` + string(data), nil
}
